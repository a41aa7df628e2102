package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/livestock-marketplace/backend/internal/http/dto"
	"github.com/livestock-marketplace/backend/internal/middleware"
	"github.com/livestock-marketplace/backend/internal/models"
	"github.com/livestock-marketplace/backend/internal/rbac"
	"github.com/livestock-marketplace/backend/internal/repositories"
	"github.com/livestock-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

type auditReader interface {
	GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, error)
}

type EscrowHandler struct {
	escrowService *services.EscrowService
	verifyService *services.VerifyService
	auditRepo     auditReader
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, verifyService *services.VerifyService, auditRepo auditReader, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, verifyService: verifyService, auditRepo: auditRepo, log: log}
}

func (h *EscrowHandler) CreateEscrow(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	result, err := h.escrowService.CreateEscrow(c.Context(), req.TransactionID, req.BuyerID, req.SellerID, req.Amount, req.Currency)
	if err != nil {
		return h.operationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *EscrowHandler) FundEscrow(c *fiber.Ctx) error {
	var req dto.FundEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if err := h.authorize(c, c.Params("id"), rbac.PermFundEscrow); err != nil {
		return err
	}

	result, err := h.escrowService.FundEscrow(c.Context(), c.Params("id"), req.FundingMethod, req.Amount)
	if err != nil {
		return h.operationError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *EscrowHandler) ReleaseEscrow(c *fiber.Ctx) error {
	var req dto.ReleaseEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if err := h.authorize(c, c.Params("id"), rbac.PermReleaseEscrow); err != nil {
		return err
	}

	result, err := h.escrowService.ReleaseEscrow(c.Context(), c.Params("id"), req.ReleasedBy)
	if err != nil {
		return h.operationError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *EscrowHandler) DisputeEscrow(c *fiber.Ctx) error {
	var req dto.DisputeEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if err := h.authorize(c, c.Params("id"), rbac.PermDisputeEscrow); err != nil {
		return err
	}

	result, err := h.escrowService.DisputeEscrow(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return h.operationError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *EscrowHandler) CancelEscrow(c *fiber.Ctx) error {
	var req dto.CancelEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if err := h.authorize(c, c.Params("id"), rbac.PermCancelEscrow); err != nil {
		return err
	}

	result, err := h.escrowService.CancelEscrow(c.Context(), c.Params("id"), req.CancelledBy, req.Reason)
	if err != nil {
		return h.operationError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	t, err := h.escrowService.GetTransaction(c.Context(), c.Params("id"))
	if err != nil {
		return h.operationError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: t})
}

func (h *EscrowHandler) GetStatus(c *fiber.Ctx) error {
	projection, err := h.escrowService.GetStatus(c.Context(), c.Params("id"))
	if err != nil {
		return h.operationError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: projection})
}

func (h *EscrowHandler) GetLog(c *fiber.Ctx) error {
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	entries, err := h.escrowService.GetLog(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		h.log.Error("get escrow log failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *EscrowHandler) GetAudit(c *fiber.Ctx) error {
	if err := h.authorize(c, c.Params("id"), rbac.PermReadEscrow); err != nil {
		return err
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	logs, err := h.auditRepo.GetByEntity(c.Context(), "escrow_transaction", c.Params("id"), limit, offset)
	if err != nil {
		h.log.Error("get audit trail failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

func (h *EscrowHandler) VerifyProvenance(c *fiber.Ctx) error {
	var req dto.VerifyProvenanceRequest
	if err := c.BodyParser(&req); err != nil || req.TagID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "tag_id is required"})
	}

	if err := h.authorize(c, c.Params("id"), rbac.PermVerifyAnimal); err != nil {
		return err
	}

	result, err := h.verifyService.VerifyProvenance(c.Context(), c.Params("id"), req.TagID)
	if err != nil {
		return h.operationError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

// authorize resolves the caller's role against the transaction's parties
// and checks the permission. Service tokens act as the operator.
func (h *EscrowHandler) authorize(c *fiber.Ctx, id, perm string) error {
	t, err := h.escrowService.GetTransaction(c.Context(), id)
	if err != nil {
		return h.operationError(c, err)
	}

	role := rbac.RoleFor(t, middleware.GetPartyID(c), middleware.GetService(c))
	if !rbac.HasPermission(role, perm) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "not permitted for this transaction"})
	}
	return nil
}

// operationError maps service errors onto HTTP codes. Precondition
// failures are caller races, not server faults, so they get 409.
func (h *EscrowHandler) operationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "escrow transaction not found"})
	case errors.Is(err, repositories.ErrPreconditionFailed):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "transition not allowed from current status"})
	case errors.Is(err, repositories.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "escrow transaction already exists"})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}
