package rbac

import (
	"testing"

	"github.com/livestock-marketplace/backend/internal/models"
)

func TestRoleFor(t *testing.T) {
	tx := &models.EscrowTransaction{ID: "TX-1", BuyerID: "buyer-1", SellerID: "seller-1"}

	tests := []struct {
		name    string
		partyID string
		service string
		want    string
	}{
		{"buyer", "buyer-1", "", RoleBuyer},
		{"seller", "seller-1", "", RoleSeller},
		{"service token is operator", "", "settlement-svc", RoleOperator},
		{"service wins over party", "seller-1", "settlement-svc", RoleOperator},
		{"unrelated party", "stranger", "", ""},
		{"empty caller", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleFor(tx, tt.partyID, tt.service); got != tt.want {
				t.Errorf("RoleFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role string
		perm string
		want bool
	}{
		{RoleBuyer, PermFundEscrow, true},
		{RoleBuyer, PermReleaseEscrow, true},
		{RoleSeller, PermReleaseEscrow, false},
		{RoleSeller, PermFundEscrow, false},
		{RoleSeller, PermDisputeEscrow, true},
		{RoleOperator, PermCancelEscrow, true},
		{"", PermReadEscrow, false},
		{"unknown", PermFundEscrow, false},
	}

	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestIsSettlementOperation(t *testing.T) {
	if !IsSettlementOperation(PermReleaseEscrow) {
		t.Error("release should be a settlement operation")
	}
	if !IsSettlementOperation(PermCancelEscrow) {
		t.Error("cancel should be a settlement operation")
	}
	if IsSettlementOperation(PermDisputeEscrow) {
		t.Error("dispute should not be a settlement operation")
	}
}
