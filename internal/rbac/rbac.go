package rbac

import "github.com/livestock-marketplace/backend/internal/models"

// Role constants
const (
	RoleBuyer    = "buyer"
	RoleSeller   = "seller"
	RoleOperator = "operator"
)

// Permission constants
const (
	PermFundEscrow    = "fund_escrow"
	PermReleaseEscrow = "release_escrow"
	PermDisputeEscrow = "dispute_escrow"
	PermCancelEscrow  = "cancel_escrow"
	PermVerifyAnimal  = "verify_animal"
	PermReadEscrow    = "read_escrow"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleBuyer: {
		PermFundEscrow, PermReleaseEscrow, PermDisputeEscrow, PermCancelEscrow,
		PermVerifyAnimal, PermReadEscrow,
	},
	RoleSeller: {
		PermDisputeEscrow, PermVerifyAnimal, PermReadEscrow,
		// Seller CANNOT: PermFundEscrow, PermReleaseEscrow, PermCancelEscrow
	},
	RoleOperator: {
		PermFundEscrow, PermReleaseEscrow, PermDisputeEscrow, PermCancelEscrow,
		PermVerifyAnimal, PermReadEscrow,
	},
}

// RoleFor maps a caller onto its role for a given transaction. Service
// callers act as the marketplace operator. A party that is neither side
// of the transaction has no role and gets an empty string.
func RoleFor(t *models.EscrowTransaction, partyID, service string) string {
	if service != "" {
		return RoleOperator
	}
	switch partyID {
	case "":
		return ""
	case t.BuyerID:
		return RoleBuyer
	case t.SellerID:
		return RoleSeller
	}
	return ""
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsSettlementOperation reports whether a permission moves funds.
// Settlement operations are restricted to the buyer and the operator.
func IsSettlementOperation(permission string) bool {
	return permission == PermReleaseEscrow || permission == PermCancelEscrow
}
