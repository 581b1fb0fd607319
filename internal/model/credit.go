package model

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypePurchase        TransactionType = "PURCHASE"
	TransactionTypeUsage           TransactionType = "USAGE"
	TransactionTypeBonus           TransactionType = "BONUS"
	TransactionTypeRefund          TransactionType = "REFUND"
	TransactionTypeAdminAdjustment TransactionType = "ADMIN_ADJUSTMENT"
	TransactionTypeSubscription    TransactionType = "SUBSCRIPTION"
	TransactionTypeReferral        TransactionType = "REFERRAL"
	TransactionTypeWelcome         TransactionType = "WELCOME"
)

// GrantsFreeCredits reports whether a grant of this type raises the
// free-credit portion of the balance alongside the total. Purchases and
// refunds fund the unrestricted portion only.
func (t TransactionType) GrantsFreeCredits() bool {
	switch t {
	case TransactionTypeBonus, TransactionTypeReferral, TransactionTypeWelcome:
		return true
	}
	return false
}

// CreditTransaction is one row of the append-only credit ledger. Amount is
// signed: negative for spend, positive for grants. BalanceAfter snapshots
// total_credits as read inside the same transaction that wrote the row, so
// replaying amounts in commit order reproduces the current balance.
type CreditTransaction struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        int64           `json:"user_id" db:"user_id"`
	Type          TransactionType `json:"type" db:"type"`
	Amount        int64           `json:"amount" db:"amount"`
	BalanceAfter  int64           `json:"balance_after" db:"balance_after"`
	Description   *string         `json:"description,omitempty" db:"description"`
	ReferenceType *string         `json:"reference_type,omitempty" db:"reference_type"`
	ReferenceID   *string         `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
