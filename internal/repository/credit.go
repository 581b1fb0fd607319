package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
)

var (
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrFreeCreditsRestricted = errors.New("free credits are restricted for this feature")
)

// DebitCredits decrements total_credits and appends the USAGE ledger row as
// one transaction. Eligibility is re-derived under the row lock: a debit is
// only applied when the purchased portion (total - free) still covers the
// cost, so two concurrent debits cannot overspend and free credits are never
// consumed by this path. Returns the balance after the debit.
func (r *Repository) DebitCredits(ctx context.Context, userID, cost int64, description string, refType, refID *string) (int64, error) {
	if cost <= 0 {
		return 0, fmt.Errorf("debit cost must be positive, got %d", cost)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var totalCredits, freeCredits int64
	err = tx.QueryRowContext(ctx,
		"SELECT total_credits, free_credits FROM users WHERE id = $1 FOR UPDATE",
		userID,
	).Scan(&totalCredits, &freeCredits)
	if err != nil {
		return 0, fmt.Errorf("failed to lock balance: %w", err)
	}

	purchased := totalCredits - freeCredits
	if purchased < 0 {
		purchased = 0
	}
	if purchased < cost {
		if freeCredits > 0 && totalCredits >= cost {
			return totalCredits, ErrFreeCreditsRestricted
		}
		return totalCredits, ErrInsufficientCredits
	}

	var balanceAfter int64
	err = tx.QueryRowContext(ctx,
		"UPDATE users SET total_credits = total_credits - $1, updated_at = NOW() WHERE id = $2 RETURNING total_credits",
		cost, userID,
	).Scan(&balanceAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}

	var desc *string
	if description != "" {
		desc = &description
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, type, amount, balance_after, description, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, model.TransactionTypeUsage, -cost, balanceAfter, desc, refType, refID)
	if err != nil {
		return 0, fmt.Errorf("failed to create transaction record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return balanceAfter, nil
}

// GrantCredits increments the balance and appends the typed ledger row in one
// transaction. Welcome, bonus and referral grants also raise free_credits;
// purchases and refunds fund the unrestricted portion only.
func (r *Repository) GrantCredits(ctx context.Context, userID, amount int64, txType model.TransactionType, description string, refType, refID *string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := "UPDATE users SET total_credits = total_credits + $1, updated_at = NOW() WHERE id = $2 RETURNING total_credits"
	if txType.GrantsFreeCredits() {
		query = "UPDATE users SET total_credits = total_credits + $1, free_credits = free_credits + $1, updated_at = NOW() WHERE id = $2 RETURNING total_credits"
	}

	var balanceAfter int64
	if err := tx.QueryRowContext(ctx, query, amount, userID).Scan(&balanceAfter); err != nil {
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}

	var desc *string
	if description != "" {
		desc = &description
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, type, amount, balance_after, description, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, txType, amount, balanceAfter, desc, refType, refID)
	if err != nil {
		return 0, fmt.Errorf("failed to create transaction record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return balanceAfter, nil
}

// ListCreditTransactions returns ledger history, newest first.
func (r *Repository) ListCreditTransactions(ctx context.Context, userID int64, limit, offset int) ([]model.CreditTransaction, error) {
	var transactions []model.CreditTransaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	return transactions, err
}

// SumCreditAmounts replays the ledger for an account. The result must equal
// users.total_credits; a mismatch means the audit trail was broken.
func (r *Repository) SumCreditAmounts(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.GetContext(ctx, &sum,
		"SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = $1", userID)
	return sum, err
}
