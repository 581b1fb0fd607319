package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
	"github.com/jeanyves777/flowsmartly-sub008/internal/repository"
)

var (
	ErrUnknownFeature        = errors.New("unknown feature key")
	ErrInsufficientCredits   = repository.ErrInsufficientCredits
	ErrFreeCreditsRestricted = repository.ErrFreeCreditsRestricted
	ErrLedgerMismatch        = errors.New("ledger sum does not match balance")
)

type DenyReason string

const (
	DenyInsufficientCredits   DenyReason = "INSUFFICIENT_CREDITS"
	DenyFreeCreditsRestricted DenyReason = "FREE_CREDITS_RESTRICTED"
)

// Decision is the outcome of an eligibility check. Shortfall is only set for
// plain insufficiency, so clients can tell the user how many credits to buy.
type Decision struct {
	Allowed   bool
	Reason    DenyReason
	Shortfall int64
}

// CreditStore is the slice of the repository the credit service needs.
type CreditStore interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetFeatureCost(ctx context.Context, key model.FeatureKey) (int64, error)
	DebitCredits(ctx context.Context, userID, cost int64, description string, refType, refID *string) (int64, error)
	GrantCredits(ctx context.Context, userID, amount int64, txType model.TransactionType, description string, refType, refID *string) (int64, error)
	ListCreditTransactions(ctx context.Context, userID int64, limit, offset int) ([]model.CreditTransaction, error)
	SumCreditAmounts(ctx context.Context, userID int64) (int64, error)
	InsertUsageRecord(ctx context.Context, record *model.UsageRecord) error
}

type CreditService struct {
	store CreditStore
}

func NewCreditService(store CreditStore) *CreditService {
	return &CreditService{store: store}
}

// ResolveCost returns the current price for a feature. Admin overrides win;
// a missing or misconfigured (non-positive) override falls back to the
// compiled-in default. Read-only and safe to call concurrently.
func (s *CreditService) ResolveCost(ctx context.Context, key model.FeatureKey) (int64, error) {
	defaultCost, known := model.DefaultFeatureCosts[key]
	if !known {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFeature, key)
	}

	override, err := s.store.GetFeatureCost(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrFeatureCostNotFound) {
			return defaultCost, nil
		}
		return 0, err
	}
	if override <= 0 {
		return defaultCost, nil
	}
	return override, nil
}

// CheckEligibility decides whether an account may be billed the given cost.
// Privileged callers always pass and are never debited. For everyone else
// the cost must be covered by the purchased portion of the balance: a user
// whose total covers the cost only by dipping into free credits is denied
// with FREE_CREDITS_RESTRICTED rather than plain insufficiency, because free
// credits are reserved for email marketing.
func (s *CreditService) CheckEligibility(user *model.User, cost int64, isPrivileged bool) Decision {
	if isPrivileged {
		return Decision{Allowed: true}
	}

	purchased := user.PurchasedCredits()
	if purchased >= cost {
		return Decision{Allowed: true}
	}

	if user.FreeCredits > 0 && user.TotalCredits >= cost {
		return Decision{Allowed: false, Reason: DenyFreeCreditsRestricted}
	}

	return Decision{
		Allowed:   false,
		Reason:    DenyInsufficientCredits,
		Shortfall: cost - purchased,
	}
}

// Charge debits the account and records the usage after the paid work has
// already succeeded. Eligibility is re-validated inside the store's
// transaction; callers must treat the returned sentinel errors as a denial,
// not a server fault. Never call this when the downstream work failed.
func (s *CreditService) Charge(ctx context.Context, userID, cost int64, key model.FeatureKey, refType, refID string) (int64, error) {
	description := fmt.Sprintf("%s: -%d credits", key, cost)
	newBalance, err := s.store.DebitCredits(ctx, userID, cost, description, &refType, &refID)
	if err != nil {
		return newBalance, err
	}

	if err := s.recordUsage(ctx, userID, key, cost, refType, refID); err != nil {
		// The ledger entry is the billing source of truth; a missing
		// observability row is logged, not bubbled up.
		log.Printf("failed to record usage for user %d feature %s: %v", userID, key, err)
	}

	return newBalance, nil
}

// RecordAdminUsage writes the zero-cost audit row for privileged calls that
// bypass billing. No ledger entry is created.
func (s *CreditService) RecordAdminUsage(ctx context.Context, userID int64, key model.FeatureKey, refType, refID string) error {
	return s.recordUsage(ctx, userID, key, 0, refType, refID)
}

func (s *CreditService) recordUsage(ctx context.Context, userID int64, key model.FeatureKey, cost int64, refType, refID string) error {
	record := &model.UsageRecord{
		UserID:     userID,
		FeatureKey: key,
		Cost:       cost,
	}
	if refType != "" {
		record.ReferenceType = &refType
	}
	if refID != "" {
		record.ReferenceID = &refID
	}
	return s.store.InsertUsageRecord(ctx, record)
}

// GrantPurchase credits a completed credit-pack purchase. Purchases never
// touch free_credits.
func (s *CreditService) GrantPurchase(ctx context.Context, userID, amount int64, purchaseID string) (int64, error) {
	description := fmt.Sprintf("Credit pack purchase: +%d credits", amount)
	refType := "purchase"
	return s.store.GrantCredits(ctx, userID, amount, model.TransactionTypePurchase, description, &refType, &purchaseID)
}

// GrantWelcome seeds a new account's signup bonus as free credits.
func (s *CreditService) GrantWelcome(ctx context.Context, userID, amount int64) (int64, error) {
	description := fmt.Sprintf("Welcome bonus: +%d credits", amount)
	return s.store.GrantCredits(ctx, userID, amount, model.TransactionTypeWelcome, description, nil, nil)
}

// GrantReferral credits a referrer with free credits for an activated signup.
func (s *CreditService) GrantReferral(ctx context.Context, userID, amount, referredID int64) (int64, error) {
	description := fmt.Sprintf("Referral bonus: +%d credits", amount)
	refType := "referral"
	refID := fmt.Sprintf("%d", referredID)
	return s.store.GrantCredits(ctx, userID, amount, model.TransactionTypeReferral, description, &refType, &refID)
}

// GrantBonus is the admin grant path; free controls whether the amount also
// raises the restricted free-credit portion.
func (s *CreditService) GrantBonus(ctx context.Context, userID, amount int64, description string, free bool) (int64, error) {
	txType := model.TransactionTypeAdminAdjustment
	if free {
		txType = model.TransactionTypeBonus
	}
	return s.store.GrantCredits(ctx, userID, amount, txType, description, nil, nil)
}

// GrantRefund returns previously spent credits to the purchased portion.
func (s *CreditService) GrantRefund(ctx context.Context, userID, amount int64, reference string) (int64, error) {
	description := fmt.Sprintf("Refund: +%d credits", amount)
	refType := "refund"
	return s.store.GrantCredits(ctx, userID, amount, model.TransactionTypeRefund, description, &refType, &reference)
}

func (s *CreditService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *CreditService) GetTransactions(ctx context.Context, userID int64, limit, offset int) ([]model.CreditTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.store.ListCreditTransactions(ctx, userID, limit, offset)
}

// VerifyLedger replays the account's ledger and checks it reproduces the
// live balance.
func (s *CreditService) VerifyLedger(ctx context.Context, userID int64) (int64, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	sum, err := s.store.SumCreditAmounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	if sum != user.TotalCredits {
		return sum, fmt.Errorf("%w: ledger sum %d, balance %d", ErrLedgerMismatch, sum, user.TotalCredits)
	}
	return sum, nil
}
