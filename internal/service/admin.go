package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
)

var (
	ErrNotAdmin    = errors.New("user is not an administrator")
	ErrInvalidCost = errors.New("cost must be a positive integer")
)

// AdminStore is the slice of the repository the admin service needs.
type AdminStore interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context, limit, offset int, search string) ([]model.User, int, error)
	SetFeatureCost(ctx context.Context, key model.FeatureKey, cost int64) error
	DeleteFeatureCost(ctx context.Context, key model.FeatureKey) error
	ListFeatureCosts(ctx context.Context) ([]model.FeatureCost, error)
	ListUsageRecords(ctx context.Context, userID int64, limit, offset int) ([]model.UsageRecord, error)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	LogAdminAction(ctx context.Context, adminID int64, action model.AdminAction, targetUserID *int64, details map[string]interface{}) error
}

type AdminService struct {
	store     AdminStore
	creditSvc *CreditService
}

func NewAdminService(store AdminStore, creditSvc *CreditService) *AdminService {
	return &AdminService{store: store, creditSvc: creditSvc}
}

// IsAdmin checks the privileged flag on the account.
func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int, search string) ([]model.User, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListUsers(ctx, limit, offset, search)
}

func (s *AdminService) GetUser(ctx context.Context, targetUserID int64) (*model.User, error) {
	return s.store.GetUser(ctx, targetUserID)
}

// GrantCredits is the admin grant path, logged to the admin action trail.
func (s *AdminService) GrantCredits(ctx context.Context, adminID, targetUserID, amount int64, description string, free bool) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	if description == "" {
		description = fmt.Sprintf("Admin grant: +%d credits", amount)
	}

	balance, err := s.creditSvc.GrantBonus(ctx, targetUserID, amount, description, free)
	if err != nil {
		return 0, err
	}

	_ = s.store.LogAdminAction(ctx, adminID, model.AdminActionGrantCredits, &targetUserID, map[string]interface{}{
		"amount":      amount,
		"free":        free,
		"new_balance": balance,
	})

	return balance, nil
}

// SetFeatureCost installs a pricing override. Non-positive costs are
// rejected here rather than stored: the resolver would ignore them anyway.
func (s *AdminService) SetFeatureCost(ctx context.Context, adminID int64, key model.FeatureKey, cost int64) error {
	if cost <= 0 {
		return ErrInvalidCost
	}
	if _, known := model.DefaultFeatureCosts[key]; !known {
		return fmt.Errorf("%w: %s", ErrUnknownFeature, key)
	}

	if err := s.store.SetFeatureCost(ctx, key, cost); err != nil {
		return err
	}

	_ = s.store.LogAdminAction(ctx, adminID, model.AdminActionSetCost, nil, map[string]interface{}{
		"feature_key": key,
		"cost":        cost,
	})
	return nil
}

func (s *AdminService) DeleteFeatureCost(ctx context.Context, adminID int64, key model.FeatureKey) error {
	if err := s.store.DeleteFeatureCost(ctx, key); err != nil {
		return err
	}
	_ = s.store.LogAdminAction(ctx, adminID, model.AdminActionDeleteCost, nil, map[string]interface{}{
		"feature_key": key,
	})
	return nil
}

// ListFeatureCosts returns the effective price table: defaults overlaid with
// any stored overrides.
func (s *AdminService) ListFeatureCosts(ctx context.Context) (map[model.FeatureKey]int64, error) {
	effective := make(map[model.FeatureKey]int64, len(model.DefaultFeatureCosts))
	for key, cost := range model.DefaultFeatureCosts {
		effective[key] = cost
	}

	overrides, err := s.store.ListFeatureCosts(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		if o.CostCredits > 0 {
			effective[o.FeatureKey] = o.CostCredits
		}
	}
	return effective, nil
}

func (s *AdminService) ListUsage(ctx context.Context, userID int64, limit, offset int) ([]model.UsageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.store.ListUsageRecords(ctx, userID, limit, offset)
}

func (s *AdminService) GetSettingInt(ctx context.Context, key string) (int64, error) {
	value, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

func (s *AdminService) SetSettingInt(ctx context.Context, adminID int64, key string, value int64) error {
	if value < 0 {
		return fmt.Errorf("setting %s must not be negative", key)
	}
	if err := s.store.SetSetting(ctx, key, strconv.FormatInt(value, 10)); err != nil {
		return err
	}
	_ = s.store.LogAdminAction(ctx, adminID, model.AdminActionUpdateSetting, nil, map[string]interface{}{
		"key":   key,
		"value": value,
	})
	return nil
}
