package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"log"
	"strings"

	"github.com/jeanyves777/flowsmartly-sub008/internal/config"
	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
	"github.com/jeanyves777/flowsmartly-sub008/internal/repository"
)

var (
	ErrEmailTaken   = repository.ErrEmailTaken
	ErrUserNotFound = repository.ErrUserNotFound
)

// UserStore is the slice of the repository the user service needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	GetSettingInt(ctx context.Context, key string) (int64, error)
}

type UserService struct {
	store     UserStore
	creditSvc *CreditService
	cfg       *config.Config
}

func NewUserService(store UserStore, creditSvc *CreditService, cfg *config.Config) *UserService {
	return &UserService{store: store, creditSvc: creditSvc, cfg: cfg}
}

// Register creates an account, seeds the welcome bonus as free credits and,
// when a valid referral code is supplied, pays the referrer's bonus. Grant
// amounts come from admin settings with config defaults as fallback.
func (s *UserService) Register(ctx context.Context, email, name, referralCode string) (*model.User, error) {
	var referredBy *int64
	if referralCode != "" {
		referrer, err := s.store.GetUserByReferralCode(ctx, referralCode)
		if err != nil {
			if !errors.Is(err, repository.ErrUserNotFound) {
				return nil, err
			}
		} else {
			referredBy = &referrer.ID
		}
	}

	code, err := generateReferralCode()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		ReferralCode: code,
		ReferredBy:   referredBy,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	welcome := s.settingOrDefault(ctx, "welcome_bonus", s.cfg.Credits.WelcomeBonus)
	if welcome > 0 {
		if balance, err := s.creditSvc.GrantWelcome(ctx, user.ID, welcome); err != nil {
			log.Printf("failed to grant welcome bonus to user %d: %v", user.ID, err)
		} else {
			user.TotalCredits = balance
			user.FreeCredits = welcome
		}
	}

	if referredBy != nil {
		bonus := s.settingOrDefault(ctx, "referral_bonus", s.cfg.Credits.ReferralBonus)
		if bonus > 0 {
			if _, err := s.creditSvc.GrantReferral(ctx, *referredBy, bonus, user.ID); err != nil {
				log.Printf("failed to grant referral bonus to user %d: %v", *referredBy, err)
			}
		}
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) settingOrDefault(ctx context.Context, key string, fallback int64) int64 {
	value, err := s.store.GetSettingInt(ctx, key)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func generateReferralCode() (string, error) {
	bytes := make([]byte, 5)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	code := base32.StdEncoding.EncodeToString(bytes)
	code = strings.TrimRight(code, "=")
	return strings.ToLower(code[:8]), nil
}
