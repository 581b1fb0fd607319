package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanyves777/flowsmartly-sub008/internal/config"
	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
	"github.com/jeanyves777/flowsmartly-sub008/internal/repository"
)

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) GetUserByReferralCode(_ context.Context, code string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ReferralCode == code {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = int64(len(f.users) + 1)
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetSettingInt(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.settings[key]
	if !ok {
		return 0, repository.ErrSettingNotFound
	}
	return value, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Credits: config.CreditsConfig{
			WelcomeBonus:  20,
			ReferralBonus: 10,
		},
	}
}

func TestRegisterSeedsWelcomeBonus(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	creditSvc := NewCreditService(store)
	svc := NewUserService(store, creditSvc, testConfig())

	user, err := svc.Register(ctx, "Anna@Example.com", "Anna", "")
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", user.Email)
	assert.Equal(t, int64(20), user.TotalCredits)
	assert.Equal(t, int64(20), user.FreeCredits)
	assert.NotEmpty(t, user.ReferralCode)

	txs, err := creditSvc.GetTransactions(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TransactionTypeWelcome, txs[0].Type)
}

func TestRegisterWelcomeBonusFromSettings(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.settings["welcome_bonus"] = 5
	creditSvc := NewCreditService(store)
	svc := NewUserService(store, creditSvc, testConfig())

	user, err := svc.Register(ctx, "bob@example.com", "Bob", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.TotalCredits)
}

func TestRegisterPaysReferrer(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	creditSvc := NewCreditService(store)
	svc := NewUserService(store, creditSvc, testConfig())

	referrer, err := svc.Register(ctx, "ref@example.com", "Ref", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "new@example.com", "New", referrer.ReferralCode)
	require.NoError(t, err)

	updated, err := store.GetUser(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), updated.TotalCredits)
	assert.Equal(t, int64(30), updated.FreeCredits)
}

func TestRegisterUnknownReferralCodeIgnored(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	creditSvc := NewCreditService(store)
	svc := NewUserService(store, creditSvc, testConfig())

	user, err := svc.Register(ctx, "solo@example.com", "Solo", "nope1234")
	require.NoError(t, err)
	assert.Nil(t, user.ReferredBy)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	creditSvc := NewCreditService(store)
	svc := NewUserService(store, creditSvc, testConfig())

	_, err := svc.Register(ctx, "dup@example.com", "One", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "dup@example.com", "Two", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}
