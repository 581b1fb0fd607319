package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanyves777/flowsmartly-sub008/internal/config"
	"github.com/jeanyves777/flowsmartly-sub008/internal/middleware"
	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
	"github.com/jeanyves777/flowsmartly-sub008/internal/provider"
	"github.com/jeanyves777/flowsmartly-sub008/internal/repository"
	"github.com/jeanyves777/flowsmartly-sub008/internal/service"
)

// memStore backs the services in handler tests with the same lock-and-recheck
// semantics the SQL store provides.
type memStore struct {
	mu    sync.Mutex
	users map[int64]*model.User
	txs   []model.CreditTransaction
	usage []model.UsageRecord
	costs map[model.FeatureKey]int64
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]*model.User),
		costs: make(map[model.FeatureKey]int64),
	}
}

func (m *memStore) GetUser(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) GetFeatureCost(_ context.Context, key model.FeatureKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cost, ok := m.costs[key]
	if !ok {
		return 0, repository.ErrFeatureCostNotFound
	}
	return cost, nil
}

func (m *memStore) DebitCredits(_ context.Context, userID, cost int64, description string, refType, refID *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}

	purchased := user.TotalCredits - user.FreeCredits
	if purchased < 0 {
		purchased = 0
	}
	if purchased < cost {
		if user.FreeCredits > 0 && user.TotalCredits >= cost {
			return user.TotalCredits, repository.ErrFreeCreditsRestricted
		}
		return user.TotalCredits, repository.ErrInsufficientCredits
	}

	user.TotalCredits -= cost
	m.txs = append(m.txs, model.CreditTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         model.TransactionTypeUsage,
		Amount:       -cost,
		BalanceAfter: user.TotalCredits,
	})
	return user.TotalCredits, nil
}

func (m *memStore) GrantCredits(_ context.Context, userID, amount int64, txType model.TransactionType, description string, refType, refID *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	user.TotalCredits += amount
	if txType.GrantsFreeCredits() {
		user.FreeCredits += amount
	}
	m.txs = append(m.txs, model.CreditTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: user.TotalCredits,
	})
	return user.TotalCredits, nil
}

func (m *memStore) ListCreditTransactions(_ context.Context, userID int64, limit, offset int) ([]model.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CreditTransaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memStore) SumCreditAmounts(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, tx := range m.txs {
		if tx.UserID == userID {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (m *memStore) InsertUsageRecord(_ context.Context, record *model.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = uuid.New()
	m.usage = append(m.usage, *record)
	return nil
}

func (m *memStore) ledgerCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, tx := range m.txs {
		if tx.UserID == userID {
			count++
		}
	}
	return count
}

// fakeProvider counts downstream calls and can be told to fail.
type fakeProvider struct {
	mu         sync.Mutex
	imageCalls int
	voiceCalls int
	smsCalls   int
	fail       bool
}

func (p *fakeProvider) GenerateImage(_ context.Context, _ provider.GenerateImageRequest) (*provider.GenerateImageResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("boom")
	}
	p.imageCalls++
	return &provider.GenerateImageResponse{Image: "aW1hZ2U=", GenerationTime: 1.2}, nil
}

func (p *fakeProvider) GenerateVoiceover(_ context.Context, _ provider.VoiceoverRequest) (*provider.VoiceoverResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("boom")
	}
	p.voiceCalls++
	return &provider.VoiceoverResponse{Audio: "YXVkaW8=", GenerationTime: 0.4}, nil
}

func (p *fakeProvider) SendSMS(_ context.Context, req provider.SMSRequest) (*provider.SMSResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("boom")
	}
	p.smsCalls++
	return &provider.SMSResponse{Accepted: len(req.Recipients)}, nil
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Shortfall int64  `json:"shortfall"`
	} `json:"error"`
}

func setupTestApp(t *testing.T) (*fiber.App, *memStore, *fakeProvider, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			TokenSecret: "test-secret",
			TokenTTL:    time.Hour,
		},
		Credits: config.CreditsConfig{
			WelcomeBonus:        20,
			ReferralBonus:       10,
			LowBalanceThreshold: 0,
		},
		Provider: config.ProviderConfig{
			BillingSecret: "billing-secret",
		},
	}

	store := newMemStore()
	prov := &fakeProvider{}

	creditSvc := service.NewCreditService(store)
	adminSvc := service.NewAdminService(adminStoreStub{store}, creditSvc)
	h := New(cfg, nil, creditSvc, adminSvc, prov, nil)

	app := fiber.New()
	app.Post("/webhook/purchase", h.PurchaseWebhook)
	api := app.Group("/api", middleware.Auth(cfg))
	api.Get("/credits", h.GetCredits)
	api.Get("/credits/transactions", h.GetCreditTransactions)
	api.Post("/creative/design", h.CreateDesign)
	api.Post("/creative/voiceover", h.CreateVoiceover)
	api.Post("/automation/sms", h.SendCampaign)

	return app, store, prov, cfg
}

// adminStoreStub adapts memStore to the admin service for routes that only
// need user lookup.
type adminStoreStub struct{ *memStore }

func (adminStoreStub) ListUsers(_ context.Context, _, _ int, _ string) ([]model.User, int, error) {
	return nil, 0, nil
}
func (adminStoreStub) SetFeatureCost(_ context.Context, _ model.FeatureKey, _ int64) error {
	return nil
}
func (adminStoreStub) DeleteFeatureCost(_ context.Context, _ model.FeatureKey) error { return nil }
func (adminStoreStub) ListFeatureCosts(_ context.Context) ([]model.FeatureCost, error) {
	return nil, nil
}
func (adminStoreStub) ListUsageRecords(_ context.Context, _ int64, _, _ int) ([]model.UsageRecord, error) {
	return nil, nil
}
func (adminStoreStub) GetSetting(_ context.Context, _ string) (string, error) {
	return "", repository.ErrSettingNotFound
}
func (adminStoreStub) SetSetting(_ context.Context, _, _ string) error { return nil }
func (adminStoreStub) LogAdminAction(_ context.Context, _ int64, _ model.AdminAction, _ *int64, _ map[string]interface{}) error {
	return nil
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func token(cfg *config.Config, userID int64) string {
	return middleware.IssueToken(userID, cfg.Server.TokenTTL, cfg.Server.TokenSecret)
}

func TestCreateDesignRequiresAuth(t *testing.T) {
	app, _, _, _ := setupTestApp(t)

	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/design", "", CreateDesignRequest{Prompt: "a cat", ImageCount: 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Unauthorized", env.Error.Message)
}

func TestCreateDesignValidation(t *testing.T) {
	app, store, _, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 100}

	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/design", token(cfg, 1), CreateDesignRequest{Prompt: "", ImageCount: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, env = doJSON(t, app, http.MethodPost, "/api/creative/design", token(cfg, 1), CreateDesignRequest{Prompt: "a cat", ImageCount: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestCreateDesignChargesOnSuccess(t *testing.T) {
	app, store, prov, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 20, FreeCredits: 2}

	// Cost: AI_VISUAL_DESIGN (5) + 2 images x AI_IMAGE (2) = 9.
	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/design", token(cfg, 1), CreateDesignRequest{Prompt: "a cat", ImageCount: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	assert.Equal(t, float64(9), env.Data["credits_used"])
	assert.Equal(t, float64(11), env.Data["credits_remaining"])
	assert.Equal(t, 2, prov.imageCalls)
	assert.Equal(t, 1, store.ledgerCount(1))

	user, _ := store.GetUser(context.Background(), 1)
	assert.Equal(t, int64(11), user.TotalCredits)
	assert.Equal(t, int64(2), user.FreeCredits)
}

func TestCreateDesignFreeCreditsRestricted(t *testing.T) {
	app, store, prov, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 10, FreeCredits: 10}

	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/design", token(cfg, 1), CreateDesignRequest{Prompt: "a cat", ImageCount: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FREE_CREDITS_RESTRICTED", env.Error.Code)

	// Denied before any paid work or billing.
	assert.Equal(t, 0, prov.imageCalls)
	assert.Equal(t, 0, store.ledgerCount(1))
}

func TestCreateDesignInsufficientCredits(t *testing.T) {
	app, store, prov, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 3, FreeCredits: 0}

	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/design", token(cfg, 1), CreateDesignRequest{Prompt: "a cat", ImageCount: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_CREDITS", env.Error.Code)
	assert.Equal(t, int64(4), env.Error.Shortfall)
	assert.Equal(t, 0, prov.imageCalls)
}

func TestCreateDesignProviderFailureNotBilled(t *testing.T) {
	app, store, prov, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 20}
	prov.fail = true

	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/design", token(cfg, 1), CreateDesignRequest{Prompt: "a cat", ImageCount: 1})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "PROVIDER_ERROR", env.Error.Code)

	user, _ := store.GetUser(context.Background(), 1)
	assert.Equal(t, int64(20), user.TotalCredits)
	assert.Equal(t, 0, store.ledgerCount(1))
}

func TestCreateDesignAdminBypass(t *testing.T) {
	app, store, prov, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 0, FreeCredits: 0, IsAdmin: true}

	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/design", token(cfg, 1), CreateDesignRequest{Prompt: "a cat", ImageCount: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), env.Data["credits_used"])
	assert.Equal(t, 1, prov.imageCalls)
	assert.Equal(t, 0, store.ledgerCount(1))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.usage, 1)
	assert.Equal(t, int64(0), store.usage[0].Cost)
}

func TestCreateVoiceoverUsesOverridePrice(t *testing.T) {
	app, store, _, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 20}
	store.costs[model.FeatureVoiceClone] = 4

	resp, env := doJSON(t, app, http.MethodPost, "/api/creative/voiceover", token(cfg, 1), CreateVoiceoverRequest{Text: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), env.Data["credits_used"])
	assert.Equal(t, float64(16), env.Data["credits_remaining"])
}

func TestSendCampaignCompositeCost(t *testing.T) {
	app, store, prov, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 20}

	// Cost: AI_AUTO (3) + 3 recipients x SMS_SEND (1) = 6.
	resp, env := doJSON(t, app, http.MethodPost, "/api/automation/sms", token(cfg, 1), SendCampaignRequest{
		Message:    "sale!",
		Recipients: []string{"+123", "+456", "+789"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(6), env.Data["credits_used"])
	assert.Equal(t, float64(14), env.Data["credits_remaining"])
	assert.Equal(t, float64(3), env.Data["accepted"])
	assert.Equal(t, 1, prov.smsCalls)
}

func TestGetCredits(t *testing.T) {
	app, store, _, cfg := setupTestApp(t)
	store.users[1] = &model.User{ID: 1, TotalCredits: 10, FreeCredits: 4}

	resp, env := doJSON(t, app, http.MethodGet, "/api/credits", token(cfg, 1), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), env.Data["total_credits"])
	assert.Equal(t, float64(4), env.Data["free_credits"])
	assert.Equal(t, float64(6), env.Data["purchased_credits"])
}
