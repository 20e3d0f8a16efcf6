package accessservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ventures-access/internal/lib/jwt"
	"github.com/magabrotheeeer/ventures-access/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	accesssvc "github.com/magabrotheeeer/ventures-access/internal/services/access"
	authservice "github.com/magabrotheeeer/ventures-access/internal/services/auth"
	"github.com/magabrotheeeer/ventures-access/internal/services/nonce"
	"github.com/magabrotheeeer/ventures-access/internal/services/payment"
	subservice "github.com/magabrotheeeer/ventures-access/internal/services/subscription"
	"github.com/magabrotheeeer/ventures-access/internal/services/tier"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
)

// memoryUsers хранит пользователей в памяти с той же семантикой, что и repository.Storage.
type memoryUsers struct {
	mu       sync.Mutex
	byUID    map[string]models.User
	byWallet map[string]string
	seq      int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byUID: map[string]models.User{}, byWallet: map[string]string{}}
}

func (m *memoryUsers) GetUser(_ context.Context, userUID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[userUID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memoryUsers) GetOrCreateByWallet(_ context.Context, walletAddress string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uid, ok := m.byWallet[walletAddress]; ok {
		u := m.byUID[uid]
		return &u, nil
	}
	m.seq++
	u := models.User{UID: fmt.Sprintf("uid-%d", m.seq), WalletAddress: walletAddress, CreatedAt: time.Now()}
	m.byUID[u.UID] = u
	m.byWallet[walletAddress] = u.UID
	return &u, nil
}

func (m *memoryUsers) UpdateUser(_ context.Context, userUID string, mutate func(u *models.User) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[userUID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if err := mutate(&u); err != nil {
		return nil, err
	}
	m.byUID[userUID] = u
	return &u, nil
}

type fixedOracle struct{ price float64 }

func (o fixedOracle) ETHPriceUSD(context.Context) (float64, bool) { return o.price, o.price > 0 }

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, limiter *middlewarectx.RateLimiter) http.Handler {
	t.Helper()
	log := newNoopLogger()
	users := newMemoryUsers()
	resolver := tier.NewResolver(payment.NewAggregator(nil, nil, log), log)
	projector := accesssvc.NewProjector(resolver, log)
	jwtMaker := jwt.NewJWTMaker("test-secret", time.Hour)

	router := chi.NewRouter()
	RegisterRoutes(router, log, Deps{
		Auth:          authservice.NewAuthService(nonce.NewMemoryStore(log), users, jwtMaker, projector, time.Minute, log),
		Subscriptions: subservice.NewSubscriptionService(users, resolver, projector, rabbitmq.NopPublisher{Log: log}, log),
		Users:         users,
		Access:        projector,
		Tokens:        jwtMaker,
		Oracle:        fixedOracle{price: 3000},
		NonceLimiter:  limiter,
	})
	return router
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func login(t *testing.T, h http.Handler) (token string, access models.AccessDescriptor) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	code, env := do(t, h, http.MethodPost, "/api/v1/wallet/nonce", "", map[string]string{"address": address})
	require.Equal(t, http.StatusOK, code, env.Error)
	var challenge struct {
		Nonce   string `json:"nonce"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &challenge))

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Message)), key)
	require.NoError(t, err)
	sig[64] += 27

	code, env = do(t, h, http.MethodPost, "/api/v1/wallet/verify", "", map[string]string{
		"address":   address,
		"nonce":     challenge.Nonce,
		"signature": hexutil.Encode(sig),
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var result struct {
		Token  string                  `json:"token"`
		Access models.AccessDescriptor `json:"access"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.Token)
	return result.Token, result.Access
}

func TestRoutes_ProspectTrialUpgradeFlow(t *testing.T) {
	h := newTestRouter(t, middlewarectx.NewRateLimiter(100, 100))

	token, access := login(t, h)
	assert.Equal(t, "prospect", string(access.Tier))
	assert.False(t, access.IsTrial)

	code, _ := do(t, h, http.MethodGet, "/api/v1/support/quota", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := do(t, h, http.MethodGet, "/api/v1/access/dashboards/cowork", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"dashboard":"cowork","allowed":false}`, string(env.Data))

	code, env = do(t, h, http.MethodPost, "/api/v1/access/trial", token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var trialResp struct {
		Access models.AccessDescriptor `json:"access"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &trialResp))
	assert.True(t, trialResp.Access.IsTrial)
	require.NotNil(t, trialResp.Access.MaxSupportRequests)
	assert.Equal(t, 15, *trialResp.Access.MaxSupportRequests)

	code, _ = do(t, h, http.MethodPost, "/api/v1/access/trial", token, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = do(t, h, http.MethodGet, "/api/v1/access/dashboards/cowork", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"dashboard":"cowork","allowed":true}`, string(env.Data))

	code, env = do(t, h, http.MethodGet, "/api/v1/support/quota", token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.JSONEq(t, `{"max_support_requests":15}`, string(env.Data))

	code, _ = do(t, h, http.MethodPost, "/api/v1/access/upgrade", token, map[string]any{"tier": "client_pro", "payment_amount": 500})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, h, http.MethodPost, "/api/v1/access/upgrade", token, map[string]any{"tier": "client_starter", "payment_amount": 100})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = do(t, h, http.MethodPost, "/api/v1/access/upgrade", token, map[string]any{"tier": "client_starter", "payment_amount": 222})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = do(t, h, http.MethodGet, "/api/v1/access", token, nil)
	require.Equal(t, http.StatusOK, code)
	var current models.AccessDescriptor
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, "client_starter", string(current.Tier))
	assert.True(t, current.IsPaying)
	assert.False(t, current.IsTrial)

	code, env = do(t, h, http.MethodGet, "/api/v1/access/upgrade-options", token, nil)
	require.Equal(t, http.StatusOK, code)
	var offers []models.TierOffer
	require.NoError(t, json.Unmarshal(env.Data, &offers))
	require.Len(t, offers, 2)
	assert.Equal(t, "client_pro", string(offers[0].Tier))
}

func TestRoutes_RequireJWT(t *testing.T) {
	h := newTestRouter(t, middlewarectx.NewRateLimiter(100, 100))

	for _, path := range []string{"/api/v1/access", "/api/v1/access/upgrade-options", "/api/v1/support/quota"} {
		code, env := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Equal(t, "Error", env.Status)
	}

	code, _ := do(t, h, http.MethodGet, "/api/v1/access", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoutes_NonceRateLimited(t *testing.T) {
	h := newTestRouter(t, middlewarectx.NewRateLimiter(0.001, 2))
	body := map[string]string{"address": "0x52908400098527886E0F7030069857D2E4169EE7"}

	for range 2 {
		code, _ := do(t, h, http.MethodPost, "/api/v1/wallet/nonce", "", body)
		assert.Equal(t, http.StatusOK, code)
	}
	code, env := do(t, h, http.MethodPost, "/api/v1/wallet/nonce", "", body)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "too many requests", env.Error)
}

func TestRoutes_NonceRateLimitIgnoresForwardedHeaders(t *testing.T) {
	h := newTestRouter(t, middlewarectx.NewRateLimiter(0.0001, 1))
	raw, err := json.Marshal(map[string]string{"address": "0x52908400098527886E0F7030069857D2E4169EE7"})
	require.NoError(t, err)

	allowed := 0
	for i := range 20 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/nonce", bytes.NewReader(raw))
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	h := newTestRouter(t, middlewarectx.NewRateLimiter(100, 100))

	code, env := do(t, h, http.MethodGet, "/api/v1/eth/quote?usd=300", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"usd":300,"eth_price_usd":3000,"eth_amount":0.1}`, string(env.Data))

	code, _ = do(t, h, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
