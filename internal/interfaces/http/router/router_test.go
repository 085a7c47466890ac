package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingReplayer struct {
	calls int
}

func (r *countingReplayer) ReplayPendingCredits(context.Context, int) (*appfinance.ReplayResult, error) {
	r.calls++
	return &appfinance.ReplayResult{Applied: r.calls}, nil
}

type routerFixture struct {
	engine   *gin.Engine
	tokens   *auth.JWTService
	replayer *countingReplayer
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()
	tokens := auth.NewJWTService(config.JWTConfig{Secret: "router-test-secret-0123456789abcdef", Issuer: "erp-ledger"})
	replayer := &countingReplayer{}
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	engine := New(Config{
		HTTP:             config.HTTPConfig{MaxBodySize: 1 << 20, IdempotencyTTL: time.Minute},
		Tokens:           tokens,
		IdempotencyStore: store,
	}, Handlers{
		Invoices: handler.NewInvoicePaymentHandler(nil, nil, nil),
		Credits:  handler.NewClientCreditHandler(nil, nil, nil),
		Expenses: handler.NewExpenseHandler(nil, nil),
		Sources:  handler.NewPaymentSourceHandler(nil, nil),
		Admin:    handler.NewAdminHandler(replayer),
		System:   handler.NewSystemHandler("test", nil),
	})
	return &routerFixture{engine: engine, tokens: tokens, replayer: replayer}
}

func (f *routerFixture) token(t *testing.T, permissions ...string) string {
	t.Helper()
	token, err := f.tokens.Sign(auth.TokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Username:    "ops",
		Permissions: permissions,
	})
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(method, path, token, idempotencyKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set(middleware.IdempotencyKeyHeader, idempotencyKey)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestNew_RegistersLedgerRoutes(t *testing.T) {
	f := newFixture(t)

	var got []string
	for _, r := range f.engine.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)

	want := []string{
		"GET /api/v1/finance/invoices/:id/payments",
		"GET /api/v1/finance/invoices/:id/verify",
		"GET /api/v1/finance/payment-sources/:id",
		"GET /api/v1/finance/payment-sources/:id/transactions",
		"GET /api/v1/finance/payment-sources/:id/verify",
		"GET /api/v1/partner/clients/:id/credit",
		"GET /api/v1/partner/clients/:id/credit/verify",
		"GET /health",
		"GET /ready",
		"POST /api/v1/admin/credits/replay",
		"POST /api/v1/finance/expenses/:id/receipt-upload",
		"POST /api/v1/finance/expenses/:id/settle",
		"POST /api/v1/finance/invoices/:id/payments",
		"POST /api/v1/finance/invoices/:id/refunds",
		"POST /api/v1/finance/payment-sources/:id/adjust",
		"POST /api/v1/partner/clients/:id/credit/apply",
		"POST /api/v1/partner/clients/:id/credit/refund",
	}
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestNew_Middleware(t *testing.T) {
	f := newFixture(t)

	t.Run("health needs no token", func(t *testing.T) {
		w := f.do(http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("api requires token", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/finance/payment-sources/"+uuid.NewString(), "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("admin requires permission", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/admin/credits/replay", f.token(t), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, f.replayer.calls)
	})

	t.Run("idempotent replay", func(t *testing.T) {
		token := f.token(t, handler.PermissionLedgerAdmin)

		first := f.do(http.MethodPost, "/api/v1/admin/credits/replay", token, "replay-1")
		require.Equal(t, http.StatusOK, first.Code)

		second := f.do(http.MethodPost, "/api/v1/admin/credits/replay", token, "replay-1")
		require.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "true", second.Header().Get(middleware.IdempotentReplayHeader))
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, 1, f.replayer.calls)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := f.do(http.MethodGet, "/nope", "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDomainGroup(t *testing.T) {
	g := NewDomainGroup("finance", "/finance")
	g.Group("invoices", "/invoices").
		GET("/:id/payments", func(c *gin.Context) {}).
		POST("/:id/payments", func(c *gin.Context) {})
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, "finance", g.Name())
	assert.Equal(t, "/finance", g.Prefix())
	assert.ElementsMatch(t, []string{
		"GET /finance/ping",
		"GET /finance/invoices/:id/payments",
		"POST /finance/invoices/:id/payments",
	}, g.Routes())

	engine := gin.New()
	g.RegisterRoutes(engine.Group("/api/v1"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/finance/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup_Middleware(t *testing.T) {
	g := NewDomainGroup("admin", "/admin").Use(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTeapot)
	})
	g.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	engine := gin.New()
	g.RegisterRoutes(&engine.RouterGroup)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
