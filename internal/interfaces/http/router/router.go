package router

import (
	"net/http"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Handlers groups the ledger HTTP handlers
type Handlers struct {
	Invoices *handler.InvoicePaymentHandler
	Credits  *handler.ClientCreditHandler
	Expenses *handler.ExpenseHandler
	Sources  *handler.PaymentSourceHandler
	Admin    *handler.AdminHandler
	System   *handler.SystemHandler
}

// Config carries the cross-cutting dependencies of the HTTP stack
type Config struct {
	Logger           *zap.Logger
	HTTP             config.HTTPConfig
	Tokens           middleware.TokenValidator
	IdempotencyStore shared.IdempotencyStore
	Tracing          middleware.TracingConfig
	APIVersion       string
}

// New builds the gin engine with the full middleware chain and every ledger
// route mounted under /api/{version}.
func New(cfg Config, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		cfg.Logger.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(cfg.Tracing),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"code": "ERR_NOT_FOUND", "message": "Route not found"}})
	})

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/ready", h.System.Ready)
	}

	api := engine.Group("/api/" + cfg.APIVersion)
	api.Use(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator: cfg.Tokens,
			Logger:    cfg.Logger,
		}),
		middleware.SpanAttributes(),
	)
	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore, cfg.HTTP.IdempotencyTTL, cfg.Logger))
	}

	for _, registrar := range ledgerGroups(h) {
		registrar.RegisterRoutes(api)
	}
	return engine
}

func ledgerGroups(h Handlers) []RouteRegistrar {
	var groups []RouteRegistrar

	finance := NewDomainGroup("finance", "/finance")
	if h.Invoices != nil {
		finance.Group("invoices", "/invoices").
			POST("/:id/payments", h.Invoices.RecordPayment).
			GET("/:id/payments", h.Invoices.ListPayments).
			POST("/:id/refunds", h.Invoices.RefundInvoice).
			GET("/:id/verify", h.Invoices.VerifyInvoice)
	}
	if h.Expenses != nil {
		finance.Group("expenses", "/expenses").
			POST("/:id/settle", h.Expenses.Settle).
			POST("/:id/receipt-upload", h.Expenses.ReceiptUpload)
	}
	if h.Sources != nil {
		finance.Group("payment-sources", "/payment-sources").
			GET("/:id", h.Sources.Get).
			GET("/:id/transactions", h.Sources.ListTransactions).
			POST("/:id/adjust", h.Sources.Adjust).
			GET("/:id/verify", h.Sources.Verify)
	}
	groups = append(groups, finance)

	if h.Credits != nil {
		partner := NewDomainGroup("partner", "/partner")
		partner.Group("clients", "/clients").
			GET("/:id/credit", h.Credits.GetCredit).
			POST("/:id/credit/apply", h.Credits.ApplyCredit).
			POST("/:id/credit/refund", h.Credits.RefundCredit).
			GET("/:id/credit/verify", h.Credits.VerifyCredit)
		groups = append(groups, partner)
	}

	if h.Admin != nil {
		admin := NewDomainGroup("admin", "/admin").
			Use(middleware.RequirePermission(handler.PermissionLedgerAdmin))
		admin.POST("/credits/replay", h.Admin.ReplayCredits)
		groups = append(groups, admin)
	}
	return groups
}

// DomainGroup collects the routes of one domain before they are mounted
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) add(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Routes lists the "METHOD path" pairs of this group and its subgroups,
// relative to the group's parent
func (dg *DomainGroup) Routes() []string {
	var out []string
	for _, r := range dg.routes {
		out = append(out, r.method+" "+dg.prefix+r.path)
	}
	for _, sg := range dg.subgroups {
		for _, r := range sg.Routes() {
			method, path, _ := strings.Cut(r, " ")
			out = append(out, method+" "+dg.prefix+path)
		}
	}
	return out
}
