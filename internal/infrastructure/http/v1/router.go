// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/settings"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/auth"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/price"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/documents/order"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/reports"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/handlers"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/middleware"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres/catalog_repo"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres/document_repo"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres/register_repo"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres/report_repo"
	"github.com/Essau-dev/PolleriaMontiel/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager provides queriers and transactions for repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTService validates access tokens
	JWTService *auth.JWTService

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Audit records catalog changes when set
	Audit *postgres.AuditService

	// Settings carries business parameters (commission, denominations)
	Settings settings.Settings
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace(cfg.Logger))
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTService))

		registerUserRoutes(protected, cfg)
		registerCatalogRoutes(protected, cfg)
		registerOrderRoutes(protected, cfg)
		registerCashbookRoutes(protected, cfg)
		registerReportRoutes(protected, cfg)
	}

	return router
}

// adminOnly guards mutating catalog and administration routes.
func adminOnly() gin.HandlerFunc {
	return middleware.RequireRole(auth.RoleAdministrador)
}

// auditHook builds a lifecycle hook that records the entity snapshot
// in the audit trail, attributed to the context principal.
func auditHook[T any](svc *postgres.AuditService, entityType string, action postgres.AuditAction, idOf func(T) id.ID) domain.Hook[T] {
	return func(ctx context.Context, e T) error {
		entry := postgres.AuditEntry{
			EntityType: entityType,
			EntityID:   idOf(e),
			Action:     action,
		}
		if principal, ok := auth.PrincipalFromContext(ctx); ok {
			entry.UserID = principal.UserID.String()
			entry.Username = principal.Username
		}
		if changes, err := json.Marshal(e); err == nil {
			entry.Changes = changes
		}
		return svc.Log(ctx, entry)
	}
}

// registerAuditHooks attaches audit recording to a catalog service.
func registerAuditHooks[T any](hooks *domain.HookRegistry[T], svc *postgres.AuditService, entityType string, idOf func(T) id.ID) {
	if svc == nil {
		return
	}
	hooks.OnAfterCreate(auditHook(svc, entityType, postgres.AuditActionCreate, idOf))
	hooks.OnAfterUpdate(auditHook(svc, entityType, postgres.AuditActionUpdate, idOf))
	hooks.OnAfterDelete(auditHook(svc, entityType, postgres.AuditActionDelete, idOf))
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required)
	public := rg.Group("/auth")
	{
		public.POST("/login", authHandler.Login)
		public.POST("/refresh", authHandler.Refresh)
	}

	// Protected auth endpoints (JWT required)
	session := rg.Group("/auth")
	session.Use(middleware.Auth(cfg.JWTService))
	{
		session.POST("/logout", authHandler.Logout)
		session.GET("/me", authHandler.Me)
		session.POST("/change-password", authHandler.ChangePassword)
	}
}

// registerUserRoutes registers user administration endpoints.
func registerUserRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	users := rg.Group("/users")
	users.Use(adminOnly())
	{
		users.POST("", authHandler.Register)
		users.GET("", authHandler.ListUsers)
		users.GET("/roles", authHandler.ListRoles)
		users.GET("/:id", authHandler.GetUser)
		users.POST("/:id/role", authHandler.ChangeRole)
		users.POST("/:id/active", authHandler.SetActive)
	}
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	catalogs := rg.Group("/catalog")
	baseHandler := handlers.NewBaseHandler()

	// --- PRODUCTS & SUBPRODUCTS ---
	{
		repo := catalog_repo.NewProductRepo(cfg.TxManager)
		subRepo := catalog_repo.NewSubproductRepo(cfg.TxManager)
		service := product.NewService(repo, cfg.TxManager)
		subService := product.NewSubproductService(subRepo, repo, cfg.TxManager)
		registerAuditHooks(service.Hooks(), cfg.Audit, "product",
			func(p *product.Product) id.ID { return p.ID })
		handler := handlers.NewProductHandler(baseHandler, service, subService)

		products := catalogs.Group("/products")
		RegisterCatalogRoutes(products, handler, adminOnly())
		products.GET("/by-code/:code", handler.GetByCode)
		products.POST("/by-code/:code/deactivate", adminOnly(), handler.Deactivate)
		products.POST("/by-code/:code/reactivate", adminOnly(), handler.Reactivate)
		products.GET("/by-category/:category", handler.ListByCategory)
		products.GET("/by-code/:code/subproducts", handler.ListSubproducts)
		products.POST("/by-code/:code/subproducts", adminOnly(), handler.CreateSubproduct)

		subproducts := catalogs.Group("/subproducts")
		subproducts.GET("/:id", handler.GetSubproduct)
		subproducts.PUT("/:id", adminOnly(), handler.UpdateSubproduct)
		subproducts.DELETE("/:id", adminOnly(), handler.DeleteSubproduct)
		subproducts.POST("/:id/deactivate", adminOnly(), handler.DeactivateSubproduct)
	}

	// --- MODIFICATIONS ---
	{
		repo := catalog_repo.NewModificationRepo(cfg.TxManager)
		service := product.NewModificationService(repo, cfg.TxManager)
		registerAuditHooks(service.Hooks(), cfg.Audit, "modification",
			func(m *product.Modification) id.ID { return m.ID })
		handler := handlers.NewModificationHandler(baseHandler, service)

		modifications := catalogs.Group("/modifications")
		RegisterCatalogRoutes(modifications, handler, adminOnly())
		modifications.GET("/for-item", handler.ListForItem)
		modifications.POST("/:id/link", adminOnly(), handler.Link)
		modifications.POST("/:id/unlink", adminOnly(), handler.Unlink)
	}

	// --- CUSTOMERS & ADDRESSES ---
	{
		repo := catalog_repo.NewCustomerRepo(cfg.TxManager)
		addressRepo := catalog_repo.NewAddressRepo(cfg.TxManager)
		service := customer.NewService(repo, addressRepo, cfg.TxManager)
		registerAuditHooks(service.Hooks(), cfg.Audit, "customer",
			func(c *customer.Customer) id.ID { return c.ID })
		handler := handlers.NewCustomerHandler(baseHandler, service)

		customers := catalogs.Group("/customers")
		RegisterCatalogRoutes(customers, handler, adminOnly())
		customers.GET("/tiers", handler.ListTiers)
		customers.GET("/by-tier/:tier", handler.ListByTier)
		customers.GET("/:id/addresses", handler.ListAddresses)
		customers.POST("/:id/addresses", handler.AddAddress)

		addresses := catalogs.Group("/addresses")
		addresses.POST("/:id/deactivate", handler.DeactivateAddress)
	}

	// --- PRICE RULES ---
	{
		repo := catalog_repo.NewPriceRuleRepo(cfg.TxManager)
		service := price.NewService(repo, cfg.TxManager)
		handler := handlers.NewPriceHandler(baseHandler, service)

		prices := catalogs.Group("/prices")
		prices.GET("/resolve", handler.Resolve)
		prices.GET("/for-item", handler.ListForItem)
		prices.GET("/:id", handler.Get)
		prices.POST("", adminOnly(), handler.Create)
		prices.PUT("/:id", adminOnly(), handler.Update)
		prices.POST("/:id/deactivate", adminOnly(), handler.Deactivate)
	}
}

// registerOrderRoutes registers the sales order document endpoints.
func registerOrderRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	subRepo := catalog_repo.NewSubproductRepo(cfg.TxManager)
	modRepo := catalog_repo.NewModificationRepo(cfg.TxManager)
	catalog := order.NewProductCatalog(
		product.NewService(productRepo, cfg.TxManager),
		product.NewSubproductService(subRepo, productRepo, cfg.TxManager),
		product.NewModificationService(modRepo, cfg.TxManager),
	)

	customerRepo := catalog_repo.NewCustomerRepo(cfg.TxManager)
	addressRepo := catalog_repo.NewAddressRepo(cfg.TxManager)
	tiers := customer.NewService(customerRepo, addressRepo, cfg.TxManager)

	priceRepo := catalog_repo.NewPriceRuleRepo(cfg.TxManager)
	prices := price.NewService(priceRepo, cfg.TxManager)

	cashbookRepo := register_repo.NewCashbookRepo(cfg.TxManager)
	ledger := cashbook.NewService(cashbookRepo, cfg.TxManager, cfg.Settings)

	repo := document_repo.NewOrderRepo(cfg.TxManager)
	service := order.NewService(repo, prices, catalog, tiers, ledger, cfg.TxManager, cfg.Settings)
	handler := handlers.NewOrderHandler(baseHandler, service)

	orders := rg.Group("/orders")
	{
		orders.GET("", handler.List)
		orders.POST("", handler.Create)
		orders.GET("/:id", handler.Get)

		orders.POST("/:id/lines", handler.AddLine)
		orders.PUT("/:id/lines/:lineId", handler.UpdateLine)
		orders.DELETE("/:id/lines/:lineId", handler.RemoveLine)

		orders.POST("/:id/ancillaries", handler.AddAncillary)
		orders.PUT("/:id/ancillaries/:lineId", handler.UpdateAncillary)
		orders.DELETE("/:id/ancillaries/:lineId", handler.RemoveAncillary)

		orders.POST("/:id/adjustments", handler.SetAdjustments)
		orders.POST("/:id/status", handler.UpdateStatus)
		orders.POST("/:id/courier", handler.AssignCourier)
		orders.POST("/:id/payment", handler.ProcessPayment)
		orders.POST("/:id/settle-delivery", handler.SettleDelivery)
	}
}

// registerCashbookRoutes registers drawer period and cash movement endpoints.
func registerCashbookRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	repo := register_repo.NewCashbookRepo(cfg.TxManager)
	service := cashbook.NewService(repo, cfg.TxManager, cfg.Settings)
	handler := handlers.NewCashbookHandler(baseHandler, service)

	cb := rg.Group("/cashbook")
	{
		cb.POST("/open", handler.OpenDrawer)
		cb.POST("/close", handler.CloseDrawer)
		cb.GET("/current", handler.CurrentDrawer)

		cb.GET("/periods", handler.ListPeriods)
		cb.GET("/periods/:id", handler.GetPeriod)
		cb.PUT("/periods/:id/notes", handler.UpdateNotes)
		cb.GET("/periods/:id/movements", handler.ListMovements)
		cb.GET("/periods/:id/denominations", handler.DenominationStock)

		cb.POST("/movements", handler.RecordMovement)
		cb.POST("/ancillary-purchase", handler.AncillaryPurchase)
	}
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	repo := report_repo.NewReportRepo(cfg.TxManager)
	service := reports.NewService(repo)
	handler := handlers.NewReportsHandler(baseHandler, service)

	reportsGroup := rg.Group("/reports")
	reportsGroup.Use(adminOnly())
	{
		reportsGroup.GET("/sales-summary", handler.SalesSummary)
		reportsGroup.GET("/top-items", handler.TopItems)
		reportsGroup.GET("/drawer-variances", handler.DrawerVariances)
	}
}
