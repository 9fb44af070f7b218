// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// CatalogRouteHandler defines the interface for catalog handlers.
// All catalog handlers must implement these methods.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	SetDeletionMark(c *gin.Context)
}

// RegisterCatalogRoutes registers standard CRUD routes for a catalog.
// Reads are open to any authenticated user; writes sit behind the
// given guard. This eliminates the need to manually wire up routes
// for each catalog.
//
// Usage:
//
//	repo := catalog_repo.NewCustomerRepo(cfg.TxManager)
//	service := customer.NewService(repo, addressRepo, cfg.TxManager)
//	handler := handlers.NewCustomerHandler(baseHandler, service)
//	RegisterCatalogRoutes(catalogs.Group("/customers"), handler, adminOnly)
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, writeGuard gin.HandlerFunc) {
	group.GET("", handler.List)
	group.GET("/:id", handler.Get)
	group.POST("", writeGuard, handler.Create)
	group.PUT("/:id", writeGuard, handler.Update)
	group.DELETE("/:id", writeGuard, handler.Delete)
	group.POST("/:id/deletion-mark", writeGuard, handler.SetDeletionMark)
}
