package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles the product catalog and its subproducts.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]
	service     *product.Service
	subproducts *product.SubproductService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service, subproducts *product.SubproductService) *ProductHandler {
	catalog := NewCatalogHandler(base, CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]{
		Service:    service.CatalogService,
		EntityName: "product",
		MapCreateDTO: func(req dto.CreateProductRequest) (*product.Product, error) {
			return req.ToProduct(), nil
		},
		MapUpdateDTO: func(req dto.UpdateProductRequest, existing *product.Product) *product.Product {
			return req.Apply(existing)
		},
	})

	return &ProductHandler{
		CatalogHandler: catalog,
		service:        service,
		subproducts:    subproducts,
	}
}

// GetByCode handles GET /products/by-code/:code
func (h *ProductHandler) GetByCode(c *gin.Context) {
	p, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Deactivate handles POST /products/by-code/:code/deactivate
func (h *ProductHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "product deactivated")
}

// Reactivate handles POST /products/by-code/:code/reactivate
func (h *ProductHandler) Reactivate(c *gin.Context) {
	if err := h.service.Reactivate(c.Request.Context(), c.Param("code")); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "product reactivated")
}

// ListByCategory handles GET /products/by-category/:category
func (h *ProductHandler) ListByCategory(c *gin.Context) {
	filter, ok := h.ParseListFilter(c)
	if !ok {
		return
	}

	result, err := h.service.FindByCategory(c.Request.Context(), product.Category(c.Param("category")), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// ListSubproducts handles GET /products/by-code/:code/subproducts
func (h *ProductHandler) ListSubproducts(c *gin.Context) {
	includeInactive := c.Query("includeInactive") == "true"

	subs, err := h.subproducts.ListByProduct(c.Request.Context(), c.Param("code"), includeInactive)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": subs})
}

// CreateSubproduct handles POST /products/by-code/:code/subproducts
func (h *ProductHandler) CreateSubproduct(c *gin.Context) {
	var req dto.CreateSubproductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sub := req.ToSubproduct(c.Param("code"))
	if err := h.subproducts.Create(c.Request.Context(), sub); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// GetSubproduct handles GET /subproducts/:id
func (h *ProductHandler) GetSubproduct(c *gin.Context) {
	subID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sub, err := h.subproducts.GetByID(c.Request.Context(), subID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// UpdateSubproduct handles PUT /subproducts/:id
func (h *ProductHandler) UpdateSubproduct(c *gin.Context) {
	subID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSubproductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.subproducts.GetByID(c.Request.Context(), subID)
	if err != nil {
		h.Error(c, err)
		return
	}

	updated := req.Apply(existing)
	if err := h.subproducts.Update(c.Request.Context(), updated); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteSubproduct handles DELETE /subproducts/:id
func (h *ProductHandler) DeleteSubproduct(c *gin.Context) {
	subID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.subproducts.Delete(c.Request.Context(), subID); err != nil {
		h.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeactivateSubproduct handles POST /subproducts/:id/deactivate
func (h *ProductHandler) DeactivateSubproduct(c *gin.Context) {
	subID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.subproducts.Deactivate(c.Request.Context(), subID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "subproduct deactivated")
}

// --- Modifications ---

// ModificationHandler handles the preparation-variant catalog.
type ModificationHandler struct {
	*CatalogHandler[*product.Modification, dto.CreateModificationRequest, dto.UpdateModificationRequest]
	service *product.ModificationService
}

// NewModificationHandler creates a new modification handler.
func NewModificationHandler(base *BaseHandler, service *product.ModificationService) *ModificationHandler {
	catalog := NewCatalogHandler(base, CatalogHandlerConfig[*product.Modification, dto.CreateModificationRequest, dto.UpdateModificationRequest]{
		Service:    service.CatalogService,
		EntityName: "modification",
		MapCreateDTO: func(req dto.CreateModificationRequest) (*product.Modification, error) {
			return req.ToModification(), nil
		},
		MapUpdateDTO: func(req dto.UpdateModificationRequest, existing *product.Modification) *product.Modification {
			return req.Apply(existing)
		},
	})

	return &ModificationHandler{
		CatalogHandler: catalog,
		service:        service,
	}
}

// Link handles POST /modifications/:id/link
func (h *ModificationHandler) Link(c *gin.Context) {
	modID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.LinkModificationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := req.Item.ToItemRef()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Link(c.Request.Context(), modID, item); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "modification linked")
}

// Unlink handles POST /modifications/:id/unlink
func (h *ModificationHandler) Unlink(c *gin.Context) {
	modID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.LinkModificationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := req.Item.ToItemRef()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Unlink(c.Request.Context(), modID, item); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "modification unlinked")
}

// ListForItem handles GET /modifications/for-item
func (h *ModificationHandler) ListForItem(c *gin.Context) {
	item, ok := parseItemQuery(h.BaseHandler, c)
	if !ok {
		return
	}

	mods, err := h.service.ListForItem(c.Request.Context(), item)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": mods})
}

// parseItemQuery reads an item reference from query parameters.
func parseItemQuery(h *BaseHandler, c *gin.Context) (product.ItemRef, bool) {
	ref := dto.ItemRefRequest{
		Kind:         c.Query("kind"),
		ProductCode:  c.Query("productCode"),
		SubproductID: c.Query("subproductId"),
	}

	item, err := ref.ToItemRef()
	if err != nil {
		h.Error(c, err)
		return product.ItemRef{}, false
	}
	return item, true
}
