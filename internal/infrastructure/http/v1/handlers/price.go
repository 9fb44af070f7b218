package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/price"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/dto"
)

// PriceHandler handles the tiered price list and price resolution.
type PriceHandler struct {
	*BaseHandler
	service *price.Service
}

// NewPriceHandler creates a new price handler.
func NewPriceHandler(base *BaseHandler, service *price.Service) *PriceHandler {
	return &PriceHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /prices
func (h *PriceHandler) Create(c *gin.Context) {
	var req dto.CreateRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rule, err := req.ToRule()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), rule); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// Get handles GET /prices/:id
func (h *PriceHandler) Get(c *gin.Context) {
	ruleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	rule, err := h.service.GetByID(c.Request.Context(), ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Update handles PUT /prices/:id
func (h *PriceHandler) Update(c *gin.Context) {
	ruleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.service.GetByID(c.Request.Context(), ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	updated := req.Apply(existing)
	if err := h.service.Update(c.Request.Context(), updated); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Deactivate handles POST /prices/:id/deactivate
func (h *PriceHandler) Deactivate(c *gin.Context) {
	ruleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), ruleID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "price rule deactivated")
}

// ListForItem handles GET /prices/for-item
func (h *PriceHandler) ListForItem(c *gin.Context) {
	item, ok := parseItemQuery(h.BaseHandler, c)
	if !ok {
		return
	}

	filter, ok := h.ParseListFilter(c)
	if !ok {
		return
	}

	result, err := h.service.ListForItem(c.Request.Context(), item, filter)
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

// Resolve handles GET /prices/resolve - quote the unit price for an
// item, tier and quantity without touching any order.
func (h *PriceHandler) Resolve(c *gin.Context) {
	item, ok := parseItemQuery(h.BaseHandler, c)
	if !ok {
		return
	}

	tier := customer.Tier(c.DefaultQuery("tier", string(customer.DefaultTier)))

	qty, err := types.NewWeightFromString(c.DefaultQuery("quantity", "1"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid quantity").WithDetail("field", "quantity"))
		return
	}

	at := time.Now()
	if atStr := c.Query("at"); atStr != "" {
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid timestamp").WithDetail("field", "at"))
			return
		}
		at = parsed
	}

	quote, err := h.service.ResolveAt(c.Request.Context(), item, tier, qty, at)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
