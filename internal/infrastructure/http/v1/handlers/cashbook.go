package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/dto"
)

// CashbookHandler handles drawer periods and cash movements.
type CashbookHandler struct {
	*BaseHandler
	service *cashbook.Service
}

// NewCashbookHandler creates a new cashbook handler.
func NewCashbookHandler(base *BaseHandler, service *cashbook.Service) *CashbookHandler {
	return &CashbookHandler{
		BaseHandler: base,
		service:     service,
	}
}

// OpenDrawer handles POST /cashbook/open
func (h *CashbookHandler) OpenDrawer(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.OpenDrawerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	period, err := h.service.OpenDrawer(c.Request.Context(), principal.UserID, req.Counts, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, period)
}

// CloseDrawer handles POST /cashbook/close
func (h *CashbookHandler) CloseDrawer(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.CloseDrawerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	period, err := h.service.CloseDrawer(c.Request.Context(), principal.UserID, req.Counted, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

// CurrentDrawer handles GET /cashbook/current
func (h *CashbookHandler) CurrentDrawer(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	period, err := h.service.CurrentOpenDrawer(c.Request.Context(), principal.UserID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

// GetPeriod handles GET /cashbook/periods/:id
func (h *CashbookHandler) GetPeriod(c *gin.Context) {
	periodID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	period, err := h.service.GetPeriod(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

// ListPeriods handles GET /cashbook/periods
func (h *CashbookHandler) ListPeriods(c *gin.Context) {
	filter := domain.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	result, err := h.service.ListPeriods(c.Request.Context(), filter)
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

// UpdateNotes handles PUT /cashbook/periods/:id/notes
func (h *CashbookHandler) UpdateNotes(c *gin.Context) {
	periodID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateNotesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateNotes(c.Request.Context(), periodID, req.Notes); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "notes updated")
}

// ListMovements handles GET /cashbook/periods/:id/movements
func (h *CashbookHandler) ListMovements(c *gin.Context) {
	periodID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	movements, err := h.service.MovementsForPeriod(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": movements})
}

// DenominationStock handles GET /cashbook/periods/:id/denominations
func (h *CashbookHandler) DenominationStock(c *gin.Context) {
	periodID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	stock, err := h.service.DenominationStock(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": stock})
}

// RecordMovement handles POST /cashbook/movements
func (h *CashbookHandler) RecordMovement(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movement, err := req.ToMovement(principal.UserID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.RecordMovement(c.Request.Context(), movement); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

// AncillaryPurchase handles POST /cashbook/ancillary-purchase
func (h *CashbookHandler) AncillaryPurchase(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.AncillaryPurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	orderID, err := id.Parse(req.OrderID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid order id").WithDetail("field", "orderId"))
		return
	}

	movement, err := h.service.RegisterAncillaryPurchase(
		c.Request.Context(), principal.UserID, orderID, req.Amount, req.Counts, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}
