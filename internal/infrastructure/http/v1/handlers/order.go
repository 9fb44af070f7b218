package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/documents/order"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles the sales order document.
type OrderHandler struct {
	*BaseHandler
	service *order.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *order.Service) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToCreateInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	o, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	filter, ok := h.parseListFilter(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
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

func (h *OrderHandler) parseListFilter(c *gin.Context) (order.ListFilter, bool) {
	filter := order.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.Query("orderBy"),
		},
	}

	if s := c.Query("status"); s != "" {
		status := order.Status(s)
		if !order.ValidStatus(status) {
			h.Error(c, apperror.NewValidation("invalid status").WithDetail("value", s))
			return filter, false
		}
		filter.Status = &status
	}
	if s := c.Query("channel"); s != "" {
		channel := order.Channel(s)
		if !order.ValidChannel(channel) {
			h.Error(c, apperror.NewValidation("invalid channel").WithDetail("value", s))
			return filter, false
		}
		filter.Channel = &channel
	}
	if s := c.Query("customerId"); s != "" {
		customerID, err := id.Parse(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid customer id"))
			return filter, false
		}
		filter.CustomerID = &customerID
	}
	if s := c.Query("courierId"); s != "" {
		courierID, err := id.Parse(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid courier id"))
			return filter, false
		}
		filter.CourierID = &courierID
	}
	if s := c.Query("dateFrom"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom").WithDetail("value", s))
			return filter, false
		}
		filter.DateFrom = &t
	}
	if s := c.Query("dateTo"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo").WithDetail("value", s))
			return filter, false
		}
		filter.DateTo = &t
	}

	return filter, true
}

// --- Catalog lines ---

// AddLine handles POST /orders/:id/lines
func (h *OrderHandler) AddLine(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CatalogLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToLineInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.AddCatalogLine(c.Request.Context(), orderID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateLine handles PUT /orders/:id/lines/:lineId
func (h *OrderHandler) UpdateLine(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParseID(c, "lineId")
	if !ok {
		return
	}

	var req dto.CatalogLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToLineInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.UpdateCatalogLine(c.Request.Context(), orderID, lineID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// RemoveLine handles DELETE /orders/:id/lines/:lineId
func (h *OrderHandler) RemoveLine(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParseID(c, "lineId")
	if !ok {
		return
	}

	o, err := h.service.RemoveCatalogLine(c.Request.Context(), orderID, lineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// --- Ancillary lines ---

// AddAncillary handles POST /orders/:id/ancillaries
func (h *OrderHandler) AddAncillary(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AncillaryLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.AddAncillaryLine(c.Request.Context(), orderID, req.ToAncillaryInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateAncillary handles PUT /orders/:id/ancillaries/:lineId
func (h *OrderHandler) UpdateAncillary(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParseID(c, "lineId")
	if !ok {
		return
	}

	var req dto.AncillaryLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.UpdateAncillaryLine(c.Request.Context(), orderID, lineID, req.ToAncillaryInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// RemoveAncillary handles DELETE /orders/:id/ancillaries/:lineId
func (h *OrderHandler) RemoveAncillary(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParseID(c, "lineId")
	if !ok {
		return
	}

	o, err := h.service.RemoveAncillaryLine(c.Request.Context(), orderID, lineID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// --- Order lifecycle ---

// SetAdjustments handles POST /orders/:id/adjustments
func (h *OrderHandler) SetAdjustments(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustmentsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.SetAdjustments(c.Request.Context(), orderID, req.Discount, req.ShippingCost)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateStatus handles POST /orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.UpdateStatus(c.Request.Context(), orderID, order.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// AssignCourier handles POST /orders/:id/courier
func (h *OrderHandler) AssignCourier(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AssignCourierRequest
	if !h.BindJSON(c, &req) {
		return
	}

	courierID, err := id.Parse(req.CourierID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid courier id").WithDetail("field", "courierId"))
		return
	}

	o, err := h.service.AssignCourier(c.Request.Context(), orderID, courierID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ProcessPayment handles POST /orders/:id/payment
func (h *OrderHandler) ProcessPayment(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.ProcessPayment(c.Request.Context(), orderID, principal.UserID, req.ToPaymentInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// SettleDelivery handles POST /orders/:id/settle-delivery
func (h *OrderHandler) SettleDelivery(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.SettleDeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.SettleDelivery(c.Request.Context(), orderID, principal.UserID, req.Counts)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
