package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/documents/order"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/reports"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles read-only sales and drawer reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// SalesSummary handles GET /reports/sales-summary
func (h *ReportsHandler) SalesSummary(c *gin.Context) {
	var q dto.DateRangeQuery
	if !h.BindQuery(c, &q) {
		return
	}

	from, to, err := q.Range()
	if err != nil {
		h.Error(c, err)
		return
	}

	filter := reports.SalesSummaryFilter{From: from, To: to}
	if s := c.Query("channel"); s != "" {
		channel := order.Channel(s)
		if !order.ValidChannel(channel) {
			h.Error(c, apperror.NewValidation("invalid channel").WithDetail("value", s))
			return
		}
		filter.Channel = &channel
	}

	summary, err := h.service.GetSalesSummary(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// TopItems handles GET /reports/top-items
func (h *ReportsHandler) TopItems(c *gin.Context) {
	var q dto.DateRangeQuery
	if !h.BindQuery(c, &q) {
		return
	}

	from, to, err := q.Range()
	if err != nil {
		h.Error(c, err)
		return
	}

	items, err := h.service.GetTopItems(c.Request.Context(), reports.TopItemsFilter{
		From:  from,
		To:    to,
		Limit: h.ParseIntQuery(c, "limit", 10),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DrawerVariances handles GET /reports/drawer-variances
func (h *ReportsHandler) DrawerVariances(c *gin.Context) {
	var q dto.DateRangeQuery
	if !h.BindQuery(c, &q) {
		return
	}

	from, to, err := q.Range()
	if err != nil {
		h.Error(c, err)
		return
	}

	items, err := h.service.GetDrawerVariances(c.Request.Context(), reports.DrawerVarianceFilter{
		From:               from,
		To:                 to,
		OnlyWithDifference: c.Query("onlyWithDifference") == "true",
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
