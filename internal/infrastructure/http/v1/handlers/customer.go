package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/http/v1/dto"
)

// CustomerHandler handles the customer catalog and delivery addresses.
type CustomerHandler struct {
	*CatalogHandler[*customer.Customer, dto.CreateCustomerRequest, dto.UpdateCustomerRequest]
	service *customer.Service
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	catalog := NewCatalogHandler(base, CatalogHandlerConfig[*customer.Customer, dto.CreateCustomerRequest, dto.UpdateCustomerRequest]{
		Service:    service.CatalogService,
		EntityName: "customer",
		MapCreateDTO: func(req dto.CreateCustomerRequest) (*customer.Customer, error) {
			return req.ToCustomer(), nil
		},
		MapUpdateDTO: func(req dto.UpdateCustomerRequest, existing *customer.Customer) *customer.Customer {
			return req.Apply(existing)
		},
	})

	return &CustomerHandler{
		CatalogHandler: catalog,
		service:        service,
	}
}

// ListByTier handles GET /customers/by-tier/:tier
func (h *CustomerHandler) ListByTier(c *gin.Context) {
	filter, ok := h.ParseListFilter(c)
	if !ok {
		return
	}

	result, err := h.service.FindByTier(c.Request.Context(), customer.Tier(c.Param("tier")), filter)
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

// ListTiers handles GET /customers/tiers
func (h *CustomerHandler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": customer.AllTiers()})
}

// AddAddress handles POST /customers/:id/addresses
func (h *CustomerHandler) AddAddress(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateAddressRequest
	if !h.BindJSON(c, &req) {
		return
	}

	addr := req.ToAddress(customerID)
	if err := h.service.AddAddress(c.Request.Context(), addr); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

// ListAddresses handles GET /customers/:id/addresses
func (h *CustomerHandler) ListAddresses(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	includeInactive := c.Query("includeInactive") == "true"

	addrs, err := h.service.ListAddresses(c.Request.Context(), customerID, includeInactive)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": addrs})
}

// DeactivateAddress handles POST /addresses/:id/deactivate
func (h *CustomerHandler) DeactivateAddress(c *gin.Context) {
	addrID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeactivateAddress(c.Request.Context(), addrID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "address deactivated")
}
