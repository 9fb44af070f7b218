package dto

import (
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
)

// CreateCustomerRequest for creating customers.
type CreateCustomerRequest struct {
	Code      string  `json:"code" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	LastNames *string `json:"lastNames,omitempty"`
	Alias     *string `json:"alias,omitempty"`
	Tier      string  `json:"tier,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// ToCustomer converts to a domain customer.
func (r *CreateCustomerRequest) ToCustomer() *customer.Customer {
	c := customer.NewCustomer(r.Code, r.Name)
	c.LastNames = r.LastNames
	c.Alias = r.Alias
	if r.Tier != "" {
		c.Tier = customer.Tier(r.Tier)
	}
	c.Phone = r.Phone
	c.Notes = r.Notes
	return c
}

// UpdateCustomerRequest for updating customers.
type UpdateCustomerRequest struct {
	Name      *string `json:"name"`
	LastNames *string `json:"lastNames"`
	Alias     *string `json:"alias"`
	Tier      *string `json:"tier"`
	Phone     *string `json:"phone"`
	Notes     *string `json:"notes"`
	Version   int     `json:"version" binding:"required,min=1"`
}

// Apply merges the request onto the existing customer.
func (r *UpdateCustomerRequest) Apply(existing *customer.Customer) *customer.Customer {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.LastNames != nil {
		existing.LastNames = r.LastNames
	}
	if r.Alias != nil {
		existing.Alias = r.Alias
	}
	if r.Tier != nil {
		existing.Tier = customer.Tier(*r.Tier)
	}
	if r.Phone != nil {
		existing.Phone = r.Phone
	}
	if r.Notes != nil {
		existing.Notes = r.Notes
	}
	existing.SetVersion(r.Version)
	return existing
}

// CreateAddressRequest for adding a delivery address.
type CreateAddressRequest struct {
	Street     string  `json:"street" binding:"required"`
	References *string `json:"references,omitempty"`
}

// ToAddress converts to a domain address for the given customer.
func (r *CreateAddressRequest) ToAddress(customerID id.ID) *customer.DeliveryAddress {
	addr := customer.NewDeliveryAddress(customerID, r.Street)
	addr.References = r.References
	return addr
}
