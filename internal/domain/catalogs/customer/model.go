// Package customer provides the Customer catalog and the pricing tier enum.
package customer

import (
	"context"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/entity"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
)

// Tier classifies customers for price resolution. Prices never cross
// tiers: a tier without an applicable rule is a resolution failure,
// not a fallback to another tier.
type Tier string

const (
	TierPublico   Tier = "PUBLICO"   // general public
	TierCocina    Tier = "COCINA"    // kitchen / restaurant buyer
	TierLeal      Tier = "LEAL"      // loyal customer
	TierAliado    Tier = "ALIADO"    // allied business
	TierMayoreo   Tier = "MAYOREO"   // wholesale
	TierEmpleado  Tier = "EMPLEADO"  // employee
	TierMostrador Tier = "MOSTRADOR" // generic counter sale
)

// DefaultTier is applied when an order has no customer.
const DefaultTier = TierPublico

// ValidTier reports whether t is a member of the closed tier set.
func ValidTier(t Tier) bool {
	switch t {
	case TierPublico, TierCocina, TierLeal, TierAliado, TierMayoreo, TierEmpleado, TierMostrador:
		return true
	}
	return false
}

// AllTiers returns the closed tier set, for admin listings.
func AllTiers() []Tier {
	return []Tier{
		TierPublico, TierCocina, TierLeal, TierAliado,
		TierMayoreo, TierEmpleado, TierMostrador,
	}
}

// Customer represents a known buyer.
type Customer struct {
	entity.Catalog

	// LastNames complements Name (Name holds given names)
	LastNames *string `db:"last_names" json:"lastNames,omitempty"`

	// Alias is the name the counter staff actually use
	Alias *string `db:"alias" json:"alias,omitempty"`

	// Tier drives price resolution for this customer's orders
	Tier Tier `db:"tier" json:"tier"`

	// Phone is the contact number
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Notes holds free-form remarks
	Notes *string `db:"notes" json:"notes,omitempty"`
}

// NewCustomer creates a new Customer with the default tier.
func NewCustomer(code, name string) *Customer {
	return &Customer{
		Catalog: entity.NewCatalog(code, name),
		Tier:    DefaultTier,
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !ValidTier(c.Tier) {
		return apperror.NewValidation("invalid customer tier").
			WithDetail("field", "tier").
			WithDetail("value", string(c.Tier))
	}

	return nil
}

// DisplayName returns the alias when set, the full name otherwise.
func (c *Customer) DisplayName() string {
	if c.Alias != nil && *c.Alias != "" {
		return *c.Alias
	}
	if c.LastNames != nil && *c.LastNames != "" {
		return c.Name + " " + *c.LastNames
	}
	return c.Name
}

// DeliveryAddress is a saved delivery destination for a customer.
type DeliveryAddress struct {
	entity.BaseCatalog

	// CustomerID is the owning customer
	CustomerID id.ID `db:"customer_id" json:"customerId"`

	// Street address, free form
	Street string `db:"street" json:"street"`

	// References helps the courier find the place
	References *string `db:"references" json:"references,omitempty"`

	// Active marks whether the address may be used on new orders
	Active bool `db:"active" json:"active"`
}

// NewDeliveryAddress creates a new address for a customer.
func NewDeliveryAddress(customerID id.ID, street string) *DeliveryAddress {
	return &DeliveryAddress{
		BaseCatalog: entity.NewBaseCatalog(),
		CustomerID:  customerID,
		Street:      street,
		Active:      true,
	}
}

// Validate implements entity.Validatable interface.
func (a *DeliveryAddress) Validate(ctx context.Context) error {
	if id.IsNil(a.CustomerID) {
		return apperror.NewValidation("address requires a customer").
			WithDetail("field", "customerId")
	}
	if a.Street == "" {
		return apperror.NewValidation("street is required").
			WithDetail("field", "street")
	}
	return nil
}
