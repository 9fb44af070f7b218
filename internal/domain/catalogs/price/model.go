// Package price provides the tiered price list and the price resolver.
// A rule binds (item, tier, minimum quantity) to a per-kg price, with an
// optional validity window. Resolution never crosses tiers and never
// invents a price: no applicable rule is an explicit failure.
package price

import (
	"context"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/entity"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

// Rule is one row of the tiered price list.
type Rule struct {
	entity.BaseCatalog

	// Item is the product or subproduct the rule prices
	Item product.ItemRef `db:"-" json:"item"`

	// Tier is the customer tier the rule belongs to
	Tier customer.Tier `db:"tier" json:"tier"`

	// MinQuantity is the threshold in kg from which the rule applies.
	// Zero is the base rule of the ladder.
	MinQuantity types.Weight `db:"min_quantity" json:"minQuantity"`

	// PricePerKg is the unit price granted at or above the threshold
	PricePerKg types.Money `db:"price_per_kg" json:"pricePerKg"`

	// ValidFrom / ValidUntil bound the validity window (inclusive).
	// Nil means unbounded on that side.
	ValidFrom  *time.Time `db:"valid_from" json:"validFrom,omitempty"`
	ValidUntil *time.Time `db:"valid_until" json:"validUntil,omitempty"`

	// Active marks whether the rule participates in resolution
	Active bool `db:"active" json:"active"`
}

// NewRule creates an active unbounded rule.
func NewRule(item product.ItemRef, tier customer.Tier, minQty types.Weight, pricePerKg types.Money) *Rule {
	return &Rule{
		BaseCatalog: entity.NewBaseCatalog(),
		Item:        item,
		Tier:        tier,
		MinQuantity: minQty,
		PricePerKg:  pricePerKg,
		Active:      true,
	}
}

// Validate implements entity.Validatable interface.
func (r *Rule) Validate(ctx context.Context) error {
	if err := r.Item.Validate(); err != nil {
		return err
	}

	if !customer.ValidTier(r.Tier) {
		return apperror.NewValidation("invalid tier").
			WithDetail("field", "tier").
			WithDetail("value", string(r.Tier))
	}

	if r.MinQuantity.IsNegative() {
		return apperror.NewValidation("minimum quantity cannot be negative").
			WithDetail("field", "minQuantity")
	}

	if !r.PricePerKg.IsPositive() {
		return apperror.NewValidation("price per kg must be positive").
			WithDetail("field", "pricePerKg")
	}

	if r.ValidFrom != nil && r.ValidUntil != nil && r.ValidUntil.Before(*r.ValidFrom) {
		return apperror.NewValidation("validity window ends before it starts").
			WithDetail("field", "validUntil")
	}

	return nil
}

// InWindow reports whether the rule is valid at the given instant.
// Both bounds are inclusive.
func (r *Rule) InWindow(at time.Time) bool {
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && at.After(*r.ValidUntil) {
		return false
	}
	return true
}

// WindowOverlaps reports whether the two validity windows share at
// least one instant. A nil bound is open on that side.
func (r *Rule) WindowOverlaps(other *Rule) bool {
	if r.ValidUntil != nil && other.ValidFrom != nil && r.ValidUntil.Before(*other.ValidFrom) {
		return false
	}
	if other.ValidUntil != nil && r.ValidFrom != nil && other.ValidUntil.Before(*r.ValidFrom) {
		return false
	}
	return true
}

// Applicable reports whether the rule prices the given quantity.
func (r *Rule) Applicable(qty types.Weight) bool {
	return r.MinQuantity <= qty
}
