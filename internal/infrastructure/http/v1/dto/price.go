package dto

import (
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/price"
)

// CreateRuleRequest for adding a price rule to the ladder.
type CreateRuleRequest struct {
	Item        ItemRefRequest `json:"item" binding:"required"`
	Tier        string         `json:"tier" binding:"required"`
	MinQuantity types.Weight   `json:"minQuantity"`
	PricePerKg  types.Money    `json:"pricePerKg" binding:"required"`
	ValidFrom   *time.Time     `json:"validFrom,omitempty"`
	ValidUntil  *time.Time     `json:"validUntil,omitempty"`
}

// ToRule converts to a domain rule.
func (r *CreateRuleRequest) ToRule() (*price.Rule, error) {
	item, err := r.Item.ToItemRef()
	if err != nil {
		return nil, err
	}
	rule := price.NewRule(item, customer.Tier(r.Tier), r.MinQuantity, r.PricePerKg)
	rule.ValidFrom = r.ValidFrom
	rule.ValidUntil = r.ValidUntil
	return rule, nil
}

// UpdateRuleRequest for editing a price rule. The item and tier of a
// rule never change; retire the rule and create a new one instead.
type UpdateRuleRequest struct {
	MinQuantity *types.Weight `json:"minQuantity"`
	PricePerKg  *types.Money  `json:"pricePerKg"`
	ValidFrom   *time.Time    `json:"validFrom"`
	ValidUntil  *time.Time    `json:"validUntil"`
	Active      *bool         `json:"active"`
	Version     int           `json:"version" binding:"required,min=1"`
}

// Apply merges the request onto the existing rule.
func (r *UpdateRuleRequest) Apply(existing *price.Rule) *price.Rule {
	if r.MinQuantity != nil {
		existing.MinQuantity = *r.MinQuantity
	}
	if r.PricePerKg != nil {
		existing.PricePerKg = *r.PricePerKg
	}
	if r.ValidFrom != nil {
		existing.ValidFrom = r.ValidFrom
	}
	if r.ValidUntil != nil {
		existing.ValidUntil = r.ValidUntil
	}
	if r.Active != nil {
		existing.Active = *r.Active
	}
	existing.SetVersion(r.Version)
	return existing
}
