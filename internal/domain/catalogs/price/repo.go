package price

import (
	"context"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

// Repository defines the interface for price rule persistence.
type Repository interface {
	// Create inserts a new rule
	Create(ctx context.Context, rule *Rule) error

	// GetByID retrieves rule by ID
	GetByID(ctx context.Context, ruleID id.ID) (*Rule, error)

	// Update modifies existing rule
	Update(ctx context.Context, rule *Rule) error

	// SetActive toggles the active flag
	SetActive(ctx context.Context, ruleID id.ID, active bool) error

	// FindApplicable retrieves active rules for (item, tier) whose
	// validity window contains at, ordered by min_quantity descending.
	FindApplicable(ctx context.Context, item product.ItemRef, tier customer.Tier, at time.Time) ([]*Rule, error)

	// FindConflicting retrieves active rules for the same
	// (item, tier, min_quantity) with an overlapping validity window,
	// excluding the rule itself.
	FindConflicting(ctx context.Context, rule *Rule) ([]*Rule, error)

	// ListForItem retrieves the full ladder for an item across tiers.
	ListForItem(ctx context.Context, item product.ItemRef, filter domain.ListFilter) (domain.ListResult[*Rule], error)
}

// Quote is a resolved price with the rule that produced it.
type Quote struct {
	PricePerKg types.Money `json:"pricePerKg"`
	RuleID     id.ID       `json:"ruleId"`
	Threshold  types.Weight `json:"threshold"`
}
