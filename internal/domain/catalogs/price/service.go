package price

import (
	"context"
	"fmt"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/tx"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

// Service provides business logic for the price list, including resolution.
type Service struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new price service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		now:       time.Now,
	}
}

// Resolve returns the unit price for (item, tier, qty) at the current
// instant. The ladder is scanned from the highest threshold down; the
// first threshold at or below qty wins. A ladder with no applicable
// rule, including no threshold-zero base rule, is an explicit failure.
func (s *Service) Resolve(ctx context.Context, item product.ItemRef, tier customer.Tier, qty types.Weight) (Quote, error) {
	return s.ResolveAt(ctx, item, tier, qty, s.now())
}

// ResolveAt resolves against the ladder as valid at a specific instant.
func (s *Service) ResolveAt(ctx context.Context, item product.ItemRef, tier customer.Tier, qty types.Weight, at time.Time) (Quote, error) {
	if err := item.Validate(); err != nil {
		return Quote{}, err
	}
	if !customer.ValidTier(tier) {
		return Quote{}, apperror.NewValidation("invalid tier").
			WithDetail("value", string(tier))
	}
	if !qty.IsPositive() {
		return Quote{}, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", qty.String())
	}

	rules, err := s.repo.FindApplicable(ctx, item, tier, at)
	if err != nil {
		return Quote{}, fmt.Errorf("load price ladder: %w", err)
	}

	// Rules arrive ordered by threshold descending; the first one at or
	// below qty is the best applicable threshold. The threshold-zero
	// base rule, when present, catches everything.
	for _, rule := range rules {
		if rule.Applicable(qty) {
			return Quote{
				PricePerKg: rule.PricePerKg,
				RuleID:     rule.ID,
				Threshold:  rule.MinQuantity,
			}, nil
		}
	}

	return Quote{}, apperror.NewNoApplicablePrice(item.String(), string(tier), qty.String())
}

// Create validates the rule and enforces ladder uniqueness: at most one
// active rule per (item, tier, threshold) with overlapping validity.
func (s *Service) Create(ctx context.Context, rule *Rule) error {
	if err := rule.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkNoConflict(ctx, rule); err != nil {
			return err
		}
		return s.repo.Create(ctx, rule)
	})
}

// Update modifies a rule, re-checking ladder uniqueness.
func (s *Service) Update(ctx context.Context, rule *Rule) error {
	if err := rule.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkNoConflict(ctx, rule); err != nil {
			return err
		}
		return s.repo.Update(ctx, rule)
	})
}

// Deactivate retires a rule from resolution without losing history.
func (s *Service) Deactivate(ctx context.Context, ruleID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetActive(ctx, ruleID, false)
	})
}

// GetByID retrieves a rule.
func (s *Service) GetByID(ctx context.Context, ruleID id.ID) (*Rule, error) {
	rule, err := s.repo.GetByID(ctx, ruleID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("price rule", ruleID.String())
		}
		return nil, err
	}
	return rule, nil
}

// ListForItem retrieves the full ladder for an item.
func (s *Service) ListForItem(ctx context.Context, item product.ItemRef, filter domain.ListFilter) (domain.ListResult[*Rule], error) {
	if err := item.Validate(); err != nil {
		return domain.ListResult[*Rule]{}, err
	}
	return s.repo.ListForItem(ctx, item, filter)
}

func (s *Service) checkNoConflict(ctx context.Context, rule *Rule) error {
	if !rule.Active {
		return nil
	}
	conflicts, err := s.repo.FindConflicting(ctx, rule)
	if err != nil {
		return fmt.Errorf("check ladder conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return apperror.NewConflict("an active rule already covers this item, tier and threshold").
			WithDetail("item", rule.Item.String()).
			WithDetail("tier", string(rule.Tier)).
			WithDetail("minQuantity", rule.MinQuantity.String()).
			WithDetail("conflictingRuleId", conflicts[0].ID.String())
	}
	return nil
}
