package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetSalesSummary aggregates paid sales over a date range.
func (s *Service) GetSalesSummary(ctx context.Context, filter SalesSummaryFilter) (*SalesSummary, error) {
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}

	summary, err := s.repo.GetSalesSummary(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get sales summary: %w", err)
	}
	return summary, nil
}

// GetTopItems returns the best-selling items by revenue.
func (s *Service) GetTopItems(ctx context.Context, filter TopItemsFilter) ([]TopItem, error) {
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	items, err := s.repo.GetTopItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get top items: %w", err)
	}
	return items, nil
}

// GetDrawerVariances lists closed drawer periods and their variances.
func (s *Service) GetDrawerVariances(ctx context.Context, filter DrawerVarianceFilter) ([]DrawerVarianceItem, error) {
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}

	items, err := s.repo.GetDrawerVariances(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get drawer variances: %w", err)
	}
	return items, nil
}

func validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return apperror.NewValidation("from and to dates are required")
	}
	if from.After(to) {
		return apperror.NewValidation("from must not be after to").
			WithDetail("from", from.Format(time.RFC3339)).
			WithDetail("to", to.Format(time.RFC3339))
	}
	return nil
}
