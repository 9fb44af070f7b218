package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	GetSalesSummary(ctx context.Context, filter SalesSummaryFilter) (*SalesSummary, error)
	GetTopItems(ctx context.Context, filter TopItemsFilter) ([]TopItem, error)
	GetDrawerVariances(ctx context.Context, filter DrawerVarianceFilter) ([]DrawerVarianceItem, error)
}
