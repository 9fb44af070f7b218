// Package reports provides read-only sales and drawer reporting.
package reports

import (
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/documents/order"
)

// --- Sales summary ---

// SalesSummaryFilter bounds the sales summary report.
type SalesSummaryFilter struct {
	// From / To bound the business date range (inclusive)
	From time.Time
	To   time.Time

	// Channel restricts to counter or delivery sales
	Channel *order.Channel
}

// PaymentBucket is the take of one payment method.
type PaymentBucket struct {
	Method string      `db:"method" json:"method"`
	Orders int         `db:"orders" json:"orders"`
	Total  types.Money `db:"total" json:"total"`
}

// SalesSummary aggregates paid orders over a date range.
type SalesSummary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	OrderCount        int         `json:"orderCount"`
	CatalogSubtotal   types.Money `json:"catalogSubtotal"`
	AncillarySubtotal types.Money `json:"ancillarySubtotal"`
	Discounts         types.Money `json:"discounts"`
	Shipping          types.Money `json:"shipping"`
	GrandTotal        types.Money `json:"grandTotal"`

	ByMethod []PaymentBucket `json:"byMethod"`
}

// --- Top items ---

// TopItemsFilter bounds the best-sellers report.
type TopItemsFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// TopItem is one row of the best-sellers report.
type TopItem struct {
	ItemKind     string       `db:"item_kind" json:"itemKind"`
	ProductCode  *string      `db:"product_code" json:"productCode,omitempty"`
	SubproductID *id.ID       `db:"subproduct_id" json:"subproductId,omitempty"`
	Description  string       `db:"description" json:"description"`
	TotalWeight  types.Weight `db:"total_weight" json:"totalWeight"`
	TotalRevenue types.Money  `db:"total_revenue" json:"totalRevenue"`
	LineCount    int          `db:"line_count" json:"lineCount"`
}

// --- Drawer variances ---

// DrawerVarianceFilter bounds the variance report.
type DrawerVarianceFilter struct {
	From time.Time
	To   time.Time

	// OnlyWithDifference hides cleanly reconciled closes
	OnlyWithDifference bool
}

// DrawerVarianceItem is one closed period in the variance report.
type DrawerVarianceItem struct {
	PeriodID      id.ID       `db:"period_id" json:"periodId"`
	Number        string      `db:"number" json:"number"`
	ResponsibleID id.ID       `db:"responsible_id" json:"responsibleId"`
	ClosedAt      time.Time   `db:"closed_at" json:"closedAt"`
	Theoretical   types.Money `db:"theoretical" json:"theoretical"`
	Counted       types.Money `db:"counted" json:"counted"`
	Variance      types.Money `db:"variance" json:"variance"`
	Status        string      `db:"status" json:"status"`
}
