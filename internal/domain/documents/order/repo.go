package order

import (
	"context"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
)

// ListFilter extends the common filter with order-specific criteria.
type ListFilter struct {
	domain.ListFilter

	Status     *Status
	Channel    *Channel
	CustomerID *id.ID
	CourierID  *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Repository defines the interface for order persistence.
type Repository interface {
	// Create inserts the order header
	Create(ctx context.Context, o *Order) error

	// GetByID retrieves the order header (lines loaded separately)
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// Update modifies the order header (with optimistic locking)
	Update(ctx context.Context, o *Order) error

	// SaveLines replaces the catalog lines of the order
	SaveLines(ctx context.Context, orderID id.ID, lines []Line) error

	// SaveAncillaries replaces the ancillary lines of the order
	SaveAncillaries(ctx context.Context, orderID id.ID, lines []AncillaryLine) error

	// GetLines retrieves catalog lines in line order
	GetLines(ctx context.Context, orderID id.ID) ([]Line, error)

	// GetAncillaries retrieves ancillary lines in insertion order
	GetAncillaries(ctx context.Context, orderID id.ID) ([]AncillaryLine, error)

	// List retrieves orders with filtering
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)

	// NextFolio issues the next order folio
	NextFolio(ctx context.Context) (string, error)
}
