package cashbook

import (
	"context"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
)

// Repository defines the interface for cashbook persistence.
type Repository interface {
	// CreateMovement inserts a movement with its breakdown rows.
	CreateMovement(ctx context.Context, m *Movement) error

	// GetMovement retrieves a movement with its breakdown.
	GetMovement(ctx context.Context, movementID id.ID) (*Movement, error)

	// ListMovementsByPeriod retrieves all movements of a period in
	// chronological order, breakdowns included.
	ListMovementsByPeriod(ctx context.Context, periodID id.ID) ([]*Movement, error)

	// ListMovementsByOrder retrieves all movements linked to an order.
	ListMovementsByOrder(ctx context.Context, orderID id.ID) ([]*Movement, error)

	// LockResponsible serializes drawer opens for a user. The lock is
	// scoped to the surrounding transaction and released at commit or
	// rollback.
	LockResponsible(ctx context.Context, userID id.ID) error

	// CreatePeriod inserts a drawer period.
	CreatePeriod(ctx context.Context, p *DrawerPeriod) error

	// GetPeriod retrieves a period with its closing breakdown.
	GetPeriod(ctx context.Context, periodID id.ID) (*DrawerPeriod, error)

	// UpdatePeriod modifies a period, replacing any closing breakdown.
	UpdatePeriod(ctx context.Context, p *DrawerPeriod) error

	// FindOpenByUser retrieves the user's open period.
	// Returns a not-found error when the user has no open drawer.
	FindOpenByUser(ctx context.Context, userID id.ID) (*DrawerPeriod, error)

	// ListPeriods retrieves periods with filtering.
	ListPeriods(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*DrawerPeriod], error)
}
