package customer

import (
	"context"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
)

// Repository defines the interface for Customer persistence.
type Repository interface {
	domain.CatalogRepository[*Customer]

	// FindByAlias retrieves a customer by alias.
	FindByAlias(ctx context.Context, alias string) (*Customer, error)

	// FindByTier retrieves customers in a tier.
	FindByTier(ctx context.Context, tier Tier, filter domain.ListFilter) (domain.ListResult[*Customer], error)
}

// AddressRepository defines the interface for DeliveryAddress persistence.
type AddressRepository interface {
	// Create inserts a new address
	Create(ctx context.Context, addr *DeliveryAddress) error

	// GetByID retrieves address by ID
	GetByID(ctx context.Context, addrID id.ID) (*DeliveryAddress, error)

	// Update modifies existing address
	Update(ctx context.Context, addr *DeliveryAddress) error

	// ListByCustomer retrieves addresses of a customer
	ListByCustomer(ctx context.Context, customerID id.ID, includeInactive bool) ([]*DeliveryAddress, error)

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, addrID id.ID, active bool) error
}
