package product

import (
	"context"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByCategory retrieves active products in a category.
	FindByCategory(ctx context.Context, category Category, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// IsReferenced reports whether price rules or order lines reference
	// the product code.
	IsReferenced(ctx context.Context, code string) (bool, error)

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, code string, active bool) error
}

// SubproductRepository defines the interface for Subproduct persistence.
type SubproductRepository interface {
	// Create inserts a new subproduct
	Create(ctx context.Context, sub *Subproduct) error

	// GetByID retrieves subproduct by ID
	GetByID(ctx context.Context, subID id.ID) (*Subproduct, error)

	// Update modifies existing subproduct
	Update(ctx context.Context, sub *Subproduct) error

	// ListByProduct retrieves subproducts of a parent product
	ListByProduct(ctx context.Context, productCode string, includeInactive bool) ([]*Subproduct, error)

	// IsReferenced reports whether price rules or order lines reference
	// the subproduct.
	IsReferenced(ctx context.Context, subID id.ID) (bool, error)

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, subID id.ID, active bool) error
}

// ModificationRepository defines the interface for Modification persistence.
type ModificationRepository interface {
	domain.CatalogRepository[*Modification]

	// LinkProduct associates the modification with a product.
	LinkProduct(ctx context.Context, modID id.ID, productCode string) error

	// LinkSubproduct associates the modification with a subproduct.
	LinkSubproduct(ctx context.Context, modID id.ID, subID id.ID) error

	// UnlinkProduct removes a product association.
	UnlinkProduct(ctx context.Context, modID id.ID, productCode string) error

	// UnlinkSubproduct removes a subproduct association.
	UnlinkSubproduct(ctx context.Context, modID id.ID, subID id.ID) error

	// IsLinkedTo reports whether the modification applies to the item.
	IsLinkedTo(ctx context.Context, modID id.ID, item ItemRef) (bool, error)

	// ListForItem retrieves modifications applicable to the item.
	ListForItem(ctx context.Context, item ItemRef) ([]*Modification, error)
}
