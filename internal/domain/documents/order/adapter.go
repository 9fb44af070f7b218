package order

import (
	"context"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

// ProductCatalog adapts the product services to the Catalog interface
// the line engine consumes.
type ProductCatalog struct {
	products      *product.Service
	subproducts   *product.SubproductService
	modifications *product.ModificationService
}

// NewProductCatalog creates the adapter.
func NewProductCatalog(
	products *product.Service,
	subproducts *product.SubproductService,
	modifications *product.ModificationService,
) *ProductCatalog {
	return &ProductCatalog{
		products:      products,
		subproducts:   subproducts,
		modifications: modifications,
	}
}

// ResolveItem returns display name, unit and active flag for an item.
func (a *ProductCatalog) ResolveItem(ctx context.Context, item product.ItemRef) (string, string, bool, error) {
	if err := item.Validate(); err != nil {
		return "", "", false, err
	}

	if item.IsProduct() {
		p, err := a.products.GetByCode(ctx, item.ProductCode)
		if err != nil {
			return "", "", false, err
		}
		return p.Name, p.UnitOfMeasure, p.Active && !p.DeletionMark, nil
	}

	sub, err := a.subproducts.GetByID(ctx, item.SubproductID)
	if err != nil {
		return "", "", false, err
	}
	return sub.Name, sub.UnitOfMeasure, sub.Active && !sub.DeletionMark, nil
}

// ModificationName returns the display name of a modification.
func (a *ProductCatalog) ModificationName(ctx context.Context, modID id.ID) (string, error) {
	mod, err := a.modifications.GetByID(ctx, modID)
	if err != nil {
		return "", err
	}
	return mod.Name, nil
}

// ModificationAppliesTo reports whether the modification is linked to the item.
func (a *ProductCatalog) ModificationAppliesTo(ctx context.Context, modID id.ID, item product.ItemRef) (bool, error) {
	return a.modifications.IsLinkedTo(ctx, modID, item)
}

// Ensure interface compliance.
var _ Catalog = (*ProductCatalog)(nil)
