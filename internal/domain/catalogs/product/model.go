// Package product provides the sellable-item catalogs: products sold by
// weight, their subproducts (cuts and offal sold under the parent), and
// modifications (preparation variants applied at the counter).
package product

import (
	"context"
	"fmt"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/entity"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
)

// Category groups products for display and reporting.
type Category string

const (
	CategoryPollo    Category = "POLLO"
	CategoryRes      Category = "RES"
	CategoryCerdo    Category = "CERDO"
	CategoryAbarrote Category = "ABARROTE"
	CategoryOtro     Category = "OTRO"
)

func isValidCategory(c Category) bool {
	switch c {
	case CategoryPollo, CategoryRes, CategoryCerdo, CategoryAbarrote, CategoryOtro:
		return true
	}
	return false
}

// Product represents a catalog item sold by weight.
// Code is the business key referenced by price rules and order lines.
type Product struct {
	entity.Catalog

	// Category groups the product for display
	Category Category `db:"category" json:"category"`

	// Description is an optional detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// UnitOfMeasure is the selling unit (kg for weighed items, pza otherwise)
	UnitOfMeasure string `db:"unit_of_measure" json:"unitOfMeasure"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, category Category) *Product {
	return &Product{
		Catalog:       entity.NewCatalog(code, name),
		Category:      category,
		UnitOfMeasure: "kg",
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.Code == "" {
		return apperror.NewValidation("product code is required").
			WithDetail("field", "code")
	}

	if !isValidCategory(p.Category) {
		return apperror.NewValidation("invalid product category").
			WithDetail("field", "category").
			WithDetail("value", string(p.Category))
	}

	if p.UnitOfMeasure == "" {
		return apperror.NewValidation("unit of measure is required").
			WithDetail("field", "unitOfMeasure")
	}

	return nil
}

// Subproduct is a cut or variant sold under a parent product
// (e.g. pechuga sin hueso under PECH). It carries its own identity
// and can be priced independently of the parent.
type Subproduct struct {
	entity.BaseCatalog

	// ProductCode is the parent product business key
	ProductCode string `db:"product_code" json:"productCode"`

	// Name is the display name of the cut
	Name string `db:"name" json:"name"`

	// UnitOfMeasure is the selling unit
	UnitOfMeasure string `db:"unit_of_measure" json:"unitOfMeasure"`

	// Active marks whether the subproduct may be sold
	Active bool `db:"active" json:"active"`
}

// NewSubproduct creates a new Subproduct under the given parent product.
func NewSubproduct(productCode, name string) *Subproduct {
	return &Subproduct{
		BaseCatalog:   entity.NewBaseCatalog(),
		ProductCode:   productCode,
		Name:          name,
		UnitOfMeasure: "kg",
		Active:        true,
	}
}

// Validate implements entity.Validatable interface.
func (s *Subproduct) Validate(ctx context.Context) error {
	if s.ProductCode == "" {
		return apperror.NewValidation("parent product code is required").
			WithDetail("field", "productCode")
	}
	if s.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Deactivate marks the subproduct unusable for new lines.
func (s *Subproduct) Deactivate() {
	s.Active = false
}

// Modification is a preparation variant (cut style, cleaning, portioning)
// linked to specific products and subproducts. A line may only carry a
// modification linked to its item.
type Modification struct {
	entity.Catalog

	// ProductCodes are the products this modification applies to
	ProductCodes []string `db:"-" json:"productCodes"`

	// SubproductIDs are the subproducts this modification applies to
	SubproductIDs []id.ID `db:"-" json:"subproductIds"`
}

// NewModification creates a new Modification.
func NewModification(code, name string) *Modification {
	return &Modification{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (m *Modification) Validate(ctx context.Context) error {
	return m.Catalog.Validate(ctx)
}

// --- ItemRef ---

// ItemKind discriminates the two kinds of sellable item.
type ItemKind string

const (
	KindProduct    ItemKind = "product"
	KindSubproduct ItemKind = "subproduct"
)

// ItemRef points at exactly one sellable item: a product (by business
// code) or a subproduct (by id). The zero value is invalid; use the
// constructors so an ItemRef never references both or neither.
type ItemRef struct {
	Kind         ItemKind `json:"kind"`
	ProductCode  string   `json:"productCode,omitempty"`
	SubproductID id.ID    `json:"subproductId,omitempty"`
}

// RefProduct builds an ItemRef for a product.
func RefProduct(code string) ItemRef {
	return ItemRef{Kind: KindProduct, ProductCode: code}
}

// RefSubproduct builds an ItemRef for a subproduct.
func RefSubproduct(subID id.ID) ItemRef {
	return ItemRef{Kind: KindSubproduct, SubproductID: subID}
}

// Validate checks the tagged union is well-formed.
func (r ItemRef) Validate() error {
	switch r.Kind {
	case KindProduct:
		if r.ProductCode == "" {
			return apperror.NewValidation("item reference missing product code").
				WithDetail("field", "productCode")
		}
		if !id.IsNil(r.SubproductID) {
			return apperror.NewValidation("product reference must not carry a subproduct id").
				WithDetail("field", "subproductId")
		}
	case KindSubproduct:
		if id.IsNil(r.SubproductID) {
			return apperror.NewValidation("item reference missing subproduct id").
				WithDetail("field", "subproductId")
		}
		if r.ProductCode != "" {
			return apperror.NewValidation("subproduct reference must not carry a product code").
				WithDetail("field", "productCode")
		}
	default:
		return apperror.NewValidation("invalid item reference kind").
			WithDetail("field", "kind").
			WithDetail("value", string(r.Kind))
	}
	return nil
}

// IsProduct reports whether the reference points at a product.
func (r ItemRef) IsProduct() bool {
	return r.Kind == KindProduct
}

// IsSubproduct reports whether the reference points at a subproduct.
func (r ItemRef) IsSubproduct() bool {
	return r.Kind == KindSubproduct
}

// Equal reports whether two references point at the same item.
func (r ItemRef) Equal(other ItemRef) bool {
	return r.Kind == other.Kind &&
		r.ProductCode == other.ProductCode &&
		r.SubproductID == other.SubproductID
}

// String renders the reference for error messages and audit entries.
func (r ItemRef) String() string {
	switch r.Kind {
	case KindProduct:
		return fmt.Sprintf("product:%s", r.ProductCode)
	case KindSubproduct:
		return fmt.Sprintf("subproduct:%s", r.SubproductID)
	default:
		return "item:invalid"
	}
}
