package dto

import (
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

// --- Products ---

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Code          string  `json:"code" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Category      string  `json:"category" binding:"required"`
	Description   *string `json:"description,omitempty"`
	UnitOfMeasure string  `json:"unitOfMeasure,omitempty"`
}

// ToProduct converts to a domain product.
func (r *CreateProductRequest) ToProduct() *product.Product {
	p := product.NewProduct(r.Code, r.Name, product.Category(r.Category))
	p.Description = r.Description
	if r.UnitOfMeasure != "" {
		p.UnitOfMeasure = r.UnitOfMeasure
	}
	return p
}

// UpdateProductRequest for updating products. Nil fields keep their
// current value; Version carries the optimistic lock.
type UpdateProductRequest struct {
	Name          *string `json:"name"`
	Category      *string `json:"category"`
	Description   *string `json:"description"`
	UnitOfMeasure *string `json:"unitOfMeasure"`
	Version       int     `json:"version" binding:"required,min=1"`
}

// Apply merges the request onto the existing product.
func (r *UpdateProductRequest) Apply(existing *product.Product) *product.Product {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.Category != nil {
		existing.Category = product.Category(*r.Category)
	}
	if r.Description != nil {
		existing.Description = r.Description
	}
	if r.UnitOfMeasure != nil {
		existing.UnitOfMeasure = *r.UnitOfMeasure
	}
	existing.SetVersion(r.Version)
	return existing
}

// --- Subproducts ---

// CreateSubproductRequest for creating subproducts under a product.
type CreateSubproductRequest struct {
	Name          string `json:"name" binding:"required"`
	UnitOfMeasure string `json:"unitOfMeasure,omitempty"`
}

// ToSubproduct converts to a domain subproduct.
func (r *CreateSubproductRequest) ToSubproduct(productCode string) *product.Subproduct {
	sub := product.NewSubproduct(productCode, r.Name)
	if r.UnitOfMeasure != "" {
		sub.UnitOfMeasure = r.UnitOfMeasure
	}
	return sub
}

// UpdateSubproductRequest for updating subproducts.
type UpdateSubproductRequest struct {
	Name          *string `json:"name"`
	UnitOfMeasure *string `json:"unitOfMeasure"`
	Active        *bool   `json:"active"`
	Version       int     `json:"version" binding:"required,min=1"`
}

// Apply merges the request onto the existing subproduct.
func (r *UpdateSubproductRequest) Apply(existing *product.Subproduct) *product.Subproduct {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.UnitOfMeasure != nil {
		existing.UnitOfMeasure = *r.UnitOfMeasure
	}
	if r.Active != nil {
		existing.Active = *r.Active
	}
	existing.SetVersion(r.Version)
	return existing
}

// --- Modifications ---

// CreateModificationRequest for creating preparation variants.
type CreateModificationRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// ToModification converts to a domain modification.
func (r *CreateModificationRequest) ToModification() *product.Modification {
	return product.NewModification(r.Code, r.Name)
}

// UpdateModificationRequest for updating preparation variants.
type UpdateModificationRequest struct {
	Name    *string `json:"name"`
	Version int     `json:"version" binding:"required,min=1"`
}

// Apply merges the request onto the existing modification.
func (r *UpdateModificationRequest) Apply(existing *product.Modification) *product.Modification {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	existing.SetVersion(r.Version)
	return existing
}

// LinkModificationRequest binds a modification to an item.
type LinkModificationRequest struct {
	Item ItemRefRequest `json:"item" binding:"required"`
}
