package entity

import (
	"context"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
)

// Catalog is the base type for reference data.
// Examples: Product, Customer, Modification. The POS catalogs are flat,
// so there is no parent/folder hierarchy here.
type Catalog struct {
	BaseCatalog

	// Code is a human-readable identifier (unique per catalog)
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Active marks whether the entry may be used on new operations.
	// Deactivation is the sanctioned alternative to deletion while
	// dependent records exist.
	Active bool `db:"active" json:"active"`
}

// NewCatalog creates a new Catalog with generated ID, active by default.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseCatalog: NewBaseCatalog(),
		Code:        code,
		Name:        name,
		Active:      true,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	// Code can be auto-generated, so it's optional at creation
	// but required at save time

	return nil
}

// Deactivate marks the entry unusable for new operations.
func (c *Catalog) Deactivate() {
	c.Active = false
}
