package dto

import (
	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

// ItemRefRequest is the wire form of an item reference. Exactly one of
// productCode and subproductId must be set, matching the kind.
type ItemRefRequest struct {
	Kind         string `json:"kind" binding:"required"`
	ProductCode  string `json:"productCode,omitempty"`
	SubproductID string `json:"subproductId,omitempty"`
}

// ToItemRef converts and validates the reference.
func (r *ItemRefRequest) ToItemRef() (product.ItemRef, error) {
	switch product.ItemKind(r.Kind) {
	case product.KindProduct:
		ref := product.RefProduct(r.ProductCode)
		return ref, ref.Validate()
	case product.KindSubproduct:
		subID, err := id.Parse(r.SubproductID)
		if err != nil {
			return product.ItemRef{}, apperror.NewValidation("invalid subproduct id").
				WithDetail("field", "subproductId")
		}
		ref := product.RefSubproduct(subID)
		return ref, ref.Validate()
	default:
		return product.ItemRef{}, apperror.NewValidation("invalid item kind").
			WithDetail("field", "kind").
			WithDetail("value", r.Kind)
	}
}
