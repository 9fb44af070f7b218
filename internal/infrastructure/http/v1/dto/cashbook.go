package dto

import (
	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
)

// OpenDrawerRequest opens a drawer period with the counted float.
type OpenDrawerRequest struct {
	Counts []cashbook.DenominationCount `json:"counts" binding:"required"`
	Notes  *string                      `json:"notes,omitempty"`
}

// CloseDrawerRequest closes the caller's open drawer period.
type CloseDrawerRequest struct {
	Counted []cashbook.DenominationCount `json:"counted" binding:"required"`
	Notes   *string                      `json:"notes,omitempty"`
}

// UpdateNotesRequest edits the notes of a period.
type UpdateNotesRequest struct {
	Notes *string `json:"notes"`
}

// MovementRequest records a manual cash movement.
type MovementRequest struct {
	Type      string                       `json:"type" binding:"required"`
	Method    string                       `json:"method" binding:"required"`
	Amount    types.Money                  `json:"amount" binding:"required"`
	OrderID   *string                      `json:"orderId,omitempty"`
	Reason    string                       `json:"reason" binding:"required"`
	Notes     *string                      `json:"notes,omitempty"`
	Breakdown []cashbook.DenominationCount `json:"breakdown,omitempty"`
}

// ToMovement converts to a domain movement recorded by the caller.
func (r *MovementRequest) ToMovement(recordedBy id.ID) (*cashbook.Movement, error) {
	m := cashbook.NewMovement(
		cashbook.MovementType(r.Type),
		cashbook.PaymentMethod(r.Method),
		r.Amount,
		recordedBy,
		r.Reason,
	)
	m.Notes = r.Notes
	m.Breakdown = r.Breakdown

	if r.OrderID != nil && *r.OrderID != "" {
		orderID, err := id.Parse(*r.OrderID)
		if err != nil {
			return nil, apperror.NewValidation("invalid order id").WithDetail("field", "orderId")
		}
		m.OrderID = &orderID
	}
	return m, nil
}

// AncillaryPurchaseRequest records the egress paid for a resale item.
type AncillaryPurchaseRequest struct {
	OrderID string                       `json:"orderId" binding:"required"`
	Amount  types.Money                  `json:"amount" binding:"required"`
	Counts  []cashbook.DenominationCount `json:"counts,omitempty"`
	Reason  string                       `json:"reason" binding:"required"`
}
