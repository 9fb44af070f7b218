package dto

import (
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/documents/order"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
)

// CreateOrderRequest opens an order.
type CreateOrderRequest struct {
	Channel           string     `json:"channel" binding:"required"`
	CustomerID        *string    `json:"customerId,omitempty"`
	DeliveryAddressID *string    `json:"deliveryAddressId,omitempty"`
	CourierID         *string    `json:"courierId,omitempty"`
	ScheduledFor      *time.Time `json:"scheduledFor,omitempty"`
	RequiresInvoice   bool       `json:"requiresInvoice"`
	Comment           string     `json:"comment,omitempty"`
}

// ToCreateInput converts to the domain input.
func (r *CreateOrderRequest) ToCreateInput() (order.CreateInput, error) {
	in := order.CreateInput{
		Channel:         order.Channel(r.Channel),
		ScheduledFor:    r.ScheduledFor,
		RequiresInvoice: r.RequiresInvoice,
		Comment:         r.Comment,
	}

	var err error
	if in.CustomerID, err = parseOptionalID(r.CustomerID, "customerId"); err != nil {
		return in, err
	}
	if in.DeliveryAddressID, err = parseOptionalID(r.DeliveryAddressID, "deliveryAddressId"); err != nil {
		return in, err
	}
	if in.CourierID, err = parseOptionalID(r.CourierID, "courierId"); err != nil {
		return in, err
	}
	return in, nil
}

// CatalogLineRequest adds or edits a weighed catalog line.
type CatalogLineRequest struct {
	Item           ItemRefRequest `json:"item" binding:"required"`
	ModificationID *string        `json:"modificationId,omitempty"`
	Quantity       types.Weight   `json:"quantity" binding:"required"`
	UnitOfMeasure  string         `json:"unitOfMeasure,omitempty"`

	// UnitPrice overrides ladder resolution when set
	UnitPrice *types.Money `json:"unitPrice,omitempty"`

	Notes *string `json:"notes,omitempty"`
}

// ToLineInput converts to the domain input.
func (r *CatalogLineRequest) ToLineInput() (order.CatalogLineInput, error) {
	item, err := r.Item.ToItemRef()
	if err != nil {
		return order.CatalogLineInput{}, err
	}

	in := order.CatalogLineInput{
		Item:          item,
		Quantity:      r.Quantity,
		UnitOfMeasure: r.UnitOfMeasure,
		UnitPrice:     r.UnitPrice,
		Notes:         r.Notes,
	}
	if in.ModificationID, err = parseOptionalID(r.ModificationID, "modificationId"); err != nil {
		return in, err
	}
	return in, nil
}

// AncillaryLineRequest adds or edits a resale line.
type AncillaryLineRequest struct {
	Name          string       `json:"name" binding:"required"`
	Quantity      types.Weight `json:"quantity" binding:"required"`
	UnitOfMeasure string       `json:"unitOfMeasure,omitempty"`
	PurchaseCost  *types.Money `json:"purchaseCost,omitempty"`
	SalePrice     *types.Money `json:"salePrice,omitempty"`
	Notes         *string      `json:"notes,omitempty"`
}

// ToAncillaryInput converts to the domain input.
func (r *AncillaryLineRequest) ToAncillaryInput() order.AncillaryInput {
	return order.AncillaryInput{
		Name:          r.Name,
		Quantity:      r.Quantity,
		UnitOfMeasure: r.UnitOfMeasure,
		PurchaseCost:  r.PurchaseCost,
		SalePrice:     r.SalePrice,
		Notes:         r.Notes,
	}
}

// AdjustmentsRequest sets order-level discount and shipping.
type AdjustmentsRequest struct {
	Discount     types.Money `json:"discount"`
	ShippingCost types.Money `json:"shippingCost"`
}

// UpdateStatusRequest moves the order through its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignCourierRequest assigns a delivery order to a courier.
type AssignCourierRequest struct {
	CourierID string `json:"courierId" binding:"required"`
}

// PaymentRequest settles an order.
type PaymentRequest struct {
	Method   string                       `json:"method" binding:"required"`
	Tendered *types.Money                 `json:"tendered,omitempty"`
	Received []cashbook.DenominationCount `json:"received,omitempty"`
}

// ToPaymentInput converts to the domain input.
func (r *PaymentRequest) ToPaymentInput() order.PaymentInput {
	return order.PaymentInput{
		Method:   cashbook.PaymentMethod(r.Method),
		Tendered: r.Tendered,
		Received: r.Received,
	}
}

// SettleDeliveryRequest records the cash a courier hands over.
type SettleDeliveryRequest struct {
	Counts []cashbook.DenominationCount `json:"counts" binding:"required"`
}

func parseOptionalID(s *string, field string) (*id.ID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	parsed, err := id.Parse(*s)
	if err != nil {
		return nil, apperror.NewValidation("invalid id format").WithDetail("field", field)
	}
	return &parsed, nil
}
