// Package order provides the sales order document: catalog lines priced
// through the tier ladder, ancillary lines under the commission rule,
// derived totals and payment state.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/entity"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
)

// Channel is where the sale happens.
type Channel string

const (
	ChannelMostrador Channel = "MOSTRADOR"
	ChannelDomicilio Channel = "DOMICILIO"
)

// ValidChannel reports membership in the closed set.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelMostrador, ChannelDomicilio:
		return true
	}
	return false
}

// Status is the order lifecycle state.
type Status string

const (
	StatusPendienteConfirmacion  Status = "PENDIENTE_CONFIRMACION"
	StatusPendientePreparacion   Status = "PENDIENTE_PREPARACION"
	StatusEnPreparacion          Status = "EN_PREPARACION"
	StatusListoParaEntrega       Status = "LISTO_PARA_ENTREGA"
	StatusAsignadoARepartidor    Status = "ASIGNADO_A_REPARTIDOR"
	StatusEnRuta                 Status = "EN_RUTA"
	StatusEntregadoPendientePago Status = "ENTREGADO_PENDIENTE_PAGO"
	StatusPagado                 Status = "PAGADO"
	StatusEntregadoYPagado       Status = "ENTREGADO_Y_PAGADO"
	StatusProblemaEnEntrega      Status = "PROBLEMA_EN_ENTREGA"
	StatusReprogramado           Status = "REPROGRAMADO"
	StatusCanceladoPorCliente    Status = "CANCELADO_POR_CLIENTE"
	StatusCanceladoPorNegocio    Status = "CANCELADO_POR_NEGOCIO"
)

// ValidStatus reports membership in the closed set.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPendienteConfirmacion, StatusPendientePreparacion,
		StatusEnPreparacion, StatusListoParaEntrega,
		StatusAsignadoARepartidor, StatusEnRuta,
		StatusEntregadoPendientePago, StatusPagado,
		StatusEntregadoYPagado, StatusProblemaEnEntrega,
		StatusReprogramado, StatusCanceladoPorCliente,
		StatusCanceladoPorNegocio:
		return true
	}
	return false
}

// IsCancelled reports the cancelled terminal states.
func (s Status) IsCancelled() bool {
	switch s {
	case StatusCanceladoPorCliente, StatusCanceladoPorNegocio:
		return true
	case StatusPendienteConfirmacion, StatusPendientePreparacion,
		StatusEnPreparacion, StatusListoParaEntrega,
		StatusAsignadoARepartidor, StatusEnRuta,
		StatusEntregadoPendientePago, StatusPagado,
		StatusEntregadoYPagado, StatusProblemaEnEntrega,
		StatusReprogramado:
		return false
	}
	return false
}

// IsPaid reports the paid states.
func (s Status) IsPaid() bool {
	switch s {
	case StatusPagado, StatusEntregadoYPagado:
		return true
	case StatusPendienteConfirmacion, StatusPendientePreparacion,
		StatusEnPreparacion, StatusListoParaEntrega,
		StatusAsignadoARepartidor, StatusEnRuta,
		StatusEntregadoPendientePago, StatusProblemaEnEntrega,
		StatusReprogramado, StatusCanceladoPorCliente,
		StatusCanceladoPorNegocio:
		return false
	}
	return false
}

// AllowsLineChanges reports whether lines may still be mutated.
// Paid and cancelled orders are frozen.
func (s Status) AllowsLineChanges() bool {
	return !s.IsPaid() && !s.IsCancelled()
}

// AllowsCourierSettlement reports the delivery-in-flight states a
// courier may settle from.
func (s Status) AllowsCourierSettlement() bool {
	switch s {
	case StatusAsignadoARepartidor, StatusEnRuta, StatusEntregadoPendientePago:
		return true
	case StatusPendienteConfirmacion, StatusPendientePreparacion,
		StatusEnPreparacion, StatusListoParaEntrega,
		StatusPagado, StatusEntregadoYPagado,
		StatusProblemaEnEntrega, StatusReprogramado,
		StatusCanceladoPorCliente, StatusCanceladoPorNegocio:
		return false
	}
	return false
}

// Line is a catalog line: a weighed item priced through the ladder.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// Item points at the product or subproduct sold
	Item product.ItemRef `db:"-" json:"item"`

	// ModificationID is the optional preparation variant
	ModificationID *id.ID `db:"modification_id" json:"modificationId,omitempty"`

	// Description is derived from the item and modification names.
	// Display only, never authoritative.
	Description string `db:"description" json:"description"`

	Quantity      types.Weight `db:"quantity" json:"quantity"`
	UnitOfMeasure string       `db:"unit_of_measure" json:"unitOfMeasure"`

	// UnitPrice is resolved through the ladder or set explicitly
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Subtotal = round(quantity x unitPrice, 2)
	Subtotal types.Money `db:"subtotal" json:"subtotal"`

	Notes *string `db:"notes" json:"notes,omitempty"`
}

// ComputeSubtotal derives the line subtotal from quantity and unit price.
func (l *Line) ComputeSubtotal() {
	l.Subtotal = types.RoundMoney(l.Quantity.Decimal().Mul(l.UnitPrice))
}

// AncillaryLine is a non-catalog resale item on the order.
type AncillaryLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// Name is free text, the item is not in the catalog
	Name string `db:"name" json:"name"`

	Quantity      types.Weight `db:"quantity" json:"quantity"`
	UnitOfMeasure string       `db:"unit_of_measure" json:"unitOfMeasure"`

	// PurchaseCost is what the shop paid for the item, when known
	PurchaseCost *types.Money `db:"purchase_cost" json:"purchaseCost,omitempty"`

	// SalePrice is the unit price charged: explicit override, or
	// purchase cost plus commission
	SalePrice types.Money `db:"sale_price" json:"salePrice"`

	// Commission is the surcharge folded into SalePrice; zero for
	// explicit overrides and for lines under the free limit
	Commission types.Money `db:"commission" json:"commission"`

	// Subtotal = round(quantity x salePrice, 2)
	Subtotal types.Money `db:"subtotal" json:"subtotal"`

	Notes *string `db:"notes" json:"notes,omitempty"`
}

// ComputeSubtotal derives the ancillary subtotal.
func (a *AncillaryLine) ComputeSubtotal() {
	a.Subtotal = types.RoundMoney(a.Quantity.Decimal().Mul(a.SalePrice))
}

// Order is the sales document.
type Order struct {
	entity.Document

	// CustomerID is optional for counter sales, required for delivery
	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`

	// Tier is the pricing tier snapshot taken at creation
	Tier customer.Tier `db:"tier" json:"tier"`

	// DeliveryAddressID is required for delivery orders
	DeliveryAddressID *id.ID `db:"delivery_address_id" json:"deliveryAddressId,omitempty"`

	// CourierID is the assigned courier, when there is one
	CourierID *id.ID `db:"courier_id" json:"courierId,omitempty"`

	Channel Channel `db:"channel" json:"channel"`
	Status  Status  `db:"status" json:"status"`

	// PaymentMethod is set when the order is paid or promised
	PaymentMethod *cashbook.PaymentMethod `db:"payment_method" json:"paymentMethod,omitempty"`

	// Derived totals, recomputed on every line mutation
	CatalogSubtotal   types.Money `db:"catalog_subtotal" json:"catalogSubtotal"`
	AncillarySubtotal types.Money `db:"ancillary_subtotal" json:"ancillarySubtotal"`
	Discount          types.Money `db:"discount" json:"discount"`
	ShippingCost      types.Money `db:"shipping_cost" json:"shippingCost"`
	GrandTotal        types.Money `db:"grand_total" json:"grandTotal"`

	// Tendered / ChangeGiven record the cash handover of the payment
	Tendered    *types.Money `db:"tendered" json:"tendered,omitempty"`
	ChangeGiven *types.Money `db:"change_given" json:"changeGiven,omitempty"`

	// RequiresInvoice marks orders that need a formal invoice later
	RequiresInvoice bool `db:"requires_invoice" json:"requiresInvoice"`

	// ScheduledFor is the promised delivery time
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduledFor,omitempty"`

	// Table parts
	Lines       []Line          `db:"-" json:"lines"`
	Ancillaries []AncillaryLine `db:"-" json:"ancillaries"`
}

// NewOrder creates an order pending confirmation.
func NewOrder(channel Channel, tier customer.Tier) *Order {
	return &Order{
		Document:          entity.NewDocument(),
		Tier:              tier,
		Channel:           channel,
		Status:            StatusPendienteConfirmacion,
		CatalogSubtotal:   types.Zero(),
		AncillarySubtotal: types.Zero(),
		Discount:          types.Zero(),
		ShippingCost:      types.Zero(),
		GrandTotal:        types.Zero(),
		Lines:             make([]Line, 0),
		Ancillaries:       make([]AncillaryLine, 0),
	}
}

// RecomputeTotals rebuilds every derived total from the lines. It is
// the only place totals are computed; every mutation calls it.
func (o *Order) RecomputeTotals() {
	catalog := types.Zero()
	for _, l := range o.Lines {
		catalog = catalog.Add(l.Subtotal)
	}
	ancillary := types.Zero()
	for _, a := range o.Ancillaries {
		ancillary = ancillary.Add(a.Subtotal)
	}

	o.CatalogSubtotal = types.RoundMoney(catalog)
	o.AncillarySubtotal = types.RoundMoney(ancillary)
	o.GrandTotal = types.RoundMoney(
		o.CatalogSubtotal.
			Add(o.AncillarySubtotal).
			Add(o.ShippingCost).
			Sub(o.Discount))
}

// Validate implements entity.Validatable interface.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if !ValidChannel(o.Channel) {
		return apperror.NewValidation("invalid sale channel").
			WithDetail("field", "channel").
			WithDetail("value", string(o.Channel))
	}

	if !ValidStatus(o.Status) {
		return apperror.NewValidation("invalid order status").
			WithDetail("field", "status").
			WithDetail("value", string(o.Status))
	}

	if !customer.ValidTier(o.Tier) {
		return apperror.NewValidation("invalid pricing tier").
			WithDetail("field", "tier").
			WithDetail("value", string(o.Tier))
	}

	if o.Channel == ChannelDomicilio {
		if o.CustomerID == nil || id.IsNil(*o.CustomerID) {
			return apperror.NewValidation("delivery orders require a customer").
				WithDetail("field", "customerId")
		}
		if o.DeliveryAddressID == nil || id.IsNil(*o.DeliveryAddressID) {
			return apperror.NewValidation("delivery orders require a delivery address").
				WithDetail("field", "deliveryAddressId")
		}
	}

	if o.Discount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discount")
	}
	if o.ShippingCost.IsNegative() {
		return apperror.NewValidation("shipping cost cannot be negative").
			WithDetail("field", "shippingCost")
	}

	if o.PaymentMethod != nil && !cashbook.ValidPaymentMethod(*o.PaymentMethod) {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(*o.PaymentMethod))
	}

	return nil
}

// CanModifyLines returns a state conflict when the order is frozen.
func (o *Order) CanModifyLines() error {
	if !o.Status.AllowsLineChanges() {
		return apperror.NewStateConflict("order lines cannot be modified in this status").
			WithDetail("orderId", o.ID.String()).
			WithDetail("status", string(o.Status))
	}
	return nil
}

// LineDescription builds the display description for a catalog line.
func LineDescription(itemName, modificationName string) string {
	if modificationName == "" {
		return itemName
	}
	return strings.TrimSpace(itemName + " " + modificationName)
}

// FindLine returns the catalog line with the given id.
func (o *Order) FindLine(lineID id.ID) (*Line, bool) {
	for i := range o.Lines {
		if o.Lines[i].LineID == lineID {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// FindAncillary returns the ancillary line with the given id and its
// position in insertion order.
func (o *Order) FindAncillary(lineID id.ID) (*AncillaryLine, int, bool) {
	for i := range o.Ancillaries {
		if o.Ancillaries[i].LineID == lineID {
			return &o.Ancillaries[i], i, true
		}
	}
	return nil, -1, false
}

// renumberLines keeps LineNo equal to the 1-based position.
func (o *Order) renumberLines() {
	for i := range o.Lines {
		o.Lines[i].LineNo = i + 1
	}
	for i := range o.Ancillaries {
		o.Ancillaries[i].LineNo = i + 1
	}
}
