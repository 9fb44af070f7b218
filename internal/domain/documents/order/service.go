package order

import (
	"context"
	"fmt"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/settings"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/tx"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/audit"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/price"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
	"github.com/Essau-dev/PolleriaMontiel/pkg/logger"
)

// PriceResolver yields the unit price for a line. Implemented by the
// price service.
type PriceResolver interface {
	Resolve(ctx context.Context, item product.ItemRef, tier customer.Tier, qty types.Weight) (price.Quote, error)
}

// Catalog answers item questions the line engine needs. Implemented by
// an adapter over the product services.
type Catalog interface {
	// ResolveItem returns display name, unit and active flag for an item.
	ResolveItem(ctx context.Context, item product.ItemRef) (name string, unit string, active bool, err error)

	// ModificationName returns the display name of a modification.
	ModificationName(ctx context.Context, modID id.ID) (string, error)

	// ModificationAppliesTo reports whether the modification is linked
	// to the item.
	ModificationAppliesTo(ctx context.Context, modID id.ID, item product.ItemRef) (bool, error)
}

// TierSource yields the pricing tier for an optional customer.
// Implemented by the customer service.
type TierSource interface {
	TierFor(ctx context.Context, customerID *id.ID) (customer.Tier, error)
}

// Ledger records the money side of payments. Implemented by the
// cashbook service.
type Ledger interface {
	RecordSale(ctx context.Context, userID id.ID, p cashbook.SalePayment) (*cashbook.SaleReceipt, error)
	RecordCourierSettlement(ctx context.Context, userID id.ID, orderID id.ID, amount types.Money, counts []cashbook.DenominationCount) (*cashbook.Movement, error)
}

// Service provides business operations for orders.
type Service struct {
	repo      Repository
	prices    PriceResolver
	catalog   Catalog
	tiers     TierSource
	ledger    Ledger
	txManager tx.Manager
	settings  settings.Settings
}

// NewService creates a new order service.
func NewService(
	repo Repository,
	prices PriceResolver,
	catalog Catalog,
	tiers TierSource,
	ledger Ledger,
	txManager tx.Manager,
	cfg settings.Settings,
) *Service {
	return &Service{
		repo:      repo,
		prices:    prices,
		catalog:   catalog,
		tiers:     tiers,
		ledger:    ledger,
		txManager: txManager,
		settings:  cfg,
	}
}

// CreateInput carries the order header fields.
type CreateInput struct {
	Channel           Channel
	CustomerID        *id.ID
	DeliveryAddressID *id.ID
	CourierID         *id.ID
	ScheduledFor      *time.Time
	RequiresInvoice   bool
	Comment           string
}

// Create opens a new order with the customer's tier snapshot.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	tier, err := s.tiers.TierFor(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	o := NewOrder(in.Channel, tier)
	o.CustomerID = in.CustomerID
	o.DeliveryAddressID = in.DeliveryAddressID
	o.CourierID = in.CourierID
	o.ScheduledFor = in.ScheduledFor
	o.RequiresInvoice = in.RequiresInvoice
	o.Comment = in.Comment
	audit.StampCreated(ctx, &o.CreatedBy, &o.UpdatedBy)

	if err := o.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		folio, err := s.repo.NextFolio(ctx)
		if err != nil {
			return fmt.Errorf("issue folio: %w", err)
		}
		o.Number = folio
		return s.repo.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"orderId", o.ID, "folio", o.Number,
		"channel", string(o.Channel), "tier", string(o.Tier))
	return o, nil
}

// GetByID retrieves an order with all its lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("order", orderID.String())
		}
		return nil, err
	}
	if err := s.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) loadLines(ctx context.Context, o *Order) error {
	lines, err := s.repo.GetLines(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("get lines: %w", err)
	}
	o.Lines = lines

	ancillaries, err := s.repo.GetAncillaries(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("get ancillaries: %w", err)
	}
	o.Ancillaries = ancillaries
	return nil
}

// List retrieves orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	return s.repo.List(ctx, filter)
}

// --- Catalog lines ---

// CatalogLineInput carries a catalog line to add or edit.
type CatalogLineInput struct {
	Item           product.ItemRef
	ModificationID *id.ID
	Quantity       types.Weight
	UnitOfMeasure  string

	// UnitPrice overrides resolution when set; when nil the price is
	// resolved through the ladder for the order's tier and quantity.
	UnitPrice *types.Money

	Notes *string
}

// AddCatalogLine appends a priced line and recomputes totals, all in
// one transaction. Resolution failure aborts the add with no partial
// state.
func (s *Service) AddCatalogLine(ctx context.Context, orderID id.ID, in CatalogLineInput) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModifyLines(); err != nil {
			return err
		}

		line, err := s.buildCatalogLine(ctx, o, in)
		if err != nil {
			return err
		}

		o.Lines = append(o.Lines, *line)
		o.renumberLines()
		o.RecomputeTotals()
		o.Touch()

		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) buildCatalogLine(ctx context.Context, o *Order, in CatalogLineInput) (*Line, error) {
	if err := in.Item.Validate(); err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", in.Quantity.String())
	}

	name, unit, active, err := s.catalog.ResolveItem(ctx, in.Item)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperror.NewValidation("item is inactive").
			WithDetail("item", in.Item.String())
	}
	if in.UnitOfMeasure != "" {
		unit = in.UnitOfMeasure
	}

	modName := ""
	if in.ModificationID != nil && !id.IsNil(*in.ModificationID) {
		applies, err := s.catalog.ModificationAppliesTo(ctx, *in.ModificationID, in.Item)
		if err != nil {
			return nil, err
		}
		if !applies {
			return nil, apperror.NewValidation("modification is not linked to this item").
				WithDetail("modificationId", in.ModificationID.String()).
				WithDetail("item", in.Item.String())
		}
		modName, err = s.catalog.ModificationName(ctx, *in.ModificationID)
		if err != nil {
			return nil, err
		}
	}

	unitPrice, err := s.lineUnitPrice(ctx, o, in)
	if err != nil {
		return nil, err
	}

	line := &Line{
		LineID:         id.New(),
		Item:           in.Item,
		ModificationID: in.ModificationID,
		Description:    LineDescription(name, modName),
		Quantity:       in.Quantity,
		UnitOfMeasure:  unit,
		UnitPrice:      unitPrice,
		Notes:          in.Notes,
	}
	line.ComputeSubtotal()
	return line, nil
}

func (s *Service) lineUnitPrice(ctx context.Context, o *Order, in CatalogLineInput) (types.Money, error) {
	if in.UnitPrice != nil {
		if !in.UnitPrice.IsPositive() {
			return types.Zero(), apperror.NewValidation("explicit unit price must be positive").
				WithDetail("unitPrice", in.UnitPrice.String())
		}
		return types.RoundMoney(*in.UnitPrice), nil
	}
	quote, err := s.prices.Resolve(ctx, in.Item, o.Tier, in.Quantity)
	if err != nil {
		return types.Zero(), err
	}
	return quote.PricePerKg, nil
}

// UpdateCatalogLine edits a line. A nil UnitPrice re-resolves against
// the ladder with the new quantity; a set one is taken verbatim.
func (s *Service) UpdateCatalogLine(ctx context.Context, orderID, lineID id.ID, in CatalogLineInput) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModifyLines(); err != nil {
			return err
		}

		line, ok := o.FindLine(lineID)
		if !ok {
			return apperror.NewNotFound("order line", lineID.String())
		}
		if !in.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("quantity", in.Quantity.String())
		}

		// The item reference of an existing line does not change;
		// replace the line instead.
		in.Item = line.Item
		in.ModificationID = line.ModificationID

		unitPrice, err := s.lineUnitPrice(ctx, o, in)
		if err != nil {
			return err
		}

		line.Quantity = in.Quantity
		line.UnitPrice = unitPrice
		if in.Notes != nil {
			line.Notes = in.Notes
		}
		line.ComputeSubtotal()

		o.RecomputeTotals()
		o.Touch()
		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveCatalogLine deletes a line and recomputes totals.
func (s *Service) RemoveCatalogLine(ctx context.Context, orderID, lineID id.ID) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModifyLines(); err != nil {
			return err
		}

		kept := o.Lines[:0]
		found := false
		for _, l := range o.Lines {
			if l.LineID == lineID {
				found = true
				continue
			}
			kept = append(kept, l)
		}
		if !found {
			return apperror.NewNotFound("order line", lineID.String())
		}
		o.Lines = kept

		o.renumberLines()
		o.RecomputeTotals()
		o.Touch()
		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// --- Ancillary lines ---

// AncillaryInput carries an ancillary line to add or edit.
type AncillaryInput struct {
	Name          string
	Quantity      types.Weight
	UnitOfMeasure string

	// PurchaseCost is required unless SalePrice is given
	PurchaseCost *types.Money

	// SalePrice overrides the commission rule when set
	SalePrice *types.Money

	Notes *string
}

// AddAncillaryLine appends a resale line under the commission rule:
// the first FreeAncillaryLimit lines carry no commission, every later
// one carries the fixed commission folded into its sale price. An
// explicit sale price bypasses the rule with zero commission.
func (s *Service) AddAncillaryLine(ctx context.Context, orderID id.ID, in AncillaryInput) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModifyLines(); err != nil {
			return err
		}

		position := len(o.Ancillaries)
		line, err := s.buildAncillaryLine(in, position)
		if err != nil {
			return err
		}

		o.Ancillaries = append(o.Ancillaries, *line)
		o.renumberLines()
		o.RecomputeTotals()
		o.Touch()

		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) buildAncillaryLine(in AncillaryInput, position int) (*AncillaryLine, error) {
	if in.Name == "" {
		return nil, apperror.NewValidation("ancillary name is required").
			WithDetail("field", "name")
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", in.Quantity.String())
	}

	salePrice, commission, err := s.ancillaryPricing(in, position)
	if err != nil {
		return nil, err
	}

	unit := in.UnitOfMeasure
	if unit == "" {
		unit = "pza"
	}

	line := &AncillaryLine{
		LineID:        id.New(),
		Name:          in.Name,
		Quantity:      in.Quantity,
		UnitOfMeasure: unit,
		PurchaseCost:  in.PurchaseCost,
		SalePrice:     salePrice,
		Commission:    commission,
		Notes:         in.Notes,
	}
	line.ComputeSubtotal()
	return line, nil
}

// ancillaryPricing applies the commission rule for a line at the given
// zero-based position in the order's ancillary list.
func (s *Service) ancillaryPricing(in AncillaryInput, position int) (salePrice, commission types.Money, err error) {
	if in.SalePrice != nil {
		if !in.SalePrice.IsPositive() {
			return types.Zero(), types.Zero(), apperror.NewValidation("explicit sale price must be positive").
				WithDetail("salePrice", in.SalePrice.String())
		}
		return types.RoundMoney(*in.SalePrice), types.Zero(), nil
	}

	if in.PurchaseCost == nil {
		return types.Zero(), types.Zero(), apperror.NewValidation("purchase cost is required without an explicit sale price").
			WithDetail("field", "purchaseCost")
	}
	if in.PurchaseCost.IsNegative() {
		return types.Zero(), types.Zero(), apperror.NewValidation("purchase cost cannot be negative").
			WithDetail("purchaseCost", in.PurchaseCost.String())
	}

	commission = types.Zero()
	if position >= s.settings.FreeAncillaryLimit {
		commission = s.settings.FixedCommission
	}
	salePrice = types.RoundMoney(in.PurchaseCost.Add(commission))
	return salePrice, commission, nil
}

// UpdateAncillaryLine edits a line. Without an explicit sale price the
// commission is re-evaluated at the line's current position, so edits
// after removals can flip a line between free and commissioned.
func (s *Service) UpdateAncillaryLine(ctx context.Context, orderID, lineID id.ID, in AncillaryInput) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModifyLines(); err != nil {
			return err
		}

		line, position, ok := o.FindAncillary(lineID)
		if !ok {
			return apperror.NewNotFound("ancillary line", lineID.String())
		}
		if !in.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("quantity", in.Quantity.String())
		}

		salePrice, commission, err := s.ancillaryPricing(in, position)
		if err != nil {
			return err
		}

		if in.Name != "" {
			line.Name = in.Name
		}
		line.Quantity = in.Quantity
		line.PurchaseCost = in.PurchaseCost
		line.SalePrice = salePrice
		line.Commission = commission
		if in.Notes != nil {
			line.Notes = in.Notes
		}
		line.ComputeSubtotal()

		o.RecomputeTotals()
		o.Touch()
		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveAncillaryLine deletes a line and recomputes totals. Remaining
// lines keep their recorded commissions until they are next edited.
func (s *Service) RemoveAncillaryLine(ctx context.Context, orderID, lineID id.ID) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModifyLines(); err != nil {
			return err
		}

		kept := o.Ancillaries[:0]
		found := false
		for _, a := range o.Ancillaries {
			if a.LineID == lineID {
				found = true
				continue
			}
			kept = append(kept, a)
		}
		if !found {
			return apperror.NewNotFound("ancillary line", lineID.String())
		}
		o.Ancillaries = kept

		o.renumberLines()
		o.RecomputeTotals()
		o.Touch()
		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// --- Adjustments, status ---

// SetAdjustments updates discount and shipping cost and recomputes.
func (s *Service) SetAdjustments(ctx context.Context, orderID id.ID, discount, shipping types.Money) (*Order, error) {
	if discount.IsNegative() {
		return nil, apperror.NewValidation("discount cannot be negative").
			WithDetail("discount", discount.String())
	}
	if shipping.IsNegative() {
		return nil, apperror.NewValidation("shipping cost cannot be negative").
			WithDetail("shippingCost", shipping.String())
	}

	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CanModifyLines(); err != nil {
			return err
		}

		o.Discount = types.RoundMoney(discount)
		o.ShippingCost = types.RoundMoney(shipping)
		o.RecomputeTotals()
		o.Touch()
		if err := s.saveOrder(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus moves the order to a new status. Terminal states are
// frozen; paid orders cannot be cancelled.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, newStatus Status) (*Order, error) {
	if !ValidStatus(newStatus) {
		return nil, apperror.NewValidation("invalid order status").
			WithDetail("value", string(newStatus))
	}

	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if o.Status.IsCancelled() {
			return apperror.NewStateConflict("cancelled orders cannot change status").
				WithDetail("status", string(o.Status))
		}
		if o.Status.IsPaid() && newStatus.IsCancelled() {
			return apperror.NewStateConflict("paid orders cannot be cancelled").
				WithDetail("status", string(o.Status))
		}

		from := o.Status
		o.Status = newStatus
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}

		logger.Info(ctx, "order status changed",
			"orderId", o.ID, "from", string(from), "to", string(newStatus))
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignCourier puts a delivery order in the courier's hands.
func (s *Service) AssignCourier(ctx context.Context, orderID, courierID id.ID) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Channel != ChannelDomicilio {
			return apperror.NewStateConflict("only delivery orders take a courier").
				WithDetail("channel", string(o.Channel))
		}
		if o.Status.IsCancelled() || o.Status.IsPaid() {
			return apperror.NewStateConflict("order cannot be assigned in this status").
				WithDetail("status", string(o.Status))
		}

		o.CourierID = &courierID
		o.Status = StatusAsignadoARepartidor
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// --- Payment ---

// PaymentInput carries the payment of an order.
type PaymentInput struct {
	Method   cashbook.PaymentMethod
	Tendered *types.Money
	Received []cashbook.DenominationCount
}

// ProcessPayment settles an order. Cash runs through the drawer with
// tendered/change recorded on the order; electronic methods record a
// single ingress; internal credit and courtesy record the method only.
// Pay-on-delivery is deferred to the courier settlement.
func (s *Service) ProcessPayment(ctx context.Context, orderID, userID id.ID, in PaymentInput) (*Order, error) {
	if !cashbook.ValidPaymentMethod(in.Method) {
		return nil, apperror.NewValidation("invalid payment method").
			WithDetail("value", string(in.Method))
	}

	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if o.Status.IsPaid() {
			return apperror.NewStateConflict("order is already paid").
				WithDetail("status", string(o.Status))
		}
		if o.Status.IsCancelled() {
			return apperror.NewStateConflict("cancelled orders cannot be paid").
				WithDetail("status", string(o.Status))
		}
		if !o.GrandTotal.IsPositive() {
			return apperror.NewValidation("order total must be positive to take payment").
				WithDetail("grandTotal", o.GrandTotal.String())
		}

		method := in.Method
		o.PaymentMethod = &method

		switch method {
		case cashbook.MethodEfectivo:
			if in.Tendered == nil {
				return apperror.NewValidation("tendered amount is required for cash payment").
					WithDetail("field", "tendered")
			}
			receipt, err := s.ledger.RecordSale(ctx, userID, cashbook.SalePayment{
				OrderID:  o.ID,
				Method:   method,
				Amount:   o.GrandTotal,
				Tendered: types.RoundMoney(*in.Tendered),
				Received: in.Received,
			})
			if err != nil {
				return err
			}
			tendered := types.RoundMoney(*in.Tendered)
			o.Tendered = &tendered
			o.ChangeGiven = &receipt.Change
			s.markPaid(o)

		case cashbook.MethodTarjetaDebito, cashbook.MethodTarjetaCredito,
			cashbook.MethodTransferencia, cashbook.MethodQR:
			if _, err := s.ledger.RecordSale(ctx, userID, cashbook.SalePayment{
				OrderID: o.ID,
				Method:  method,
				Amount:  o.GrandTotal,
			}); err != nil {
				return err
			}
			s.markPaid(o)

		case cashbook.MethodCreditoInterno, cashbook.MethodCortesia:
			// No drawer movement; the method alone settles the order.
			s.markPaid(o)

		case cashbook.MethodEfectivoContraEntrega:
			// Status untouched; the courier settlement collects later.
		}

		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}

		logger.Info(ctx, "order payment processed",
			"orderId", o.ID, "method", string(method),
			"grandTotal", o.GrandTotal.String())
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// markPaid applies the channel-dependent paid status.
func (s *Service) markPaid(o *Order) {
	switch o.Channel {
	case ChannelMostrador:
		o.Status = StatusEntregadoYPagado
	case ChannelDomicilio:
		o.Status = StatusPagado
	}
}

// SettleDelivery records the cash a courier brings back for a
// pay-on-delivery order and closes it as delivered and paid.
func (s *Service) SettleDelivery(ctx context.Context, orderID, userID id.ID, counts []cashbook.DenominationCount) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if !o.Status.AllowsCourierSettlement() {
			return apperror.NewStateConflict("order is not out for delivery settlement").
				WithDetail("status", string(o.Status))
		}

		if _, err := s.ledger.RecordCourierSettlement(ctx, userID, o.ID, o.GrandTotal, counts); err != nil {
			return err
		}

		method := cashbook.MethodEfectivo
		o.PaymentMethod = &method
		o.Status = StatusEntregadoYPagado
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}

		logger.Info(ctx, "delivery settled",
			"orderId", o.ID, "amount", o.GrandTotal.String())
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// saveOrder persists the header and both table parts.
func (s *Service) saveOrder(ctx context.Context, o *Order) error {
	audit.StampUpdated(ctx, &o.UpdatedBy)
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if err := s.repo.SaveLines(ctx, o.ID, o.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	if err := s.repo.SaveAncillaries(ctx, o.ID, o.Ancillaries); err != nil {
		return fmt.Errorf("save ancillaries: %w", err)
	}
	return nil
}
