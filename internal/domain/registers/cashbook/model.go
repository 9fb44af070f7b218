// Package cashbook provides the cash drawer ledger: movements with
// denomination detail, drawer periods with reconciliation, and the
// change-making solver.
package cashbook

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/entity"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
)

// MovementType discriminates money entering or leaving the drawer.
type MovementType string

const (
	Ingreso MovementType = "INGRESO"
	Egreso  MovementType = "EGRESO"
)

// ValidMovementType reports membership in the closed set.
func ValidMovementType(t MovementType) bool {
	switch t {
	case Ingreso, Egreso:
		return true
	}
	return false
}

// PaymentMethod enumerates how an order or movement is paid.
type PaymentMethod string

const (
	MethodEfectivo              PaymentMethod = "EFECTIVO"
	MethodTarjetaDebito         PaymentMethod = "TARJETA_DEBITO"
	MethodTarjetaCredito        PaymentMethod = "TARJETA_CREDITO"
	MethodTransferencia         PaymentMethod = "TRANSFERENCIA"
	MethodQR                    PaymentMethod = "QR"
	MethodCreditoInterno        PaymentMethod = "CREDITO_INTERNO"
	MethodCortesia              PaymentMethod = "CORTESIA"
	MethodEfectivoContraEntrega PaymentMethod = "EFECTIVO_CONTRA_ENTREGA"
)

// ValidPaymentMethod reports membership in the closed set.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodEfectivo, MethodTarjetaDebito, MethodTarjetaCredito,
		MethodTransferencia, MethodQR, MethodCreditoInterno,
		MethodCortesia, MethodEfectivoContraEntrega:
		return true
	}
	return false
}

// IsCash reports whether the method moves physical cash through the
// drawer and therefore carries a denomination breakdown.
func (m PaymentMethod) IsCash() bool {
	switch m {
	case MethodEfectivo, MethodEfectivoContraEntrega:
		return true
	case MethodTarjetaDebito, MethodTarjetaCredito, MethodTransferencia,
		MethodQR, MethodCreditoInterno, MethodCortesia:
		return false
	}
	return false
}

// IsCard reports card methods, for the reconciliation buckets.
func (m PaymentMethod) IsCard() bool {
	switch m {
	case MethodTarjetaDebito, MethodTarjetaCredito:
		return true
	case MethodEfectivo, MethodTransferencia, MethodQR,
		MethodCreditoInterno, MethodCortesia, MethodEfectivoContraEntrega:
		return false
	}
	return false
}

// DrawerStatus is the lifecycle of a drawer period.
type DrawerStatus string

const (
	DrawerAbierto           DrawerStatus = "ABIERTO"
	DrawerCerradoConciliado DrawerStatus = "CERRADO_CONCILIADO"
	DrawerCerradoDiferencia DrawerStatus = "CERRADO_CON_DIFERENCIA"
)

// OpeningReason is the reason line of the synthetic movement emitted
// when a drawer opens.
const OpeningReason = "Saldo Inicial Caja"

// DenominationCount is one row of a cash breakdown.
type DenominationCount struct {
	Denomination types.Money `db:"denomination" json:"denomination"`
	Count        int         `db:"count" json:"count"`
}

// DenominationTotal sums value x count over a breakdown.
func DenominationTotal(counts []DenominationCount) types.Money {
	total := types.Zero()
	for _, c := range counts {
		total = total.Add(c.Denomination.Mul(decimal.NewFromInt(int64(c.Count))))
	}
	return types.RoundMoney(total)
}

// validateBreakdown checks every row has a positive denomination and a
// non-negative count, and the total matches the expected amount exactly.
func validateBreakdown(counts []DenominationCount, expected types.Money) error {
	for i, c := range counts {
		if !c.Denomination.IsPositive() {
			return apperror.NewValidation("denomination must be positive").
				WithDetail("row", i)
		}
		if c.Count < 0 {
			return apperror.NewValidation("denomination count cannot be negative").
				WithDetail("row", i)
		}
	}
	total := DenominationTotal(counts)
	if !total.Equal(types.RoundMoney(expected)) {
		return apperror.NewValidation("denomination breakdown does not match amount").
			WithDetail("expected", expected.String()).
			WithDetail("breakdownTotal", total.String())
	}
	return nil
}

// Movement is one ledger entry of the drawer.
type Movement struct {
	entity.BaseDocument

	// Type is ingress or egress
	Type MovementType `db:"type" json:"type"`

	// Method is how the money moved
	Method PaymentMethod `db:"method" json:"method"`

	// Amount is always positive; Type carries the sign
	Amount types.Money `db:"amount" json:"amount"`

	// OrderID links the movement to an order, when there is one
	OrderID *id.ID `db:"order_id" json:"orderId,omitempty"`

	// PeriodID links the movement to the drawer period it happened in
	PeriodID *id.ID `db:"period_id" json:"periodId,omitempty"`

	// RecordedBy is the user who registered the movement
	RecordedBy id.ID `db:"recorded_by" json:"recordedBy"`

	// Reason is a short human description
	Reason string `db:"reason" json:"reason"`

	// Notes holds free-form remarks
	Notes *string `db:"notes" json:"notes,omitempty"`

	// OccurredAt is the business timestamp
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	// IsOpening marks the synthetic opening-balance ingress so the
	// reconciliation does not count it twice.
	IsOpening bool `db:"is_opening" json:"isOpening"`

	// Breakdown is the denomination detail, cash methods only.
	// When present it must sum to Amount exactly.
	Breakdown []DenominationCount `db:"-" json:"breakdown,omitempty"`
}

// NewMovement creates a movement with generated id and timestamp.
func NewMovement(mType MovementType, method PaymentMethod, amount types.Money, recordedBy id.ID, reason string) *Movement {
	return &Movement{
		BaseDocument: entity.NewBaseDocument(),
		Type:         mType,
		Method:       method,
		Amount:       types.RoundMoney(amount),
		RecordedBy:   recordedBy,
		Reason:       reason,
		OccurredAt:   time.Now().UTC(),
	}
}

// Validate implements entity.Validatable interface.
func (m *Movement) Validate(ctx context.Context) error {
	if !ValidMovementType(m.Type) {
		return apperror.NewValidation("invalid movement type").
			WithDetail("field", "type").
			WithDetail("value", string(m.Type))
	}

	if !ValidPaymentMethod(m.Method) {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "method").
			WithDetail("value", string(m.Method))
	}

	if !m.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount")
	}

	if m.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}

	if id.IsNil(m.RecordedBy) {
		return apperror.NewValidation("recording user is required").
			WithDetail("field", "recordedBy")
	}

	if len(m.Breakdown) > 0 {
		if !m.Method.IsCash() {
			return apperror.NewValidation("denomination breakdown only applies to cash movements").
				WithDetail("field", "breakdown")
		}
		if err := validateBreakdown(m.Breakdown, m.Amount); err != nil {
			return err
		}
	}

	return nil
}

// DrawerPeriod is one shift of the drawer for one responsible user.
type DrawerPeriod struct {
	entity.Document

	// ResponsibleID is the user accountable for the drawer
	ResponsibleID id.ID `db:"responsible_id" json:"responsibleId"`

	// OpenedAt / ClosedAt bound the period
	OpenedAt time.Time  `db:"opened_at" json:"openedAt"`
	ClosedAt *time.Time `db:"closed_at" json:"closedAt,omitempty"`

	// OpeningBalance is the counted cash at opening
	OpeningBalance types.Money `db:"opening_balance" json:"openingBalance"`

	// Reconciliation buckets, recomputed at close
	CashIn     types.Money `db:"cash_in" json:"cashIn"`
	CashOut    types.Money `db:"cash_out" json:"cashOut"`
	CardIn     types.Money `db:"card_in" json:"cardIn"`
	TransferIn types.Money `db:"transfer_in" json:"transferIn"`
	OtherIn    types.Money `db:"other_in" json:"otherIn"`

	// ClosingTheoretical = OpeningBalance + CashIn - CashOut
	ClosingTheoretical types.Money `db:"closing_theoretical" json:"closingTheoretical"`

	// ClosingCounted is the physically counted cash at close
	ClosingCounted types.Money `db:"closing_counted" json:"closingCounted"`

	// Variance = counted - theoretical, signed. Forced to zero when
	// within the one-cent tolerance.
	Variance types.Money `db:"variance" json:"variance"`

	// Status is the period lifecycle state
	Status DrawerStatus `db:"status" json:"status"`

	// Notes holds free-form remarks, editable after close
	Notes *string `db:"notes" json:"notes,omitempty"`

	// ClosingBreakdown is the counted denomination snapshot at close.
	// Closing again (before commit) replaces it wholesale.
	ClosingBreakdown []DenominationCount `db:"-" json:"closingBreakdown,omitempty"`
}

// NewDrawerPeriod opens a period for a responsible user.
func NewDrawerPeriod(responsibleID id.ID, openingBalance types.Money) *DrawerPeriod {
	p := &DrawerPeriod{
		Document:           entity.NewDocument(),
		ResponsibleID:      responsibleID,
		OpenedAt:           time.Now().UTC(),
		OpeningBalance:     types.RoundMoney(openingBalance),
		CashIn:             types.Zero(),
		CashOut:            types.Zero(),
		CardIn:             types.Zero(),
		TransferIn:         types.Zero(),
		OtherIn:            types.Zero(),
		ClosingTheoretical: types.Zero(),
		ClosingCounted:     types.Zero(),
		Variance:           types.Zero(),
		Status:             DrawerAbierto,
	}
	return p
}

// Validate implements entity.Validatable interface.
func (p *DrawerPeriod) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(p.ResponsibleID) {
		return apperror.NewValidation("responsible user is required").
			WithDetail("field", "responsibleId")
	}

	if !p.OpeningBalance.IsPositive() {
		return apperror.NewValidation("opening balance must be positive").
			WithDetail("field", "openingBalance")
	}

	return nil
}

// IsOpen reports whether the period still accepts movements.
func (p *DrawerPeriod) IsOpen() bool {
	return p.Status == DrawerAbierto
}

// Reconcile fills the closing fields from the recomputed buckets and
// the counted total, classifying the variance.
func (p *DrawerPeriod) Reconcile(counted types.Money, at time.Time) {
	p.ClosingTheoretical = types.RoundMoney(p.OpeningBalance.Add(p.CashIn).Sub(p.CashOut))
	p.ClosingCounted = types.RoundMoney(counted)
	variance := p.ClosingCounted.Sub(p.ClosingTheoretical)

	if variance.Abs().LessThanOrEqual(types.CentTolerance) {
		p.Variance = types.Zero()
		p.Status = DrawerCerradoConciliado
	} else {
		p.Variance = variance
		p.Status = DrawerCerradoDiferencia
	}

	closedAt := at
	p.ClosedAt = &closedAt
}
