package cashbook

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/settings"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/tx"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/audit"
	"github.com/Essau-dev/PolleriaMontiel/pkg/logger"
)

// Service provides business operations for the cash drawer.
type Service struct {
	repo      Repository
	txManager tx.Manager
	settings  settings.Settings
	now       func() time.Time
}

// NewService creates a new cashbook service.
func NewService(repo Repository, txManager tx.Manager, cfg settings.Settings) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		settings:  cfg,
		now:       time.Now,
	}
}

// --- Drawer lifecycle ---

// OpenDrawer opens a period for the user from a physical denomination
// count. The opening balance is derived from the count, never typed in,
// and the ledger starts with a synthetic opening ingress carrying the
// same breakdown.
func (s *Service) OpenDrawer(ctx context.Context, userID id.ID, counts []DenominationCount, notes *string) (*DrawerPeriod, error) {
	opening := DenominationTotal(counts)
	if !opening.IsPositive() {
		return nil, apperror.NewValidation("opening balance must be positive").
			WithDetail("openingBalance", opening.String())
	}
	if err := validateBreakdown(counts, opening); err != nil {
		return nil, err
	}

	period := NewDrawerPeriod(userID, opening)
	period.Notes = notes
	audit.StampCreated(ctx, &period.CreatedBy, &period.UpdatedBy)
	if err := period.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// One open drawer per user. The advisory lock serializes
		// concurrent opens so the check below cannot race.
		if err := s.repo.LockResponsible(ctx, userID); err != nil {
			return err
		}
		if existing, err := s.repo.FindOpenByUser(ctx, userID); err == nil {
			return apperror.NewStateConflict("user already has an open drawer").
				WithDetail("periodId", existing.ID.String())
		} else if !apperror.IsNotFound(err) {
			return fmt.Errorf("check open drawer: %w", err)
		}

		if err := s.repo.CreatePeriod(ctx, period); err != nil {
			return fmt.Errorf("create period: %w", err)
		}

		openingMove := NewMovement(Ingreso, MethodEfectivo, opening, userID, OpeningReason)
		openingMove.PeriodID = &period.ID
		openingMove.Breakdown = counts
		openingMove.IsOpening = true
		openingMove.OccurredAt = period.OpenedAt
		if err := openingMove.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.CreateMovement(ctx, openingMove); err != nil {
			return fmt.Errorf("create opening movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "drawer opened",
		"periodId", period.ID,
		"userId", userID,
		"openingBalance", opening.String())
	return period, nil
}

// CloseDrawer reconciles and closes the user's open period against a
// physical count. Within one cent of the theoretical balance the close
// is clean and the variance is recorded as zero; beyond that the
// period closes with the signed difference.
func (s *Service) CloseDrawer(ctx context.Context, userID id.ID, counted []DenominationCount, notes *string) (*DrawerPeriod, error) {
	countedTotal := DenominationTotal(counted)
	if err := validateBreakdown(counted, countedTotal); err != nil {
		return nil, err
	}

	var period *DrawerPeriod
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		period, err = s.repo.FindOpenByUser(ctx, userID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewStateConflict("user has no open drawer")
			}
			return fmt.Errorf("find open drawer: %w", err)
		}

		movements, err := s.repo.ListMovementsByPeriod(ctx, period.ID)
		if err != nil {
			return fmt.Errorf("list movements: %w", err)
		}

		s.recomputeBuckets(period, movements)
		period.Reconcile(countedTotal, s.now().UTC())
		period.ClosingBreakdown = counted
		if notes != nil {
			period.Notes = notes
		}
		audit.StampUpdated(ctx, &period.UpdatedBy)
		period.Touch()

		if err := s.repo.UpdatePeriod(ctx, period); err != nil {
			return fmt.Errorf("update period: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "drawer closed",
		"periodId", period.ID,
		"status", string(period.Status),
		"theoretical", period.ClosingTheoretical.String(),
		"counted", period.ClosingCounted.String(),
		"variance", period.Variance.String())
	return period, nil
}

// recomputeBuckets rebuilds the per-method totals from the ledger.
// The synthetic opening ingress is excluded; it is already carried in
// OpeningBalance.
func (s *Service) recomputeBuckets(period *DrawerPeriod, movements []*Movement) {
	period.CashIn = types.Zero()
	period.CashOut = types.Zero()
	period.CardIn = types.Zero()
	period.TransferIn = types.Zero()
	period.OtherIn = types.Zero()

	for _, m := range movements {
		if m.IsOpening {
			continue
		}
		switch m.Type {
		case Ingreso:
			switch {
			case m.Method.IsCash():
				period.CashIn = period.CashIn.Add(m.Amount)
			case m.Method.IsCard():
				period.CardIn = period.CardIn.Add(m.Amount)
			case m.Method == MethodTransferencia:
				period.TransferIn = period.TransferIn.Add(m.Amount)
			default:
				period.OtherIn = period.OtherIn.Add(m.Amount)
			}
		case Egreso:
			if m.Method.IsCash() {
				period.CashOut = period.CashOut.Add(m.Amount)
			}
		}
	}

	period.CashIn = types.RoundMoney(period.CashIn)
	period.CashOut = types.RoundMoney(period.CashOut)
	period.CardIn = types.RoundMoney(period.CardIn)
	period.TransferIn = types.RoundMoney(period.TransferIn)
	period.OtherIn = types.RoundMoney(period.OtherIn)
}

// UpdateNotes is the only mutation a closed period accepts.
func (s *Service) UpdateNotes(ctx context.Context, periodID id.ID, notes *string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		period, err := s.repo.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		period.Notes = notes
		period.Touch()
		return s.repo.UpdatePeriod(ctx, period)
	})
}

// CurrentOpenDrawer retrieves the user's open period, if any.
func (s *Service) CurrentOpenDrawer(ctx context.Context, userID id.ID) (*DrawerPeriod, error) {
	return s.repo.FindOpenByUser(ctx, userID)
}

// GetPeriod retrieves a period.
func (s *Service) GetPeriod(ctx context.Context, periodID id.ID) (*DrawerPeriod, error) {
	return s.repo.GetPeriod(ctx, periodID)
}

// ListPeriods retrieves periods with filtering.
func (s *Service) ListPeriods(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*DrawerPeriod], error) {
	return s.repo.ListPeriods(ctx, filter)
}

// MovementsForPeriod retrieves a period's ledger.
func (s *Service) MovementsForPeriod(ctx context.Context, periodID id.ID) ([]*Movement, error) {
	return s.repo.ListMovementsByPeriod(ctx, periodID)
}

// --- Movements ---

// RecordMovement registers a free-standing ingress or egress. When the
// recording user has an open drawer the movement is attached to it;
// otherwise it stays unassociated (allowed for off-drawer expenses).
func (s *Service) RecordMovement(ctx context.Context, m *Movement) error {
	if err := m.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if m.PeriodID == nil {
			if period, err := s.repo.FindOpenByUser(ctx, m.RecordedBy); err == nil {
				m.PeriodID = &period.ID
			} else if !apperror.IsNotFound(err) {
				return fmt.Errorf("find open drawer: %w", err)
			}
		} else {
			period, err := s.repo.GetPeriod(ctx, *m.PeriodID)
			if err != nil {
				return err
			}
			if !period.IsOpen() {
				return apperror.NewStateConflict("drawer period is closed").
					WithDetail("periodId", period.ID.String())
			}
		}
		return s.repo.CreateMovement(ctx, m)
	})
}

// DenominationStock rebuilds the drawer's current denomination counts
// from the period ledger: opening plus ingresses minus egresses.
func (s *Service) DenominationStock(ctx context.Context, periodID id.ID) ([]DenominationCount, error) {
	movements, err := s.repo.ListMovementsByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return denominationStock(movements), nil
}

func denominationStock(movements []*Movement) []DenominationCount {
	byDenom := make(map[string]*DenominationCount)
	for _, m := range movements {
		sign := 1
		if m.Type == Egreso {
			sign = -1
		}
		for _, row := range m.Breakdown {
			key := row.Denomination.String()
			if cur, ok := byDenom[key]; ok {
				cur.Count += sign * row.Count
			} else {
				byDenom[key] = &DenominationCount{
					Denomination: row.Denomination,
					Count:        sign * row.Count,
				}
			}
		}
	}

	stock := make([]DenominationCount, 0, len(byDenom))
	for _, row := range byDenom {
		if row.Count > 0 {
			stock = append(stock, *row)
		}
	}
	sort.Slice(stock, func(i, j int) bool {
		return stock[i].Denomination.GreaterThan(stock[j].Denomination)
	})
	return stock
}

// --- Sales ---

// SalePayment describes the money side of an order payment.
type SalePayment struct {
	OrderID  id.ID
	Method   PaymentMethod
	Amount   types.Money // grand total due
	Tendered types.Money // cash only
	Received []DenominationCount
}

// SaleReceipt is what the cashier hands back.
type SaleReceipt struct {
	Change          types.Money
	ChangeBreakdown []DenominationCount
}

// RecordSale writes the ledger entries for a paid order. Cash sales
// record the tendered amount as ingress with the received breakdown
// and the change as a separate egress with the solved breakdown, so
// both movements keep the exact denomination invariant while the net
// effect on the drawer equals the grand total.
func (s *Service) RecordSale(ctx context.Context, userID id.ID, p SalePayment) (*SaleReceipt, error) {
	if !ValidPaymentMethod(p.Method) {
		return nil, apperror.NewValidation("invalid payment method").
			WithDetail("value", string(p.Method))
	}
	if !p.Amount.IsPositive() {
		return nil, apperror.NewValidation("sale amount must be positive").
			WithDetail("amount", p.Amount.String())
	}

	switch p.Method {
	case MethodEfectivo:
		return s.recordCashSale(ctx, userID, p)
	case MethodTarjetaDebito, MethodTarjetaCredito, MethodTransferencia, MethodQR:
		return s.recordElectronicSale(ctx, userID, p)
	case MethodCreditoInterno, MethodCortesia:
		// Nothing enters the drawer; the order records the method.
		return &SaleReceipt{Change: types.Zero()}, nil
	case MethodEfectivoContraEntrega:
		// Settled later through the courier settlement.
		return &SaleReceipt{Change: types.Zero()}, nil
	}
	return nil, apperror.NewValidation("invalid payment method").
		WithDetail("value", string(p.Method))
}

func (s *Service) recordCashSale(ctx context.Context, userID id.ID, p SalePayment) (*SaleReceipt, error) {
	if p.Tendered.LessThan(p.Amount) {
		return nil, apperror.NewInsufficientPayment(p.Amount.String(), p.Tendered.String())
	}
	if err := validateBreakdown(p.Received, p.Tendered); err != nil {
		return nil, err
	}

	change := types.RoundMoney(p.Tendered.Sub(p.Amount))
	receipt := &SaleReceipt{Change: change}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		period, err := s.repo.FindOpenByUser(ctx, userID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewStateConflict("cash sales require an open drawer")
			}
			return fmt.Errorf("find open drawer: %w", err)
		}

		movements, err := s.repo.ListMovementsByPeriod(ctx, period.ID)
		if err != nil {
			return fmt.Errorf("list movements: %w", err)
		}

		if change.IsPositive() {
			// The bills just received are in the drawer before change
			// is handed back, so they count as available stock.
			stock := denominationStock(movements)
			stock = mergeStock(stock, p.Received)
			breakdown, err := ComputeChange(change, stock)
			if err != nil {
				return err
			}
			receipt.ChangeBreakdown = breakdown
		}

		ingress := NewMovement(Ingreso, MethodEfectivo, p.Tendered, userID, "Pago de pedido")
		ingress.OrderID = &p.OrderID
		ingress.PeriodID = &period.ID
		ingress.Breakdown = p.Received
		if err := ingress.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.CreateMovement(ctx, ingress); err != nil {
			return fmt.Errorf("create sale ingress: %w", err)
		}

		if change.IsPositive() {
			egress := NewMovement(Egreso, MethodEfectivo, change, userID, "Cambio entregado")
			egress.OrderID = &p.OrderID
			egress.PeriodID = &period.ID
			egress.Breakdown = receipt.ChangeBreakdown
			if err := egress.Validate(ctx); err != nil {
				return err
			}
			if err := s.repo.CreateMovement(ctx, egress); err != nil {
				return fmt.Errorf("create change egress: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash sale recorded",
		"orderId", p.OrderID,
		"amount", p.Amount.String(),
		"tendered", p.Tendered.String(),
		"change", change.String())
	return receipt, nil
}

func (s *Service) recordElectronicSale(ctx context.Context, userID id.ID, p SalePayment) (*SaleReceipt, error) {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ingress := NewMovement(Ingreso, p.Method, p.Amount, userID, "Pago de pedido")
		ingress.OrderID = &p.OrderID
		if period, err := s.repo.FindOpenByUser(ctx, userID); err == nil {
			ingress.PeriodID = &period.ID
		} else if !apperror.IsNotFound(err) {
			return fmt.Errorf("find open drawer: %w", err)
		}
		if err := ingress.Validate(ctx); err != nil {
			return err
		}
		return s.repo.CreateMovement(ctx, ingress)
	})
	if err != nil {
		return nil, err
	}
	return &SaleReceipt{Change: types.Zero()}, nil
}

func mergeStock(stock, extra []DenominationCount) []DenominationCount {
	merged := make([]DenominationCount, len(stock))
	copy(merged, stock)
outer:
	for _, row := range extra {
		for i := range merged {
			if merged[i].Denomination.Equal(row.Denomination) {
				merged[i].Count += row.Count
				continue outer
			}
		}
		merged = append(merged, row)
	}
	return merged
}

// RecordCourierSettlement registers the cash a courier brings back for
// a delivered pay-on-delivery order.
func (s *Service) RecordCourierSettlement(ctx context.Context, userID id.ID, orderID id.ID, amount types.Money, counts []DenominationCount) (*Movement, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("settlement amount must be positive").
			WithDetail("amount", amount.String())
	}
	if len(counts) > 0 {
		if err := validateBreakdown(counts, amount); err != nil {
			return nil, err
		}
	}

	move := NewMovement(Ingreso, MethodEfectivo, amount, userID, "Liquidación de repartidor")
	move.OrderID = &orderID
	move.Breakdown = counts

	if err := s.RecordMovement(ctx, move); err != nil {
		return nil, err
	}
	logger.Info(ctx, "courier settlement recorded",
		"orderId", orderID, "amount", amount.String())
	return move, nil
}

// RegisterAncillaryPurchase registers the cash taken from the drawer
// to buy a resale item for an order.
func (s *Service) RegisterAncillaryPurchase(ctx context.Context, userID id.ID, orderID id.ID, amount types.Money, counts []DenominationCount, reason string) (*Movement, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("purchase amount must be positive").
			WithDetail("amount", amount.String())
	}
	if reason == "" {
		reason = "Compra de producto adicional"
	}
	if len(counts) > 0 {
		if err := validateBreakdown(counts, amount); err != nil {
			return nil, err
		}
	}

	move := NewMovement(Egreso, MethodEfectivo, amount, userID, reason)
	move.OrderID = &orderID
	move.Breakdown = counts

	if err := s.RecordMovement(ctx, move); err != nil {
		return nil, err
	}
	logger.Info(ctx, "ancillary purchase recorded",
		"orderId", orderID, "amount", amount.String())
	return move, nil
}
