package cashbook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/settings"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
)

// --- fakes ---

type fakeCashRepo struct {
	movements []*Movement
	periods   []*DrawerPeriod
	calls     []string
}

func (f *fakeCashRepo) CreateMovement(_ context.Context, m *Movement) error {
	f.movements = append(f.movements, m)
	return nil
}

func (f *fakeCashRepo) GetMovement(_ context.Context, movementID id.ID) (*Movement, error) {
	for _, m := range f.movements {
		if m.ID == movementID {
			return m, nil
		}
	}
	return nil, apperror.NewNotFound("movement", movementID.String())
}

func (f *fakeCashRepo) ListMovementsByPeriod(_ context.Context, periodID id.ID) ([]*Movement, error) {
	var out []*Movement
	for _, m := range f.movements {
		if m.PeriodID != nil && *m.PeriodID == periodID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeCashRepo) ListMovementsByOrder(_ context.Context, orderID id.ID) ([]*Movement, error) {
	var out []*Movement
	for _, m := range f.movements {
		if m.OrderID != nil && *m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeCashRepo) LockResponsible(_ context.Context, userID id.ID) error {
	f.calls = append(f.calls, "lock "+userID.String())
	return nil
}

func (f *fakeCashRepo) CreatePeriod(_ context.Context, p *DrawerPeriod) error {
	f.calls = append(f.calls, "create-period")
	f.periods = append(f.periods, p)
	return nil
}

func (f *fakeCashRepo) GetPeriod(_ context.Context, periodID id.ID) (*DrawerPeriod, error) {
	for _, p := range f.periods {
		if p.ID == periodID {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("drawer period", periodID.String())
}

func (f *fakeCashRepo) UpdatePeriod(_ context.Context, p *DrawerPeriod) error {
	for i, cur := range f.periods {
		if cur.ID == p.ID {
			f.periods[i] = p
			return nil
		}
	}
	return apperror.NewNotFound("drawer period", p.ID.String())
}

func (f *fakeCashRepo) FindOpenByUser(_ context.Context, userID id.ID) (*DrawerPeriod, error) {
	f.calls = append(f.calls, "find-open "+userID.String())
	for _, p := range f.periods {
		if p.ResponsibleID == userID && p.Status == DrawerAbierto {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("open drawer", userID.String())
}

func (f *fakeCashRepo) ListPeriods(_ context.Context, _ domain.ListFilter) (domain.ListResult[*DrawerPeriod], error) {
	return domain.ListResult[*DrawerPeriod]{
		Items:      f.periods,
		TotalCount: int64(len(f.periods)),
	}, nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *fakeCashRepo) {
	repo := &fakeCashRepo{}
	return NewService(repo, passthroughTx{}, settings.Default()), repo
}

// --- tests ---

func TestOpenDrawer(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cashier := id.New()

	period, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.NoError(t, err)

	assert.True(t, period.OpeningBalance.Equal(types.MustMoney("500.00")))
	assert.Equal(t, DrawerAbierto, period.Status)

	// The synthetic opening ingress carries the same breakdown.
	require.Len(t, repo.movements, 1)
	opening := repo.movements[0]
	assert.True(t, opening.IsOpening)
	assert.Equal(t, Ingreso, opening.Type)
	assert.Equal(t, OpeningReason, opening.Reason)
	assert.True(t, opening.Amount.Equal(types.MustMoney("500.00")))
	assert.True(t, DenominationTotal(opening.Breakdown).Equal(types.MustMoney("500.00")))
}

func TestOpenDrawerRejectsZeroBalance(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.OpenDrawer(ctx, id.New(), denoms(row("100.00", 0)), nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestOpenDrawerRejectsSecondOpen(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.NoError(t, err)

	_, err = svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestOpenDrawerLocksBeforeOpenCheck(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cashier := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.NoError(t, err)

	// The per-user lock must be held before the open-period check so
	// two simultaneous opens cannot both see "no open drawer".
	require.GreaterOrEqual(t, len(repo.calls), 2)
	assert.Equal(t, "lock "+cashier.String(), repo.calls[0])
	assert.Equal(t, "find-open "+cashier.String(), repo.calls[1])
}

func TestCloseDrawerBalanced(t *testing.T) {
	// Opening 500.00, cash in 180.50, cash out 30.00; counting 650.50
	// closes clean with zero variance.
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	period, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.NoError(t, err)

	in := NewMovement(Ingreso, MethodEfectivo, types.MustMoney("180.50"), cashier, "Venta de mostrador")
	in.PeriodID = &period.ID
	require.NoError(t, svc.RecordMovement(ctx, in))

	out := NewMovement(Egreso, MethodEfectivo, types.MustMoney("30.00"), cashier, "Compra de hielo")
	out.PeriodID = &period.ID
	require.NoError(t, svc.RecordMovement(ctx, out))

	closed, err := svc.CloseDrawer(ctx, cashier, denoms(
		row("500.00", 1),
		row("100.00", 1),
		row("50.00", 1),
		row("0.50", 1),
	), nil)
	require.NoError(t, err)

	assert.Equal(t, DrawerCerradoConciliado, closed.Status)
	assert.True(t, closed.ClosingTheoretical.Equal(types.MustMoney("650.50")),
		"theoretical %s", closed.ClosingTheoretical)
	assert.True(t, closed.ClosingCounted.Equal(types.MustMoney("650.50")))
	assert.True(t, closed.Variance.IsZero())
	assert.True(t, closed.CashIn.Equal(types.MustMoney("180.50")))
	assert.True(t, closed.CashOut.Equal(types.MustMoney("30.00")))
	require.NotNil(t, closed.ClosedAt)
}

func TestCloseDrawerWithDifference(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.NoError(t, err)

	// Counting 480.00 against a 500.00 theoretical: 20.00 short.
	closed, err := svc.CloseDrawer(ctx, cashier, denoms(
		row("100.00", 4),
		row("50.00", 1),
		row("20.00", 1),
		row("10.00", 1),
	), nil)
	require.NoError(t, err)

	assert.Equal(t, DrawerCerradoDiferencia, closed.Status)
	assert.True(t, closed.Variance.Equal(types.MustMoney("-20.00")),
		"variance %s", closed.Variance)
}

func TestCloseDrawerCentToleranceIsClean(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("0.50", 1000), row("0.50", 1)), nil)
	require.NoError(t, err)

	// Theoretical 500.50, counted 500.50: exact. Then re-close is
	// blocked because the drawer is no longer open.
	closed, err := svc.CloseDrawer(ctx, cashier, denoms(row("0.50", 1001)), nil)
	require.NoError(t, err)
	assert.Equal(t, DrawerCerradoConciliado, closed.Status)
	assert.True(t, closed.Variance.IsZero())

	_, err = svc.CloseDrawer(ctx, cashier, denoms(row("0.50", 1001)), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestCloseDrawerOneCentOverClosesClean(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.NoError(t, err)

	sale := NewMovement(Ingreso, MethodEfectivo, types.MustMoney("150.49"), cashier, "Venta de mostrador")
	require.NoError(t, svc.RecordMovement(ctx, sale))

	// Theoretical 650.49, counted 650.50: one cent over stays within
	// tolerance and the variance is normalized to exactly zero.
	closed, err := svc.CloseDrawer(ctx, cashier, denoms(row("0.50", 1301)), nil)
	require.NoError(t, err)
	assert.Equal(t, DrawerCerradoConciliado, closed.Status)
	assert.True(t, closed.Variance.IsZero(), "variance %s", closed.Variance)
	assert.True(t, closed.ClosingTheoretical.Equal(types.MustMoney("650.49")))
	assert.True(t, closed.ClosingCounted.Equal(types.MustMoney("650.50")))
}

func TestCloseDrawerTwoCentsOverKeepsSign(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 5)), nil)
	require.NoError(t, err)

	sale := NewMovement(Ingreso, MethodEfectivo, types.MustMoney("150.48"), cashier, "Venta de mostrador")
	require.NoError(t, svc.RecordMovement(ctx, sale))

	// Theoretical 650.48, counted 650.50: two cents over is past the
	// tolerance and the positive variance is kept as-is.
	closed, err := svc.CloseDrawer(ctx, cashier, denoms(row("0.50", 1301)), nil)
	require.NoError(t, err)
	assert.Equal(t, DrawerCerradoDiferencia, closed.Status)
	assert.True(t, closed.Variance.Equal(types.MustMoney("0.02")), "variance %s", closed.Variance)
}

func TestCloseDrawerSeparatesNonCashBuckets(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	period, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 2)), nil)
	require.NoError(t, err)

	card := NewMovement(Ingreso, MethodTarjetaDebito, types.MustMoney("250.00"), cashier, "Pago con tarjeta")
	card.PeriodID = &period.ID
	require.NoError(t, svc.RecordMovement(ctx, card))

	transfer := NewMovement(Ingreso, MethodTransferencia, types.MustMoney("120.00"), cashier, "Transferencia")
	transfer.PeriodID = &period.ID
	require.NoError(t, svc.RecordMovement(ctx, transfer))

	qr := NewMovement(Ingreso, MethodQR, types.MustMoney("80.00"), cashier, "Pago QR")
	qr.PeriodID = &period.ID
	require.NoError(t, svc.RecordMovement(ctx, qr))

	// Non-cash money never touches the physical drawer: theoretical
	// stays at the opening balance.
	closed, err := svc.CloseDrawer(ctx, cashier, denoms(row("100.00", 2)), nil)
	require.NoError(t, err)

	assert.True(t, closed.ClosingTheoretical.Equal(types.MustMoney("200.00")))
	assert.True(t, closed.CardIn.Equal(types.MustMoney("250.00")))
	assert.True(t, closed.TransferIn.Equal(types.MustMoney("120.00")))
	assert.True(t, closed.OtherIn.Equal(types.MustMoney("80.00")))
	assert.Equal(t, DrawerCerradoConciliado, closed.Status)
}

func TestRecordMovementRejectsBadBreakdown(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	m := NewMovement(Ingreso, MethodEfectivo, types.MustMoney("100.00"), cashier, "Venta")
	m.Breakdown = denoms(row("50.00", 1)) // sums to 50, not 100

	err := svc.RecordMovement(ctx, m)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestRecordMovementRejectsBreakdownOnCard(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	m := NewMovement(Ingreso, MethodTarjetaDebito, types.MustMoney("100.00"), id.New(), "Venta")
	m.Breakdown = denoms(row("100.00", 1))

	err := svc.RecordMovement(ctx, m)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestRecordCashSaleWithChange(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cashier := id.New()
	orderID := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(
		row("100.00", 2),
		row("20.00", 2),
		row("10.00", 1),
		row("2.00", 1),
		row("1.00", 1),
		row("0.50", 1),
	), nil)
	require.NoError(t, err)

	receipt, err := svc.RecordSale(ctx, cashier, SalePayment{
		OrderID:  orderID,
		Method:   MethodEfectivo,
		Amount:   types.MustMoney("86.50"),
		Tendered: types.MustMoney("100.00"),
		Received: denoms(row("100.00", 1)),
	})
	require.NoError(t, err)

	assert.True(t, receipt.Change.Equal(types.MustMoney("13.50")))
	assert.True(t, DenominationTotal(receipt.ChangeBreakdown).Equal(types.MustMoney("13.50")))

	// Opening ingress + sale ingress + change egress.
	require.Len(t, repo.movements, 3)
	sale := repo.movements[1]
	change := repo.movements[2]
	assert.Equal(t, Ingreso, sale.Type)
	assert.True(t, sale.Amount.Equal(types.MustMoney("100.00")))
	require.NotNil(t, sale.OrderID)
	assert.Equal(t, orderID, *sale.OrderID)
	assert.Equal(t, Egreso, change.Type)
	assert.True(t, change.Amount.Equal(types.MustMoney("13.50")))

	// Net drawer effect equals the grand total.
	net := sale.Amount.Sub(change.Amount)
	assert.True(t, net.Equal(types.MustMoney("86.50")))
}

func TestRecordCashSaleInsufficientTender(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 2)), nil)
	require.NoError(t, err)

	_, err = svc.RecordSale(ctx, cashier, SalePayment{
		OrderID:  id.New(),
		Method:   MethodEfectivo,
		Amount:   types.MustMoney("86.50"),
		Tendered: types.MustMoney("80.00"),
		Received: denoms(row("20.00", 4)),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientCash, appErr.Code)
}

func TestRecordCashSaleCannotMakeChange(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cashier := id.New()

	// Drawer holds only large bills; a 13.50 change is impossible and
	// the whole sale rolls back, leaving only the opening movement.
	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("500.00", 1)), nil)
	require.NoError(t, err)

	_, err = svc.RecordSale(ctx, cashier, SalePayment{
		OrderID:  id.New(),
		Method:   MethodEfectivo,
		Amount:   types.MustMoney("86.50"),
		Tendered: types.MustMoney("100.00"),
		Received: denoms(row("100.00", 1)),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeCannotMakeChange, appErr.Code)
	assert.Len(t, repo.movements, 1)
}

func TestRecordCashSaleRequiresOpenDrawer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, id.New(), SalePayment{
		OrderID:  id.New(),
		Method:   MethodEfectivo,
		Amount:   types.MustMoney("50.00"),
		Tendered: types.MustMoney("50.00"),
		Received: denoms(row("50.00", 1)),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestRecordElectronicSale(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cashier := id.New()
	orderID := id.New()

	receipt, err := svc.RecordSale(ctx, cashier, SalePayment{
		OrderID: orderID,
		Method:  MethodTransferencia,
		Amount:  types.MustMoney("320.00"),
	})
	require.NoError(t, err)
	assert.True(t, receipt.Change.IsZero())

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	assert.Equal(t, MethodTransferencia, m.Method)
	assert.True(t, m.Amount.Equal(types.MustMoney("320.00")))
	assert.Empty(t, m.Breakdown)
}

func TestRecordCourtesySaleLeavesNoMovement(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	receipt, err := svc.RecordSale(ctx, id.New(), SalePayment{
		OrderID: id.New(),
		Method:  MethodCortesia,
		Amount:  types.MustMoney("99.00"),
	})
	require.NoError(t, err)
	assert.True(t, receipt.Change.IsZero())
	assert.Empty(t, repo.movements)
}

func TestDenominationStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cashier := id.New()
	orderID := id.New()

	period, err := svc.OpenDrawer(ctx, cashier, denoms(
		row("100.00", 2),
		row("50.00", 1),
	), nil)
	require.NoError(t, err)

	_, err = svc.RegisterAncillaryPurchase(ctx, cashier, orderID,
		types.MustMoney("50.00"), denoms(row("50.00", 1)), "Compra de tortillas")
	require.NoError(t, err)

	stock, err := svc.DenominationStock(ctx, period.ID)
	require.NoError(t, err)

	require.Len(t, stock, 1)
	assert.True(t, stock[0].Denomination.Equal(types.MustMoney("100.00")))
	assert.Equal(t, 2, stock[0].Count)
}

func TestCourierSettlement(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cashier := id.New()
	orderID := id.New()

	_, err := svc.OpenDrawer(ctx, cashier, denoms(row("100.00", 1)), nil)
	require.NoError(t, err)

	move, err := svc.RecordCourierSettlement(ctx, cashier, orderID,
		types.MustMoney("245.00"), denoms(row("200.00", 1), row("20.00", 2), row("5.00", 1)))
	require.NoError(t, err)

	assert.Equal(t, Ingreso, move.Type)
	assert.Equal(t, MethodEfectivo, move.Method)
	require.NotNil(t, move.PeriodID)
	require.Len(t, repo.movements, 2)
}
