package order

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/settings"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/price"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
)

// --- fakes ---

type fakeOrderRepo struct {
	orders      map[id.ID]*Order
	lines       map[id.ID][]Line
	ancillaries map[id.ID][]AncillaryLine
	folio       int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:      make(map[id.ID]*Order),
		lines:       make(map[id.ID][]Line),
		ancillaries: make(map[id.ID][]AncillaryLine),
	}
}

func (f *fakeOrderRepo) Create(_ context.Context, o *Order) error {
	stored := *o
	f.orders[o.ID] = &stored
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, orderID id.ID) (*Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID.String())
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderRepo) Update(_ context.Context, o *Order) error {
	if _, ok := f.orders[o.ID]; !ok {
		return apperror.NewNotFound("order", o.ID.String())
	}
	stored := *o
	f.orders[o.ID] = &stored
	return nil
}

func (f *fakeOrderRepo) SaveLines(_ context.Context, orderID id.ID, lines []Line) error {
	f.lines[orderID] = append([]Line(nil), lines...)
	return nil
}

func (f *fakeOrderRepo) SaveAncillaries(_ context.Context, orderID id.ID, lines []AncillaryLine) error {
	f.ancillaries[orderID] = append([]AncillaryLine(nil), lines...)
	return nil
}

func (f *fakeOrderRepo) GetLines(_ context.Context, orderID id.ID) ([]Line, error) {
	return append([]Line(nil), f.lines[orderID]...), nil
}

func (f *fakeOrderRepo) GetAncillaries(_ context.Context, orderID id.ID) ([]AncillaryLine, error) {
	return append([]AncillaryLine(nil), f.ancillaries[orderID]...), nil
}

func (f *fakeOrderRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*Order], error) {
	out := make([]*Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return domain.ListResult[*Order]{Items: out, TotalCount: int64(len(out))}, nil
}

func (f *fakeOrderRepo) NextFolio(_ context.Context) (string, error) {
	f.folio++
	return fmt.Sprintf("PED-%06d", f.folio), nil
}

type fakeResolver struct {
	prices map[string]types.Money // key item.String()|tier
}

func (f *fakeResolver) Resolve(_ context.Context, item product.ItemRef, tier customer.Tier, qty types.Weight) (price.Quote, error) {
	if p, ok := f.prices[item.String()+"|"+string(tier)]; ok {
		return price.Quote{PricePerKg: p, RuleID: id.New()}, nil
	}
	return price.Quote{}, apperror.NewNoApplicablePrice(item.String(), string(tier), qty.String())
}

type fakeCatalog struct {
	names    map[string]string // item.String() -> name
	inactive map[string]bool
	links    map[string]bool // modID|item.String() -> linked
	modNames map[id.ID]string
}

func (f *fakeCatalog) ResolveItem(_ context.Context, item product.ItemRef) (string, string, bool, error) {
	name, ok := f.names[item.String()]
	if !ok {
		return "", "", false, apperror.NewNotFound("item", item.String())
	}
	return name, "kg", !f.inactive[item.String()], nil
}

func (f *fakeCatalog) ModificationName(_ context.Context, modID id.ID) (string, error) {
	if name, ok := f.modNames[modID]; ok {
		return name, nil
	}
	return "", apperror.NewNotFound("modification", modID.String())
}

func (f *fakeCatalog) ModificationAppliesTo(_ context.Context, modID id.ID, item product.ItemRef) (bool, error) {
	return f.links[modID.String()+"|"+item.String()], nil
}

type fakeTiers struct {
	tiers map[id.ID]customer.Tier
}

func (f *fakeTiers) TierFor(_ context.Context, customerID *id.ID) (customer.Tier, error) {
	if customerID == nil || id.IsNil(*customerID) {
		return customer.DefaultTier, nil
	}
	if tier, ok := f.tiers[*customerID]; ok {
		return tier, nil
	}
	return "", apperror.NewNotFound("customer", customerID.String())
}

type ledgerCall struct {
	payment    cashbook.SalePayment
	settlement types.Money
}

type fakeLedger struct {
	calls  []ledgerCall
	change types.Money
}

func (f *fakeLedger) RecordSale(_ context.Context, _ id.ID, p cashbook.SalePayment) (*cashbook.SaleReceipt, error) {
	f.calls = append(f.calls, ledgerCall{payment: p})
	change := types.Zero()
	if p.Method == cashbook.MethodEfectivo {
		change = types.RoundMoney(p.Tendered.Sub(p.Amount))
	}
	f.change = change
	return &cashbook.SaleReceipt{Change: change}, nil
}

func (f *fakeLedger) RecordCourierSettlement(_ context.Context, _ id.ID, orderID id.ID, amount types.Money, _ []cashbook.DenominationCount) (*cashbook.Movement, error) {
	f.calls = append(f.calls, ledgerCall{settlement: amount})
	move := cashbook.NewMovement(cashbook.Ingreso, cashbook.MethodEfectivo, amount, id.New(), "Liquidación de repartidor")
	move.OrderID = &orderID
	return move, nil
}

type noopTx struct{}

func (noopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	svc    *Service
	repo   *fakeOrderRepo
	ledger *fakeLedger
}

func newTestEnv() *testEnv {
	repo := newFakeOrderRepo()
	resolver := &fakeResolver{prices: map[string]types.Money{
		"product:PECH|PUBLICO": mxn("120.00"),
		"product:PECH|COCINA":  mxn("105.00"),
	}}
	catalog := &fakeCatalog{
		names:    map[string]string{"product:PECH": "Pechuga"},
		inactive: map[string]bool{},
		links:    map[string]bool{},
		modNames: map[id.ID]string{},
	}
	tiers := &fakeTiers{tiers: map[id.ID]customer.Tier{}}
	ledger := &fakeLedger{}

	svc := NewService(repo, resolver, catalog, tiers, ledger, noopTx{}, settings.Default())
	return &testEnv{svc: svc, repo: repo, ledger: ledger}
}

func (e *testEnv) newOrder(t *testing.T) *Order {
	t.Helper()
	o, err := e.svc.Create(context.Background(), CreateInput{Channel: ChannelMostrador})
	require.NoError(t, err)
	return o
}

func costInput(name, cost string) AncillaryInput {
	c := mxn(cost)
	return AncillaryInput{Name: name, Quantity: kg("1"), PurchaseCost: &c}
}

// --- tests ---

func TestCreateOrderSnapshotsTier(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	custID := id.New()
	env.svc.tiers.(*fakeTiers).tiers[custID] = customer.TierCocina

	o, err := env.svc.Create(ctx, CreateInput{Channel: ChannelMostrador, CustomerID: &custID})
	require.NoError(t, err)
	assert.Equal(t, customer.TierCocina, o.Tier)
	assert.Equal(t, "PED-000001", o.Number)
	assert.Equal(t, StatusPendienteConfirmacion, o.Status)
}

func TestAddCatalogLineResolvesPrice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	updated, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("2.500"),
	})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	line := updated.Lines[0]
	assert.True(t, line.UnitPrice.Equal(mxn("120.00")))
	assert.True(t, line.Subtotal.Equal(mxn("300.00")))
	assert.Equal(t, "Pechuga", line.Description)
	assert.True(t, updated.GrandTotal.Equal(mxn("300.00")))
	totalsInvariant(t, updated)
}

func TestAddCatalogLineExplicitPriceSkipsResolution(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	override := mxn("99.00")
	updated, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:      product.RefProduct("PECH"),
		Quantity:  kg("1"),
		UnitPrice: &override,
	})
	require.NoError(t, err)
	assert.True(t, updated.Lines[0].UnitPrice.Equal(mxn("99.00")))
}

func TestAddCatalogLineResolutionFailureAborts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	// No MAYOREO ladder exists for PECH in the fake resolver.
	env.repo.orders[o.ID].Tier = customer.TierMayoreo

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("2"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoApplicablePrice, appErr.Code)

	// Nothing was persisted.
	assert.Empty(t, env.repo.lines[o.ID])
	stored, _ := env.repo.GetByID(ctx, o.ID)
	assert.True(t, stored.GrandTotal.IsZero())
}

func TestAddCatalogLineRejectsUnlinkedModification(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	modID := id.New()
	env.svc.catalog.(*fakeCatalog).modNames[modID] = "Aplanada"
	// No link registered for PECH.

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:           product.RefProduct("PECH"),
		ModificationID: &modID,
		Quantity:       kg("1"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestAddCatalogLineWithModificationDescription(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	modID := id.New()
	cat := env.svc.catalog.(*fakeCatalog)
	cat.modNames[modID] = "Aplanada"
	cat.links[modID.String()+"|product:PECH"] = true

	updated, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:           product.RefProduct("PECH"),
		ModificationID: &modID,
		Quantity:       kg("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Pechuga Aplanada", updated.Lines[0].Description)
}

func TestAddCatalogLineRejectsInactiveItem(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	env.svc.catalog.(*fakeCatalog).inactive["product:PECH"] = true

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("1"),
	})
	require.Error(t, err)
}

func TestLineMutationsKeepTotalsInvariant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	updated, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("2"),
	})
	require.NoError(t, err)
	totalsInvariant(t, updated)
	lineID := updated.Lines[0].LineID

	updated, err = env.svc.UpdateCatalogLine(ctx, o.ID, lineID, CatalogLineInput{
		Quantity: kg("3.250"),
	})
	require.NoError(t, err)
	totalsInvariant(t, updated)
	assert.True(t, updated.Lines[0].Subtotal.Equal(mxn("390.00")))

	updated, err = env.svc.SetAdjustments(ctx, o.ID, mxn("15.00"), mxn("40.00"))
	require.NoError(t, err)
	totalsInvariant(t, updated)
	assert.True(t, updated.GrandTotal.Equal(mxn("415.00")))

	updated, err = env.svc.RemoveCatalogLine(ctx, o.ID, lineID)
	require.NoError(t, err)
	totalsInvariant(t, updated)
	assert.Empty(t, updated.Lines)
	assert.True(t, updated.GrandTotal.Equal(mxn("25.00")), "shipping minus discount remains")
}

func TestCommissionThreshold(t *testing.T) {
	// With the default limit of 3, the first three cost-based lines are
	// free and the fourth earns the fixed commission.
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	var updated *Order
	var err error
	for i := 0; i < 3; i++ {
		updated, err = env.svc.AddAncillaryLine(ctx, o.ID, costInput("Refresco", "20.00"))
		require.NoError(t, err)
	}

	for _, a := range updated.Ancillaries {
		assert.True(t, a.Commission.IsZero(), "line %d commissioned early", a.LineNo)
		assert.True(t, a.SalePrice.Equal(mxn("20.00")))
	}

	updated, err = env.svc.AddAncillaryLine(ctx, o.ID, costInput("Tortillas", "18.00"))
	require.NoError(t, err)

	fourth := updated.Ancillaries[3]
	assert.True(t, fourth.Commission.Equal(mxn("4.00")), "commission %s", fourth.Commission)
	assert.True(t, fourth.SalePrice.Equal(mxn("22.00")), "sale price %s", fourth.SalePrice)
	totalsInvariant(t, updated)
}

func TestExplicitSalePriceZeroCommission(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	for i := 0; i < 4; i++ {
		_, err := env.svc.AddAncillaryLine(ctx, o.ID, costInput("Refresco", "20.00"))
		require.NoError(t, err)
	}

	// Fifth line is past the limit, but the explicit price wins.
	explicit := mxn("30.00")
	updated, err := env.svc.AddAncillaryLine(ctx, o.ID, AncillaryInput{
		Name:      "Carbón",
		Quantity:  kg("1"),
		SalePrice: &explicit,
	})
	require.NoError(t, err)

	fifth := updated.Ancillaries[4]
	assert.True(t, fifth.Commission.IsZero())
	assert.True(t, fifth.SalePrice.Equal(mxn("30.00")))
}

func TestAncillaryRequiresCostWithoutExplicitPrice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	_, err := env.svc.AddAncillaryLine(ctx, o.ID, AncillaryInput{
		Name:     "Refresco",
		Quantity: kg("1"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestEditRecommissionsAtCurrentPosition(t *testing.T) {
	// Removing early lines and then editing the last one flips it back
	// to free, the carried-forward recompute-on-edit behavior.
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	var updated *Order
	var err error
	for i := 0; i < 4; i++ {
		updated, err = env.svc.AddAncillaryLine(ctx, o.ID, costInput("Refresco", "20.00"))
		require.NoError(t, err)
	}
	fourthID := updated.Ancillaries[3].LineID
	assert.True(t, updated.Ancillaries[3].Commission.Equal(mxn("4.00")))

	// Remove the first line: the fourth moves to position 2 (0-based).
	_, err = env.svc.RemoveAncillaryLine(ctx, o.ID, updated.Ancillaries[0].LineID)
	require.NoError(t, err)

	updated, err = env.svc.UpdateAncillaryLine(ctx, o.ID, fourthID, costInput("Refresco", "20.00"))
	require.NoError(t, err)

	edited, _, ok := updated.FindAncillary(fourthID)
	require.True(t, ok)
	assert.True(t, edited.Commission.IsZero(), "commission should drop after earlier removal")
	assert.True(t, edited.SalePrice.Equal(mxn("20.00")))
	totalsInvariant(t, updated)
}

func TestFrozenOrderRejectsLineChanges(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	env.repo.orders[o.ID].Status = StatusPagado

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("1"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))

	_, err = env.svc.AddAncillaryLine(ctx, o.ID, costInput("Refresco", "20.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestProcessCashPayment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)
	cashier := id.New()

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("2"),
	})
	require.NoError(t, err)

	tendered := mxn("300.00")
	paid, err := env.svc.ProcessPayment(ctx, o.ID, cashier, PaymentInput{
		Method:   cashbook.MethodEfectivo,
		Tendered: &tendered,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusEntregadoYPagado, paid.Status)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, cashbook.MethodEfectivo, *paid.PaymentMethod)
	require.NotNil(t, paid.Tendered)
	assert.True(t, paid.Tendered.Equal(mxn("300.00")))
	require.NotNil(t, paid.ChangeGiven)
	assert.True(t, paid.ChangeGiven.Equal(mxn("60.00")))

	require.Len(t, env.ledger.calls, 1)
	call := env.ledger.calls[0].payment
	assert.True(t, call.Amount.Equal(mxn("240.00")))
	assert.True(t, call.Tendered.Equal(mxn("300.00")))
}

func TestProcessCashPaymentRequiresTendered(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("1"),
	})
	require.NoError(t, err)

	_, err = env.svc.ProcessPayment(ctx, o.ID, id.New(), PaymentInput{
		Method: cashbook.MethodEfectivo,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestProcessPaymentAlreadyPaid(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("1"),
	})
	require.NoError(t, err)
	env.repo.orders[o.ID].Status = StatusEntregadoYPagado

	_, err = env.svc.ProcessPayment(ctx, o.ID, id.New(), PaymentInput{
		Method: cashbook.MethodTransferencia,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestProcessCourtesyPaymentSkipsLedger(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	_, err := env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("1"),
	})
	require.NoError(t, err)

	paid, err := env.svc.ProcessPayment(ctx, o.ID, id.New(), PaymentInput{
		Method: cashbook.MethodCortesia,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusEntregadoYPagado, paid.Status)
	assert.Empty(t, env.ledger.calls)
}

func TestPayOnDeliveryDefersSettlement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	custID := id.New()
	addrID := id.New()
	env.svc.tiers.(*fakeTiers).tiers[custID] = customer.TierPublico
	o, err := env.svc.Create(ctx, CreateInput{
		Channel:           ChannelDomicilio,
		CustomerID:        &custID,
		DeliveryAddressID: &addrID,
	})
	require.NoError(t, err)

	_, err = env.svc.AddCatalogLine(ctx, o.ID, CatalogLineInput{
		Item:     product.RefProduct("PECH"),
		Quantity: kg("2"),
	})
	require.NoError(t, err)

	marked, err := env.svc.ProcessPayment(ctx, o.ID, id.New(), PaymentInput{
		Method: cashbook.MethodEfectivoContraEntrega,
	})
	require.NoError(t, err)

	// Method promised, no ledger entry, status unchanged.
	require.NotNil(t, marked.PaymentMethod)
	assert.Equal(t, cashbook.MethodEfectivoContraEntrega, *marked.PaymentMethod)
	assert.Empty(t, env.ledger.calls)
	assert.False(t, marked.Status.IsPaid())

	// Courier takes it out and settles.
	courier := id.New()
	_, err = env.svc.AssignCourier(ctx, o.ID, courier)
	require.NoError(t, err)

	settled, err := env.svc.SettleDelivery(ctx, o.ID, id.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusEntregadoYPagado, settled.Status)

	require.Len(t, env.ledger.calls, 1)
	assert.True(t, env.ledger.calls[0].settlement.Equal(mxn("240.00")))
}

func TestSettleDeliveryRequiresInFlightStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	_, err := env.svc.SettleDelivery(ctx, o.ID, id.New(), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestUpdateStatusGuards(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := env.newOrder(t)

	_, err := env.svc.UpdateStatus(ctx, o.ID, StatusEnPreparacion)
	require.NoError(t, err)

	env.repo.orders[o.ID].Status = StatusCanceladoPorCliente
	_, err = env.svc.UpdateStatus(ctx, o.ID, StatusEnPreparacion)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))

	env.repo.orders[o.ID].Status = StatusPagado
	_, err = env.svc.UpdateStatus(ctx, o.ID, StatusCanceladoPorNegocio)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}
