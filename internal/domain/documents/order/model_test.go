package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

func mxn(s string) types.Money { return types.MustMoney(s) }
func kg(s string) types.Weight { return types.MustWeight(s) }

// totalsInvariant checks the derived-totals contract after a mutation.
func totalsInvariant(t *testing.T, o *Order) {
	t.Helper()

	catalog := types.Zero()
	for _, l := range o.Lines {
		catalog = catalog.Add(l.Subtotal)
	}
	ancillary := types.Zero()
	for _, a := range o.Ancillaries {
		ancillary = ancillary.Add(a.Subtotal)
	}
	want := types.RoundMoney(catalog.Add(ancillary).Add(o.ShippingCost).Sub(o.Discount))

	assert.True(t, o.GrandTotal.Equal(want),
		"grand total %s, want %s", o.GrandTotal, want)
}

func TestRecomputeTotals(t *testing.T) {
	o := NewOrder(ChannelMostrador, customer.TierPublico)

	line := Line{
		LineID:    id.New(),
		Item:      product.RefProduct("PECH"),
		Quantity:  kg("2.500"),
		UnitPrice: mxn("120.00"),
	}
	line.ComputeSubtotal()
	o.Lines = append(o.Lines, line)

	anc := AncillaryLine{
		LineID:    id.New(),
		Name:      "Refresco 2L",
		Quantity:  kg("2"),
		SalePrice: mxn("25.00"),
	}
	anc.ComputeSubtotal()
	o.Ancillaries = append(o.Ancillaries, anc)

	o.ShippingCost = mxn("35.00")
	o.Discount = mxn("10.00")
	o.RecomputeTotals()

	assert.True(t, o.CatalogSubtotal.Equal(mxn("300.00")), "catalog %s", o.CatalogSubtotal)
	assert.True(t, o.AncillarySubtotal.Equal(mxn("50.00")), "ancillary %s", o.AncillarySubtotal)
	assert.True(t, o.GrandTotal.Equal(mxn("375.00")), "grand %s", o.GrandTotal)
	totalsInvariant(t, o)
}

func TestLineSubtotalRounding(t *testing.T) {
	// 1.333 kg x 89.90 = 119.8367, rounds half away from zero.
	line := Line{Quantity: kg("1.333"), UnitPrice: mxn("89.90")}
	line.ComputeSubtotal()
	assert.True(t, line.Subtotal.Equal(mxn("119.84")), "got %s", line.Subtotal)
}

func TestRecomputeTotalsEmptyOrder(t *testing.T) {
	o := NewOrder(ChannelMostrador, customer.TierPublico)
	o.RecomputeTotals()

	assert.True(t, o.GrandTotal.IsZero())
	totalsInvariant(t, o)
}

func TestValidateDeliveryNeedsCustomerAndAddress(t *testing.T) {
	ctx := context.Background()

	o := NewOrder(ChannelDomicilio, customer.TierPublico)
	err := o.Validate(ctx)
	require.Error(t, err)

	custID := id.New()
	o.CustomerID = &custID
	err = o.Validate(ctx)
	require.Error(t, err)

	addrID := id.New()
	o.DeliveryAddressID = &addrID
	require.NoError(t, o.Validate(ctx))
}

func TestValidateRejectsNegativeAdjustments(t *testing.T) {
	ctx := context.Background()

	o := NewOrder(ChannelMostrador, customer.TierPublico)
	o.Discount = mxn("-1.00")
	require.Error(t, o.Validate(ctx))

	o.Discount = types.Zero()
	o.ShippingCost = mxn("-5.00")
	require.Error(t, o.Validate(ctx))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCanceladoPorCliente.IsCancelled())
	assert.True(t, StatusCanceladoPorNegocio.IsCancelled())
	assert.False(t, StatusEnRuta.IsCancelled())

	assert.True(t, StatusPagado.IsPaid())
	assert.True(t, StatusEntregadoYPagado.IsPaid())
	assert.False(t, StatusEntregadoPendientePago.IsPaid())

	assert.True(t, StatusPendienteConfirmacion.AllowsLineChanges())
	assert.False(t, StatusPagado.AllowsLineChanges())
	assert.False(t, StatusCanceladoPorCliente.AllowsLineChanges())

	assert.True(t, StatusEnRuta.AllowsCourierSettlement())
	assert.True(t, StatusEntregadoPendientePago.AllowsCourierSettlement())
	assert.False(t, StatusListoParaEntrega.AllowsCourierSettlement())
}

func TestLineDescription(t *testing.T) {
	assert.Equal(t, "Pechuga", LineDescription("Pechuga", ""))
	assert.Equal(t, "Pechuga Aplanada", LineDescription("Pechuga", "Aplanada"))
}
