package cashbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
)

func denoms(rows ...DenominationCount) []DenominationCount { return rows }

func row(value string, count int) DenominationCount {
	return DenominationCount{Denomination: types.MustMoney(value), Count: count}
}

func TestComputeChangeGreedy(t *testing.T) {
	// Due 86.50 on a 100 bill: change 13.50 from a thin drawer.
	stock := denoms(
		row("10.00", 1),
		row("5.00", 0),
		row("2.00", 1),
		row("1.00", 1),
		row("0.50", 1),
	)

	breakdown, err := ComputeChange(types.MustMoney("13.50"), stock)
	require.NoError(t, err)

	want := denoms(
		row("10.00", 1),
		row("2.00", 1),
		row("1.00", 1),
		row("0.50", 1),
	)
	require.Len(t, breakdown, len(want))
	for i, w := range want {
		assert.True(t, breakdown[i].Denomination.Equal(w.Denomination),
			"position %d: got %s", i, breakdown[i].Denomination)
		assert.Equal(t, w.Count, breakdown[i].Count, "position %d", i)
	}
	assert.True(t, DenominationTotal(breakdown).Equal(types.MustMoney("13.50")))
}

func TestComputeChangeInfeasible(t *testing.T) {
	// Only large bills: 13.50 cannot be made, and no partial
	// breakdown leaks out.
	stock := denoms(
		row("100.00", 2),
		row("10.00", 1),
	)

	breakdown, err := ComputeChange(types.MustMoney("13.50"), stock)
	require.Error(t, err)
	assert.Nil(t, breakdown)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeCannotMakeChange, appErr.Code)
	assert.Equal(t, "3.50", appErr.Details["shortfall"])
}

func TestComputeChangeZeroDue(t *testing.T) {
	breakdown, err := ComputeChange(types.Zero(), denoms(row("100.00", 5)))
	require.NoError(t, err)
	assert.Empty(t, breakdown)
}

func TestComputeChangeNegativeDue(t *testing.T) {
	_, err := ComputeChange(types.MustMoney("-1.00"), denoms(row("1.00", 5)))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestComputeChangeSkipsExhaustedDenominations(t *testing.T) {
	stock := denoms(
		row("50.00", 0),
		row("20.00", 3),
		row("10.00", 1),
		row("5.00", 2),
	)

	breakdown, err := ComputeChange(types.MustMoney("75.00"), stock)
	require.NoError(t, err)
	assert.True(t, DenominationTotal(breakdown).Equal(types.MustMoney("75.00")))

	for _, b := range breakdown {
		assert.False(t, b.Denomination.Equal(types.MustMoney("50.00")),
			"took a denomination with zero stock")
	}
}

func TestComputeChangeToleratesSubCentResidual(t *testing.T) {
	// A residual at or below one cent is forgiven rather than failed.
	stock := denoms(row("0.50", 3))

	breakdown, err := ComputeChange(types.MustMoney("1.51"), stock)
	require.NoError(t, err)
	assert.True(t, DenominationTotal(breakdown).Equal(types.MustMoney("1.50")))
}

func TestComputeChangeExactDrain(t *testing.T) {
	// Change that takes the whole drawer is fine.
	stock := denoms(
		row("20.00", 1),
		row("10.00", 1),
		row("5.00", 1),
	)

	breakdown, err := ComputeChange(types.MustMoney("35.00"), stock)
	require.NoError(t, err)
	assert.True(t, DenominationTotal(breakdown).Equal(types.MustMoney("35.00")))
}

func TestComputeChangeDoesNotMutateStock(t *testing.T) {
	stock := denoms(
		row("10.00", 2),
		row("5.00", 2),
	)

	_, err := ComputeChange(types.MustMoney("15.00"), stock)
	require.NoError(t, err)

	assert.Equal(t, 2, stock[0].Count)
	assert.Equal(t, 2, stock[1].Count)
	assert.True(t, stock[0].Denomination.Equal(types.MustMoney("10.00")))
}
