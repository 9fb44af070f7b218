package cashbook

import (
	"sort"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
)

// ComputeChange builds a denomination breakdown for the amount due,
// taking coins and bills from the available stock greedily from the
// largest denomination down. The running remainder is re-rounded to
// two decimals after every subtraction so cent drift cannot
// accumulate. A remainder above one cent means the stock cannot make
// the change; in that case no partial breakdown is returned.
func ComputeChange(due types.Money, available []DenominationCount) ([]DenominationCount, error) {
	remaining := types.RoundMoney(due)

	if remaining.IsNegative() {
		return nil, apperror.NewValidation("change due cannot be negative").
			WithDetail("due", due.String())
	}
	if remaining.IsZero() {
		return []DenominationCount{}, nil
	}

	stock := make([]DenominationCount, len(available))
	copy(stock, available)
	sort.Slice(stock, func(i, j int) bool {
		return stock[i].Denomination.GreaterThan(stock[j].Denomination)
	})

	var breakdown []DenominationCount
	for _, row := range stock {
		if row.Count <= 0 || !row.Denomination.IsPositive() {
			continue
		}

		taken := 0
		for taken < row.Count && row.Denomination.LessThanOrEqual(remaining) {
			remaining = types.RoundMoney(remaining.Sub(row.Denomination))
			taken++
		}
		if taken > 0 {
			breakdown = append(breakdown, DenominationCount{
				Denomination: row.Denomination,
				Count:        taken,
			})
		}
		if remaining.LessThanOrEqual(types.CentTolerance) {
			break
		}
	}

	if remaining.GreaterThan(types.CentTolerance) {
		return nil, apperror.NewCannotMakeChange(remaining.String())
	}

	return breakdown, nil
}
