// Package settings holds injected business configuration.
// Services receive a Settings value at construction time; there is no
// package-level singleton and no hidden reads from the environment.
package settings

import (
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
)

// Settings groups the tunable business parameters of the POS.
type Settings struct {
	// FreeAncillaryLimit is how many ancillary (resale) lines an order may
	// carry before each further line earns the fixed commission.
	FreeAncillaryLimit int

	// FixedCommission is the surcharge applied to each ancillary line
	// beyond FreeAncillaryLimit, in MXN.
	FixedCommission types.Money

	// Denominations is the cash denomination ladder used for drawer
	// counts and change making, strictly descending.
	Denominations []types.Money
}

// Default returns the production configuration for the shop.
func Default() Settings {
	return Settings{
		FreeAncillaryLimit: 3,
		FixedCommission:    types.MustMoney("4.00"),
		Denominations: []types.Money{
			types.MustMoney("1000.00"),
			types.MustMoney("500.00"),
			types.MustMoney("200.00"),
			types.MustMoney("100.00"),
			types.MustMoney("50.00"),
			types.MustMoney("20.00"),
			types.MustMoney("10.00"),
			types.MustMoney("5.00"),
			types.MustMoney("2.00"),
			types.MustMoney("1.00"),
			types.MustMoney("0.50"),
		},
	}
}
