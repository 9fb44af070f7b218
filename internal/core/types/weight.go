package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Weight is a fixed-point quantity in kilograms with 3 decimal places
// (scale = 1e3), the resolution of the shop scales.
//
// Rationale:
// - Matches Postgres NUMERIC(10,3) semantics without floating point errors
// - Stored as BIGINT in DB (scaled integer)
// - JSON remains a number with up to 3 decimals
type Weight int64

const WeightScale int64 = 1_000

func NewWeightFromFloat64(v float64) Weight {
	return Weight(math.Round(v * float64(WeightScale)))
}

// NewWeightFromString parses a decimal string such as "1.250".
func NewWeightFromString(s string) (Weight, error) {
	return parseWeightString(s)
}

// MustWeight parses a decimal string, panics on error. Use only in tests
// and seed data.
func MustWeight(s string) Weight {
	w, err := parseWeightString(s)
	if err != nil {
		panic(err)
	}
	return w
}

func NewWeightFromInt64Scaled(v int64) Weight { return Weight(v) }

func (w Weight) Int64Scaled() int64 { return int64(w) }

func (w Weight) IsZero() bool { return w == 0 }

func (w Weight) IsPositive() bool { return w > 0 }

func (w Weight) IsNegative() bool { return w < 0 }

// Decimal converts the weight to an exact decimal for price arithmetic.
func (w Weight) Decimal() decimal.Decimal {
	return decimal.New(int64(w), -3)
}

// String returns a decimal string with 3 fractional digits.
func (w Weight) String() string {
	neg := w < 0
	v := w
	if neg {
		v = -v
	}
	intPart := int64(v) / WeightScale
	frac := int64(v) % WeightScale
	if neg {
		return fmt.Sprintf("-%d.%03d", intPart, frac)
	}
	return fmt.Sprintf("%d.%03d", intPart, frac)
}

// MarshalJSON encodes Weight as JSON number (not string), preserving 3 digits.
func (w Weight) MarshalJSON() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point (3 digits).
func (w *Weight) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*w = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := parseWeightString(s)
		if err != nil {
			return err
		}
		*w = parsed
		return nil
	}

	parsed, err := parseWeightString(string(data))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func parseWeightString(s string) (Weight, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty weight")
	}

	// Exponent form is rejected; weights are plain fixed-point decimals.
	if strings.ContainsAny(s, "eE") {
		return 0, fmt.Errorf("parse weight %q: exponent form not supported", s)
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = strings.TrimPrefix(s, "-")
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimPrefix(s, "+")
	}

	parts := strings.SplitN(s, ".", 2)
	intPartStr := parts[0]
	fracStr := ""
	if len(parts) == 2 {
		fracStr = parts[1]
	}

	if intPartStr == "" {
		intPartStr = "0"
	}
	intPart, err := strconv.ParseInt(intPartStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse weight integer part: %w", err)
	}

	// Normalize fractional part to 3 digits (pad right, truncate extra digits).
	if len(fracStr) > 3 {
		fracStr = fracStr[:3]
	}
	for len(fracStr) < 3 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse weight fractional part: %w", err)
	}

	return Weight(sign * (intPart*WeightScale + frac)), nil
}
