package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"86.50", "86.50"},
		{"0", "0.00"},
	}
	for _, tt := range tests {
		got := RoundMoney(MustMoney(tt.in))
		assert.Equal(t, tt.want, got.StringFixed(2), "round %s", tt.in)
	}
}

func TestWithinCent(t *testing.T) {
	assert.True(t, WithinCent(MustMoney("650.50"), MustMoney("650.50")))
	assert.True(t, WithinCent(MustMoney("650.50"), MustMoney("650.51")))
	assert.True(t, WithinCent(MustMoney("650.51"), MustMoney("650.50")))
	assert.False(t, WithinCent(MustMoney("650.50"), MustMoney("650.52")))
}

func TestWeightParsing(t *testing.T) {
	tests := []struct {
		in     string
		scaled int64
	}{
		{"0.5", 500},
		{"1.250", 1250},
		{"8", 8000},
		{"12.3456", 12345}, // extra digits truncated
		{"-2.5", -2500},
	}
	for _, tt := range tests {
		w, err := NewWeightFromString(tt.in)
		require.NoError(t, err, "parse %s", tt.in)
		assert.Equal(t, tt.scaled, w.Int64Scaled(), "parse %s", tt.in)
	}

	_, err := NewWeightFromString("")
	assert.Error(t, err)
	_, err = NewWeightFromString("abc")
	assert.Error(t, err)
	_, err = NewWeightFromString("1e3")
	assert.Error(t, err)
	_, err = NewWeightFromString("2.5E-1")
	assert.Error(t, err)
}

func TestWeightJSONRoundTrip(t *testing.T) {
	w := MustWeight("3.141")
	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Equal(t, "3.141", string(data))

	var back Weight
	require.NoError(t, json.Unmarshal([]byte(`"2.750"`), &back))
	assert.Equal(t, MustWeight("2.750"), back)
	require.NoError(t, json.Unmarshal([]byte(`2.75`), &back))
	assert.Equal(t, MustWeight("2.750"), back)
}

func TestWeightDecimal(t *testing.T) {
	w := MustWeight("2.500")
	price := MustMoney("120.00")
	subtotal := RoundMoney(w.Decimal().Mul(price))
	assert.Equal(t, "300.00", subtotal.StringFixed(2))
}
