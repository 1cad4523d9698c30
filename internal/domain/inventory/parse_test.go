package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-cost-etl/internal/domain/inventory"
)

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"$2.00":      "2",
		"1,234.50":   "1234.5",
		"(12.00)":    "-12",
		"-$3.10":     "-3.1",
		" 10 ":       "10",
		"1.5e2":      "150",
		"$ 1 000.25": "1000.25",
	}
	for raw, want := range cases {
		got, err := inventory.ParseDecimal(raw)
		require.NoError(t, err, raw)
		require.True(t, got.Valid, raw)
		assert.True(t, got.Decimal.Equal(decimal.RequireFromString(want)), "%q → %s, se esperaba %s", raw, got.Decimal, want)
	}

	empty, err := inventory.ParseDecimal("   ")
	require.NoError(t, err)
	assert.False(t, empty.Valid, "vacío debe ser nulo")

	_, err = inventory.ParseDecimal("N/A")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-01-05",
		"2024-01-05T00:00:00",
		"2024-01-05T13:45:10.123",
		"2024-01-05 08:00:00",
		"2024-01-05T23:00:00Z",
		"01/05/2024",
		"1/5/2024 12:00:00 AM",
		"1/5/2024",
	} {
		got, err := inventory.ParseDate(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), "%q → %s", raw, got)
	}

	_, err := inventory.ParseDate("05.01.2024")
	assert.Error(t, err)
}

func TestNormalizeText(t *testing.T) {
	assert.Nil(t, inventory.NormalizeText("  \t "))
	assert.Equal(t, "Widget Blue", *inventory.NormalizeText("  Widget   Blue "))
	// "é" compuesto y descompuesto producen la misma cadena
	assert.Equal(t, *inventory.NormalizeText("caf\u00e9"), *inventory.NormalizeText("cafe\u0301"))
}

func TestBuildKey(t *testing.T) {
	d := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Widget-0-A1-2024-01-05", inventory.BuildKey("Widget", "", "A1", d))
	assert.Equal(t, "Widget-7-A1-2024-01-05", inventory.BuildKey("Widget", "7", "A1", d))
}

func TestUnitCost(t *testing.T) {
	got := inventory.UnitCost(dec("30.00"), dec("15"), decimal.NullDecimal{})
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.NewFromInt(2)))

	fallback := inventory.UnitCost(dec("10"), dec("0"), dec("1.239"))
	require.True(t, fallback.Valid)
	assert.True(t, fallback.Decimal.Equal(decimal.RequireFromString("1.24")), "cantidad cero usa el costo informado")

	assert.False(t, inventory.UnitCost(decimal.NullDecimal{}, dec("1"), decimal.NullDecimal{}).Valid)
}
