package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	got, err := Parse(decimal.RequireFromString("10.50"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("10.5")))

	_, err = Parse(decimal.RequireFromString("10.505"))
	assert.Error(t, err)
}

func TestSumNoDrift(t *testing.T) {
	t.Parallel()

	// 10,000 additions of 0.01 must land exactly on 100.00.
	cent := decimal.RequireFromString("0.01")
	total := decimal.Zero
	for i := 0; i < 10000; i++ {
		total = total.Add(cent)
	}
	assert.True(t, total.Equal(decimal.RequireFromString("100.00")), "got %s", total)
}

func TestSubtotal(t *testing.T) {
	t.Parallel()

	got := Subtotal(decimal.RequireFromString("3.33"), 3)
	assert.True(t, got.Equal(decimal.RequireFromString("9.99")))
}

func TestFloorZero(t *testing.T) {
	t.Parallel()

	assert.True(t, FloorZero(decimal.RequireFromString("-4.20")).IsZero())
	positive := decimal.RequireFromString("4.20")
	assert.True(t, FloorZero(positive).Equal(positive))
}
