package tokens

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuckets(t *testing.T) {
	tests := []struct {
		name   string
		angle  float64
		symbol string
	}{
		{"lower bound of first range", 20, "USDC"},
		{"inside first range", 27.3, "USDC"},
		{"boundary belongs to upper range", 35, "USDT"},
		{"inside second range", 42, "USDT"},
		{"inside third range", 50, "WBTC"},
		{"inside fourth range", 79.9, "WETH"},
		{"inside last range", 100, "WSOL"},
		{"last range upper bound is inclusive", 135, "WSOL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := Resolve(tt.angle)
			require.NotNil(t, token)
			assert.Equal(t, tt.symbol, token.Symbol)
		})
	}
}

func TestResolveOutsideRange(t *testing.T) {
	assert.Nil(t, Resolve(19.9))
	assert.Nil(t, Resolve(135.1))
	assert.Nil(t, Resolve(0))
	assert.Nil(t, Resolve(-5))
	assert.Nil(t, Resolve(180))
}

func TestResolveNaN(t *testing.T) {
	assert.Nil(t, Resolve(math.NaN()))
}

func TestTableCoversWholeRange(t *testing.T) {
	table := Table()
	require.NotEmpty(t, table)

	assert.Equal(t, MinVisibleAngle, table[0].Min)
	assert.Equal(t, MaxOpeningAngle, table[len(table)-1].Max)

	// Ranges must be contiguous, no gaps and no overlaps.
	for i := 1; i < len(table); i++ {
		assert.Equal(t, table[i-1].Max, table[i].Min)
	}
}

func TestRangeForSymbol(t *testing.T) {
	rng := RangeForSymbol("WBTC")
	require.NotNil(t, rng)
	assert.Equal(t, 50.0, rng.Min)
	assert.Equal(t, 65.0, rng.Max)

	assert.Nil(t, RangeForSymbol("DOGE"))
}
