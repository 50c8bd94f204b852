package tokens

import (
	"math"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AazimAnish/HarMonad/pkg/models"
)

// Angle limits of the working lid range. Anything below MinVisibleAngle is
// the feedback/safety cutoff (lid nearly closed) and maps to no token.
const (
	MinVisibleAngle = 20.0
	MaxOpeningAngle = 135.0
)

// Monad testnet token contracts
var (
	NativeToken = common.Address{} // MON, the zero address by convention
	USDC        = common.HexToAddress("0xf817257fed379853cDe0fa4F97AB987181B1E5Ea")
	USDT        = common.HexToAddress("0x88b8E2161DEDC77EF4ab7585569D2415a1C1055D")
	WBTC        = common.HexToAddress("0xcf5a6076cfa32686c0Df13aBaDa2b40dec133F1d")
	WETH        = common.HexToAddress("0xB5a30b0FDc5EA94A52fDc42e3E9760Cb8449Fb37")
	WSOL        = common.HexToAddress("0x5387C85A4965769f6B0Df430638a1388493486F1")
)

// angleTable maps lid-angle intervals to target tokens. Intervals are
// half-open [Min,Max); the final interval is closed at MaxOpeningAngle.
// Intervals are sorted, non-overlapping, and cover [MinVisibleAngle,
// MaxOpeningAngle] completely.
var angleTable = []models.AngleRange{
	{Min: 20, Max: 35, Token: models.TokenDescriptor{Symbol: "USDC", Name: "USD Coin", Address: USDC, Decimals: 6}},
	{Min: 35, Max: 50, Token: models.TokenDescriptor{Symbol: "USDT", Name: "Tether USD", Address: USDT, Decimals: 6}},
	{Min: 50, Max: 65, Token: models.TokenDescriptor{Symbol: "WBTC", Name: "Wrapped Bitcoin", Address: WBTC, Decimals: 8}},
	{Min: 65, Max: 80, Token: models.TokenDescriptor{Symbol: "WETH", Name: "Wrapped Ethereum", Address: WETH, Decimals: 18}},
	{Min: 80, Max: 135, Token: models.TokenDescriptor{Symbol: "WSOL", Name: "Wrapped Solana", Address: WSOL, Decimals: 9}},
}

// Resolve maps an angle to its target token. Returns nil for angles outside
// [MinVisibleAngle, MaxOpeningAngle] and for NaN; it never panics.
func Resolve(angle float64) *models.TokenDescriptor {
	if math.IsNaN(angle) || angle < MinVisibleAngle || angle > MaxOpeningAngle {
		return nil
	}

	for i := range angleTable {
		r := &angleTable[i]
		if angle >= r.Min && angle < r.Max {
			tok := r.Token
			return &tok
		}
	}

	// The last interval is closed at its upper bound.
	last := angleTable[len(angleTable)-1]
	if angle <= last.Max {
		tok := last.Token
		return &tok
	}

	return nil
}

// RangeForSymbol returns the angle interval assigned to a token symbol,
// or nil if the symbol is not in the table.
func RangeForSymbol(symbol string) *models.AngleRange {
	for i := range angleTable {
		if angleTable[i].Token.Symbol == symbol {
			r := angleTable[i]
			return &r
		}
	}
	return nil
}

// Table returns a copy of the angle table, for display and status endpoints.
func Table() []models.AngleRange {
	out := make([]models.AngleRange, len(angleTable))
	copy(out, angleTable)
	return out
}
