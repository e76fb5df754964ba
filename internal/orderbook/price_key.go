package orderbook

import (
	"strings"

	"github.com/shopspring/decimal"
)

// priceKey encodes a non-negative price as a fixed-width, zero-padded
// string whose lexicographic order matches numeric order, so it can be
// used as the key of a btree.Map[string, *PriceLevel] and still iterate
// (Scan/Reverse) in true price order. Plain decimal.String() doesn't have
// this property — "100" sorts before "99" lexicographically — which is
// the kind of bug P1/P2 (no crossed book) would catch immediately.
const priceIntegerWidth = 30
const priceDecimalPlaces = 18

func priceKey(p decimal.Decimal) string {
	s := p.StringFixed(priceDecimalPlaces)
	intPart, fracPart, found := strings.Cut(s, ".")
	if !found {
		fracPart = strings.Repeat("0", priceDecimalPlaces)
	}
	if len(intPart) < priceIntegerWidth {
		intPart = strings.Repeat("0", priceIntegerWidth-len(intPart)) + intPart
	}
	return intPart + "." + fracPart
}
