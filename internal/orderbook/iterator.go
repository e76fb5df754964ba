package orderbook

import "github.com/createMonster/aat-trading/internal/model"

// Iterator walks resting orders sell-ascending (best ask first) then
// buy-descending (best bid first, worst bid last). It is a lazy,
// single-pass cursor: no guarantee of stability if the book mutates
// mid-iteration, which never happens under the book's single-threaded
// execution model.
type Iterator struct {
	ob *OrderBook

	onSells    bool
	sellLevels []*PriceLevel
	buyLevels  []*PriceLevel
	levelIdx   int
	orderIdx   int
}

// Iterator returns a forward iterator over ob's resting orders.
func (ob *OrderBook) Iterator() *Iterator {
	it := &Iterator{ob: ob, onSells: true}
	ob.sells.Scan(func(_ string, level *PriceLevel) bool {
		it.sellLevels = append(it.sellLevels, level)
		return true
	})
	ob.buys.Reverse(func(_ string, level *PriceLevel) bool {
		it.buyLevels = append(it.buyLevels, level)
		return true
	})
	return it
}

// Next advances the iterator and returns the next resting order, or
// (nil, false) once exhausted.
func (it *Iterator) Next() (*model.Order, bool) {
	for {
		levels := it.sellLevels
		if !it.onSells {
			levels = it.buyLevels
		}
		if it.levelIdx >= len(levels) {
			if it.onSells {
				it.onSells = false
				it.levelIdx = 0
				it.orderIdx = 0
				continue
			}
			return nil, false
		}
		level := levels[it.levelIdx]
		if it.orderIdx >= level.Len() {
			it.levelIdx++
			it.orderIdx = 0
			continue
		}
		order := level.Orders()[it.orderIdx]
		it.orderIdx++
		return order, true
	}
}
