// Package orderbook implements the matching engine core: a single
// instrument's limit order book, maintained as two price-keyed sides of
// FIFO queues, matched with price-time priority and staged through a
// Collector so a crossing attempt can be committed or reverted as one
// atomic unit.
package orderbook

import (
	"fmt"

	"github.com/createMonster/aat-trading/internal/model"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

const btreeDegree = 32

// OrderBook is a single-threaded state machine over one instrument. Every
// exported method runs to completion before returning; there is no internal
// suspension.
type OrderBook struct {
	instrument model.Instrument
	exchange   model.Exchange

	collector *Collector

	buys  *btree.Map[string, *PriceLevel]
	sells *btree.Map[string, *PriceLevel]

	clock int64
}

// New builds an OrderBook for instrument, tagged with exchange (use
// model.NullExchange if the book isn't attached to a venue), posting
// committed events to cb. cb may be nil; SetCallback can supply one later.
func New(instrument model.Instrument, exchange model.Exchange, cb model.EventCallback) *OrderBook {
	return &OrderBook{
		instrument: instrument,
		exchange:   exchange,
		collector:  NewCollector(cb),
		buys:       btree.NewMap[string, *PriceLevel](btreeDegree),
		sells:      btree.NewMap[string, *PriceLevel](btreeDegree),
	}
}

// SetCallback replaces the event sink.
func (ob *OrderBook) SetCallback(cb model.EventCallback) {
	ob.collector.SetCallback(cb)
}

// Reset discards all resting state: both sides' price levels, their stop
// lists, and the insertion clock.
func (ob *OrderBook) Reset() {
	ob.buys = btree.NewMap[string, *PriceLevel](btreeDegree)
	ob.sells = btree.NewMap[string, *PriceLevel](btreeDegree)
	ob.clock = 0
}

// GetInstrument returns the instrument this book was constructed for.
func (ob *OrderBook) GetInstrument() model.Instrument { return ob.instrument }

// GetExchange returns the exchange tag this book was constructed with.
func (ob *OrderBook) GetExchange() model.Exchange { return ob.exchange }

func (ob *OrderBook) levelsFor(side model.Side) *btree.Map[string, *PriceLevel] {
	if side == model.Buy {
		return ob.buys
	}
	return ob.sells
}

func oppositeSide(side model.Side) model.Side {
	if side == model.Buy {
		return model.Sell
	}
	return model.Buy
}

// insertLevel returns the level at price on side, creating an empty one if
// absent, reported as the (level, created) pair so callers that don't care
// about the bool can ignore it.
func (ob *OrderBook) insertLevel(side model.Side, price decimal.Decimal) (*PriceLevel, bool) {
	levels := ob.levelsFor(side)
	key := priceKey(price)
	if lvl, ok := levels.Get(key); ok {
		return lvl, false
	}
	lvl := NewPriceLevel(price, ob.collector)
	levels.Set(key, lvl)
	return lvl, true
}

// getTop returns the k-th (0-indexed) opposing price level for an
// incoming order on side, or nil once there are fewer than k+1 levels left.
// BUY orders walk sells ascending (best ask first); SELL orders walk buys
// descending (best bid first).
func (ob *OrderBook) getTop(side model.Side, k int) *PriceLevel {
	var result *PriceLevel
	idx := 0
	if side == model.Buy {
		ob.sells.Scan(func(_ string, level *PriceLevel) bool {
			if idx == k {
				result = level
				return false
			}
			idx++
			return true
		})
	} else {
		ob.buys.Reverse(func(_ string, level *PriceLevel) bool {
			if idx == k {
				result = level
				return false
			}
			idx++
			return true
		})
	}
	return result
}

// crosses reports whether order should attempt to match against an
// opposing level resting at levelPrice.
func crosses(order *model.Order, levelPrice decimal.Decimal) bool {
	if order.Unconditional() {
		return true
	}
	if order.Side == model.Buy {
		return order.Price.GreaterThanOrEqual(levelPrice)
	}
	return order.Price.LessThanOrEqual(levelPrice)
}

// clearOrders physically removes the first n levels the collector marked
// cleared this transaction from the opposing side's price map.
func (ob *OrderBook) clearOrders(order *model.Order, n int) {
	levels := ob.levelsFor(oppositeSide(order.Side))
	cleared := ob.collector.clearedLevels
	if n > len(cleared) {
		n = len(cleared)
	}
	for i := 0; i < n; i++ {
		levels.Delete(priceKey(cleared[i].Price()))
	}
}

// rest inserts order, which still has remaining volume, into its own side's
// book and stages its Open event; the caller commits afterwards. Creates the
// price level if this is the first resting order at that price.
func (ob *OrderBook) rest(order *model.Order) {
	level, _ := ob.insertLevel(order.Side, order.Price)
	level.Add(order)
}

func validateOrder(order *model.Order) error {
	if order == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidArgument)
	}
	if order.Side != model.Buy && order.Side != model.Sell {
		return fmt.Errorf("%w: order %s has unknown side %d", ErrInvalidArgument, order.ID, order.Side)
	}
	if order.OrderType != model.Limit && order.OrderType != model.Market && order.OrderType != model.Stop {
		return fmt.Errorf("%w: order %s has unknown order type %d", ErrInvalidArgument, order.ID, order.OrderType)
	}
	if order.Flag != model.None && order.Flag != model.FillOrKill && order.Flag != model.AllOrNone && order.Flag != model.ImmediateOrCancel {
		return fmt.Errorf("%w: order %s has unknown flag %d", ErrInvalidArgument, order.ID, order.Flag)
	}
	if order.Volume.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: order %s has non-positive volume %s", ErrInvalidArgument, order.ID, order.Volume)
	}
	if order.Price.IsNegative() {
		return fmt.Errorf("%w: order %s has negative price %s", ErrInvalidArgument, order.ID, order.Price)
	}
	if order.Filled.IsNegative() || order.Filled.GreaterThan(order.Volume) {
		return fmt.Errorf("%w: order %s has filled %s outside [0, volume %s]", ErrInvalidArgument, order.ID, order.Filled, order.Volume)
	}
	if order.OrderType == model.Stop && order.StopTarget == nil {
		return fmt.Errorf("%w: stop order %s has no stop target", ErrInvalidArgument, order.ID)
	}
	return nil
}

// Add submits order to the book. It crosses against resting liquidity on
// the opposing side with price-time priority, then applies the order-type
// and flag residual-handling rules, and finally drains any stop orders
// triggered by levels this call crossed.
//
// Add assigns order.Timestamp from the book's monotone insertion clock.
func (ob *OrderBook) Add(order *model.Order) error {
	if err := validateOrder(order); err != nil {
		return err
	}
	ob.clock++
	order.Timestamp = ob.clock
	return ob.add(order)
}

// add is the recursive core of Add, shared with the secondary (stop-target)
// drain so triggered orders get their own timestamp (set by the caller)
// without re-assigning one from the clock.
func (ob *OrderBook) add(order *model.Order) error {
	// Stop orders never participate in crossing; they attach directly to
	// their trigger level on the opposing side and wait, so arming one
	// doesn't depend on a resting order already occupying that level.
	// See DESIGN.md.
	if order.OrderType == model.Stop {
		level, _ := ob.insertLevel(oppositeSide(order.Side), order.Price)
		level.Add(order)
		return nil
	}

	ob.collector.begin(order)
	var secondaries []*model.Order

	top := ob.getTop(order.Side, ob.collector.getClearedLevels())
	for top != nil && crosses(order, top.Price()) {
		cleared, err := top.cross(order, &secondaries)
		if err != nil {
			ob.collector.clear()
			return err
		}
		if cleared != nil {
			n := ob.collector.clearLevel(top)
			top = ob.getTop(order.Side, n)
			continue
		}
		if top.Len() == 0 {
			ob.collector.clearLevel(top)
		}
		break
	}

	if err := ob.resolve(order); err != nil {
		ob.collector.clear()
		return err
	}

	ob.collector.clear()

	for _, s := range secondaries {
		s.Timestamp = order.Timestamp
		if err := ob.add(s); err != nil {
			return err
		}
	}
	return nil
}

// resolve applies order-type/flag residual-handling once the crossing
// loop has run its course, then clears or rests the order.
func (ob *OrderBook) resolve(order *model.Order) error {
	if order.Filled.GreaterThan(order.Volume) {
		return fmt.Errorf("%w: order %s filled %s > volume %s", ErrCorrupt, order.ID, order.Filled, order.Volume)
	}

	if order.Filled.Equal(order.Volume) {
		ob.clearOrders(order, ob.collector.getClearedLevels())
		ob.collector.commit()
		return nil
	}

	switch order.OrderType {
	case model.Market:
		switch order.Flag {
		case model.AllOrNone, model.FillOrKill:
			ob.collector.revert()
			ob.collector.pushCancel(order)
			ob.collector.commit()
		default:
			if order.Filled.GreaterThan(decimal.Zero) {
				ob.collector.pushTrade(order, order.Filled)
			}
			ob.clearOrders(order, ob.collector.getClearedLevels())
			ob.collector.pushCancel(order)
			ob.collector.commit()
		}
		return nil

	case model.Limit:
		switch order.Flag {
		case model.FillOrKill, model.AllOrNone:
			if order.Filled.GreaterThan(decimal.Zero) {
				ob.collector.revert()
				ob.collector.pushCancel(order)
				ob.collector.commit()
			} else {
				ob.rest(order)
				ob.collector.commit()
			}
		case model.ImmediateOrCancel:
			if order.Filled.GreaterThan(decimal.Zero) {
				ob.clearOrders(order, ob.collector.getClearedLevels())
				ob.collector.pushFill(order, false, decimal.Zero, decimal.Zero)
				ob.collector.pushCancel(order)
				ob.collector.commit()
			} else {
				ob.rest(order)
				ob.collector.commit()
			}
		default:
			ob.clearOrders(order, ob.collector.getClearedLevels())
			ob.rest(order)
			ob.collector.commit()
		}
		return nil
	}

	return fmt.Errorf("%w: order %s has unexpected order type %d at resolve", ErrInvalidArgument, order.ID, order.OrderType)
}

// Cancel removes order from the book, whether it rests in a price level's
// FIFO or (for a still-armed STOP order) in a level's stop list.
func (ob *OrderBook) Cancel(order *model.Order) error {
	if order == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidArgument)
	}
	if order.OrderType == model.Stop {
		return ob.cancelStop(order)
	}

	levels := ob.levelsFor(order.Side)
	key := priceKey(order.Price)
	level, ok := levels.Get(key)
	if !ok {
		return ErrNotFound
	}
	if err := level.Remove(order); err != nil {
		return err
	}
	ob.collector.commit()
	ob.collector.clear()
	if level.Len() == 0 {
		levels.Delete(key)
	}
	return nil
}

func (ob *OrderBook) cancelStop(order *model.Order) error {
	levels := ob.levelsFor(oppositeSide(order.Side))
	key := priceKey(order.Price)
	level, ok := levels.Get(key)
	if !ok {
		return ErrNotFound
	}
	target := order.StopTarget
	if target == nil || !level.RemoveStop(target.ID) {
		return ErrNotFound
	}
	if level.Len() == 0 && level.StopLen() == 0 {
		levels.Delete(key)
	}
	return nil
}

// Change applies an in-place modification to a resting order: it removes
// the order and emits a Change event without reinserting it at a new
// price. Callers that need a true amend should Cancel then Add the
// updated order.
func (ob *OrderBook) Change(order *model.Order) error {
	if order == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidArgument)
	}
	levels := ob.levelsFor(order.Side)
	key := priceKey(order.Price)
	level, ok := levels.Get(key)
	if !ok {
		return ErrNotFound
	}
	if err := level.Modify(order); err != nil {
		return err
	}
	ob.collector.commit()
	ob.collector.clear()
	if level.Len() == 0 {
		levels.Delete(key)
	}
	return nil
}

// Snapshot returns up to depth aggregated (price, volume) pairs per side:
// bids best-first (descending), asks best-first (ascending). Read-only —
// it never mutates book state, and returns Go values rather than a wire
// format.
func (ob *OrderBook) Snapshot(depth int) (bids, asks []PriceLevelView) {
	if depth <= 0 {
		return nil, nil
	}
	bids = make([]PriceLevelView, 0, depth)
	ob.buys.Reverse(func(_ string, level *PriceLevel) bool {
		bids = append(bids, level.View())
		return len(bids) < depth
	})
	asks = make([]PriceLevelView, 0, depth)
	ob.sells.Scan(func(_ string, level *PriceLevel) bool {
		asks = append(asks, level.View())
		return len(asks) < depth
	})
	return bids, asks
}

// BestBid returns the highest resting buy price, and false if the buy side
// is empty.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	var price decimal.Decimal
	found := false
	ob.buys.Reverse(func(_ string, level *PriceLevel) bool {
		price = level.Price()
		found = true
		return false
	})
	return price, found
}

// BestAsk returns the lowest resting sell price, and false if the sell
// side is empty.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	var price decimal.Decimal
	found := false
	ob.sells.Scan(func(_ string, level *PriceLevel) bool {
		price = level.Price()
		found = true
		return false
	})
	return price, found
}
