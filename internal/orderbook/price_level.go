package orderbook

import (
	"fmt"

	"github.com/createMonster/aat-trading/internal/model"
	"github.com/shopspring/decimal"
)

// PriceLevel is the FIFO queue of resting orders at one price on one side
// of a book, plus the stop orders attached to that price as their trigger
// level. Matching within a level is price-time priority: the front of
// orders is always the oldest resting order at this price.
type PriceLevel struct {
	price decimal.Decimal

	orders             []*model.Order
	ordersStaged       []*model.Order
	ordersFilledStaged []decimal.Decimal

	// partialStaged/partialFilledStaged record makers that took a fill but
	// were never popped off orders (they still had remaining volume after
	// the fill and stayed resting at the front) — revert reverses their
	// fill delta in place, without touching orders' membership.
	partialStaged       []*model.Order
	partialFilledStaged []decimal.Decimal

	stopOrders       []*model.Order
	stopOrdersStaged []*model.Order

	collector *Collector

	// tracked marks that this level has already been registered with the
	// collector's current transaction, so Collector.track is idempotent.
	tracked bool
}

// NewPriceLevel creates an empty level at price, staging events through
// collector.
func NewPriceLevel(price decimal.Decimal, collector *Collector) *PriceLevel {
	return &PriceLevel{price: price, collector: collector}
}

func (pl *PriceLevel) Price() decimal.Decimal { return pl.price }

// Volume is the sum of remaining (unfilled) quantity across resting orders.
func (pl *PriceLevel) Volume() decimal.Decimal {
	total := decimal.Zero
	for _, o := range pl.orders {
		total = total.Add(o.Remaining())
	}
	return total
}

// Len is the number of resting (non-stop) orders at this level.
func (pl *PriceLevel) Len() int { return len(pl.orders) }

// StopLen is the number of stop targets armed at this level.
func (pl *PriceLevel) StopLen() int { return len(pl.stopOrders) }

// Orders returns the resting FIFO in price-time order. The caller must not
// mutate the returned slice; it aliases the level's internal queue.
func (pl *PriceLevel) Orders() []*model.Order { return pl.orders }

// PriceLevelView is a read-only snapshot of one price level's aggregate
// state, safe to hand to external inspectors without exposing the live
// FIFO or stop list.
type PriceLevelView struct {
	Price      decimal.Decimal
	Volume     decimal.Decimal
	OrderCount int
}

// View returns a read-only snapshot of this level.
func (pl *PriceLevel) View() PriceLevelView {
	return PriceLevelView{Price: pl.price, Volume: pl.Volume(), OrderCount: len(pl.orders)}
}

// RemoveStop removes the armed stop target matching id, reporting whether
// one was found.
func (pl *PriceLevel) RemoveStop(id string) bool {
	for i, o := range pl.stopOrders {
		if o.ID == id {
			pl.stopOrders = append(pl.stopOrders[:i], pl.stopOrders[i+1:]...)
			return true
		}
	}
	return false
}

func (pl *PriceLevel) indexOf(id string) int {
	for i, o := range pl.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// Add places order on this level. A STOP order contributes its StopTarget
// to the level's stop list instead of resting in the FIFO; resubmitting an
// order already queued here is treated as a modify-in-place (Change event,
// no reordering). Matching is ID-based rather than by pointer identity.
func (pl *PriceLevel) Add(order *model.Order) {
	if order.OrderType == model.Stop {
		for _, s := range pl.stopOrders {
			if s.ID == order.StopTarget.ID {
				return
			}
		}
		pl.stopOrders = append(pl.stopOrders, order.StopTarget)
		return
	}

	if idx := pl.indexOf(order.ID); idx >= 0 {
		pl.collector.pushChange(order, false, decimal.Zero, decimal.Zero)
		return
	}

	if order.Filled.LessThan(order.Volume) {
		pl.orders = append(pl.orders, order)
		pl.collector.pushOpen(order)
	}
}

// Find returns the resting order matching order's ID at this level, if any.
func (pl *PriceLevel) Find(order *model.Order) (*model.Order, bool) {
	if !order.Price.Equal(pl.price) {
		return nil, false
	}
	if idx := pl.indexOf(order.ID); idx >= 0 {
		return pl.orders[idx], true
	}
	return nil, false
}

// Modify removes the matching resting order and emits a Change event.
// It does not reinsert the order at a new price or volume (see DESIGN.md).
// Callers that need a true amend should Remove then Add the updated
// order themselves.
func (pl *PriceLevel) Modify(order *model.Order) error {
	if !order.Price.Equal(pl.price) {
		return ErrNotFound
	}
	idx := pl.indexOf(order.ID)
	if idx < 0 {
		return ErrNotFound
	}
	pl.orders = append(pl.orders[:idx], pl.orders[idx+1:]...)
	pl.collector.pushChange(order, false, decimal.Zero, decimal.Zero)
	return nil
}

// Remove removes the matching resting order and emits a Cancel event.
func (pl *PriceLevel) Remove(order *model.Order) error {
	if !order.Price.Equal(pl.price) {
		return ErrNotFound
	}
	idx := pl.indexOf(order.ID)
	if idx < 0 {
		return ErrNotFound
	}
	pl.orders = append(pl.orders[:idx], pl.orders[idx+1:]...)
	pl.collector.pushCancel(order)
	return nil
}

// drainStops moves this level's stop orders into secondaries and the
// revert-side stop buffer. Called from every exit path of cross except the
// one where the taker is itself a stop order and the Corrupt error returns.
func (pl *PriceLevel) drainStops(secondaries *[]*model.Order) {
	if len(pl.stopOrders) == 0 {
		return
	}
	*secondaries = append(*secondaries, pl.stopOrders...)
	pl.stopOrdersStaged = append(pl.stopOrdersStaged, pl.stopOrders...)
	pl.stopOrders = nil
}

// cross matches taker against this level's resting orders.
//
// Returns the taker order (non-nil) when the level's FIFO has been
// exhausted and the taker still wants more — the caller should advance to
// the next level. Returns nil in every other case: taker is itself a stop
// order (queued here and done), taker is already finished, taker was filled
// at this level (which may leave the level empty), or an ALL_OR_NONE taker
// exhausted a maker here without being filled (that maker stays popped
// until the collector's revert restores it).
//
// Per-iteration event order is maker first, then taker, and a taker-side
// event is only pushed once the taker's fill state is finalized (equal or
// maker-partial-fill branches) — an iteration where the maker is merely
// exhausted with the taker still wanting more pushes nothing for the
// taker. See DESIGN.md for why this is tighter than a naive per-branch
// event push.
func (pl *PriceLevel) cross(taker *model.Order, secondaries *[]*model.Order) (*model.Order, error) {
	pl.collector.track(pl)

	if taker.OrderType == model.Stop {
		pl.Add(taker)
		return nil, nil
	}

	if taker.Filled.Equal(taker.Volume) {
		pl.drainStops(secondaries)
		return nil, nil
	}
	if taker.Filled.GreaterThan(taker.Volume) {
		return nil, fmt.Errorf("%w: taker %s filled %s > volume %s", ErrCorrupt, taker.ID, taker.Filled, taker.Volume)
	}

	for taker.Filled.LessThan(taker.Volume) && len(pl.orders) > 0 {
		toFill := taker.Volume.Sub(taker.Filled)

		maker := pl.orders[0]
		makerRemaining := maker.Remaining()

		switch {
		case makerRemaining.GreaterThan(toFill):
			if maker.Flag == model.FillOrKill || maker.Flag == model.AllOrNone {
				pl.orders = pl.orders[1:]
				pl.ordersStaged = append(pl.ordersStaged, maker)
				pl.ordersFilledStaged = append(pl.ordersFilledStaged, decimal.Zero)
				pl.collector.pushCancel(maker)
				continue
			}
			// Maker survives with reduced remaining volume; it stays at
			// the front of orders (never popped), so revert only needs to
			// reverse the fill delta, not restore queue membership.
			pl.partialStaged = append(pl.partialStaged, maker)
			pl.partialFilledStaged = append(pl.partialFilledStaged, toFill)
			maker.Filled = maker.Filled.Add(toFill)
			taker.Filled = taker.Volume
			pl.collector.pushChange(maker, true, pl.price, toFill)
			pl.collector.pushFill(taker, false, decimal.Zero, decimal.Zero)

		case makerRemaining.LessThan(toFill):
			pl.orders = pl.orders[1:]
			pl.ordersStaged = append(pl.ordersStaged, maker)
			taker.Filled = taker.Filled.Add(makerRemaining)
			if taker.Flag == model.AllOrNone {
				pl.ordersFilledStaged = append(pl.ordersFilledStaged, decimal.Zero)
				pl.drainStops(secondaries)
				return nil, nil
			}
			maker.Filled = maker.Volume
			pl.ordersFilledStaged = append(pl.ordersFilledStaged, maker.Volume)
			pl.collector.pushFill(maker, true, pl.price, makerRemaining)

		default:
			pl.orders = pl.orders[1:]
			pl.ordersStaged = append(pl.ordersStaged, maker)
			pl.ordersFilledStaged = append(pl.ordersFilledStaged, toFill)
			maker.Filled = maker.Volume
			taker.Filled = taker.Volume
			pl.collector.pushFill(maker, true, pl.price, toFill)
			pl.collector.pushFill(taker, false, decimal.Zero, decimal.Zero)
		}
	}

	if taker.Filled.Equal(taker.Volume) {
		pl.collector.pushTrade(taker, taker.Filled)
		pl.drainStops(secondaries)
		return nil, nil
	}
	if taker.Filled.GreaterThan(taker.Volume) {
		return nil, fmt.Errorf("%w: taker %s filled %s > volume %s", ErrCorrupt, taker.ID, taker.Filled, taker.Volume)
	}

	// Level exhausted, taker still wants more: signal the book to advance.
	pl.drainStops(secondaries)
	return taker, nil
}

// revertStaged undoes every pop staged during the current transaction,
// restoring orders to its pre-transaction FIFO order and reversing the
// fill delta recorded for each popped maker. Also restores drained stop
// orders. Called only through Collector.revert.
func (pl *PriceLevel) revertStaged() {
	for i := len(pl.ordersStaged) - 1; i >= 0; i-- {
		maker := pl.ordersStaged[i]
		delta := pl.ordersFilledStaged[i]
		maker.Filled = maker.Filled.Sub(delta)
		pl.orders = append([]*model.Order{maker}, pl.orders...)
	}
	pl.ordersStaged = nil
	pl.ordersFilledStaged = nil

	for i := len(pl.partialStaged) - 1; i >= 0; i-- {
		maker := pl.partialStaged[i]
		delta := pl.partialFilledStaged[i]
		maker.Filled = maker.Filled.Sub(delta)
	}
	pl.partialStaged = nil
	pl.partialFilledStaged = nil

	if len(pl.stopOrdersStaged) > 0 {
		pl.stopOrders = append(pl.stopOrdersStaged, pl.stopOrders...)
		pl.stopOrdersStaged = nil
	}
}

// dropStaged discards this level's staging buffers without undoing
// anything — used on the commit path, where the staged mutations are
// already final and must not be replayed by a later transaction's revert.
func (pl *PriceLevel) dropStaged() {
	pl.ordersStaged = nil
	pl.ordersFilledStaged = nil
	pl.partialStaged = nil
	pl.partialFilledStaged = nil
	pl.stopOrdersStaged = nil
}
