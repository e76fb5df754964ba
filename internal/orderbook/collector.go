package orderbook

import (
	"github.com/createMonster/aat-trading/internal/model"
	"github.com/shopspring/decimal"
)

// Collector is the transactional event buffer for a single OrderBook.Add
// invocation. PriceLevel stages Open/Fill/Trade/Change/Cancel events and
// level-clear markers into it as it crosses; the book then either Commit()s
// (flushing staged events to the callback and finalising the mutation) or
// Revert()s (undoing every staged fill and restoring popped makers), and
// always finishes with Clear().
//
// Between top-level Add calls the collector is empty: no events, no
// cleared levels, no tracked levels.
type Collector struct {
	callback model.EventCallback

	events []model.Event

	// trade aggregate accumulators, fed only by maker-side Fill/Change pushes
	tradePriceVolume decimal.Decimal
	tradeVolume      decimal.Decimal
	tradeMakers      []*model.Order

	clearedLevels []*PriceLevel
	touched       []*PriceLevel

	taker           *model.Order
	takerOrigFilled decimal.Decimal
}

// NewCollector builds a Collector posting committed events to cb. A nil cb
// is replaced with a no-op sink.
func NewCollector(cb model.EventCallback) *Collector {
	if cb == nil {
		cb = func(model.Event) {}
	}
	return &Collector{callback: cb}
}

// SetCallback replaces the event sink.
func (c *Collector) SetCallback(cb model.EventCallback) {
	if cb == nil {
		cb = func(model.Event) {}
	}
	c.callback = cb
}

// begin starts a new transaction for taker. Must be called before any
// PriceLevel.cross for this Add invocation.
func (c *Collector) begin(taker *model.Order) {
	c.taker = taker
	c.takerOrigFilled = taker.Filled
}

// track registers level as participating in the current transaction, so
// Revert knows to restore it. Idempotent per transaction.
func (c *Collector) track(level *PriceLevel) {
	if level.tracked {
		return
	}
	level.tracked = true
	c.touched = append(c.touched, level)
}

func (c *Collector) pushOpen(order *model.Order) {
	c.events = append(c.events, model.Event{Type: model.EventOpen, Order: order})
}

func (c *Collector) pushFill(order *model.Order, accumulate bool, price, volume decimal.Decimal) {
	c.events = append(c.events, model.Event{Type: model.EventFill, Order: order})
	if accumulate {
		c.accumulate(order, price, volume)
	}
}

func (c *Collector) pushChange(order *model.Order, accumulate bool, price, volume decimal.Decimal) {
	ev := model.Event{Type: model.EventChange, Order: order}
	if accumulate {
		ev.HasPartial = true
		ev.PartialVolume = volume
		c.accumulate(order, price, volume)
	}
	c.events = append(c.events, ev)
}

func (c *Collector) accumulate(order *model.Order, price, volume decimal.Decimal) {
	c.tradePriceVolume = c.tradePriceVolume.Add(price.Mul(volume))
	c.tradeVolume = c.tradeVolume.Add(volume)
	c.tradeMakers = append(c.tradeMakers, order)
}

func (c *Collector) pushTrade(taker *model.Order, filledVolume decimal.Decimal) {
	price := decimal.Zero
	if c.tradeVolume.GreaterThan(decimal.Zero) {
		price = c.tradePriceVolume.Div(c.tradeVolume)
	}
	c.events = append(c.events, model.Event{
		Type:   model.EventTrade,
		Order:  taker,
		Makers: c.tradeMakers,
		Volume: filledVolume,
		Price:  price,
	})
}

func (c *Collector) pushCancel(order *model.Order) {
	c.events = append(c.events, model.Event{Type: model.EventCancel, Order: order})
}

// clearLevel marks level as fully consumed by the in-progress cross and
// returns the number of levels cleared so far this transaction.
func (c *Collector) clearLevel(level *PriceLevel) int {
	c.clearedLevels = append(c.clearedLevels, level)
	return len(c.clearedLevels)
}

func (c *Collector) getClearedLevels() int {
	return len(c.clearedLevels)
}

// commit delivers every staged event to the callback in insertion order and
// empties the event buffer. Cleared-level bookkeeping survives until Clear.
func (c *Collector) commit() {
	for _, ev := range c.events {
		c.callback(ev)
	}
	c.events = nil
}

// revert discards every staged event and undoes every staged fill on both
// the taker and every maker popped this transaction, restoring each
// touched level's FIFO to its pre-transaction order. Cleared-level
// tombstones are dropped without being applied.
func (c *Collector) revert() {
	for _, level := range c.touched {
		level.revertStaged()
	}
	if c.taker != nil {
		c.taker.Filled = c.takerOrigFilled
	}
	c.events = nil
	c.clearedLevels = nil
}

// clear hard-resets the collector. Called unconditionally at the end of
// every Add, after commit or revert.
func (c *Collector) clear() {
	for _, level := range c.touched {
		level.tracked = false
		level.dropStaged()
	}
	c.events = nil
	c.tradePriceVolume = decimal.Zero
	c.tradeVolume = decimal.Zero
	c.tradeMakers = nil
	c.clearedLevels = nil
	c.touched = nil
	c.taker = nil
	c.takerOrigFilled = decimal.Zero
}
