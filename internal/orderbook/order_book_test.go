package orderbook

import (
	"testing"

	"github.com/createMonster/aat-trading/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInstrument = model.Instrument{Name: "TEST-USD", Kind: "SPOT"}

func newTestBook(t *testing.T) (*OrderBook, *[]model.Event) {
	t.Helper()
	var events []model.Event
	book := New(testInstrument, model.NullExchange, func(ev model.Event) {
		events = append(events, ev)
	})
	return book, &events
}

func limitOrder(id string, side model.Side, price, volume int64) *model.Order {
	return &model.Order{
		ID:         id,
		Side:       side,
		OrderType:  model.Limit,
		Price:      decimal.NewFromInt(price),
		Volume:     decimal.NewFromInt(volume),
		Instrument: testInstrument,
	}
}

func eventTypes(events []model.Event) []model.EventType {
	out := make([]model.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// Scenario 1: simple full cross between one maker and one taker.
func TestAdd_SimpleCross(t *testing.T) {
	book, events := newTestBook(t)

	a := limitOrder("A", model.Sell, 100, 10)
	require.NoError(t, book.Add(a))

	b := limitOrder("B", model.Buy, 100, 10)
	require.NoError(t, book.Add(b))

	assert.Equal(t, []model.EventType{
		model.EventOpen,
		model.EventFill,
		model.EventFill,
		model.EventTrade,
	}, eventTypes(*events))

	trade := (*events)[3]
	assert.True(t, trade.Volume.Equal(decimal.NewFromInt(10)))
	assert.True(t, trade.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "B", trade.Order.ID)
	require.Len(t, trade.Makers, 1)
	assert.Equal(t, "A", trade.Makers[0].ID)

	_, hasBid := book.BestBid()
	_, hasAsk := book.BestAsk()
	assert.False(t, hasBid)
	assert.False(t, hasAsk)
}

// Scenario 2: maker only partially consumed, rests with reduced volume.
func TestAdd_PartialMaker(t *testing.T) {
	book, events := newTestBook(t)

	a := limitOrder("A", model.Sell, 100, 10)
	require.NoError(t, book.Add(a))

	b := limitOrder("B", model.Buy, 100, 4)
	require.NoError(t, book.Add(b))

	assert.Equal(t, []model.EventType{
		model.EventOpen,
		model.EventChange,
		model.EventFill,
		model.EventTrade,
	}, eventTypes(*events))

	assert.True(t, a.Filled.Equal(decimal.NewFromInt(4)))

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.NewFromInt(100)))
}

// Scenario 3: taker sweeps two price levels on the opposing side.
func TestAdd_SweepTwoLevels(t *testing.T) {
	book, events := newTestBook(t)

	a := limitOrder("A", model.Sell, 100, 5)
	c := limitOrder("C", model.Sell, 101, 5)
	require.NoError(t, book.Add(a))
	require.NoError(t, book.Add(c))

	b := limitOrder("B", model.Buy, 101, 10)
	require.NoError(t, book.Add(b))

	assert.Equal(t, []model.EventType{
		model.EventOpen, model.EventOpen,
		model.EventFill, model.EventFill, model.EventFill, model.EventTrade,
	}, eventTypes(*events))

	trade := (*events)[5]
	assert.True(t, trade.Volume.Equal(decimal.NewFromInt(10)))
	require.Len(t, trade.Makers, 2)

	_, hasAsk := book.BestAsk()
	assert.False(t, hasAsk)
}

// Scenario 4: FOK limit order with insufficient liquidity reverts fully.
func TestAdd_FOKInsufficientLiquidity(t *testing.T) {
	book, events := newTestBook(t)

	a := limitOrder("A", model.Sell, 100, 3)
	require.NoError(t, book.Add(a))

	b := limitOrder("B", model.Buy, 100, 10)
	b.Flag = model.FillOrKill
	require.NoError(t, book.Add(b))

	assert.Equal(t, []model.EventType{
		model.EventOpen,
		model.EventCancel,
	}, eventTypes(*events))

	assert.True(t, a.Filled.IsZero())
	assert.True(t, a.Volume.Equal(decimal.NewFromInt(3)))

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.NewFromInt(100)))
}

// Scenario 5: IOC leftover is cancelled instead of resting.
func TestAdd_IOCLeftoverCancelled(t *testing.T) {
	book, events := newTestBook(t)

	a := limitOrder("A", model.Sell, 100, 3)
	require.NoError(t, book.Add(a))

	b := limitOrder("B", model.Buy, 100, 10)
	b.Flag = model.ImmediateOrCancel
	require.NoError(t, book.Add(b))

	assert.Equal(t, []model.EventType{
		model.EventOpen,
		model.EventFill,
		model.EventFill,
		model.EventCancel,
	}, eventTypes(*events))

	assert.True(t, b.Filled.Equal(decimal.NewFromInt(3)))
	_, hasAsk := book.BestAsk()
	assert.False(t, hasAsk)
	_, hasBid := book.BestBid()
	assert.False(t, hasBid)
}

// Scenario 6: a stop order's target is submitted once its trigger level
// is crossed by an unrelated pair of orders.
func TestAdd_StopTrigger(t *testing.T) {
	book, events := newTestBook(t)

	target := limitOrder("T", model.Buy, 50, 1)
	stop := &model.Order{
		ID:         "S",
		Side:       model.Buy,
		OrderType:  model.Stop,
		Price:      decimal.NewFromInt(100),
		Volume:     decimal.NewFromInt(1),
		Instrument: testInstrument,
		StopTarget: target,
	}
	require.NoError(t, book.Add(stop))
	assert.Empty(t, *events, "arming a stop emits no events")

	x := limitOrder("X", model.Sell, 100, 1)
	require.NoError(t, book.Add(x))

	y := limitOrder("Y", model.Buy, 100, 1)
	require.NoError(t, book.Add(y))

	assert.Equal(t, int64(target.Timestamp), int64(y.Timestamp))

	var sawTargetOpen bool
	for _, ev := range *events {
		if ev.Type == model.EventOpen && ev.Order.ID == "T" {
			sawTargetOpen = true
		}
	}
	assert.True(t, sawTargetOpen, "stop target should have been submitted and rested")

	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(decimal.NewFromInt(50)))
}

func TestCancel_RestingOrder(t *testing.T) {
	book, events := newTestBook(t)

	a := limitOrder("A", model.Sell, 100, 10)
	require.NoError(t, book.Add(a))

	require.NoError(t, book.Cancel(a))
	assert.Equal(t, model.EventCancel, (*events)[len(*events)-1].Type)

	_, hasAsk := book.BestAsk()
	assert.False(t, hasAsk)
}

func TestCancel_NotFound(t *testing.T) {
	book, _ := newTestBook(t)
	a := limitOrder("A", model.Sell, 100, 10)
	err := book.Cancel(a)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_StopOrder(t *testing.T) {
	book, _ := newTestBook(t)
	target := limitOrder("T", model.Buy, 50, 1)
	stop := &model.Order{
		ID:         "S",
		Side:       model.Buy,
		OrderType:  model.Stop,
		Price:      decimal.NewFromInt(100),
		Volume:     decimal.NewFromInt(1),
		Instrument: testInstrument,
		StopTarget: target,
	}
	require.NoError(t, book.Add(stop))
	require.NoError(t, book.Cancel(stop))

	// Now crossing the level should not submit the target.
	x := limitOrder("X", model.Sell, 100, 1)
	require.NoError(t, book.Add(x))
	y := limitOrder("Y", model.Buy, 100, 1)
	require.NoError(t, book.Add(y))

	_, hasBid := book.BestBid()
	assert.False(t, hasBid)
}

func TestChange_RemovesAndEmitsChange(t *testing.T) {
	book, events := newTestBook(t)
	a := limitOrder("A", model.Sell, 100, 10)
	require.NoError(t, book.Add(a))

	require.NoError(t, book.Change(a))
	assert.Equal(t, model.EventChange, (*events)[len(*events)-1].Type)

	_, hasAsk := book.BestAsk()
	assert.False(t, hasAsk)
}

// P2: after every Add, the book is never left crossed.
func TestProperty_NeverCrossed(t *testing.T) {
	book, _ := newTestBook(t)
	require.NoError(t, book.Add(limitOrder("A", model.Buy, 99, 5)))
	require.NoError(t, book.Add(limitOrder("B", model.Sell, 101, 5)))

	bid, hasBid := book.BestBid()
	ask, hasAsk := book.BestAsk()
	require.True(t, hasBid)
	require.True(t, hasAsk)
	assert.True(t, bid.LessThan(ask))
}

// P3: fully-filled orders never rest — best-effort check via snapshot volume.
func TestProperty_NoFullyFilledResting(t *testing.T) {
	book, _ := newTestBook(t)
	require.NoError(t, book.Add(limitOrder("A", model.Sell, 100, 5)))
	require.NoError(t, book.Add(limitOrder("B", model.Buy, 100, 5)))

	bids, asks := book.Snapshot(10)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

func TestAdd_MarketOrderSweepsUnconditionally(t *testing.T) {
	book, events := newTestBook(t)
	require.NoError(t, book.Add(limitOrder("A", model.Sell, 105, 5)))

	m := &model.Order{
		ID:         "M",
		Side:       model.Buy,
		OrderType:  model.Market,
		Volume:     decimal.NewFromInt(5),
		Instrument: testInstrument,
	}
	require.NoError(t, book.Add(m))

	assert.True(t, m.Filled.Equal(decimal.NewFromInt(5)))
	var sawTrade bool
	for _, ev := range *events {
		if ev.Type == model.EventTrade {
			sawTrade = true
		}
	}
	assert.True(t, sawTrade)
}

func TestAdd_MarketFOKNoLiquidityCancelsImmediately(t *testing.T) {
	book, events := newTestBook(t)
	m := &model.Order{
		ID:         "M",
		Side:       model.Buy,
		OrderType:  model.Market,
		Flag:       model.FillOrKill,
		Price:      decimal.NewFromInt(1000),
		Volume:     decimal.NewFromInt(5),
		Instrument: testInstrument,
	}
	require.NoError(t, book.Add(m))
	assert.Equal(t, []model.EventType{model.EventCancel}, eventTypes(*events))
}

func TestAdd_RejectsInvalidVolume(t *testing.T) {
	book, _ := newTestBook(t)
	bad := limitOrder("A", model.Buy, 100, 0)
	err := book.Add(bad)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIterator_OrdersBestFirstBothSides(t *testing.T) {
	book, _ := newTestBook(t)
	require.NoError(t, book.Add(limitOrder("A1", model.Sell, 102, 1)))
	require.NoError(t, book.Add(limitOrder("A2", model.Sell, 101, 1)))
	require.NoError(t, book.Add(limitOrder("B1", model.Buy, 99, 1)))
	require.NoError(t, book.Add(limitOrder("B2", model.Buy, 98, 1)))

	it := book.Iterator()
	var ids []string
	for {
		o, ok := it.Next()
		if !ok {
			break
		}
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"A2", "A1", "B1", "B2"}, ids)
}
