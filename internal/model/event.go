package model

import "github.com/shopspring/decimal"

// EventType discriminates the shapes an Event can take.
type EventType int

const (
	EventOpen EventType = iota
	EventFill
	EventTrade
	EventChange
	EventCancel
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "OPEN"
	case EventFill:
		return "FILL"
	case EventTrade:
		return "TRADE"
	case EventChange:
		return "CHANGE"
	case EventCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// Event is the value the engine posts to its callback. Order is the order
// the event is primarily about (the taker for Trade, the affected order for
// everything else); Makers/Volume/Price are only populated for Trade, and
// PartialVolume is only populated for a Fill/Change that represents an
// incremental delta rather than the order's full remaining volume.
type Event struct {
	Type           EventType
	Order          *Order
	Makers         []*Order
	Volume         decimal.Decimal
	Price          decimal.Decimal
	PartialVolume  decimal.Decimal
	HasPartial     bool
}

// EventCallback is the sink the engine posts committed events through. It
// must return promptly and must not call back into the book that invoked
// it — re-entrancy during commit is unsupported.
type EventCallback func(Event)
