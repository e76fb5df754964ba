// Package model holds the value types the matching engine operates on:
// orders, instruments, exchanges, and the events the engine emits. None of
// these types carry behavior beyond small invariant helpers — the matching
// logic itself lives in internal/orderbook.
package model

import (
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType distinguishes limit, market, and stop (contingent) orders.
type OrderType int

const (
	Limit OrderType = iota
	Market
	Stop
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	case Stop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// Flag is one of the order-book execution flags a caller can set on an order.
type Flag int

const (
	None Flag = iota
	FillOrKill
	AllOrNone
	ImmediateOrCancel
)

func (f Flag) String() string {
	switch f {
	case FillOrKill:
		return "FILL_OR_KILL"
	case AllOrNone:
		return "ALL_OR_NONE"
	case ImmediateOrCancel:
		return "IMMEDIATE_OR_CANCEL"
	default:
		return "NONE"
	}
}

// Instrument is an opaque tradable identity, compared by equality.
type Instrument struct {
	Name string
	Kind string
}

// Exchange is an opaque venue tag. NullExchange is the well-known sentinel
// used when a book isn't attached to a specific venue.
type Exchange struct {
	Name string
}

var NullExchange = Exchange{}

// Order is the mutable record the engine matches, fills, and rests.
//
// ID is supplied by the caller — the engine never generates identifiers.
// Price, Volume, and Filled use decimal.Decimal to keep price-time
// matching exact; Filled must never exceed Volume (see Corrupt in
// internal/orderbook).
type Order struct {
	ID         string
	Side       Side
	OrderType  OrderType
	Flag       Flag
	Price      decimal.Decimal
	Volume     decimal.Decimal
	Filled     decimal.Decimal
	Timestamp  int64
	Instrument Instrument
	Exchange   Exchange

	// StopTarget is only set when OrderType == Stop: the order submitted to
	// the book once this stop's trigger price level is crossed.
	StopTarget *Order
}

// Remaining is the unfilled portion of the order's volume.
func (o *Order) Remaining() decimal.Decimal {
	return o.Volume.Sub(o.Filled)
}

// Finished reports whether the order has been filled to its full volume.
func (o *Order) Finished() bool {
	return o.Filled.Equal(o.Volume)
}

// Unconditional reports whether this order should cross at any opposing
// price — the MARKET + NONE case. Rather than substituting +/-infinity into
// Price, which decimal.Decimal has no representation for, callers and the
// book test this predicate directly.
func (o *Order) Unconditional() bool {
	return o.OrderType == Market && o.Flag == None
}
