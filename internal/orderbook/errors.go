package orderbook

import "errors"

// ErrNotFound is returned by Modify/Remove/Cancel/Change when the referenced
// order's price does not match a resting level, or the order isn't queued
// there. The book is left unchanged.
var ErrNotFound = errors.New("orderbook: order not found")

// ErrCorrupt signals that filled has been observed to exceed volume for some
// order — a violation of the engine's central invariant. Once returned, the
// book that produced it should not be trusted for further mutation; the
// caller should surface it as a fatal diagnostic rather than retry.
var ErrCorrupt = errors.New("orderbook: corrupt order state")

// ErrInvalidArgument is returned for malformed orders — ones that would
// violate a precondition before any state mutation happens.
var ErrInvalidArgument = errors.New("orderbook: invalid argument")
