package telemetry

import (
	"context"
	"fmt"
)

// Representation selects which transformed view of a telemetry item is
// sampled.
type Representation int

const (
	Raw Representation = iota
	Converted
	Formatted
	FormattedWithUnits
)

func (r Representation) String() string {
	switch r {
	case Raw:
		return "RAW"
	case Converted:
		return "CONVERTED"
	case Formatted:
		return "FORMATTED"
	case FormattedWithUnits:
		return "WITH_UNITS"
	default:
		return fmt.Sprintf("Representation(%d)", int(r))
	}
}

// ReceivedCountItem is the per-packet item that counts how many packets
// have been received. Packet-count waits poll it.
const ReceivedCountItem = "RECEIVED_COUNT"

// Provider serves the current value of a named telemetry item. It must
// be safely callable at arbitrary polling frequency; its latency counts
// against the caller's poll deadline.
type Provider interface {
	Sample(ctx context.Context, target, packet, item string, r Representation) (Value, error)
}

// ErrNoValue is returned by providers that have not yet seen the
// requested item.
type ErrNoValue struct {
	Target, Packet, Item string
}

func (e *ErrNoValue) Error() string {
	return fmt.Sprintf("no value for %s %s %s", e.Target, e.Packet, e.Item)
}
