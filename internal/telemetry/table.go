package telemetry

import (
	"context"
	"strings"
	"sync"
)

type tableKey struct {
	target, packet, item string
	repr                 Representation
}

// TableProvider is an in-memory Provider backed by a mutable table of
// item values. It is used by tests and by scripts that drive the engine
// against locally produced data.
type TableProvider struct {
	mu       sync.RWMutex
	values   map[tableKey]Value
	received map[string]int64
}

func NewTableProvider() *TableProvider {
	return &TableProvider{
		values:   make(map[tableKey]Value),
		received: make(map[string]int64),
	}
}

// Set stores a value for one representation of an item.
func (p *TableProvider) Set(target, packet, item string, r Representation, v Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key(target, packet, item, r)] = v
}

// SetAll stores the same value under every representation.
func (p *TableProvider) SetAll(target, packet, item string, v Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range []Representation{Raw, Converted, Formatted, FormattedWithUnits} {
		p.values[key(target, packet, item, r)] = v
	}
}

// BumpReceived increments the packet's received count.
func (p *TableProvider) BumpReceived(target, packet string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received[packetKey(target, packet)]++
}

func (p *TableProvider) Sample(ctx context.Context, target, packet, item string, r Representation) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if strings.EqualFold(item, ReceivedCountItem) {
		if v, ok := p.values[key(target, packet, item, r)]; ok {
			return v, nil
		}
		return Scalar(p.received[packetKey(target, packet)]), nil
	}
	v, ok := p.values[key(target, packet, item, r)]
	if !ok {
		return Value{}, &ErrNoValue{Target: target, Packet: packet, Item: item}
	}
	return v, nil
}

func key(target, packet, item string, r Representation) tableKey {
	return tableKey{
		target: strings.ToUpper(target),
		packet: strings.ToUpper(packet),
		item:   strings.ToUpper(item),
		repr:   r,
	}
}

func packetKey(target, packet string) string {
	return strings.ToUpper(target) + " " + strings.ToUpper(packet)
}
