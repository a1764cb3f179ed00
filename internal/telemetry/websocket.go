package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"
)

// streamFrame is one telemetry update on the wire. Values holds one
// entry per representation the server publishes for the item.
type streamFrame struct {
	Target string               `json:"target"`
	Packet string               `json:"packet"`
	Item   string               `json:"item"`
	Values map[string]float64   `json:"values"`
	Vector map[string][]float64 `json:"vector,omitempty"`
	Text   map[string]string    `json:"text,omitempty"`
}

// StreamProvider serves samples from the most recent frames of a
// telemetry websocket stream. Run must be started before Sample is
// useful; Sample never blocks on the network.
type StreamProvider struct {
	url    string
	logger *slog.Logger
	table  *TableProvider
}

func NewStreamProvider(url string, logger *slog.Logger) *StreamProvider {
	return &StreamProvider{url: url, logger: logger, table: NewTableProvider()}
}

// Run dials the stream and consumes frames until ctx is canceled or the
// connection drops.
func (p *StreamProvider) Run(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, p.url, nil)
	if err != nil {
		return fmt.Errorf("dial telemetry stream %s: %w", p.url, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "done")
				return ctx.Err()
			}
			return fmt.Errorf("read telemetry stream: %w", err)
		}
		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			p.logger.Warn("telemetry: malformed frame", "error", err)
			continue
		}
		p.apply(frame)
	}
}

func (p *StreamProvider) apply(frame streamFrame) {
	p.table.BumpReceived(frame.Target, frame.Packet)
	for name, v := range frame.Values {
		if r, ok := representationFromName(name); ok {
			p.table.Set(frame.Target, frame.Packet, frame.Item, r, Scalar(v))
		}
	}
	for name, vs := range frame.Vector {
		if r, ok := representationFromName(name); ok {
			p.table.Set(frame.Target, frame.Packet, frame.Item, r, Vector(vs))
		}
	}
	for name, s := range frame.Text {
		if r, ok := representationFromName(name); ok {
			p.table.Set(frame.Target, frame.Packet, frame.Item, r, Scalar(s))
		}
	}
}

func (p *StreamProvider) Sample(ctx context.Context, target, packet, item string, r Representation) (Value, error) {
	return p.table.Sample(ctx, target, packet, item, r)
}

func representationFromName(name string) (Representation, bool) {
	switch name {
	case "RAW":
		return Raw, true
	case "CONVERTED":
		return Converted, true
	case "FORMATTED":
		return Formatted, true
	case "WITH_UNITS", "FORMATTED_WITH_UNITS":
		return FormattedWithUnits, true
	default:
		return 0, false
	}
}

var _ Provider = (*StreamProvider)(nil)
var _ Provider = (*TableProvider)(nil)
