// Package overlay streams render frames to an external overlay process over
// a WebSocket. It implements render.Sink and the notify chat/toast sinks.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/pkg/streaming"
)

// ErrDropped is returned when a message could not be queued.
var ErrDropped = errors.New("overlay queue full")

// Config holds overlay connection settings.
type Config struct {
	URL    string
	Secret string
}

// Overlay is a render.Sink backed by a WebSocket connection. Each Overlay
// is one session; the session id is attached to every envelope.
type Overlay struct {
	conn    *connection
	cfg     Config
	session string
	logger  *slog.Logger
}

// New creates an overlay client. Call Init to connect.
func New(cfg Config, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "overlay")
	return &Overlay{
		conn:    newConnection(logger),
		cfg:     cfg,
		session: uuid.NewString(),
		logger:  logger,
	}
}

// Session returns the session id.
func (o *Overlay) Session() string {
	return o.session
}

// Init connects and opens the session. It waits for the server to
// acknowledge the hello.
func (o *Overlay) Init(hello streaming.HelloPayload) error {
	if err := o.conn.dial(o.cfg.URL, o.cfg.Secret); err != nil {
		return err
	}
	data, err := o.marshalEnvelope(streaming.TypeHello, hello)
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	o.conn.mu.Lock()
	o.conn.cachedHello = data
	o.conn.mu.Unlock()

	return o.conn.sendAndWait(data, streaming.TypeHello, ackTimeout)
}

// Close ends the session and disconnects.
func (o *Overlay) Close() error {
	if data, err := o.marshalEnvelope(streaming.TypeGoodbye, nil); err == nil {
		if err := o.conn.sendAndWait(data, streaming.TypeGoodbye, ackTimeout); err != nil {
			o.logger.Debug("goodbye not acknowledged", "error", err)
		}
	}

	o.conn.mu.Lock()
	o.conn.cachedHello = nil
	o.conn.mu.Unlock()

	return o.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func (o *Overlay) marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Session: o.session, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload and pushes it to the write loop
// without waiting.
func (o *Overlay) sendEnvelope(msgType string, payload any) error {
	data, err := o.marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if !o.conn.send(data) {
		return fmt.Errorf("%w: %s", ErrDropped, msgType)
	}
	return nil
}

// Draw sends a frame.
func (o *Overlay) Draw(ctx context.Context, f render.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.sendEnvelope(streaming.TypeFrame, f)
}

// ZoneChanged announces a zone transition.
func (o *Overlay) ZoneChanged(z streaming.ZonePayload) error {
	return o.sendEnvelope(streaming.TypeZone, z)
}

// PrintChat forwards a chat notification.
func (o *Overlay) PrintChat(msg string) error {
	return o.sendEnvelope(streaming.TypeChat, streaming.TextPayload{Message: msg})
}

// ShowToast forwards a toast notification.
func (o *Overlay) ShowToast(msg string) error {
	return o.sendEnvelope(streaming.TypeToast, streaming.TextPayload{Message: msg})
}
