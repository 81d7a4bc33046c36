package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	wsBufferSize   = 100
	wsWriteTimeout = 5 * time.Second
	wsHeartbeat    = 30 * time.Second
)

// EventsWSHandler streams lifecycle events to WebSocket clients.
type EventsWSHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsWSHandler creates the event stream handler.
func NewEventsWSHandler(bus *events.Bus, log zerolog.Logger) *EventsWSHandler {
	return &EventsWSHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

type wsMessage struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// ServeHTTP handles GET /api/events/ws. An optional ?types=A,B narrows the stream.
// Every stream opens with a "connected" message, sent once subscriptions are in place,
// and carries a "heartbeat" message every 30s regardless of the filter.
func (h *EventsWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types := events.AllEventTypes
	if filter := r.URL.Query().Get("types"); filter != "" {
		types = nil
		for _, t := range strings.Split(filter, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, events.EventType(strings.ToUpper(t)))
			}
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Clients never send; CloseRead handles control frames and cancels on disconnect.
	ctx := conn.CloseRead(r.Context())

	eventChan := make(chan *events.Event, wsBufferSize)
	handler := func(e *events.Event) {
		select {
		case eventChan <- e:
		default:
			h.log.Warn().Str("event_type", string(e.Type)).Msg("Event channel full, dropping event")
		}
	}
	for _, t := range types {
		unsubscribe := h.bus.Subscribe(t, handler)
		defer unsubscribe()
	}

	h.log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	if err := h.write(ctx, conn, wsMessage{Type: "connected", Timestamp: now()}); err != nil {
		return
	}

	heartbeat := time.NewTicker(wsHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case e := <-eventChan:
			msg := wsMessage{
				Type:      string(e.Type),
				Module:    e.Module,
				Timestamp: e.Timestamp.Format(time.RFC3339),
				Data:      e.Data,
			}
			if err := h.write(ctx, conn, msg); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := h.write(ctx, conn, wsMessage{Type: "heartbeat", Timestamp: now()}); err != nil {
				return
			}
		}
	}
}

func (h *EventsWSHandler) write(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug().Err(err).Str("type", msg.Type).Msg("Failed to write event")
		return err
	}
	return nil
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
