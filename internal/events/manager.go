package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit publishes an untyped event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	if m == nil {
		return
	}
	m.bus.Emit(eventType, module, data)
	m.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		Interface("data", data).
		Msg("Event emitted")
}

// EmitTyped publishes typed data under its own event type
func (m *Manager) EmitTyped(module string, data EventData) {
	if m == nil || data == nil {
		return
	}
	m.Emit(data.EventType(), module, toMap(data))
}

// EmitError publishes an ErrorOccurred event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	if err == nil {
		return
	}
	m.EmitTyped(module, &ErrorEventData{Error: err.Error(), Context: context})
}

func toMap(data EventData) map[string]interface{} {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
