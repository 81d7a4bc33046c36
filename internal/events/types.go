// Package events provides in-process publication of lifecycle events.
package events

// EventType identifies the kind of an event
type EventType string

const (
	PolicyStatusChanged  EventType = "POLICY_STATUS_CHANGED"
	SlipStatusChanged    EventType = "SLIP_STATUS_CHANGED"
	RecordDeleted        EventType = "RECORD_DELETED"
	RecordRestored       EventType = "RECORD_RESTORED"
	FinancialsRecomputed EventType = "FINANCIALS_RECOMPUTED"
	ExchangeRateUpdated  EventType = "EXCHANGE_RATE_UPDATED"
	SettingsChanged      EventType = "SETTINGS_CHANGED"
	BackupCompleted      EventType = "BACKUP_COMPLETED"
	ErrorOccurred        EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every known event type, for subscribers that want everything.
var AllEventTypes = []EventType{
	PolicyStatusChanged,
	SlipStatusChanged,
	RecordDeleted,
	RecordRestored,
	FinancialsRecomputed,
	ExchangeRateUpdated,
	SettingsChanged,
	BackupCompleted,
	ErrorOccurred,
}
