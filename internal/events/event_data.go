package events

// EventData is implemented by every typed event payload
type EventData interface {
	EventType() EventType
}

// StatusChangedData is emitted after a policy or slip transition was persisted.
type StatusChangedData struct {
	RecordID string `json:"record_id"`
	Kind     string `json:"kind"` // "policy" or "slip"
	Action   string `json:"action"`
	From     string `json:"from"`
	To       string `json:"to"`
	Stamped  string `json:"stamped,omitempty"`
}

// EventType returns PolicyStatusChanged or SlipStatusChanged depending on Kind.
func (d *StatusChangedData) EventType() EventType {
	if d.Kind == "slip" {
		return SlipStatusChanged
	}
	return PolicyStatusChanged
}

// RecordLifecycleData is emitted on soft delete and restore.
type RecordLifecycleData struct {
	RecordID string `json:"record_id"`
	Kind     string `json:"kind"`
	Deleted  bool   `json:"deleted"`
}

// EventType returns RecordDeleted or RecordRestored.
func (d *RecordLifecycleData) EventType() EventType {
	if d.Deleted {
		return RecordDeleted
	}
	return RecordRestored
}

// FinancialsRecomputedData summarizes the derived figures after an edit.
type FinancialsRecomputedData struct {
	PolicyID              string  `json:"policy_id"`
	NetPremium            float64 `json:"net_premium"`
	CededShare            float64 `json:"ceded_share"`
	CededPremiumForeign   float64 `json:"ceded_premium_foreign"`
	NetReinsurancePremium float64 `json:"net_reinsurance_premium"`
	OverCeded             bool    `json:"over_ceded"`
}

// EventType returns FinancialsRecomputed.
func (d *FinancialsRecomputedData) EventType() EventType {
	return FinancialsRecomputed
}

// ExchangeRateUpdatedData reports a rate applied to a record or refreshed by the sync job.
type ExchangeRateUpdatedData struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
	PolicyID string  `json:"policy_id,omitempty"`
	Source   string  `json:"source"`
}

// EventType returns ExchangeRateUpdated.
func (d *ExchangeRateUpdatedData) EventType() EventType {
	return ExchangeRateUpdated
}

// SettingsChangedData reports a runtime settings override.
type SettingsChangedData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// EventType returns SettingsChanged.
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// BackupCompletedData reports a finished database snapshot.
type BackupCompletedData struct {
	Path      string `json:"path"`
	Remote    string `json:"remote,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns BackupCompleted.
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData carries a failure that did not abort the process.
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns ErrorOccurred.
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
