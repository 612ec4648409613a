package models

import "time"

// Event types
const (
	EventTypeOrderCreated        = "ORDER_CREATED"
	EventTypeOrderStatusChanged  = "ORDER_STATUS_CHANGED"
	EventTypeLegacySyncFailed    = "LEGACY_SYNC_FAILED"
	EventTypeLegacySyncRecovered = "LEGACY_SYNC_RECOVERED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after the modern write succeeds. Degraded is
// true when the legacy write failed and the order entered reconciliation.
type OrderCreatedEvent struct {
	BaseEvent
	UnifiedID     string `json:"unified_id"`
	CustomerID    int64  `json:"customer_id"`
	ModernStoreID int64  `json:"modern_store_id"`
	TotalTTC      string `json:"total_ttc"`
	Degraded      bool   `json:"degraded"`
}

// OrderStatusChangedEvent published after a successful status transition.
type OrderStatusChangedEvent struct {
	BaseEvent
	UnifiedID    string      `json:"unified_id"`
	From         OrderStatus `json:"from"`
	To           OrderStatus `json:"to"`
	LegacySynced bool        `json:"legacy_synced"`
}

// LegacySyncFailedEvent published whenever a legacy write fails; the
// reconciliation worker consumes it and retries.
type LegacySyncFailedEvent struct {
	BaseEvent
	UnifiedID string `json:"unified_id"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// LegacySyncRecoveredEvent published when a retry brings the legacy store
// back in line with the modern one.
type LegacySyncRecoveredEvent struct {
	BaseEvent
	UnifiedID     string `json:"unified_id"`
	LegacyStoreID int64  `json:"legacy_store_id"`
}
