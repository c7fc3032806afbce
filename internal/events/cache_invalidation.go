package events

import "time"

const (
	CacheInvalidationTopic     = "leave.cache.invalidation.v1"
	CacheInvalidationEventType = "cache.invalidate"
)

// CacheInvalidationEvent asks every consumer to drop the listed cache keys.
type CacheInvalidationEvent struct {
	EventType  string    `json:"event_type"`
	Keys       []string  `json:"keys"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
