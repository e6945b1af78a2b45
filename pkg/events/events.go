package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the base interface for all place analysis audit events.
// Keep payloads small, use JSON-friendly fields.
type Event interface {
	Type() string
	PlaceID() string
	Timestamp() time.Time
	MarshalData() ([]byte, error)
}

// Base contains common event metadata.
type Base struct {
	Ts  time.Time `json:"ts"`
	PID string    `json:"place_id"`
}

func (b Base) Timestamp() time.Time { return b.Ts }
func (b Base) PlaceID() string      { return b.PID }

// --- Concrete events ---

const (
	TypeAnalysisStarted   = "place.analysis.started"
	TypeAnalysisCompleted = "place.analysis.completed"
	TypeAnalysisFailed    = "place.analysis.failed"
	TypeCacheCleared      = "place.cache.cleared"
)

// PlaceAnalysisStarted is emitted when photo analysis for a place begins.
type PlaceAnalysisStarted struct {
	Base
}

func (e PlaceAnalysisStarted) Type() string                 { return TypeAnalysisStarted }
func (e PlaceAnalysisStarted) MarshalData() ([]byte, error) { return json.Marshal(e) }

// PlaceAnalysisCompleted records how many ambiance tags the analysis
// produced. Zero is a valid outcome and means the photos supported none.
type PlaceAnalysisCompleted struct {
	Base
	TagCount int `json:"tag_count"`
}

func (e PlaceAnalysisCompleted) Type() string                 { return TypeAnalysisCompleted }
func (e PlaceAnalysisCompleted) MarshalData() ([]byte, error) { return json.Marshal(e) }

// PlaceAnalysisFailed is emitted when every configured provider failed
// for the place. Reason carries the last provider error text.
type PlaceAnalysisFailed struct {
	Base
	Reason string `json:"reason"`
}

func (e PlaceAnalysisFailed) Type() string                 { return TypeAnalysisFailed }
func (e PlaceAnalysisFailed) MarshalData() ([]byte, error) { return json.Marshal(e) }

// PlaceCacheCleared is emitted by the admin cache invalidation endpoints.
// An empty PID means the whole tag cache was flushed.
type PlaceCacheCleared struct {
	Base
	Keys int `json:"keys"`
}

func (e PlaceCacheCleared) Type() string                 { return TypeCacheCleared }
func (e PlaceCacheCleared) MarshalData() ([]byte, error) { return json.Marshal(e) }

// EventStore defines persistence and history queries.
// Implementations must guarantee ordering per place.
type EventStore interface {
	Append(ctx context.Context, e Event) error
	ListByPlace(ctx context.Context, placeID string) ([]StoredEvent, error)
	ListRecent(ctx context.Context, limit int) ([]StoredEvent, error)
}

// StoredEvent is a durable representation.
// Seq is a monotonic order within the DB (BIGINT AUTO_INCREMENT).
type StoredEvent struct {
	Seq     int64           `json:"seq"`
	PlaceID string          `json:"place_id"`
	Type    string          `json:"type"`
	Ts      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// PlaceHistory is the result of replaying a place's event stream.
// Intentionally small: the last outcome plus run counters. UIs show
// full history by listing events.
type PlaceHistory struct {
	PlaceID       string     `json:"place_id"`
	Runs          int        `json:"runs"`
	Failures      int        `json:"failures"`
	LastAnalyzed  *time.Time `json:"last_analyzed,omitempty"`
	LastTagCount  int        `json:"last_tag_count"`
	LastFailure   *time.Time `json:"last_failure,omitempty"`
	LastFailureBy string     `json:"last_failure_reason,omitempty"`
}

// Replay applies events in order and rebuilds the place's history.
func Replay(events []StoredEvent) *PlaceHistory {
	st := &PlaceHistory{}
	for _, se := range events {
		st.PlaceID = se.PlaceID
		switch se.Type {
		case TypeAnalysisStarted:
			st.Runs++
		case TypeAnalysisCompleted:
			var ev PlaceAnalysisCompleted
			_ = json.Unmarshal(se.Payload, &ev)
			ts := se.Ts
			st.LastAnalyzed = &ts
			st.LastTagCount = ev.TagCount
		case TypeAnalysisFailed:
			var ev PlaceAnalysisFailed
			_ = json.Unmarshal(se.Payload, &ev)
			st.Failures++
			ts := se.Ts
			st.LastFailure = &ts
			st.LastFailureBy = ev.Reason
		}
	}
	return st
}
