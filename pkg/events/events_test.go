package events

import (
	"encoding/json"
	"testing"
	"time"
)

func stored(t *testing.T, seq int64, placeID string, ts time.Time, e Event) StoredEvent {
	t.Helper()
	payload, err := e.MarshalData()
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return StoredEvent{Seq: seq, PlaceID: placeID, Type: e.Type(), Ts: ts, Payload: payload}
}

func TestReplayRebuildsHistory(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pid := "ChIJreplay"

	evs := []StoredEvent{
		stored(t, 1, pid, base, PlaceAnalysisStarted{Base: Base{Ts: base, PID: pid}}),
		stored(t, 2, pid, base.Add(time.Minute), PlaceAnalysisFailed{
			Base: Base{Ts: base.Add(time.Minute), PID: pid}, Reason: "all providers failed",
		}),
		stored(t, 3, pid, base.Add(time.Hour), PlaceAnalysisStarted{Base: Base{Ts: base.Add(time.Hour), PID: pid}}),
		stored(t, 4, pid, base.Add(time.Hour+time.Minute), PlaceAnalysisCompleted{
			Base: Base{Ts: base.Add(time.Hour + time.Minute), PID: pid}, TagCount: 4,
		}),
	}

	h := Replay(evs)
	if h.PlaceID != pid {
		t.Errorf("PlaceID = %q", h.PlaceID)
	}
	if h.Runs != 2 || h.Failures != 1 {
		t.Errorf("Runs=%d Failures=%d, want 2 and 1", h.Runs, h.Failures)
	}
	if h.LastAnalyzed == nil || !h.LastAnalyzed.Equal(base.Add(time.Hour+time.Minute)) {
		t.Errorf("LastAnalyzed = %v", h.LastAnalyzed)
	}
	if h.LastTagCount != 4 {
		t.Errorf("LastTagCount = %d", h.LastTagCount)
	}
	if h.LastFailure == nil || !h.LastFailure.Equal(base.Add(time.Minute)) {
		t.Errorf("LastFailure = %v", h.LastFailure)
	}
	if h.LastFailureBy != "all providers failed" {
		t.Errorf("LastFailureBy = %q", h.LastFailureBy)
	}
}

func TestReplayEmptyStream(t *testing.T) {
	h := Replay(nil)
	if h.Runs != 0 || h.Failures != 0 || h.LastAnalyzed != nil || h.LastFailure != nil {
		t.Fatalf("history = %+v", h)
	}
}

func TestEventPayloadRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	e := PlaceAnalysisCompleted{Base: Base{Ts: ts, PID: "p1"}, TagCount: 3}

	payload, err := e.MarshalData()
	if err != nil {
		t.Fatalf("MarshalData: %v", err)
	}
	var got PlaceAnalysisCompleted
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TagCount != 3 || got.PID != "p1" || !got.Ts.Equal(ts) {
		t.Fatalf("got = %+v", got)
	}
}

func TestCacheClearedEvent(t *testing.T) {
	e := PlaceCacheCleared{Base: Base{Ts: time.Now(), PID: ""}, Keys: 12}
	if e.Type() != TypeCacheCleared {
		t.Fatalf("type = %q", e.Type())
	}
	payload, err := e.MarshalData()
	if err != nil {
		t.Fatalf("MarshalData: %v", err)
	}
	var got PlaceCacheCleared
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Keys != 12 {
		t.Fatalf("keys = %d", got.Keys)
	}
}
