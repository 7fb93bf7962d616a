package journal

import (
	"context"
	"testing"
	"time"

	"github.com/Roan215/Atlas-Frontend/internal/config"
)

func startedJournal(t *testing.T, maxEvents int) *Journal {
	t.Helper()
	j := New(&config.JournalConfig{Enabled: true, MaxEvents: maxEvents})
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(j.Stop)
	return j
}

func waitForEvents(t *testing.T, j *Journal, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for len(j.Events(EventFilter{})) < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d events, have %d", want, len(j.Events(EventFilter{})))
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRecordAndQuery(t *testing.T) {
	j := startedJournal(t, 100)

	j.Record(Entry{Type: EventStatusApplied, Outcome: OutcomeSuccess, TagID: 7})
	j.Record(Entry{Type: EventDischarge, Outcome: OutcomeFailure, PatientID: 3})
	waitForEvents(t, j, 2)

	events := j.Events(EventFilter{})
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Newest first.
	if events[0].Type != EventDischarge {
		t.Errorf("first event = %s, want newest", events[0].Type)
	}

	byTag := j.Events(EventFilter{TagID: 7})
	if len(byTag) != 1 || byTag[0].Type != EventStatusApplied {
		t.Errorf("tag filter returned %+v", byTag)
	}
	byOutcome := j.Events(EventFilter{Outcome: OutcomeFailure})
	if len(byOutcome) != 1 || byOutcome[0].PatientID != 3 {
		t.Errorf("outcome filter returned %+v", byOutcome)
	}
}

func TestEventLimit(t *testing.T) {
	j := startedJournal(t, 100)

	for i := 0; i < 5; i++ {
		j.Record(Entry{Type: EventAdmission, Outcome: OutcomeSuccess})
	}
	waitForEvents(t, j, 5)

	if got := len(j.Events(EventFilter{Limit: 2})); got != 2 {
		t.Errorf("limit 2 returned %d events", got)
	}
}

func TestBoundedHistory(t *testing.T) {
	j := startedJournal(t, 3)

	for i := int64(1); i <= 5; i++ {
		j.Record(Entry{Type: EventAdmission, Outcome: OutcomeSuccess, TagID: i})
	}
	waitForEvents(t, j, 3)
	// Give the collector a moment to drain and trim the overflow.
	deadline := time.Now().Add(time.Second)
	for {
		events := j.Events(EventFilter{})
		if len(events) == 3 && events[0].TagID == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("history not trimmed to newest 3: %+v", events)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestDisabledJournalRecordsNothing(t *testing.T) {
	j := New(&config.JournalConfig{Enabled: false, MaxEvents: 100})

	if event := j.Record(Entry{Type: EventAdmission, Outcome: OutcomeSuccess}); event != nil {
		t.Error("disabled journal should not produce events")
	}
	if got := len(j.Events(EventFilter{})); got != 0 {
		t.Errorf("disabled journal holds %d events", got)
	}
}

func TestGetStats(t *testing.T) {
	j := startedJournal(t, 100)

	j.Record(Entry{Type: EventStatusApplied, Outcome: OutcomeSuccess})
	j.Record(Entry{Type: EventStatusApplied, Outcome: OutcomeSuccess})
	j.Record(Entry{Type: EventStatusFailed, Outcome: OutcomeFailure})
	waitForEvents(t, j, 3)

	stats := j.GetStats()
	if stats.TotalEvents != 3 {
		t.Errorf("total = %d, want 3", stats.TotalEvents)
	}
	if stats.FailedEvents != 1 {
		t.Errorf("failed = %d, want 1", stats.FailedEvents)
	}
	if stats.ByType[EventStatusApplied] != 2 {
		t.Errorf("by type = %v", stats.ByType)
	}
	if stats.ByOutcome[OutcomeSuccess] != 2 {
		t.Errorf("by outcome = %v", stats.ByOutcome)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	j := New(&config.JournalConfig{Enabled: true, MaxEvents: 10})
	ctx := context.Background()

	if err := j.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := j.Start(ctx); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	j.Stop()
	j.Stop()
}
