// Package journal records operational events for the intake workflows:
// classification changes, confirmation steps, billing mutations,
// discharges and admissions. Events are kept in memory with a bounded
// history and are queryable through the API.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Roan215/Atlas-Frontend/internal/config"
	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Event types recorded by the intake workflows.
const (
	EventStatusApplied      = "status_applied"
	EventStatusFailed       = "status_failed"
	EventConfirmationOpened = "confirmation_opened"
	EventConfirmationStep   = "confirmation_step"
	EventConfirmationAbort  = "confirmation_aborted"
	EventBillItemAdded      = "bill_item_added"
	EventBillItemRemoved    = "bill_item_removed"
	EventDischarge          = "discharge"
	EventAdmission          = "admission"
)

// Outcomes attached to events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Journal is the operational event log
type Journal struct {
	config  *config.JournalConfig
	mu      sync.RWMutex
	events  []*models.JournalEvent
	running bool
	stopCh  chan struct{}
	eventCh chan *models.JournalEvent
}

// New creates a new journal
func New(cfg *config.JournalConfig) *Journal {
	return &Journal{
		config:  cfg,
		stopCh:  make(chan struct{}),
		eventCh: make(chan *models.JournalEvent, 1000),
	}
}

// Start starts the journal's collector goroutine
func (j *Journal) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.mu.Unlock()

	go j.collect(ctx)
	return nil
}

// Stop stops the journal
func (j *Journal) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		close(j.stopCh)
		j.running = false
	}
}

func (j *Journal) collect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		case event := <-j.eventCh:
			j.append(event)
		}
	}
}

func (j *Journal) append(event *models.JournalEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events = append(j.events, event)
	if max := j.config.MaxEvents; max > 0 && len(j.events) > max {
		j.events = j.events[len(j.events)-max:]
	}
}

// Entry describes an event to record.
type Entry struct {
	Type      string
	Outcome   string
	TagID     int64
	PatientID int64
	Detail    map[string]string
}

// Record records an event. It is safe to call from any workflow
// goroutine; the event is enqueued and collected asynchronously.
func (j *Journal) Record(entry Entry) *models.JournalEvent {
	if !j.config.Enabled {
		return nil
	}

	event := &models.JournalEvent{
		ID:         uuid.New().String(),
		Type:       entry.Type,
		Outcome:    entry.Outcome,
		TagID:      entry.TagID,
		PatientID:  entry.PatientID,
		Detail:     entry.Detail,
		RecordedAt: time.Now().UTC(),
	}

	select {
	case j.eventCh <- event:
	default:
		// Journal congestion never blocks a workflow.
	}
	return event
}

// EventFilter defines filters for event queries
type EventFilter struct {
	Type      string
	Outcome   string
	TagID     int64
	PatientID int64
	Since     *time.Time
	Limit     int
}

// Events retrieves recorded events matching the filter, newest first
func (j *Journal) Events(filter EventFilter) []*models.JournalEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var results []*models.JournalEvent
	for i := len(j.events) - 1; i >= 0; i-- {
		event := j.events[i]
		if !matchesFilter(event, filter) {
			continue
		}
		results = append(results, event)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results
}

func matchesFilter(event *models.JournalEvent, filter EventFilter) bool {
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Outcome != "" && event.Outcome != filter.Outcome {
		return false
	}
	if filter.TagID != 0 && event.TagID != filter.TagID {
		return false
	}
	if filter.PatientID != 0 && event.PatientID != filter.PatientID {
		return false
	}
	if filter.Since != nil && event.RecordedAt.Before(*filter.Since) {
		return false
	}
	return true
}

// Stats contains journal statistics
type Stats struct {
	TotalEvents  int            `json:"total_events"`
	FailedEvents int            `json:"failed_events"`
	ByType       map[string]int `json:"by_type"`
	ByOutcome    map[string]int `json:"by_outcome"`
}

// GetStats returns aggregate statistics over recorded events
func (j *Journal) GetStats() *Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stats := &Stats{
		ByType:    make(map[string]int),
		ByOutcome: make(map[string]int),
	}

	for _, event := range j.events {
		stats.TotalEvents++
		stats.ByType[event.Type]++
		stats.ByOutcome[event.Outcome]++
		if event.Outcome == OutcomeFailure {
			stats.FailedEvents++
		}
	}

	return stats
}
