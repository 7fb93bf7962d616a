// Package triage implements the classification workflow for triage
// records. Most color changes apply immediately; moving a record out of
// BLACK (deceased) is guarded by a two-step confirmation sequence so a
// terminal classification cannot be reversed by a single stray action.
package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Roan215/Atlas-Frontend/internal/journal"
	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Stage is the confirmation stage of a pending reclassification.
type Stage int

const (
	StageIdle Stage = iota
	StageSoftConfirm
	StageHardConfirm
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageSoftConfirm:
		return "soft_confirm"
	case StageHardConfirm:
		return "hard_confirm"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Outcome is the result of a classification request or confirmation step.
type Outcome struct {
	// Applied is true once the color change has been committed.
	Applied bool               `json:"applied"`
	Color   models.TriageColor `json:"color"`
	// Stage is the confirmation stage the workflow is now in. It is
	// StageIdle whenever nothing is pending.
	Stage Stage `json:"stage"`
}

// StatusUpdater persists an approved classification change.
type StatusUpdater interface {
	UpdateTriageStatus(ctx context.Context, tagID int64, color models.TriageColor) error
}

// RecordStore exposes the live feed records the classifier operates on.
type RecordStore interface {
	Record(tagID int64) (models.TriageTag, bool)
	// ApplyColor sets the record's color optimistically, stamped with
	// the time of the local write.
	ApplyColor(tagID int64, color models.TriageColor, at time.Time)
}

var (
	// ErrUnknownRecord is returned when the record is not on the feed.
	ErrUnknownRecord = errors.New("triage: unknown record")
	// ErrInvalidColor is returned for a color outside the four classes.
	ErrInvalidColor = errors.New("triage: invalid color")
	// ErrNoPendingTransition is returned by Confirm when no confirmation
	// sequence is open for the record.
	ErrNoPendingTransition = errors.New("triage: no pending transition")
)

type pendingTransition struct {
	target models.TriageColor
	stage  Stage
}

// Classifier runs the classification workflow. One confirmation sequence
// may be open per record at a time.
type Classifier struct {
	updater StatusUpdater
	records RecordStore
	journal *journal.Journal

	mu      sync.Mutex
	pending map[int64]*pendingTransition
}

// NewClassifier creates a new classifier
func NewClassifier(updater StatusUpdater, records RecordStore, jrnl *journal.Journal) *Classifier {
	return &Classifier{
		updater: updater,
		records: records,
		journal: jrnl,
		pending: make(map[int64]*pendingTransition),
	}
}

// RequestTransition requests a classification change for a record.
//
// If the record is not currently BLACK, or the requested color is BLACK,
// the change applies immediately. Requesting the color the record already
// has is a no-op that reports Applied without touching the backend.
// A BLACK record moving to any other color opens the confirmation
// sequence instead: nothing changes until Confirm has been called twice.
func (c *Classifier) RequestTransition(ctx context.Context, tagID int64, requested models.TriageColor) (Outcome, error) {
	if !requested.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidColor, requested)
	}

	record, ok := c.records.Record(tagID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %d", ErrUnknownRecord, tagID)
	}
	current := record.TagColor

	c.mu.Lock()
	// A new request replaces whatever sequence was open for the record.
	delete(c.pending, tagID)

	if requested == current {
		c.mu.Unlock()
		return Outcome{Applied: true, Color: requested, Stage: StageIdle}, nil
	}

	if current != models.ColorBlack || requested == models.ColorBlack {
		c.mu.Unlock()
		return c.apply(ctx, tagID, requested)
	}

	c.pending[tagID] = &pendingTransition{target: requested, stage: StageSoftConfirm}
	c.mu.Unlock()

	c.record(journal.EventConfirmationOpened, journal.OutcomeSuccess, tagID, record, requested)
	return Outcome{Color: requested, Stage: StageSoftConfirm}, nil
}

// Confirm advances an open confirmation sequence. The first confirmation
// moves it to the hard-confirm stage; the second applies the pending
// color and closes the sequence.
func (c *Classifier) Confirm(ctx context.Context, tagID int64) (Outcome, error) {
	c.mu.Lock()
	pending, ok := c.pending[tagID]
	if !ok {
		c.mu.Unlock()
		return Outcome{}, ErrNoPendingTransition
	}

	if pending.stage == StageSoftConfirm {
		pending.stage = StageHardConfirm
		target := pending.target
		c.mu.Unlock()

		c.record(journal.EventConfirmationStep, journal.OutcomeSuccess, tagID, models.TriageTag{}, target)
		return Outcome{Color: target, Stage: StageHardConfirm}, nil
	}

	target := pending.target
	delete(c.pending, tagID)
	c.mu.Unlock()

	return c.apply(ctx, tagID, target)
}

// Cancel aborts an open confirmation sequence. Cancellation always fully
// aborts back to idle, regardless of the stage, and has no side effects.
func (c *Classifier) Cancel(tagID int64) Outcome {
	c.mu.Lock()
	pending, ok := c.pending[tagID]
	if ok {
		delete(c.pending, tagID)
	}
	c.mu.Unlock()

	if ok {
		c.record(journal.EventConfirmationAbort, journal.OutcomeSuccess, tagID, models.TriageTag{}, pending.target)
	}
	return Outcome{Stage: StageIdle}
}

// Stage reports the confirmation stage currently open for a record.
func (c *Classifier) Stage(tagID int64) Stage {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pending, ok := c.pending[tagID]; ok {
		return pending.stage
	}
	return StageIdle
}

// apply commits a color change: the local record is updated first so the
// feed reflects the change instantly, then exactly one update goes to the
// backend. A persistence failure leaves the optimistic value in place;
// the caller decides whether to retry.
func (c *Classifier) apply(ctx context.Context, tagID int64, color models.TriageColor) (Outcome, error) {
	record, _ := c.records.Record(tagID)
	c.records.ApplyColor(tagID, color, time.Now())

	if err := c.updater.UpdateTriageStatus(ctx, tagID, color); err != nil {
		c.record(journal.EventStatusFailed, journal.OutcomeFailure, tagID, record, color)
		return Outcome{Applied: true, Color: color, Stage: StageIdle},
			fmt.Errorf("triage: status update for record %d not persisted: %w", tagID, err)
	}

	c.record(journal.EventStatusApplied, journal.OutcomeSuccess, tagID, record, color)
	return Outcome{Applied: true, Color: color, Stage: StageIdle}, nil
}

func (c *Classifier) record(eventType, outcome string, tagID int64, record models.TriageTag, color models.TriageColor) {
	if c.journal == nil {
		return
	}

	var patientID int64
	if record.Patient != nil {
		patientID = record.Patient.ID
	}
	c.journal.Record(journal.Entry{
		Type:      eventType,
		Outcome:   outcome,
		TagID:     tagID,
		PatientID: patientID,
		Detail:    map[string]string{"color": string(color)},
	})
}
