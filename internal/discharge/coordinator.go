// Package discharge drives the discharge workflow: finalizing the active
// bill, requesting the backend discharge, and resetting local state once
// the confirmation display has run its course.
package discharge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Roan215/Atlas-Frontend/internal/journal"
	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Backend is the subset of backend operations the coordinator needs.
type Backend interface {
	Discharge(ctx context.Context, patientID int64) error
}

// Bills is the billing engine surface the coordinator drives.
type Bills interface {
	Bill() *models.Bill
	Finalize()
	Clear()
}

// Refresher schedules a feed refresh after the discharge completes.
type Refresher interface {
	RequestRefresh()
}

var (
	// ErrNoBillLoaded is returned when no bill for the patient is active.
	ErrNoBillLoaded = errors.New("discharge: no bill loaded for patient")
	// ErrInFlight is returned while a discharge request is outstanding.
	ErrInFlight = errors.New("discharge: request already in flight")
)

// Coordinator finalizes bills and releases beds. At most one discharge
// request is in flight at a time; the trigger stays disabled until the
// outstanding request settles.
type Coordinator struct {
	backend   Backend
	bills     Bills
	refresher Refresher
	journal   *journal.Journal
	window    time.Duration

	mu           sync.Mutex
	inFlight     bool
	confirmUntil time.Time
}

// NewCoordinator creates a new discharge coordinator
func NewCoordinator(backend Backend, bills Bills, refresher Refresher, jrnl *journal.Journal, window time.Duration) *Coordinator {
	if window <= 0 {
		window = 3 * time.Second
	}
	return &Coordinator{
		backend:   backend,
		bills:     bills,
		refresher: refresher,
		journal:   jrnl,
		window:    window,
	}
}

// Discharge finalizes the patient's bill and asks the backend to release
// the bed. On success the confirmation display opens for the configured
// window, after which all local state resets and a feed refresh is
// scheduled. On failure nothing is reset so the caller can retry.
func (c *Coordinator) Discharge(ctx context.Context, patientID int64) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrInFlight
	}

	bill := c.bills.Bill()
	if bill == nil || bill.Patient == nil || bill.Patient.ID != patientID {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoBillLoaded, patientID)
	}

	c.inFlight = true
	c.mu.Unlock()

	if err := c.backend.Discharge(ctx, patientID); err != nil {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()

		c.record(journal.OutcomeFailure, patientID)
		return fmt.Errorf("discharge: patient %d: %w", patientID, err)
	}

	c.bills.Finalize()
	c.record(journal.OutcomeSuccess, patientID)

	c.mu.Lock()
	c.confirmUntil = time.Now().Add(c.window)
	c.mu.Unlock()

	time.AfterFunc(c.window, c.reset)
	return nil
}

// reset clears the loaded bill and the in-flight guard, then schedules a
// feed refresh so the released bed shows up.
func (c *Coordinator) reset() {
	c.mu.Lock()
	c.inFlight = false
	c.confirmUntil = time.Time{}
	c.mu.Unlock()

	c.bills.Clear()
	if c.refresher != nil {
		c.refresher.RequestRefresh()
	}
}

// Confirming reports whether the post-discharge confirmation display is
// still showing.
func (c *Coordinator) Confirming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.confirmUntil)
}

// InFlight reports whether a discharge request is outstanding or the
// confirmation window is still open.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Coordinator) record(outcome string, patientID int64) {
	if c.journal == nil {
		return
	}
	c.journal.Record(journal.Entry{
		Type:      journal.EventDischarge,
		Outcome:   outcome,
		PatientID: patientID,
	})
}
