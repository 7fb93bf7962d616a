// Package billing maintains the line-item ledger for a patient's active
// bill. Monetary totals are never computed locally: every mutation calls
// the backend and adopts the bill snapshot it returns. The engine only
// derives the presentational invoice decomposition.
package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Roan215/Atlas-Frontend/internal/journal"
	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Backend is the subset of backend operations the engine needs.
type Backend interface {
	BillPreview(ctx context.Context, patientID int64) (*models.Bill, error)
	GenerateBill(ctx context.Context, patientID int64) (*models.Bill, error)
	AddBillItem(ctx context.Context, billID, resourceID int64, quantity int) (*models.Bill, error)
	RemoveBillItem(ctx context.Context, billID, itemID int64) (*models.Bill, error)
}

var (
	// ErrNoActiveBill is returned when no bill has been loaded.
	ErrNoActiveBill = errors.New("billing: no active bill loaded")
	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("billing: quantity must be at least 1")
	// ErrItemNotFound is returned when the item is not on the active bill.
	ErrItemNotFound = errors.New("billing: item not on active bill")
	// ErrBillFinalized is returned for mutations after discharge.
	ErrBillFinalized = errors.New("billing: bill is finalized")
)

// Engine operates on the single active bill of one patient at a time.
type Engine struct {
	backend      Backend
	journal      *journal.Journal
	transportFee decimal.Decimal

	mu        sync.RWMutex
	bill      *models.Bill
	finalized bool
}

// NewEngine creates a new billing engine
func NewEngine(backend Backend, jrnl *journal.Journal, transportFee decimal.Decimal) *Engine {
	return &Engine{
		backend:      backend,
		journal:      jrnl,
		transportFee: transportFee,
	}
}

// Load fetches the bill preview for a patient and makes it the active
// bill. Loading replaces any previously active bill.
func (e *Engine) Load(ctx context.Context, patientID int64) (*models.Bill, error) {
	bill, err := e.backend.BillPreview(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("billing: preview for patient %d: %w", patientID, err)
	}

	e.mu.Lock()
	e.bill = bill
	e.finalized = false
	e.mu.Unlock()

	return bill, nil
}

// Generate asks the backend to generate a persistent bill for the
// patient and makes it the active bill.
func (e *Engine) Generate(ctx context.Context, patientID int64) (*models.Bill, error) {
	bill, err := e.backend.GenerateBill(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("billing: generate for patient %d: %w", patientID, err)
	}

	e.mu.Lock()
	e.bill = bill
	e.finalized = false
	e.mu.Unlock()

	return bill, nil
}

// Bill returns the active bill, or nil when none is loaded.
func (e *Engine) Bill() *models.Bill {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bill
}

// Clear drops the active bill.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bill = nil
	e.finalized = false
}

// Finalize marks the active bill immutable. Called by the discharge
// workflow once the backend accepts the discharge.
func (e *Engine) Finalize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bill != nil {
		e.finalized = true
	}
}

// AddItem appends a resource usage to the active bill. The updated bill
// returned by the backend replaces the local copy.
func (e *Engine) AddItem(ctx context.Context, resourceID int64, quantity int) (*models.Bill, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	e.mu.RLock()
	bill, finalized := e.bill, e.finalized
	e.mu.RUnlock()

	if bill == nil {
		return nil, ErrNoActiveBill
	}
	if finalized {
		return nil, ErrBillFinalized
	}

	updated, err := e.backend.AddBillItem(ctx, bill.ID, resourceID, quantity)
	if err != nil {
		e.record(journal.EventBillItemAdded, journal.OutcomeFailure, bill)
		return nil, fmt.Errorf("billing: add item to bill %d: %w", bill.ID, err)
	}

	e.adopt(updated)
	e.record(journal.EventBillItemAdded, journal.OutcomeSuccess, updated)
	return updated, nil
}

// RemoveItem removes a line item from active bill. Removal is
// irreversible once submitted; callers must collect the user's
// confirmation before invoking it.
func (e *Engine) RemoveItem(ctx context.Context, itemID int64) (*models.Bill, error) {
	e.mu.RLock()
	bill, finalized := e.bill, e.finalized
	e.mu.RUnlock()

	if bill == nil {
		return nil, ErrNoActiveBill
	}
	if finalized {
		return nil, ErrBillFinalized
	}

	found := false
	for _, item := range bill.Items {
		if item.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}

	updated, err := e.backend.RemoveBillItem(ctx, bill.ID, itemID)
	if err != nil {
		e.record(journal.EventBillItemRemoved, journal.OutcomeFailure, bill)
		return nil, fmt.Errorf("billing: remove item %d from bill %d: %w", itemID, bill.ID, err)
	}

	e.adopt(updated)
	e.record(journal.EventBillItemRemoved, journal.OutcomeSuccess, updated)
	return updated, nil
}

// adopt replaces the active bill with a backend snapshot, unless the
// active bill changed underneath the in-flight mutation.
func (e *Engine) adopt(updated *models.Bill) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bill != nil && e.bill.ID == updated.ID {
		e.bill = updated
	}
}

func (e *Engine) record(eventType, outcome string, bill *models.Bill) {
	if e.journal == nil {
		return
	}

	var patientID int64
	if bill.Patient != nil {
		patientID = bill.Patient.ID
	}
	e.journal.Record(journal.Entry{
		Type:      eventType,
		Outcome:   outcome,
		PatientID: patientID,
		Detail:    map[string]string{"billId": fmt.Sprintf("%d", bill.ID)},
	})
}
