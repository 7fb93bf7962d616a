// Package feed maintains the live triage feed for the selected facility.
// It polls the backend on a fixed interval, refreshes on demand after
// mutating actions, and reconciles optimistic local edits against the
// fetched snapshot by preferring the most recent write.
package feed

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Backend is the subset of backend operations the synchronizer needs.
type Backend interface {
	TriageFeed(ctx context.Context, hospitalID int64) ([]models.TriageTag, error)
	GetHospital(ctx context.Context, id int64) (*models.Hospital, error)
}

// ErrNoFacility is returned by Refresh when no facility is selected.
var ErrNoFacility = errors.New("feed: no facility selected")

// localEdit is an optimistic color write not yet confirmed by a refresh.
type localEdit struct {
	color     models.TriageColor
	appliedAt time.Time
}

// Synchronizer keeps the local feed in sync with the backend.
type Synchronizer struct {
	backend  Backend
	interval time.Duration

	mu         sync.RWMutex
	facilityID int64
	records    []models.TriageTag
	hospital   *models.Hospital
	overlay    map[int64]localEdit
	lastSync   time.Time
	lastErr    error

	running   bool
	stopCh    chan struct{}
	refreshCh chan struct{}
}

// NewSynchronizer creates a new synchronizer
func NewSynchronizer(backend Backend, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Synchronizer{
		backend:   backend,
		interval:  interval,
		overlay:   make(map[int64]localEdit),
		stopCh:    make(chan struct{}),
		refreshCh: make(chan struct{}, 1),
	}
}

// SetFacility selects the facility whose feed is synchronized. Changing
// facility drops the current snapshot and pending local edits.
func (s *Synchronizer) SetFacility(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.facilityID == id {
		return
	}
	s.facilityID = id
	s.records = nil
	s.hospital = nil
	s.overlay = make(map[int64]localEdit)
	s.lastSync = time.Time{}
	s.lastErr = nil
}

// Facility returns the currently selected facility id (0 when none).
func (s *Synchronizer) Facility() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facilityID
}

// Start starts the refresh loop. The loop stops when ctx is canceled or
// Stop is called.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop stops the refresh loop
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopCh)
		s.running = false
	}
}

func (s *Synchronizer) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
		case <-s.refreshCh:
		}

		if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrNoFacility) {
			// A failed cycle keeps the last good snapshot; the loop
			// keeps polling at the same interval.
			log.Printf("feed: refresh failed: %v", err)
		}
	}
}

// RequestRefresh schedules an immediate refresh cycle. Used after
// mutating actions so the feed catches up without waiting a full
// interval. Duplicate requests coalesce.
func (s *Synchronizer) RequestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Refresh performs one synchronization cycle: it fetches the triage feed
// and the facility status concurrently, orders records newest admission
// first, and replaces the local snapshot. Local edits newer than the
// start of the cycle survive the replacement so a stale response cannot
// roll back a fresher optimistic write.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.RLock()
	facilityID := s.facilityID
	s.mu.RUnlock()

	if facilityID == 0 {
		return ErrNoFacility
	}

	started := time.Now()

	var (
		wg          sync.WaitGroup
		tags        []models.TriageTag
		hospital    *models.Hospital
		feedErr     error
		hospitalErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		tags, feedErr = s.backend.TriageFeed(ctx, facilityID)
	}()
	go func() {
		defer wg.Done()
		hospital, hospitalErr = s.backend.GetHospital(ctx, facilityID)
	}()
	wg.Wait()

	if feedErr != nil || hospitalErr != nil {
		err := feedErr
		if err == nil {
			err = hospitalErr
		}
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	// Identifiers are unique and monotonically assigned, so descending
	// id is a total order with the newest admission first.
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID > tags[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.facilityID != facilityID {
		// Facility changed while the request was in flight.
		return nil
	}

	for i := range tags {
		edit, ok := s.overlay[tags[i].ID]
		if !ok {
			continue
		}
		switch {
		case tags[i].TagColor == edit.color:
			// The backend caught up; the edit is confirmed.
			delete(s.overlay, tags[i].ID)
		case edit.appliedAt.After(started):
			// The edit happened after this cycle's request went out;
			// the response is stale for this record.
			tags[i].TagColor = edit.color
		default:
			// The backend disagrees with an older local edit; the
			// server value wins.
			delete(s.overlay, tags[i].ID)
		}
	}

	s.records = tags
	s.hospital = hospital
	s.lastSync = time.Now()
	s.lastErr = nil
	return nil
}

// Records returns a copy of the current feed snapshot.
func (s *Synchronizer) Records() []models.TriageTag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.TriageTag, len(s.records))
	copy(records, s.records)
	return records
}

// Hospital returns the last fetched facility status, or nil before the
// first successful refresh.
func (s *Synchronizer) Hospital() *models.Hospital {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.hospital == nil {
		return nil
	}
	hospital := *s.hospital
	return &hospital
}

// LastSync returns when the snapshot was last replaced, and the error of
// the most recent cycle if it failed.
func (s *Synchronizer) LastSync() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, s.lastErr
}

// Record looks up a feed record by id.
func (s *Synchronizer) Record(tagID int64) (models.TriageTag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records {
		if record.ID == tagID {
			return record, true
		}
	}
	return models.TriageTag{}, false
}

// ApplyColor sets a record's color optimistically. The write is stamped
// so refresh reconciliation can tell it apart from stale responses.
func (s *Synchronizer) ApplyColor(tagID int64, color models.TriageColor, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == tagID {
			s.records[i].TagColor = color
			break
		}
	}
	s.overlay[tagID] = localEdit{color: color, appliedAt: at}
}
