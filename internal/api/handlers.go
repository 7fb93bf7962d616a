package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Roan215/Atlas-Frontend/internal/admission"
	"github.com/Roan215/Atlas-Frontend/internal/backend"
	"github.com/Roan215/Atlas-Frontend/internal/billing"
	"github.com/Roan215/Atlas-Frontend/internal/discharge"
	"github.com/Roan215/Atlas-Frontend/internal/feed"
	"github.com/Roan215/Atlas-Frontend/internal/insurance"
	"github.com/Roan215/Atlas-Frontend/internal/journal"
	"github.com/Roan215/Atlas-Frontend/internal/prefs"
	"github.com/Roan215/Atlas-Frontend/internal/triage"
	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	backend    *backend.Client
	sync       *feed.Synchronizer
	classifier *triage.Classifier
	billing    *billing.Engine
	discharge  *discharge.Coordinator
	intake     *admission.Service
	prefs      *prefs.Store
	journal    *journal.Journal
	matcher    *insurance.Matcher
}

// NewHandlers creates new handlers
func NewHandlers(c Components) *Handlers {
	return &Handlers{
		backend:    c.Backend,
		sync:       c.Feed,
		classifier: c.Classifier,
		billing:    c.Billing,
		discharge:  c.Discharge,
		intake:     c.Admission,
		prefs:      c.Prefs,
		journal:    c.Journal,
		matcher:    insurance.NewMatcher(nil),
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "atlas",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Hospital directory handlers

// ListHospitals lists the hospital directory
func (h *Handlers) ListHospitals(w http.ResponseWriter, r *http.Request) {
	hospitals, err := h.backend.ListHospitals(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respond(w, http.StatusOK, hospitals)
}

// GetHospital gets a hospital by ID
func (h *Handlers) GetHospital(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid hospital ID")
		return
	}

	hospital, err := h.backend.GetHospital(r.Context(), id)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respond(w, http.StatusOK, hospital)
}

// Admission handlers

type admitRequest struct {
	HospitalID int64          `json:"hospitalId"`
	Form       admission.Form `json:"form"`
}

// Admit performs a paramedic field admission
func (h *Handlers) Admit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.HospitalID == 0 {
		respondError(w, http.StatusBadRequest, "hospitalId is required")
		return
	}

	tag, err := h.intake.Admit(r.Context(), req.HospitalID, req.Form)
	if err != nil {
		if errors.Is(err, admission.ErrInvalidSeverity) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondBackendError(w, err)
		return
	}

	// The new arrival shows up on the board without waiting for the
	// next poll tick.
	if h.sync.Facility() == req.HospitalID {
		h.sync.RequestRefresh()
	}

	respond(w, http.StatusCreated, tag)
}

// Feed handlers

type feedResponse struct {
	Hospital *models.Hospital   `json:"hospital"`
	Records  []models.TriageTag `json:"records"`
	LastSync *time.Time         `json:"lastSync,omitempty"`
	SyncErr  string             `json:"syncError,omitempty"`
}

// GetFeed returns the current triage board for the selected facility
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	if h.sync.Facility() == 0 {
		respondError(w, http.StatusConflict, "No facility selected")
		return
	}

	resp := feedResponse{
		Hospital: h.sync.Hospital(),
		Records:  h.sync.Records(),
	}
	if at, err := h.sync.LastSync(); !at.IsZero() {
		resp.LastSync = &at
		if err != nil {
			resp.SyncErr = err.Error()
		}
	}
	respond(w, http.StatusOK, resp)
}

// RefreshFeed forces an immediate feed synchronization
func (h *Handlers) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Refresh(r.Context()); err != nil {
		if errors.Is(err, feed.ErrNoFacility) {
			respondError(w, http.StatusConflict, "No facility selected")
			return
		}
		respondBackendError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// Classification handlers

type transitionRequest struct {
	Color models.TriageColor `json:"color"`
}

// RequestTransition requests a classification change for a triage record
func (h *Handlers) RequestTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := h.classifier.RequestTransition(r.Context(), id, req.Color)
	if err != nil {
		respondTriageError(w, outcome, err)
		return
	}
	respond(w, http.StatusOK, outcome)
}

// ConfirmTransition advances an open confirmation sequence one step
func (h *Handlers) ConfirmTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	outcome, err := h.classifier.Confirm(r.Context(), id)
	if err != nil {
		respondTriageError(w, outcome, err)
		return
	}
	respond(w, http.StatusOK, outcome)
}

// CancelTransition abandons an open confirmation sequence
func (h *Handlers) CancelTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}
	respond(w, http.StatusOK, h.classifier.Cancel(id))
}

// TransitionStage reports the confirmation stage open for a record
func (h *Handlers) TransitionStage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	stage := h.classifier.Stage(id)
	respond(w, http.StatusOK, map[string]interface{}{
		"stage": stage,
		"label": stage.String(),
	})
}

func respondTriageError(w http.ResponseWriter, outcome triage.Outcome, err error) {
	switch {
	case errors.Is(err, triage.ErrInvalidColor):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, triage.ErrUnknownRecord), errors.Is(err, triage.ErrNoPendingTransition):
		respondError(w, http.StatusNotFound, err.Error())
	case outcome.Applied:
		// The local record carries the new color; only persistence
		// failed. Report both.
		respond(w, http.StatusBadGateway, map[string]interface{}{
			"error":   err.Error(),
			"outcome": outcome,
		})
	default:
		respondBackendError(w, err)
	}
}

// Patient record handlers

// UpdatePatient updates a patient record, typically to attach an
// insurance policy picked from a search result
func (h *Handlers) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}

	var patient models.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.backend.UpdatePatient(r.Context(), id, &patient)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
}

// SearchInsurance searches insurance records by subscriber name. When
// patient details ride along, the raw results are scored against them
// so the closest subscriber ranks first.
func (h *Handlers) SearchInsurance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name parameter is required")
		return
	}

	records, err := h.backend.SearchInsurance(r.Context(), name)
	if err != nil {
		respondBackendError(w, err)
		return
	}

	if q.Get("firstName") == "" && q.Get("lastName") == "" {
		respond(w, http.StatusOK, records)
		return
	}

	patient := &models.Patient{
		FirstName: q.Get("firstName"),
		LastName:  q.Get("lastName"),
	}
	if v := q.Get("age"); v != "" {
		patient.Age, _ = strconv.Atoi(v)
	}
	respond(w, http.StatusOK, h.matcher.Rank(patient, records))
}

// Billing handlers

// BillPreview loads the bill preview for a patient and makes it the
// active bill for item edits and discharge
func (h *Handlers) BillPreview(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathID(r, "patientId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}

	bill, err := h.billing.Load(r.Context(), patientID)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respond(w, http.StatusOK, bill)
}

// GenerateBill asks the backend to generate a persistent bill for the
// patient and makes it the active bill
func (h *Handlers) GenerateBill(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathID(r, "patientId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}

	bill, err := h.billing.Generate(r.Context(), patientID)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respond(w, http.StatusCreated, bill)
}

// GetInvoice returns the invoice decomposition of the active bill
func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.billing.Invoice()
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respond(w, http.StatusOK, invoice)
}

type addItemRequest struct {
	ResourceID int64 `json:"resourceId"`
	Quantity   int   `json:"quantity"`
}

// AddBillItem adds a resource line item to the active bill
func (h *Handlers) AddBillItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bill, err := h.billing.AddItem(r.Context(), req.ResourceID, req.Quantity)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	respond(w, http.StatusOK, bill)
}

// RemoveBillItem removes a line item from the active bill. Removal is
// destructive on the backend, so it requires an explicit confirm flag.
func (h *Handlers) RemoveBillItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusConflict, "Removal requires confirm=true")
		return
	}

	bill, err := h.billing.RemoveItem(r.Context(), itemID)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	respond(w, http.StatusOK, bill)
}

func respondBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, billing.ErrNoActiveBill), errors.Is(err, billing.ErrBillFinalized):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondBackendError(w, err)
	}
}

// Discharge discharges the patient whose bill is currently loaded
func (h *Handlers) Discharge(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathID(r, "patientId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}

	if err := h.discharge.Discharge(r.Context(), patientID); err != nil {
		switch {
		case errors.Is(err, discharge.ErrNoBillLoaded):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, discharge.ErrInFlight):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondBackendError(w, err)
		}
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"status":     "discharged",
		"patientId":  patientID,
		"confirming": h.discharge.Confirming(),
	})
}

// Journal handlers

// ListJournalEvents lists recorded workflow events, newest first
func (h *Handlers) ListJournalEvents(w http.ResponseWriter, r *http.Request) {
	filter := journal.EventFilter{
		Type:    r.URL.Query().Get("type"),
		Outcome: r.URL.Query().Get("outcome"),
	}
	if v := r.URL.Query().Get("tagId"); v != "" {
		filter.TagID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("patientId"); v != "" {
		filter.PatientID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	events := h.journal.Events(filter)
	if events == nil {
		events = []*models.JournalEvent{}
	}
	respond(w, http.StatusOK, events)
}

// GetJournalStats returns aggregate journal statistics
func (h *Handlers) GetJournalStats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.journal.GetStats())
}

// Preference handlers

type prefsResponse struct {
	Theme      string `json:"theme"`
	FacilityID *int64 `json:"facilityId,omitempty"`
}

// GetPrefs returns the stored operator preferences
func (h *Handlers) GetPrefs(w http.ResponseWriter, r *http.Request) {
	resp := prefsResponse{Theme: h.prefs.Theme()}
	if id, ok := h.prefs.Facility(); ok {
		resp.FacilityID = &id
	}
	respond(w, http.StatusOK, resp)
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// SetTheme stores the display theme preference
func (h *Handlers) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.prefs.SetTheme(req.Theme); err != nil {
		if errors.Is(err, prefs.ErrInvalidTheme) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

type facilityRequest struct {
	FacilityID int64 `json:"facilityId"`
}

// SetFacility stores the selected facility and points the live feed at it
func (h *Handlers) SetFacility(w http.ResponseWriter, r *http.Request) {
	var req facilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FacilityID <= 0 {
		respondError(w, http.StatusBadRequest, "facilityId must be positive")
		return
	}

	if err := h.prefs.SetFacility(req.FacilityID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sync.SetFacility(req.FacilityID)
	h.sync.RequestRefresh()

	respond(w, http.StatusOK, map[string]int64{"facilityId": req.FacilityID})
}

// ClearFacility removes the facility selection. The feed keeps running
// against nothing until a new facility is chosen.
func (h *Handlers) ClearFacility(w http.ResponseWriter, r *http.Request) {
	if err := h.prefs.ClearFacility(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.sync.SetFacility(0)
	respond(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Helpers

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

func respondBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		respondError(w, apiErr.StatusCode, apiErr.Message)
		return
	}
	respondError(w, http.StatusBadGateway, err.Error())
}
