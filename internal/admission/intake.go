// Package admission handles paramedic field admissions: a severity-tagged
// patient is created on the backend and a bed is reserved in one call.
package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/Roan215/Atlas-Frontend/internal/journal"
	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// Field defaults used when the crew has no time to collect details.
const (
	defaultAddress   = "Incoming from Ambulance"
	defaultContact   = "N/A"
	defaultCondition = "No description provided"
	defaultVitals    = "Vitals pending"
	genderUnknown    = "UNKNOWN"
)

// Backend is the subset of backend operations the service needs.
type Backend interface {
	AdmitPatient(ctx context.Context, hospitalID int64, patient *models.Patient, severity models.TriageColor, condition, vitals string) (*models.TriageTag, error)
}

// ErrInvalidSeverity is returned for a severity outside the four classes.
var ErrInvalidSeverity = errors.New("admission: invalid severity")

// Form is the field admission form filled in by the paramedic crew.
type Form struct {
	FirstName string             `json:"firstName"`
	LastName  string             `json:"lastName"`
	Age       int                `json:"age"`
	Gender    string             `json:"gender"`
	Severity  models.TriageColor `json:"severity"`
	Condition string             `json:"condition"`
	Vitals    string             `json:"vitals"`
}

// Service performs field admissions.
type Service struct {
	backend Backend
	journal *journal.Journal
}

// NewService creates a new admission service
func NewService(backend Backend, jrnl *journal.Journal) *Service {
	return &Service{backend: backend, journal: jrnl}
}

// Admit admits a patient to the given hospital. A RED severity is rapid
// transport: the gender is forced to UNKNOWN regardless of the form, and
// the rest of the record is completed at ER reception. Empty condition
// and vitals fall back to the field defaults.
func (s *Service) Admit(ctx context.Context, hospitalID int64, form Form) (*models.TriageTag, error) {
	if !form.Severity.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, form.Severity)
	}

	gender := form.Gender
	if form.Severity == models.ColorRed {
		gender = genderUnknown
	}

	condition := form.Condition
	if condition == "" {
		condition = defaultCondition
	}
	vitals := form.Vitals
	if vitals == "" {
		vitals = defaultVitals
	}

	patient := &models.Patient{
		FirstName:     form.FirstName,
		LastName:      form.LastName,
		Age:           form.Age,
		Gender:        gender,
		Address:       defaultAddress,
		ContactNumber: defaultContact,
	}

	tag, err := s.backend.AdmitPatient(ctx, hospitalID, patient, form.Severity, condition, vitals)
	if err != nil {
		s.record(journal.OutcomeFailure, 0, form.Severity)
		return nil, fmt.Errorf("admission: hospital %d: %w", hospitalID, err)
	}

	var patientID int64
	if tag.Patient != nil {
		patientID = tag.Patient.ID
	}
	s.record(journal.OutcomeSuccess, patientID, form.Severity)
	return tag, nil
}

func (s *Service) record(outcome string, patientID int64, severity models.TriageColor) {
	if s.journal == nil {
		return
	}
	s.journal.Record(journal.Entry{
		Type:      journal.EventAdmission,
		Outcome:   outcome,
		PatientID: patientID,
		Detail:    map[string]string{"severity": string(severity)},
	})
}
