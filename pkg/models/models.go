// Package models defines the shared domain types for the ATLAS intake core.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TriageColor is the severity classification assigned to a patient.
type TriageColor string

const (
	ColorRed    TriageColor = "RED"    // immediate
	ColorYellow TriageColor = "YELLOW" // delayed
	ColorGreen  TriageColor = "GREEN"  // stable
	ColorBlack  TriageColor = "BLACK"  // deceased
)

// Valid reports whether c is one of the four triage colors.
func (c TriageColor) Valid() bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen, ColorBlack:
		return true
	}
	return false
}

// Label returns the clinical label displayed for the color.
func (c TriageColor) Label() string {
	switch c {
	case ColorRed:
		return "IMMEDIATE"
	case ColorYellow:
		return "DELAYED"
	case ColorGreen:
		return "STABLE"
	case ColorBlack:
		return "DECEASED"
	}
	return string(c)
}

// Patient represents a patient record as served by the hospital backend.
type Patient struct {
	ID            int64  `json:"id,omitempty"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	ContactNumber string `json:"contactNumber"`
	Address       string `json:"address"`

	// Populated from the backend insurance relationship.
	InsuranceProvider string  `json:"insuranceProvider,omitempty"`
	InsuranceNumber   string  `json:"insuranceNumber,omitempty"`
	InsuranceCoverage float64 `json:"insuranceCoverage,omitempty"` // percentage, 0-100
}

// FullName returns the display name for the patient.
func (p *Patient) FullName() string {
	if p == nil {
		return "Unknown Patient"
	}
	return p.FirstName + " " + p.LastName
}

// Hospital represents a facility in the directory. Bed counts are
// authoritative on the backend; this side only reads them.
type Hospital struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TotalBeds     int    `json:"totalBeds"`
	AvailableBeds int    `json:"availableBeds"`
	ContactNumber string `json:"contactNumber"`
	Address       string `json:"address"`
}

// Full reports whether the facility has no beds left (diversion).
func (h *Hospital) Full() bool {
	return h.AvailableBeds == 0
}

// Occupancy returns the occupied share of total beds as a percentage.
func (h *Hospital) Occupancy() float64 {
	if h.TotalBeds == 0 {
		return 0
	}
	return float64(h.TotalBeds-h.AvailableBeds) / float64(h.TotalBeds) * 100
}

// TriageTag is a live feed entry: a triage record joined with its patient.
type TriageTag struct {
	ID         int64       `json:"id"`
	Patient    *Patient    `json:"patient"`
	TagColor   TriageColor `json:"tagColor"`
	Condition  string      `json:"condition"`
	VitalSigns string      `json:"vitalSigns"`
	AssignedAt time.Time   `json:"assignedAt"`
}

// BillStatus is the settlement state of a bill.
type BillStatus string

const (
	BillPending          BillStatus = "PENDING"
	BillInsurancePending BillStatus = "INSURANCE_PENDING"
	BillPaid             BillStatus = "PAID"
)

// Resource is a billable resource referenced by a line item.
type Resource struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// BillItem is a single billable resource usage entry on a bill.
type BillItem struct {
	ID         int64           `json:"id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Resource   Resource        `json:"resource"`
}

// Bill is a patient invoice. Monetary totals are authoritative on the
// backend; every mutation returns a fresh snapshot that replaces the
// local copy wholesale.
type Bill struct {
	ID                int64           `json:"id"`
	Patient           *Patient        `json:"patient"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	InsuranceCoverage decimal.Decimal `json:"insuranceCoverage"`
	PatientPayable    decimal.Decimal `json:"patientPayable"`
	Status            BillStatus      `json:"status"`
	Items             []BillItem      `json:"items"`
	GeneratedAt       time.Time       `json:"generatedAt"`
	DueDate           time.Time       `json:"dueDate"`
}

// ItemTotal returns the sum of all line item prices.
func (b *Bill) ItemTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// InsurancePlan describes the plan a policy belongs to.
type InsurancePlan struct {
	ProviderName       string  `json:"providerName"`
	CoveragePercentage float64 `json:"coveragePercentage"` // fraction, 0-1
}

// InsuranceRecord is a candidate policy returned by the insurance search.
type InsuranceRecord struct {
	ID                  int64         `json:"id"`
	PolicyNumber        string        `json:"policyNumber"`
	SubscriberFirstName string        `json:"subscriberFirstName"`
	SubscriberLastName  string        `json:"subscriberLastName"`
	SubscriberAge       int           `json:"subscriberAge"`
	Plan                InsurancePlan `json:"plan"`
}

// JournalEvent is an operational event recorded by the journal: status
// transitions, confirmation steps, billing mutations, discharges and
// admissions.
type JournalEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Outcome   string            `json:"outcome"` // "success" or "failure"
	TagID     int64             `json:"tagId,omitempty"`
	PatientID int64             `json:"patientId,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	RecordedAt time.Time        `json:"recordedAt"`
}
