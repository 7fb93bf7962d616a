package billing

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// InvoiceLine is a single row on the rendered invoice.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice is the presentational decomposition of the active bill. It is
// derived for display only; the authoritative figures remain the bill's
// server-owned totals.
type Invoice struct {
	BillID         int64           `json:"billId"`
	Patient        *models.Patient `json:"patient"`
	Status         models.BillStatus `json:"status"`
	BaseFee        decimal.Decimal `json:"baseFee"`
	TransportFee   decimal.Decimal `json:"transportFee"`
	Lines          []InvoiceLine   `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Insurance      *InvoiceLine    `json:"insurance,omitempty"`
	PatientPayable decimal.Decimal `json:"patientPayable"`
}

// Invoice derives the invoice view of the active bill.
//
// The base fee is not a stored field: it is whatever remains of the
// server total after the fixed transport fee and the line items are
// taken out. The backend's fee model can drift from the local constant,
// so a negative remainder is clamped to zero rather than displayed.
func (e *Engine) Invoice() (*Invoice, error) {
	e.mu.RLock()
	bill := e.bill
	e.mu.RUnlock()

	if bill == nil {
		return nil, ErrNoActiveBill
	}

	itemTotal := bill.ItemTotal()
	baseFee := bill.TotalAmount.Sub(e.transportFee).Sub(itemTotal)
	if baseFee.IsNegative() {
		log.Printf("billing: base fee for bill %d came out negative (%s), clamping to zero", bill.ID, baseFee)
		baseFee = decimal.Zero
	}

	inv := &Invoice{
		BillID:         bill.ID,
		Patient:        bill.Patient,
		Status:         bill.Status,
		BaseFee:        baseFee,
		TransportFee:   e.transportFee,
		Subtotal:       bill.TotalAmount,
		PatientPayable: bill.PatientPayable,
	}

	for _, item := range bill.Items {
		inv.Lines = append(inv.Lines, InvoiceLine{
			Description: item.Resource.Name,
			Quantity:    item.Quantity,
			Amount:      item.TotalPrice,
		})
	}

	if bill.InsuranceCoverage.IsPositive() {
		provider := "Insurance"
		if bill.Patient != nil && bill.Patient.InsuranceProvider != "" {
			provider = bill.Patient.InsuranceProvider
		}
		inv.Insurance = &InvoiceLine{
			Description: provider,
			Amount:      bill.InsuranceCoverage.Neg(),
		}
	}

	return inv, nil
}
