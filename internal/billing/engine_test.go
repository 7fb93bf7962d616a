package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

type fakeBackend struct {
	bill      *models.Bill
	addErr    error
	removeErr error
	addCalls  int
}

func (b *fakeBackend) BillPreview(ctx context.Context, patientID int64) (*models.Bill, error) {
	if b.bill == nil {
		return nil, errors.New("no bill")
	}
	return b.bill, nil
}

func (b *fakeBackend) GenerateBill(ctx context.Context, patientID int64) (*models.Bill, error) {
	return b.BillPreview(ctx, patientID)
}

func (b *fakeBackend) AddBillItem(ctx context.Context, billID, resourceID int64, quantity int) (*models.Bill, error) {
	b.addCalls++
	if b.addErr != nil {
		return nil, b.addErr
	}
	updated := *b.bill
	item := models.BillItem{
		ID:         int64(len(b.bill.Items) + 1),
		Quantity:   quantity,
		TotalPrice: decimal.NewFromInt(50).Mul(decimal.NewFromInt(int64(quantity))),
		Resource:   models.Resource{ID: resourceID, Name: "IV Fluids", UnitPrice: decimal.NewFromInt(50)},
	}
	updated.Items = append(append([]models.BillItem{}, b.bill.Items...), item)
	updated.TotalAmount = b.bill.TotalAmount.Add(item.TotalPrice)
	b.bill = &updated
	return &updated, nil
}

func (b *fakeBackend) RemoveBillItem(ctx context.Context, billID, itemID int64) (*models.Bill, error) {
	if b.removeErr != nil {
		return nil, b.removeErr
	}
	updated := *b.bill
	updated.Items = nil
	for _, item := range b.bill.Items {
		if item.ID == itemID {
			updated.TotalAmount = updated.TotalAmount.Sub(item.TotalPrice)
			continue
		}
		updated.Items = append(updated.Items, item)
	}
	b.bill = &updated
	return &updated, nil
}

func testBill(total int64) *models.Bill {
	return &models.Bill{
		ID:          11,
		Patient:     &models.Patient{ID: 3, InsuranceProvider: "Acme Health"},
		TotalAmount: decimal.NewFromInt(total),
		Status:      models.BillPending,
	}
}

func newTestEngine(backend *fakeBackend) *Engine {
	return NewEngine(backend, nil, decimal.NewFromInt(100))
}

func TestLoad(t *testing.T) {
	backend := &fakeBackend{bill: testBill(500)}
	e := newTestEngine(backend)

	bill, err := e.Load(context.Background(), 3)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if bill.ID != 11 {
		t.Errorf("bill ID = %d, want 11", bill.ID)
	}
	if e.Bill() == nil {
		t.Error("bill should be active after load")
	}
}

func TestAddItem_Validation(t *testing.T) {
	backend := &fakeBackend{bill: testBill(500)}
	e := newTestEngine(backend)

	if _, err := e.AddItem(context.Background(), 1, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("quantity 0: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := e.AddItem(context.Background(), 1, -2); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("negative quantity: expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := e.AddItem(context.Background(), 1, 1); !errors.Is(err, ErrNoActiveBill) {
		t.Errorf("no bill loaded: expected ErrNoActiveBill, got %v", err)
	}
	if backend.addCalls != 0 {
		t.Errorf("rejected requests must not reach the backend, got %d calls", backend.addCalls)
	}
}

func TestAddThenRemoveRestoresTotal(t *testing.T) {
	backend := &fakeBackend{bill: testBill(500)}
	e := newTestEngine(backend)
	ctx := context.Background()

	if _, err := e.Load(ctx, 3); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	bill, err := e.AddItem(ctx, 7, 2)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !bill.TotalAmount.Equal(decimal.NewFromInt(600)) {
		t.Errorf("total after add = %s, want 600", bill.TotalAmount)
	}
	if len(bill.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(bill.Items))
	}

	bill, err = e.RemoveItem(ctx, bill.Items[0].ID)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !bill.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total after remove = %s, want 500", bill.TotalAmount)
	}
	if len(bill.Items) != 0 {
		t.Errorf("expected 0 items, got %d", len(bill.Items))
	}
}

func TestRemoveItem_NotOnBill(t *testing.T) {
	backend := &fakeBackend{bill: testBill(500)}
	e := newTestEngine(backend)
	ctx := context.Background()

	if _, err := e.Load(ctx, 3); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := e.RemoveItem(ctx, 99); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestFinalizedBillRejectsMutations(t *testing.T) {
	backend := &fakeBackend{bill: testBill(500)}
	e := newTestEngine(backend)
	ctx := context.Background()

	if _, err := e.Load(ctx, 3); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := e.AddItem(ctx, 7, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	itemID := e.Bill().Items[0].ID

	e.Finalize()

	if _, err := e.AddItem(ctx, 7, 1); !errors.Is(err, ErrBillFinalized) {
		t.Errorf("add on finalized bill: expected ErrBillFinalized, got %v", err)
	}
	if _, err := e.RemoveItem(ctx, itemID); !errors.Is(err, ErrBillFinalized) {
		t.Errorf("remove on finalized bill: expected ErrBillFinalized, got %v", err)
	}
}

func TestAddItemFailureKeepsLocalBill(t *testing.T) {
	backend := &fakeBackend{bill: testBill(500)}
	e := newTestEngine(backend)
	ctx := context.Background()

	if _, err := e.Load(ctx, 3); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	backend.addErr = errors.New("backend down")

	if _, err := e.AddItem(ctx, 7, 1); err == nil {
		t.Fatal("expected error")
	}
	if bill := e.Bill(); !bill.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("failed add must not change the local bill, total = %s", bill.TotalAmount)
	}
}

func TestInvoiceDecomposition(t *testing.T) {
	bill := testBill(500)
	backend := &fakeBackend{bill: bill}
	e := newTestEngine(backend)
	ctx := context.Background()

	if _, err := e.Load(ctx, 3); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := e.AddItem(ctx, 7, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	inv, err := e.Invoice()
	if err != nil {
		t.Fatalf("invoice failed: %v", err)
	}

	// 600 total, 100 transport, 100 in items leaves a 400 base fee.
	if !inv.BaseFee.Equal(decimal.NewFromInt(400)) {
		t.Errorf("base fee = %s, want 400", inv.BaseFee)
	}
	if !inv.TransportFee.Equal(decimal.NewFromInt(100)) {
		t.Errorf("transport fee = %s, want 100", inv.TransportFee)
	}
	if !inv.Subtotal.Equal(decimal.NewFromInt(600)) {
		t.Errorf("subtotal = %s, want 600", inv.Subtotal)
	}
	if len(inv.Lines) != 1 || inv.Lines[0].Description != "IV Fluids" || inv.Lines[0].Quantity != 2 {
		t.Errorf("unexpected lines: %+v", inv.Lines)
	}
	if inv.Insurance != nil {
		t.Error("no insurance line expected without coverage")
	}
}

func TestInvoiceInsuranceDeduction(t *testing.T) {
	bill := testBill(500)
	bill.InsuranceCoverage = decimal.NewFromInt(300)
	bill.PatientPayable = decimal.NewFromInt(200)
	backend := &fakeBackend{bill: bill}
	e := newTestEngine(backend)

	if _, err := e.Load(context.Background(), 3); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	inv, err := e.Invoice()
	if err != nil {
		t.Fatalf("invoice failed: %v", err)
	}
	if inv.Insurance == nil {
		t.Fatal("expected an insurance deduction line")
	}
	if inv.Insurance.Description != "Acme Health" {
		t.Errorf("deduction labeled %q, want provider name", inv.Insurance.Description)
	}
	if !inv.Insurance.Amount.Equal(decimal.NewFromInt(-300)) {
		t.Errorf("deduction amount = %s, want -300", inv.Insurance.Amount)
	}
	if !inv.PatientPayable.Equal(decimal.NewFromInt(200)) {
		t.Errorf("patient payable = %s, want 200", inv.PatientPayable)
	}
}

func TestInvoiceNegativeBaseFeeClampsToZero(t *testing.T) {
	// Total below the configured transport fee.
	backend := &fakeBackend{bill: testBill(60)}
	e := newTestEngine(backend)

	if _, err := e.Load(context.Background(), 3); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	inv, err := e.Invoice()
	if err != nil {
		t.Fatalf("invoice failed: %v", err)
	}
	if !inv.BaseFee.IsZero() {
		t.Errorf("base fee = %s, want 0", inv.BaseFee)
	}
}

func TestInvoiceWithoutActiveBill(t *testing.T) {
	e := newTestEngine(&fakeBackend{})
	if _, err := e.Invoice(); !errors.Is(err, ErrNoActiveBill) {
		t.Errorf("expected ErrNoActiveBill, got %v", err)
	}
}
