package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/cart"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/checkout"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/table"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNoEmployee      = errors.New("no employee bound to session")
	ErrAlreadyRunning  = errors.New("settlement already in progress")
	ErrNoTableSelected = cart.ErrNoTableSelected
)

// State of the settlement machine. Transitions:
// Idle -> Validating -> Persisting -> UpdatingLoyalty -> Finalizing -> Idle,
// with Failed reachable from the persisting states.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StatePersisting State = "persisting"
	StateLoyalty    State = "updating_loyalty"
	StateFinalizing State = "finalizing"
	StateFailed     State = "failed"
)

// RemoteWriter is the slice of the remote data API the coordinator needs.
// The store offers no multi-row atomicity; every call is one row.
type RemoteWriter interface {
	CreateInvoice(ctx context.Context, inv domain.Invoice) error
	CreateInvoiceLine(ctx context.Context, line domain.InvoiceLine) error
	UpdateCustomer(ctx context.Context, c domain.Customer) error
}

// Dispatcher pushes the kitchen ticket. Fire and forget: errors become
// warnings, never failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, tableID, tableName, employee string, items []domain.LineItem) error
}

// Printer renders and prints the receipt. Also warning-only.
type Printer interface {
	Print(inv domain.Invoice, lines []domain.InvoiceLine) error
}

// Request carries the operator's checkout inputs.
type Request struct {
	Employee       domain.Employee
	Customer       *domain.Customer
	ManualDiscount decimal.Decimal
	Tendered       decimal.Decimal
	PaymentMethod  string
}

// StepRecord is one entry of the per-attempt saga log. With no transaction
// on the remote side, the log is what tells an operator which writes
// committed before a failure.
type StepRecord struct {
	Step string    `json:"step"`
	At   time.Time `json:"at"`
	Err  string    `json:"err,omitempty"`
}

// Result is the outcome of a completed settlement.
type Result struct {
	Invoice      domain.Invoice
	Lines        []domain.InvoiceLine
	Breakdown    checkout.Breakdown
	PointsEarned int64
	NewTier      domain.Tier
	Warnings     []string
	Steps        []StepRecord
}

// LineWriteError reports a line-item write that failed after the invoice
// header was already committed. The header is not rolled back; the written
// count tells the operator exactly which lines need manual reconciliation.
type LineWriteError struct {
	InvoiceID string
	Index     int
	Written   int
	Err       error
}

func (e *LineWriteError) Error() string {
	return fmt.Sprintf("invoice %s: line %d write failed after %d lines committed: %v",
		e.InvoiceID, e.Index, e.Written, e.Err)
}

func (e *LineWriteError) Unwrap() error { return e.Err }

// Coordinator drives a settlement through its states. One attempt at a
// time; the Committing flag lets the UI disable its close affordance once
// persistence has begun.
type Coordinator struct {
	calc     checkout.Calculator
	remote   RemoteWriter
	kitchen  Dispatcher
	receipts Printer
	reg      *table.Registry
	ctrl     *table.Controller
	cart     *cart.Store
	lg       *logger.Logger

	busy       atomic.Bool
	committing atomic.Bool
	state      atomic.Value // State
}

func NewCoordinator(calc checkout.Calculator, remote RemoteWriter, kitchen Dispatcher,
	receipts Printer, reg *table.Registry, ctrl *table.Controller, store *cart.Store,
	lg *logger.Logger) *Coordinator {
	co := &Coordinator{
		calc: calc, remote: remote, kitchen: kitchen, receipts: receipts,
		reg: reg, ctrl: ctrl, cart: store, lg: lg,
	}
	co.state.Store(StateIdle)
	return co
}

// Committing reports whether remote persistence has begun for the current
// attempt. The UI must not allow the checkout dialog to close while true.
func (co *Coordinator) Committing() bool { return co.committing.Load() }

// State reports the current machine state.
func (co *Coordinator) State() State { return co.state.Load().(State) }

// Settle runs one settlement attempt. It is not idempotent: re-invoking it
// after a partial failure creates a duplicate invoice, which is why each
// attempt carries a fresh idempotency key for downstream reconciliation.
// On failure the returned Result still carries the step log, so the caller
// can see exactly which writes committed before the error.
func (co *Coordinator) Settle(ctx context.Context, req Request) (*Result, error) {
	if !co.busy.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer co.busy.Store(false)
	defer co.committing.Store(false)
	defer co.state.Store(StateIdle)

	res := &Result{}
	step := func(name string, err error) {
		rec := StepRecord{Step: name, At: time.Now().UTC()}
		if err != nil {
			rec.Err = err.Error()
		}
		res.Steps = append(res.Steps, rec)
	}

	// Validating: everything here happens before the first remote write.
	co.state.Store(StateValidating)
	tableID := co.cart.Owner()
	if tableID == "" {
		step("validate", ErrNoTableSelected)
		return res, ErrNoTableSelected
	}
	items := co.cart.Items()
	if len(items) == 0 {
		step("validate", ErrEmptyCart)
		return res, ErrEmptyCart
	}
	if req.Employee.ID == "" {
		step("validate", ErrNoEmployee)
		return res, ErrNoEmployee
	}
	var tier domain.Tier
	if req.Customer != nil {
		tier = req.Customer.Tier
	}
	bd, err := co.calc.Compute(items, tier, req.ManualDiscount, req.Tendered)
	if err != nil {
		step("validate", err)
		return res, err
	}
	step("validate", nil)
	res.Breakdown = bd

	inv := co.buildInvoice(tableID, req, bd)
	lines := buildLines(inv.ID, items)
	res.Invoice = inv
	res.Lines = lines

	// Persisting: header first, then lines strictly in cart order so a
	// partial failure is diagnosable by index.
	co.state.Store(StatePersisting)
	co.committing.Store(true)
	if err := co.remote.CreateInvoice(ctx, inv); err != nil {
		step("invoice_header", err)
		co.state.Store(StateFailed)
		co.lg.Error("invoice_write_failed", err, map[string]any{"invoice_id": inv.ID})
		return res, fmt.Errorf("create invoice: %w", err)
	}
	step("invoice_header", nil)
	for i, line := range lines {
		if err := co.remote.CreateInvoiceLine(ctx, line); err != nil {
			lwe := &LineWriteError{InvoiceID: inv.ID, Index: i, Written: i, Err: err}
			step(fmt.Sprintf("invoice_line_%d", i), err)
			co.state.Store(StateFailed)
			co.lg.Error("invoice_line_write_failed", err, map[string]any{
				"invoice_id": inv.ID, "line_index": i, "lines_committed": i,
			})
			return res, lwe
		}
	}
	step("invoice_lines", nil)

	// UpdatingLoyalty: the invoice is committed, so a failure here stands
	// as a warning for manual follow-up instead of a rollback.
	if req.Customer != nil {
		co.state.Store(StateLoyalty)
		cust := *req.Customer
		res.PointsEarned = domain.PointsEarned(cust.Tier, bd.Total)
		cust.Points += res.PointsEarned
		cust.LifetimeSpend = cust.LifetimeSpend.Add(bd.Total)
		cust.Tier = domain.Promote(cust.Tier, cust.LifetimeSpend)
		res.NewTier = cust.Tier
		if err := co.remote.UpdateCustomer(ctx, cust); err != nil {
			step("loyalty", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("loyalty update failed for customer %s: %v", cust.ID, err))
			co.lg.Error("loyalty_update_failed", err, map[string]any{"customer_id": cust.ID, "invoice_id": inv.ID})
		} else {
			step("loyalty", nil)
		}
	}

	// Finalizing: local state reset plus fire-and-forget collaborators.
	co.state.Store(StateFinalizing)
	co.ctrl.Settled(tableID)
	if co.kitchen != nil {
		if err := co.kitchen.Dispatch(ctx, tableID, inv.TableName, inv.EmployeeName, items); err != nil {
			step("kitchen_dispatch", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("kitchen dispatch failed: %v", err))
			co.lg.Error("kitchen_dispatch_failed", err, map[string]any{"invoice_id": inv.ID})
		} else {
			step("kitchen_dispatch", nil)
		}
	}
	if co.receipts != nil {
		if err := co.receipts.Print(inv, lines); err != nil {
			step("receipt", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("receipt print failed: %v", err))
			co.lg.Error("receipt_print_failed", err, map[string]any{"invoice_id": inv.ID})
		} else {
			step("receipt", nil)
		}
	}

	co.lg.Info("settlement_completed", map[string]any{
		"invoice_id": inv.ID,
		"table_id":   tableID,
		"total":      bd.Total.String(),
		"warnings":   len(res.Warnings),
	})
	return res, nil
}

func (co *Coordinator) buildInvoice(tableID string, req Request, bd checkout.Breakdown) domain.Invoice {
	inv := domain.Invoice{
		ID:             uuid.NewString(),
		IdempotencyKey: uuid.NewString(),
		TableID:        tableID,
		EmployeeID:     req.Employee.ID,
		EmployeeName:   req.Employee.Name,
		Subtotal:       bd.Subtotal,
		VAT:            bd.VAT,
		ManualDiscount: bd.ManualDiscount,
		TierDiscount:   bd.TierDiscount,
		Total:          bd.Total,
		Tendered:       bd.Tendered,
		Change:         bd.Change,
		PaymentMethod:  req.PaymentMethod,
		CreatedAt:      time.Now().UTC(),
	}
	if t, ok := co.reg.Table(tableID); ok {
		inv.TableName = t.Name
	}
	if req.Customer != nil {
		inv.CustomerID = req.Customer.ID
		inv.CustomerName = req.Customer.Name
	}
	return inv
}

func buildLines(invoiceID string, items []domain.LineItem) []domain.InvoiceLine {
	lines := make([]domain.InvoiceLine, 0, len(items))
	for _, li := range items {
		lines = append(lines, domain.InvoiceLine{
			InvoiceID: invoiceID,
			ProductID: li.ProductID,
			Name:      li.Name,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			Amount:    li.Amount(),
			Note:      li.Note,
		})
	}
	return lines
}
