package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/cart"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/checkout"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/table"
)

// fakeRemote records every write in arrival order and fails on demand.
type fakeRemote struct {
	calls        []string
	invoices     []domain.Invoice
	lines        []domain.InvoiceLine
	customers    []domain.Customer
	failInvoice  bool
	failLineAt   int // -1 = never
	failCustomer bool
}

func newFakeRemote() *fakeRemote { return &fakeRemote{failLineAt: -1} }

func (f *fakeRemote) CreateInvoice(ctx context.Context, inv domain.Invoice) error {
	f.calls = append(f.calls, "invoice")
	if f.failInvoice {
		return errors.New("store rejected invoice")
	}
	f.invoices = append(f.invoices, inv)
	return nil
}

func (f *fakeRemote) CreateInvoiceLine(ctx context.Context, line domain.InvoiceLine) error {
	f.calls = append(f.calls, "line:"+line.ProductID)
	if f.failLineAt >= 0 && len(f.lines) == f.failLineAt {
		return errors.New("store rejected line")
	}
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeRemote) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	f.calls = append(f.calls, "customer")
	if f.failCustomer {
		return errors.New("store rejected customer")
	}
	f.customers = append(f.customers, c)
	return nil
}

type fakeDispatcher struct {
	sent int
	fail bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, tableID, tableName, employee string, items []domain.LineItem) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.sent++
	return nil
}

type fakePrinter struct {
	printed int
	fail    bool
}

func (f *fakePrinter) Print(inv domain.Invoice, lines []domain.InvoiceLine) error {
	if f.fail {
		return errors.New("printer jam")
	}
	f.printed++
	return nil
}

type fixture struct {
	reg    *table.Registry
	store  *cart.Store
	ctrl   *table.Controller
	remote *fakeRemote
	disp   *fakeDispatcher
	print  *fakePrinter
	coord  *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := table.NewRegistry("takeaway")
	reg.LoadTables([]domain.Table{
		{ID: "takeaway", Name: "Takeaway", Active: true},
		{ID: "t1", Name: "Table 1", Seats: 4, Active: true},
	})
	store := cart.NewStore(reg)
	ctrl := table.NewController(reg, store)
	remote := newFakeRemote()
	disp := &fakeDispatcher{}
	print := &fakePrinter{}
	coord := NewCoordinator(checkout.NewCalculator(decimal.Zero), remote, disp, print,
		reg, ctrl, store, logger.New("test"))
	return &fixture{reg: reg, store: store, ctrl: ctrl, remote: remote, disp: disp, print: print, coord: coord}
}

func (f *fixture) seatAndOrder(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Select("t1"))
	require.NoError(t, f.store.AddItem(domain.Product{ID: "p1", Name: "Latte", Price: decimal.NewFromInt(50_000)}))
	require.NoError(t, f.store.AdjustQuantity("p1", 1))
	require.NoError(t, f.store.AddItem(domain.Product{ID: "p2", Name: "Banh mi", Price: decimal.NewFromInt(30_000)}))
}

func baseRequest() Request {
	return Request{
		Employee:      domain.Employee{ID: "e1", Name: "Thinh"},
		Tendered:      decimal.NewFromInt(200_000),
		PaymentMethod: "cash",
	}
}

func TestSettleEmptyCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Select("t1"))

	_, err := f.coord.Settle(context.Background(), baseRequest())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.remote.calls, "no remote write before validation passes")
}

func TestSettleNoEmployee(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)

	req := baseRequest()
	req.Employee = domain.Employee{}
	_, err := f.coord.Settle(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoEmployee)
	assert.Empty(t, f.remote.calls)
}

func TestSettleInsufficientPaymentBlocksBeforeWrites(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)

	req := baseRequest()
	req.Tendered = decimal.NewFromInt(1_000)
	_, err := f.coord.Settle(context.Background(), req)
	assert.ErrorIs(t, err, checkout.ErrInsufficientPayment)
	assert.Empty(t, f.remote.calls)
}

func TestSettleHappyPath(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)

	res, err := f.coord.Settle(context.Background(), baseRequest())
	require.NoError(t, err)

	// header then lines, strictly in cart order
	require.Equal(t, []string{"invoice", "line:p1", "line:p2"}, f.remote.calls)
	require.Len(t, f.remote.invoices, 1)
	inv := f.remote.invoices[0]
	assert.Equal(t, "t1", inv.TableID)
	assert.Equal(t, "Table 1", inv.TableName)
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(130_000)))
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(143_000)))
	assert.NotEmpty(t, inv.IdempotencyKey)

	// local state reset
	assert.Empty(t, f.store.Items())
	assert.Empty(t, f.reg.Parked("t1"))
	tbl, _ := f.reg.Table("t1")
	assert.Equal(t, domain.TableEmpty, tbl.Status)

	// collaborators fired
	assert.Equal(t, 1, f.disp.sent)
	assert.Equal(t, 1, f.print.printed)
	assert.Empty(t, res.Warnings)
	assert.False(t, f.coord.Committing())
}

func TestSettleHeaderFailureAbortsLines(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)
	f.remote.failInvoice = true

	_, err := f.coord.Settle(context.Background(), baseRequest())
	require.Error(t, err)
	assert.Equal(t, []string{"invoice"}, f.remote.calls)
	// sale did not complete: cart and table untouched
	assert.Len(t, f.store.Items(), 2)
	tbl, _ := f.reg.Table("t1")
	assert.Equal(t, domain.TableOccupied, tbl.Status)
}

func TestSettleLineFailureReportsIndex(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)
	f.remote.failLineAt = 1

	_, err := f.coord.Settle(context.Background(), baseRequest())
	var lwe *LineWriteError
	require.ErrorAs(t, err, &lwe)
	assert.Equal(t, 1, lwe.Index)
	assert.Equal(t, 1, lwe.Written)
	// header is not rolled back
	assert.Len(t, f.remote.invoices, 1)
}

func TestSettleLoyaltyUpdateAndPromotion(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)

	req := baseRequest()
	req.Customer = &domain.Customer{
		ID: "c1", Name: "Lan", Tier: domain.TierRegular,
		LifetimeSpend: decimal.NewFromInt(19_900_000), Active: true,
	}
	res, err := f.coord.Settle(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.remote.customers, 1)
	saved := f.remote.customers[0]
	assert.Equal(t, domain.TierVIP, saved.Tier, "crossing 20M promotes regular to vip")
	assert.True(t, saved.LifetimeSpend.Equal(decimal.NewFromInt(20_043_000)))
	assert.Equal(t, res.PointsEarned, saved.Points)
	assert.Equal(t, int64(14), res.PointsEarned) // 143,000 / 10,000 floored
}

func TestSettleLoyaltyFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)
	f.remote.failCustomer = true

	req := baseRequest()
	req.Customer = &domain.Customer{ID: "c1", Tier: domain.TierVIP, Active: true}
	req.Tendered = decimal.NewFromInt(200_000)
	res, err := f.coord.Settle(context.Background(), req)
	require.NoError(t, err, "the sale stands even when loyalty fails")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "loyalty update failed")
}

func TestSettleCollaboratorFailuresAreWarnings(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)
	f.disp.fail = true
	f.print.fail = true

	res, err := f.coord.Settle(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 2)
}

func TestSettleTakeawayKeepsNoStatus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Select("takeaway"))
	require.NoError(t, f.store.AddItem(domain.Product{ID: "p1", Name: "Latte", Price: decimal.NewFromInt(50_000)}))

	_, err := f.coord.Settle(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Empty(t, f.reg.Parked("takeaway"))
}

func TestIdempotencyKeyFreshPerAttempt(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)
	f.remote.failLineAt = 0

	_, err := f.coord.Settle(context.Background(), baseRequest())
	require.Error(t, err)
	first := f.remote.invoices[0].IdempotencyKey

	// retry the whole settlement; cart is still intact
	f.remote.failLineAt = -1
	res, err := f.coord.Settle(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first, res.Invoice.IdempotencyKey)
}

func TestSettleStepLogRecordsFailure(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t)
	f.remote.failInvoice = true

	res, err := f.coord.Settle(context.Background(), baseRequest())
	require.Error(t, err)
	require.NotNil(t, res)

	// the step log pinpoints the failing write for reconciliation
	require.Len(t, res.Steps, 2)
	assert.Equal(t, "validate", res.Steps[0].Step)
	assert.Empty(t, res.Steps[0].Err)
	assert.Equal(t, "invoice_header", res.Steps[1].Step)
	assert.NotEmpty(t, res.Steps[1].Err)
}
