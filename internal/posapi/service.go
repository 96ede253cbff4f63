package posapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/cart"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/checkout"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/settlement"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/table"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/remote"
)

var (
	ErrUnknownProduct  = errors.New("unknown product")
	ErrUnknownCustomer = errors.New("unknown customer")
)

// Reader is the slice of the remote API the terminal reads its reference
// data through.
type Reader interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Tables(ctx context.Context) ([]domain.Table, error)
	Customers(ctx context.Context) ([]domain.Customer, error)
}

var _ Reader = (*remote.Client)(nil)

// Service is the terminal session: the engine components plus the operator
// identity, the attached customer, and the in-memory reference data.
type Service struct {
	lg    *logger.Logger
	calc  checkout.Calculator
	reg   *table.Registry
	ctrl  *table.Controller
	cart  *cart.Store
	coord *settlement.Coordinator

	mu        sync.Mutex
	employee  domain.Employee
	customer  *domain.Customer
	catalog   []domain.Product
	products  map[string]domain.Product
	customers map[string]domain.Customer
}

func NewService(calc checkout.Calculator, reg *table.Registry, ctrl *table.Controller,
	store *cart.Store, coord *settlement.Coordinator, lg *logger.Logger) *Service {
	return &Service{
		lg: lg, calc: calc, reg: reg, ctrl: ctrl, cart: store, coord: coord,
		products:  make(map[string]domain.Product),
		customers: make(map[string]domain.Customer),
	}
}

// LoadData pulls products, tables and customers from the remote store and
// keeps only active records, the way the till filters its pickers.
func (s *Service) LoadData(ctx context.Context, r Reader) error {
	products, err := r.Products(ctx)
	if err != nil {
		return fmt.Errorf("fetch products: %w", err)
	}
	tables, err := r.Tables(ctx)
	if err != nil {
		return fmt.Errorf("fetch tables: %w", err)
	}
	customers, err := r.Customers(ctx)
	if err != nil {
		return fmt.Errorf("fetch customers: %w", err)
	}

	s.mu.Lock()
	s.catalog = s.catalog[:0]
	s.products = make(map[string]domain.Product)
	for _, p := range products {
		if p.Active {
			s.catalog = append(s.catalog, p)
			s.products[p.ID] = p
		}
	}
	s.customers = make(map[string]domain.Customer)
	for _, c := range customers {
		if c.Active {
			s.customers[c.ID] = c
		}
	}
	s.mu.Unlock()

	active := tables[:0]
	for _, t := range tables {
		if t.Active {
			active = append(active, t)
		}
	}
	s.reg.LoadTables(active)

	s.lg.Info("reference_data_loaded", map[string]any{
		"products": len(s.catalog), "tables": len(active), "customers": len(s.customers),
	})
	return nil
}

func (s *Service) Catalog() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.catalog))
	copy(out, s.catalog)
	return out
}

func (s *Service) Tables() []domain.Table { return s.reg.Tables() }

func (s *Service) CustomerList() []domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	return out
}

func (s *Service) SelectTable(id string) error { return s.ctrl.Select(id) }

func (s *Service) Transfer(targetID string) error { return s.ctrl.Transfer(targetID) }

func (s *Service) AddItem(productID string) error {
	s.mu.Lock()
	p, ok := s.products[productID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	return s.cart.AddItem(p)
}

func (s *Service) RemoveItem(productID string) error { return s.cart.RemoveItem(productID) }

func (s *Service) AdjustQuantity(productID string, delta int) error {
	return s.cart.AdjustQuantity(productID, delta)
}

func (s *Service) SetNote(productID, note string) error { return s.cart.SetNote(productID, note) }

func (s *Service) ClearCart() { s.cart.Clear() }

// CartView is the working cart plus which table owns it.
type CartView struct {
	TableID string            `json:"table_id"`
	Items   []domain.LineItem `json:"items"`
}

func (s *Service) Cart() CartView {
	return CartView{TableID: s.cart.Owner(), Items: s.cart.Items()}
}

func (s *Service) BindEmployee(e domain.Employee) {
	s.mu.Lock()
	s.employee = e
	s.mu.Unlock()
	s.lg.Info("employee_bound", map[string]any{"employee_id": e.ID})
}

// SelectCustomer attaches a loyalty customer to the next settlement, or
// detaches with an empty id.
func (s *Service) SelectCustomer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.customer = nil
		return nil
	}
	c, ok := s.customers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, id)
	}
	s.customer = &c
	return nil
}

func (s *Service) session() (domain.Employee, *domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customer == nil {
		return s.employee, nil
	}
	c := *s.customer
	return s.employee, &c
}

// Preview runs the calculator without settling. When tendered is nil the
// operator has not counted cash yet and payment is not validated.
func (s *Service) Preview(manualDiscount decimal.Decimal, tendered *decimal.Decimal) (checkout.Breakdown, error) {
	_, cust := s.session()
	var tier domain.Tier
	if cust != nil {
		tier = cust.Tier
	}
	items := s.cart.Items()
	if tendered == nil {
		return s.calc.Quote(items, tier, manualDiscount)
	}
	return s.calc.Compute(items, tier, manualDiscount, *tendered)
}

// Settle runs the coordinator with the bound session identity. On success
// the attached customer is cleared for the next sale.
func (s *Service) Settle(ctx context.Context, manualDiscount, tendered decimal.Decimal, paymentMethod string) (*settlement.Result, error) {
	emp, cust := s.session()
	res, err := s.coord.Settle(ctx, settlement.Request{
		Employee:       emp,
		Customer:       cust,
		ManualDiscount: manualDiscount,
		Tendered:       tendered,
		PaymentMethod:  paymentMethod,
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.customer = nil
	if cust != nil {
		// keep the in-memory loyalty record in step with what was persisted
		updated := *cust
		updated.Points += res.PointsEarned
		updated.LifetimeSpend = updated.LifetimeSpend.Add(res.Breakdown.Total)
		updated.Tier = res.NewTier
		s.customers[updated.ID] = updated
	}
	s.mu.Unlock()
	return res, nil
}

// Committing mirrors the coordinator flag so the UI can lock its dialog.
func (s *Service) Committing() bool { return s.coord.Committing() }
