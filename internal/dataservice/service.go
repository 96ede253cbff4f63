package dataservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrUnsupportedOp = errors.New("unsupported operation")
)

// Service dispatches (entity, operation, payload) requests onto the store.
// It is the whole semantics of the generic data API: reads return a list,
// writes return success or a message.
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// GetAll fetches every row of an entity.
func (s *Service) GetAll(ctx context.Context, entity string) (any, error) {
	switch entity {
	case "products":
		return s.store.Products(ctx)
	case "tables":
		return s.store.Tables(ctx)
	case "customers":
		return s.store.Customers(ctx)
	case "invoices":
		return s.store.Invoices(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
}

// Write applies one create/update/delete to an entity. Each call is a
// single row; there is no cross-entity transaction on purpose.
func (s *Service) Write(ctx context.Context, entity, op string, payload []byte) error {
	switch entity {
	case "products":
		return s.writeProduct(ctx, op, payload)
	case "tables":
		return s.writeTable(ctx, op, payload)
	case "customers":
		return s.writeCustomer(ctx, op, payload)
	case "invoices":
		if op != "create" {
			return opErr(entity, op)
		}
		var inv domain.Invoice
		if err := json.Unmarshal(payload, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.store.CreateInvoice(ctx, inv)
	case "invoice_lines":
		if op != "create" {
			return opErr(entity, op)
		}
		var line domain.InvoiceLine
		if err := json.Unmarshal(payload, &line); err != nil {
			return fmt.Errorf("decode invoice line: %w", err)
		}
		return s.store.CreateInvoiceLine(ctx, line)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
}

func (s *Service) writeProduct(ctx context.Context, op string, payload []byte) error {
	var p domain.Product
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}
	switch op {
	case "create":
		return s.store.CreateProduct(ctx, p)
	case "update":
		return s.store.UpdateProduct(ctx, p)
	case "delete":
		return s.store.DeleteProduct(ctx, p.ID)
	default:
		return opErr("products", op)
	}
}

func (s *Service) writeTable(ctx context.Context, op string, payload []byte) error {
	if op != "update" {
		return opErr("tables", op)
	}
	var t domain.Table
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	return s.store.UpdateTable(ctx, t)
}

func (s *Service) writeCustomer(ctx context.Context, op string, payload []byte) error {
	var c domain.Customer
	if err := json.Unmarshal(payload, &c); err != nil {
		return fmt.Errorf("decode customer: %w", err)
	}
	switch op {
	case "create":
		return s.store.CreateCustomer(ctx, c)
	case "update":
		return s.store.UpdateCustomer(ctx, c)
	default:
		return opErr("customers", op)
	}
}

func opErr(entity, op string) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedOp, op, entity)
}
