package dataservice

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

// Store is the persistence surface behind the generic entity API. Each
// method is a single-row (or single-query) operation; the API deliberately
// offers no multi-row atomicity, so none of these open transactions across
// entities.
type Store interface {
	Products(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	Tables(ctx context.Context) ([]domain.Table, error)
	UpdateTable(ctx context.Context, t domain.Table) error

	Customers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, c domain.Customer) error
	UpdateCustomer(ctx context.Context, c domain.Customer) error

	Invoices(ctx context.Context) ([]domain.Invoice, error)
	CreateInvoice(ctx context.Context, inv domain.Invoice) error
	CreateInvoiceLine(ctx context.Context, line domain.InvoiceLine) error
}

type pgStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store { return &pgStore{db: db} }

func (s *pgStore) Products(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, price, unit, COALESCE(category,''), active
FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Category, &p.Active); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgStore) CreateProduct(ctx context.Context, p domain.Product) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO products (id, name, price, unit, category, active)
VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Name, p.Price, p.Unit, nullIfEmpty(p.Category), p.Active)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *pgStore) UpdateProduct(ctx context.Context, p domain.Product) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE products SET name=$2, price=$3, unit=$4, category=$5, active=$6 WHERE id=$1`,
		p.ID, p.Name, p.Price, p.Unit, nullIfEmpty(p.Category), p.Active)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(res, "product", p.ID)
}

func (s *pgStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireRow(res, "product", id)
}

func (s *pgStore) Tables(ctx context.Context) ([]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, seats, status, active FROM tables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()
	var out []domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.ID, &t.Name, &t.Seats, &t.Status, &t.Active); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgStore) UpdateTable(ctx context.Context, t domain.Table) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE tables SET name=$2, seats=$3, status=$4, active=$5 WHERE id=$1`,
		t.ID, t.Name, t.Seats, t.Status, t.Active)
	if err != nil {
		return fmt.Errorf("update table: %w", err)
	}
	return requireRow(res, "table", t.ID)
}

func (s *pgStore) Customers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, COALESCE(phone,''), tier, points, lifetime_spend, active
FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()
	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Tier, &c.Points, &c.LifetimeSpend, &c.Active); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgStore) CreateCustomer(ctx context.Context, c domain.Customer) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO customers (id, name, phone, tier, points, lifetime_spend, active)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Name, nullIfEmpty(c.Phone), c.Tier, c.Points, c.LifetimeSpend, c.Active)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *pgStore) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE customers SET name=$2, phone=$3, tier=$4, points=$5, lifetime_spend=$6, active=$7
WHERE id=$1`,
		c.ID, c.Name, nullIfEmpty(c.Phone), c.Tier, c.Points, c.LifetimeSpend, c.Active)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return requireRow(res, "customer", c.ID)
}

func (s *pgStore) Invoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, idempotency_key, table_id, table_name, employee_id, employee_name,
       COALESCE(customer_id,''), COALESCE(customer_name,''),
       subtotal, vat, manual_discount, tier_discount, total, tendered, change,
       payment_method, created_at
FROM invoices ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()
	var out []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.IdempotencyKey, &inv.TableID, &inv.TableName,
			&inv.EmployeeID, &inv.EmployeeName, &inv.CustomerID, &inv.CustomerName,
			&inv.Subtotal, &inv.VAT, &inv.ManualDiscount, &inv.TierDiscount,
			&inv.Total, &inv.Tendered, &inv.Change, &inv.PaymentMethod, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *pgStore) CreateInvoice(ctx context.Context, inv domain.Invoice) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO invoices
  (id, idempotency_key, table_id, table_name, employee_id, employee_name,
   customer_id, customer_name, subtotal, vat, manual_discount, tier_discount,
   total, tendered, change, payment_method, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		inv.ID, inv.IdempotencyKey, inv.TableID, inv.TableName,
		inv.EmployeeID, inv.EmployeeName,
		nullIfEmpty(inv.CustomerID), nullIfEmpty(inv.CustomerName),
		inv.Subtotal, inv.VAT, inv.ManualDiscount, inv.TierDiscount,
		inv.Total, inv.Tendered, inv.Change, inv.PaymentMethod, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (s *pgStore) CreateInvoiceLine(ctx context.Context, line domain.InvoiceLine) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO invoice_lines (invoice_id, product_id, name, unit_price, quantity, amount, note)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		line.InvoiceID, line.ProductID, line.Name, line.UnitPrice, line.Quantity,
		line.Amount, nullIfEmpty(line.Note))
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s not found", entity, id)
	}
	return nil
}
