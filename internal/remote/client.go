package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

// Operations supported by the generic entity API.
const (
	OpGetAll = "getall"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// WriteResult is every write operation's response shape.
type WriteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WriteError is a remote write the store rejected or that never arrived.
// Any non-success response and any transport failure maps to one of these.
type WriteError struct {
	Entity  string
	Op      string
	Message string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("remote %s %s failed: %s", e.Op, e.Entity, e.Message)
}

// Client speaks the generic request(entity, operation, payload) contract
// of the remote data store.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{base: baseURL, hc: &http.Client{Timeout: timeout}}
}

// Do issues one request and returns the raw response body. Reads come back
// as a JSON array, writes as a WriteResult.
func (c *Client) Do(ctx context.Context, entity, op string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", entity, err)
		}
		body = bytes.NewReader(b)
	}
	url := fmt.Sprintf("%s/api/%s/%s", c.base, entity, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote %s %s: %w", op, entity, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote %s %s: read body: %w", op, entity, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &WriteError{Entity: entity, Op: op, Message: fmt.Sprintf("http %d: %s", resp.StatusCode, bytes.TrimSpace(out))}
	}
	return out, nil
}

func (c *Client) getAll(ctx context.Context, entity string, dst any) error {
	out, err := c.Do(ctx, entity, OpGetAll, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, dst); err != nil {
		return fmt.Errorf("decode %s list: %w", entity, err)
	}
	return nil
}

func (c *Client) write(ctx context.Context, entity, op string, payload any) error {
	out, err := c.Do(ctx, entity, op, payload)
	if err != nil {
		return err
	}
	var res WriteResult
	if err := json.Unmarshal(out, &res); err != nil {
		return &WriteError{Entity: entity, Op: op, Message: "unparseable response"}
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "rejected by store"
		}
		return &WriteError{Entity: entity, Op: op, Message: msg}
	}
	return nil
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := c.getAll(ctx, "products", &out)
	return out, err
}

func (c *Client) Tables(ctx context.Context) ([]domain.Table, error) {
	var out []domain.Table
	err := c.getAll(ctx, "tables", &out)
	return out, err
}

func (c *Client) Customers(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	err := c.getAll(ctx, "customers", &out)
	return out, err
}

func (c *Client) CreateInvoice(ctx context.Context, inv domain.Invoice) error {
	return c.write(ctx, "invoices", OpCreate, inv)
}

func (c *Client) CreateInvoiceLine(ctx context.Context, line domain.InvoiceLine) error {
	return c.write(ctx, "invoice_lines", OpCreate, line)
}

func (c *Client) UpdateCustomer(ctx context.Context, cust domain.Customer) error {
	return c.write(ctx, "customers", OpUpdate, cust)
}

func (c *Client) UpdateTable(ctx context.Context, t domain.Table) error {
	return c.write(ctx, "tables", OpUpdate, t)
}
