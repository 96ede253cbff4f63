package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a customer loyalty level. Promotions are one-way: a customer
// never moves back down once a lifetime-spend threshold is crossed.
type Tier string

const (
	TierRegular Tier = "regular"
	TierVIP     Tier = "vip"
	TierDiamond Tier = "diamond"
)

var (
	vipThreshold     = decimal.NewFromInt(20_000_000)
	diamondThreshold = decimal.NewFromInt(50_000_000)
)

// DiscountRate returns the automatic percentage-of-subtotal discount for
// the tier. Unknown or empty tiers (no customer attached) earn nothing.
func (t Tier) DiscountRate() decimal.Decimal {
	switch t {
	case TierVIP:
		return decimal.NewFromFloat(0.10)
	case TierDiamond:
		return decimal.NewFromFloat(0.20)
	default:
		return decimal.Zero
	}
}

// EarnMultiplier scales loyalty point accrual per tier.
func (t Tier) EarnMultiplier() decimal.Decimal {
	switch t {
	case TierVIP:
		return decimal.NewFromFloat(1.5)
	case TierDiamond:
		return decimal.NewFromInt(2)
	default:
		return decimal.NewFromInt(1)
	}
}

// Promote applies the lifetime-spend promotion rule and returns the tier
// the customer should hold afterwards. It never downgrades.
func Promote(current Tier, lifetimeSpend decimal.Decimal) Tier {
	if lifetimeSpend.GreaterThanOrEqual(diamondThreshold) {
		return TierDiamond
	}
	if current == TierRegular && lifetimeSpend.GreaterThanOrEqual(vipThreshold) {
		return TierVIP
	}
	if current == "" {
		return TierRegular
	}
	return current
}

// one base point per 10,000 of settled total
var pointsPerUnit = decimal.NewFromInt(10_000)

// PointsEarned converts a settled total into loyalty points for the tier.
func PointsEarned(t Tier, finalTotal decimal.Decimal) int64 {
	return finalTotal.Div(pointsPerUnit).Mul(t.EarnMultiplier()).Floor().IntPart()
}

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	Category string          `json:"category,omitempty"`
	Active   bool            `json:"active"`
}

// LineItem is one row of a working or parked cart. UnitPrice is a snapshot
// taken when the product was first added; it is never re-read from the
// catalog afterwards.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Unit      string          `json:"unit,omitempty"`
	Note      string          `json:"note,omitempty"`
}

// Amount is the extended price of the line.
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type TableStatus string

const (
	TableEmpty    TableStatus = "empty"
	TableOccupied TableStatus = "occupied"
)

type Table struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Seats  int         `json:"seats"`
	Status TableStatus `json:"status"`
	Active bool        `json:"active"`
}

type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	Tier          Tier            `json:"tier"`
	Points        int64           `json:"points"`
	LifetimeSpend decimal.Decimal `json:"lifetime_spend"`
	Active        bool            `json:"active"`
}

// Employee is the operator identity bound to the terminal session.
type Employee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Invoice is the persisted header of one settled order. Written once,
// never mutated.
type Invoice struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	TableID        string          `json:"table_id"`
	TableName      string          `json:"table_name"`
	EmployeeID     string          `json:"employee_id"`
	EmployeeName   string          `json:"employee_name"`
	CustomerID     string          `json:"customer_id,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	VAT            decimal.Decimal `json:"vat"`
	ManualDiscount decimal.Decimal `json:"manual_discount"`
	TierDiscount   decimal.Decimal `json:"tier_discount"`
	Total          decimal.Decimal `json:"total"`
	Tendered       decimal.Decimal `json:"tendered"`
	Change         decimal.Decimal `json:"change"`
	PaymentMethod  string          `json:"payment_method"`
	CreatedAt      time.Time       `json:"created_at"`
}

type InvoiceLine struct {
	InvoiceID string          `json:"invoice_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
}
