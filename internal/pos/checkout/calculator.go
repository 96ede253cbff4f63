package checkout

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

var (
	ErrNegativeDiscount     = errors.New("manual discount cannot be negative")
	ErrDiscountExceedsTotal = errors.New("discount exceeds total")
	ErrInsufficientPayment  = errors.New("insufficient payment")
)

// DefaultVATRate is a configuration constant, not business law; the
// terminal can override it from config.
var DefaultVATRate = decimal.NewFromFloat(0.10)

// Breakdown carries every derived monetary value of a checkout. A single
// Breakdown is threaded through to both the UI summary and the receipt so
// nothing is ever recomputed in two places.
type Breakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	VAT            decimal.Decimal `json:"vat"`
	TierDiscount   decimal.Decimal `json:"tier_discount"`
	ManualDiscount decimal.Decimal `json:"manual_discount"`
	Total          decimal.Decimal `json:"total"`
	Tendered       decimal.Decimal `json:"tendered"`
	Change         decimal.Decimal `json:"change"`
}

// Calculator derives checkout totals. It is a pure function of its inputs:
// no I/O, no state beyond the configured VAT rate.
type Calculator struct {
	vatRate decimal.Decimal
}

func NewCalculator(vatRate decimal.Decimal) Calculator {
	if vatRate.IsZero() {
		vatRate = DefaultVATRate
	}
	return Calculator{vatRate: vatRate}
}

// Quote computes subtotal, VAT, tier discount and final total without
// validating payment. Used for the live checkout preview while the operator
// is still counting cash.
func (c Calculator) Quote(items []domain.LineItem, tier domain.Tier, manualDiscount decimal.Decimal) (Breakdown, error) {
	if manualDiscount.IsNegative() {
		return Breakdown{}, ErrNegativeDiscount
	}

	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.Amount())
	}
	vat := subtotal.Mul(c.vatRate)
	// tier discount applies to the subtotal, never to subtotal+VAT
	tierDiscount := subtotal.Mul(tier.DiscountRate())

	if manualDiscount.Add(tierDiscount).GreaterThan(subtotal.Add(vat)) {
		return Breakdown{}, ErrDiscountExceedsTotal
	}

	total := subtotal.Add(vat).Sub(manualDiscount).Sub(tierDiscount)
	return Breakdown{
		Subtotal:       subtotal,
		VAT:            vat,
		TierDiscount:   tierDiscount,
		ManualDiscount: manualDiscount,
		Total:          total,
	}, nil
}

// Compute is Quote plus payment validation: tendering less than the final
// total blocks checkout instead of being silently clamped.
func (c Calculator) Compute(items []domain.LineItem, tier domain.Tier, manualDiscount, tendered decimal.Decimal) (Breakdown, error) {
	bd, err := c.Quote(items, tier, manualDiscount)
	if err != nil {
		return Breakdown{}, err
	}
	if tendered.LessThan(bd.Total) {
		return Breakdown{}, ErrInsufficientPayment
	}
	bd.Tendered = tendered
	bd.Change = tendered.Sub(bd.Total)
	return bd, nil
}
