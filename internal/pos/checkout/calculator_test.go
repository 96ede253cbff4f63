package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

func money(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func sampleCart() []domain.LineItem {
	return []domain.LineItem{
		{ProductID: "p1", Name: "Ca phe sua", UnitPrice: money(50_000), Quantity: 2},
	}
}

func TestComputeNoCustomer(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	bd, err := calc.Compute(sampleCart(), "", money(0), money(150_000))
	require.NoError(t, err)

	assert.True(t, bd.Subtotal.Equal(money(100_000)), "subtotal %s", bd.Subtotal)
	assert.True(t, bd.VAT.Equal(money(10_000)), "vat %s", bd.VAT)
	assert.True(t, bd.TierDiscount.IsZero())
	assert.True(t, bd.Total.Equal(money(110_000)), "total %s", bd.Total)
	assert.True(t, bd.Change.Equal(money(40_000)), "change %s", bd.Change)
}

func TestComputeVIPTierDiscount(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	// 10% of subtotal, not of subtotal+VAT
	bd, err := calc.Compute(sampleCart(), domain.TierVIP, money(0), money(100_000))
	require.NoError(t, err)

	assert.True(t, bd.TierDiscount.Equal(money(10_000)), "tier discount %s", bd.TierDiscount)
	assert.True(t, bd.Total.Equal(money(100_000)), "total %s", bd.Total)
	assert.True(t, bd.Change.IsZero())
}

func TestComputeDiamondTierDiscount(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	bd, err := calc.Compute(sampleCart(), domain.TierDiamond, money(0), money(90_000))
	require.NoError(t, err)

	assert.True(t, bd.TierDiscount.Equal(money(20_000)))
	assert.True(t, bd.Total.Equal(money(90_000)))
}

func TestComputeInsufficientPayment(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	_, err := calc.Compute(sampleCart(), domain.TierVIP, money(0), money(90_000))
	assert.ErrorIs(t, err, ErrInsufficientPayment)
}

func TestComputeDiscountExceedsTotal(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	_, err := calc.Compute(sampleCart(), "", money(120_000), money(500_000))
	assert.ErrorIs(t, err, ErrDiscountExceedsTotal)
}

func TestComputeNegativeDiscount(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	_, err := calc.Compute(sampleCart(), "", money(-1), money(500_000))
	assert.ErrorIs(t, err, ErrNegativeDiscount)
}

func TestComputeIdentityHolds(t *testing.T) {
	calc := NewCalculator(decimal.Zero)
	items := []domain.LineItem{
		{ProductID: "p1", UnitPrice: money(35_000), Quantity: 3},
		{ProductID: "p2", UnitPrice: money(42_000), Quantity: 1},
	}

	bd, err := calc.Compute(items, domain.TierVIP, money(5_000), money(200_000))
	require.NoError(t, err)

	// finalTotal = subtotal + vat - manual - tier, exactly
	want := bd.Subtotal.Add(bd.VAT).Sub(bd.ManualDiscount).Sub(bd.TierDiscount)
	assert.True(t, bd.Total.Equal(want), "total %s want %s", bd.Total, want)
}

func TestComputeIsPure(t *testing.T) {
	calc := NewCalculator(decimal.Zero)
	items := sampleCart()

	a, err := calc.Compute(items, domain.TierVIP, money(2_000), money(150_000))
	require.NoError(t, err)
	b, err := calc.Compute(items, domain.TierVIP, money(2_000), money(150_000))
	require.NoError(t, err)

	assert.True(t, a.Total.Equal(b.Total))
	assert.True(t, a.Change.Equal(b.Change))
	assert.True(t, a.VAT.Equal(b.VAT))
}

func TestQuoteSkipsPaymentValidation(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	bd, err := calc.Quote(sampleCart(), "", money(0))
	require.NoError(t, err)
	assert.True(t, bd.Total.Equal(money(110_000)))
	assert.True(t, bd.Tendered.IsZero())
}

func TestEmptyCartQuotesToZero(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	bd, err := calc.Quote(nil, domain.TierDiamond, money(0))
	require.NoError(t, err)
	assert.True(t, bd.Subtotal.IsZero())
	assert.True(t, bd.Total.IsZero())
}
