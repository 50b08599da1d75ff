package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	DiscountFixed        DiscountKind = "fixed"
	DiscountPercent      DiscountKind = "percent"
	DiscountFreeShipping DiscountKind = "free_shipping"
)

var hundred = decimal.NewFromInt(100)

// DiscountRule is a tagged variant. Amount is a currency amount for fixed rules,
// a percentage in (0, 100] for percent rules and ignored for free shipping.
type DiscountRule struct {
	Kind   DiscountKind
	Amount decimal.Decimal
}

func FixedDiscount(amount decimal.Decimal) DiscountRule {
	return DiscountRule{Kind: DiscountFixed, Amount: amount}
}

func PercentDiscount(percent decimal.Decimal) DiscountRule {
	return DiscountRule{Kind: DiscountPercent, Amount: percent}
}

func FreeShipping() DiscountRule {
	return DiscountRule{Kind: DiscountFreeShipping, Amount: decimal.Zero}
}

func (r DiscountRule) Validate() error {
	switch r.Kind {
	case DiscountFixed:
		if !r.Amount.IsPositive() {
			return fmt.Errorf("%w: fixed discount must be positive", ErrValidation)
		}
	case DiscountPercent:
		if !r.Amount.IsPositive() || r.Amount.GreaterThan(hundred) {
			return fmt.Errorf("%w: percent discount must be in (0, 100]", ErrValidation)
		}
	case DiscountFreeShipping:
	default:
		return fmt.Errorf("%w: unknown discount kind %q", ErrValidation, r.Kind)
	}
	return nil
}

// Discount splits the price reduction between goods and shipping.
type Discount struct {
	Items    decimal.Decimal
	Shipping decimal.Decimal
}

func (d Discount) Total() decimal.Decimal {
	return d.Items.Add(d.Shipping)
}

// Apply evaluates the rule against the discountable subtotal and the shipping fee.
// It never returns more than the amount it discounts.
func (r DiscountRule) Apply(subtotal, shippingFee decimal.Decimal) Discount {
	d := Discount{Items: decimal.Zero, Shipping: decimal.Zero}
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	switch r.Kind {
	case DiscountFixed:
		d.Items = decimal.Min(r.Amount, subtotal)
	case DiscountPercent:
		d.Items = decimal.Min(subtotal.Mul(r.Amount).Div(hundred).Round(2), subtotal)
	case DiscountFreeShipping:
		if shippingFee.IsPositive() {
			d.Shipping = shippingFee
		}
	}
	return d
}

// Payable is what the buyer owes after discounts and points, floored at zero.
// One point is worth one currency unit.
func Payable(total, shippingFee decimal.Decimal, d Discount, pointsUsed int64) decimal.Decimal {
	p := total.Sub(d.Items).Add(shippingFee).Sub(d.Shipping).Sub(decimal.NewFromInt(pointsUsed))
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

var ten = decimal.NewFromInt(10)

// Reward is the number of points earned for an order total: one point per ten units spent.
func Reward(total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return total.Div(ten).Floor().IntPart()
}

// PricedLine is one cart line as seen by coupon scoping.
type PricedLine struct {
	Category string
	Subtotal decimal.Decimal
}

// DiscountFor applies the coupon's rule to the part of the cart its scope covers.
func (c Coupon) DiscountFor(user User, lines []PricedLine, shippingFee decimal.Decimal) (Discount, error) {
	base := decimal.Zero
	switch c.Scope {
	case ScopeCategory:
		for _, l := range lines {
			if l.Category == c.ScopeValue {
				base = base.Add(l.Subtotal)
			}
		}
		if base.IsZero() && c.Rule.Kind != DiscountFreeShipping {
			return Discount{}, ErrCouponNotEligible
		}
	case ScopeMemberSegment:
		if user.MemberLevel != c.ScopeValue {
			return Discount{}, ErrCouponNotEligible
		}
		fallthrough
	default:
		for _, l := range lines {
			base = base.Add(l.Subtotal)
		}
	}
	return c.Rule.Apply(base, shippingFee), nil
}
