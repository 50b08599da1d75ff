package usecase

import (
	"testing"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

const (
	kindOfBlue   int64 = 1
	abbeyRoad    int64 = 2
	aLoveSupreme int64 = 3
)

const startingPoints int64 = 500

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store       *memStore
	events      *recordingPublisher
	coupons     *CouponService
	checkout    *CheckoutService
	fulfillment *FulfillmentService
	points      *PointsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	store.seedUser(domain.User{ID: alice, Account: "alice", MemberLevel: "gold", Points: startingPoints})
	store.seedUser(domain.User{ID: bob, Account: "bob", MemberLevel: "regular", Points: 0})
	store.seedProduct(domain.Product{ID: kindOfBlue, Title: "Kind of Blue", Artist: "Miles Davis", Category: "jazz", Price: d("600"), Stock: 3})
	store.seedProduct(domain.Product{ID: abbeyRoad, Title: "Abbey Road", Artist: "The Beatles", Category: "rock", Price: d("400"), Stock: 1})
	store.seedProduct(domain.Product{ID: aLoveSupreme, Title: "A Love Supreme", Artist: "John Coltrane", Category: "jazz", Price: d("250"), Stock: 10})

	events := &recordingPublisher{}
	coupons := NewCouponService(store, events)
	return &fixture{
		store:   store,
		events:  events,
		coupons: coupons,
		checkout: NewCheckoutService(store, coupons, events, CheckoutOptions{
			ShippingFee: d("60"),
			Timeout:     time.Second,
		}),
		fulfillment: NewFulfillmentService(store),
		points:      NewPointsService(store),
	}
}

func activeCoupon(code string, rule domain.DiscountRule, quantity, uses int) domain.Coupon {
	now := time.Now()
	return domain.Coupon{
		Code:          code,
		Name:          code,
		Rule:          rule,
		Scope:         domain.ScopeAll,
		TotalQuantity: quantity,
		UsageLimit:    uses,
		StartAt:       now.Add(-time.Hour),
		EndAt:         now.AddDate(0, 1, 0),
	}
}

func checkoutInput(userID int64, items ...CheckoutItem) CheckoutInput {
	return CheckoutInput{
		UserID:        userID,
		Items:         items,
		Recipient:     domain.Recipient{Name: "Alice", Phone: "0912345678", Address: "1 Vinyl Lane"},
		PaymentMethod: domain.PaymentECPay,
		Logistics:     domain.LogisticsInfo{Channel: domain.ChannelHomeDelivery, Address: "1 Vinyl Lane"},
	}
}

func item(productID int64, qty int) CheckoutItem {
	return CheckoutItem{ProductID: productID, Quantity: qty}
}

func (f *fixture) stock(productID int64) int {
	return f.store.snapshot().products[productID].Stock
}

func (f *fixture) balance(userID int64) int64 {
	return f.store.snapshot().users[userID].Points
}

// ledgerSum is the sum of all ledger deltas for the user on top of the seeded balance.
func (f *fixture) ledgerSum(userID int64, seeded int64) int64 {
	sum := seeded
	for _, e := range f.store.snapshot().ledger {
		if e.UserID == userID {
			sum += e.Delta
		}
	}
	return sum
}
