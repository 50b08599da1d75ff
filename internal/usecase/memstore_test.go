package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/repository"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory repository.Store. ExecTx works on a copy of the state and swaps it
// in only when fn succeeds, and transactions are serialised, which is enough to observe both
// rollback and the guarded-update behaviour the services depend on.
type memStore struct {
	mu     sync.Mutex
	state  *memState
	failOn map[string]error
}

type userCode struct {
	userID int64
	code   string
}

type userKey struct {
	userID int64
	key    string
}

type memState struct {
	users     map[int64]domain.User
	products  map[int64]domain.Product
	cart      map[int64]map[int64]int
	coupons   map[string]domain.Coupon
	claims    map[userCode]domain.UserCoupon
	usages    []domain.CouponUsage
	ledger    []domain.PointsEntry
	requests  map[userKey]bool
	orders    map[int64]domain.Order
	items     map[int64][]domain.OrderItem
	payments  map[int64]domain.PaymentRecord
	logistics map[int64]domain.LogisticsInfo
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			users:     map[int64]domain.User{},
			products:  map[int64]domain.Product{},
			cart:      map[int64]map[int64]int{},
			coupons:   map[string]domain.Coupon{},
			claims:    map[userCode]domain.UserCoupon{},
			requests:  map[userKey]bool{},
			orders:    map[int64]domain.Order{},
			items:     map[int64][]domain.OrderItem{},
			payments:  map[int64]domain.PaymentRecord{},
			logistics: map[int64]domain.LogisticsInfo{},
		},
		failOn: map[string]error{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:     make(map[int64]domain.User, len(s.users)),
		products:  make(map[int64]domain.Product, len(s.products)),
		cart:      make(map[int64]map[int64]int, len(s.cart)),
		coupons:   make(map[string]domain.Coupon, len(s.coupons)),
		claims:    make(map[userCode]domain.UserCoupon, len(s.claims)),
		usages:    append([]domain.CouponUsage(nil), s.usages...),
		ledger:    append([]domain.PointsEntry(nil), s.ledger...),
		requests:  make(map[userKey]bool, len(s.requests)),
		orders:    make(map[int64]domain.Order, len(s.orders)),
		items:     make(map[int64][]domain.OrderItem, len(s.items)),
		payments:  make(map[int64]domain.PaymentRecord, len(s.payments)),
		logistics: make(map[int64]domain.LogisticsInfo, len(s.logistics)),
		nextID:    s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.cart {
		inner := make(map[int64]int, len(v))
		for p, q := range v {
			inner[p] = q
		}
		c.cart[k] = inner
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.claims {
		c.claims[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]domain.OrderItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.logistics {
		c.logistics[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func (m *memStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memQuerier{st: m.state.clone(), failOn: m.failOn}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.st
	return nil
}

// view runs fn against the committed state outside of any transaction.
func (m *memStore) view(fn func(q *memQuerier)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&memQuerier{st: m.state, failOn: m.failOn})
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) seedUser(u domain.User) {
	m.view(func(q *memQuerier) { q.st.users[u.ID] = u })
}

func (m *memStore) seedProduct(p domain.Product) {
	m.view(func(q *memQuerier) { q.st.products[p.ID] = p })
}

func (m *memStore) seedCart(userID, productID int64, qty int) {
	m.view(func(q *memQuerier) {
		if q.st.cart[userID] == nil {
			q.st.cart[userID] = map[int64]int{}
		}
		q.st.cart[userID][productID] = qty
	})
}

func (m *memStore) seedCoupon(c domain.Coupon) {
	m.view(func(q *memQuerier) {
		if c.Status == "" {
			c.Status = domain.CouponActive
		}
		c.IsValid = true
		q.st.coupons[c.Code] = c
	})
}

type memQuerier struct {
	st     *memState
	failOn map[string]error
}

func (q *memQuerier) fail(op string) error {
	return q.failOn[op]
}

// Non-transactional Querier methods on memStore.

func (m *memStore) CreateCoupon(ctx context.Context, c domain.Coupon) (out domain.Coupon, err error) {
	m.view(func(q *memQuerier) { out, err = q.CreateCoupon(ctx, c) })
	return
}

func (m *memStore) GetCoupon(ctx context.Context, code string) (out domain.Coupon, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetCoupon(ctx, code) })
	return
}

func (m *memStore) DecrementCouponQuantity(ctx context.Context, code string) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.DecrementCouponQuantity(ctx, code) })
	return
}

func (m *memStore) DeactivateCoupon(ctx context.Context, code string) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.DeactivateCoupon(ctx, code) })
	return
}

func (m *memStore) CountClaims(ctx context.Context, code string) (n int, err error) {
	m.view(func(q *memQuerier) { n, err = q.CountClaims(ctx, code) })
	return
}

func (m *memStore) GetUserCoupon(ctx context.Context, userID int64, code string) (out domain.UserCoupon, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetUserCoupon(ctx, userID, code) })
	return
}

func (m *memStore) InsertUserCoupon(ctx context.Context, uc domain.UserCoupon) (out domain.UserCoupon, err error) {
	m.view(func(q *memQuerier) { out, err = q.InsertUserCoupon(ctx, uc) })
	return
}

func (m *memStore) ConsumeUserCoupon(ctx context.Context, userID int64, code string) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.ConsumeUserCoupon(ctx, userID, code) })
	return
}

func (m *memStore) ListUserCoupons(ctx context.Context, userID int64) (out []domain.UserCoupon, err error) {
	m.view(func(q *memQuerier) { out, err = q.ListUserCoupons(ctx, userID) })
	return
}

func (m *memStore) InsertCouponUsage(ctx context.Context, u domain.CouponUsage) (out domain.CouponUsage, err error) {
	m.view(func(q *memQuerier) { out, err = q.InsertCouponUsage(ctx, u) })
	return
}

func (m *memStore) GetUser(ctx context.Context, id int64) (out domain.User, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetUser(ctx, id) })
	return
}

func (m *memStore) DebitPoints(ctx context.Context, userID, amount int64) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.DebitPoints(ctx, userID, amount) })
	return
}

func (m *memStore) CreditPoints(ctx context.Context, userID, amount int64) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.CreditPoints(ctx, userID, amount) })
	return
}

func (m *memStore) InsertPointsEntry(ctx context.Context, e domain.PointsEntry) (out domain.PointsEntry, err error) {
	m.view(func(q *memQuerier) { out, err = q.InsertPointsEntry(ctx, e) })
	return
}

func (m *memStore) ListPointsEntries(ctx context.Context, userID int64, limit int) (out []domain.PointsEntry, err error) {
	m.view(func(q *memQuerier) { out, err = q.ListPointsEntries(ctx, userID, limit) })
	return
}

func (m *memStore) GetProduct(ctx context.Context, id int64) (out domain.Product, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetProduct(ctx, id) })
	return
}

func (m *memStore) DecrementStock(ctx context.Context, productID int64, qty int) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.DecrementStock(ctx, productID, qty) })
	return
}

func (m *memStore) IncrementStock(ctx context.Context, productID int64, qty int) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.IncrementStock(ctx, productID, qty) })
	return
}

func (m *memStore) DeleteCartItems(ctx context.Context, userID int64, productIDs []int64) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.DeleteCartItems(ctx, userID, productIDs) })
	return
}

func (m *memStore) ClaimIdempotencyKey(ctx context.Context, userID int64, key string) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.ClaimIdempotencyKey(ctx, userID, key) })
	return
}

func (m *memStore) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (out domain.Order, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetOrderByIdempotencyKey(ctx, userID, key) })
	return
}

func (m *memStore) InsertOrder(ctx context.Context, o domain.Order) (out domain.Order, err error) {
	m.view(func(q *memQuerier) { out, err = q.InsertOrder(ctx, o) })
	return
}

func (m *memStore) GetOrder(ctx context.Context, id int64) (out domain.Order, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetOrder(ctx, id) })
	return
}

func (m *memStore) InsertOrderItem(ctx context.Context, item domain.OrderItem) (err error) {
	m.view(func(q *memQuerier) { err = q.InsertOrderItem(ctx, item) })
	return
}

func (m *memStore) ListOrderItems(ctx context.Context, orderID int64) (out []domain.OrderItem, err error) {
	m.view(func(q *memQuerier) { out, err = q.ListOrderItems(ctx, orderID) })
	return
}

func (m *memStore) SetOrderPointsGot(ctx context.Context, orderID, points int64) (err error) {
	m.view(func(q *memQuerier) { err = q.SetOrderPointsGot(ctx, orderID, points) })
	return
}

func (m *memStore) ApplyOrderCoupon(ctx context.Context, orderID int64, code string, discount, payable decimal.Decimal) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.ApplyOrderCoupon(ctx, orderID, code, discount, payable) })
	return
}

func (m *memStore) CancelOrder(ctx context.Context, orderID int64) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.CancelOrder(ctx, orderID) })
	return
}

func (m *memStore) ConfirmOrderPayment(ctx context.Context, orderID int64) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.ConfirmOrderPayment(ctx, orderID) })
	return
}

func (m *memStore) AdvanceShipping(ctx context.Context, orderID int64, from, to domain.ShippingStatus) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.AdvanceShipping(ctx, orderID, from, to) })
	return
}

func (m *memStore) InsertPaymentRecord(ctx context.Context, p domain.PaymentRecord) (out domain.PaymentRecord, err error) {
	m.view(func(q *memQuerier) { out, err = q.InsertPaymentRecord(ctx, p) })
	return
}

func (m *memStore) GetPaymentRecord(ctx context.Context, orderID int64) (out domain.PaymentRecord, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetPaymentRecord(ctx, orderID) })
	return
}

func (m *memStore) UpdatePaymentRecordStatus(ctx context.Context, orderID int64, from []domain.PaymentRecordStatus, to domain.PaymentRecordStatus, ref string) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.UpdatePaymentRecordStatus(ctx, orderID, from, to, ref) })
	return
}

func (m *memStore) InsertLogisticsInfo(ctx context.Context, l domain.LogisticsInfo) (out domain.LogisticsInfo, err error) {
	m.view(func(q *memQuerier) { out, err = q.InsertLogisticsInfo(ctx, l) })
	return
}

func (m *memStore) GetLogisticsInfo(ctx context.Context, orderID int64) (out domain.LogisticsInfo, err error) {
	m.view(func(q *memQuerier) { out, err = q.GetLogisticsInfo(ctx, orderID) })
	return
}

func (m *memStore) UpdateLogisticsStatus(ctx context.Context, orderID int64, to domain.LogisticsStatus, tracking string) (n int64, err error) {
	m.view(func(q *memQuerier) { n, err = q.UpdateLogisticsStatus(ctx, orderID, to, tracking) })
	return
}

// memQuerier mirrors the SQL in the repository package, guards included.

func (q *memQuerier) CreateCoupon(_ context.Context, c domain.Coupon) (domain.Coupon, error) {
	if err := q.fail("CreateCoupon"); err != nil {
		return domain.Coupon{}, err
	}
	if _, ok := q.st.coupons[c.Code]; ok {
		return domain.Coupon{}, domain.ErrDuplicateCoupon
	}
	c.Status = domain.CouponActive
	c.IsValid = true
	c.CreatedAt = time.Now()
	q.st.coupons[c.Code] = c
	return c, nil
}

func (q *memQuerier) GetCoupon(_ context.Context, code string) (domain.Coupon, error) {
	if err := q.fail("GetCoupon"); err != nil {
		return domain.Coupon{}, err
	}
	c, ok := q.st.coupons[code]
	if !ok {
		return domain.Coupon{}, domain.ErrCouponNotFound
	}
	return c, nil
}

func (q *memQuerier) DecrementCouponQuantity(_ context.Context, code string) (int64, error) {
	if err := q.fail("DecrementCouponQuantity"); err != nil {
		return 0, err
	}
	c, ok := q.st.coupons[code]
	if !ok || !c.IsValid || c.Status != domain.CouponActive {
		return 0, nil
	}
	if c.TotalQuantity == domain.Unlimited {
		return 1, nil
	}
	if c.TotalQuantity <= 0 {
		return 0, nil
	}
	c.TotalQuantity--
	if c.TotalQuantity <= 0 {
		c.Status = domain.CouponInactive
	}
	q.st.coupons[code] = c
	return 1, nil
}

func (q *memQuerier) DeactivateCoupon(_ context.Context, code string) (int64, error) {
	if err := q.fail("DeactivateCoupon"); err != nil {
		return 0, err
	}
	c, ok := q.st.coupons[code]
	if !ok || !c.IsValid {
		return 0, nil
	}
	c.IsValid = false
	q.st.coupons[code] = c
	return 1, nil
}

func (q *memQuerier) CountClaims(_ context.Context, code string) (int, error) {
	if err := q.fail("CountClaims"); err != nil {
		return 0, err
	}
	n := 0
	for k := range q.st.claims {
		if k.code == code {
			n++
		}
	}
	return n, nil
}

func (q *memQuerier) GetUserCoupon(_ context.Context, userID int64, code string) (domain.UserCoupon, error) {
	if err := q.fail("GetUserCoupon"); err != nil {
		return domain.UserCoupon{}, err
	}
	uc, ok := q.st.claims[userCode{userID, code}]
	if !ok {
		return domain.UserCoupon{}, domain.ErrClaimNotFound
	}
	return uc, nil
}

func (q *memQuerier) InsertUserCoupon(_ context.Context, uc domain.UserCoupon) (domain.UserCoupon, error) {
	if err := q.fail("InsertUserCoupon"); err != nil {
		return domain.UserCoupon{}, err
	}
	key := userCode{uc.UserID, uc.CouponCode}
	if _, ok := q.st.claims[key]; ok {
		return domain.UserCoupon{}, domain.ErrAlreadyClaimed
	}
	if _, ok := q.st.users[uc.UserID]; !ok {
		return domain.UserCoupon{}, domain.ErrUserNotFound
	}
	uc.ID = q.st.id()
	uc.IsValid = true
	uc.ClaimedAt = time.Now()
	q.st.claims[key] = uc
	return uc, nil
}

func (q *memQuerier) ConsumeUserCoupon(_ context.Context, userID int64, code string) (int64, error) {
	if err := q.fail("ConsumeUserCoupon"); err != nil {
		return 0, err
	}
	key := userCode{userID, code}
	uc, ok := q.st.claims[key]
	if !ok || !uc.HasUses() {
		return 0, nil
	}
	if uc.RemainingUses != domain.Unlimited {
		uc.RemainingUses--
		if uc.RemainingUses <= 0 {
			uc.IsValid = false
		}
	}
	q.st.claims[key] = uc
	return 1, nil
}

func (q *memQuerier) ListUserCoupons(_ context.Context, userID int64) ([]domain.UserCoupon, error) {
	if err := q.fail("ListUserCoupons"); err != nil {
		return nil, err
	}
	var out []domain.UserCoupon
	for k, v := range q.st.claims {
		if k.userID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (q *memQuerier) InsertCouponUsage(_ context.Context, u domain.CouponUsage) (domain.CouponUsage, error) {
	if err := q.fail("InsertCouponUsage"); err != nil {
		return domain.CouponUsage{}, err
	}
	u.ID = q.st.id()
	u.CreatedAt = time.Now()
	q.st.usages = append(q.st.usages, u)
	return u, nil
}

func (q *memQuerier) GetUser(_ context.Context, id int64) (domain.User, error) {
	if err := q.fail("GetUser"); err != nil {
		return domain.User{}, err
	}
	u, ok := q.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (q *memQuerier) DebitPoints(_ context.Context, userID, amount int64) (int64, error) {
	if err := q.fail("DebitPoints"); err != nil {
		return 0, err
	}
	u, ok := q.st.users[userID]
	if !ok || u.Points < amount {
		return 0, nil
	}
	u.Points -= amount
	q.st.users[userID] = u
	return 1, nil
}

func (q *memQuerier) CreditPoints(_ context.Context, userID, amount int64) (int64, error) {
	if err := q.fail("CreditPoints"); err != nil {
		return 0, err
	}
	u, ok := q.st.users[userID]
	if !ok {
		return 0, nil
	}
	u.Points += amount
	q.st.users[userID] = u
	return 1, nil
}

func (q *memQuerier) InsertPointsEntry(_ context.Context, e domain.PointsEntry) (domain.PointsEntry, error) {
	if err := q.fail("InsertPointsEntry"); err != nil {
		return domain.PointsEntry{}, err
	}
	e.ID = q.st.id()
	e.CreatedAt = time.Now()
	q.st.ledger = append(q.st.ledger, e)
	return e, nil
}

func (q *memQuerier) ListPointsEntries(_ context.Context, userID int64, limit int) ([]domain.PointsEntry, error) {
	if err := q.fail("ListPointsEntries"); err != nil {
		return nil, err
	}
	var out []domain.PointsEntry
	for i := len(q.st.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if q.st.ledger[i].UserID == userID {
			out = append(out, q.st.ledger[i])
		}
	}
	return out, nil
}

func (q *memQuerier) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	if err := q.fail("GetProduct"); err != nil {
		return domain.Product{}, err
	}
	p, ok := q.st.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (q *memQuerier) DecrementStock(_ context.Context, productID int64, qty int) (int64, error) {
	if err := q.fail("DecrementStock"); err != nil {
		return 0, err
	}
	p, ok := q.st.products[productID]
	if !ok || p.Stock < qty {
		return 0, nil
	}
	p.Stock -= qty
	q.st.products[productID] = p
	return 1, nil
}

func (q *memQuerier) IncrementStock(_ context.Context, productID int64, qty int) (int64, error) {
	if err := q.fail("IncrementStock"); err != nil {
		return 0, err
	}
	p, ok := q.st.products[productID]
	if !ok {
		return 0, nil
	}
	p.Stock += qty
	q.st.products[productID] = p
	return 1, nil
}

func (q *memQuerier) DeleteCartItems(_ context.Context, userID int64, productIDs []int64) (int64, error) {
	if err := q.fail("DeleteCartItems"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range productIDs {
		if _, ok := q.st.cart[userID][id]; ok {
			delete(q.st.cart[userID], id)
			n++
		}
	}
	return n, nil
}

func (q *memQuerier) ClaimIdempotencyKey(_ context.Context, userID int64, key string) (int64, error) {
	if err := q.fail("ClaimIdempotencyKey"); err != nil {
		return 0, err
	}
	k := userKey{userID, key}
	if q.st.requests[k] {
		return 0, nil
	}
	q.st.requests[k] = true
	return 1, nil
}

func (q *memQuerier) GetOrderByIdempotencyKey(_ context.Context, userID int64, key string) (domain.Order, error) {
	if err := q.fail("GetOrderByIdempotencyKey"); err != nil {
		return domain.Order{}, err
	}
	for _, o := range q.st.orders {
		if o.BuyerID == userID && o.IdempotencyKey == key {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (q *memQuerier) InsertOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	if err := q.fail("InsertOrder"); err != nil {
		return domain.Order{}, err
	}
	if _, ok := q.st.users[o.BuyerID]; !ok {
		return domain.Order{}, domain.ErrUserNotFound
	}
	for _, existing := range q.st.orders {
		if existing.BuyerID == o.BuyerID && existing.IdempotencyKey == o.IdempotencyKey {
			return domain.Order{}, domain.ErrDuplicateRequest
		}
	}
	o.ID = q.st.id()
	o.PaymentStatus = domain.PaymentPending
	o.ShippingStatus = domain.ShippingProcessing
	o.CreatedAt = time.Now()
	o.Items, o.Payment, o.Logistics = nil, nil, nil
	q.st.orders[o.ID] = o
	return o, nil
}

func (q *memQuerier) GetOrder(_ context.Context, id int64) (domain.Order, error) {
	if err := q.fail("GetOrder"); err != nil {
		return domain.Order{}, err
	}
	o, ok := q.st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (q *memQuerier) InsertOrderItem(_ context.Context, item domain.OrderItem) error {
	if err := q.fail("InsertOrderItem"); err != nil {
		return err
	}
	q.st.items[item.OrderID] = append(q.st.items[item.OrderID], item)
	return nil
}

func (q *memQuerier) ListOrderItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	if err := q.fail("ListOrderItems"); err != nil {
		return nil, err
	}
	out := append([]domain.OrderItem(nil), q.st.items[orderID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (q *memQuerier) SetOrderPointsGot(_ context.Context, orderID, points int64) error {
	if err := q.fail("SetOrderPointsGot"); err != nil {
		return err
	}
	o, ok := q.st.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.PointsGot = points
	q.st.orders[orderID] = o
	return nil
}

func (q *memQuerier) ApplyOrderCoupon(_ context.Context, orderID int64, code string, discount, payable decimal.Decimal) (int64, error) {
	if err := q.fail("ApplyOrderCoupon"); err != nil {
		return 0, err
	}
	o, ok := q.st.orders[orderID]
	if !ok || o.CouponCode != nil || o.PaymentStatus != domain.PaymentPending {
		return 0, nil
	}
	o.CouponCode = &code
	o.DiscountAmount = discount
	o.PayableAmount = payable
	q.st.orders[orderID] = o

	p, ok := q.st.payments[orderID]
	if !ok || p.Status != domain.RecordPending {
		return 0, nil
	}
	p.Amount = payable
	q.st.payments[orderID] = p
	return 1, nil
}

func (q *memQuerier) CancelOrder(_ context.Context, orderID int64) (int64, error) {
	if err := q.fail("CancelOrder"); err != nil {
		return 0, err
	}
	o, ok := q.st.orders[orderID]
	if !ok || o.PaymentStatus == domain.PaymentCancelled || o.ShippingStatus != domain.ShippingProcessing {
		return 0, nil
	}
	o.PaymentStatus = domain.PaymentCancelled
	q.st.orders[orderID] = o
	return 1, nil
}

func (q *memQuerier) ConfirmOrderPayment(_ context.Context, orderID int64) (int64, error) {
	if err := q.fail("ConfirmOrderPayment"); err != nil {
		return 0, err
	}
	o, ok := q.st.orders[orderID]
	if !ok || o.PaymentStatus != domain.PaymentPending {
		return 0, nil
	}
	o.PaymentStatus = domain.PaymentConfirmed
	q.st.orders[orderID] = o
	return 1, nil
}

func (q *memQuerier) AdvanceShipping(_ context.Context, orderID int64, from, to domain.ShippingStatus) (int64, error) {
	if err := q.fail("AdvanceShipping"); err != nil {
		return 0, err
	}
	o, ok := q.st.orders[orderID]
	if !ok || o.ShippingStatus != from || o.PaymentStatus == domain.PaymentCancelled {
		return 0, nil
	}
	o.ShippingStatus = to
	q.st.orders[orderID] = o
	return 1, nil
}

func (q *memQuerier) InsertPaymentRecord(_ context.Context, p domain.PaymentRecord) (domain.PaymentRecord, error) {
	if err := q.fail("InsertPaymentRecord"); err != nil {
		return domain.PaymentRecord{}, err
	}
	p.UpdatedAt = time.Now()
	q.st.payments[p.OrderID] = p
	return p, nil
}

func (q *memQuerier) GetPaymentRecord(_ context.Context, orderID int64) (domain.PaymentRecord, error) {
	if err := q.fail("GetPaymentRecord"); err != nil {
		return domain.PaymentRecord{}, err
	}
	p, ok := q.st.payments[orderID]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	return p, nil
}

func (q *memQuerier) UpdatePaymentRecordStatus(_ context.Context, orderID int64, from []domain.PaymentRecordStatus, to domain.PaymentRecordStatus, ref string) (int64, error) {
	if err := q.fail("UpdatePaymentRecordStatus"); err != nil {
		return 0, err
	}
	p, ok := q.st.payments[orderID]
	if !ok {
		return 0, nil
	}
	allowed := false
	for _, st := range from {
		if p.Status == st {
			allowed = true
		}
	}
	if !allowed {
		return 0, nil
	}
	p.Status = to
	if ref != "" {
		p.TransactionRef = ref
	}
	p.UpdatedAt = time.Now()
	q.st.payments[orderID] = p
	return 1, nil
}

func (q *memQuerier) InsertLogisticsInfo(_ context.Context, l domain.LogisticsInfo) (domain.LogisticsInfo, error) {
	if err := q.fail("InsertLogisticsInfo"); err != nil {
		return domain.LogisticsInfo{}, err
	}
	l.UpdatedAt = time.Now()
	q.st.logistics[l.OrderID] = l
	return l, nil
}

func (q *memQuerier) GetLogisticsInfo(_ context.Context, orderID int64) (domain.LogisticsInfo, error) {
	if err := q.fail("GetLogisticsInfo"); err != nil {
		return domain.LogisticsInfo{}, err
	}
	l, ok := q.st.logistics[orderID]
	if !ok {
		return domain.LogisticsInfo{}, domain.ErrRecordNotFound
	}
	return l, nil
}

func (q *memQuerier) UpdateLogisticsStatus(_ context.Context, orderID int64, to domain.LogisticsStatus, tracking string) (int64, error) {
	if err := q.fail("UpdateLogisticsStatus"); err != nil {
		return 0, err
	}
	l, ok := q.st.logistics[orderID]
	if !ok || l.Status == domain.LogisticsDelivered || l.Status == domain.LogisticsCancelled {
		return 0, nil
	}
	l.Status = to
	if tracking != "" {
		l.TrackingNumber = tracking
	}
	l.UpdatedAt = time.Now()
	q.st.logistics[orderID] = l
	return 1, nil
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var (
	_ repository.Store   = (*memStore)(nil)
	_ repository.Querier = (*memQuerier)(nil)
	_ EventPublisher     = (*recordingPublisher)(nil)
)
