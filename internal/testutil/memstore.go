package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/loyalty"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
)

// Store operations that accept injected faults
const (
	OpItemSave          = "items.Save"
	OpItemSaveWithLock  = "items.SaveWithLock"
	OpReservationSave   = "reservations.SaveAll"
	OpProductDecrement  = "products.DecrementStock"
	OpProductIncrement  = "products.IncrementStock"
	OpProductCondDecr   = "products.DecrementStockIfAvailable"
	OpOrderSave         = "orders.Save"
	OpOrderSaveWithLock = "orders.SaveWithLock"
	OpCartSave          = "carts.Save"
	OpIntentSave        = "intents.Save"
)

type fault struct {
	err   error
	times int
}

// MemStore is an in-memory stand-in for the relational store. Ledger and
// reservation writes made through Execute are serialized and rolled back
// when the callback fails, like a serializable transaction.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	// concurrent transactions stage their writes and check versions on commit
	concurrent bool
	readGap    time.Duration

	items        map[uuid.UUID]inventory.InventoryItem
	reservations map[uuid.UUID]inventory.StockReservation
	products     map[uuid.UUID]catalog.Product
	orders       map[uuid.UUID]order.Order
	history      map[uuid.UUID][]order.OrderHistory
	returns      map[uuid.UUID]order.ReturnRequest
	carts        map[uuid.UUID]cart.Cart
	intents      map[uuid.UUID]checkout.Intent
	coupons      map[string]pricing.Coupon
	accounts     map[uuid.UUID]loyalty.Account
	loyaltyTxns  []loyalty.Transaction
	events       []shared.DomainEvent
	faults       map[string]*fault
	orderSeq     int
	now          func() time.Time
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		items:        make(map[uuid.UUID]inventory.InventoryItem),
		reservations: make(map[uuid.UUID]inventory.StockReservation),
		products:     make(map[uuid.UUID]catalog.Product),
		orders:       make(map[uuid.UUID]order.Order),
		history:      make(map[uuid.UUID][]order.OrderHistory),
		returns:      make(map[uuid.UUID]order.ReturnRequest),
		carts:        make(map[uuid.UUID]cart.Cart),
		intents:      make(map[uuid.UUID]checkout.Intent),
		coupons:      make(map[string]pricing.Coupon),
		accounts:     make(map[uuid.UUID]loyalty.Account),
		faults:       make(map[string]*fault),
		now:          time.Now,
	}
}

// FailNext makes the next n calls of op return err
func (s *MemStore) FailNext(op string, err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{err: err, times: n}
}

// must hold s.mu
func (s *MemStore) injected(op string) error {
	f, ok := s.faults[op]
	if !ok || f.times <= 0 {
		return nil
	}
	f.times--
	return f.err
}

// Events returns every domain event flushed by a save, in order
func (s *MemStore) Events() []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.DomainEvent(nil), s.events...)
}

// EventTypes returns the type names of Events
func (s *MemStore) EventTypes() []string {
	events := s.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}

// must hold s.mu
func (s *MemStore) flush(agg shared.AggregateRoot) {
	s.events = append(s.events, agg.PendingEvents()...)
	agg.ClearEvents()
}

// WithConcurrentTx lets Execute callers run side by side. Each transaction
// reads committed rows, pauses readGap after every ledger read, stages its
// writes and commits them only if the ledger rows it saved were not changed
// in the meantime, as a row-versioned update would under read committed.
func (s *MemStore) WithConcurrentTx(readGap time.Duration) *MemStore {
	s.concurrent = true
	s.readGap = readGap
	return s
}

// Execute runs fn with ledger and reservation repositories as one transaction
func (s *MemStore) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	if s.concurrent {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := newMemTx(s)
		if err := fn(tx); err != nil {
			return err
		}
		return tx.commit()
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	items := make(map[uuid.UUID]inventory.InventoryItem, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	reservations := make(map[uuid.UUID]inventory.StockReservation, len(s.reservations))
	for k, v := range s.reservations {
		reservations[k] = v
	}
	eventCount := len(s.events)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.items, s.reservations = items, reservations
		s.events = s.events[:eventCount]
		s.mu.Unlock()
		return err
	}
	return nil
}

// Items returns the ledger repository
func (s *MemStore) Items() inventory.InventoryItemRepository { return memItems{s} }

// Reservations returns the reservation repository
func (s *MemStore) Reservations() inventory.StockReservationRepository { return memReservations{s} }

// Products returns the catalog repository
func (s *MemStore) Products() catalog.ProductRepository { return memProducts{s} }

// Orders returns the order repository
func (s *MemStore) Orders() order.OrderRepository { return memOrders{s} }

// Returns returns the return request repository
func (s *MemStore) Returns() order.ReturnRequestRepository { return memReturns{s} }

// Carts returns the cart repository
func (s *MemStore) Carts() cart.CartRepository { return memCarts{s} }

// Intents returns the checkout intent repository
func (s *MemStore) Intents() checkout.IntentRepository { return memIntents{s} }

// Coupons returns the coupon repository
func (s *MemStore) Coupons() pricing.CouponRepository { return memCoupons{s} }

// Loyalty returns the loyalty repository
func (s *MemStore) Loyalty() loyalty.AccountRepository { return memLoyalty{s} }

// SeedProduct stores a product and, when onHand >= 0, its ledger row
func (s *MemStore) SeedProduct(p catalog.Product, onHand int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	if onHand >= 0 {
		item, _ := inventory.NewInventoryItem(p.ID, onHand)
		item.ClearEvents()
		s.items[item.ID] = *item
	}
}

// SeedCoupon stores a coupon
func (s *MemStore) SeedCoupon(c pricing.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[pricing.NormalizeCode(c.Code)] = c
}

// Item returns a copy of a product's ledger row
func (s *MemStore) Item(productID uuid.UUID) (inventory.InventoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return inventory.InventoryItem{}, false
}

// Product returns a copy of a product
func (s *MemStore) Product(id uuid.UUID) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

// ReservationsFor returns every reservation record of a reference
func (s *MemStore) ReservationsFor(refType inventory.ReferenceType, refID string) []inventory.StockReservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.StockReservation
	for _, r := range s.reservations {
		if r.ReferenceType == refType && r.ReferenceID == refID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ActiveReserved totals the active reservations of a product
func (s *MemStore) ActiveReserved(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, r := range s.reservations {
		if r.ProductID == productID && r.IsActive() {
			total += r.Quantity
		}
	}
	return total
}

// OrderCount returns the number of stored orders
func (s *MemStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Intent returns a copy of the intent stored under key
func (s *MemStore) Intent(key string) (checkout.Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range s.intents {
		if in.IdempotencyKey == key {
			return in, true
		}
	}
	return checkout.Intent{}, false
}

// AllIntents returns copies of every stored intent
func (s *MemStore) AllIntents() []checkout.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]checkout.Intent, 0, len(s.intents))
	for _, in := range s.intents {
		out = append(out, in)
	}
	return out
}

// Coupon returns a copy of a stored coupon
func (s *MemStore) Coupon(code string) pricing.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupons[pricing.NormalizeCode(code)]
}

type memItems struct{ s *MemStore }

func (r memItems) FindByProductID(_ context.Context, productID uuid.UUID) (*inventory.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.ProductID == productID {
			cp := it
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound.WithDetail("product_id", productID.String())
}

func (r memItems) FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]*inventory.InventoryItem, error) {
	out := make([]*inventory.InventoryItem, 0, len(productIDs))
	for _, id := range productIDs {
		it, err := r.FindByProductID(ctx, id)
		if err == nil {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r memItems) Save(_ context.Context, item *inventory.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpItemSave); err != nil {
		return err
	}
	for _, it := range r.s.items {
		if it.ProductID == item.ProductID {
			return shared.ErrAlreadyExists.WithDetail("product_id", item.ProductID.String())
		}
	}
	r.s.flush(item)
	r.s.items[item.ID] = *item
	return nil
}

func (r memItems) SaveWithLock(_ context.Context, item *inventory.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpItemSaveWithLock); err != nil {
		return err
	}
	stored, ok := r.s.items[item.ID]
	if !ok || stored.Version != item.Version {
		return shared.ErrConcurrencyConflict.WithDetail("product_id", item.ProductID.String())
	}
	r.s.flush(item)
	item.BumpVersion()
	r.s.items[item.ID] = *item
	return nil
}

type memReservations struct{ s *MemStore }

func (r memReservations) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockReservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &res, nil
}

func (r memReservations) FindActiveByReference(_ context.Context, refType inventory.ReferenceType, refID string, productID *uuid.UUID) ([]*inventory.StockReservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*inventory.StockReservation
	for _, res := range r.s.reservations {
		if !res.IsActive() || res.ReferenceType != refType || res.ReferenceID != refID {
			continue
		}
		if productID != nil && res.ProductID != *productID {
			continue
		}
		cp := res
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memReservations) FindExpired(_ context.Context, before time.Time, limit int) ([]*inventory.StockReservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*inventory.StockReservation
	for _, res := range r.s.reservations {
		if res.IsActive() && res.ExpiresAt.Before(before) {
			cp := res
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memReservations) SaveAll(_ context.Context, reservations ...*inventory.StockReservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpReservationSave); err != nil {
		return err
	}
	for _, res := range reservations {
		r.s.reservations[res.ID] = *res
	}
	return nil
}

type memProducts struct{ s *MemStore }

func (r memProducts) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r memProducts) FindByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memProducts) Save(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = *p
	return nil
}

func (r memProducts) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpProductDecrement); err != nil {
		return err
	}
	p, ok := r.s.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.StockQuantity = max(p.StockQuantity-quantity, 0)
	r.s.products[id] = p
	return nil
}

func (r memProducts) IncrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpProductIncrement); err != nil {
		return err
	}
	p, ok := r.s.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.StockQuantity += quantity
	r.s.products[id] = p
	return nil
}

func (r memProducts) DecrementStockIfAvailable(_ context.Context, id uuid.UUID, quantity int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpProductCondDecr); err != nil {
		return false, err
	}
	p, ok := r.s.products[id]
	if !ok || p.StockQuantity < quantity {
		return false, nil
	}
	p.StockQuantity -= quantity
	r.s.products[id] = p
	return true, nil
}

type memOrders struct{ s *MemStore }

func copyOrder(o order.Order) *order.Order {
	cp := o
	cp.Items = append([]order.OrderItem(nil), o.Items...)
	return &cp
}

func (r memOrders) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, shared.ErrNotFound.WithDetail("order_id", id.String())
	}
	return copyOrder(o), nil
}

func (r memOrders) FindByOrderNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.OrderNumber == orderNumber {
			return copyOrder(o), nil
		}
	}
	return nil, shared.ErrNotFound.WithDetail("order_number", orderNumber)
}

func (r memOrders) FindAll(_ context.Context, filter order.OrderFilter) ([]order.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []order.Order
	for _, o := range r.s.orders {
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	total := int64(len(out))
	if filter.PageSize > 0 {
		start := max(filter.Page-1, 0) * filter.PageSize
		if start >= len(out) {
			return []order.Order{}, total, nil
		}
		out = out[start:min(start+filter.PageSize, len(out))]
	}
	return out, total, nil
}

func (r memOrders) FindHistory(_ context.Context, orderID uuid.UUID) ([]order.OrderHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]order.OrderHistory(nil), r.s.history[orderID]...), nil
}

// must hold s.mu
func (r memOrders) store(o *order.Order) {
	r.s.history[o.ID] = append(r.s.history[o.ID], o.PendingHistory()...)
	o.MarkHistoryPersisted()
	r.s.flush(o)
	r.s.orders[o.ID] = *copyOrder(*o)
}

func (r memOrders) Save(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpOrderSave); err != nil {
		return err
	}
	for _, existing := range r.s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return shared.ErrAlreadyExists.WithDetail("order_number", o.OrderNumber)
		}
	}
	r.store(o)
	return nil
}

func (r memOrders) SaveWithLock(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpOrderSaveWithLock); err != nil {
		return err
	}
	stored, ok := r.s.orders[o.ID]
	if !ok || stored.Version != o.Version {
		return shared.ErrConcurrencyConflict.WithDetail("order_id", o.ID.String())
	}
	o.BumpVersion()
	r.store(o)
	return nil
}

func (r memOrders) ExistsByOrderNumber(_ context.Context, orderNumber string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r memOrders) GenerateOrderNumber(_ context.Context) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orderSeq++
	return order.FormatOrderNumber(r.s.now().Year(), r.s.orderSeq), nil
}

type memReturns struct{ s *MemStore }

func (r memReturns) FindByID(_ context.Context, id uuid.UUID) (*order.ReturnRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rr, ok := r.s.returns[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rr, nil
}

func (r memReturns) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]order.ReturnRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []order.ReturnRequest
	for _, rr := range r.s.returns {
		if rr.OrderID == orderID {
			out = append(out, rr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (r memReturns) Save(_ context.Context, rr *order.ReturnRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.flush(rr)
	r.s.returns[rr.ID] = *rr
	return nil
}

func (r memReturns) SaveWithLock(_ context.Context, rr *order.ReturnRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.returns[rr.ID]
	if !ok || stored.Version != rr.Version {
		return shared.ErrConcurrencyConflict
	}
	rr.BumpVersion()
	r.s.flush(rr)
	r.s.returns[rr.ID] = *rr
	return nil
}

type memCarts struct{ s *MemStore }

func (r memCarts) FindByCustomerID(_ context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[customerID]
	if !ok {
		return nil, shared.ErrNotFound.WithDetail("customer_id", customerID.String())
	}
	c.Items = append([]cart.CartItem(nil), c.Items...)
	return &c, nil
}

func (r memCarts) Save(_ context.Context, c *cart.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpCartSave); err != nil {
		return err
	}
	cp := *c
	cp.Items = append([]cart.CartItem(nil), c.Items...)
	r.s.carts[c.CustomerID] = cp
	return nil
}

type memIntents struct{ s *MemStore }

func (r memIntents) Save(_ context.Context, in *checkout.Intent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected(OpIntentSave); err != nil {
		return err
	}
	if in.IdempotencyKey != "" {
		for _, existing := range r.s.intents {
			if existing.IdempotencyKey == in.IdempotencyKey && existing.ID != in.ID {
				return shared.ErrAlreadyExists.WithDetail("idempotency_key", in.IdempotencyKey)
			}
		}
	}
	cp := *in
	cp.CompletedSteps = append([]checkout.Step(nil), in.CompletedSteps...)
	r.s.intents[in.ID] = cp
	return nil
}

func (r memIntents) FindByIdempotencyKey(_ context.Context, key string) (*checkout.Intent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, in := range r.s.intents {
		if key != "" && in.IdempotencyKey == key {
			in.CompletedSteps = append([]checkout.Step(nil), in.CompletedSteps...)
			return &in, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memIntents) FindUnfinished(_ context.Context, updatedBefore time.Time, limit int) ([]*checkout.Intent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*checkout.Intent
	for _, in := range r.s.intents {
		if in.Status != checkout.IntentStarted && in.Status != checkout.IntentNeedsReconciliation {
			continue
		}
		if !in.UpdatedAt.Before(updatedBefore) {
			continue
		}
		cp := in
		cp.CompletedSteps = append([]checkout.Step(nil), in.CompletedSteps...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memCoupons struct{ s *MemStore }

func (r memCoupons) FindByCode(_ context.Context, code string) (*pricing.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[pricing.NormalizeCode(code)]
	if !ok {
		return nil, shared.ErrNotFound.WithDetail("code", strings.TrimSpace(code))
	}
	return &c, nil
}

func (r memCoupons) MarkUsed(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pricing.NormalizeCode(code)
	c, ok := r.s.coupons[key]
	if !ok {
		return shared.ErrNotFound
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return pricing.NewCouponInvalidError(key, pricing.CouponUsageExhausted)
	}
	c.UsedCount++
	r.s.coupons[key] = c
	return nil
}

type memLoyalty struct{ s *MemStore }

func (r memLoyalty) FindByUserID(_ context.Context, userID uuid.UUID) (*loyalty.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r memLoyalty) SaveWithTransaction(_ context.Context, account *loyalty.Account, txn *loyalty.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if stored, ok := r.s.accounts[account.UserID]; ok {
		if stored.Version != account.Version {
			return shared.ErrConcurrencyConflict.WithDetail("user_id", account.UserID.String())
		}
		account.BumpVersion()
	}
	r.s.flush(account)
	r.s.accounts[account.UserID] = *account
	if txn != nil {
		r.s.loyaltyTxns = append(r.s.loyaltyTxns, *txn)
	}
	return nil
}

func (r memLoyalty) FindTransactions(_ context.Context, accountID uuid.UUID, limit int) ([]loyalty.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []loyalty.Transaction
	for i := len(r.s.loyaltyTxns) - 1; i >= 0; i-- {
		if r.s.loyaltyTxns[i].AccountID == accountID {
			out = append(out, r.s.loyaltyTxns[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ appinv.TransactionScope          = (*MemStore)(nil)
	_ appinv.TransactionalRepositories = (*MemStore)(nil)
)

// ProductFixture builds an active product
func ProductFixture(name string, price int64, stock int) catalog.Product {
	return catalog.Product{
		ID:            uuid.New(),
		SKU:           fmt.Sprintf("SKU-%s", strings.ToUpper(strings.ReplaceAll(name, " ", "-"))),
		Name:          name,
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
		Status:        catalog.ProductStatusActive,
	}
}
