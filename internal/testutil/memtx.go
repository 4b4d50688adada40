package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
)

// memTx is one concurrent MemStore transaction. Reads see committed rows plus
// the transaction's own staged writes.
type memTx struct {
	s            *MemStore
	items        map[uuid.UUID]inventory.InventoryItem
	inserted     map[uuid.UUID]bool
	readVersion  map[uuid.UUID]int
	reservations map[uuid.UUID]inventory.StockReservation
	events       []shared.DomainEvent
}

func newMemTx(s *MemStore) *memTx {
	return &memTx{
		s:            s,
		items:        make(map[uuid.UUID]inventory.InventoryItem),
		inserted:     make(map[uuid.UUID]bool),
		readVersion:  make(map[uuid.UUID]int),
		reservations: make(map[uuid.UUID]inventory.StockReservation),
	}
}

func (tx *memTx) Items() inventory.InventoryItemRepository { return memTxItems{tx} }

func (tx *memTx) Reservations() inventory.StockReservationRepository {
	return memTxReservations{tx}
}

func (tx *memTx) stage(agg shared.AggregateRoot) {
	tx.events = append(tx.events, agg.PendingEvents()...)
	agg.ClearEvents()
}

// commit applies the staged writes unless a saved ledger row moved on
func (tx *memTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, want := range tx.readVersion {
		stored, ok := s.items[id]
		if !ok || stored.Version != want {
			return shared.ErrConcurrencyConflict.WithDetail("product_id", tx.items[id].ProductID.String())
		}
	}
	for id := range tx.inserted {
		staged := tx.items[id]
		for _, it := range s.items {
			if it.ProductID == staged.ProductID {
				return shared.ErrAlreadyExists.WithDetail("product_id", staged.ProductID.String())
			}
		}
	}

	for id, it := range tx.items {
		s.items[id] = it
	}
	for id, res := range tx.reservations {
		s.reservations[id] = res
	}
	s.events = append(s.events, tx.events...)
	return nil
}

type memTxItems struct{ tx *memTx }

func (r memTxItems) FindByProductID(ctx context.Context, productID uuid.UUID) (*inventory.InventoryItem, error) {
	for _, it := range r.tx.items {
		if it.ProductID == productID {
			cp := it
			return &cp, nil
		}
	}
	item, err := memItems{r.tx.s}.FindByProductID(ctx, productID)
	if err == nil && r.tx.s.readGap > 0 {
		time.Sleep(r.tx.s.readGap)
	}
	return item, err
}

func (r memTxItems) FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]*inventory.InventoryItem, error) {
	out := make([]*inventory.InventoryItem, 0, len(productIDs))
	for _, id := range productIDs {
		if it, err := r.FindByProductID(ctx, id); err == nil {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r memTxItems) Save(_ context.Context, item *inventory.InventoryItem) error {
	r.tx.s.mu.Lock()
	err := r.tx.s.injected(OpItemSave)
	r.tx.s.mu.Unlock()
	if err != nil {
		return err
	}
	r.tx.stage(item)
	r.tx.items[item.ID] = *item
	r.tx.inserted[item.ID] = true
	return nil
}

func (r memTxItems) SaveWithLock(_ context.Context, item *inventory.InventoryItem) error {
	s := r.tx.s
	s.mu.Lock()
	err := s.injected(OpItemSaveWithLock)
	stored, committed := s.items[item.ID]
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if staged, ok := r.tx.items[item.ID]; ok {
		if staged.Version != item.Version {
			return shared.ErrConcurrencyConflict.WithDetail("product_id", item.ProductID.String())
		}
	} else {
		if !committed || stored.Version != item.Version {
			return shared.ErrConcurrencyConflict.WithDetail("product_id", item.ProductID.String())
		}
		r.tx.readVersion[item.ID] = item.Version
	}
	r.tx.stage(item)
	item.BumpVersion()
	r.tx.items[item.ID] = *item
	return nil
}

type memTxReservations struct{ tx *memTx }

// view merges committed reservations with the staged ones
func (r memTxReservations) view(keep func(inventory.StockReservation) bool) []*inventory.StockReservation {
	s := r.tx.s
	s.mu.Lock()
	merged := make(map[uuid.UUID]inventory.StockReservation, len(s.reservations)+len(r.tx.reservations))
	for id, res := range s.reservations {
		merged[id] = res
	}
	s.mu.Unlock()
	for id, res := range r.tx.reservations {
		merged[id] = res
	}

	var out []*inventory.StockReservation
	for _, res := range merged {
		if keep(res) {
			cp := res
			out = append(out, &cp)
		}
	}
	return out
}

func (r memTxReservations) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockReservation, error) {
	if res, ok := r.tx.reservations[id]; ok {
		return &res, nil
	}
	return memReservations{r.tx.s}.FindByID(ctx, id)
}

func (r memTxReservations) FindActiveByReference(_ context.Context, refType inventory.ReferenceType, refID string, productID *uuid.UUID) ([]*inventory.StockReservation, error) {
	out := r.view(func(res inventory.StockReservation) bool {
		return res.IsActive() && res.ReferenceType == refType && res.ReferenceID == refID &&
			(productID == nil || res.ProductID == *productID)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memTxReservations) FindExpired(_ context.Context, before time.Time, limit int) ([]*inventory.StockReservation, error) {
	out := r.view(func(res inventory.StockReservation) bool {
		return res.IsActive() && res.ExpiresAt.Before(before)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memTxReservations) SaveAll(_ context.Context, reservations ...*inventory.StockReservation) error {
	r.tx.s.mu.Lock()
	err := r.tx.s.injected(OpReservationSave)
	r.tx.s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, res := range reservations {
		r.tx.reservations[res.ID] = *res
	}
	return nil
}
