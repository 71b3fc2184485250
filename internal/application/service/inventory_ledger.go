package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/pkg/apperror"
	"go.uber.org/zap"
)

// maxReserveAttempts bounds how often Reserve re-reads stock when commits
// keep landing between its read and its increment.
const maxReserveAttempts = 3

// InventoryLedger tracks what open carts hold against authoritative stock.
// Stock lives in the products table; reservations live here, per product.
type InventoryLedger struct {
	productRepo repository.ProductRepository
	transactor  repository.Transactor
	log         *zap.Logger

	mu      sync.Mutex
	entries map[int64]*ledgerEntry
}

// ledgerEntry is the reservation table of one product. version changes
// whenever stock is decremented through Commit.
type ledgerEntry struct {
	mu       sync.Mutex
	version  uint64
	reserved map[string]int
	total    int
}

// NewInventoryLedger creates a new inventory ledger
func NewInventoryLedger(
	productRepo repository.ProductRepository,
	transactor repository.Transactor,
	log *zap.Logger,
) *InventoryLedger {
	return &InventoryLedger{
		productRepo: productRepo,
		transactor:  transactor,
		log:         log,
		entries:     make(map[int64]*ledgerEntry),
	}
}

// entry returns the reservation table for a product, creating it on first use.
// Entries are never removed.
func (l *InventoryLedger) entry(productID int64) *ledgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[productID]
	if !ok {
		e = &ledgerEntry{reserved: make(map[string]int)}
		l.entries[productID] = e
	}
	return e
}

func (l *InventoryLedger) lookup(productID int64) *ledgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[productID]
}

// Reserve holds qty units of a product for a session. The stock read happens
// without any lock held; the check-and-increment only applies if no commit
// changed the product's stock in between, otherwise stock is read again.
func (l *InventoryLedger) Reserve(ctx context.Context, sessionID string, productID int64, qty int) error {
	if qty < 1 {
		return apperror.NewValidationError("Quantity must be at least 1",
			apperror.FieldError{Field: "cantidad", Message: "must be at least 1"})
	}

	e := l.entry(productID)

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		e.mu.Lock()
		seen := e.version
		e.mu.Unlock()

		stocks, err := l.productRepo.GetStocks(ctx, []int64{productID})
		if err != nil {
			return fmt.Errorf("failed to read stock of product %d: %w", productID, err)
		}
		stock, ok := stocks[productID]
		if !ok {
			return apperror.NewNotFoundError("Product")
		}

		e.mu.Lock()
		if e.version != seen {
			e.mu.Unlock()
			continue
		}

		available := stock - e.total
		if available < qty {
			e.mu.Unlock()
			return apperror.NewInsufficientStockError(
				fmt.Sprintf("Insufficient stock: requested %d, available %d", qty, max(available, 0)))
		}

		e.reserved[sessionID] += qty
		e.total += qty
		e.mu.Unlock()

		l.log.Debug("stock reserved",
			zap.String("session_id", sessionID),
			zap.Int64("product_id", productID),
			zap.Int("quantity", qty),
			zap.Int("available", available-qty),
		)
		return nil
	}

	return apperror.NewStaleCartError("Stock is changing, please try again")
}

// Release gives back up to qty reserved units. Never fails; the reservation
// never drops below zero.
func (l *InventoryLedger) Release(sessionID string, productID int64, qty int) {
	e := l.lookup(productID)
	if e == nil || qty <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.consume(sessionID, qty)
}

// consume lowers a session's reservation by at most qty. Caller holds e.mu.
func (e *ledgerEntry) consume(sessionID string, qty int) {
	held := e.reserved[sessionID]
	n := min(held, qty)
	if n <= 0 {
		return
	}
	if held == n {
		delete(e.reserved, sessionID)
	} else {
		e.reserved[sessionID] = held - n
	}
	e.total -= n
}

// Reserved returns the units of a product held by all open carts
func (l *InventoryLedger) Reserved(productID int64) int {
	e := l.lookup(productID)
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// ReservedBy returns the units of a product held by one session
func (l *InventoryLedger) ReservedBy(sessionID string, productID int64) int {
	e := l.lookup(productID)
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reserved[sessionID]
}

// Available returns stock minus every open reservation, floored at zero
func (l *InventoryLedger) Available(ctx context.Context, productID int64) (int, error) {
	stocks, err := l.productRepo.GetStocks(ctx, []int64{productID})
	if err != nil {
		return 0, fmt.Errorf("failed to read stock of product %d: %w", productID, err)
	}
	stock, ok := stocks[productID]
	if !ok {
		return 0, apperror.NewNotFoundError("Product")
	}
	return max(stock-l.Reserved(productID), 0), nil
}

// ProductHold keeps a set of products locked for one checkout
type ProductHold struct {
	ledger   *InventoryLedger
	ids      []int64
	entries  map[int64]*ledgerEntry
	released bool
}

// Acquire locks the given products in ascending id order. Two checkouts
// touching overlapping products therefore never wait on each other in a cycle.
func (l *InventoryLedger) Acquire(productIDs []int64) *ProductHold {
	ids := slices.Clone(productIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	h := &ProductHold{
		ledger:  l,
		ids:     ids,
		entries: make(map[int64]*ledgerEntry, len(ids)),
	}
	for _, id := range ids {
		e := l.entry(id)
		e.mu.Lock()
		h.entries[id] = e
	}
	return h
}

// Release unlocks every held product. Safe to call more than once.
func (h *ProductHold) Release() {
	if h.released {
		return
	}
	h.released = true

	for i := len(h.ids) - 1; i >= 0; i-- {
		h.entries[h.ids[i]].mu.Unlock()
	}
}

func (h *ProductHold) check(quantities map[int64]int) error {
	if h.released {
		return fmt.Errorf("product hold already released")
	}
	for id := range quantities {
		if _, ok := h.entries[id]; !ok {
			return fmt.Errorf("product %d is not part of the hold", id)
		}
	}
	return nil
}

// Verify re-reads stock and returns the products whose stock, after what
// other sessions hold, no longer covers the session's quantity.
func (h *ProductHold) Verify(ctx context.Context, sessionID string, quantities map[int64]int) ([]int64, error) {
	if err := h.check(quantities); err != nil {
		return nil, err
	}
	if len(quantities) == 0 {
		return nil, nil
	}

	stocks, err := h.ledger.productRepo.GetStocks(ctx, h.ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}

	var stale []int64
	for _, id := range h.ids {
		qty, ok := quantities[id]
		if !ok {
			continue
		}
		e := h.entries[id]
		stock, exists := stocks[id]
		others := e.total - e.reserved[sessionID]
		if !exists || stock-others < qty {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

// Commit decrements stock for every product and runs record in the same
// storage transaction. When the transaction commits, the session's
// reservations for those products are consumed. A product whose conditional
// decrement fails aborts everything with StaleCartState.
func (h *ProductHold) Commit(
	ctx context.Context,
	sessionID string,
	quantities map[int64]int,
	record func(ctx context.Context) error,
) error {
	if err := h.check(quantities); err != nil {
		return err
	}

	err := h.ledger.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		failedIDs, err := h.ledger.productRepo.AtomicDecrementBatch(txCtx, quantities)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		if len(failedIDs) > 0 {
			h.ledger.log.Warn("stock decrement rejected at commit",
				zap.String("session_id", sessionID),
				zap.Int64s("product_ids", failedIDs),
			)
			return apperror.NewStaleCartError(
				fmt.Sprintf("Stock changed for products %v", failedIDs))
		}
		return record(txCtx)
	})
	if err != nil {
		return err
	}

	for id, qty := range quantities {
		e := h.entries[id]
		e.consume(sessionID, qty)
		e.version++
	}
	return nil
}
