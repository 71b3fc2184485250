package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/pkg/apperror"
	"github.com/sangkips/caja-api/pkg/money"
	"go.uber.org/zap"
)

// CartStore owns the open cart of every register session. All mutations of
// one session run one at a time under that session's lock.
type CartStore struct {
	productRepo repository.ProductRepository
	ledger      *InventoryLedger
	idleTTL     time.Duration
	sweepEvery  time.Duration
	now         func() time.Time
	log         *zap.Logger

	mu      sync.Mutex
	entries map[string]*cartEntry
}

// cartEntry is one session's cart. closed is set when the entry is removed
// from the store; a goroutine that was waiting on mu must look up again.
type cartEntry struct {
	mu       sync.Mutex
	cart     entity.Cart
	lastSeen time.Time
	closed   bool
}

// CartStoreConfig holds the idle expiry settings of a CartStore
type CartStoreConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// NewCartStore creates a new cart store
func NewCartStore(
	productRepo repository.ProductRepository,
	ledger *InventoryLedger,
	cfg CartStoreConfig,
	log *zap.Logger,
) *CartStore {
	return &CartStore{
		productRepo: productRepo,
		ledger:      ledger,
		idleTTL:     cfg.IdleTTL,
		sweepEvery:  cfg.SweepInterval,
		now:         time.Now,
		log:         log,
		entries:     make(map[string]*cartEntry),
	}
}

// AddCatalogItemInput represents a request to add a catalog product
type AddCatalogItemInput struct {
	ProductID int64
	Tier      enum.PricingTier
	Quantity  int
	// ExpectedPrice is the unit price in cents the client showed, if any
	ExpectedPrice *int64
}

// AddManualItemInput represents a free-form line with no inventory linkage
type AddManualItemInput struct {
	Description string
	UnitPrice   int64 // cents
	Quantity    int
}

var errTotalOutOfRange = apperror.NewValidationError("Cart total would exceed the maximum amount",
	apperror.FieldError{Field: "cantidad", Message: "too large for the cart total"})

// fitsTotal reports whether quantity more units at unitPrice keep the cart
// total within money.MaxCents
func fitsTotal(cart entity.Cart, unitPrice int64, quantity int) bool {
	subtotal, ok := money.Multiply(unitPrice, quantity)
	return ok && cart.Total()+subtotal <= money.MaxCents
}

// acquire returns the session's entry locked, creating it if needed
func (s *CartStore) acquire(sessionID string) *cartEntry {
	for {
		s.mu.Lock()
		e, ok := s.entries[sessionID]
		if !ok {
			e = &cartEntry{cart: entity.Cart{SessionID: sessionID}, lastSeen: s.now()}
			s.entries[sessionID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.closed {
			return e
		}
		e.mu.Unlock()
	}
}

// lookup returns the session's entry locked, or nil when there is none
func (s *CartStore) lookup(sessionID string) *cartEntry {
	for {
		s.mu.Lock()
		e, ok := s.entries[sessionID]
		s.mu.Unlock()
		if !ok {
			return nil
		}

		e.mu.Lock()
		if !e.closed {
			return e
		}
		e.mu.Unlock()
	}
}

// destroy removes a locked entry from the store. Caller still unlocks it.
func (s *CartStore) destroy(e *cartEntry, sessionID string) {
	e.closed = true
	e.cart = entity.Cart{SessionID: sessionID}

	s.mu.Lock()
	if s.entries[sessionID] == e {
		delete(s.entries, sessionID)
	}
	s.mu.Unlock()
}

// finish records activity and unlocks. An entry left without lines is
// destroyed, so a failed first add never leaves a cart behind.
func (s *CartStore) finish(e *cartEntry, sessionID string) {
	if !e.closed {
		if e.cart.IsEmpty() {
			s.destroy(e, sessionID)
		} else {
			e.lastSeen = s.now()
		}
	}
	e.mu.Unlock()
}

// AddCatalogItem reserves stock and adds a catalog line. Re-adding the same
// product at the same tier grows the existing line and keeps its price.
func (s *CartStore) AddCatalogItem(ctx context.Context, sessionID string, input AddCatalogItemInput) (entity.Cart, error) {
	if input.Quantity < 1 {
		return entity.Cart{}, apperror.NewValidationError("Quantity must be at least 1",
			apperror.FieldError{Field: "cantidad", Message: "must be at least 1"})
	}
	if !input.Tier.IsValid() {
		return entity.Cart{}, apperror.NewValidationError("Unknown pricing tier",
			apperror.FieldError{Field: "tipo_precio", Message: "must be venta or revendedor"})
	}

	e := s.acquire(sessionID)
	defer s.finish(e, sessionID)

	product, err := s.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return entity.Cart{}, fmt.Errorf("failed to load product %d: %w", input.ProductID, err)
	}
	if product == nil || !product.Active {
		return entity.Cart{}, apperror.NewNotFoundError("Product")
	}

	price, err := ResolveUnitPrice(product, input.Tier)
	if err != nil {
		return entity.Cart{}, err
	}

	if input.ExpectedPrice != nil && *input.ExpectedPrice != price {
		return entity.Cart{}, &apperror.AppError{
			Code:      apperror.ErrPriceMismatch.Code,
			ErrorCode: apperror.CodePriceMismatch,
			Message: fmt.Sprintf("Price of %q is now %s, not %s",
				product.Name, money.FromCents(price).StringFixed(2), money.FromCents(*input.ExpectedPrice).StringFixed(2)),
			Errors: []apperror.FieldError{{Field: "precio", Message: "does not match the catalog price"}},
		}
	}

	if !fitsTotal(e.cart, price, input.Quantity) {
		return entity.Cart{}, errTotalOutOfRange
	}

	if err := s.ledger.Reserve(ctx, sessionID, product.ID, input.Quantity); err != nil {
		return entity.Cart{}, err
	}

	merged := false
	for i := range e.cart.Lines {
		line := &e.cart.Lines[i]
		if line.IsCatalog() && line.ProductID == product.ID && line.Tier == input.Tier {
			line.Quantity += input.Quantity
			merged = true
			break
		}
	}
	if !merged {
		e.cart.Lines = append(e.cart.Lines, entity.CartLine{
			Kind:        enum.LineKindCatalog,
			ProductID:   product.ID,
			Description: product.Name,
			Tier:        input.Tier,
			UnitPrice:   price,
			Quantity:    input.Quantity,
		})
	}

	return e.cart.Clone(), nil
}

// AddManualItem appends a free-form line
func (s *CartStore) AddManualItem(sessionID string, input AddManualItemInput) (entity.Cart, error) {
	description := strings.TrimSpace(input.Description)

	var fieldErrors []apperror.FieldError
	if description == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "nombre", Message: "is required"})
	}
	if input.UnitPrice <= 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "precio", Message: "must be greater than 0"})
	} else if input.UnitPrice > money.MaxCents {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "precio", Message: "exceeds the maximum amount"})
	}
	if input.Quantity < 1 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "cantidad", Message: "must be at least 1"})
	}
	if len(fieldErrors) > 0 {
		return entity.Cart{}, apperror.NewValidationError("Invalid manual item", fieldErrors...)
	}

	e := s.acquire(sessionID)
	defer s.finish(e, sessionID)

	if !fitsTotal(e.cart, input.UnitPrice, input.Quantity) {
		return entity.Cart{}, errTotalOutOfRange
	}

	e.cart.Lines = append(e.cart.Lines, entity.CartLine{
		Kind:        enum.LineKindManual,
		Description: description,
		UnitPrice:   input.UnitPrice,
		Quantity:    input.Quantity,
	})

	return e.cart.Clone(), nil
}

// RemoveLine drops the line at index, releasing its reservation
func (s *CartStore) RemoveLine(sessionID string, index int) (entity.Cart, error) {
	e := s.lookup(sessionID)
	if e == nil {
		return entity.Cart{}, apperror.NewNotFoundError("Cart line")
	}
	defer s.finish(e, sessionID)

	if index < 0 || index >= len(e.cart.Lines) {
		return entity.Cart{}, apperror.NewNotFoundError("Cart line")
	}

	line := e.cart.Lines[index]
	if line.IsCatalog() {
		s.ledger.Release(sessionID, line.ProductID, line.Quantity)
	}
	e.cart.Lines = append(e.cart.Lines[:index], e.cart.Lines[index+1:]...)

	return e.cart.Clone(), nil
}

// Clear releases every reservation of the session and empties its cart
func (s *CartStore) Clear(sessionID string) entity.Cart {
	e := s.lookup(sessionID)
	if e == nil {
		return entity.Cart{SessionID: sessionID}
	}
	defer e.mu.Unlock()

	s.releaseAll(e, sessionID)
	s.destroy(e, sessionID)
	return entity.Cart{SessionID: sessionID}
}

// Discard ends the session's cart, as on logout
func (s *CartStore) Discard(sessionID string) {
	s.Clear(sessionID)
}

func (s *CartStore) releaseAll(e *cartEntry, sessionID string) {
	for productID, qty := range e.cart.Reservations() {
		s.ledger.Release(sessionID, productID, qty)
	}
}

// Snapshot returns a copy of the session's cart; empty when there is none.
// Reading does not count as activity for idle expiry.
func (s *CartStore) Snapshot(sessionID string) entity.Cart {
	e := s.lookup(sessionID)
	if e == nil {
		return entity.Cart{SessionID: sessionID}
	}
	defer e.mu.Unlock()

	return e.cart.Clone()
}

// Len returns the number of open carts
func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor destroys carts idle longer than the configured TTL until ctx
// is done, releasing their reservations.
func (s *CartStore) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.SweepIdle(); n > 0 {
					s.log.Info("expired idle carts", zap.Int("count", n))
				}
			}
		}
	}()
}

// SweepIdle destroys every cart idle longer than the TTL and returns how
// many it removed
func (s *CartStore) SweepIdle() int {
	s.mu.Lock()
	candidates := make(map[string]*cartEntry, len(s.entries))
	for sessionID, e := range s.entries {
		candidates[sessionID] = e
	}
	s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	removed := 0
	for sessionID, e := range candidates {
		e.mu.Lock()
		if !e.closed && e.lastSeen.Before(cutoff) {
			s.releaseAll(e, sessionID)
			s.destroy(e, sessionID)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
