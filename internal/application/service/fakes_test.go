package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/internal/domain/repository"
	"go.uber.org/zap"
)

// memStore backs the product and sale fakes. Transactions are serialized
// and roll back both tables on error.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	products map[int64]entity.Product
	sales    []entity.Sale

	stockErr  error
	appendErr error
	// stockReads counts GetStocks calls
	stockReads int
	// onStockRead runs after each GetStocks, outside the store lock
	onStockRead func()
}

func newMemStore(products ...entity.Product) *memStore {
	s := &memStore{products: make(map[int64]entity.Product)}
	for _, p := range products {
		if p.RetailPrice == 0 && p.ResellerPrice == 0 {
			p.RetailPrice = 10000
			p.ResellerPrice = 8000
		}
		p.Active = true
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

// setStock simulates a correction made outside this service
func (s *memStore) setStock(id int64, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Stock = stock
	s.products[id] = p
}

func (s *memStore) setPrice(id int64, retail int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.RetailPrice = retail
	s.products[id] = p
}

func (s *memStore) saleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	products := make(map[int64]entity.Product, len(s.products))
	for id, p := range s.products {
		products[id] = p
	}
	sales := slices.Clone(s.sales)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.products = products
		s.sales = sales
		s.mu.Unlock()
		return err
	}
	return nil
}

type fakeProductRepo struct{ *memStore }

func (r fakeProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r fakeProductRepo) GetStocks(ctx context.Context, ids []int64) (map[int64]int, error) {
	r.mu.Lock()
	r.stockReads++
	if r.stockErr != nil {
		err := r.stockErr
		r.mu.Unlock()
		return nil, err
	}
	out := make(map[int64]int, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p.Stock
		}
	}
	hook := r.onStockRead
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (r fakeProductRepo) Search(ctx context.Context, params *repository.ProductFilterParams) ([]entity.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Product
	for _, p := range r.products {
		if !p.Active && !params.IncludeInactive {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(params.Search)) &&
			!strings.Contains(strings.ToLower(p.Code), strings.ToLower(params.Search)) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b entity.Product) int { return int(a.ID - b.ID) })

	params.Pagination.Validate()
	total := int64(len(out))
	start := min(params.Pagination.Offset(), len(out))
	end := min(start+params.Pagination.PerPage, len(out))
	return out[start:end], total, nil
}

func (r fakeProductRepo) AtomicDecrementBatch(ctx context.Context, decrements map[int64]int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []int64
	for id, qty := range decrements {
		if p, ok := r.products[id]; !ok || p.Stock < qty {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		slices.Sort(failed)
		return failed, nil
	}
	for id, qty := range decrements {
		p := r.products[id]
		p.Stock -= qty
		r.products[id] = p
	}
	return nil, nil
}

type fakeSaleRepo struct{ *memStore }

func (r fakeSaleRepo) Append(ctx context.Context, sale *entity.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.sales = append(r.sales, *sale)
	return nil
}

func (r fakeSaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}

func (r fakeSaleRepo) List(ctx context.Context, params *repository.SaleFilterParams) ([]entity.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Sale
	for _, s := range r.sales {
		if params.PaymentMethod != nil && s.PaymentMethod != *params.PaymentMethod {
			continue
		}
		if params.StartDate != nil && s.SoldAt.Before(*params.StartDate) {
			continue
		}
		if params.EndDate != nil && !s.SoldAt.Before(*params.EndDate) {
			continue
		}
		if params.CustomerRef != "" && s.CustomerRef != params.CustomerRef {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[strings.ToLower(user.Email)] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[strings.ToLower(email)], nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	sales []uuid.UUID
	err   error
}

func (p *recordingPublisher) PublishSaleRecorded(ctx context.Context, sale *entity.Sale) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sales = append(p.sales, sale.ID)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sales)
}

var errStorageDown = errors.New("connection refused")

// engine wires the cart and checkout services over one memStore
type engine struct {
	store     *memStore
	ledger    *InventoryLedger
	carts     *CartStore
	checkout  *CheckoutService
	publisher *recordingPublisher
	clock     time.Time
}

func newEngine(products ...entity.Product) *engine {
	store := newMemStore(products...)
	log := zap.NewNop()

	en := &engine{store: store, publisher: &recordingPublisher{}, clock: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	en.ledger = NewInventoryLedger(fakeProductRepo{store}, store, log)
	en.carts = NewCartStore(fakeProductRepo{store}, en.ledger, CartStoreConfig{
		IdleTTL:       30 * time.Minute,
		SweepInterval: time.Minute,
	}, log)
	en.carts.now = func() time.Time { return en.clock }
	en.checkout = NewCheckoutService(en.carts, en.ledger, fakeSaleRepo{store}, en.publisher, CheckoutConfig{
		PaymentMethods: enum.DefaultPaymentMethods,
		StorageTimeout: time.Second,
	}, log)
	en.checkout.now = func() time.Time { return en.clock }
	return en
}

func (en *engine) addCatalog(session string, productID int64, qty int) (entity.Cart, error) {
	return en.carts.AddCatalogItem(context.Background(), session, AddCatalogItemInput{
		ProductID: productID,
		Tier:      enum.PricingTierRetail,
		Quantity:  qty,
	})
}

func (en *engine) available(productID int64) int {
	n, err := en.ledger.Available(context.Background(), productID)
	if err != nil {
		panic(err)
	}
	return n
}

func (en *engine) checkoutSession(session string) (*entity.Sale, error) {
	return en.checkout.Checkout(context.Background(), CheckoutInput{
		SessionID:     session,
		UserID:        uuid.New(),
		PaymentMethod: "efectivo",
		CustomerRef:   "30111222",
	})
}

func product(id int64, name string, stock int) entity.Product {
	return entity.Product{ID: id, Name: name, Code: name, Stock: stock}
}
