package routes

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/repository"
)

// store is a single-lock in-memory backend for every repository the router
// needs. Transactions run inline.
type store struct {
	mu       sync.Mutex
	products map[int64]entity.Product
	sales    []entity.Sale
	users    map[string]*entity.User
	keys     map[string]*entity.IdempotencyKey

	productErr error
}

func newStore() *store {
	return &store{
		products: make(map[int64]entity.Product),
		users:    make(map[string]*entity.User),
		keys:     make(map[string]*entity.IdempotencyKey),
	}
}

func (s *store) addProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Active = true
	s.products[p.ID] = p
}

func (s *store) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *store) saleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

func (s *store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type productRepo struct{ *store }

func (r productRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.productErr != nil {
		return nil, r.productErr
	}
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r productRepo) GetStocks(ctx context.Context, ids []int64) (map[int64]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]int, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p.Stock
		}
	}
	return out, nil
}

func (r productRepo) Search(ctx context.Context, params *repository.ProductFilterParams) ([]entity.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Product
	for _, p := range r.products {
		if params.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(params.Search)) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b entity.Product) int { return int(a.ID - b.ID) })
	return out, int64(len(out)), nil
}

func (r productRepo) AtomicDecrementBatch(ctx context.Context, decrements map[int64]int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var failed []int64
	for id, qty := range decrements {
		if r.products[id].Stock < qty {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}
	for id, qty := range decrements {
		p := r.products[id]
		p.Stock -= qty
		r.products[id] = p
	}
	return nil, nil
}

type saleRepo struct{ *store }

func (r saleRepo) Append(ctx context.Context, sale *entity.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, *sale)
	return nil
}

func (r saleRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}

func (r saleRepo) List(ctx context.Context, params *repository.SaleFilterParams) ([]entity.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Sale
	for _, s := range r.sales {
		if params.PaymentMethod != nil && s.PaymentMethod != *params.PaymentMethod {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

type userRepo struct{ *store }

func (r userRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[strings.ToLower(user.Email)] = user
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[strings.ToLower(email)], nil
}

type idempotencyRepo struct{ *store }

func (r idempotencyRepo) GetByKey(ctx context.Context, key, sessionID string) (*entity.IdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[sessionID+"/"+key], nil
}

func (r idempotencyRepo) Create(ctx context.Context, ikey *entity.IdempotencyKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	scope := ikey.SessionID + "/" + ikey.Key
	if _, exists := r.keys[scope]; !exists {
		r.keys[scope] = ikey
	}
	return nil
}

func (r idempotencyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for scope, k := range r.keys {
		if k.IsExpired(now) {
			delete(r.keys, scope)
			n++
		}
	}
	return n, nil
}
