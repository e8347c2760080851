package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps the catalog in process. It backs local development
// and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	products []Product
	now      func() time.Time
}

// NewMemoryRepository copies seed into a new repository.
func NewMemoryRepository(seed []Product) *MemoryRepository {
	products := make([]Product, len(seed))
	copy(products, seed)
	return &MemoryRepository{products: products, now: time.Now}
}

func (r *MemoryRepository) List(context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, len(r.products))
	copy(out, r.products)
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.products[i], nil
	}
	return Product{}, ErrNotFound
}

func (r *MemoryRepository) Create(_ context.Context, product Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Position == 0 {
		product.Position = len(r.products) + 1
		if n := len(r.products); n > 0 && r.products[n-1].Position >= product.Position {
			product.Position = r.products[n-1].Position + 1
		}
	}
	now := r.now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products = append(r.products, product)
	return product, nil
}

func (r *MemoryRepository) Update(_ context.Context, product Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(product.ID)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	product.CreatedAt = r.products[i].CreatedAt
	product.UpdatedAt = r.now().UTC()
	r.products[i] = product
	return product, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.products = append(r.products[:i:i], r.products[i+1:]...)
	return nil
}

func (r *MemoryRepository) indexOf(id uuid.UUID) int {
	for i, p := range r.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
