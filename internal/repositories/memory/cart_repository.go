package memory

import (
	"context"
	"sync"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

// CartRepository keeps carts in process memory. Carts are lost on restart.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]domain.Cart)}
}

func (r *CartRepository) Load(_ context.Context, cartID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[cartID]
	if !ok {
		return domain.Cart{}, repositories.NotFound("memory.cart.load")
	}
	return cloneCart(cart), nil
}

func (r *CartRepository) Save(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	r.carts[cart.ID] = cloneCart(cart)
	r.mu.Unlock()
	return nil
}

func (r *CartRepository) Delete(_ context.Context, cartID string) error {
	r.mu.Lock()
	delete(r.carts, cartID)
	r.mu.Unlock()
	return nil
}

func cloneCart(cart domain.Cart) domain.Cart {
	out := cart
	out.Lines = make([]domain.CartLine, len(cart.Lines))
	for i, line := range cart.Lines {
		line.Options = line.Options.Canonical()
		out.Lines[i] = line
	}
	return out
}
