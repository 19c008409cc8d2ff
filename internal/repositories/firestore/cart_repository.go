package firestore

import (
	"context"
	"errors"
	"time"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	pfirestore "github.com/ViviPassos/SiteNikoTrudel/internal/platform/firestore"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

const defaultCartCollection = "carrinhos"

type cartDocument struct {
	Lines     []repositories.CartLineRecord `firestore:"lines"`
	ItemCount int                           `firestore:"itemCount"`
	UpdatedAt time.Time                     `firestore:"updatedAt"`
}

// CartRepository stores one document per cart session.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider, collection string) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	if collection == "" {
		collection = defaultCartCollection
	}
	return &CartRepository{base: pfirestore.NewBaseRepository[cartDocument](provider, collection, nil)}, nil
}

func (r *CartRepository) Load(ctx context.Context, cartID string) (domain.Cart, error) {
	doc, err := r.base.Get(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart := repositories.CartFromRecords(cartID, doc.Data.Lines)
	cart.UpdatedAt = doc.Data.UpdatedAt
	return cart, nil
}

func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	updatedAt := cart.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := r.base.Set(ctx, cart.ID, cartDocument{
		Lines:     repositories.CartRecords(cart),
		ItemCount: cart.ItemCount(),
		UpdatedAt: updatedAt.UTC(),
	})
	return err
}

func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	return r.base.Delete(ctx, cartID)
}
