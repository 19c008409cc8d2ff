package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartCatalogRequired    = errors.New("cart service: catalog is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the requested cart does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartLineNotFound indicates the line index is outside the cart.
var ErrCartLineNotFound = errors.New("cart service: line not found")

// ErrCartUnavailable indicates the cart store cannot serve the request.
var ErrCartUnavailable = errors.New("cart service: unavailable")

const maxLineQuantity = domain.MaxLineQuantity

// CartServiceDeps wires the cart store, the catalog used for pricing and observers.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Catalog    productLookup
	Clock      func() time.Time
	Observers  []ItemCountObserver
	Logger     func(context.Context, string, map[string]any)
}

type cartService struct {
	repo      repositories.CartRepository
	catalog   productLookup
	now       func() time.Time
	observers []ItemCountObserver
	logger    func(context.Context, string, map[string]any)
	locks     *keyedMutex
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	observers := make([]ItemCountObserver, 0, len(deps.Observers))
	for _, observer := range deps.Observers {
		if observer != nil {
			observers = append(observers, observer)
		}
	}
	return &cartService{
		repo:      deps.Repository,
		catalog:   deps.Catalog,
		now:       func() time.Time { return clock().UTC() },
		observers: observers,
		logger:    logger,
		locks:     newKeyedMutex(),
	}, nil
}

// Get returns the cart, or an empty cart when none was saved under the id.
func (s *cartService) Get(ctx context.Context, cartID string) (CartView, error) {
	id, err := normalizeCartID(cartID)
	if err != nil {
		return CartView{}, err
	}
	cart, err := s.load(ctx, id, true)
	if err != nil {
		return CartView{}, err
	}
	return s.view(cart), nil
}

// Add merges into an identical line or appends a new one. Customizable products
// must carry a valid selection.
func (s *cartService) Add(ctx context.Context, cmd AddCartItemCommand) (CartView, error) {
	id, err := normalizeCartID(cmd.CartID)
	if err != nil {
		return CartView{}, err
	}
	quantity := cmd.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > maxLineQuantity {
		return CartView{}, ErrCartInvalidInput
	}
	product, err := activeProduct(s.catalog, cmd.ProductID)
	if err != nil {
		return CartView{}, err
	}
	options := cmd.Options.Canonical()
	if result := ValidateCustomization(product, options); !result.Valid {
		return CartView{}, &CustomizationError{ProductID: product.ID, Result: result}
	}

	return s.mutate(ctx, id, true, func(cart *domain.Cart) error {
		line := domain.CartLine{ProductID: product.ID, Quantity: quantity, Options: options}
		for i := range cart.Lines {
			if cart.Lines[i].SameLine(line) {
				if cart.Lines[i].Quantity+quantity > maxLineQuantity {
					return ErrCartInvalidInput
				}
				cart.Lines[i].Quantity += quantity
				return nil
			}
		}
		cart.Lines = append(cart.Lines, line)
		return nil
	})
}

// ChangeQuantity adds delta to the line; a result of zero or less removes the line.
func (s *cartService) ChangeQuantity(ctx context.Context, cmd ChangeQuantityCommand) (CartView, error) {
	id, err := normalizeCartID(cmd.CartID)
	if err != nil {
		return CartView{}, err
	}
	if cmd.Delta == 0 {
		return CartView{}, ErrCartInvalidInput
	}
	return s.mutate(ctx, id, false, func(cart *domain.Cart) error {
		if cmd.Index < 0 || cmd.Index >= len(cart.Lines) {
			return ErrCartLineNotFound
		}
		next := cart.Lines[cmd.Index].Quantity + cmd.Delta
		if next <= 0 {
			cart.Lines = removeLine(cart.Lines, cmd.Index)
			return nil
		}
		if next > maxLineQuantity {
			return ErrCartInvalidInput
		}
		cart.Lines[cmd.Index].Quantity = next
		return nil
	})
}

func (s *cartService) Remove(ctx context.Context, cartID string, index int) (CartView, error) {
	id, err := normalizeCartID(cartID)
	if err != nil {
		return CartView{}, err
	}
	return s.mutate(ctx, id, false, func(cart *domain.Cart) error {
		if index < 0 || index >= len(cart.Lines) {
			return ErrCartLineNotFound
		}
		cart.Lines = removeLine(cart.Lines, index)
		return nil
	})
}

// Clear empties the cart and drops it from the store.
func (s *cartService) Clear(ctx context.Context, cartID string) (CartView, error) {
	id, err := normalizeCartID(cartID)
	if err != nil {
		return CartView{}, err
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return CartView{}, s.translateRepoError(ctx, "cart.delete_failed", id, err)
	}
	cart := domain.Cart{ID: id, UpdatedAt: s.now()}
	s.notify(ctx, cart)
	return s.view(cart), nil
}

// Total prices every resolvable line; stale lines are skipped.
func (s *cartService) Total(ctx context.Context, cartID string) (domain.Money, error) {
	view, err := s.Get(ctx, cartID)
	if err != nil {
		return 0, err
	}
	return view.Total, nil
}

func (s *cartService) mutate(ctx context.Context, cartID string, createMissing bool, apply func(*domain.Cart) error) (CartView, error) {
	unlock := s.locks.Lock(cartID)
	defer unlock()

	cart, err := s.load(ctx, cartID, createMissing)
	if err != nil {
		return CartView{}, err
	}
	if err := apply(&cart); err != nil {
		return CartView{}, err
	}
	cart.UpdatedAt = s.now()

	if len(cart.Lines) == 0 {
		err = s.repo.Delete(ctx, cartID)
	} else {
		err = s.repo.Save(ctx, cart)
	}
	if err != nil {
		return CartView{}, s.translateRepoError(ctx, "cart.save_failed", cartID, err)
	}
	s.notify(ctx, cart)
	return s.view(cart), nil
}

func (s *cartService) load(ctx context.Context, cartID string, createMissing bool) (domain.Cart, error) {
	cart, err := s.repo.Load(ctx, cartID)
	if err != nil {
		if repositories.IsNotFound(err) {
			if createMissing {
				return domain.Cart{ID: cartID}, nil
			}
			return domain.Cart{}, ErrCartNotFound
		}
		return domain.Cart{}, s.translateRepoError(ctx, "cart.load_failed", cartID, err)
	}
	cart.ID = cartID
	return cart, nil
}

func (s *cartService) notify(ctx context.Context, cart domain.Cart) {
	count := cart.ItemCount()
	for _, observer := range s.observers {
		observer(ctx, cart.ID, count)
	}
}

func (s *cartService) translateRepoError(ctx context.Context, event, cartID string, err error) error {
	s.logger(ctx, event, map[string]any{"cartID": cartID, "error": err.Error()})
	return ErrCartUnavailable
}

// view prices the cart against the current catalog.
func (s *cartService) view(cart domain.Cart) CartView {
	view := CartView{ID: cart.ID, UpdatedAt: cart.UpdatedAt, Lines: make([]CartLineView, 0, len(cart.Lines))}
	for i, line := range cart.Lines {
		lineView := CartLineView{
			Index:     i,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Options:   line.Options.Canonical(),
		}
		view.ItemCount += line.Quantity

		product, ok := s.catalog.Product(line.ProductID)
		if ok && product.Active {
			lineView.Available = true
			lineView.Name = product.Name
			lineView.OptionNames = optionNames(product, lineView.Options)
			lineView.UnitPrice = PriceSelection(product, lineView.Options)
			lineView.Subtotal = lineView.UnitPrice.Times(line.Quantity)
			view.Total += lineView.Subtotal
		}
		view.Lines = append(view.Lines, lineView)
	}
	return view
}

// optionNames lists the names of the selected options that still exist, in
// group order then option order.
func optionNames(product domain.Product, selected domain.SelectedOptions) []string {
	var names []string
	for _, group := range product.Groups {
		keys := selected[group.Key]
		if len(keys) == 0 {
			continue
		}
		for _, option := range group.Options {
			if selected.Has(group.Key, option.Key) {
				names = append(names, option.Name)
			}
		}
	}
	return names
}

func removeLine(lines []domain.CartLine, index int) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines)-1)
	out = append(out, lines[:index]...)
	return append(out, lines[index+1:]...)
}

func normalizeCartID(cartID string) (string, error) {
	id := strings.TrimSpace(cartID)
	if id == "" || len(id) > 128 || strings.ContainsAny(id, "/:") {
		return "", ErrCartInvalidInput
	}
	return id, nil
}

// keyedMutex serialises work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedLock{}}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// LogItemCountObserver logs the item count after every cart mutation.
func LogItemCountObserver(logger func(context.Context, string, map[string]any)) ItemCountObserver {
	if logger == nil {
		return nil
	}
	return func(ctx context.Context, cartID string, itemCount int) {
		logger(ctx, "cart.item_count", map[string]any{"cartID": cartID, "itemCount": itemCount})
	}
}

// NewItemCountHistogramObserver records item counts on an OpenTelemetry histogram.
func NewItemCountHistogramObserver(meter metric.Meter) (ItemCountObserver, error) {
	if meter == nil {
		return nil, errors.New("cart service: meter is required")
	}
	histogram, err := meter.Int64Histogram(
		"cart.item_count",
		metric.WithDescription("Items in the cart after a mutation"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, _ string, itemCount int) {
		histogram.Record(ctx, int64(itemCount), metric.WithAttributes(attribute.Bool("cart.empty", itemCount == 0)))
	}, nil
}
