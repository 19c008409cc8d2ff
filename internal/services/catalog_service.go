package services

import (
	"context"
	"errors"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

const (
	defaultWatchRetryMin = time.Second
	defaultWatchRetryMax = 30 * time.Second
)

var errCatalogSourceRequired = errors.New("catalog service: source is required")

// CatalogServiceDeps wires the catalog source.
type CatalogServiceDeps struct {
	Source   repositories.CatalogSource
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
	RetryMin time.Duration
	RetryMax time.Duration
}

type catalogService struct {
	source   repositories.CatalogSource
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
	policy   *bluemonday.Policy
	retryMin time.Duration
	retryMax time.Duration

	mu          sync.RWMutex
	snapshot    CatalogSnapshot
	index       map[string]int
	subscribers map[int]func(CatalogSnapshot)
	nextSubID   int
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the service holding the live catalog.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Source == nil {
		return nil, errCatalogSourceRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	retryMin := deps.RetryMin
	if retryMin <= 0 {
		retryMin = defaultWatchRetryMin
	}
	retryMax := deps.RetryMax
	if retryMax < retryMin {
		retryMax = defaultWatchRetryMax
		if retryMax < retryMin {
			retryMax = retryMin
		}
	}
	return &catalogService{
		source:      deps.Source,
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
		policy:      bluemonday.StrictPolicy(),
		retryMin:    retryMin,
		retryMax:    retryMax,
		index:       map[string]int{},
		subscribers: map[int]func(CatalogSnapshot){},
	}, nil
}

// Run watches both collections until ctx is done. Source failures are logged and
// the watch restarted with backoff; the last snapshot keeps being served meanwhile.
func (s *catalogService) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.watch(gctx, "categories", func(ctx context.Context) error {
			return s.source.WatchCategories(ctx, s.replaceCategories)
		})
	})
	group.Go(func() error {
		return s.watch(gctx, "products", func(ctx context.Context) error {
			return s.source.WatchProducts(ctx, s.replaceProducts)
		})
	})
	err := group.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (s *catalogService) watch(ctx context.Context, collection string, run func(context.Context) error) error {
	delay := s.retryMin
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fields := map[string]any{"collection": collection, "retryIn": delay.String()}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.logger(ctx, "catalog.watch_interrupted", fields)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > s.retryMax {
			delay = s.retryMax
		}
	}
}

func (s *catalogService) replaceCategories(categories []domain.Category) {
	cleaned := make([]domain.Category, len(categories))
	for i, category := range categories {
		category.Name = s.sanitize(category.Name)
		cleaned[i] = category
	}

	s.mu.Lock()
	next := s.snapshot
	next.Categories = cleaned
	next.CategoriesLoaded = true
	s.publishLocked(next)
}

func (s *catalogService) replaceProducts(products []domain.Product) {
	cleaned := make([]domain.Product, len(products))
	index := make(map[string]int, len(products))
	for i, product := range products {
		product.Name = s.sanitize(product.Name)
		product.Description = s.sanitize(product.Description)
		product.Category = s.sanitize(product.Category)
		product.Subcategory = s.sanitize(product.Subcategory)
		if len(product.Groups) > 0 {
			groups := make([]domain.OptionGroup, len(product.Groups))
			for g, group := range product.Groups {
				group.Title = s.sanitize(group.Title)
				options := make([]domain.Option, len(group.Options))
				for o, option := range group.Options {
					option.Name = s.sanitize(option.Name)
					options[o] = option
				}
				group.Options = options
				groups[g] = group
			}
			product.Groups = groups
		}
		cleaned[i] = product
		index[product.ID] = i
	}

	s.mu.Lock()
	next := s.snapshot
	next.Products = cleaned
	next.ProductsLoaded = true
	s.index = index
	s.publishLocked(next)
}

// publishLocked must be called with s.mu held; it releases the lock before
// notifying subscribers.
func (s *catalogService) publishLocked(next CatalogSnapshot) {
	next.Version = s.snapshot.Version + 1
	next.UpdatedAt = s.now()
	s.snapshot = next

	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subscribers := make([]func(CatalogSnapshot), 0, len(ids))
	for _, id := range ids {
		subscribers = append(subscribers, s.subscribers[id])
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(next)
	}
}

// maxSanitizePasses bounds how many layers of entity encoding are peeled off.
const maxSanitizePasses = 4

// sanitize returns plain text: tags are stripped and entities decoded until the
// value is stable, so encoded markup cannot be decoded back into live HTML.
func (s *catalogService) sanitize(value string) string {
	value = strings.TrimSpace(value)
	for i := 0; i < maxSanitizePasses; i++ {
		if value == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
		if next == value {
			return next
		}
		value = next
	}
	return strings.TrimSpace(s.policy.Sanitize(value))
}

func (s *catalogService) Snapshot() CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *catalogService) Product(productID string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[strings.TrimSpace(productID)]
	if !ok {
		return domain.Product{}, false
	}
	return s.snapshot.Products[i], true
}

// ActiveCategories returns active categories ordered by sort order, then id.
func (s *catalogService) ActiveCategories() []domain.Category {
	return activeCategories(s.Snapshot().Categories)
}

func (s *catalogService) Subscribe(fn func(CatalogSnapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func activeCategories(categories []domain.Category) []domain.Category {
	active := make([]domain.Category, 0, len(categories))
	for _, category := range categories {
		if category.Active {
			active = append(active, category)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].SortOrder != active[j].SortOrder {
			return active[i].SortOrder < active[j].SortOrder
		}
		return active[i].ID < active[j].ID
	})
	return active
}
