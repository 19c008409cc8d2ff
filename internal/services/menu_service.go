package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	pstorage "github.com/ViviPassos/SiteNikoTrudel/internal/platform/storage"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/textutil"
)

// ErrAssetNotFound indicates an image path that cannot be resolved.
var ErrAssetNotFound = pstorage.ErrAssetNotFound

const (
	defaultPlaceholderURL   = "assets/img/placeholder.jpg"
	defaultImageConcurrency = 8

	actionLabelAdd       = "Adicionar"
	actionLabelCustomize = "Personalizar"
)

var errMenuCatalogRequired = errors.New("menu service: catalog is required")

type catalogReader interface {
	Snapshot() CatalogSnapshot
	Product(productID string) (domain.Product, bool)
}

// MenuServiceDeps wires the catalog and asset resolution.
type MenuServiceDeps struct {
	Catalog          catalogReader
	Assets           AssetResolver
	PlaceholderURL   string
	ImageConcurrency int
	Layout           LayoutOptions
	Currency         string
	Locale           language.Tag
	Logger           func(context.Context, string, map[string]any)
}

type menuService struct {
	catalog     catalogReader
	assets      AssetResolver
	placeholder string
	concurrency int
	layout      LayoutOptions
	currency    string
	locale      language.Tag
	logger      func(context.Context, string, map[string]any)
}

var _ MenuService = (*menuService)(nil)

// NewMenuService constructs the menu renderer. A nil asset resolver renders every
// image as the placeholder.
func NewMenuService(deps MenuServiceDeps) (MenuService, error) {
	if deps.Catalog == nil {
		return nil, errMenuCatalogRequired
	}
	placeholder := strings.TrimSpace(deps.PlaceholderURL)
	if placeholder == "" {
		placeholder = defaultPlaceholderURL
	}
	concurrency := deps.ImageConcurrency
	if concurrency <= 0 {
		concurrency = defaultImageConcurrency
	}
	layout := deps.Layout
	if layout.LabelOverrides == nil {
		layout.LabelOverrides = textutil.DefaultLabelOverrides()
	}
	if layout.DerivedLabel == "" {
		layout.DerivedLabel = DerivedLabelFull
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "BRL"
	}
	locale := deps.Locale
	if locale == language.Und {
		locale = textutil.Locale
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &menuService{
		catalog:     deps.Catalog,
		assets:      deps.Assets,
		placeholder: placeholder,
		concurrency: concurrency,
		layout:      layout,
		currency:    currency,
		locale:      locale,
		logger:      logger,
	}, nil
}

func (s *menuService) Categories(ctx context.Context) ([]CategoryView, error) {
	active := activeCategories(s.catalog.Snapshot().Categories)
	views := make([]CategoryView, 0, len(active))
	for _, category := range active {
		raw := category.Name
		if raw == "" {
			raw = category.ID
		}
		views = append(views, CategoryView{
			ID:        category.ID,
			Name:      category.Name,
			Label:     textutil.DisplayLabel(raw, s.layout.LabelOverrides),
			SortOrder: category.SortOrder,
		})
	}
	return views, nil
}

// Render lays out the whole menu when categoryID is empty, otherwise the subsections
// of that category. Unknown category ids are matched against product categories
// directly, so a page for them is simply empty when nothing matches.
func (s *menuService) Render(ctx context.Context, categoryID string) (MenuPage, error) {
	snapshot := s.catalog.Snapshot()
	categoryID = strings.TrimSpace(categoryID)

	var sections []ProductSection
	if categoryID == "" {
		sections = LayoutAll(snapshot.Categories, snapshot.Products, s.layout)
	} else {
		sections = LayoutCategory(findCategory(snapshot.Categories, categoryID), snapshot.Products, s.layout)
	}

	page := MenuPage{CategoryID: categoryID, Version: snapshot.Version, Empty: len(sections) == 0}
	if page.Empty {
		return page, nil
	}

	var products []domain.Product
	for _, section := range sections {
		products = append(products, section.Products...)
	}
	images := s.resolveImages(ctx, products)

	page.Sections = make([]MenuSection, 0, len(sections))
	for _, section := range sections {
		rendered := MenuSection{
			Key:          section.Key,
			Label:        section.Label,
			BuildYourOwn: section.BuildYourOwn,
			Products:     make([]ProductCard, 0, len(section.Products)),
		}
		for _, product := range section.Products {
			rendered.Products = append(rendered.Products, s.card(product, images[product.ImagePath]))
		}
		page.Sections = append(page.Sections, rendered)
	}
	return page, nil
}

func (s *menuService) ProductDetail(ctx context.Context, productID string) (ProductDetail, error) {
	product, err := activeProduct(s.catalog, productID)
	if err != nil {
		return ProductDetail{}, err
	}
	images := s.resolveImages(ctx, []domain.Product{product})
	detail := ProductDetail{Card: s.card(product, images[product.ImagePath])}
	for _, group := range product.Groups {
		lower, upper := group.Bounds()
		view := GroupView{
			Key:      group.Key,
			Title:    group.Title,
			Mode:     group.Mode,
			Required: group.Required,
			Min:      lower,
			Max:      upper,
		}
		for _, option := range group.Options {
			view.Options = append(view.Options, OptionView{
				Key:        option.Key,
				Name:       option.Name,
				Price:      option.Price,
				PriceLabel: s.formatPrice(option.Price),
			})
		}
		detail.Groups = append(detail.Groups, view)
	}
	return detail, nil
}

func (s *menuService) card(product domain.Product, image string) ProductCard {
	if image == "" {
		image = s.placeholder
	}
	customizable := product.Kind == domain.ProductKindCustomizable
	action := actionLabelAdd
	if customizable {
		action = actionLabelCustomize
	}
	return ProductCard{
		ID:           product.ID,
		Name:         product.Name,
		Description:  product.Description,
		Price:        product.Price,
		PriceLabel:   s.formatPrice(product.Price),
		ImageURL:     image,
		Featured:     product.Featured,
		Customizable: customizable,
		ActionLabel:  action,
	}
}

func (s *menuService) formatPrice(amount domain.Money) string {
	return textutil.FormatCurrency(int64(amount), s.currency, s.locale)
}

// resolveImages resolves each distinct image path with bounded concurrency.
// Failures degrade to the placeholder and never fail the render.
func (s *menuService) resolveImages(ctx context.Context, products []domain.Product) map[string]string {
	resolved := make(map[string]string, len(products))
	if s.assets == nil {
		return resolved
	}

	var (
		mu    sync.Mutex
		group errgroup.Group
		seen  = map[string]struct{}{}
	)
	group.SetLimit(s.concurrency)
	for _, product := range products {
		path := product.ImagePath
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		productID := product.ID
		group.Go(func() error {
			url, err := s.assets.Resolve(ctx, path)
			if err != nil || url == "" {
				fields := map[string]any{"productID": productID, "path": path}
				if err != nil {
					fields["error"] = err.Error()
				}
				event := "menu.image_unresolved"
				if errors.Is(err, ErrAssetNotFound) {
					event = "menu.image_not_found"
				}
				s.logger(ctx, event, fields)
				url = s.placeholder
			}
			mu.Lock()
			resolved[path] = url
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return resolved
}

func findCategory(categories []domain.Category, categoryID string) domain.Category {
	for _, category := range categories {
		if category.ID == categoryID {
			return category
		}
	}
	key := textutil.Normalize(categoryID)
	for _, category := range categories {
		if textutil.Normalize(category.ID) == key {
			return category
		}
	}
	return domain.Category{ID: categoryID}
}
