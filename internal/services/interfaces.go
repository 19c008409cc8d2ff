package services

import (
	"context"
	"time"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// CatalogSnapshot is the complete catalog as last pushed by the data source.
// Snapshots are replaced wholesale and never mutated after publication.
type CatalogSnapshot struct {
	Categories       []domain.Category
	Products         []domain.Product
	CategoriesLoaded bool
	ProductsLoaded   bool
	Version          uint64
	UpdatedAt        time.Time
}

// Loaded reports whether both collections have delivered at least one snapshot.
func (s CatalogSnapshot) Loaded() bool {
	return s.CategoriesLoaded && s.ProductsLoaded
}

// CatalogService owns the live catalog snapshot.
type CatalogService interface {
	Run(ctx context.Context) error
	Snapshot() CatalogSnapshot
	Product(productID string) (domain.Product, bool)
	ActiveCategories() []domain.Category
	Subscribe(fn func(CatalogSnapshot)) (unsubscribe func())
}

// CategoryView is an active category as listed in the menu tabs.
type CategoryView struct {
	ID        string
	Name      string
	Label     string
	SortOrder int
}

// ProductCard is a product prepared for display.
type ProductCard struct {
	ID           string
	Name         string
	Description  string
	Price        domain.Money
	PriceLabel   string
	ImageURL     string
	Featured     bool
	Customizable bool
	ActionLabel  string
}

// MenuSection is one heading of the rendered menu.
type MenuSection struct {
	Key          string
	Label        string
	BuildYourOwn bool
	Products     []ProductCard
}

// MenuPage is the rendered view for "all" (empty CategoryID) or one category.
// Empty is set when nothing matched; it is not an error.
type MenuPage struct {
	CategoryID string
	Sections   []MenuSection
	Empty      bool
	Version    uint64
}

// ProductDetail is a product with its option schema for the customization dialog.
type ProductDetail struct {
	Card   ProductCard
	Groups []GroupView
}

// GroupView describes an option group with its resolved bounds. Max is
// domain.Unbounded when the group has no upper limit.
type GroupView struct {
	Key      string
	Title    string
	Mode     domain.SelectionMode
	Required bool
	Min      int
	Max      int
	Options  []OptionView
}

// OptionView is a single option with its formatted surcharge.
type OptionView struct {
	Key        string
	Name       string
	Price      domain.Money
	PriceLabel string
}

// MenuService renders the catalog into menu pages.
type MenuService interface {
	Categories(ctx context.Context) ([]CategoryView, error)
	Render(ctx context.Context, categoryID string) (MenuPage, error)
	ProductDetail(ctx context.Context, productID string) (ProductDetail, error)
}

// OptionToggle is a single checkbox/radio interaction.
type OptionToggle struct {
	Group   string
	Option  string
	Checked bool
}

// EvaluateCustomizationCommand evaluates a selection, optionally after applying one toggle.
type EvaluateCustomizationCommand struct {
	ProductID string
	Selected  domain.SelectedOptions
	Toggle    *OptionToggle
}

// CustomizationState is the outcome of an evaluation.
type CustomizationState struct {
	ProductID  string
	Selected   domain.SelectedOptions
	Validation ValidationResult
	Capped     bool
}

// CustomizationService evaluates option selections against the live catalog.
type CustomizationService interface {
	Evaluate(ctx context.Context, cmd EvaluateCustomizationCommand) (CustomizationState, error)
}

// CartLineView is a cart line resolved against the current catalog. Lines whose
// product disappeared are reported with Available false and excluded from totals.
type CartLineView struct {
	Index       int
	ProductID   string
	Name        string
	Quantity    int
	Options     domain.SelectedOptions
	OptionNames []string
	UnitPrice   domain.Money
	Subtotal    domain.Money
	Available   bool
}

// CartView is a cart with prices resolved.
type CartView struct {
	ID        string
	Lines     []CartLineView
	ItemCount int
	Total     domain.Money
	UpdatedAt time.Time
}

// AddCartItemCommand adds a product with the given options.
type AddCartItemCommand struct {
	CartID    string
	ProductID string
	Quantity  int
	Options   domain.SelectedOptions
}

// ChangeQuantityCommand adjusts a line's quantity by Delta.
type ChangeQuantityCommand struct {
	CartID string
	Index  int
	Delta  int
}

// CartService mutates visitor carts.
type CartService interface {
	Get(ctx context.Context, cartID string) (CartView, error)
	Add(ctx context.Context, cmd AddCartItemCommand) (CartView, error)
	ChangeQuantity(ctx context.Context, cmd ChangeQuantityCommand) (CartView, error)
	Remove(ctx context.Context, cartID string, index int) (CartView, error)
	Clear(ctx context.Context, cartID string) (CartView, error)
	Total(ctx context.Context, cartID string) (domain.Money, error)
}

// Checkout is the order summary handed to the messaging service.
type Checkout struct {
	CartID  string
	Message string
	Total   domain.Money
	URL     string
	Lines   []CartLineView
}

// CheckoutService formats carts into deep links.
type CheckoutService interface {
	Prepare(ctx context.Context, cartID string) (Checkout, error)
	QRCode(ctx context.Context, cartID string, size int) ([]byte, error)
}

// AssetResolver maps a stored image path to a fetchable URL.
type AssetResolver interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// HandoffNotifier publishes checkout hand-off events.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, event domain.HandoffEvent) error
}

// ItemCountObserver is notified with the cart's item count after every mutation.
type ItemCountObserver func(ctx context.Context, cartID string, itemCount int)
