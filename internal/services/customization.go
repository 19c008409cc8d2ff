package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// ErrProductNotFound indicates the product is absent from the catalog or inactive.
var ErrProductNotFound = errors.New("catalog: product not found")

// ErrCustomizationInvalid indicates the selected options do not satisfy the product's groups.
var ErrCustomizationInvalid = errors.New("customization: invalid selection")

var errCustomizationCatalogRequired = errors.New("customization service: catalog is required")

// Group validation reasons.
const (
	ReasonRequired      = "required"
	ReasonBelowMin      = "below_min"
	ReasonAboveMax      = "above_max"
	ReasonUnknownOption = "unknown_option"
)

// GroupValidation reports the state of one option group.
type GroupValidation struct {
	Key      string
	Title    string
	Selected int
	Min      int
	Max      int
	Valid    bool
	Reason   string
}

// ValidationResult is the outcome of validating a selection against a product.
// Total is the unit price: base price plus every checked option that exists.
type ValidationResult struct {
	Valid         bool
	Total         domain.Money
	Groups        []GroupValidation
	UnknownGroups []string
}

// InvalidGroups returns the groups that failed validation.
func (r ValidationResult) InvalidGroups() []GroupValidation {
	var out []GroupValidation
	for _, group := range r.Groups {
		if !group.Valid {
			out = append(out, group)
		}
	}
	return out
}

// CustomizationError carries the failed validation. It matches ErrCustomizationInvalid.
type CustomizationError struct {
	ProductID string
	Result    ValidationResult
}

func (e *CustomizationError) Error() string {
	return fmt.Sprintf("%s: product %s", ErrCustomizationInvalid, e.ProductID)
}

func (e *CustomizationError) Is(target error) bool {
	return target == ErrCustomizationInvalid
}

// ValidateCustomization checks every group of the product against the selection.
// Selections naming unknown groups or options are invalid.
func ValidateCustomization(product domain.Product, selected domain.SelectedOptions) ValidationResult {
	selected = selected.Canonical()
	result := ValidationResult{Valid: true, Total: product.Price}

	for _, group := range product.Groups {
		lower, upper := group.Bounds()
		keys := selected[group.Key]
		check := GroupValidation{
			Key:      group.Key,
			Title:    group.Title,
			Selected: len(keys),
			Min:      lower,
			Max:      upper,
			Valid:    true,
		}
		for _, key := range keys {
			option, ok := group.Option(key)
			if !ok {
				check.Valid, check.Reason = false, ReasonUnknownOption
				continue
			}
			result.Total += option.Price
		}
		if check.Valid {
			switch {
			case check.Selected < lower && group.Required && check.Selected == 0:
				check.Valid, check.Reason = false, ReasonRequired
			case check.Selected < lower:
				check.Valid, check.Reason = false, ReasonBelowMin
			case upper != domain.Unbounded && check.Selected > upper:
				check.Valid, check.Reason = false, ReasonAboveMax
			}
		}
		if !check.Valid {
			result.Valid = false
		}
		result.Groups = append(result.Groups, check)
	}

	for key := range selected {
		if _, ok := product.Group(key); !ok {
			result.UnknownGroups = append(result.UnknownGroups, key)
		}
	}
	if len(result.UnknownGroups) > 0 {
		sort.Strings(result.UnknownGroups)
		result.Valid = false
	}
	return result
}

// PriceSelection returns the unit price for the selection against the current
// catalog entry, ignoring options that no longer exist.
func PriceSelection(product domain.Product, selected domain.SelectedOptions) domain.Money {
	total := product.Price
	for groupKey, keys := range selected {
		group, ok := product.Group(groupKey)
		if !ok {
			continue
		}
		for _, key := range keys {
			if option, ok := group.Option(key); ok {
				total += option.Price
			}
		}
	}
	return total
}

// Customizer tracks the checked state of a product's options and keeps it
// representable: single-choice groups hold at most one option and multi-choice
// groups never exceed their maximum.
type Customizer struct {
	product  domain.Product
	selected domain.SelectedOptions
}

// NewCustomizer starts from the given selection.
func NewCustomizer(product domain.Product, initial domain.SelectedOptions) *Customizer {
	return &Customizer{product: product, selected: initial.Canonical()}
}

// Set checks or unchecks an option. Checking beyond a multi-choice group's maximum
// leaves the option unchecked and reports capped.
func (c *Customizer) Set(groupKey, optionKey string, checked bool) (capped bool, err error) {
	group, ok := c.product.Group(groupKey)
	if !ok {
		return false, fmt.Errorf("%w: unknown group %q", ErrCustomizationInvalid, groupKey)
	}
	if _, ok := group.Option(optionKey); !ok {
		return false, fmt.Errorf("%w: unknown option %q in group %q", ErrCustomizationInvalid, optionKey, groupKey)
	}

	current := c.selected[groupKey]
	if !checked {
		remaining := make([]string, 0, len(current))
		for _, key := range current {
			if key != optionKey {
				remaining = append(remaining, key)
			}
		}
		c.store(groupKey, remaining)
		return false, nil
	}

	if group.Mode == domain.SelectionSingle {
		c.store(groupKey, []string{optionKey})
		return false, nil
	}
	if c.selected.Has(groupKey, optionKey) {
		return false, nil
	}
	if _, upper := group.Bounds(); upper != domain.Unbounded && len(current) >= upper {
		return true, nil
	}
	c.store(groupKey, append(append([]string(nil), current...), optionKey))
	return false, nil
}

func (c *Customizer) store(groupKey string, keys []string) {
	if len(keys) == 0 {
		delete(c.selected, groupKey)
		return
	}
	sort.Strings(keys)
	c.selected[groupKey] = keys
}

// Selected returns a copy of the current selection.
func (c *Customizer) Selected() domain.SelectedOptions {
	return c.selected.Canonical()
}

// Result validates and prices the current selection.
func (c *Customizer) Result() ValidationResult {
	return ValidateCustomization(c.product, c.selected)
}

type productLookup interface {
	Product(productID string) (domain.Product, bool)
}

// CustomizationServiceDeps wires the catalog lookup.
type CustomizationServiceDeps struct {
	Catalog productLookup
}

type customizationService struct {
	catalog productLookup
}

var _ CustomizationService = (*customizationService)(nil)

// NewCustomizationService constructs the customization evaluator.
func NewCustomizationService(deps CustomizationServiceDeps) (CustomizationService, error) {
	if deps.Catalog == nil {
		return nil, errCustomizationCatalogRequired
	}
	return &customizationService{catalog: deps.Catalog}, nil
}

func (s *customizationService) Evaluate(ctx context.Context, cmd EvaluateCustomizationCommand) (CustomizationState, error) {
	product, err := activeProduct(s.catalog, cmd.ProductID)
	if err != nil {
		return CustomizationState{}, err
	}

	customizer := NewCustomizer(product, cmd.Selected)
	var capped bool
	if cmd.Toggle != nil {
		capped, err = customizer.Set(strings.TrimSpace(cmd.Toggle.Group), strings.TrimSpace(cmd.Toggle.Option), cmd.Toggle.Checked)
		if err != nil {
			return CustomizationState{}, err
		}
	}
	return CustomizationState{
		ProductID:  product.ID,
		Selected:   customizer.Selected(),
		Validation: customizer.Result(),
		Capped:     capped,
	}, nil
}

func activeProduct(catalog productLookup, productID string) (domain.Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, ErrProductNotFound
	}
	product, ok := catalog.Product(id)
	if !ok || !product.Active {
		return domain.Product{}, ErrProductNotFound
	}
	return product, nil
}
