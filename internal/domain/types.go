package domain

import (
	"math"
	"sort"
	"time"
)

// Money stores monetary amounts in minor units (centavos for BRL).
type Money int64

// MoneyFromFloat converts a decimal amount into minor units, rounding half away from zero.
// Negative or non-finite inputs clamp to zero; catalog prices are non-negative by construction.
func MoneyFromFloat(value float64) Money {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0
	}
	return Money(math.Round(value * 100))
}

// Float returns the amount in major units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// Times multiplies the amount by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// Category groups products on the menu.
type Category struct {
	ID        string
	Name      string
	Active    bool
	SortOrder int
}

// ProductKind distinguishes products added directly from products that open the customization flow.
type ProductKind string

const (
	// ProductKindSimple products are added to the cart without options.
	ProductKindSimple ProductKind = "simple"
	// ProductKindCustomizable products expose option groups.
	ProductKindCustomizable ProductKind = "customizable"
)

// SelectionMode describes how many options may be picked inside a group.
type SelectionMode string

const (
	// SelectionSingle allows at most one option (radio).
	SelectionSingle SelectionMode = "single"
	// SelectionMulti allows several options bounded by min/max (checkbox).
	SelectionMulti SelectionMode = "multi"
)

// Product is a menu entry supplied by the catalog source.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       Money
	Active      bool
	Category    string
	Subcategory string
	ImagePath   string
	Featured    bool
	Kind        ProductKind
	Groups      []OptionGroup
}

// Group returns the option group with the given key.
func (p Product) Group(key string) (OptionGroup, bool) {
	for _, group := range p.Groups {
		if group.Key == key {
			return group, true
		}
	}
	return OptionGroup{}, false
}

// OptionGroup is a named set of choices with cardinality constraints.
type OptionGroup struct {
	Key       string
	Title     string
	Mode      SelectionMode
	Required  bool
	Min       *int
	Max       *int
	SortOrder int
	Options   []Option
}

// Unbounded marks a group without an upper selection limit.
const Unbounded = -1

// Bounds resolves the effective [min, max] selection counts.
// Single-choice groups accept exactly one option when required and at most one otherwise.
// Multi-choice groups default to min 1 when required, min 0 otherwise, and no upper limit.
// A declared max of zero or less is treated as unbounded.
func (g OptionGroup) Bounds() (int, int) {
	if g.Mode == SelectionSingle {
		if g.Required {
			return 1, 1
		}
		return 0, 1
	}

	lower := 0
	if g.Required {
		lower = 1
	}
	if g.Min != nil && *g.Min >= 0 {
		lower = *g.Min
	}

	upper := Unbounded
	if g.Max != nil && *g.Max > 0 {
		upper = *g.Max
	}
	return lower, upper
}

// Option returns the option with the given key.
func (g OptionGroup) Option(key string) (Option, bool) {
	for _, opt := range g.Options {
		if opt.Key == key {
			return opt, true
		}
	}
	return Option{}, false
}

// Option is a single choice inside a group.
type Option struct {
	Key   string
	Name  string
	Price Money
}

// SelectedOptions maps an option-group key to the chosen option keys.
type SelectedOptions map[string][]string

// Canonical returns a copy with option keys sorted and de-duplicated per group and
// empty groups dropped. Two selections describe the same choice iff their canonical forms are equal.
func (s SelectedOptions) Canonical() SelectedOptions {
	out := make(SelectedOptions, len(s))
	for group, keys := range s {
		if group == "" || len(keys) == 0 {
			continue
		}
		seen := make(map[string]struct{}, len(keys))
		unique := make([]string, 0, len(keys))
		for _, key := range keys {
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			unique = append(unique, key)
		}
		if len(unique) == 0 {
			continue
		}
		sort.Strings(unique)
		out[group] = unique
	}
	return out
}

// Equal reports whether both selections choose the same options, ignoring order within a group.
func (s SelectedOptions) Equal(other SelectedOptions) bool {
	a := s.Canonical()
	b := other.Canonical()
	if len(a) != len(b) {
		return false
	}
	for group, keys := range a {
		otherKeys, ok := b[group]
		if !ok || len(otherKeys) != len(keys) {
			return false
		}
		for i := range keys {
			if keys[i] != otherKeys[i] {
				return false
			}
		}
	}
	return true
}

// Count returns the number of options chosen in the group.
func (s SelectedOptions) Count(group string) int {
	return len(s[group])
}

// Has reports whether the option is chosen in the group.
func (s SelectedOptions) Has(group, option string) bool {
	for _, key := range s[group] {
		if key == option {
			return true
		}
	}
	return false
}

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 999

// CartLine is a product entry in the cart with its chosen options.
type CartLine struct {
	ProductID string
	Quantity  int
	Options   SelectedOptions
}

// SameLine reports whether both lines refer to the same product with the same options.
func (l CartLine) SameLine(other CartLine) bool {
	return l.ProductID == other.ProductID && l.Options.Equal(other.Options)
}

// Cart is the ordered sequence of lines kept for a visitor session.
type Cart struct {
	ID        string
	Lines     []CartLine
	UpdatedAt time.Time
}

// ItemCount returns the sum of all line quantities.
func (c Cart) ItemCount() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// HandoffEvent records a cart handed off to the messaging deep link.
type HandoffEvent struct {
	ID        string
	CartID    string
	ItemCount int
	Total     Money
	Currency  string
	URL       string
	CreatedAt time.Time
}
