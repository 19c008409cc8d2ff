package services

import (
	"regexp"
	"sort"
	"strings"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/textutil"
)

// DerivedLabelPolicy controls how a section label is derived from a product name
// that has neither a subcategory nor a " - " separator.
type DerivedLabelPolicy string

const (
	// DerivedLabelFull keeps every word left after stripping the build-your-own marker.
	DerivedLabelFull DerivedLabelPolicy = "full"
	// DerivedLabelFirstWord keeps only the first remaining word.
	DerivedLabelFirstWord DerivedLabelPolicy = "first_word"
)

const (
	defaultBuildYourOwnMarker = "monte"
	nameSeparator             = " - "
)

// categoryAliases lists extra spellings accepted for a category key.
var categoryAliases = map[string][]string{
	"combos_promocoes": {"Combos & Promoções", "combos-promocoes", "combos_promocoes"},
}

// LayoutOptions tunes the grouping engine.
type LayoutOptions struct {
	BuildYourOwnMarker string
	DerivedLabel       DerivedLabelPolicy
	LabelOverrides     map[string]string
}

// DefaultLayoutOptions returns the marker "monte", the full label policy and the
// default accent overrides.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		BuildYourOwnMarker: defaultBuildYourOwnMarker,
		DerivedLabel:       DerivedLabelFull,
		LabelOverrides:     textutil.DefaultLabelOverrides(),
	}
}

func (o LayoutOptions) marker() string {
	marker := strings.ToLower(strings.TrimSpace(o.BuildYourOwnMarker))
	if marker == "" {
		return defaultBuildYourOwnMarker
	}
	return marker
}

// ProductSection is a labelled group of products.
type ProductSection struct {
	Key          string
	Label        string
	BuildYourOwn bool
	Products     []domain.Product
}

// CategoryMatches reports whether the product's free-text category refers to the category.
func CategoryMatches(product domain.Product, category domain.Category) bool {
	key := textutil.Normalize(product.Category)
	if key == "" {
		return false
	}
	id := textutil.Normalize(category.ID)
	if key == id {
		return true
	}
	if name := textutil.Normalize(category.Name); name != "" && key == name {
		return true
	}
	for _, alias := range categoryAliases[id] {
		if key == textutil.Normalize(alias) {
			return true
		}
	}
	return false
}

// LayoutAll builds one section per active category in sort order. Categories with
// no active matching products are omitted; products keep the input order.
func LayoutAll(categories []domain.Category, products []domain.Product, opts LayoutOptions) []ProductSection {
	var sections []ProductSection
	for _, category := range activeCategories(categories) {
		var members []domain.Product
		for _, product := range products {
			if product.Active && CategoryMatches(product, category) {
				members = append(members, product)
			}
		}
		if len(members) == 0 {
			continue
		}
		label := category.Name
		if label == "" {
			label = textutil.DisplayLabel(category.ID, opts.LabelOverrides)
		}
		sections = append(sections, ProductSection{Key: category.ID, Label: label, Products: members})
	}
	return sections
}

// LayoutCategory partitions the category's active products into subsections keyed
// by subcategory or by a label derived from the product name. Build-your-own
// sections sort last; the rest order by pt-BR collation of their labels.
func LayoutCategory(category domain.Category, products []domain.Product, opts LayoutOptions) []ProductSection {
	marker := opts.marker()
	byKey := map[string]*ProductSection{}
	var order []string

	for _, product := range products {
		if !product.Active || !CategoryMatches(product, category) {
			continue
		}
		raw := strings.TrimSpace(product.Subcategory)
		key := textutil.Normalize(raw)
		if key == "" {
			raw = DeriveGroupLabel(product.Name, opts)
			key = textutil.Normalize(raw)
		}
		if key == "" {
			continue
		}
		section, ok := byKey[key]
		if !ok {
			section = &ProductSection{
				Key:          key,
				Label:        textutil.DisplayLabel(raw, opts.LabelOverrides),
				BuildYourOwn: true,
			}
			byKey[key] = section
			order = append(order, key)
		}
		section.Products = append(section.Products, product)
		if !IsBuildYourOwn(product.Name, marker) {
			section.BuildYourOwn = false
		}
	}

	sections := make([]ProductSection, 0, len(order))
	for _, key := range order {
		sections = append(sections, *byKey[key])
	}

	collator := textutil.NewCollator()
	sort.SliceStable(sections, func(i, j int) bool {
		a, b := sections[i], sections[j]
		if a.BuildYourOwn != b.BuildYourOwn {
			return !a.BuildYourOwn
		}
		if c := collator.CompareString(a.Label, b.Label); c != 0 {
			return c < 0
		}
		return a.Key < b.Key
	})
	return sections
}

// DeriveGroupLabel extracts a section label from a product name: the text before
// the first " - ", otherwise the name with the build-your-own marker and everything
// after it removed. When stripping leaves nothing the whole name is used. The
// result is empty only for an empty name.
func DeriveGroupLabel(name string, opts LayoutOptions) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if idx := strings.Index(name, nameSeparator); idx >= 0 {
		if label := strings.TrimSpace(name[:idx]); label != "" {
			return label
		}
		return name
	}

	pattern := regexp.MustCompile(`(?is)` + regexp.QuoteMeta(opts.marker()) + `.*$`)
	label := strings.TrimSpace(pattern.ReplaceAllString(name, ""))
	if label == "" {
		return name
	}
	if opts.DerivedLabel == DerivedLabelFirstWord {
		if fields := strings.Fields(label); len(fields) > 0 {
			return fields[0]
		}
	}
	return label
}

// IsBuildYourOwn reports whether the product name contains the marker, ignoring case.
func IsBuildYourOwn(name, marker string) bool {
	marker = strings.ToLower(strings.TrimSpace(marker))
	if marker == "" {
		marker = defaultBuildYourOwnMarker
	}
	return strings.Contains(strings.ToLower(name), marker)
}
