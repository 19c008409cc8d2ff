package services

import (
	"testing"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

func sectionLabels(sections []ProductSection) []string {
	labels := make([]string, len(sections))
	for i, section := range sections {
		labels[i] = section.Label
	}
	return labels
}

func TestCategoryMatchesIsStableAcrossEquivalentSpellings(t *testing.T) {
	category := domain.Category{ID: "combos_promocoes", Name: "Combos & Promoções", Active: true}
	spellings := []string{"Combos & Promoções", "combos-promocoes", "combos_promocoes", "COMBOS  PROMOÇÕES"}
	for _, spelling := range spellings {
		if !CategoryMatches(domain.Product{Category: spelling}, category) {
			t.Fatalf("expected %q to match %s", spelling, category.ID)
		}
	}
	if CategoryMatches(domain.Product{Category: "bebidas"}, category) {
		t.Fatalf("unexpected match for bebidas")
	}
	if CategoryMatches(domain.Product{}, category) {
		t.Fatalf("empty category field must not match")
	}
}

func TestLayoutCategoryGroupsBySeparatorAndSortsBuildYourOwnLast(t *testing.T) {
	category := domain.Category{ID: "lanches", Name: "Lanches", Active: true}
	products := []domain.Product{
		{ID: "monte", Name: "Monte seu Burger", Active: true, Category: "lanches"},
		{ID: "classic", Name: "Burger - Classic", Active: true, Category: "lanches"},
		{ID: "spicy", Name: "Burger - Spicy", Active: true, Category: "lanches"},
		{ID: "off", Name: "Burger - Retired", Active: false, Category: "lanches"},
	}

	sections := LayoutCategory(category, products, DefaultLayoutOptions())
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %v", sectionLabels(sections))
	}
	burger := sections[0]
	if burger.Label != "Burger" || burger.BuildYourOwn {
		t.Fatalf("unexpected first section %+v", burger)
	}
	if len(burger.Products) != 2 || burger.Products[0].ID != "classic" || burger.Products[1].ID != "spicy" {
		t.Fatalf("expected classic and spicy in source order, got %+v", burger.Products)
	}
	if !sections[1].BuildYourOwn {
		t.Fatalf("expected build-your-own section last, got %+v", sections[1])
	}
}

func TestLayoutCategoryPrefersSubcategoryAndCollatesLabels(t *testing.T) {
	category := domain.Category{ID: "sobremesas", Active: true}
	products := []domain.Product{
		{ID: "1", Name: "Copo 300ml", Subcategory: "acai", Active: true, Category: "Sobremesas"},
		{ID: "2", Name: "Torta - Limão", Active: true, Category: "sobremesas"},
		{ID: "3", Name: "Copo 500ml", Subcategory: "Açaí", Active: true, Category: "sobremesas"},
		{ID: "4", Name: "Brigadeiro", Subcategory: "doces_finos", Active: true, Category: "sobremesas"},
	}

	sections := LayoutCategory(category, products, DefaultLayoutOptions())
	got := sectionLabels(sections)
	want := []string{"Açaí", "Doces Finos", "Torta"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(sections[0].Products) != 2 {
		t.Fatalf("expected both açaí spellings in one section, got %+v", sections[0].Products)
	}
}

func TestLayoutAllFollowsCategoryOrderAndOmitsEmpty(t *testing.T) {
	categories := []domain.Category{
		{ID: "bebidas", Name: "Bebidas", Active: true, SortOrder: 2},
		{ID: "lanches", Name: "Lanches", Active: true, SortOrder: 1},
		{ID: "porcoes", Name: "Porções", Active: true, SortOrder: 3},
		{ID: "antigos", Name: "Antigos", Active: false, SortOrder: 0},
	}
	products := []domain.Product{
		{ID: "suco", Name: "Suco", Active: true, Category: "bebidas"},
		{ID: "x", Name: "X-Salada", Active: true, Category: "lanches"},
		{ID: "old", Name: "Old", Active: true, Category: "antigos"},
		{ID: "fritas", Name: "Fritas", Active: false, Category: "porcoes"},
	}

	sections := LayoutAll(categories, products, DefaultLayoutOptions())
	got := sectionLabels(sections)
	if len(got) != 2 || got[0] != "Lanches" || got[1] != "Bebidas" {
		t.Fatalf("unexpected sections %v", got)
	}
}

func TestDeriveGroupLabel(t *testing.T) {
	full := DefaultLayoutOptions()
	firstWord := DefaultLayoutOptions()
	firstWord.DerivedLabel = DerivedLabelFirstWord

	cases := []struct {
		name string
		opts LayoutOptions
		in   string
		want string
	}{
		{name: "separator", opts: full, in: "Pizza - Calabresa - Grande", want: "Pizza"},
		{name: "marker suffix", opts: full, in: "Açaí Tradicional MONTE o seu", want: "Açaí Tradicional"},
		{name: "marker first word policy", opts: firstWord, in: "Açaí Tradicional monte o seu", want: "Açaí"},
		{name: "marker only", opts: full, in: "Monte seu prato", want: "Monte seu prato"},
		{name: "plain name", opts: full, in: "Coxinha", want: "Coxinha"},
		{name: "empty", opts: full, in: "   ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveGroupLabel(tc.in, tc.opts); got != tc.want {
				t.Fatalf("DeriveGroupLabel(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLayoutCategorySkipsNamelessProducts(t *testing.T) {
	category := domain.Category{ID: "lanches", Active: true}
	sections := LayoutCategory(category, []domain.Product{{ID: "blank", Active: true, Category: "lanches"}}, DefaultLayoutOptions())
	if len(sections) != 0 {
		t.Fatalf("expected no sections, got %v", sectionLabels(sections))
	}
}

func TestLayoutCategoryPunctuationSubcategoryFallsBackToName(t *testing.T) {
	category := domain.Category{ID: "lanches", Name: "Lanches", Active: true}
	products := []domain.Product{
		{ID: "zebra", Name: "Zebra", Active: true, Category: "lanches", Subcategory: "---"},
		{ID: "classic", Name: "Burger - Classic", Active: true, Category: "lanches", Subcategory: " / "},
	}

	sections := LayoutCategory(category, products, DefaultLayoutOptions())
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %v", sectionLabels(sections))
	}
	if sections[0].Label != "Burger" || sections[1].Label != "Zebra" {
		t.Fatalf("unexpected sections %v", sectionLabels(sections))
	}
	if len(sections[1].Products) != 1 || sections[1].Products[0].ID != "zebra" {
		t.Fatalf("expected zebra in its own section, got %+v", sections[1].Products)
	}
}
