package repositories

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestResolveProductBuildsGroupsInOrder(t *testing.T) {
	rec := ProductRecord{
		Nome:      " Monte seu Açaí ",
		Preco:     20,
		Ativo:     true,
		Categoria: "acai",
		Imagem:    "produtos/acai.jpg",
		Tipo:      "personalizado",
		Grupos: map[string]GroupRecord{
			"tamanho": {Titulo: "Tamanho", TipoSelecao: "radio", Obrigatorio: true, Ordem: 1, Opcoes: map[string]OptionRecord{
				"500": {Nome: "500ml", Preco: 4},
				"300": {Nome: "300ml", Preco: 0},
			}},
			"adicionais": {Titulo: "Adicionais", TipoSelecao: "checkbox", Max: intPtr(3), Ordem: 2, Opcoes: map[string]OptionRecord{
				"granola": {Nome: "Granola", Preco: 2},
				"banana":  {Nome: "Banana", Preco: 3.5},
			}},
		},
	}

	product, err := ResolveProduct("p1", rec)
	if err != nil {
		t.Fatalf("ResolveProduct: %v", err)
	}
	if product.Name != "Monte seu Açaí" || product.Price != 2000 {
		t.Fatalf("unexpected product %+v", product)
	}
	if product.ImagePath != "produtos/acai.jpg" {
		t.Fatalf("expected imagem fallback, got %q", product.ImagePath)
	}
	if product.Kind != domain.ProductKindCustomizable {
		t.Fatalf("expected customizable kind, got %s", product.Kind)
	}
	if len(product.Groups) != 2 || product.Groups[0].Key != "tamanho" || product.Groups[1].Key != "adicionais" {
		t.Fatalf("unexpected group order %+v", product.Groups)
	}
	if product.Groups[0].Mode != domain.SelectionSingle || product.Groups[1].Mode != domain.SelectionMulti {
		t.Fatalf("unexpected modes %+v", product.Groups)
	}
	opts := product.Groups[1].Options
	if len(opts) != 2 || opts[0].Key != "banana" || opts[0].Price != 350 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestResolveProductKinds(t *testing.T) {
	simple, err := ResolveProduct("p1", ProductRecord{Nome: "Coca", Tipo: "simples"})
	if err != nil || simple.Kind != domain.ProductKindSimple {
		t.Fatalf("expected simple kind, got %v %v", simple.Kind, err)
	}
	untyped, err := ResolveProduct("p2", ProductRecord{Nome: "Água"})
	if err != nil || untyped.Kind != domain.ProductKindSimple {
		t.Fatalf("expected untyped product without groups to be simple, got %v %v", untyped.Kind, err)
	}
}

func TestResolveProductRejectsInvalidSchemas(t *testing.T) {
	tests := map[string]ProductRecord{
		"negative price": {Nome: "X", Preco: -1},
		"unknown mode": {Nome: "X", Grupos: map[string]GroupRecord{
			"g": {TipoSelecao: "dropdown"},
		}},
		"min above max": {Nome: "X", Grupos: map[string]GroupRecord{
			"g": {TipoSelecao: "checkbox", Min: intPtr(3), Max: intPtr(2)},
		}},
		"negative option price": {Nome: "X", Grupos: map[string]GroupRecord{
			"g": {TipoSelecao: "checkbox", Opcoes: map[string]OptionRecord{"a": {Preco: -2}}},
		}},
	}
	for name, rec := range tests {
		if _, err := ResolveProduct("p", rec); !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("%s: expected ErrInvalidRecord, got %v", name, err)
		}
	}
}

func TestResolveProductsSkipsInvalidRecords(t *testing.T) {
	var skipped []string
	products := ResolveProducts(map[string]ProductRecord{
		"b":   {Nome: "B", Preco: 1},
		"a":   {Nome: "A", Preco: 1},
		"bad": {Nome: "Bad", Preco: -5},
	}, func(id string, err error) {
		skipped = append(skipped, id)
	})

	if len(products) != 2 || products[0].ID != "a" || products[1].ID != "b" {
		t.Fatalf("unexpected products %+v", products)
	}
	if len(skipped) != 1 || skipped[0] != "bad" {
		t.Fatalf("expected bad to be skipped, got %v", skipped)
	}
}

func TestResolveCategoriesOrdersByID(t *testing.T) {
	categories := ResolveCategories(map[string]CategoryRecord{
		"lanches": {Nome: "Lanches", Ativa: true, Ordem: 2},
		"acai":    {Nome: "Açaí", Ativa: true, Ordem: 1},
	}, nil)
	if len(categories) != 2 || categories[0].ID != "acai" || categories[0].SortOrder != 1 {
		t.Fatalf("unexpected categories %+v", categories)
	}
}

func TestLoadSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	content := `{
		"categorias": {"lanches": {"nome": "Lanches", "ativa": true, "ordem": 1}},
		"produtos": {"p1": {"nome": "Burger - Classic", "preco": 25.5, "ativo": true, "categoria": "lanches",
			"grupos": {"extras": {"titulo": "Extras", "tipoSelecao": "checkbox", "max": 2,
				"opcoes": {"bacon": {"nome": "Bacon", "preco": 4}}}}}}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	snapshot, err := LoadSnapshotFile(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFile: %v", err)
	}
	products := ResolveProducts(snapshot.Produtos, nil)
	if len(products) != 1 || products[0].Price != 2550 {
		t.Fatalf("unexpected products %+v", products)
	}
	if _, upper := products[0].Groups[0].Bounds(); upper != 2 {
		t.Fatalf("expected max 2, got %d", upper)
	}
}
