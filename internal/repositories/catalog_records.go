package repositories

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// CategoryRecord is a category as stored under "categorias".
type CategoryRecord struct {
	Nome  string `firestore:"nome" json:"nome"`
	Ativa bool   `firestore:"ativa" json:"ativa"`
	Ordem int    `firestore:"ordem" json:"ordem"`
}

// ProductRecord is a product as stored under "produtos".
type ProductRecord struct {
	Nome         string                 `firestore:"nome" json:"nome"`
	Descricao    string                 `firestore:"descricao" json:"descricao"`
	Preco        float64                `firestore:"preco" json:"preco"`
	Ativo        bool                   `firestore:"ativo" json:"ativo"`
	Categoria    string                 `firestore:"categoria" json:"categoria"`
	Subcategoria string                 `firestore:"subcategoria" json:"subcategoria"`
	ImagemPath   string                 `firestore:"imagemPath" json:"imagemPath"`
	Imagem       string                 `firestore:"imagem" json:"imagem"`
	Destaque     bool                   `firestore:"destaque" json:"destaque"`
	Tipo         string                 `firestore:"tipo" json:"tipo"`
	Grupos       map[string]GroupRecord `firestore:"grupos" json:"grupos"`
}

// GroupRecord is an option group nested in a product record.
type GroupRecord struct {
	Titulo      string                  `firestore:"titulo" json:"titulo"`
	TipoSelecao string                  `firestore:"tipoSelecao" json:"tipoSelecao"`
	Obrigatorio bool                    `firestore:"obrigatorio" json:"obrigatorio"`
	Min         *int                    `firestore:"min" json:"min"`
	Max         *int                    `firestore:"max" json:"max"`
	Ordem       int                     `firestore:"ordem" json:"ordem"`
	Opcoes      map[string]OptionRecord `firestore:"opcoes" json:"opcoes"`
}

// OptionRecord is a single option inside a group record.
type OptionRecord struct {
	Nome  string  `firestore:"nome" json:"nome"`
	Preco float64 `firestore:"preco" json:"preco"`
}

// ErrInvalidRecord marks catalog records rejected at load time.
var ErrInvalidRecord = errors.New("invalid catalog record")

// ResolveCategory converts a stored category into the domain model.
func ResolveCategory(id string, rec CategoryRecord) (domain.Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Category{}, fmt.Errorf("%w: category id is empty", ErrInvalidRecord)
	}
	return domain.Category{
		ID:        id,
		Name:      strings.TrimSpace(rec.Nome),
		Active:    rec.Ativa,
		SortOrder: rec.Ordem,
	}, nil
}

// ResolveProduct converts and validates a stored product. Option groups are ordered
// by "ordem" then key; options by key.
func ResolveProduct(id string, rec ProductRecord) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is empty", ErrInvalidRecord)
	}
	if !validPrice(rec.Preco) {
		return domain.Product{}, fmt.Errorf("%w: product %s has invalid price %v", ErrInvalidRecord, id, rec.Preco)
	}

	image := strings.TrimSpace(rec.ImagemPath)
	if image == "" {
		image = strings.TrimSpace(rec.Imagem)
	}

	product := domain.Product{
		ID:          id,
		Name:        strings.TrimSpace(rec.Nome),
		Description: strings.TrimSpace(rec.Descricao),
		Price:       domain.MoneyFromFloat(rec.Preco),
		Active:      rec.Ativo,
		Category:    strings.TrimSpace(rec.Categoria),
		Subcategory: strings.TrimSpace(rec.Subcategoria),
		ImagePath:   image,
		Featured:    rec.Destaque,
	}

	for key, group := range rec.Grupos {
		resolved, err := resolveGroup(key, group)
		if err != nil {
			return domain.Product{}, fmt.Errorf("product %s: %w", id, err)
		}
		product.Groups = append(product.Groups, resolved)
	}
	sort.Slice(product.Groups, func(i, j int) bool {
		if product.Groups[i].SortOrder != product.Groups[j].SortOrder {
			return product.Groups[i].SortOrder < product.Groups[j].SortOrder
		}
		return product.Groups[i].Key < product.Groups[j].Key
	})

	switch strings.ToLower(strings.TrimSpace(rec.Tipo)) {
	case "simples", "simple":
		product.Kind = domain.ProductKindSimple
	case "":
		product.Kind = domain.ProductKindSimple
		if len(product.Groups) > 0 {
			product.Kind = domain.ProductKindCustomizable
		}
	default:
		product.Kind = domain.ProductKindCustomizable
	}
	return product, nil
}

func resolveGroup(key string, rec GroupRecord) (domain.OptionGroup, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.OptionGroup{}, fmt.Errorf("%w: option group key is empty", ErrInvalidRecord)
	}

	group := domain.OptionGroup{
		Key:       key,
		Title:     strings.TrimSpace(rec.Titulo),
		Required:  rec.Obrigatorio,
		Min:       rec.Min,
		Max:       rec.Max,
		SortOrder: rec.Ordem,
	}
	switch strings.ToLower(strings.TrimSpace(rec.TipoSelecao)) {
	case "radio":
		group.Mode = domain.SelectionSingle
	case "checkbox":
		group.Mode = domain.SelectionMulti
	default:
		return domain.OptionGroup{}, fmt.Errorf("%w: group %s has unknown selection mode %q", ErrInvalidRecord, key, rec.TipoSelecao)
	}
	if group.Mode == domain.SelectionMulti {
		if rec.Min != nil && *rec.Min < 0 {
			return domain.OptionGroup{}, fmt.Errorf("%w: group %s has negative min", ErrInvalidRecord, key)
		}
		if rec.Min != nil && rec.Max != nil && *rec.Max > 0 && *rec.Min > *rec.Max {
			return domain.OptionGroup{}, fmt.Errorf("%w: group %s has min %d above max %d", ErrInvalidRecord, key, *rec.Min, *rec.Max)
		}
	}

	keys := make([]string, 0, len(rec.Opcoes))
	for optKey := range rec.Opcoes {
		keys = append(keys, optKey)
	}
	sort.Strings(keys)
	for _, optKey := range keys {
		opt := rec.Opcoes[optKey]
		if strings.TrimSpace(optKey) == "" {
			return domain.OptionGroup{}, fmt.Errorf("%w: group %s has an option with empty key", ErrInvalidRecord, key)
		}
		if !validPrice(opt.Preco) {
			return domain.OptionGroup{}, fmt.Errorf("%w: option %s/%s has invalid price %v", ErrInvalidRecord, key, optKey, opt.Preco)
		}
		group.Options = append(group.Options, domain.Option{
			Key:   optKey,
			Name:  strings.TrimSpace(opt.Nome),
			Price: domain.MoneyFromFloat(opt.Preco),
		})
	}
	return group, nil
}

func validPrice(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value >= 0
}

// ResolveCategories converts a keyed record set ordered by id. Rejected records are
// passed to skip and left out.
func ResolveCategories(records map[string]CategoryRecord, skip func(id string, err error)) []domain.Category {
	ids := sortedKeys(records)
	out := make([]domain.Category, 0, len(ids))
	for _, id := range ids {
		category, err := ResolveCategory(id, records[id])
		if err != nil {
			if skip != nil {
				skip(id, err)
			}
			continue
		}
		out = append(out, category)
	}
	return out
}

// ResolveProducts converts a keyed record set ordered by id. Rejected records are
// passed to skip and left out.
func ResolveProducts(records map[string]ProductRecord, skip func(id string, err error)) []domain.Product {
	ids := sortedKeys(records)
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		product, err := ResolveProduct(id, records[id])
		if err != nil {
			if skip != nil {
				skip(id, err)
			}
			continue
		}
		out = append(out, product)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
