package repositories

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// DefaultCartKeyPrefix is the storage key under which carts are kept.
const DefaultCartKeyPrefix = "carrinho"

// CartLineRecord is the persisted shape of one cart line.
type CartLineRecord struct {
	ProductID string              `json:"productId" firestore:"productId"`
	Quantity  int                 `json:"quantity" firestore:"quantity"`
	Options   map[string][]string `json:"options" firestore:"options"`
}

// CartKey returns "<prefix>:<cartID>".
func CartKey(prefix, cartID string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultCartKeyPrefix
	}
	return prefix + ":" + cartID
}

// CartRecords converts cart lines into their persisted shape.
func CartRecords(cart domain.Cart) []CartLineRecord {
	records := make([]CartLineRecord, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		options := map[string][]string(line.Options.Canonical())
		records = append(records, CartLineRecord{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Options:   options,
		})
	}
	return records
}

// CartFromRecords rebuilds cart lines, dropping entries with no product or a
// non-positive quantity and merging duplicates. Quantities are clamped to
// domain.MaxLineQuantity.
func CartFromRecords(cartID string, records []CartLineRecord) domain.Cart {
	cart := domain.Cart{ID: cartID}
	for _, rec := range records {
		if strings.TrimSpace(rec.ProductID) == "" || rec.Quantity <= 0 {
			continue
		}
		line := domain.CartLine{
			ProductID: rec.ProductID,
			Quantity:  min(rec.Quantity, domain.MaxLineQuantity),
			Options:   domain.SelectedOptions(rec.Options).Canonical(),
		}
		merged := false
		for i := range cart.Lines {
			if cart.Lines[i].SameLine(line) {
				cart.Lines[i].Quantity = min(cart.Lines[i].Quantity+line.Quantity, domain.MaxLineQuantity)
				merged = true
				break
			}
		}
		if !merged {
			cart.Lines = append(cart.Lines, line)
		}
	}
	return cart
}

// EncodeCart serialises the cart as a JSON array of {productId, quantity, options}.
func EncodeCart(cart domain.Cart) ([]byte, error) {
	data, err := json.Marshal(CartRecords(cart))
	if err != nil {
		return nil, fmt.Errorf("encode cart %s: %w", cart.ID, err)
	}
	return data, nil
}

// DecodeCart parses data produced by EncodeCart.
func DecodeCart(cartID string, data []byte) (domain.Cart, error) {
	var records []CartLineRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return domain.Cart{}, fmt.Errorf("decode cart %s: %w", cartID, err)
		}
	}
	return CartFromRecords(cartID, records), nil
}
