package jobs

import (
	"strings"
	"time"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// HandoffMessage is the wire payload for checkout hand-off events.
type HandoffMessage struct {
	EventID     string    `json:"eventId"`
	CartID      string    `json:"cartId"`
	ItemCount   int       `json:"itemCount"`
	TotalMinor  int64     `json:"totalMinor"`
	Currency    string    `json:"currency"`
	DeepLink    string    `json:"deepLink"`
	CreatedAt   time.Time `json:"createdAt"`
	MessageType string    `json:"type"`
}

const handoffMessageType = "checkout.handoff"

func newHandoffMessage(event domain.HandoffEvent) HandoffMessage {
	return HandoffMessage{
		EventID:     event.ID,
		CartID:      event.CartID,
		ItemCount:   event.ItemCount,
		TotalMinor:  int64(event.Total),
		Currency:    event.Currency,
		DeepLink:    event.URL,
		CreatedAt:   event.CreatedAt.UTC(),
		MessageType: handoffMessageType,
	}
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
