package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/skip2/go-qrcode"
	"golang.org/x/text/language"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/textutil"
)

// ErrCheckoutEmptyCart indicates there is nothing to hand off.
var ErrCheckoutEmptyCart = errors.New("checkout service: empty cart")

// EmptyCartNotice is shown to the visitor when checkout is refused for an empty cart.
const EmptyCartNotice = "Seu carrinho está vazio."

var (
	errCheckoutCartsRequired     = errors.New("checkout service: cart service is required")
	errCheckoutRecipientRequired = errors.New("checkout service: recipient is required")
)

const (
	defaultCheckoutHost     = "wa.me"
	defaultCheckoutGreeting = "Olá! Quero fazer um pedido:"
	defaultQRCodeSize       = 256
	minQRCodeSize           = 128
	maxQRCodeSize           = 1024
)

// CheckoutServiceDeps wires the cart reader, formatting settings and the hand-off notifier.
type CheckoutServiceDeps struct {
	Carts       CartService
	Notifier    HandoffNotifier
	Host        string
	Recipient   string
	Greeting    string
	Currency    string
	Locale      language.Tag
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type checkoutService struct {
	carts     CartService
	notifier  HandoffNotifier
	host      string
	recipient string
	greeting  string
	currency  string
	locale    language.Tag
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs the checkout formatter.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errCheckoutCartsRequired
	}
	recipient := strings.Trim(strings.TrimSpace(deps.Recipient), "+/")
	if recipient == "" {
		return nil, errCheckoutRecipientRequired
	}
	host := strings.Trim(strings.TrimSpace(deps.Host), "/")
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	if host == "" {
		host = defaultCheckoutHost
	}
	greeting := strings.TrimSpace(deps.Greeting)
	if greeting == "" {
		greeting = defaultCheckoutGreeting
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "BRL"
	}
	locale := deps.Locale
	if locale == language.Und {
		locale = textutil.Locale
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		carts:     deps.Carts,
		notifier:  deps.Notifier,
		host:      host,
		recipient: recipient,
		greeting:  greeting,
		currency:  currency,
		locale:    locale,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

// Prepare formats the cart and publishes a hand-off event. Notifier failures are
// logged and do not affect the result.
func (s *checkoutService) Prepare(ctx context.Context, cartID string) (Checkout, error) {
	checkout, err := s.build(ctx, cartID)
	if err != nil {
		return Checkout{}, err
	}
	s.publish(ctx, checkout)
	return checkout, nil
}

// QRCode renders the checkout deep link as a PNG.
func (s *checkoutService) QRCode(ctx context.Context, cartID string, size int) ([]byte, error) {
	checkout, err := s.build(ctx, cartID)
	if err != nil {
		return nil, err
	}
	switch {
	case size == 0:
		size = defaultQRCodeSize
	case size < minQRCodeSize:
		size = minQRCodeSize
	case size > maxQRCodeSize:
		size = maxQRCodeSize
	}
	png, err := qrcode.Encode(checkout.URL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("checkout service: encode qr code: %w", err)
	}
	return png, nil
}

// build skips lines whose product is gone, exactly like the cart total, so the
// message and the total always agree.
func (s *checkoutService) build(ctx context.Context, cartID string) (Checkout, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return Checkout{}, err
	}

	var lines []CartLineView
	for _, line := range cart.Lines {
		if line.Available {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Checkout{}, ErrCheckoutEmptyCart
	}

	message := s.formatMessage(lines, cart.Total)
	return Checkout{
		CartID:  cart.ID,
		Message: message,
		Total:   cart.Total,
		URL:     s.deepLink(message),
		Lines:   lines,
	}, nil
}

func (s *checkoutService) formatMessage(lines []CartLineView, total domain.Money) string {
	var b strings.Builder
	b.WriteString(s.greeting)
	b.WriteString("\n\n")
	for _, line := range lines {
		fmt.Fprintf(&b, "• %dx %s - %s\n", line.Quantity, line.Name, s.formatPrice(line.Subtotal))
		if len(line.OptionNames) > 0 {
			fmt.Fprintf(&b, "   + %s\n", strings.Join(line.OptionNames, ", "))
		}
	}
	fmt.Fprintf(&b, "\nTotal: %s", s.formatPrice(total))
	return b.String()
}

func (s *checkoutService) deepLink(message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return fmt.Sprintf("https://%s/%s?text=%s", s.host, url.PathEscape(s.recipient), text)
}

func (s *checkoutService) formatPrice(amount domain.Money) string {
	return textutil.FormatCurrency(int64(amount), s.currency, s.locale)
}

func (s *checkoutService) publish(ctx context.Context, checkout Checkout) {
	if s.notifier == nil {
		return
	}
	itemCount := 0
	for _, line := range checkout.Lines {
		itemCount += line.Quantity
	}
	event := domain.HandoffEvent{
		ID:        s.newID(),
		CartID:    checkout.CartID,
		ItemCount: itemCount,
		Total:     checkout.Total,
		Currency:  s.currency,
		URL:       checkout.URL,
		CreatedAt: s.now(),
	}
	if err := s.notifier.NotifyHandoff(ctx, event); err != nil {
		s.logger(ctx, "checkout.handoff_publish_failed", map[string]any{
			"cartID":  checkout.CartID,
			"eventID": event.ID,
			"error":   err.Error(),
		})
		return
	}
	s.logger(ctx, "checkout.handoff_published", map[string]any{
		"cartID":  checkout.CartID,
		"eventID": event.ID,
		"total":   int64(checkout.Total),
	})
}
