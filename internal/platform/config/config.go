package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultCatalogSource      = CatalogSourceFirestore
	defaultCatalogPoll        = 30 * time.Second
	defaultCategoriesColl     = "categorias"
	defaultProductsColl       = "produtos"
	defaultCartStore          = CartStoreMemory
	defaultCartTTL            = 30 * 24 * time.Hour
	defaultCartKeyPrefix      = "carrinho"
	defaultCartCollection     = "carrinhos"
	defaultPlaceholderURL     = "assets/img/placeholder.jpg"
	defaultSignedURLTTL       = time.Hour
	defaultAssetConcurrency   = 8
	defaultCheckoutHost       = "wa.me"
	defaultCheckoutGreeting   = "Olá! Quero fazer um pedido:"
	defaultCheckoutCurrency   = "BRL"
	defaultCheckoutLocale     = "pt-BR"
	defaultEventsSink         = EventsSinkNone
	defaultBuildYourOwnMarker = "monte"
	defaultDerivedLabelPolicy = DerivedLabelFull
)

// Catalog sources.
const (
	CatalogSourceFirestore = "firestore"
	CatalogSourceRTDB      = "rtdb"
	CatalogSourceFile      = "file"
)

// Cart stores.
const (
	CartStoreMemory    = "memory"
	CartStoreRedis     = "redis"
	CartStoreFirestore = "firestore"
)

// Event sinks for checkout hand-offs.
const (
	EventsSinkNone   = "none"
	EventsSinkPubSub = "pubsub"
	EventsSinkKafka  = "kafka"
)

// Derived subgroup label policies.
const (
	DerivedLabelFull      = "full"
	DerivedLabelFirstWord = "first_word"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Catalog   CatalogConfig
	Cart      CartConfig
	Assets    AssetsConfig
	Checkout  CheckoutConfig
	Events    EventsConfig
	CORS      CORSConfig
	Menu      MenuConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	DatabaseURL     string
	StorageBucket   string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// CatalogConfig selects where categories and products are read from.
type CatalogConfig struct {
	Source               string
	File                 string
	PollInterval         time.Duration
	CategoriesCollection string
	ProductsCollection   string
}

// CartConfig selects and tunes cart persistence.
type CartConfig struct {
	Store         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	KeyPrefix     string
	Collection    string
}

// AssetsConfig controls product image URL resolution.
type AssetsConfig struct {
	PlaceholderURL   string
	SignedURLTTL     time.Duration
	SignerEmail      string
	SignerPrivateKey string
	Concurrency      int
}

// CheckoutConfig shapes the messaging hand-off.
type CheckoutConfig struct {
	Host      string
	Recipient string
	Greeting  string
	Currency  string
	Locale    string
}

// EventsConfig configures where checkout hand-off events are published.
type EventsConfig struct {
	Sink         string
	PubSubTopic  string
	KafkaBrokers []string
	KafkaTopic   string
}

// CORSConfig lists origins allowed to call the public API from browsers.
type CORSConfig struct {
	AllowedOrigins []string
}

// MenuConfig tunes the menu grouping rules.
type MenuConfig struct {
	BuildYourOwnMarker string
	DerivedLabelPolicy string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved empty.
type MissingSecretsError struct {
	names []string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.names) == 0 {
		return "missing required secrets"
	}
	redacted := make([]string, 0, len(e.names))
	for _, name := range e.names {
		redacted = append(redacted, redactSecretName(name))
	}
	sort.Strings(redacted)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(redacted, ", "))
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map that wins over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for sm:// and secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks config fields (e.g. "Cart.RedisPassword") that must resolve non-empty.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// EnvironmentValues returns the merged environment (dotenv < OS env < explicit map)
// so callers can build dependencies, such as the secret fetcher, before Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)

	values, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				continue
			}
			values[key] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
			DatabaseURL:     stringWithDefault(lookup, "API_FIREBASE_DATABASE_URL", ""),
			StorageBucket:   stringWithDefault(lookup, "API_FIREBASE_STORAGE_BUCKET", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Catalog: CatalogConfig{
			Source:               strings.ToLower(stringWithDefault(lookup, "API_CATALOG_SOURCE", defaultCatalogSource)),
			File:                 stringWithDefault(lookup, "API_CATALOG_FILE", ""),
			PollInterval:         durationWithDefault(lookup, "API_CATALOG_POLL_INTERVAL", defaultCatalogPoll),
			CategoriesCollection: stringWithDefault(lookup, "API_CATALOG_CATEGORIES_COLLECTION", defaultCategoriesColl),
			ProductsCollection:   stringWithDefault(lookup, "API_CATALOG_PRODUCTS_COLLECTION", defaultProductsColl),
		},
		Cart: CartConfig{
			Store:         strings.ToLower(stringWithDefault(lookup, "API_CART_STORE", defaultCartStore)),
			RedisAddr:     stringWithDefault(lookup, "API_CART_REDIS_ADDR", ""),
			RedisPassword: stringWithDefault(lookup, "API_CART_REDIS_PASSWORD", ""),
			RedisDB:       intWithDefault(lookup, "API_CART_REDIS_DB", 0),
			TTL:           durationWithDefault(lookup, "API_CART_TTL", defaultCartTTL),
			KeyPrefix:     stringWithDefault(lookup, "API_CART_KEY_PREFIX", defaultCartKeyPrefix),
			Collection:    stringWithDefault(lookup, "API_CART_FIRESTORE_COLLECTION", defaultCartCollection),
		},
		Assets: AssetsConfig{
			PlaceholderURL:   stringWithDefault(lookup, "API_ASSETS_PLACEHOLDER_URL", defaultPlaceholderURL),
			SignedURLTTL:     durationWithDefault(lookup, "API_ASSETS_SIGNED_URL_TTL", defaultSignedURLTTL),
			SignerEmail:      stringWithDefault(lookup, "API_ASSETS_SIGNER_EMAIL", ""),
			SignerPrivateKey: stringWithDefault(lookup, "API_ASSETS_SIGNER_PRIVATE_KEY", ""),
			Concurrency:      intWithDefault(lookup, "API_ASSETS_CONCURRENCY", defaultAssetConcurrency),
		},
		Checkout: CheckoutConfig{
			Host:      stringWithDefault(lookup, "API_CHECKOUT_HOST", defaultCheckoutHost),
			Recipient: stringWithDefault(lookup, "API_CHECKOUT_RECIPIENT", ""),
			Greeting:  stringWithDefault(lookup, "API_CHECKOUT_GREETING", defaultCheckoutGreeting),
			Currency:  strings.ToUpper(stringWithDefault(lookup, "API_CHECKOUT_CURRENCY", defaultCheckoutCurrency)),
			Locale:    stringWithDefault(lookup, "API_CHECKOUT_LOCALE", defaultCheckoutLocale),
		},
		Events: EventsConfig{
			Sink:         strings.ToLower(stringWithDefault(lookup, "API_EVENTS_SINK", defaultEventsSink)),
			PubSubTopic:  stringWithDefault(lookup, "API_EVENTS_PUBSUB_TOPIC", ""),
			KafkaBrokers: csvWithDefault(lookup, "API_EVENTS_KAFKA_BROKERS"),
			KafkaTopic:   stringWithDefault(lookup, "API_EVENTS_KAFKA_TOPIC", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: csvWithDefault(lookup, "API_CORS_ALLOWED_ORIGINS"),
		},
		Menu: MenuConfig{
			BuildYourOwnMarker: strings.ToLower(stringWithDefault(lookup, "API_MENU_BUILD_YOUR_OWN_MARKER", defaultBuildYourOwnMarker)),
			DerivedLabelPolicy: strings.ToLower(stringWithDefault(lookup, "API_MENU_DERIVED_LABEL", defaultDerivedLabelPolicy)),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	resolvedSecrets := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Cart.RedisPassword", &cfg.Cart.RedisPassword},
		{"Assets.SignerPrivateKey", &cfg.Assets.SignerPrivateKey},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = resolved
		resolvedSecrets[target.name] = strings.TrimSpace(resolved)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}

	needsFirebase := false
	switch cfg.Catalog.Source {
	case CatalogSourceFirestore:
		needsFirebase = true
	case CatalogSourceRTDB:
		needsFirebase = true
		if cfg.Firebase.DatabaseURL == "" {
			missing = append(missing, "Firebase.DatabaseURL")
		}
	case CatalogSourceFile:
		if cfg.Catalog.File == "" {
			missing = append(missing, "Catalog.File")
		}
	default:
		missing = append(missing, "Catalog.Source")
	}
	if cfg.Catalog.PollInterval <= 0 {
		missing = append(missing, "Catalog.PollInterval")
	}

	switch cfg.Cart.Store {
	case CartStoreMemory:
	case CartStoreRedis:
		if cfg.Cart.RedisAddr == "" {
			missing = append(missing, "Cart.RedisAddr")
		}
	case CartStoreFirestore:
		needsFirebase = true
	default:
		missing = append(missing, "Cart.Store")
	}
	if strings.TrimSpace(cfg.Cart.KeyPrefix) == "" {
		missing = append(missing, "Cart.KeyPrefix")
	}

	if needsFirebase && cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}

	if cfg.Checkout.Recipient == "" {
		missing = append(missing, "Checkout.Recipient")
	}
	if cfg.Checkout.Host == "" {
		missing = append(missing, "Checkout.Host")
	}

	switch cfg.Events.Sink {
	case EventsSinkNone:
	case EventsSinkPubSub:
		if cfg.Events.PubSubTopic == "" {
			missing = append(missing, "Events.PubSubTopic")
		}
		if cfg.Firebase.ProjectID == "" {
			missing = append(missing, "Firebase.ProjectID")
		}
	case EventsSinkKafka:
		if len(cfg.Events.KafkaBrokers) == 0 {
			missing = append(missing, "Events.KafkaBrokers")
		}
		if cfg.Events.KafkaTopic == "" {
			missing = append(missing, "Events.KafkaTopic")
		}
	default:
		missing = append(missing, "Events.Sink")
	}

	if cfg.Assets.Concurrency <= 0 {
		missing = append(missing, "Assets.Concurrency")
	}

	switch cfg.Menu.DerivedLabelPolicy {
	case DerivedLabelFull, DerivedLabelFirstWord:
	default:
		missing = append(missing, "Menu.DerivedLabelPolicy")
	}
	if strings.TrimSpace(cfg.Menu.BuildYourOwnMarker) == "" {
		missing = append(missing, "Menu.BuildYourOwnMarker")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: dedupe(missing)}
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var missing []string
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if resolved[trimmed] == "" {
			missing = append(missing, trimmed)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
