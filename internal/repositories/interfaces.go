package repositories

import (
	"context"
	"errors"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogSource pushes full replacement snapshots of the catalog. Each Watch call
// blocks, invoking fn once per snapshot, until ctx is done or the source fails.
type CatalogSource interface {
	WatchCategories(ctx context.Context, fn func([]domain.Category)) error
	WatchProducts(ctx context.Context, fn func([]domain.Product)) error
}

// CartRepository persists visitor carts keyed by cart session id.
// Load returns a RepositoryError with IsNotFound for unknown carts.
type CartRepository interface {
	Load(ctx context.Context, cartID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	Delete(ctx context.Context, cartID string) error
}

// IsNotFound reports whether err is a RepositoryError flagged as not found.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsUnavailable reports whether err is a RepositoryError flagged as unavailable.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

// Error is a RepositoryError for adapters without a native error taxonomy.
type Error struct {
	Op          string
	Err         error
	NotFound    bool
	Conflict    bool
	Unavailable bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) IsNotFound() bool { return e.NotFound }

func (e *Error) IsConflict() bool { return e.Conflict }

func (e *Error) IsUnavailable() bool { return e.Unavailable }

// ErrNotFound is the cause used by NotFound.
var ErrNotFound = errors.New("not found")

// NotFound builds a not-found RepositoryError for op.
func NotFound(op string) *Error {
	return &Error{Op: op, Err: ErrNotFound, NotFound: true}
}

// Unavailable builds an unavailable RepositoryError for op.
func Unavailable(op string, err error) *Error {
	return &Error{Op: op, Err: err, Unavailable: true}
}

// HealthRepository evaluates backing dependencies for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}
