package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	downloadTokensKey   = "firebaseStorageDownloadTokens"
	defaultSignedURLTTL = time.Hour
	firebaseDownloadURL = "https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s"
	publicObjectURL     = "https://storage.googleapis.com/%s/%s"
)

// ErrAssetNotFound is returned when the image path does not name an existing object.
var ErrAssetNotFound = errors.New("storage: asset not found")

// ObjectAttrsReader reads object metadata.
type ObjectAttrsReader interface {
	Attrs(ctx context.Context, object string) (*storage.ObjectAttrs, error)
}

// BucketReader adapts a bucket handle to ObjectAttrsReader.
type BucketReader struct {
	Bucket *storage.BucketHandle
}

func (b BucketReader) Attrs(ctx context.Context, object string) (*storage.ObjectAttrs, error) {
	return b.Bucket.Object(object).Attrs(ctx)
}

// Resolver maps stored image paths to fetchable URLs. Objects uploaded through Firebase
// carry a download token and get a token URL; others get a V4 signed URL when a signer
// is configured, or the public object URL otherwise.
type Resolver struct {
	bucket  string
	objects ObjectAttrsReader
	signer  Signer
	ttl     time.Duration
	now     func() time.Time
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithSigner enables signed URLs for objects without a download token.
func WithSigner(signer Signer) ResolverOption {
	return func(r *Resolver) { r.signer = signer }
}

// WithSignedURLTTL overrides the signed URL lifetime.
func WithSignedURLTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock injects a custom clock.
func WithClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewResolver builds a Resolver for one bucket.
func NewResolver(bucket string, objects ObjectAttrsReader, opts ...ResolverOption) (*Resolver, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	if objects == nil {
		return nil, errors.New("storage: object reader is required")
	}
	r := &Resolver{bucket: bucket, objects: objects, ttl: defaultSignedURLTTL, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Resolve returns a URL for path. Absolute http(s) URLs are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, path string) (string, error) {
	object := strings.TrimLeft(strings.TrimSpace(path), "/")
	if object == "" {
		return "", ErrAssetNotFound
	}
	if strings.HasPrefix(object, "http://") || strings.HasPrefix(object, "https://") {
		return object, nil
	}
	if gsPrefix := "gs://" + r.bucket + "/"; strings.HasPrefix(object, gsPrefix) {
		object = strings.TrimPrefix(object, gsPrefix)
	}

	attrs, err := r.objects.Attrs(ctx, object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", fmt.Errorf("%w: %s", ErrAssetNotFound, object)
		}
		return "", fmt.Errorf("storage: read attrs for %s: %w", object, err)
	}

	if token := firstToken(attrs.Metadata[downloadTokensKey]); token != "" {
		return fmt.Sprintf(firebaseDownloadURL, r.bucket, url.PathEscape(object), url.QueryEscape(token)), nil
	}

	if r.signer == nil || r.signer.Email() == "" {
		return fmt.Sprintf(publicObjectURL, r.bucket, escapeObjectPath(object)), nil
	}

	signed, err := storage.SignedURL(r.bucket, object, &storage.SignedURLOptions{
		GoogleAccessID: r.signer.Email(),
		SignBytes:      r.signer.SignBytes,
		Method:         http.MethodGet,
		Expires:        r.now().Add(r.ttl),
		Scheme:         storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("storage: sign url for %s: %w", object, err)
	}
	return signed, nil
}

func firstToken(tokens string) string {
	first, _, _ := strings.Cut(tokens, ",")
	return strings.TrimSpace(first)
}

func escapeObjectPath(object string) string {
	segments := strings.Split(object, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
