package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

// Options configure the Redis connection for cart storage.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a Redis client and verifies connectivity.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// CartRepository stores each cart as one JSON value under "<prefix>:<cartID>".
type CartRepository struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository binds the repository to a client. A ttl of zero keeps carts forever.
func NewCartRepository(client *goredis.Client, prefix string, ttl time.Duration) (*CartRepository, error) {
	if client == nil {
		return nil, errors.New("redis cart repository: client is required")
	}
	if prefix == "" {
		prefix = repositories.DefaultCartKeyPrefix
	}
	return &CartRepository{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *CartRepository) Load(ctx context.Context, cartID string) (domain.Cart, error) {
	data, err := r.client.Get(ctx, repositories.CartKey(r.prefix, cartID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Cart{}, repositories.NotFound("redis.cart.load")
	}
	if err != nil {
		return domain.Cart{}, repositories.Unavailable("redis.cart.load", err)
	}
	cart, err := repositories.DecodeCart(cartID, data)
	if err != nil {
		return domain.Cart{}, &repositories.Error{Op: "redis.cart.load", Err: err}
	}
	return cart, nil
}

func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	data, err := repositories.EncodeCart(cart)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, repositories.CartKey(r.prefix, cart.ID), data, r.ttl).Err(); err != nil {
		return repositories.Unavailable("redis.cart.save", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	if err := r.client.Del(ctx, repositories.CartKey(r.prefix, cartID)).Err(); err != nil {
		return repositories.Unavailable("redis.cart.delete", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *CartRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
