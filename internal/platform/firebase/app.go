package firebase

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/config"
)

// App wraps the Admin SDK app and the clients the service needs from it.
type App struct {
	app    *firebase.App
	bucket string
}

// NewApp initialises the Admin SDK from configuration.
func NewApp(ctx context.Context, cfg config.FirebaseConfig, opts ...option.ClientOption) (*App, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		DatabaseURL:   cfg.DatabaseURL,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	return &App{app: app, bucket: cfg.StorageBucket}, nil
}

// Database returns the Realtime Database client.
func (a *App) Database(ctx context.Context) (*db.Client, error) {
	client, err := a.app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise realtime database client: %w", err)
	}
	return client, nil
}

// Bucket returns the configured default storage bucket and its name.
func (a *App) Bucket(ctx context.Context) (*gcs.BucketHandle, string, error) {
	if a.bucket == "" {
		return nil, "", errors.New("firebase storage bucket is not configured")
	}
	client, err := a.app.Storage(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("initialise firebase storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, "", fmt.Errorf("open default bucket: %w", err)
	}
	return bucket, a.bucket, nil
}
