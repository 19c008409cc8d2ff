package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

func writeSnapshot(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestCatalogSourceReloadsOnModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	writeSnapshot(t, path, `{"categorias":{"lanches":{"nome":"Lanches","ativa":true,"ordem":1}}}`, base)

	source, err := NewCatalogSource(path, 5*time.Millisecond, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan []domain.Category, 4)
	done := make(chan error, 1)
	go func() {
		done <- source.WatchCategories(ctx, func(categories []domain.Category) { snapshots <- categories })
	}()

	first := receive(t, snapshots)
	require.Len(t, first, 1)
	require.Equal(t, "Lanches", first[0].Name)

	writeSnapshot(t, path, `{"categorias":{
		"lanches":{"nome":"Lanches","ativa":true,"ordem":1},
		"bebidas":{"nome":"Bebidas","ativa":false,"ordem":2}
	}}`, base.Add(time.Minute))

	second := receive(t, snapshots)
	require.Len(t, second, 2)
	require.Equal(t, "bebidas", second[0].ID)
	require.False(t, second[0].Active)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestCatalogSourceMissingFile(t *testing.T) {
	source, err := NewCatalogSource(filepath.Join(t.TempDir(), "absent.json"), 0, nil, nil)
	require.NoError(t, err)

	err = source.WatchProducts(context.Background(), func([]domain.Product) {
		t.Fatal("no snapshot expected")
	})
	require.Error(t, err)
}

func TestNewCatalogSourceRequiresPath(t *testing.T) {
	_, err := NewCatalogSource("  ", 0, nil, nil)
	require.Error(t, err)
}

func receive(t *testing.T, ch <-chan []domain.Category) []domain.Category {
	t.Helper()
	select {
	case categories := <-ch:
		return categories
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
