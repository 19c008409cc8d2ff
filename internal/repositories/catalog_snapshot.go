package repositories

import (
	"encoding/json"
	"fmt"
	"os"
)

// SnapshotFile is a catalog export with the same layout as the realtime database root.
type SnapshotFile struct {
	Categorias map[string]CategoryRecord `json:"categorias"`
	Produtos   map[string]ProductRecord  `json:"produtos"`
}

// LoadSnapshotFile reads a catalog export from disk.
func LoadSnapshotFile(path string) (SnapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SnapshotFile{}, fmt.Errorf("read catalog snapshot %s: %w", path, err)
	}
	var snapshot SnapshotFile
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return SnapshotFile{}, fmt.Errorf("decode catalog snapshot %s: %w", path, err)
	}
	return snapshot, nil
}
