// Package settings persists per-user grid preferences (column visibility, width, order)
// in a key-value store.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrNotFound = errors.New("setting not found")

// Store is the external key-value store. Values are opaque JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ColumnsKey is the key the column layout of a grid is stored under.
func ColumnsKey(gridName string) string {
	return fmt.Sprintf("grid:%s:columns", gridName)
}

// ColumnSetting is the persisted state of one column.
type ColumnSetting struct {
	Field  string `json:"field"`
	Hidden bool   `json:"hidden"`
	Width  int    `json:"width,omitempty"`
	Order  int    `json:"order"`
}

// LoadColumns reads the column layout of a grid. A missing key is not an error.
func LoadColumns(ctx context.Context, s Store, gridName string) ([]ColumnSetting, error) {
	raw, err := s.Get(ctx, ColumnsKey(gridName))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cols []ColumnSetting
	if err := json.Unmarshal(raw, &cols); err != nil {
		return nil, fmt.Errorf("invalid column settings for %s: %w", gridName, err)
	}
	return cols, nil
}

// SaveColumns writes the column layout of a grid.
func SaveColumns(ctx context.Context, s Store, gridName string, cols []ColumnSetting) error {
	raw, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("failed to encode column settings: %w", err)
	}
	return s.Set(ctx, ColumnsKey(gridName), raw)
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
