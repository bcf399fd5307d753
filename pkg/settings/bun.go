package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// GridSetting is the row both database stores persist.
type GridSetting struct {
	bun.BaseModel `bun:"table:grid_settings" gorm:"-"`

	Name      string    `gorm:"column:name;primaryKey;size:255" bun:"name,pk"`
	Value     string    `gorm:"column:value;type:text" bun:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at" bun:"updated_at"`
}

func (GridSetting) TableName() string {
	return "grid_settings"
}

// BunStore keeps settings in the grid_settings table through Bun.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// Migrate creates the settings table.
func (s *BunStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*GridSetting)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *BunStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := new(GridSetting)
	err := s.db.NewSelect().Model(row).Where("name = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return []byte(row.Value), nil
}

func (s *BunStore) Set(ctx context.Context, key string, value []byte) error {
	row := &GridSetting{Name: key, Value: string(value), UpdatedAt: time.Now()}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (s *BunStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().Model((*GridSetting)(nil)).Where("name = ?", key).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
