// Package sqlcache is an alternate persistence backend for the cache
// memo (spec.md §4, component D / §6's on-disk layout), storing entries
// in a Postgres table via gorm instead of the flat tab-separated file.
// Deployments that already run Postgres for other state can point the
// cache here instead of managing a second file on disk.
package sqlcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/urlcleaner-go/engine/internal/cache"
)

// ErrStoreIO mirrors cache.ErrCacheIO for failures talking to Postgres.
var ErrStoreIO = errors.New("sqlcache: io error")

// EntryModel is the gorm model backing one memoized cache entry.
type EntryModel struct {
	Category   string `gorm:"primaryKey;size:255"`
	Key        string `gorm:"primaryKey"`
	DurationMs int64
	Value      string
	IsError    bool
	ErrorMsg   string
	UpdatedAt  time.Time
}

// TableName pins the table name regardless of struct name changes.
func (EntryModel) TableName() string { return "cache_entries" }

// Store persists cache entries to Postgres and can seed a cache.Cache's
// in-memory map at startup (the equivalent of cache.Cache's file loader).
type Store struct {
	db *gorm.DB
}

// New wraps an already-connected *gorm.DB and ensures the backing table
// exists.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&EntryModel{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrStoreIO, err)
	}
	return &Store{db: db}, nil
}

// LoadAll returns every stored entry as a key -> stored-result map,
// suitable for pre-populating a cache.Cache built with an empty Path.
func (s *Store) LoadAll(ctx context.Context) (map[cache.EntryKey]StoredResult, error) {
	var rows []EntryModel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: load: %v", ErrStoreIO, err)
	}

	out := make(map[cache.EntryKey]StoredResult, len(rows))
	for _, r := range rows {
		ek := cache.EntryKey{Category: r.Category, Key: r.Key}
		res := StoredResult{Duration: time.Duration(r.DurationMs) * time.Millisecond}
		if r.IsError {
			res.Err = errors.New(r.ErrorMsg)
		} else {
			res.Value = r.Value
		}
		out[ek] = res
	}
	return out, nil
}

// StoredResult is one loaded (or persisted) cache outcome.
type StoredResult struct {
	Value    string
	Err      error
	Duration time.Duration
}

// Put upserts one entry, keyed by (category, key).
func (s *Store) Put(ctx context.Context, ek cache.EntryKey, res StoredResult) error {
	row := EntryModel{
		Category:   ek.Category,
		Key:        ek.Key,
		DurationMs: res.Duration.Milliseconds(),
		UpdatedAt:  time.Now(),
	}
	if res.Err != nil {
		row.IsError = true
		row.ErrorMsg = res.Err.Error()
	} else {
		row.Value = res.Value
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: put: %v", ErrStoreIO, err)
	}
	return nil
}
