package store

import (
	"context"
	"sync"
	"time"

	"imageapi/pkg/domain"
)

// MemoryStore keeps asset records in-process. It backs tests that exercise
// the synchronization engine without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	tables map[domain.Category]map[domain.Key]domain.Record
}

// NewMemoryStore initializes an empty in-memory store with one table per
// category.
func NewMemoryStore() *MemoryStore {
	tables := make(map[domain.Category]map[domain.Key]domain.Record, 3)
	for _, cat := range domain.Categories() {
		tables[cat] = make(map[domain.Key]domain.Record)
	}
	return &MemoryStore{tables: tables}
}

// FindByKey performs an exact-match lookup on the category's natural key.
func (m *MemoryStore) FindByKey(_ context.Context, cat domain.Category, key domain.Key) (domain.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.tables[cat][key]
	return rec, ok, nil
}

// Insert stores a new record and returns a fresh id.
func (m *MemoryStore) Insert(_ context.Context, cat domain.Category, rec domain.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.tables[cat][RecordKey(cat, rec)] = rec
	return rec.ID, nil
}

// UpdateByKey replaces the descriptor fields of the record matching the key.
func (m *MemoryStore) UpdateByKey(_ context.Context, cat domain.Category, key domain.Key, rec domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tables[cat][key]
	if !ok {
		return nil
	}
	existing.Filename = rec.Filename
	existing.URL = rec.URL
	existing.MimeType = rec.MimeType
	if cat == domain.CategoryBusinessGallery {
		existing.Title = rec.Title
	} else {
		existing.ImageGUID = rec.ImageGUID
	}
	existing.UpdatedAt = time.Now().UTC()
	m.tables[cat][key] = existing
	return nil
}

// DeleteByKey removes the record matching the key.
func (m *MemoryStore) DeleteByKey(_ context.Context, cat domain.Category, key domain.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables[cat], key)
	return nil
}

// Count reports how many records a category holds.
func (m *MemoryStore) Count(cat domain.Category) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[cat])
}

// OnlyRecord returns the single record of a category, if there is exactly one.
func (m *MemoryStore) OnlyRecord(cat domain.Category) (domain.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.tables[cat]) != 1 {
		return domain.Record{}, false
	}
	for _, rec := range m.tables[cat] {
		return rec, true
	}
	return domain.Record{}, false
}
