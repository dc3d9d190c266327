package store

import (
	"context"

	"imageapi/pkg/domain"
)

// Store defines persistence operations for asset records, parameterized by
// category. Key values must always be passed as bound parameters.
//
// UpdateByKey and DeleteByKey assume the uniqueness invariant holds: exactly
// one record matches the key. Callers enforce that with lookup-before-write
// under the per-key lock.
type Store interface {
	FindByKey(ctx context.Context, cat domain.Category, key domain.Key) (domain.Record, bool, error)
	Insert(ctx context.Context, cat domain.Category, rec domain.Record) (int64, error)
	UpdateByKey(ctx context.Context, cat domain.Category, key domain.Key, rec domain.Record) error
	DeleteByKey(ctx context.Context, cat domain.Category, key domain.Key) error
}

// RecordKey derives the natural key of a record for its category: user only,
// user+business, or user+business+image.
func RecordKey(cat domain.Category, rec domain.Record) domain.Key {
	key := domain.Key{UserGUID: rec.UserGUID}
	if cat != domain.CategoryUserProfile {
		key.BusinessGUID = rec.BusinessGUID
	}
	if cat == domain.CategoryBusinessGallery {
		key.ImageGUID = rec.ImageGUID
	}
	return key
}
