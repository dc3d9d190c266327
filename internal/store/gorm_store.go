package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"imageapi/pkg/domain"
)

// GormStore implements Store using GORM + Postgres, one table per category.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB, bounds the connection pool and runs
// auto-migrations for the three image tables.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.AutoMigrate(&UserProfileImageModel{}, &BusinessProfileImageModel{}, &GalleryImageModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// FindByKey performs an exact-match lookup on the category's natural key.
func (s *GormStore) FindByKey(ctx context.Context, cat domain.Category, key domain.Key) (domain.Record, bool, error) {
	tx := s.keyScope(ctx, cat, key)
	switch cat {
	case domain.CategoryUserProfile:
		var m UserProfileImageModel
		if err := tx.First(&m).Error; err != nil {
			return domain.Record{}, false, ignoreNotFound(err)
		}
		return userProfileFromModel(m), true, nil
	case domain.CategoryBusinessProfile:
		var m BusinessProfileImageModel
		if err := tx.First(&m).Error; err != nil {
			return domain.Record{}, false, ignoreNotFound(err)
		}
		return businessProfileFromModel(m), true, nil
	case domain.CategoryBusinessGallery:
		var m GalleryImageModel
		if err := tx.First(&m).Error; err != nil {
			return domain.Record{}, false, ignoreNotFound(err)
		}
		return galleryFromModel(m), true, nil
	}
	return domain.Record{}, false, fmt.Errorf("unknown category %q", cat)
}

// Insert creates a new record and returns the store-assigned id.
func (s *GormStore) Insert(ctx context.Context, cat domain.Category, rec domain.Record) (int64, error) {
	switch cat {
	case domain.CategoryUserProfile:
		m := userProfileToModel(rec)
		if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
			return 0, err
		}
		return m.ID, nil
	case domain.CategoryBusinessProfile:
		m := businessProfileToModel(rec)
		if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
			return 0, err
		}
		return m.ID, nil
	case domain.CategoryBusinessGallery:
		m := galleryToModel(rec)
		if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
			return 0, err
		}
		return m.ID, nil
	}
	return 0, fmt.Errorf("unknown category %q", cat)
}

// UpdateByKey replaces the file-descriptor fields (and title for gallery
// items) of the record matching the key.
func (s *GormStore) UpdateByKey(ctx context.Context, cat domain.Category, key domain.Key, rec domain.Record) error {
	fields := map[string]any{
		"image_filename": rec.Filename,
		"image_url":      rec.URL,
		"mimetype":       rec.MimeType,
		"updated_at":     time.Now().UTC(),
	}
	switch cat {
	case domain.CategoryUserProfile:
		fields["image_guid"] = rec.ImageGUID
		return s.keyScope(ctx, cat, key).Model(&UserProfileImageModel{}).Updates(fields).Error
	case domain.CategoryBusinessProfile:
		fields["image_guid"] = rec.ImageGUID
		return s.keyScope(ctx, cat, key).Model(&BusinessProfileImageModel{}).Updates(fields).Error
	case domain.CategoryBusinessGallery:
		fields["image_title"] = rec.Title
		return s.keyScope(ctx, cat, key).Model(&GalleryImageModel{}).Updates(fields).Error
	}
	return fmt.Errorf("unknown category %q", cat)
}

// DeleteByKey removes the record matching the key.
func (s *GormStore) DeleteByKey(ctx context.Context, cat domain.Category, key domain.Key) error {
	switch cat {
	case domain.CategoryUserProfile:
		return s.keyScope(ctx, cat, key).Delete(&UserProfileImageModel{}).Error
	case domain.CategoryBusinessProfile:
		return s.keyScope(ctx, cat, key).Delete(&BusinessProfileImageModel{}).Error
	case domain.CategoryBusinessGallery:
		return s.keyScope(ctx, cat, key).Delete(&GalleryImageModel{}).Error
	}
	return fmt.Errorf("unknown category %q", cat)
}

// keyScope builds the WHERE clause for the category's natural key. Every key
// value goes through a placeholder, never into query text.
func (s *GormStore) keyScope(ctx context.Context, cat domain.Category, key domain.Key) *gorm.DB {
	tx := s.db.WithContext(ctx).Where("user_guid = ?", key.UserGUID)
	if cat != domain.CategoryUserProfile {
		tx = tx.Where("business_guid = ?", key.BusinessGUID)
	}
	if cat == domain.CategoryBusinessGallery {
		tx = tx.Where("image_guid = ?", key.ImageGUID)
	}
	return tx
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func userProfileToModel(r domain.Record) UserProfileImageModel {
	return UserProfileImageModel{
		ID:            r.ID,
		ImageFilename: r.Filename,
		UserGUID:      r.UserGUID,
		ImageGUID:     r.ImageGUID,
		ImageURL:      r.URL,
		MimeType:      r.MimeType,
	}
}

func userProfileFromModel(m UserProfileImageModel) domain.Record {
	return domain.Record{
		ID:        m.ID,
		UserGUID:  m.UserGUID,
		ImageGUID: m.ImageGUID,
		Filename:  m.ImageFilename,
		URL:       m.ImageURL,
		MimeType:  m.MimeType,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func businessProfileToModel(r domain.Record) BusinessProfileImageModel {
	return BusinessProfileImageModel{
		ID:            r.ID,
		ImageFilename: r.Filename,
		UserGUID:      r.UserGUID,
		BusinessGUID:  r.BusinessGUID,
		ImageGUID:     r.ImageGUID,
		ImageURL:      r.URL,
		MimeType:      r.MimeType,
	}
}

func businessProfileFromModel(m BusinessProfileImageModel) domain.Record {
	return domain.Record{
		ID:           m.ID,
		UserGUID:     m.UserGUID,
		BusinessGUID: m.BusinessGUID,
		ImageGUID:    m.ImageGUID,
		Filename:     m.ImageFilename,
		URL:          m.ImageURL,
		MimeType:     m.MimeType,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func galleryToModel(r domain.Record) GalleryImageModel {
	return GalleryImageModel{
		ID:            r.ID,
		ImageFilename: r.Filename,
		UserGUID:      r.UserGUID,
		BusinessGUID:  r.BusinessGUID,
		ImageGUID:     r.ImageGUID,
		ImageURL:      r.URL,
		MimeType:      r.MimeType,
		ImageTitle:    r.Title,
	}
}

func galleryFromModel(m GalleryImageModel) domain.Record {
	return domain.Record{
		ID:           m.ID,
		UserGUID:     m.UserGUID,
		BusinessGUID: m.BusinessGUID,
		ImageGUID:    m.ImageGUID,
		Filename:     m.ImageFilename,
		URL:          m.ImageURL,
		MimeType:     m.MimeType,
		Title:        m.ImageTitle,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
