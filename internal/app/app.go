package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"imageapi/internal/keylock"
	"imageapi/internal/storage"
	"imageapi/internal/store"
	"imageapi/pkg/domain"
)

// Config holds the dependencies of the synchronization engine.
type Config struct {
	Files *storage.FileStore
	Store store.Store
	// Timeout bounds one request's file and database work. Zero means the
	// default of 30s.
	Timeout time.Duration
}

// App is the synchronization engine. Given identity fields and an optional new
// file it decides between create, replace, metadata-only update and delete,
// orders the file write before the record write, and reconciles the rest
// best-effort.
//
// Writers are serialized per (category, natural key), so two concurrent
// uploads for the same key cannot both take the create path or orphan each
// other's file silently.
type App struct {
	files   *storage.FileStore
	store   store.Store
	locks   *keylock.KeyLock
	timeout time.Duration
}

// Upload carries one inbound file payload.
type Upload struct {
	Reader   io.Reader
	Filename string
	MimeType string
}

// Result reports the affected record after a successful operation. URL is
// empty for deletes.
type Result struct {
	RecordID int64
	URL      string
}

// New validates and wires the engine.
func New(cfg Config) (*App, error) {
	if cfg.Files == nil {
		return nil, fmt.Errorf("file store is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &App{
		files:   cfg.Files,
		store:   cfg.Store,
		locks:   keylock.New(),
		timeout: cfg.Timeout,
	}, nil
}

// SaveUserProfilePic creates or replaces the single profile picture of a user.
func (a *App) SaveUserProfilePic(ctx context.Context, userGUID string, up *Upload) (Result, error) {
	if strings.TrimSpace(userGUID) == "" {
		return Result{}, fmt.Errorf("%w: guid is required", ErrBadRequest)
	}
	return a.saveProfilePic(ctx, domain.CategoryUserProfile, domain.Key{UserGUID: userGUID}, up)
}

// SaveBusinessProfilePic creates or replaces the single profile picture of a
// business.
func (a *App) SaveBusinessProfilePic(ctx context.Context, userGUID, businessGUID string, up *Upload) (Result, error) {
	if strings.TrimSpace(userGUID) == "" {
		return Result{}, fmt.Errorf("%w: guid is required", ErrBadRequest)
	}
	if strings.TrimSpace(businessGUID) == "" {
		return Result{}, fmt.Errorf("%w: bid is required", ErrBadRequest)
	}
	key := domain.Key{UserGUID: userGUID, BusinessGUID: businessGUID}
	return a.saveProfilePic(ctx, domain.CategoryBusinessProfile, key, up)
}

// saveProfilePic implements the at-most-one-per-key policy: absent key means
// create, present key means replace. The new file lands on disk before the
// record is written and before the old file goes away, so the record never
// points at a missing file because of this operation's own ordering.
func (a *App) saveProfilePic(ctx context.Context, cat domain.Category, key domain.Key, up *Upload) (Result, error) {
	if up == nil {
		return Result{}, ErrNoFile
	}
	ctx, cancel := a.bound(ctx)
	defer cancel()

	lk := lockKey(cat, key)
	a.locks.Lock(lk)
	defer a.locks.Unlock(lk)

	existing, found, err := a.store.FindByKey(ctx, cat, key)
	if err != nil {
		return Result{}, fmt.Errorf("lookup record: %w", err)
	}
	stored, err := a.files.Save(cat, up.Filename, up.Reader)
	if err != nil {
		return Result{}, fmt.Errorf("store file: %w", err)
	}
	rec := domain.Record{
		UserGUID:     key.UserGUID,
		BusinessGUID: key.BusinessGUID,
		ImageGUID:    uuid.NewString(),
		Filename:     stored.Filename,
		URL:          stored.URL,
		MimeType:     up.MimeType,
	}
	if !found {
		id, err := a.store.Insert(ctx, cat, rec)
		if err != nil {
			return Result{}, fmt.Errorf("insert record: %w", err)
		}
		return Result{RecordID: id, URL: stored.URL}, nil
	}
	a.removeSuperseded(cat, existing.Filename)
	if err := a.store.UpdateByKey(ctx, cat, key, rec); err != nil {
		return Result{}, fmt.Errorf("update record: %w", err)
	}
	return Result{RecordID: existing.ID, URL: stored.URL}, nil
}

// AddGalleryPic unconditionally creates a gallery item with a fresh
// server-generated image guid.
func (a *App) AddGalleryPic(ctx context.Context, userGUID, businessGUID, title string, up *Upload) (Result, error) {
	if strings.TrimSpace(userGUID) == "" {
		return Result{}, fmt.Errorf("%w: guid is required", ErrBadRequest)
	}
	if strings.TrimSpace(businessGUID) == "" {
		return Result{}, fmt.Errorf("%w: bid is required", ErrBadRequest)
	}
	if up == nil {
		return Result{}, ErrNoFile
	}
	ctx, cancel := a.bound(ctx)
	defer cancel()

	stored, err := a.files.Save(domain.CategoryBusinessGallery, up.Filename, up.Reader)
	if err != nil {
		return Result{}, fmt.Errorf("store file: %w", err)
	}
	rec := domain.Record{
		UserGUID:     userGUID,
		BusinessGUID: businessGUID,
		ImageGUID:    uuid.NewString(),
		Filename:     stored.Filename,
		URL:          stored.URL,
		MimeType:     up.MimeType,
		Title:        title,
	}
	id, err := a.store.Insert(ctx, domain.CategoryBusinessGallery, rec)
	if err != nil {
		return Result{}, fmt.Errorf("insert record: %w", err)
	}
	return Result{RecordID: id, URL: stored.URL}, nil
}

// UpdateGalleryPic updates an existing gallery item, addressed by its full
// key. With a file payload the backing file is replaced; without one only the
// title changes. A nil title means the field was omitted and the stored title
// is preserved; an empty non-nil title clears it.
func (a *App) UpdateGalleryPic(ctx context.Context, userGUID, businessGUID, imageGUID string, title *string, up *Upload) (Result, error) {
	key, err := galleryKey(userGUID, businessGUID, imageGUID)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := a.bound(ctx)
	defer cancel()

	cat := domain.CategoryBusinessGallery
	lk := lockKey(cat, key)
	a.locks.Lock(lk)
	defer a.locks.Unlock(lk)

	existing, found, err := a.store.FindByKey(ctx, cat, key)
	if err != nil {
		return Result{}, fmt.Errorf("lookup record: %w", err)
	}
	if !found {
		return Result{}, ErrNotFound
	}

	rec := existing
	if title != nil {
		rec.Title = *title
	}
	if up != nil {
		stored, err := a.files.Save(cat, up.Filename, up.Reader)
		if err != nil {
			return Result{}, fmt.Errorf("store file: %w", err)
		}
		a.removeSuperseded(cat, existing.Filename)
		rec.Filename = stored.Filename
		rec.URL = stored.URL
		rec.MimeType = up.MimeType
	}
	if err := a.store.UpdateByKey(ctx, cat, key, rec); err != nil {
		return Result{}, fmt.Errorf("update record: %w", err)
	}
	return Result{RecordID: existing.ID, URL: rec.URL}, nil
}

// DeleteGalleryPic removes a gallery item and, best-effort, its backing file.
// The response reflects only the record-store outcome.
func (a *App) DeleteGalleryPic(ctx context.Context, userGUID, businessGUID, imageGUID string) (Result, error) {
	key, err := galleryKey(userGUID, businessGUID, imageGUID)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := a.bound(ctx)
	defer cancel()

	cat := domain.CategoryBusinessGallery
	lk := lockKey(cat, key)
	a.locks.Lock(lk)
	defer a.locks.Unlock(lk)

	existing, found, err := a.store.FindByKey(ctx, cat, key)
	if err != nil {
		return Result{}, fmt.Errorf("lookup record: %w", err)
	}
	if !found {
		return Result{}, ErrNotFound
	}
	a.removeSuperseded(cat, existing.Filename)
	if err := a.store.DeleteByKey(ctx, cat, key); err != nil {
		return Result{}, fmt.Errorf("delete record: %w", err)
	}
	return Result{RecordID: existing.ID}, nil
}

// removeSuperseded deletes an old backing file. Failures are logged, never
// propagated: a stale file on disk beats blocking the caller's response.
func (a *App) removeSuperseded(cat domain.Category, filename string) {
	if filename == "" {
		return
	}
	if err := a.files.Remove(cat, filename); err != nil {
		slog.Warn("failed to delete old file",
			"category", string(cat),
			"filename", filename,
			"err", err,
		)
	}
}

func (a *App) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func galleryKey(userGUID, businessGUID, imageGUID string) (domain.Key, error) {
	if strings.TrimSpace(userGUID) == "" {
		return domain.Key{}, fmt.Errorf("%w: guid is required", ErrBadRequest)
	}
	if strings.TrimSpace(businessGUID) == "" {
		return domain.Key{}, fmt.Errorf("%w: bid is required", ErrBadRequest)
	}
	if strings.TrimSpace(imageGUID) == "" {
		return domain.Key{}, fmt.Errorf("%w: image_guid is required", ErrBadRequest)
	}
	return domain.Key{UserGUID: userGUID, BusinessGUID: businessGUID, ImageGUID: imageGUID}, nil
}

func lockKey(cat domain.Category, key domain.Key) string {
	return string(cat) + "\x00" + key.UserGUID + "\x00" + key.BusinessGUID + "\x00" + key.ImageGUID
}
