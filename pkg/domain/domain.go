package domain

import "time"

// Category identifies one asset kind. Each category owns a storage directory
// (which doubles as its public URL prefix) and a database table.
type Category string

const (
	CategoryUserProfile     Category = "user_profile_pics"
	CategoryBusinessProfile Category = "business_profile_pics"
	CategoryBusinessGallery Category = "business_gallery_pics"
)

// Categories lists every asset category.
func Categories() []Category {
	return []Category{CategoryUserProfile, CategoryBusinessProfile, CategoryBusinessGallery}
}

// Dir returns the directory name / URL prefix of the category.
func (c Category) Dir() string { return string(c) }

// Key is the caller-supplied identity addressing one asset record.
// BusinessGUID is empty for the user-profile category. ImageGUID is part of
// the key only for gallery items; profile categories hold at most one record
// per user (or user+business) pair.
type Key struct {
	UserGUID     string
	BusinessGUID string
	ImageGUID    string
}

// Record describes one stored image: its identity fields and the file
// currently backing it. The filename, URL and mime type are replaced wholesale
// on every upload; Title exists only for gallery items.
type Record struct {
	ID           int64     `json:"id"`
	UserGUID     string    `json:"userGuid"`
	BusinessGUID string    `json:"businessGuid,omitempty"`
	ImageGUID    string    `json:"imageGuid,omitempty"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mimeType"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
