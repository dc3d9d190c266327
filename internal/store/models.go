package store

import "time"

// GORM models used for persistence. Table and column names match the legacy
// schema so existing data keeps working.
type UserProfileImageModel struct {
	ID            int64     `gorm:"primaryKey"`
	ImageFilename string    `gorm:"column:image_filename;not null"`
	UserGUID      string    `gorm:"column:user_guid;not null;index"`
	ImageGUID     string    `gorm:"column:image_guid;not null"`
	ImageURL      string    `gorm:"column:image_url;not null"`
	MimeType      string    `gorm:"column:mimetype;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (UserProfileImageModel) TableName() string { return "tbl_user_profile_image" }

type BusinessProfileImageModel struct {
	ID            int64     `gorm:"primaryKey"`
	ImageFilename string    `gorm:"column:image_filename;not null"`
	UserGUID      string    `gorm:"column:user_guid;not null;index"`
	BusinessGUID  string    `gorm:"column:business_guid;not null;index"`
	ImageGUID     string    `gorm:"column:image_guid;not null"`
	ImageURL      string    `gorm:"column:image_url;not null"`
	MimeType      string    `gorm:"column:mimetype;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (BusinessProfileImageModel) TableName() string { return "tbl_business_profile_image" }

type GalleryImageModel struct {
	ID            int64     `gorm:"primaryKey"`
	ImageFilename string    `gorm:"column:image_filename;not null"`
	UserGUID      string    `gorm:"column:user_guid;not null;index"`
	BusinessGUID  string    `gorm:"column:business_guid;not null;index"`
	ImageGUID     string    `gorm:"column:image_guid;not null;index"`
	ImageURL      string    `gorm:"column:image_url;not null"`
	MimeType      string    `gorm:"column:mimetype;not null"`
	ImageTitle    string    `gorm:"column:image_title"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (GalleryImageModel) TableName() string { return "tbl_business_gallery_image" }
