package models

import (
	"time"

	"gorm.io/gorm"
)

const TagMaxLen = 20

// Tag is a short lower-case label used for categorization and search.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Tag       string    `gorm:"size:20;not null;index" json:"tag"`
	Recipes   []Recipe  `gorm:"many2many:recipe_tags;" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (t *Tag) BeforeSave(tx *gorm.DB) error {
	t.Tag = NormalizeTag(t.Tag)
	return nil
}

func (t Tag) String() string {
	return t.Tag
}
