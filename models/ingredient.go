package models

import (
	"time"

	"gorm.io/gorm"
)

const IngredientNameMaxLen = 256

// Ingredient is shared between recipes and never removed with them.
type Ingredient struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:256;not null;index" json:"name"`
	SearchName string    `gorm:"size:256;index" json:"-"` // lower-cased Name
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	i.Name = NormalizeName(i.Name)
	i.SearchName = SearchKey(i.Name)
	return nil
}

func (i Ingredient) String() string {
	return i.Name
}
