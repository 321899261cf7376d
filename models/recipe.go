package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const RecipeNameMaxLen = 256

// PictureDir is the storage prefix recipe pictures are written under.
const PictureDir = "photo_recipes"

type Recipe struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"size:256;not null;index" json:"name"`
	SearchName   string       `gorm:"size:256;index" json:"-"`           // lower-cased Name
	Picture      string       `gorm:"size:512" json:"picture,omitempty"` // storage key, empty when unset
	Instructions string       `gorm:"type:text;not null" json:"instructions"`
	Notes        string       `gorm:"type:text" json:"notes"`
	Ingredients  []Ingredient `gorm:"many2many:recipe_ingredients;" json:"ingredients"`
	Tags         []Tag        `gorm:"many2many:recipe_tags;" json:"tags"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (r *Recipe) BeforeSave(tx *gorm.DB) error {
	r.Name = NormalizeName(r.Name)
	r.SearchName = SearchKey(r.Name)
	return nil
}

func (r Recipe) String() string {
	return r.Name
}

// URL is the path of the recipe detail page.
func (r Recipe) URL() string {
	return fmt.Sprintf("/recipes/%d", r.ID)
}

// Order selects how recipe lists are sorted. Ties are broken by id.
type Order string

const (
	OrderNameAsc  Order = "name"
	OrderNameDesc Order = "-name"
)

// ParseOrder maps a query value to an Order, defaulting to OrderNameAsc.
func ParseOrder(s string) Order {
	if Order(s) == OrderNameDesc {
		return OrderNameDesc
	}
	return OrderNameAsc
}

// Clause is the ORDER BY expression for recipes.
func (o Order) Clause() string {
	if o == OrderNameDesc {
		return "recipes.name DESC, recipes.id DESC"
	}
	return "recipes.name ASC, recipes.id ASC"
}

// Less reports whether a sorts before b under o.
func (o Order) Less(a, b Recipe) bool {
	if a.Name != b.Name {
		if o == OrderNameDesc {
			return a.Name > b.Name
		}
		return a.Name < b.Name
	}
	if o == OrderNameDesc {
		return a.ID > b.ID
	}
	return a.ID < b.ID
}
