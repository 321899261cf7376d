// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"testing"

	"recipebox/config"
	"recipebox/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory sqlite database private to the test.
// A single connection keeps every query on the same in-memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// Fixtures are the two recipes the list and search tests run against.
type Fixtures struct {
	PestoPasta    models.Recipe
	ChickpeaSalad models.Recipe
}

// SeedRecipes stores "pesto pasta" (tag pasta) and "chickpea salad" (tags
// salad and easy) with their ingredients, both named in lower case.
func SeedRecipes(t testing.TB, db *gorm.DB) Fixtures {
	t.Helper()

	pasta := models.Recipe{
		Name:         "pesto pasta",
		Instructions: "Cook the pasta.\nMix in the pesto.",
		Notes:        "Add parmesan for extra flavour",
		Ingredients:  []models.Ingredient{Ingredient(t, db, "Pasta"), Ingredient(t, db, "Pesto")},
		Tags:         []models.Tag{Tag(t, db, "pasta")},
	}
	require.NoError(t, db.Omit("Ingredients.*", "Tags.*").Create(&pasta).Error)

	salad := models.Recipe{
		Name:         "chickpea salad",
		Instructions: "Mix all ingredients\nAdd lemon juice and olive oil dressing\nSalt and pepper to taste",
		Notes:        "Add croutons for crunch",
		Ingredients: []models.Ingredient{
			Ingredient(t, db, "tomato"),
			Ingredient(t, db, "cucumber"),
			Ingredient(t, db, "chickpea"),
		},
		Tags: []models.Tag{Tag(t, db, "salad"), Tag(t, db, "easy")},
	}
	require.NoError(t, db.Omit("Ingredients.*", "Tags.*").Create(&salad).Error)

	return Fixtures{PestoPasta: pasta, ChickpeaSalad: salad}
}

// Ingredient returns the stored ingredient named name, creating it if needed.
func Ingredient(t testing.TB, db *gorm.DB, name string) models.Ingredient {
	t.Helper()
	var ing models.Ingredient
	require.NoError(t, db.Where(models.Ingredient{Name: models.NormalizeName(name)}).FirstOrCreate(&ing).Error)
	return ing
}

// Tag returns the stored tag, creating it if needed.
func Tag(t testing.TB, db *gorm.DB, tag string) models.Tag {
	t.Helper()
	var out models.Tag
	require.NoError(t, db.Where(models.Tag{Tag: models.NormalizeTag(tag)}).FirstOrCreate(&out).Error)
	return out
}
