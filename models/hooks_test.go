package models_test

import (
	"testing"

	"recipebox/models"
	"recipebox/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientNameIsCapitalizedOnSave(t *testing.T) {
	db := testutil.NewDB(t)

	ing := models.Ingredient{Name: "oignon"}
	require.NoError(t, db.Create(&ing).Error)

	var names []string
	require.NoError(t, db.Model(&models.Ingredient{}).Where("LOWER(name) = ?", "oignon").Pluck("name", &names).Error)
	assert.Equal(t, []string{"Oignon"}, names)

	ing.Name = "échalote"
	require.NoError(t, db.Save(&ing).Error)
	var stored models.Ingredient
	require.NoError(t, db.First(&stored, ing.ID).Error)
	assert.Equal(t, "Échalote", stored.Name)
	assert.Equal(t, "échalote", stored.SearchName)
}

func TestEmptyIngredientNameIsStoredAsIs(t *testing.T) {
	db := testutil.NewDB(t)

	ing := models.Ingredient{Name: ""}
	require.NoError(t, db.Create(&ing).Error)

	var stored models.Ingredient
	require.NoError(t, db.First(&stored, ing.ID).Error)
	assert.Equal(t, "", stored.Name)
}

func TestTagIsLowercasedOnSave(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, db.Create(&models.Tag{Tag: "Easy"}).Error)

	var tags []string
	require.NoError(t, db.Model(&models.Tag{}).Where("tag = ?", "easy").Pluck("tag", &tags).Error)
	assert.Equal(t, []string{"easy"}, tags)
}

func TestRecipeNameIsCapitalizedOnCreateAndUpdate(t *testing.T) {
	db := testutil.NewDB(t)

	r := models.Recipe{Name: "pesto pasta", Instructions: "Cook the pasta."}
	require.NoError(t, db.Create(&r).Error)
	assert.Equal(t, "Pesto pasta", r.Name)

	r.Name = "la pastaaa"
	require.NoError(t, db.Save(&r).Error)

	var stored models.Recipe
	require.NoError(t, db.First(&stored, r.ID).Error)
	assert.Equal(t, "La pastaaa", stored.Name)
	assert.Equal(t, "la pastaaa", stored.SearchName)
}

func TestNormalizationIsNotAppliedOnRead(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, db.Exec("INSERT INTO tags (tag) VALUES (?)", "MiXeD").Error)

	var tag models.Tag
	require.NoError(t, db.First(&tag).Error)
	assert.Equal(t, "MiXeD", tag.Tag)
}
