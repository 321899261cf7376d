package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"recipebox/models"
	"recipebox/utils"

	"gorm.io/gorm"
)

type IngredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// List returns every ingredient ordered by name.
func (s *IngredientService) List(ctx context.Context) ([]models.Ingredient, error) {
	var out []models.Ingredient
	err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// Search returns one page of ingredients whose name contains q.
func (s *IngredientService) Search(ctx context.Context, q string, page Page) ([]models.Ingredient, bool, error) {
	page = page.normalized()
	var out []models.Ingredient
	tx := s.db.WithContext(ctx).Model(&models.Ingredient{})
	if q = strings.TrimSpace(q); q != "" {
		tx = tx.Where("search_name LIKE ? ESCAPE '!'", "%"+escapeLike(models.SearchKey(q))+"%")
	}
	err := tx.Order("name ASC, id ASC").
		Offset(page.Offset()).
		Limit(page.Size + 1).
		Find(&out).Error
	if err != nil {
		return nil, false, err
	}
	more := len(out) > page.Size
	if more {
		out = out[:page.Size]
	}
	return out, more, nil
}

// Exists reports whether an ingredient is stored under the normalized name.
func (s *IngredientService) Exists(ctx context.Context, name string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Ingredient{}).
		Where("name = ?", models.NormalizeName(strings.TrimSpace(name))).
		Count(&n).Error
	return n > 0, err
}

// FindOrCreate normalizes name, then returns the stored ingredient with that
// name, creating it when absent.
func (s *IngredientService) FindOrCreate(ctx context.Context, name string) (*models.Ingredient, error) {
	return findOrCreateIngredient(s.db.WithContext(ctx), name)
}

func findOrCreateIngredient(tx *gorm.DB, name string) (*models.Ingredient, error) {
	name = models.NormalizeName(strings.TrimSpace(name))
	if name == "" {
		return nil, FieldErrors{"name": {utils.MsgRequired}}
	}
	if n := utf8.RuneCountInString(name); n > models.IngredientNameMaxLen {
		return nil, FieldErrors{"name": {utils.MaxLengthMessage(strconv.Itoa(models.IngredientNameMaxLen), name)}}
	}

	var ing models.Ingredient
	err := tx.Where(models.Ingredient{Name: name}).FirstOrCreate(&ing).Error
	if err != nil {
		return nil, fmt.Errorf("find or create ingredient %q: %w", name, err)
	}
	return &ing, nil
}

// ingredientsByIDs loads ingredients by id and reports ids that do not exist.
func ingredientsByIDs(tx *gorm.DB, ids []uint) ([]models.Ingredient, []uint, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	var found []models.Ingredient
	if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, nil, err
	}
	return found, missingIDs(ids, found, func(i models.Ingredient) uint { return i.ID }), nil
}

func (s *IngredientService) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ingredient %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &ing, nil
}
