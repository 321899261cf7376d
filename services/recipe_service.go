package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"recipebox/models"
	"recipebox/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PictureUpload is a picture file submitted with a recipe form.
type PictureUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// RecipeInput carries the fields of a create or update submission.
// Ingredients and Tags hold ids as submitted by the form; the *Names slices
// hold names that are found or created on the fly.
type RecipeInput struct {
	Name            string   `json:"name" validate:"required,max=256"`
	Instructions    string   `json:"instructions" validate:"required"`
	Notes           string   `json:"notes"`
	Ingredients     []string `json:"ingredients"`
	IngredientNames []string `json:"ingredient_names"`
	Tags            []string `json:"tags"`
	TagNames        []string `json:"tag_names"`

	Picture      *PictureUpload `json:"-"`
	ClearPicture bool           `json:"-"`
}

type ListOptions struct {
	Search string
	Order  models.Order
}

type RecipeService struct {
	db       *gorm.DB
	pictures PictureStore
}

func NewRecipeService(db *gorm.DB, pictures PictureStore) *RecipeService {
	return &RecipeService{db: db, pictures: pictures}
}

func preloadRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("ingredients.name ASC, ingredients.id ASC")
		}).
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.tag ASC, tags.id ASC")
		})
}

// List returns the recipes matching opts.Search in opts.Order.
func (s *RecipeService) List(ctx context.Context, opts ListOptions) ([]models.Recipe, error) {
	if opts.Order == "" {
		opts.Order = models.OrderNameAsc
	}
	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Scopes(SearchScope(opts.Search), preloadRelations).
		Order(opts.Order.Clause()).
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

func (s *RecipeService) Get(ctx context.Context, id uint) (*models.Recipe, error) {
	return getRecipe(s.db.WithContext(ctx), id)
}

func getRecipe(tx *gorm.DB, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := tx.Scopes(preloadRelations).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &recipe, nil
}

// Create validates in, stores the picture when one is attached and persists
// the recipe with its ingredient and tag sets in one transaction.
func (s *RecipeService) Create(ctx context.Context, in RecipeInput) (*models.Recipe, error) {
	in = in.trimmed()
	errs := FieldErrors{}
	if err := validateInput(in, errs); err != nil {
		return nil, err
	}

	var created *models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ings, tags, err := resolveRelations(tx, in, errs)
		if err != nil {
			return err
		}
		if err := errs.errOrNil(); err != nil {
			return err
		}

		recipe := models.Recipe{
			Name:         in.Name,
			Instructions: in.Instructions,
			Notes:        in.Notes,
		}
		if in.Picture != nil {
			key, err := s.storePicture(ctx, in.Picture)
			if err != nil {
				return err
			}
			recipe.Picture = key
		}

		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		if err := replaceRelations(tx, &recipe, ings, tags); err != nil {
			return err
		}

		created, err = getRecipe(tx, recipe.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces every field of recipe id, including the full ingredient
// and tag sets. The picture is kept unless a new one is attached or
// ClearPicture is set.
func (s *RecipeService) Update(ctx context.Context, id uint, in RecipeInput) (*models.Recipe, error) {
	in = in.trimmed()
	errs := FieldErrors{}

	var updated *models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.First(&recipe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
			}
			return err
		}

		if err := validateInput(in, errs); err != nil {
			return err
		}
		ings, tags, err := resolveRelations(tx, in, errs)
		if err != nil {
			return err
		}
		if err := errs.errOrNil(); err != nil {
			return err
		}

		recipe.Name = in.Name
		recipe.Instructions = in.Instructions
		recipe.Notes = in.Notes
		switch {
		case in.Picture != nil:
			key, err := s.storePicture(ctx, in.Picture)
			if err != nil {
				return err
			}
			recipe.Picture = key
		case in.ClearPicture:
			recipe.Picture = ""
		}

		if err := tx.Omit(clause.Associations).Save(&recipe).Error; err != nil {
			return fmt.Errorf("update recipe %d: %w", id, err)
		}
		if err := replaceRelations(tx, &recipe, ings, tags); err != nil {
			return err
		}

		updated, err = getRecipe(tx, recipe.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the recipe and its join rows. Ingredients and tags stay.
func (s *RecipeService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.First(&recipe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
			}
			return err
		}
		if err := tx.Select(clause.Associations).Delete(&recipe).Error; err != nil {
			return fmt.Errorf("delete recipe %d: %w", id, err)
		}
		return nil
	})
}

// Count returns the number of stored recipes.
func (s *RecipeService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).Count(&n).Error
	return n, err
}

// PictureURL resolves a stored picture key for display.
func (s *RecipeService) PictureURL(key string) string {
	if key == "" || s.pictures == nil {
		return ""
	}
	return s.pictures.URL(key)
}

func (s *RecipeService) storePicture(ctx context.Context, p *PictureUpload) (string, error) {
	if s.pictures == nil {
		return "", errors.New("picture storage is not configured")
	}
	key, err := s.pictures.Save(ctx, PictureKey(p.Filename), p.Body, p.ContentType)
	if err != nil {
		return "", fmt.Errorf("store picture %q: %w", p.Filename, err)
	}
	utils.Ctx(ctx).Debug().Str("key", key).Msg("picture stored")
	return key, nil
}

func (in RecipeInput) trimmed() RecipeInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Instructions = strings.TrimSpace(in.Instructions)
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}

func validateInput(in RecipeInput, errs FieldErrors) error {
	msgs, err := utils.ValidateStruct(in)
	if err != nil {
		return err
	}
	errs.Merge(msgs)
	return nil
}

// resolveRelations turns submitted ids and names into records, adding field
// errors for unknown or malformed values. Names are found or created in tx,
// so a failed submission rolls them back.
func resolveRelations(tx *gorm.DB, in RecipeInput, errs FieldErrors) ([]models.Ingredient, []models.Tag, error) {
	ingIDs := parseIDs("ingredients", in.Ingredients, errs)
	ings, missing, err := ingredientsByIDs(tx, ingIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load ingredients: %w", err)
	}
	addMissing("ingredients", missing, errs)
	for _, name := range in.IngredientNames {
		ing, err := findOrCreateIngredient(tx, name)
		if err != nil {
			if !addFieldErrors("ingredients", err, errs) {
				return nil, nil, err
			}
			continue
		}
		ings = append(ings, *ing)
	}
	ings = dedupe(ings, func(i models.Ingredient) uint { return i.ID })
	if len(ings) == 0 && len(errs["ingredients"]) == 0 {
		errs.Add("ingredients", utils.MsgRequired)
	}

	tagIDs := parseIDs("tags", in.Tags, errs)
	tags, missing, err := tagsByIDs(tx, tagIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load tags: %w", err)
	}
	addMissing("tags", missing, errs)
	for _, name := range in.TagNames {
		t, err := findOrCreateTag(tx, name)
		if err != nil {
			if !addFieldErrors("tags", err, errs) {
				return nil, nil, err
			}
			continue
		}
		tags = append(tags, *t)
	}
	tags = dedupe(tags, func(t models.Tag) uint { return t.ID })

	return ings, tags, nil
}

func replaceRelations(tx *gorm.DB, recipe *models.Recipe, ings []models.Ingredient, tags []models.Tag) error {
	if err := replaceAssociation(tx, recipe, "Ingredients", ings); err != nil {
		return err
	}
	return replaceAssociation(tx, recipe, "Tags", tags)
}

func replaceAssociation[T any](tx *gorm.DB, recipe *models.Recipe, name string, values []T) error {
	assoc := tx.Model(recipe).Omit(name + ".*").Association(name)
	var err error
	if len(values) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(values)
	}
	if err != nil {
		return fmt.Errorf("replace %s of recipe %d: %w", strings.ToLower(name), recipe.ID, err)
	}
	return nil
}

func parseIDs(field string, values []string, errs FieldErrors) []uint {
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := strconv.ParseUint(v, 10, 0)
		if err != nil || id == 0 {
			errs.Add(field, fmt.Sprintf("“%s” is not a valid value.", v))
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

func addMissing(field string, missing []uint, errs FieldErrors) {
	for _, id := range missing {
		errs.Add(field, fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", id))
	}
}

// addFieldErrors moves the messages of a FieldErrors err under field.
func addFieldErrors(field string, err error, errs FieldErrors) bool {
	var fe FieldErrors
	if !errors.As(err, &fe) {
		return false
	}
	for _, msgs := range fe {
		for _, m := range msgs {
			errs.Add(field, m)
		}
	}
	return true
}

func dedupe[T any](in []T, id func(T) uint) []T {
	seen := make(map[uint]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[id(v)]; ok {
			continue
		}
		seen[id(v)] = struct{}{}
		out = append(out, v)
	}
	return out
}
