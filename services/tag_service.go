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

type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	err := s.db.WithContext(ctx).Order("tag ASC, id ASC").Find(&out).Error
	return out, err
}

// Search returns one page of tags containing q.
func (s *TagService) Search(ctx context.Context, q string, page Page) ([]models.Tag, bool, error) {
	page = page.normalized()
	var out []models.Tag
	tx := s.db.WithContext(ctx).Model(&models.Tag{})
	if q = strings.TrimSpace(q); q != "" {
		tx = tx.Where("tag LIKE ? ESCAPE '!'", "%"+escapeLike(models.NormalizeTag(q))+"%")
	}
	err := tx.Order("tag ASC, id ASC").
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

// Exists reports whether the lower-cased tag is stored.
func (s *TagService) Exists(ctx context.Context, tag string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Tag{}).
		Where("tag = ?", models.NormalizeTag(strings.TrimSpace(tag))).
		Count(&n).Error
	return n > 0, err
}

// FindOrCreate lower-cases tag, then returns the stored tag, creating it when absent.
func (s *TagService) FindOrCreate(ctx context.Context, tag string) (*models.Tag, error) {
	return findOrCreateTag(s.db.WithContext(ctx), tag)
}

func findOrCreateTag(tx *gorm.DB, tag string) (*models.Tag, error) {
	tag = models.NormalizeTag(strings.TrimSpace(tag))
	if tag == "" {
		return nil, FieldErrors{"tag": {utils.MsgRequired}}
	}
	if n := utf8.RuneCountInString(tag); n > models.TagMaxLen {
		return nil, FieldErrors{"tag": {utils.MaxLengthMessage(strconv.Itoa(models.TagMaxLen), tag)}}
	}

	var t models.Tag
	if err := tx.Where(models.Tag{Tag: tag}).FirstOrCreate(&t).Error; err != nil {
		return nil, fmt.Errorf("find or create tag %q: %w", tag, err)
	}
	return &t, nil
}

func tagsByIDs(tx *gorm.DB, ids []uint) ([]models.Tag, []uint, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	var found []models.Tag
	if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, nil, err
	}
	return found, missingIDs(ids, found, func(t models.Tag) uint { return t.ID }), nil
}

// GetByTag returns the tag and the recipes carrying it, ordered by name.
func (s *TagService) GetByTag(ctx context.Context, tag string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.WithContext(ctx).
		Preload("Recipes", func(db *gorm.DB) *gorm.DB {
			return db.Order(models.OrderNameAsc.Clause())
		}).
		Where("tag = ?", models.NormalizeTag(tag)).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tag %q: %w", tag, ErrNotFound)
		}
		return nil, err
	}
	return &t, nil
}
