package services

import (
	"sort"
	"strings"

	"recipebox/models"

	"gorm.io/gorm"
)

// FilterRecipes applies the list search rule to an in-memory set of recipes.
// A blank term keeps every recipe. Otherwise a recipe is kept when its name
// equals or starts with the term, or one of its tags equals the term, all
// case-insensitively. The result is sorted by name then id.
func FilterRecipes(all []models.Recipe, term string) []models.Recipe {
	term = models.SearchKey(strings.TrimSpace(term))

	out := make([]models.Recipe, 0, len(all))
	seen := make(map[uint]struct{}, len(all))
	for _, r := range all {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		if term == "" || matchesTerm(r, term) {
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return models.OrderNameAsc.Less(out[i], out[j])
	})
	return out
}

func matchesTerm(r models.Recipe, lowered string) bool {
	name := models.SearchKey(r.Name)
	if name == lowered || strings.HasPrefix(name, lowered) {
		return true
	}
	for _, t := range r.Tags {
		if strings.ToLower(t.Tag) == lowered {
			return true
		}
	}
	return false
}

// SearchScope is the SQL form of FilterRecipes. Names are compared through
// the lower-cased search_name column, so no database case folding is
// involved. The tag predicate is a subquery so recipes matching several
// ways are returned once.
func SearchScope(term string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		lowered := models.SearchKey(strings.TrimSpace(term))
		if lowered == "" {
			return db
		}

		tagged := db.Session(&gorm.Session{NewDB: true}).
			Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.tag = ?", lowered)

		return db.Where(
			"(recipes.search_name = ? OR recipes.search_name LIKE ? ESCAPE '!' OR recipes.id IN (?))",
			lowered, escapeLike(lowered)+"%", tagged,
		)
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
