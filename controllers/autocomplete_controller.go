package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"recipebox/services"

	"github.com/gin-gonic/gin"
)

// AutocompleteController answers the Select2 widgets of the recipe form.
// GET lists matching records; POST with a "text" field finds or creates one.
type AutocompleteController struct {
	Ingredients *services.IngredientService
	Tags        *services.TagService
}

func NewAutocompleteController(i *services.IngredientService, t *services.TagService) *AutocompleteController {
	return &AutocompleteController{Ingredients: i, Tags: t}
}

type choice struct {
	ID       interface{} `json:"id"`
	Text     string      `json:"text"`
	CreateID bool        `json:"create_id,omitempty"`
}

type choicePage struct {
	Results    []choice `json:"results"`
	Pagination struct {
		More bool `json:"more"`
	} `json:"pagination"`
}

// GET /recipes/ingredient-autocomplete?q=&page=
func (ac *AutocompleteController) IngredientChoices(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	pg := queryPage(c)
	ings, more, err := ac.Ingredients.Search(c.Request.Context(), q, pg)
	if err != nil {
		jsonFail(c, err)
		return
	}

	var out choicePage
	out.Results = make([]choice, 0, len(ings)+1)
	for _, i := range ings {
		out.Results = append(out.Results, choice{ID: i.ID, Text: i.Name})
	}
	if q != "" && pg.Number == 1 {
		exists, err := ac.Ingredients.Exists(c.Request.Context(), q)
		if err != nil {
			jsonFail(c, err)
			return
		}
		if !exists {
			out.Results = append(out.Results, createChoice(q))
		}
	}
	out.Pagination.More = more
	c.JSON(http.StatusOK, out)
}

// POST /recipes/ingredient-autocomplete
func (ac *AutocompleteController) CreateIngredient(c *gin.Context) {
	ing, err := ac.Ingredients.FindOrCreate(c.Request.Context(), c.PostForm("text"))
	if err != nil {
		jsonFail(c, err)
		return
	}
	c.JSON(http.StatusOK, choice{ID: ing.ID, Text: ing.Name})
}

// GET /recipes/tag-autocomplete?q=&page=
func (ac *AutocompleteController) TagChoices(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	pg := queryPage(c)
	tags, more, err := ac.Tags.Search(c.Request.Context(), q, pg)
	if err != nil {
		jsonFail(c, err)
		return
	}

	var out choicePage
	out.Results = make([]choice, 0, len(tags)+1)
	for _, t := range tags {
		out.Results = append(out.Results, choice{ID: t.ID, Text: t.Tag})
	}
	if q != "" && pg.Number == 1 {
		exists, err := ac.Tags.Exists(c.Request.Context(), q)
		if err != nil {
			jsonFail(c, err)
			return
		}
		if !exists {
			out.Results = append(out.Results, createChoice(q))
		}
	}
	out.Pagination.More = more
	c.JSON(http.StatusOK, out)
}

// POST /recipes/tag-autocomplete
func (ac *AutocompleteController) CreateTag(c *gin.Context) {
	tag, err := ac.Tags.FindOrCreate(c.Request.Context(), c.PostForm("text"))
	if err != nil {
		jsonFail(c, err)
		return
	}
	c.JSON(http.StatusOK, choice{ID: tag.ID, Text: tag.Tag})
}

// createChoicePrefix keeps the id of a "Create" choice apart from record ids.
const createChoicePrefix = "create:"

func createChoice(q string) choice {
	return choice{ID: createChoicePrefix + q, Text: fmt.Sprintf("Create %q", q), CreateID: true}
}

func queryPage(c *gin.Context) services.Page {
	n, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return services.NewPage(n)
}

// jsonFail maps service errors to JSON responses.
func jsonFail(c *gin.Context, err error) {
	var fe services.FieldErrors
	switch {
	case errors.As(err, &fe):
		msgs := make([]string, 0, len(fe))
		for _, m := range fe {
			msgs = append(msgs, m...)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.Join(msgs, " "), "errors": fe})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrLabelsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
