package controllers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"recipebox/models"
	"recipebox/services"

	"github.com/gin-gonic/gin"
)

const maxPictureBytes = 5 << 20

// APIController exposes recipes as JSON.
type APIController struct {
	Recipes   *services.RecipeService
	Suggester *services.RekognitionService
}

func NewAPIController(r *services.RecipeService, s *services.RekognitionService) *APIController {
	return &APIController{Recipes: r, Suggester: s}
}

type recipeRequest struct {
	Name            string   `json:"name"`
	Instructions    string   `json:"instructions"`
	Notes           string   `json:"notes"`
	Ingredients     []uint   `json:"ingredients"`
	IngredientNames []string `json:"ingredient_names"`
	Tags            []uint   `json:"tags"`
	TagNames        []string `json:"tag_names"`
	ClearPicture    bool     `json:"clear_picture"`
}

func (r recipeRequest) input() services.RecipeInput {
	return services.RecipeInput{
		Name:            r.Name,
		Instructions:    r.Instructions,
		Notes:           r.Notes,
		Ingredients:     formatIDs(r.Ingredients),
		IngredientNames: r.IngredientNames,
		Tags:            formatIDs(r.Tags),
		TagNames:        r.TagNames,
		ClearPicture:    r.ClearPicture,
	}
}

type recipeResponse struct {
	ID           uint                `json:"id"`
	Name         string              `json:"name"`
	Instructions string              `json:"instructions"`
	Notes        string              `json:"notes"`
	Picture      string              `json:"picture,omitempty"`
	PictureURL   string              `json:"picture_url,omitempty"`
	Ingredients  []models.Ingredient `json:"ingredients"`
	Tags         []models.Tag        `json:"tags"`
	URL          string              `json:"url"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (ac *APIController) toResponse(r models.Recipe) recipeResponse {
	ings := r.Ingredients
	if ings == nil {
		ings = []models.Ingredient{}
	}
	tags := r.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return recipeResponse{
		ID:           r.ID,
		Name:         r.Name,
		Instructions: r.Instructions,
		Notes:        r.Notes,
		Picture:      r.Picture,
		PictureURL:   ac.Recipes.PictureURL(r.Picture),
		Ingredients:  ings,
		Tags:         tags,
		URL:          r.URL(),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// GET /api/recipes?search=&order=
func (ac *APIController) ListRecipes(c *gin.Context) {
	recipes, err := ac.Recipes.List(c.Request.Context(), services.ListOptions{
		Search: c.Query("search"),
		Order:  models.ParseOrder(c.Query("order")),
	})
	if err != nil {
		jsonFail(c, err)
		return
	}
	out := make([]recipeResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, ac.toResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/recipes/:id
func (ac *APIController) GetRecipe(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	recipe, err := ac.Recipes.Get(c.Request.Context(), id)
	if err != nil {
		jsonFail(c, err)
		return
	}
	c.JSON(http.StatusOK, ac.toResponse(*recipe))
}

// POST /api/recipes
func (ac *APIController) CreateRecipe(c *gin.Context) {
	var body recipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recipe, err := ac.Recipes.Create(c.Request.Context(), body.input())
	if err != nil {
		jsonFail(c, err)
		return
	}
	c.Header("Location", "/api"+recipe.URL())
	c.JSON(http.StatusCreated, ac.toResponse(*recipe))
}

// PUT /api/recipes/:id
func (ac *APIController) UpdateRecipe(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var body recipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recipe, err := ac.Recipes.Update(c.Request.Context(), id, body.input())
	if err != nil {
		jsonFail(c, err)
		return
	}
	c.JSON(http.StatusOK, ac.toResponse(*recipe))
}

// DELETE /api/recipes/:id
func (ac *APIController) DeleteRecipe(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err := ac.Recipes.Delete(c.Request.Context(), id); err != nil {
		jsonFail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/tags/suggest  (multipart "picture")
func (ac *APIController) SuggestTags(c *gin.Context) {
	fh, err := c.FormFile("picture")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "picture file required"})
		return
	}
	if fh.Size > maxPictureBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "picture too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, maxPictureBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := ac.Suggester.SuggestTags(c.Request.Context(), image)
	if err != nil {
		jsonFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func formatIDs(ids []uint) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatUint(uint64(id), 10))
	}
	return out
}
