package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"recipebox/models"
	"recipebox/services"
	"recipebox/utils"

	"github.com/gin-gonic/gin"
)

// RecipeController serves the HTML pages.
type RecipeController struct {
	Recipes     *services.RecipeService
	Ingredients *services.IngredientService
	Tags        *services.TagService
}

func NewRecipeController(r *services.RecipeService, i *services.IngredientService, t *services.TagService) *RecipeController {
	return &RecipeController{Recipes: r, Ingredients: i, Tags: t}
}

type recipeForm struct {
	Name         string   `form:"name"`
	Instructions string   `form:"instructions"`
	Notes        string   `form:"notes"`
	Ingredients  []string `form:"ingredients"`
	Tags         []string `form:"tags"`
}

func pageData(c *gin.Context, title string, data gin.H) gin.H {
	out := gin.H{"Title": title, "Search": c.Query("search")}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// GET / and GET /recipes/?search=
func (rc *RecipeController) List(c *gin.Context) {
	search := c.Query("search")
	recipes, err := rc.Recipes.List(c.Request.Context(), services.ListOptions{
		Search: search,
		Order:  models.ParseOrder(c.Query("order")),
	})
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "recipe_list.html", pageData(c, "", gin.H{"Recipes": recipes}))
}

// GET /recipes/:id
func (rc *RecipeController) Detail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		rc.notFound(c)
		return
	}
	recipe, err := rc.Recipes.Get(c.Request.Context(), id)
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "recipe_detail.html", pageData(c, recipe.Name, gin.H{"Recipe": recipe}))
}

// GET /recipes/tag/:tag
func (rc *RecipeController) TagDetail(c *gin.Context) {
	tag, err := rc.Tags.GetByTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "tag_detail.html", pageData(c, tag.Tag, gin.H{"Tag": tag}))
}

// GET /about
func (rc *RecipeController) About(c *gin.Context) {
	n, err := rc.Recipes.Count(c.Request.Context())
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "about.html", pageData(c, "About", gin.H{"Count": n}))
}

// GET /recipes/create
func (rc *RecipeController) CreateForm(c *gin.Context) {
	rc.renderForm(c, http.StatusOK, "New recipe", "/recipes/create", services.RecipeInput{}, "", services.FieldErrors{})
}

// POST /recipes/create
func (rc *RecipeController) Create(c *gin.Context) {
	in, closeFn, err := bindRecipeForm(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	defer closeFn()

	recipe, err := rc.Recipes.Create(c.Request.Context(), in)
	var fe services.FieldErrors
	switch {
	case errors.As(err, &fe):
		rc.renderForm(c, http.StatusBadRequest, "New recipe", "/recipes/create", in, "", fe)
		return
	case err != nil:
		rc.fail(c, err)
		return
	}

	utils.Ctx(c.Request.Context()).Info().Uint("recipe_id", recipe.ID).Msg("recipe created")
	c.Redirect(http.StatusFound, recipe.URL())
}

// GET /recipes/update/:id
func (rc *RecipeController) UpdateForm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		rc.notFound(c)
		return
	}
	recipe, err := rc.Recipes.Get(c.Request.Context(), id)
	if err != nil {
		rc.fail(c, err)
		return
	}

	in := services.RecipeInput{
		Name:         recipe.Name,
		Instructions: recipe.Instructions,
		Notes:        recipe.Notes,
	}
	for _, i := range recipe.Ingredients {
		in.Ingredients = append(in.Ingredients, strconv.FormatUint(uint64(i.ID), 10))
	}
	for _, t := range recipe.Tags {
		in.Tags = append(in.Tags, strconv.FormatUint(uint64(t.ID), 10))
	}
	rc.renderForm(c, http.StatusOK, "Edit "+recipe.Name, updatePath(id), in, recipe.Picture, services.FieldErrors{})
}

// POST /recipes/update/:id
func (rc *RecipeController) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		rc.notFound(c)
		return
	}
	in, closeFn, err := bindRecipeForm(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	defer closeFn()

	recipe, err := rc.Recipes.Update(c.Request.Context(), id, in)
	var fe services.FieldErrors
	switch {
	case errors.As(err, &fe):
		current, getErr := rc.Recipes.Get(c.Request.Context(), id)
		if getErr != nil {
			rc.fail(c, getErr)
			return
		}
		rc.renderForm(c, http.StatusBadRequest, "Edit "+current.Name, updatePath(id), in, current.Picture, fe)
		return
	case err != nil:
		rc.fail(c, err)
		return
	}

	utils.Ctx(c.Request.Context()).Info().Uint("recipe_id", recipe.ID).Msg("recipe updated")
	c.Redirect(http.StatusFound, recipe.URL())
}

// POST /recipes/delete/:id
func (rc *RecipeController) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		rc.notFound(c)
		return
	}
	if err := rc.Recipes.Delete(c.Request.Context(), id); err != nil {
		rc.fail(c, err)
		return
	}
	utils.Ctx(c.Request.Context()).Info().Uint("recipe_id", id).Msg("recipe deleted")
	c.Redirect(http.StatusFound, "/recipes/")
}

func (rc *RecipeController) renderForm(c *gin.Context, status int, title, action string, in services.RecipeInput, picture string, errs services.FieldErrors) {
	ings, err := rc.Ingredients.List(c.Request.Context())
	if err != nil {
		rc.fail(c, err)
		return
	}
	tags, err := rc.Tags.List(c.Request.Context())
	if err != nil {
		rc.fail(c, err)
		return
	}

	c.HTML(status, "recipe_form.html", pageData(c, title, gin.H{
		"Action":              action,
		"Form":                in,
		"Picture":             picture,
		"Errors":              errs,
		"Ingredients":         ings,
		"Tags":                tags,
		"SelectedIngredients": idSet(in.Ingredients),
		"SelectedTags":        idSet(in.Tags),
	}))
}

// NotFound renders the 404 page for unknown routes.
func (rc *RecipeController) NotFound(c *gin.Context) {
	rc.notFound(c)
}

func (rc *RecipeController) notFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", pageData(c, "Not found", gin.H{
		"Status":  http.StatusNotFound,
		"Message": "The requested page does not exist.",
	}))
}

func (rc *RecipeController) fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		rc.notFound(c)
		return
	}
	_ = c.Error(err)
	utils.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
	c.HTML(http.StatusInternalServerError, "error.html", pageData(c, "Error", gin.H{
		"Status":  http.StatusInternalServerError,
		"Message": "Something went wrong. Please try again.",
	}))
}

// bindRecipeForm decodes a create/update submission. The returned func
// closes the uploaded picture, if any.
func bindRecipeForm(c *gin.Context) (services.RecipeInput, func(), error) {
	noop := func() {}
	var form recipeForm
	if err := c.ShouldBind(&form); err != nil {
		return services.RecipeInput{}, noop, fmt.Errorf("invalid form: %w", err)
	}

	in := services.RecipeInput{
		Name:         form.Name,
		Instructions: form.Instructions,
		Notes:        form.Notes,
		Ingredients:  form.Ingredients,
		Tags:         form.Tags,
		ClearPicture: c.PostForm("picture-clear") != "",
	}

	fh, err := c.FormFile("picture")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, noop, nil
	case err != nil:
		return in, noop, fmt.Errorf("invalid picture: %w", err)
	}
	return openPicture(in, fh)
}

func openPicture(in services.RecipeInput, fh *multipart.FileHeader) (services.RecipeInput, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return in, func() {}, fmt.Errorf("open picture: %w", err)
	}
	in.Picture = &services.PictureUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}
	return in, func() { f.Close() }, nil
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func updatePath(id uint) string {
	return fmt.Sprintf("/recipes/update/%d", id)
}

func idSet(values []string) map[uint]bool {
	out := make(map[uint]bool, len(values))
	for _, v := range values {
		if id, err := strconv.ParseUint(v, 10, 0); err == nil {
			out[uint(id)] = true
		}
	}
	return out
}
