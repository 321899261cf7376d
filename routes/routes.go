package routes

import (
	"fmt"
	"net/http"

	"recipebox/controllers"
	"recipebox/middlewares"
	"recipebox/services"
	"recipebox/templates"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps holds what the router needs to build its controllers.
type Deps struct {
	DB        *gorm.DB
	Pictures  services.PictureStore
	Suggester *services.RekognitionService
	Metrics   *middlewares.Metrics
	JWTSecret string

	// MediaRoot is served under /media/ when pictures are stored locally.
	MediaRoot string
}

func SetupRouter(d Deps) (*gin.Engine, error) {
	recipeSvc := services.NewRecipeService(d.DB, d.Pictures)
	ingredientSvc := services.NewIngredientService(d.DB)
	tagSvc := services.NewTagService(d.DB)

	tmpl, err := templates.Parse(recipeSvc.PictureURL)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", d.Metrics.Handler())
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(templates.Static()))
	if d.MediaRoot != "" {
		r.Static("/media", d.MediaRoot)
	}

	pages := controllers.NewRecipeController(recipeSvc, ingredientSvc, tagSvc)
	autocomplete := controllers.NewAutocompleteController(ingredientSvc, tagSvc)
	api := controllers.NewAPIController(recipeSvc, d.Suggester)
	health := controllers.NewHealthController(d.DB)

	r.GET("/healthz", health.Health)
	r.GET("/", pages.List)
	r.GET("/about", pages.About)
	r.NoRoute(pages.NotFound)

	recipes := r.Group("/recipes")
	{
		recipes.GET("/", pages.List)
		recipes.GET("/create", pages.CreateForm)
		recipes.POST("/create", pages.Create)
		recipes.GET("/update/:id", pages.UpdateForm)
		recipes.POST("/update/:id", pages.Update)
		recipes.POST("/delete/:id", pages.Delete)
		recipes.GET("/:id", pages.Detail)
		recipes.GET("/tag/:tag", pages.TagDetail)

		recipes.GET("/ingredient-autocomplete", autocomplete.IngredientChoices)
		recipes.POST("/ingredient-autocomplete", autocomplete.CreateIngredient)
		recipes.GET("/tag-autocomplete", autocomplete.TagChoices)
		recipes.POST("/tag-autocomplete", autocomplete.CreateTag)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/recipes", api.ListRecipes)
		apiGroup.GET("/recipes/:id", api.GetRecipe)

		write := apiGroup.Group("", middlewares.TokenAuth(d.JWTSecret))
		write.POST("/recipes", api.CreateRecipe)
		write.PUT("/recipes/:id", api.UpdateRecipe)
		write.DELETE("/recipes/:id", api.DeleteRecipe)
		write.POST("/tags/suggest", api.SuggestTags)
	}

	return r, nil
}
