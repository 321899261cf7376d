package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"recipebox/middlewares"
	"recipebox/models"
	"recipebox/services"
	"recipebox/testutil"
	"recipebox/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.InitLogger(utils.LogConfig{Level: "disabled"})
}

type testServer struct {
	router    *gin.Engine
	db        *gorm.DB
	mediaRoot string
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	root := t.TempDir()

	r, err := SetupRouter(Deps{
		DB:        db,
		Pictures:  services.NewLocalPictureStore(root, "/media"),
		Metrics:   middlewares.NewMetrics(),
		JWTSecret: secret,
		MediaRoot: root,
	})
	require.NoError(t, err)
	return &testServer{router: r, db: db, mediaRoot: root}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

// postMultipart submits form with an optional picture file.
func (s *testServer) postMultipart(t *testing.T, path string, form url.Values, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("picture", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func (s *testServer) reload(t *testing.T, id uint) models.Recipe {
	t.Helper()
	var r models.Recipe
	require.NoError(t, s.db.Preload("Ingredients").Preload("Tags").First(&r, id).Error)
	return r
}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func recipeForm(fx testutil.Fixtures) url.Values {
	form := url.Values{
		"name":         {"Pesto pasta"},
		"instructions": {"Cook the pasta.\nMix in the pesto."},
		"notes":        {"Add parmesan for extra flavour"},
	}
	for _, i := range fx.PestoPasta.Ingredients {
		form.Add("ingredients", id(i.ID))
	}
	for _, tg := range fx.PestoPasta.Tags {
		form.Add("tags", id(tg.ID))
	}
	return form
}

func TestHomeAndRecipeListShareTheListView(t *testing.T) {
	s := newTestServer(t, "")
	testutil.SeedRecipes(t, s.db)

	for _, path := range []string{"/", "/recipes/"} {
		w := s.get(path)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := w.Body.String()
		assert.Contains(t, body, ">Chickpea salad</a>")
		assert.Contains(t, body, ">Pesto pasta</a>")
		assert.Less(t, strings.Index(body, ">Chickpea salad</a>"), strings.Index(body, ">Pesto pasta</a>"))
		assert.Equal(t, 2, strings.Count(body, `<span class="italic">No picture</span>`))
	}
}

func TestListSearch(t *testing.T) {
	s := newTestServer(t, "")
	testutil.SeedRecipes(t, s.db)

	tests := []struct {
		term     string
		contains string
		excludes string
	}{
		{"easy", ">Chickpea salad</a>", ">Pesto pasta</a>"},
		{"Easy", ">Chickpea salad</a>", ">Pesto pasta</a>"},
		{"pesto", ">Pesto pasta</a>", ">Chickpea salad</a>"},
		{"Pesto", ">Pesto pasta</a>", ">Chickpea salad</a>"},
	}
	for _, tt := range tests {
		w := s.get("/recipes/?search=" + url.QueryEscape(tt.term))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), tt.contains, tt.term)
		assert.NotContains(t, w.Body.String(), tt.excludes, tt.term)
	}

	w := s.get("/recipes/?search=nothing-matches")
	assert.Contains(t, w.Body.String(), "No recipes found.")
}

func TestListShowsPicture(t *testing.T) {
	s := newTestServer(t, "")
	fx := testutil.SeedRecipes(t, s.db)
	require.NoError(t, s.db.Model(&models.Recipe{}).Where("id = ?", fx.PestoPasta.ID).
		Update("picture", "photo_recipes/eggplant_sm.jpg").Error)

	w := s.get("/recipes/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, strings.Count(w.Body.String(), `<span class="italic">No picture</span>`))
	assert.Contains(t, w.Body.String(), `src="/media/photo_recipes/eggplant_sm.jpg"`)
}

func TestCreateForm(t *testing.T) {
	s := newTestServer(t, "")
	testutil.SeedRecipes(t, s.db)

	w := s.get("/recipes/create")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="instructions"`)
	assert.Contains(t, body, `>Pesto</option>`)
	assert.Contains(t, body, `>easy</option>`)
}

func TestCreateRecipeRedirectsToDetail(t *testing.T) {
	s := newTestServer(t, "")
	pesto := testutil.Ingredient(t, s.db, "Pesto")

	w := s.postForm("/recipes/create", url.Values{
		"name":         {"pesto pasta"},
		"instructions": {"Cook pasta\nAdd pesto"},
		"ingredients":  {id(pesto.ID)},
	})
	require.Equal(t, http.StatusFound, w.Code)

	var created models.Recipe
	require.NoError(t, s.db.Last(&created).Error)
	assert.Equal(t, fmt.Sprintf("/recipes/%d", created.ID), w.Header().Get("Location"))
	assert.Equal(t, "Pesto pasta", created.Name)

	detail := s.get(w.Header().Get("Location"))
	require.Equal(t, http.StatusOK, detail.Code)
	assert.Contains(t, detail.Body.String(), "<h1>Pesto pasta</h1>")
	assert.Contains(t, detail.Body.String(), "<li>Cook pasta</li>")
}

func TestCreateRecipeWithAllFieldsAndPicture(t *testing.T) {
	s := newTestServer(t, "")
	pasta := testutil.Ingredient(t, s.db, "Pasta")
	pesto := testutil.Ingredient(t, s.db, "Pesto")
	pastaTag := testutil.Tag(t, s.db, "pasta")
	saucy := testutil.Tag(t, s.db, "saucy")

	w := s.postMultipart(t, "/recipes/create", url.Values{
		"name":         {"Pesto pasta reborn"},
		"instructions": {"This how you do iiiit"},
		"notes":        {"Add parmigianooooooo"},
		"ingredients":  {id(pasta.ID), id(pesto.ID)},
		"tags":         {id(pastaTag.ID), id(saucy.ID)},
	}, "hummus_sm.jpg", []byte("jpeg"))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	var created models.Recipe
	require.NoError(t, s.db.Last(&created).Error)
	assert.Equal(t, fmt.Sprintf("/recipes/%d", created.ID), w.Header().Get("Location"))

	r := s.reload(t, created.ID)
	assert.Equal(t, "Pesto pasta reborn", r.Name)
	assert.Equal(t, "Add parmigianooooooo", r.Notes)
	assert.Len(t, r.Ingredients, 2)
	assert.Len(t, r.Tags, 2)
	assert.Regexp(t, `^photo_recipes/hummus_sm_[0-9a-f]{8}\.jpg$`, r.Picture)

	_, err := os.Stat(filepath.Join(s.mediaRoot, filepath.FromSlash(r.Picture)))
	assert.NoError(t, err)

	media := s.get("/media/" + r.Picture)
	assert.Equal(t, http.StatusOK, media.Code)
	assert.Equal(t, "jpeg", media.Body.String())
}

func TestCreateRecipeBlankFormShowsErrors(t *testing.T) {
	s := newTestServer(t, "")

	w := s.postForm("/recipes/create", url.Values{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, strings.Count(w.Body.String(), "This field is required."))

	var n int64
	require.NoError(t, s.db.Model(&models.Recipe{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateRecipe(t *testing.T) {
	s := newTestServer(t, "")
	fx := testutil.SeedRecipes(t, s.db)
	saucy := testutil.Tag(t, s.db, "saucy")
	path := "/recipes/update/" + id(fx.PestoPasta.ID)
	detail := "/recipes/" + id(fx.PestoPasta.ID)

	w := s.get(path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Pesto pasta"`)
	assert.Contains(t, w.Body.String(), `selected>Pesto</option>`)

	t.Run("name", func(t *testing.T) {
		form := recipeForm(fx)
		form.Set("name", "la pastaaa")
		w := s.postForm(path, form)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, detail, w.Header().Get("Location"))
		assert.Equal(t, "La pastaaa", s.reload(t, fx.PestoPasta.ID).Name)
	})

	t.Run("ingredients", func(t *testing.T) {
		form := recipeForm(fx)
		form["ingredients"] = []string{id(fx.PestoPasta.Ingredients[0].ID)}
		w := s.postForm(path, form)
		require.Equal(t, http.StatusFound, w.Code)
		r := s.reload(t, fx.PestoPasta.ID)
		require.Len(t, r.Ingredients, 1)
		assert.Equal(t, "Pasta", r.Ingredients[0].Name)
	})

	t.Run("instructions and notes", func(t *testing.T) {
		form := recipeForm(fx)
		form.Set("instructions", "Cook pasta\nAdd pesto.")
		form.Set("notes", "Remove the pesto and eat raw")
		w := s.postForm(path, form)
		require.Equal(t, http.StatusFound, w.Code)
		r := s.reload(t, fx.PestoPasta.ID)
		assert.Equal(t, "Cook pasta\nAdd pesto.", r.Instructions)
		assert.Equal(t, "Remove the pesto and eat raw", r.Notes)
	})

	t.Run("tags", func(t *testing.T) {
		form := recipeForm(fx)
		form["tags"] = []string{id(saucy.ID)}
		w := s.postForm(path, form)
		require.Equal(t, http.StatusFound, w.Code)
		r := s.reload(t, fx.PestoPasta.ID)
		require.Len(t, r.Tags, 1)
		assert.Equal(t, "saucy", r.Tags[0].Tag)
	})

	t.Run("picture", func(t *testing.T) {
		w := s.postMultipart(t, path, recipeForm(fx), "hummus_sm.jpg", []byte("jpeg"))
		require.Equal(t, http.StatusFound, w.Code)
		r := s.reload(t, fx.PestoPasta.ID)
		assert.Regexp(t, `^photo_recipes/hummus_sm_[0-9a-f]{8}\.jpg$`, r.Picture)

		w = s.postForm(path, recipeForm(fx))
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, r.Picture, s.reload(t, fx.PestoPasta.ID).Picture)

		form := recipeForm(fx)
		form.Set("picture-clear", "on")
		w = s.postForm(path, form)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Empty(t, s.reload(t, fx.PestoPasta.ID).Picture)
	})

	t.Run("invalid", func(t *testing.T) {
		form := recipeForm(fx)
		form.Del("instructions")
		w := s.postForm(path, form)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "This field is required.")
	})
}

func TestUpdateAndDeleteMissingRecipe(t *testing.T) {
	s := newTestServer(t, "")

	assert.Equal(t, http.StatusNotFound, s.get("/recipes/update/99").Code)
	assert.Equal(t, http.StatusNotFound, s.postForm("/recipes/update/99", url.Values{}).Code)
	assert.Equal(t, http.StatusNotFound, s.postForm("/recipes/delete/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.get("/recipes/99").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/recipes/not-a-number").Code)
}

func TestDeleteRecipe(t *testing.T) {
	s := newTestServer(t, "")
	fx := testutil.SeedRecipes(t, s.db)

	w := s.postForm("/recipes/delete/"+id(fx.PestoPasta.ID), nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/recipes/", w.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, s.get("/recipes/"+id(fx.PestoPasta.ID)).Code)

	var ingredients int64
	require.NoError(t, s.db.Model(&models.Ingredient{}).Count(&ingredients).Error)
	assert.Equal(t, int64(5), ingredients)
}

func TestTagDetail(t *testing.T) {
	s := newTestServer(t, "")
	testutil.SeedRecipes(t, s.db)

	w := s.get("/recipes/tag/easy")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ">Chickpea salad</a>")
	assert.NotContains(t, w.Body.String(), ">Pesto pasta</a>")

	assert.Equal(t, http.StatusNotFound, s.get("/recipes/tag/dessert").Code)
}

func TestStaticPages(t *testing.T) {
	s := newTestServer(t, "")

	about := s.get("/about")
	assert.Equal(t, http.StatusOK, about.Code)
	assert.Contains(t, about.Body.String(), "0 recipes stored so far.")
	assert.Equal(t, http.StatusOK, s.get("/healthz").Code)
	assert.Equal(t, http.StatusOK, s.get("/static/js/script.js").Code)
	assert.Equal(t, http.StatusOK, s.get("/metrics").Code)

	w := s.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")
}

type choices struct {
	Results []struct {
		ID       interface{} `json:"id"`
		Text     string      `json:"text"`
		CreateID bool        `json:"create_id"`
	} `json:"results"`
	Pagination struct {
		More bool `json:"more"`
	} `json:"pagination"`
}

func TestIngredientAutocomplete(t *testing.T) {
	s := newTestServer(t, "")
	testutil.SeedRecipes(t, s.db)

	w := s.get("/recipes/ingredient-autocomplete?q=pe")
	require.Equal(t, http.StatusOK, w.Code)
	var got choices
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Results, 3)
	assert.Equal(t, "Chickpea", got.Results[0].Text)
	assert.Equal(t, "Pesto", got.Results[1].Text)
	assert.True(t, got.Results[2].CreateID)
	assert.Equal(t, "create:pe", got.Results[2].ID)

	got = choices{}
	w = s.get("/recipes/ingredient-autocomplete?q=pesto")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Results, 1, "exact match hides the create option")

	w = s.postForm("/recipes/ingredient-autocomplete", url.Values{"text": {"oignon"}})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		ID   uint   `json:"id"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Oignon", created.Text)
	assert.NotZero(t, created.ID)

	w = s.postForm("/recipes/ingredient-autocomplete", url.Values{"text": {" "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTagAutocomplete(t *testing.T) {
	s := newTestServer(t, "")
	testutil.SeedRecipes(t, s.db)

	w := s.get("/recipes/tag-autocomplete")
	require.Equal(t, http.StatusOK, w.Code)
	var got choices
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	var texts []string
	for _, r := range got.Results {
		texts = append(texts, r.Text)
	}
	assert.Equal(t, []string{"easy", "pasta", "salad"}, texts)

	w = s.postForm("/recipes/tag-autocomplete", url.Values{"text": {"Vegan"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"text":"vegan"`)

	w = s.postForm("/recipes/tag-autocomplete", url.Values{"text": {"much too long for a tag"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at most 20 characters")
}

func jsonRequest(method, path string, body interface{}, token string) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type apiRecipe struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Ingredients []struct {
		Name string `json:"name"`
	} `json:"ingredients"`
	Tags []struct {
		Tag string `json:"tag"`
	} `json:"tags"`
}

func TestAPIRecipeLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	testutil.SeedRecipes(t, s.db)

	w := s.do(jsonRequest(http.MethodPost, "/api/recipes", gin.H{
		"name":             "green shakshuka",
		"instructions":     "Cook greens.\nAdd eggs.",
		"ingredient_names": []string{"eggs", "spinach"},
		"tag_names":        []string{"Easy", "brunch"},
	}, ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created apiRecipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Green shakshuka", created.Name)
	assert.Equal(t, fmt.Sprintf("/recipes/%d", created.ID), created.URL)
	assert.Len(t, created.Ingredients, 2)
	require.Len(t, created.Tags, 2)
	assert.Equal(t, "brunch", created.Tags[0].Tag)

	w = s.get("/api/recipes?search=EASY")
	require.Equal(t, http.StatusOK, w.Code)
	var list []apiRecipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Chickpea salad", list[0].Name)
	assert.Equal(t, "Green shakshuka", list[1].Name)

	w = s.get("/api/recipes?order=-name")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "Pesto pasta", list[0].Name)

	path := fmt.Sprintf("/api/recipes/%d", created.ID)
	w = s.do(jsonRequest(http.MethodPut, path, gin.H{
		"name":             "shakshuka",
		"instructions":     "Cook.",
		"ingredient_names": []string{"eggs"},
	}, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated apiRecipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Shakshuka", updated.Name)
	assert.Len(t, updated.Ingredients, 1)
	assert.Empty(t, updated.Tags)

	w = s.do(jsonRequest(http.MethodPut, path, gin.H{"name": "x"}, ""))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "instructions")

	assert.Equal(t, http.StatusOK, s.get(path).Code)
	assert.Equal(t, http.StatusNoContent, s.do(httptest.NewRequest(http.MethodDelete, path, nil)).Code)
	assert.Equal(t, http.StatusNotFound, s.get(path).Code)
	assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodDelete, path, nil)).Code)
}

func TestAPIWritesRequireTokenWhenSecretSet(t *testing.T) {
	s := newTestServer(t, "s3cret")
	testutil.SeedRecipes(t, s.db)

	body := gin.H{"name": "toast", "instructions": "Toast.", "ingredient_names": []string{"bread"}}

	w := s.do(jsonRequest(http.MethodPost, "/api/recipes", body, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusOK, s.get("/api/recipes").Code, "reads stay open")

	tok, err := utils.GenerateJWT("s3cret", "test", time.Hour)
	require.NoError(t, err)
	w = s.do(jsonRequest(http.MethodPost, "/api/recipes", body, tok))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAPITagSuggestionsDisabled(t *testing.T) {
	s := newTestServer(t, "")

	w := s.postMultipart(t, "/api/tags/suggest", nil, "dish.jpg", []byte("jpeg"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.postMultipart(t, "/api/tags/suggest", nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngredientAutocompleteMatchesAccentedNames(t *testing.T) {
	s := newTestServer(t, "")
	testutil.Ingredient(t, s.db, "échalote")

	for _, q := range []string{"écha", "ÉCHA", "Échalote"} {
		w := s.get("/recipes/ingredient-autocomplete?q=" + url.QueryEscape(q))
		require.Equal(t, http.StatusOK, w.Code)
		var got choices
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.NotEmpty(t, got.Results, "q %q", q)
		assert.Equal(t, "Échalote", got.Results[0].Text, "q %q", q)
	}
}

func TestAutocompleteCreateChoiceLooksBeyondFirstPage(t *testing.T) {
	s := newTestServer(t, "")
	for i := 0; i < 11; i++ {
		testutil.Ingredient(t, s.db, fmt.Sprintf("ape %02d", i))
		testutil.Tag(t, s.db, fmt.Sprintf("ape%02d", i))
	}
	testutil.Ingredient(t, s.db, "pe")
	testutil.Tag(t, s.db, "pe")

	for _, path := range []string{"/recipes/ingredient-autocomplete?q=pe", "/recipes/tag-autocomplete?q=pe"} {
		w := s.get(path)
		require.Equal(t, http.StatusOK, w.Code)
		var got choices
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Pagination.More, path)
		for _, r := range got.Results {
			assert.False(t, r.CreateID, "%s offers %q", path, r.Text)
		}
	}

	w := s.get("/recipes/tag-autocomplete?q=" + url.QueryEscape("12"))
	var got choices
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Results, 1)
	assert.Equal(t, "create:12", got.Results[0].ID)
}
