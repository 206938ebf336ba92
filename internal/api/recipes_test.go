package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type catalog struct {
	breakfast *models.Tag
	dinner    *models.Tag
	eggs      *models.Ingredient
	milk      *models.Ingredient
}

func seedCatalog(t *testing.T, h *harness) catalog {
	t.Helper()
	return catalog{
		breakfast: testhelpers.CreateTag(t, h.db, "Breakfast", "breakfast"),
		dinner:    testhelpers.CreateTag(t, h.db, "Dinner", "dinner"),
		eggs:      testhelpers.CreateIngredient(t, h.db, "eggs", "pcs"),
		milk:      testhelpers.CreateIngredient(t, h.db, "milk", "ml"),
	}
}

func recipeBody(c catalog) map[string]any {
	return map[string]any{
		"name":         "Omelette",
		"text":         "Whisk and fry.",
		"cooking_time": 10,
		"image":        "data:image/png;base64," + onePixelPNG,
		"tags":         []uuid.UUID{c.dinner.ID, c.breakfast.ID},
		"ingredients": []map[string]any{
			{"id": c.eggs.ID, "amount": 3},
			{"id": c.milk.ID, "amount": 50},
		},
	}
}

func TestRecipeLifecycle(t *testing.T) {
	h := newHarness(t)
	c := seedCatalog(t, h)
	author := testhelpers.CreateUser(t, h.db, "author")
	stranger := testhelpers.CreateUser(t, h.db, "stranger")
	admin := testhelpers.CreateSuperuser(t, h.db, "admin")
	authorToken := h.login(author)

	w := h.do(http.MethodPost, "/api/recipes", recipeBody(c), authorToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[types.RecipeResponse](t, w)
	assert.Equal(t, "Omelette", created.Name)
	assert.Equal(t, author.ID, created.Author.ID)
	assert.True(t, strings.HasPrefix(created.Image, mediaURL+"/"), created.Image)
	require.Len(t, created.Tags, 2)
	assert.Equal(t, "breakfast", created.Tags[0].Slug)
	require.Len(t, created.Ingredients, 2)
	assert.Equal(t, c.eggs.ID, created.Ingredients[0].ID)
	assert.Equal(t, 3, created.Ingredients[0].Amount)
	assert.Equal(t, "pcs", created.Ingredients[0].MeasurementUnit)

	path := "/api/recipes/" + created.ID.String()

	w = h.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[types.RecipeResponse](t, w).IsFavorited)

	strangerToken := h.login(stranger)
	w = h.do(http.MethodPatch, path, map[string]any{"name": "Stolen"}, strangerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = h.do(http.MethodPut, path, recipeBody(c), strangerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = h.do(http.MethodDelete, path, nil, strangerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = h.do(http.MethodGet, path, nil, strangerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Omelette", decode[types.RecipeResponse](t, w).Name)

	w = h.do(http.MethodPatch, path, map[string]any{"name": "Fluffy omelette"}, authorToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.RecipeResponse](t, w)
	assert.Equal(t, "Fluffy omelette", updated.Name)
	assert.Equal(t, created.Text, updated.Text)
	assert.Len(t, updated.Tags, 2)
	assert.Len(t, updated.Ingredients, 2)

	w = h.do(http.MethodPatch, path, map[string]any{"cooking_time": 0}, authorToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cooking_time", errorField(t, w))

	w = h.do(http.MethodDelete, path, nil, h.login(admin))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, path, nil, authorToken).Code)
}

func TestCreateRecipeRequiresAuthentication(t *testing.T) {
	h := newHarness(t)
	c := seedCatalog(t, h)

	w := h.do(http.MethodPost, "/api/recipes", recipeBody(c), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/recipes", nil, "").Code)
}

func TestCreateRecipeErrors(t *testing.T) {
	h := newHarness(t)
	c := seedCatalog(t, h)
	token := h.login(testhelpers.CreateUser(t, h.db, "author"))

	tests := []struct {
		name   string
		mutate func(body map[string]any)
		status int
		field  string
	}{
		{
			name:   "missing ingredients",
			mutate: func(body map[string]any) { delete(body, "ingredients") },
			status: http.StatusBadRequest,
			field:  "ingredients",
		},
		{
			name:   "bad image",
			mutate: func(body map[string]any) { body["image"] = "data:text/plain;base64,aGVsbG8=" },
			status: http.StatusBadRequest,
			field:  "image",
		},
		{
			name: "payload is not an image",
			mutate: func(body map[string]any) {
				body["image"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("#!/bin/sh\necho hi\n"))
			},
			status: http.StatusBadRequest,
			field:  "image",
		},
		{
			name: "svg image",
			mutate: func(body map[string]any) {
				body["image"] = "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte("<svg></svg>"))
			},
			status: http.StatusBadRequest,
			field:  "image",
		},
		{
			name: "zero amount",
			mutate: func(body map[string]any) {
				body["ingredients"] = []map[string]any{{"id": c.eggs.ID, "amount": 0}}
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown ingredient",
			mutate: func(body map[string]any) {
				body["ingredients"] = []map[string]any{{"id": uuid.New(), "amount": 1}}
			},
			status: http.StatusNotFound,
		},
		{
			name: "duplicate ingredient",
			mutate: func(body map[string]any) {
				body["ingredients"] = []map[string]any{
					{"id": c.eggs.ID, "amount": 1},
					{"id": c.eggs.ID, "amount": 2},
				}
			},
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := recipeBody(c)
			tt.mutate(body)
			w := h.do(http.MethodPost, "/api/recipes", body, token)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, errorField(t, w))
			}
		})
	}

	var count int64
	require.NoError(t, h.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRecipeMultipart(t *testing.T) {
	h := newHarness(t)
	c := seedCatalog(t, h)
	token := h.login(testhelpers.CreateUser(t, h.db, "author"))

	png, err := base64.StdEncoding.DecodeString(onePixelPNG)
	require.NoError(t, err)
	ingredients, err := json.Marshal([]map[string]any{{"id": c.eggs.ID, "amount": 2}})
	require.NoError(t, err)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Boiled eggs"))
	require.NoError(t, form.WriteField("text", "Boil for ten minutes."))
	require.NoError(t, form.WriteField("cooking_time", "10"))
	require.NoError(t, form.WriteField("tags", c.breakfast.ID.String()))
	require.NoError(t, form.WriteField("ingredients", string(ingredients)))
	part, err := form.CreateFormFile("image", "eggs.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recipes", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[types.RecipeResponse](t, w)
	assert.Equal(t, "Boiled eggs", created.Name)
	assert.Contains(t, created.Image, "eggs")
	require.Len(t, created.Tags, 1)
	require.Len(t, created.Ingredients, 1)
	assert.Equal(t, 2, created.Ingredients[0].Amount)
}

func TestListRecipesFiltersAndPages(t *testing.T) {
	h := newHarness(t)
	c := seedCatalog(t, h)
	alice := testhelpers.CreateUser(t, h.db, "alice")
	bob := testhelpers.CreateUser(t, h.db, "bob")
	pancakes := testhelpers.CreateRecipe(t, h.db, alice, "pancakes", []*models.Tag{c.breakfast})
	testhelpers.CreateRecipe(t, h.db, alice, "stew", []*models.Tag{c.dinner})
	testhelpers.CreateRecipe(t, h.db, bob, "porridge", []*models.Tag{c.breakfast})
	token := h.login(bob)

	list := func(query, token string) types.Page[types.RecipeResponse] {
		t.Helper()
		w := h.do(http.MethodGet, "/api/recipes"+query, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[types.Page[types.RecipeResponse]](t, w)
	}
	names := func(page types.Page[types.RecipeResponse]) []string {
		out := make([]string, 0, len(page.Results))
		for _, r := range page.Results {
			out = append(out, r.Name)
		}
		return out
	}

	page := list("?limit=2", "")
	assert.EqualValues(t, 3, page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)

	page = list("?limit=2&page=2", "")
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)
	assert.NotNil(t, page.Previous)

	assert.ElementsMatch(t, []string{"pancakes", "porridge"}, names(list("?tags=breakfast", "")))
	assert.ElementsMatch(t, []string{"pancakes", "stew", "porridge"}, names(list("?tags=breakfast&tags=dinner", "")))
	assert.ElementsMatch(t, []string{"pancakes", "stew"}, names(list("?author="+alice.ID.String(), "")))

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/recipes/"+pancakes.ID.String()+"/favorite", nil, token).Code)
	favorites := list("?is_favorited=1", token)
	assert.Equal(t, []string{"pancakes"}, names(favorites))
	assert.True(t, favorites.Results[0].IsFavorited)
	assert.Len(t, list("?is_favorited=0", token).Results, 2)

	// Anonymous callers have no favorites.
	assert.Empty(t, list("?is_favorited=1", "").Results)

	w := h.do(http.MethodGet, "/api/recipes?page=4611686018427387904&limit=2", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "page", errorField(t, w))
	w = h.do(http.MethodGet, "/api/recipes?page=9223372036854775807", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/recipes?author=someone", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/recipes?is_favorited=maybe", nil, "").Code)
}

func TestFavoritesAndShoppingCart(t *testing.T) {
	h := newHarness(t)
	c := seedCatalog(t, h)
	author := testhelpers.CreateUser(t, h.db, "author")
	omelette := testhelpers.CreateRecipe(t, h.db, author, "omelette", nil,
		testhelpers.Amount{Ingredient: c.eggs, Amount: 3},
		testhelpers.Amount{Ingredient: c.milk, Amount: 50},
	)
	scramble := testhelpers.CreateRecipe(t, h.db, author, "scramble", nil,
		testhelpers.Amount{Ingredient: c.eggs, Amount: 2},
	)
	token := h.login(testhelpers.CreateUser(t, h.db, "shopper"))

	for _, collection := range []string{"favorite", "shopping_cart"} {
		path := "/api/recipes/" + omelette.ID.String() + "/" + collection

		w := h.do(http.MethodPost, path, nil, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		summary := decode[types.RecipeSummary](t, w)
		assert.Equal(t, omelette.ID, summary.ID)

		assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, path, nil, token).Code, collection)
		assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, path, nil, "").Code, collection)
		assert.Equal(t, http.StatusNotFound,
			h.do(http.MethodPost, "/api/recipes/"+uuid.NewString()+"/"+collection, nil, token).Code, collection)
	}
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/recipes/"+scramble.ID.String()+"/shopping_cart", nil, token).Code)

	w := h.do(http.MethodGet, "/api/recipes/"+omelette.ID.String(), nil, token)
	view := decode[types.RecipeResponse](t, w)
	assert.True(t, view.IsFavorited)
	assert.True(t, view.IsInShoppingCart)

	w = h.do(http.MethodGet, "/api/recipes/download_shopping_cart", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="shopping_cart.txt"`)
	assert.Equal(t, "Список покупок:\neggs pcs 5\nmilk ml 50\n", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/recipes/download_shopping_cart", nil, "").Code)

	path := "/api/recipes/" + omelette.ID.String() + "/favorite"
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, path, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, path, nil, token).Code)
}

func TestRecipeCreationIsRateLimited(t *testing.T) {
	limiter := middleware.NewLocalRateLimiter(middleware.RateLimitConfig{
		Limit:     1,
		Window:    time.Hour,
		KeyPrefix: "test",
	})
	h := newHarness(t, func(o *api.Options) { o.RecipeLimiter = limiter })
	c := seedCatalog(t, h)
	token := h.login(testhelpers.CreateUser(t, h.db, "author"))

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/recipes", recipeBody(c), token).Code)

	w := h.do(http.MethodPost, "/api/recipes", recipeBody(c), token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
