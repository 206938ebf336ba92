package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

type RecipeHandler struct {
	recipes      *service.RecipeService
	favorites    *service.RecipeCollection[models.Favorite]
	shoppingCart *service.RecipeCollection[models.ShoppingListEntry]
	shoppingList *service.ShoppingListService
	limiter      middleware.Limiter
	pageSize     int
}

func NewRecipeHandler(svc *Services, pageSize int, limiter middleware.Limiter) *RecipeHandler {
	return &RecipeHandler{
		recipes:      svc.Recipes,
		favorites:    svc.Favorites,
		shoppingCart: svc.ShoppingCart,
		shoppingList: svc.ShoppingList,
		limiter:      limiter,
		pageSize:     pageSize,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	create := []gin.HandlerFunc{}
	if h.limiter != nil {
		create = append(create, middleware.RateLimit(h.limiter))
	}
	create = append(create, h.Create)

	recipes := router.Group("/recipes")
	recipes.Use(middleware.ReadOnlyOrAuthenticated())
	{
		recipes.GET("", h.List)
		recipes.POST("", create...)
		recipes.GET("/download_shopping_cart", middleware.RequireAuth(), h.DownloadShoppingCart)
		recipes.GET("/:id", h.Get)
		recipes.PATCH("/:id", h.Update)
		recipes.PUT("/:id", h.Update)
		recipes.DELETE("/:id", h.Delete)
		recipes.POST("/:id/favorite", h.AddFavorite)
		recipes.DELETE("/:id/favorite", h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", h.RemoveFromShoppingCart)
	}
}

// List returns a page of recipes, newest first, narrowed by the
// is_favorited, is_in_shopping_cart, author and tags query parameters.
func (h *RecipeHandler) List(c *gin.Context) {
	filter, err := service.ParseRecipeFilter(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := pageRequest(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	viewer := middleware.GetActor(c).ID()
	recipes, count, err := h.recipes.List(ctx, viewer, filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := h.recipes.Views(ctx, viewer, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, count, views))
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	in, err := bindRecipeInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), middleware.GetActor(c).ID(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

// Update changes a recipe. Only its author or a superuser may do so.
func (h *RecipeHandler) Update(c *gin.Context) {
	recipe, ok := h.authorizedRecipe(c)
	if !ok {
		return
	}
	in, err := bindRecipeInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.recipes.Update(c.Request.Context(), recipe.ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, updated)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	recipe, ok := h.authorizedRecipe(c)
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), recipe.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	addToCollection(c, h.favorites)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	removeFromCollection(c, h.favorites)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	addToCollection(c, h.shoppingCart)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	removeFromCollection(c, h.shoppingCart)
}

// DownloadShoppingCart sends the aggregated ingredients of the caller's
// cart as a text attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shoppingList.Generate(c.Request.Context(), middleware.GetActor(c).ID())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ShoppingListFileName))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", service.Render(items))
}

// authorizedRecipe loads the :id recipe and checks the caller may change it.
func (h *RecipeHandler) authorizedRecipe(c *gin.Context) (*models.Recipe, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !middleware.HasObjectPermission(c.Request.Method, middleware.GetActor(c), recipe.AuthorID) {
		respondError(c, service.ErrForbidden)
		return nil, false
	}
	return recipe, true
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	view, err := h.recipes.View(c.Request.Context(), middleware.GetActor(c).ID(), recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, view)
}

func addToCollection[L any](c *gin.Context, collection *service.RecipeCollection[L]) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	summary, err := collection.Add(c.Request.Context(), middleware.GetActor(c).ID(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func removeFromCollection[L any](c *gin.Context, collection *service.RecipeCollection[L]) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := collection.Remove(c.Request.Context(), middleware.GetActor(c).ID(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
