package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// CatalogHandler serves the read-only ingredient and tag catalogs.
type CatalogHandler struct {
	ingredients *service.IngredientService
	tags        *service.TagService
}

func NewCatalogHandler(ingredients *service.IngredientService, tags *service.TagService) *CatalogHandler {
	return &CatalogHandler{ingredients: ingredients, tags: tags}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("", h.ListIngredients)
		ingredients.GET("/:id", h.GetIngredient)
	}
	tags := router.Group("/tags")
	{
		tags.GET("", h.ListTags)
		tags.GET("/:id", h.GetTag)
	}
}

// ListIngredients returns every ingredient whose name starts with ?name=.
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.ingredients.List(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]types.IngredientResponse, 0, len(ingredients))
	for i := range ingredients {
		out = append(out, types.NewIngredientResponse(&ingredients[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ingredient, err := h.ingredients.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewIngredientResponse(ingredient))
}

func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]types.TagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, types.NewTagResponse(&tags[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetTag(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tag, err := h.tags.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewTagResponse(tag))
}

// pathID parses the :id path parameter. Malformed ids cannot name a stored
// object and are answered with 404.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return id, true
}
