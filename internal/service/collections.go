package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeCollection is a per-user set of recipes backed by a relation
// registry: favorites or the shopping cart.
type RecipeCollection[L any] struct {
	db       *gorm.DB
	registry *RelationRegistry[L]
}

func NewFavoriteService(db *gorm.DB, relations *Relations) *RecipeCollection[models.Favorite] {
	return &RecipeCollection[models.Favorite]{db: db, registry: relations.Favorites}
}

func NewShoppingCartService(db *gorm.DB, relations *Relations) *RecipeCollection[models.ShoppingListEntry] {
	return &RecipeCollection[models.ShoppingListEntry]{db: db, registry: relations.ShoppingCart}
}

// Add puts the recipe into the user's collection and returns its short form.
func (c *RecipeCollection[L]) Add(ctx context.Context, user, recipeID uuid.UUID) (*types.RecipeSummary, error) {
	recipe, err := c.recipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := c.registry.Add(ctx, user, recipeID); err != nil {
		return nil, err
	}
	summary := types.NewRecipeSummary(recipe)
	return &summary, nil
}

func (c *RecipeCollection[L]) Remove(ctx context.Context, user, recipeID uuid.UUID) error {
	if _, err := c.recipe(ctx, recipeID); err != nil {
		return err
	}
	return c.registry.Remove(ctx, user, recipeID)
}

func (c *RecipeCollection[L]) recipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := c.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("recipe %s", id)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}
