package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IngredientAmount references a catalog ingredient and its amount in a recipe.
type IngredientAmount struct {
	IngredientID uuid.UUID `json:"id" validate:"required"`
	Amount       int       `json:"amount" validate:"gte=1"`
}

// RecipeInput carries the fields of a recipe create or update. Nil fields
// were not supplied; on update they keep their stored value.
type RecipeInput struct {
	Name        *string             `json:"name" validate:"omitnil,min=1,max=200"`
	Text        *string             `json:"text" validate:"omitnil,min=1"`
	CookingTime *int                `json:"cooking_time" validate:"omitnil,gte=1"`
	Image       *storage.Image      `json:"image" validate:"-"`
	Tags        *[]uuid.UUID        `json:"tags" validate:"omitnil"`
	Ingredients *[]IngredientAmount `json:"ingredients" validate:"omitnil,dive"`
}

// requireComplete reports the first field that a new recipe must carry.
func (in *RecipeInput) requireComplete() error {
	switch {
	case in.Name == nil:
		return NewValidationError("name", "this field is required")
	case in.Text == nil:
		return NewValidationError("text", "this field is required")
	case in.CookingTime == nil:
		return NewValidationError("cooking_time", "this field is required")
	case in.Tags == nil:
		return NewValidationError("tags", "this field is required")
	case in.Ingredients == nil:
		return NewValidationError("ingredients", "this field is required")
	}
	return nil
}

// RecipeService composes recipes from their tags, ingredient amounts and
// image, and serves them annotated for a viewer.
type RecipeService struct {
	db        *gorm.DB
	relations *Relations
	images    storage.ImageStore
	log       *zap.Logger
}

func NewRecipeService(db *gorm.DB, relations *Relations, images storage.ImageStore, log *zap.Logger) *RecipeService {
	return &RecipeService{
		db:        db,
		relations: relations,
		images:    images,
		log:       log.Named("recipes"),
	}
}

// Create stores a new recipe of author. Either the recipe with all of its
// tags and ingredients is stored or nothing is.
func (s *RecipeService) Create(ctx context.Context, author uuid.UUID, in *RecipeInput) (*models.Recipe, error) {
	if err := in.requireComplete(); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var id uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tagIDs, err := resolveTags(tx, *in.Tags)
		if err != nil {
			return err
		}
		if err := resolveIngredients(tx, *in.Ingredients); err != nil {
			return err
		}

		recipe := &models.Recipe{
			AuthorID:    author,
			Name:        *in.Name,
			Text:        *in.Text,
			CookingTime: *in.CookingTime,
		}
		if in.Image != nil {
			if recipe.Image, err = s.images.Save(ctx, in.Image); err != nil {
				return fmt.Errorf("failed to store image: %w", err)
			}
		}
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		if err := replaceTags(tx, recipe.ID, tagIDs); err != nil {
			return err
		}
		if err := replaceIngredients(tx, recipe.ID, *in.Ingredients); err != nil {
			return err
		}
		id = recipe.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("recipe created", zap.String("recipe_id", id.String()), zap.String("author_id", author.String()))
	return s.Get(ctx, id)
}

// Update overwrites the supplied scalar fields. Supplied tags and
// ingredients replace the stored sets entirely.
func (s *RecipeService) Update(ctx context.Context, id uuid.UUID, in *RecipeInput) (*models.Recipe, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.Select("id").First(&recipe, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("recipe %s", id)
			}
			return fmt.Errorf("failed to load recipe: %w", err)
		}

		var tagIDs []uuid.UUID
		if in.Tags != nil {
			var err error
			if tagIDs, err = resolveTags(tx, *in.Tags); err != nil {
				return err
			}
		}
		if in.Ingredients != nil {
			if err := resolveIngredients(tx, *in.Ingredients); err != nil {
				return err
			}
		}

		updates := map[string]any{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Text != nil {
			updates["text"] = *in.Text
		}
		if in.CookingTime != nil {
			updates["cooking_time"] = *in.CookingTime
		}
		if in.Image != nil {
			url, err := s.images.Save(ctx, in.Image)
			if err != nil {
				return fmt.Errorf("failed to store image: %w", err)
			}
			updates["image"] = url
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update recipe: %w", err)
			}
		}

		if in.Tags != nil {
			if err := replaceTags(tx, id, tagIDs); err != nil {
				return err
			}
		}
		if in.Ingredients != nil {
			if err := replaceIngredients(tx, id, *in.Ingredients); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("recipe updated", zap.String("recipe_id", id.String()))
	return s.Get(ctx, id)
}

// Delete removes the recipe. Ingredient amounts, favorites and cart entries
// go with it through foreign key cascades.
func (s *RecipeService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to unlink tags: %w", err)
		}
		res := tx.Delete(&models.Recipe{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete recipe: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("recipe %s", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("recipe deleted", zap.String("recipe_id", id.String()))
	return nil
}

// Get loads a recipe with its author, tags by name and ingredients in the
// order they were submitted.
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := withRecipeAssociations(s.db.WithContext(ctx)).First(&recipe, "recipes.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("recipe %s", id)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

// List returns one page of the recipes matching filter, newest first, and
// the total number of matches.
func (s *RecipeService) List(ctx context.Context, viewer uuid.UUID, filter RecipeFilter, page types.PageRequest) ([]models.Recipe, int64, error) {
	query := s.applyFilter(s.db.WithContext(ctx).Model(&models.Recipe{}), viewer, filter).
		Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	recipes := []models.Recipe{}
	err := withRecipeAssociations(query).
		Order("recipes.pub_date DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, count, nil
}

// View renders one recipe for viewer.
func (s *RecipeService) View(ctx context.Context, viewer uuid.UUID, recipe *models.Recipe) (types.RecipeResponse, error) {
	views, err := s.Views(ctx, viewer, []models.Recipe{*recipe})
	if err != nil {
		return types.RecipeResponse{}, err
	}
	return views[0], nil
}

// Views renders recipes for viewer. The favorite, cart and subscription
// flags are derived from the current link rows with one query each.
func (s *RecipeService) Views(ctx context.Context, viewer uuid.UUID, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := make([]uuid.UUID, 0, len(recipes))
	authorIDs := make([]uuid.UUID, 0, len(recipes))
	for i := range recipes {
		recipeIDs = append(recipeIDs, recipes[i].ID)
		authorIDs = append(authorIDs, recipes[i].AuthorID)
	}

	favorited, err := s.relations.Favorites.Linked(ctx, viewer, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := s.relations.ShoppingCart.Linked(ctx, viewer, recipeIDs)
	if err != nil {
		return nil, err
	}
	following, err := s.relations.Follows.Linked(ctx, viewer, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		view := types.RecipeResponse{
			ID:               r.ID,
			Tags:             make([]types.TagResponse, 0, len(r.Tags)),
			Author:           types.NewUserResponse(&r.Author, following[r.AuthorID]),
			Ingredients:      make([]types.RecipeIngredientResponse, 0, len(r.Ingredients)),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			PubDate:          r.PubDate,
		}
		for j := range r.Tags {
			view.Tags = append(view.Tags, types.NewTagResponse(&r.Tags[j]))
		}
		for _, ri := range r.Ingredients {
			view.Ingredients = append(view.Ingredients, types.RecipeIngredientResponse{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			})
		}
		views = append(views, view)
	}
	return views, nil
}

func withRecipeAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.position") }).
		Preload("Ingredients.Ingredient")
}

// resolveTags checks that every tag exists and drops repeated ids.
func resolveTags(tx *gorm.DB, ids []uuid.UUID) ([]uuid.UUID, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return unique, nil
	}

	var found []uuid.UUID
	if err := tx.Model(&models.Tag{}).Where("id IN ?", unique).Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if missing, ok := firstMissing(unique, found); ok {
		return nil, notFound("tag %s", missing)
	}
	return unique, nil
}

// resolveIngredients checks that every ingredient exists. An ingredient
// listed twice would break the (recipe, ingredient) uniqueness and is
// reported as a conflict.
func resolveIngredients(tx *gorm.DB, amounts []IngredientAmount) error {
	ids := make([]uuid.UUID, 0, len(amounts))
	seen := make(map[uuid.UUID]bool, len(amounts))
	for _, a := range amounts {
		if seen[a.IngredientID] {
			return conflict(fmt.Sprintf("ingredient %s is listed more than once", a.IngredientID))
		}
		seen[a.IngredientID] = true
		ids = append(ids, a.IngredientID)
	}
	if len(ids) == 0 {
		return nil
	}

	var found []uuid.UUID
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}
	if missing, ok := firstMissing(ids, found); ok {
		return notFound("ingredient %s", missing)
	}
	return nil
}

func firstMissing(want, found []uuid.UUID) (uuid.UUID, bool) {
	present := make(map[uuid.UUID]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range want {
		if !present[id] {
			return id, true
		}
	}
	return uuid.Nil, false
}

// replaceTags clears the tag set of a recipe and links tagIDs.
func replaceTags(tx *gorm.DB, recipeID uuid.UUID, tagIDs []uuid.UUID) error {
	if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipeID).Error; err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, map[string]any{"recipe_id": recipeID, "tag_id": id})
	}
	if err := tx.Table("recipe_tags").Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to link tags: %w", err)
	}
	return nil
}

// replaceIngredients deletes every ingredient amount of a recipe and inserts
// amounts in their given order.
func replaceIngredients(tx *gorm.DB, recipeID uuid.UUID, amounts []IngredientAmount) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return fmt.Errorf("failed to clear ingredients: %w", err)
	}
	if len(amounts) == 0 {
		return nil
	}
	rows := make([]models.RecipeIngredient, 0, len(amounts))
	for i, a := range amounts {
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: a.IngredientID,
			Amount:       a.Amount,
			Position:     i,
		})
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return conflict("an ingredient is listed more than once")
		}
		return fmt.Errorf("failed to add ingredients: %w", err)
	}
	return nil
}
