package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	// ShoppingListFileName is the attachment name of a downloaded list.
	ShoppingListFileName = "shopping_cart.txt"
	shoppingListHeader   = "Список покупок:"
)

// ShoppingListService aggregates the ingredients of the recipes in a
// user's shopping cart.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Generate sums the amounts of every (ingredient name, unit) pair across the
// user's cart in a single grouped query, ordered by name then unit.
func (s *ShoppingListService) Generate(ctx context.Context, user uuid.UUID) ([]types.ShoppingListItem, error) {
	items := []types.ShoppingListItem{}
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_list_entries ON shopping_list_entries.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_list_entries.user_id = ?", user).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// Render formats items as the downloadable text list: a header line followed
// by one "<name> <unit> <amount>" line per item.
func Render(items []types.ShoppingListItem) []byte {
	var buf bytes.Buffer
	buf.WriteString(shoppingListHeader)
	buf.WriteByte('\n')
	for _, item := range items {
		fmt.Fprintf(&buf, "%s %s %d\n", item.Name, item.MeasurementUnit, item.TotalAmount)
	}
	return buf.Bytes()
}
