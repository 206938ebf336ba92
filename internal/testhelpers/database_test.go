package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

func TestSetupSQLite(t *testing.T) {
	db := SetupSQLite(t)
	assertSchema(t, db)
}

func TestSetupPostgres(t *testing.T) {
	db := SetupPostgres(t)
	assertSchema(t, db)
}

// assertSchema checks the constraints the services rely on.
func assertSchema(t *testing.T, db *gorm.DB) {
	t.Helper()

	author := CreateUser(t, db, "author")
	flour := CreateIngredient(t, db, "Flour", "g")
	tag := CreateTag(t, db, "Breakfast", "breakfast")
	recipe := CreateRecipe(t, db, author, "Bread", []*models.Tag{tag}, Amount{Ingredient: flour, Amount: 100})

	err := db.Create(&models.Ingredient{Name: " FLOUR", MeasurementUnit: "g"}).Error
	assert.Error(t, err, "ingredient names are unique per unit after normalization")

	err = db.Create(&models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: flour.ID, Amount: 5}).Error
	assert.Error(t, err, "an ingredient appears once per recipe")

	err = db.Create(&models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: CreateIngredient(t, db, "Salt", "g").ID, Amount: 0}).Error
	assert.Error(t, err, "amount must be positive")

	err = db.Create(&models.Follow{UserID: author.ID, AuthorID: author.ID}).Error
	assert.Error(t, err, "users cannot follow themselves")

	reader := CreateUser(t, db, "reader")
	require.NoError(t, db.Create(&models.Favorite{UserID: reader.ID, RecipeID: recipe.ID}).Error)
	assert.Error(t, db.Create(&models.Favorite{UserID: reader.ID, RecipeID: recipe.ID}).Error)

	require.NoError(t, db.Delete(&models.User{}, "id = ?", author.ID).Error)

	var recipes, amounts, favorites int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&recipes).Error)
	require.NoError(t, db.Model(&models.RecipeIngredient{}).Count(&amounts).Error)
	require.NoError(t, db.Model(&models.Favorite{}).Count(&favorites).Error)
	assert.Zero(t, recipes, "deleting an author deletes their recipes")
	assert.Zero(t, amounts)
	assert.Zero(t, favorites)
}
