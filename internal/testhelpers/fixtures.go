package testhelpers

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TestPassword is the plain-text password of every user created by CreateUser.
const TestPassword = "s3cret-pass"

// CreateUser inserts a user whose email and names derive from username.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "First " + username,
		LastName:     "Last " + username,
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

// CreateSuperuser inserts a user with superuser rights.
func CreateSuperuser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := CreateUser(t, db, username)
	if err := db.Model(user).Update("is_superuser", true).Error; err != nil {
		t.Fatalf("failed to promote %s: %v", username, err)
	}
	user.IsSuperuser = true
	return user
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return ingredient
}

// CreateTag inserts a tag; color is derived from the slug when empty.
func CreateTag(t *testing.T, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug, Color: fmt.Sprintf("#%06X", uuid.New().ID()&0xFFFFFF)}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", name, err)
	}
	return tag
}

// Amount pairs an ingredient with its quantity in a fixture recipe.
type Amount struct {
	Ingredient *models.Ingredient
	Amount     int
}

// CreateRecipe inserts a recipe with its tags and ingredient amounts directly,
// bypassing the service layer.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, amounts ...Amount) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        "How to cook " + name,
		CookingTime: 10,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		for _, tag := range tags {
			if err := tx.Table("recipe_tags").Create(map[string]any{"recipe_id": recipe.ID, "tag_id": tag.ID}).Error; err != nil {
				return err
			}
		}
		for i, a := range amounts {
			row := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: a.Ingredient.ID, Amount: a.Amount, Position: i}
			if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create recipe %s: %v", name, err)
	}
	return recipe
}
