package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Recipe struct {
	Base
	AuthorID    uuid.UUID          `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Author      User               `gorm:"constraint:OnDelete:CASCADE" json:"author"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Image       string             `gorm:"size:255;not null;default:''" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1" json:"cooking_time"`
	PubDate     time.Time          `gorm:"<-:create;not null;index" json:"pub_date"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredients"`
}

// BeforeCreate stamps the publication date once. The column is create-only,
// so later saves cannot move it.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if err := r.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if r.PubDate.IsZero() {
		r.PubDate = time.Now().UTC()
	}
	return nil
}

// RecipeIngredient is the amount of one ingredient in one recipe.
type RecipeIngredient struct {
	Base
	RecipeID     uuid.UUID  `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_ingredients_recipe_ingredient" json:"recipe_id"`
	IngredientID uuid.UUID  `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_ingredients_recipe_ingredient;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredient"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1" json:"amount"`
	Position     int        `gorm:"not null;default:0" json:"-"`
}
