package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite marks a recipe as bookmarked by a user.
type Favorite struct {
	Base
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_favorites_user_recipe" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_favorites_user_recipe;index" json:"recipe_id"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ShoppingListEntry queues a recipe for the user's shopping list.
type ShoppingListEntry struct {
	Base
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_shopping_list_entries_user_recipe" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_shopping_list_entries_user_recipe;index" json:"recipe_id"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Follow subscribes User to the recipes of Author.
type Follow struct {
	Base
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_follows_user_author" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AuthorID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_follows_user_author;index;check:chk_follows_not_self,user_id <> author_id" json:"author_id"`
	Author    User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
