package models

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Base carries the UUID primary key shared by every table.
type Base struct {
	ID uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
}

// BeforeCreate assigns an ID when the caller did not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// NormalizeName trims and lowercases catalog names so that "Flour" and
// " flour" land on the same unique key.
func NormalizeName(name string) string {
	// Casers keep state and are not safe to share between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// All lists the models in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Ingredient{},
		&Tag{},
		&Recipe{},
		&RecipeIngredient{},
		&Favorite{},
		&ShoppingListEntry{},
		&Follow{},
	}
}
