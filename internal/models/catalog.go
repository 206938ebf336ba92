package models

import (
	"gorm.io/gorm"
)

// Ingredient is a catalog entry. Recipes reference it through RecipeIngredient.
type Ingredient struct {
	Base
	Name            string `gorm:"size:200;not null;uniqueIndex:idx_ingredients_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:200;not null;uniqueIndex:idx_ingredients_name_unit" json:"measurement_unit"`
}

func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	i.Name = NormalizeName(i.Name)
	return nil
}

type Tag struct {
	Base
	Name  string `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Color string `gorm:"size:7;not null;uniqueIndex" json:"color"`
	Slug  string `gorm:"size:200;not null;uniqueIndex" json:"slug"`
}

func (t *Tag) BeforeSave(tx *gorm.DB) error {
	t.Name = NormalizeName(t.Name)
	return nil
}
