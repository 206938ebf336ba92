package service

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipeFilter narrows the recipe list. Nil fields and an empty tag list do
// not filter; the remaining predicates are combined with AND.
type RecipeFilter struct {
	// IsFavorited true keeps the viewer's favorites, false drops them.
	IsFavorited *bool
	// IsInShoppingCart works like IsFavorited against the shopping cart.
	IsInShoppingCart *bool
	AuthorID         *uuid.UUID
	// Tags keeps recipes carrying at least one of these slugs.
	Tags []string
}

// ParseRecipeFilter reads is_favorited, is_in_shopping_cart, author and the
// repeated tags parameter.
func ParseRecipeFilter(q url.Values) (RecipeFilter, error) {
	var f RecipeFilter
	var err error

	if f.IsFavorited, err = parseFlag(q, "is_favorited"); err != nil {
		return f, err
	}
	if f.IsInShoppingCart, err = parseFlag(q, "is_in_shopping_cart"); err != nil {
		return f, err
	}
	if raw := q.Get("author"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, NewValidationError("author", "must be a valid id")
		}
		f.AuthorID = &id
	}
	for _, slug := range q["tags"] {
		if slug != "" {
			f.Tags = append(f.Tags, slug)
		}
	}
	return f, nil
}

func parseFlag(q url.Values, name string) (*bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, NewValidationError(name, "must be 0, 1, true or false")
	}
	return &v, nil
}

func (s *RecipeService) applyFilter(query *gorm.DB, viewer uuid.UUID, f RecipeFilter) *gorm.DB {
	if f.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *f.AuthorID)
	}
	if len(f.Tags) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.Tags)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if f.IsFavorited != nil {
		query = membership(query, *f.IsFavorited, s.relations.Favorites.TargetIDs(viewer))
	}
	if f.IsInShoppingCart != nil {
		query = membership(query, *f.IsInShoppingCart, s.relations.ShoppingCart.TargetIDs(viewer))
	}
	return query
}

func membership(query *gorm.DB, include bool, ids *gorm.DB) *gorm.DB {
	if include {
		return query.Where("recipes.id IN (?)", ids)
	}
	return query.Where("recipes.id NOT IN (?)", ids)
}
