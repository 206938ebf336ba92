package types

import (
	"github.com/google/uuid"
)

// RegisterRequest represents the request body for user registration
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=150"`
}

// LoginRequest represents the request body for obtaining a token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=150"`
}

// RecipeIngredientRequest references a catalog ingredient and its amount in the recipe.
type RecipeIngredientRequest struct {
	ID     uuid.UUID `json:"id"`
	Amount int       `json:"amount"`
}

// RecipeRequest is the body of recipe create and partial update. Nil fields
// were not supplied by the client.
type RecipeRequest struct {
	Name        *string                    `json:"name"`
	Text        *string                    `json:"text"`
	CookingTime *int                       `json:"cooking_time"`
	Image       *string                    `json:"image"`
	Tags        *[]uuid.UUID               `json:"tags"`
	Ingredients *[]RecipeIngredientRequest `json:"ingredients"`
}

// PageRequest selects one page of a list. Page is 1-based.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
