package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
)

// RelationRegistry manages link rows of type L that connect an owner (always
// a user) to a target. Uniqueness of (owner, target) is enforced by a unique
// index in the store, so concurrent duplicate adds leave exactly one row.
type RelationRegistry[L any] struct {
	db           *gorm.DB
	ownerColumn  string
	targetColumn string
	newLink      func(owner, target uuid.UUID) *L
	validate     func(owner, target uuid.UUID) error
	duplicateMsg string
	missingMsg   string
}

// Relations groups the three registries of the application.
type Relations struct {
	Favorites    *RelationRegistry[models.Favorite]
	ShoppingCart *RelationRegistry[models.ShoppingListEntry]
	Follows      *RelationRegistry[models.Follow]
}

func NewRelations(db *gorm.DB) *Relations {
	return &Relations{
		Favorites: &RelationRegistry[models.Favorite]{
			db:           db,
			ownerColumn:  "user_id",
			targetColumn: "recipe_id",
			newLink: func(owner, target uuid.UUID) *models.Favorite {
				return &models.Favorite{UserID: owner, RecipeID: target}
			},
			duplicateMsg: "recipe is already in favorites",
			missingMsg:   "recipe is not in favorites",
		},
		ShoppingCart: &RelationRegistry[models.ShoppingListEntry]{
			db:           db,
			ownerColumn:  "user_id",
			targetColumn: "recipe_id",
			newLink: func(owner, target uuid.UUID) *models.ShoppingListEntry {
				return &models.ShoppingListEntry{UserID: owner, RecipeID: target}
			},
			duplicateMsg: "recipe is already in the shopping cart",
			missingMsg:   "recipe is not in the shopping cart",
		},
		Follows: &RelationRegistry[models.Follow]{
			db:           db,
			ownerColumn:  "user_id",
			targetColumn: "author_id",
			newLink: func(owner, target uuid.UUID) *models.Follow {
				return &models.Follow{UserID: owner, AuthorID: target}
			},
			validate: func(owner, target uuid.UUID) error {
				if owner == target {
					return NewValidationError("author", "you cannot subscribe to yourself")
				}
				return nil
			},
			duplicateMsg: "already subscribed to this author",
			missingMsg:   "not subscribed to this author",
		},
	}
}

// Add creates the link. A second add of the same pair fails with ErrConflict.
func (r *RelationRegistry[L]) Add(ctx context.Context, owner, target uuid.UUID) error {
	if r.validate != nil {
		if err := r.validate(owner, target); err != nil {
			return err
		}
	}

	link := r.newLink(owner, target)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return conflict(r.duplicateMsg)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// Remove hard-deletes the link, failing with ErrNotFound when it does not exist.
func (r *RelationRegistry[L]) Remove(ctx context.Context, owner, target uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where(r.ownerColumn+" = ? AND "+r.targetColumn+" = ?", owner, target).
		Delete(new(L))
	if res.Error != nil {
		return fmt.Errorf("failed to delete link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(r.missingMsg)
	}
	return nil
}

func (r *RelationRegistry[L]) Exists(ctx context.Context, owner, target uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(L)).
		Where(r.ownerColumn+" = ? AND "+r.targetColumn+" = ?", owner, target).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return count > 0, nil
}

// Linked returns which of the given targets the owner is linked to.
func (r *RelationRegistry[L]) Linked(ctx context.Context, owner uuid.UUID, targets []uuid.UUID) (map[uuid.UUID]bool, error) {
	linked := make(map[uuid.UUID]bool)
	if owner == uuid.Nil || len(targets) == 0 {
		return linked, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(new(L)).
		Where(r.ownerColumn+" = ? AND "+r.targetColumn+" IN ?", owner, targets).
		Pluck(r.targetColumn, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}
	for _, id := range ids {
		linked[id] = true
	}
	return linked, nil
}

// TargetIDs is a sub-query selecting every target linked to owner.
func (r *RelationRegistry[L]) TargetIDs(owner uuid.UUID) *gorm.DB {
	return r.db.Model(new(L)).Select(r.targetColumn).Where(r.ownerColumn+" = ?", owner)
}
