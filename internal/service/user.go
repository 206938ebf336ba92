package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserService reads users as seen by a viewer.
type UserService struct {
	db      *gorm.DB
	follows *RelationRegistry[models.Follow]
}

func NewUserService(db *gorm.DB, relations *Relations) *UserService {
	return &UserService{db: db, follows: relations.Follows}
}

// List returns one page of users in registration order and the total count.
func (s *UserService) List(ctx context.Context, viewer uuid.UUID, page types.PageRequest) ([]types.UserResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := query.Order("created_at").Order("id").Limit(page.Limit).Offset(page.Offset()).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	following, err := s.follows.Linked(ctx, viewer, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]types.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, types.NewUserResponse(&users[i], following[users[i].ID]))
	}
	return out, count, nil
}

func (s *UserService) Get(ctx context.Context, viewer, id uuid.UUID) (*types.UserResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user %s", id)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	subscribed := false
	if viewer != uuid.Nil && viewer != id {
		var err error
		if subscribed, err = s.follows.Exists(ctx, viewer, id); err != nil {
			return nil, err
		}
	}
	resp := types.NewUserResponse(&user, subscribed)
	return &resp, nil
}
