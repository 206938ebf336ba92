package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ParseRecipesLimit reads the recipes_limit query parameter. Anything that
// is not a positive integer, including an absent value, means no limit and
// is returned as 0.
func ParseRecipesLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}

// SubscriptionService manages the authors a user follows.
type SubscriptionService struct {
	db      *gorm.DB
	follows *RelationRegistry[models.Follow]
	log     *zap.Logger
}

func NewSubscriptionService(db *gorm.DB, relations *Relations, log *zap.Logger) *SubscriptionService {
	return &SubscriptionService{db: db, follows: relations.Follows, log: log.Named("subscriptions")}
}

// Subscribe makes user follow author and returns the author with a preview
// of at most recipesLimit recipes (0 for all of them).
func (s *SubscriptionService) Subscribe(ctx context.Context, user, author uuid.UUID, recipesLimit int) (*types.SubscriptionResponse, error) {
	var target models.User
	if err := s.db.WithContext(ctx).First(&target, "id = ?", author).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user %s", author)
		}
		return nil, fmt.Errorf("failed to load author: %w", err)
	}
	if err := s.follows.Add(ctx, user, author); err != nil {
		return nil, err
	}
	s.log.Info("subscribed", zap.String("user_id", user.String()), zap.String("author_id", author.String()))

	subs, err := s.describe(ctx, []models.User{target}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &subs[0], nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, user, author uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", author).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load author: %w", err)
	}
	if count == 0 {
		return notFound("user %s", author)
	}
	return s.follows.Remove(ctx, user, author)
}

// List returns one page of the authors user follows, in the order they were
// followed, and the total number of followed authors.
func (s *SubscriptionService) List(ctx context.Context, user uuid.UUID, recipesLimit int, page types.PageRequest) ([]types.SubscriptionResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", user).
		Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := query.
		Order("follows.created_at").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	subs, err := s.describe(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return subs, count, nil
}

// describe builds the subscription form of authors, all of which are
// followed by the caller.
func (s *SubscriptionService) describe(ctx context.Context, authors []models.User, recipesLimit int) ([]types.SubscriptionResponse, error) {
	subs := make([]types.SubscriptionResponse, 0, len(authors))
	if len(authors) == 0 {
		return subs, nil
	}

	ids := make([]uuid.UUID, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}

	var counts []struct {
		AuthorID uuid.UUID
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	totals := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		totals[c.AuthorID] = c.Total
	}

	for i := range authors {
		author := &authors[i]
		preview := s.db.WithContext(ctx).
			Where("author_id = ?", author.ID).
			Order("pub_date DESC")
		if recipesLimit > 0 {
			preview = preview.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if err := preview.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes of %s: %w", author.ID, err)
		}

		sub := types.SubscriptionResponse{
			UserResponse: types.NewUserResponse(author, true),
			Recipes:      make([]types.RecipeSummary, 0, len(recipes)),
			RecipesCount: totals[author.ID],
		}
		for j := range recipes {
			sub.Recipes = append(sub.Recipes, types.NewRecipeSummary(&recipes[j]))
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
