package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestFavoriteAddIsNotIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, env.db, "alice")
	author := testhelpers.CreateUser(t, env.db, "bob")
	recipe := testhelpers.CreateRecipe(t, env.db, author, "Soup", nil)

	require.NoError(t, env.relations.Favorites.Add(ctx, user.ID, recipe.ID))

	err := env.relations.Favorites.Add(ctx, user.ID, recipe.ID)
	assert.ErrorIs(t, err, service.ErrConflict)
	assert.EqualValues(t, 1, countRows(t, env.db, &models.Favorite{}, "user_id = ? AND recipe_id = ?", user.ID, recipe.ID))
}

func TestConcurrentAddsLeaveOneRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, env.db, "alice")
	recipe := testhelpers.CreateRecipe(t, env.db, user, "Soup", nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.relations.ShoppingCart.Add(ctx, user.ID, recipe.ID)
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, service.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)
	assert.EqualValues(t, 1, countRows(t, env.db, &models.ShoppingListEntry{}, "user_id = ?", user.ID))
}

func TestFollowSelfIsRejected(t *testing.T) {
	env := newTestEnv(t)
	user := testhelpers.CreateUser(t, env.db, "alice")

	err := env.relations.Follows.Add(context.Background(), user.ID, user.ID)

	var ve *service.ValidationError
	require.True(t, errors.As(err, &ve), "expected a validation error, got %v", err)
	assert.Equal(t, "author", ve.Field)
	assert.EqualValues(t, 0, countRows(t, env.db, &models.Follow{}, "user_id = ?", user.ID))
}

func TestRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, env.db, "alice")
	author := testhelpers.CreateUser(t, env.db, "bob")

	err := env.relations.Follows.Remove(ctx, user.ID, author.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, env.relations.Follows.Add(ctx, user.ID, author.ID))
	require.NoError(t, env.relations.Follows.Remove(ctx, user.ID, author.ID))

	exists, err := env.relations.Follows.Exists(ctx, user.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLinked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, env.db, "alice")
	first := testhelpers.CreateRecipe(t, env.db, user, "First", nil)
	second := testhelpers.CreateRecipe(t, env.db, user, "Second", nil)
	require.NoError(t, env.relations.Favorites.Add(ctx, user.ID, first.ID))

	linked, err := env.relations.Favorites.Linked(ctx, user.ID, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	assert.True(t, linked[first.ID])
	assert.False(t, linked[second.ID])

	linked, err = env.relations.Favorites.Linked(ctx, uuid.Nil, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestRecipeCollection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	favorites := service.NewFavoriteService(env.db, env.relations)
	user := testhelpers.CreateUser(t, env.db, "alice")
	recipe := testhelpers.CreateRecipe(t, env.db, user, "Soup", nil)

	summary, err := favorites.Add(ctx, user.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, summary.ID)
	assert.Equal(t, "Soup", summary.Name)
	assert.Equal(t, 10, summary.CookingTime)

	_, err = favorites.Add(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, favorites.Remove(ctx, user.ID, recipe.ID))
	assert.ErrorIs(t, favorites.Remove(ctx, user.ID, recipe.ID), service.ErrNotFound)
}
