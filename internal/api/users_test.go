package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestRegisterLoginAndMe(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/users", map[string]string{
		"email":      "Cook@Example.com",
		"username":   "cook",
		"first_name": "Ann",
		"last_name":  "Cook",
		"password":   "long-password",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[types.UserResponse](t, w)
	assert.Equal(t, "cook@example.com", created.Email)
	assert.False(t, created.IsSubscribed)
	assert.NotContains(t, w.Body.String(), "password")

	w = h.do(http.MethodPost, "/api/auth/token/login", map[string]string{
		"email":    "cook@example.com",
		"password": "long-password",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[types.TokenResponse](t, w).AuthToken
	require.NotEmpty(t, token)

	w = h.do(http.MethodGet, "/api/users/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.UserResponse](t, w).ID)

	w = h.do(http.MethodGet, "/api/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/api/users/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	testhelpers.CreateUser(t, h.db, "taken")

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{
			name:  "missing email",
			body:  map[string]string{"username": "a", "first_name": "A", "last_name": "B", "password": "long-password"},
			field: "email",
		},
		{
			name:  "short password",
			body:  map[string]string{"email": "a@example.com", "username": "a", "first_name": "A", "last_name": "B", "password": "short"},
			field: "password",
		},
		{
			name:  "taken username",
			body:  map[string]string{"email": "a@example.com", "username": "taken", "first_name": "A", "last_name": "B", "password": "long-password"},
			field: "username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/api/users", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.field, errorField(t, w))
		})
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	h := newHarness(t)
	user := testhelpers.CreateUser(t, h.db, "cook")

	w := h.do(http.MethodPost, "/api/auth/token/login", map[string]string{
		"email":    user.Email,
		"password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPassword(t *testing.T) {
	h := newHarness(t)
	user := testhelpers.CreateUser(t, h.db, "cook")
	token := h.login(user)

	w := h.do(http.MethodPost, "/api/users/set_password", map[string]string{
		"current_password": "wrong-password",
		"new_password":     "another-password",
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "current_password", errorField(t, w))

	w = h.do(http.MethodPost, "/api/users/set_password", map[string]string{
		"current_password": testhelpers.TestPassword,
		"new_password":     "another-password",
	}, token)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(http.MethodPost, "/api/auth/token/login", map[string]string{
		"email":    user.Email,
		"password": "another-password",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserListAndProfile(t *testing.T) {
	h := newHarness(t)
	viewer := testhelpers.CreateUser(t, h.db, "viewer")
	author := testhelpers.CreateUser(t, h.db, "author")
	testhelpers.CreateUser(t, h.db, "other")
	token := h.login(viewer)

	w := h.do(http.MethodGet, "/api/users?limit=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.Page[types.UserResponse]](t, w)
	assert.EqualValues(t, 3, page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	w = h.do(http.MethodGet, "/api/users?page=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/users/"+author.ID.String()+"/subscribe", nil, token).Code)

	w = h.do(http.MethodGet, "/api/users/"+author.ID.String(), nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[types.UserResponse](t, w).IsSubscribed)

	w = h.do(http.MethodGet, "/api/users/"+author.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[types.UserResponse](t, w).IsSubscribed)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/users/not-a-uuid", nil, "").Code)
}

func TestSubscriptions(t *testing.T) {
	h := newHarness(t)
	reader := testhelpers.CreateUser(t, h.db, "reader")
	author := testhelpers.CreateUser(t, h.db, "author")
	testhelpers.CreateRecipe(t, h.db, author, "soup", nil)
	testhelpers.CreateRecipe(t, h.db, author, "salad", nil)
	token := h.login(reader)
	subscribe := "/api/users/" + author.ID.String() + "/subscribe"

	w := h.do(http.MethodPost, subscribe+"?recipes_limit=1", nil, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode[types.SubscriptionResponse](t, w)
	assert.True(t, sub.IsSubscribed)
	assert.EqualValues(t, 2, sub.RecipesCount)
	assert.Len(t, sub.Recipes, 1)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, subscribe, nil, token).Code)

	w = h.do(http.MethodPost, "/api/users/"+reader.ID.String()+"/subscribe", nil, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "author", errorField(t, w))

	w = h.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=abc", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.Page[types.SubscriptionResponse]](t, w)
	require.EqualValues(t, 1, page.Count)
	assert.Len(t, page.Results[0].Recipes, 2)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/users/subscriptions", nil, "").Code)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, subscribe, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, subscribe, nil, token).Code)
}
