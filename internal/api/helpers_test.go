package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

const mediaURL = "http://testserver/media"

// onePixelPNG is a valid 1x1 PNG image.
const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newHarness(t *testing.T, opts ...func(*api.Options)) *harness {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}

	svc := api.NewServices(db, storage.NewLocalStore(t.TempDir(), mediaURL), cfg, zap.NewNop())
	svc.Auth.WithHashCost(bcrypt.MinCost)

	options := api.Options{PageSize: 6}
	for _, opt := range opts {
		opt(&options)
	}

	router := gin.New()
	api.RegisterRoutes(router, svc, options)
	return &harness{t: t, db: db, router: router}
}

// do sends body encoded as JSON and authenticates with token when set.
func (h *harness) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// login obtains a token for a user created by testhelpers.CreateUser.
func (h *harness) login(user *models.User) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/auth/token/login", map[string]string{
		"email":    user.Email,
		"password": testhelpers.TestPassword,
	}, "")
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	return decode[types.TokenResponse](h.t, w).AuthToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorField(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["field"]
}
