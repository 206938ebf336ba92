package service_test

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type testEnv struct {
	db        *gorm.DB
	relations *service.Relations
	recipes   *service.RecipeService
	mediaRoot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	relations := service.NewRelations(db)
	mediaRoot := t.TempDir()
	images := storage.NewLocalStore(mediaRoot, "http://testserver/media")
	return &testEnv{
		db:        db,
		relations: relations,
		recipes:   service.NewRecipeService(db, relations, images, zap.NewNop()),
		mediaRoot: mediaRoot,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func tagIDs(tags ...*models.Tag) *[]uuid.UUID {
	ids := make([]uuid.UUID, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	return &ids
}

func tagSlugs(r *models.Recipe) []string {
	slugs := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		slugs = append(slugs, tag.Slug)
	}
	return slugs
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}
