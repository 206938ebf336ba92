package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_foreign_keys=on", database.SQLiteDSN(":memory:"))
	assert.Equal(t, "file:foodgram.db?_foreign_keys=on&_busy_timeout=5000", database.SQLiteDSN("foodgram.db"))
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := database.Open(sqlite.Open(database.SQLiteDSN(":memory:")), zap.NewNop(), "error")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, "", zap.NewNop()))

	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model), "table for %T", model)
	}
	assert.True(t, db.Migrator().HasTable("recipe_tags"))
	assert.NoError(t, database.HealthCheck(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Error(t, database.HealthCheck(context.Background(), db))
}

func TestIsUniqueViolation(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	testhelpers.CreateIngredient(t, db, "salt", "g")

	err := db.Create(&models.Ingredient{Name: "salt", MeasurementUnit: "g"}).Error
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	assert.True(t, database.IsUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, database.IsUniqueViolation(errors.New(`pq: duplicate key value violates unique constraint "follows_pkey"`)))
	assert.False(t, database.IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, database.IsUniqueViolation(nil))
}
