// Command load_data imports the ingredient and tag catalogs from CSV files.
//
// Ingredients are rows of "name,measurement_unit", tags are rows of
// "name,color,slug". Rows already present are skipped, so the command can
// be run repeatedly. Each file is loaded in one transaction: a bad row
// leaves the catalog as it was.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/service"
)

type importer interface {
	Import(ctx context.Context, r io.Reader) (int64, error)
}

func main() {
	ingredients := flag.String("ingredients", "data/ingredients.csv", "ingredient CSV file, empty to skip")
	tags := flag.String("tags", "", "tag CSV file, empty to skip")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, cfg.DatabaseURL(), zl); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	jobs := []struct {
		kind string
		path string
		into importer
	}{
		{kind: "ingredients", path: *ingredients, into: service.NewIngredientService(db, zl)},
		{kind: "tags", path: *tags, into: service.NewTagService(db, zl)},
	}
	for _, job := range jobs {
		if job.path == "" {
			continue
		}
		if err := load(ctx, job.path, job.into); err != nil {
			zl.Fatal("import failed", zap.String("kind", job.kind), zap.String("file", job.path), zap.Error(err))
		}
	}
}

func load(ctx context.Context, path string, into importer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = into.Import(ctx, f)
	return err
}
