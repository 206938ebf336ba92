package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
)

// IngredientService reads the ingredient catalog and bulk loads it.
type IngredientService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewIngredientService(db *gorm.DB, log *zap.Logger) *IngredientService {
	return &IngredientService{db: db, log: log.Named("ingredients")}
}

// List returns the ingredients whose name starts with prefix, ignoring case,
// ordered by name.
func (s *IngredientService) List(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if prefix = models.NormalizeName(prefix); prefix != "" {
		query = query.Where("name LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}

	ingredients := []models.Ingredient{}
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

func (s *IngredientService) Get(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("ingredient %s", id)
		}
		return nil, fmt.Errorf("failed to load ingredient: %w", err)
	}
	return &ingredient, nil
}

// Import loads "name,measurement_unit" rows in one transaction. Rows already
// in the catalog are skipped, so importing the same file twice is harmless.
// A bad row aborts the whole file. It returns the number of rows inserted.
func (s *IngredientService) Import(ctx context.Context, r io.Reader) (int64, error) {
	records, err := readRecords(r, 2)
	if err != nil {
		return 0, err
	}

	var inserted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, rec := range records {
			ingredient := models.Ingredient{Name: rec[0], MeasurementUnit: strings.TrimSpace(rec[1])}
			if models.NormalizeName(ingredient.Name) == "" || ingredient.MeasurementUnit == "" {
				return NewValidationError(fmt.Sprintf("line %d", i+1), "name and measurement unit are required")
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ingredient)
			if res.Error != nil {
				return fmt.Errorf("failed to import ingredient on line %d: %w", i+1, res.Error)
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("ingredients imported", zap.Int("rows", len(records)), zap.Int64("inserted", inserted))
	return inserted, nil
}

// TagService reads the tag catalog and bulk loads it.
type TagService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTagService(db *gorm.DB, log *zap.Logger) *TagService {
	return &TagService{db: db, log: log.Named("tags")}
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("tag %s", id)
		}
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	return &tag, nil
}

type tagRecord struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"required,hexcolor,len=7"`
	Slug  string `json:"slug" validate:"required,max=200,slug"`
}

// Import loads "name,color,slug" rows, skipping tags that already exist.
func (s *TagService) Import(ctx context.Context, r io.Reader) (int64, error) {
	records, err := readRecords(r, 3)
	if err != nil {
		return 0, err
	}

	var inserted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, rec := range records {
			row := tagRecord{
				Name:  strings.TrimSpace(rec[0]),
				Color: strings.ToUpper(strings.TrimSpace(rec[1])),
				Slug:  strings.TrimSpace(rec[2]),
			}
			if err := validateStruct(&row); err != nil {
				var ve *ValidationError
				if errors.As(err, &ve) {
					ve.Field = fmt.Sprintf("line %d: %s", i+1, ve.Field)
				}
				return err
			}
			tag := models.Tag{Name: row.Name, Color: row.Color, Slug: row.Slug}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag)
			if res.Error != nil {
				return fmt.Errorf("failed to import tag on line %d: %w", i+1, res.Error)
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("tags imported", zap.Int("rows", len(records)), zap.Int64("inserted", inserted))
	return inserted, nil
}

// readRecords reads comma separated rows of exactly fields columns.
func readRecords(r io.Reader, fields int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = fields
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, NewValidationError(fmt.Sprintf("line %d", parseErr.Line), parseErr.Err.Error())
		}
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
