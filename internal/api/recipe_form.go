package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
)

// bindRecipeInput reads a recipe from either a JSON body, where the image
// is a base64 data URI, or a multipart form with the image as a file.
func bindRecipeInput(c *gin.Context) (*service.RecipeInput, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return bindRecipeForm(c)
	}

	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.NewValidationError("", "invalid request body: "+err.Error())
	}

	in := &service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Tags:        req.Tags,
	}
	if req.Ingredients != nil {
		in.Ingredients = ingredientAmounts(*req.Ingredients)
	}
	if req.Image != nil && *req.Image != "" {
		img, err := storage.DecodeDataURI(*req.Image)
		if err != nil {
			return nil, err
		}
		in.Image = img
	}
	return in, nil
}

func bindRecipeForm(c *gin.Context) (*service.RecipeInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, service.NewValidationError("", "invalid multipart form: "+err.Error())
	}

	in := &service.RecipeInput{}
	if v := form.Value["name"]; len(v) > 0 {
		in.Name = &v[0]
	}
	if v := form.Value["text"]; len(v) > 0 {
		in.Text = &v[0]
	}
	if v := form.Value["cooking_time"]; len(v) > 0 {
		minutes, err := strconv.Atoi(strings.TrimSpace(v[0]))
		if err != nil {
			return nil, service.NewValidationError("cooking_time", "must be an integer")
		}
		in.CookingTime = &minutes
	}
	if v, ok := form.Value["tags"]; ok {
		tags := make([]uuid.UUID, 0, len(v))
		for _, raw := range v {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, service.NewValidationError("tags", "must be a list of tag ids")
			}
			tags = append(tags, id)
		}
		in.Tags = &tags
	}
	if v := form.Value["ingredients"]; len(v) > 0 {
		var items []types.RecipeIngredientRequest
		if err := json.Unmarshal([]byte(v[0]), &items); err != nil {
			return nil, service.NewValidationError("ingredients", "must be a JSON list of {id, amount}")
		}
		in.Ingredients = ingredientAmounts(items)
	}
	if files := form.File["image"]; len(files) > 0 {
		img, err := storage.FromUpload(files[0])
		if err != nil {
			return nil, err
		}
		in.Image = img
	}
	return in, nil
}

func ingredientAmounts(items []types.RecipeIngredientRequest) *[]service.IngredientAmount {
	amounts := make([]service.IngredientAmount, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, service.IngredientAmount{IngredientID: item.ID, Amount: item.Amount})
	}
	return &amounts
}
