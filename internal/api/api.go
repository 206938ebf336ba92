package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
)

// Services bundles everything the handlers call.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Subscriptions *service.SubscriptionService
	Recipes       *service.RecipeService
	Favorites     *service.RecipeCollection[models.Favorite]
	ShoppingCart  *service.RecipeCollection[models.ShoppingListEntry]
	ShoppingList  *service.ShoppingListService
	Ingredients   *service.IngredientService
	Tags          *service.TagService
}

func NewServices(db *gorm.DB, images storage.ImageStore, cfg *config.Config, log *zap.Logger) *Services {
	relations := service.NewRelations(db)
	return &Services{
		Auth:          service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, log),
		Users:         service.NewUserService(db, relations),
		Subscriptions: service.NewSubscriptionService(db, relations, log),
		Recipes:       service.NewRecipeService(db, relations, images, log),
		Favorites:     service.NewFavoriteService(db, relations),
		ShoppingCart:  service.NewShoppingCartService(db, relations),
		ShoppingList:  service.NewShoppingListService(db),
		Ingredients:   service.NewIngredientService(db, log),
		Tags:          service.NewTagService(db, log),
	}
}

// Options tune the routes registered by RegisterRoutes.
type Options struct {
	PageSize int
	// RecipeLimiter limits recipe creation per user.
	RecipeLimiter middleware.Limiter
}

// RegisterRoutes registers all API routes under /api
func RegisterRoutes(router *gin.Engine, svc *Services, opts Options) {
	useJSONFieldNames()

	api := router.Group("/api")
	api.Use(middleware.Authenticate(svc.Auth))

	NewAuthHandler(svc.Auth).RegisterRoutes(api)
	NewUserHandler(svc, opts.PageSize).RegisterRoutes(api)
	NewCatalogHandler(svc.Ingredients, svc.Tags).RegisterRoutes(api)
	NewRecipeHandler(svc, opts.PageSize, opts.RecipeLimiter).RegisterRoutes(api)
}

var registerTagNames sync.Once

// useJSONFieldNames makes binding errors name fields the way clients send
// them.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
		}
	})
}
