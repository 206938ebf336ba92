package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserHandler serves registration, user profiles and subscriptions.
type UserHandler struct {
	auth          *service.AuthService
	users         *service.UserService
	subscriptions *service.SubscriptionService
	pageSize      int
}

func NewUserHandler(svc *Services, pageSize int) *UserHandler {
	return &UserHandler{
		auth:          svc.Auth,
		users:         svc.Users,
		subscriptions: svc.Subscriptions,
		pageSize:      pageSize,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", h.List)
		users.GET("/me", middleware.RequireAuth(), h.Me)
		users.POST("/set_password", middleware.RequireAuth(), h.SetPassword)
		users.GET("/subscriptions", middleware.RequireAuth(), h.Subscriptions)
		users.GET("/:id", h.Get)
		users.POST("/:id/subscribe", middleware.RequireAuth(), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.RequireAuth(), h.Unsubscribe)
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.NewUserResponse(user, false))
}

func (h *UserHandler) List(c *gin.Context) {
	page, err := pageRequest(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	users, count, err := h.users.List(c.Request.Context(), middleware.GetActor(c).ID(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, count, users))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), middleware.GetActor(c).ID(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	actor := middleware.GetActor(c)
	user, err := h.users.Get(c.Request.Context(), actor.ID(), actor.ID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.auth.SetPassword(c.Request.Context(), middleware.GetActor(c).ID(), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscriptions lists the authors the caller follows. ?recipes_limit=
// truncates each author's recipe preview.
func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, err := pageRequest(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	subs, count, err := h.subscriptions.List(
		c.Request.Context(),
		middleware.GetActor(c).ID(),
		service.ParseRecipesLimit(c.Query("recipes_limit")),
		page,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, count, subs))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.Subscribe(
		c.Request.Context(),
		middleware.GetActor(c).ID(),
		id,
		service.ParseRecipesLimit(c.Query("recipes_limit")),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), middleware.GetActor(c).ID(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
