package handlers

import (
	"net/http"

	"go-storefront/internal/auth"
	"go-storefront/internal/middleware"

	"github.com/gin-gonic/gin"
)

const bootstrapHeader = "X-Bootstrap-Token"

type UserHandler struct {
	users *auth.UserService
}

func NewUserHandler(users *auth.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// --- POST: /login ---
func (h *UserHandler) Login(c *gin.Context) {
	var input auth.Credentials
	if !bindJSON(c, &input) {
		return
	}
	res, err := h.users.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": res.Token,
		"role":  res.User.Role,
		"user":  res.User,
	})
}

// --- POST: /register ---
// Only mounted when customer self-registration is enabled.
func (h *UserHandler) Register(c *gin.Context) {
	var input auth.Registration
	if !bindJSON(c, &input) {
		return
	}
	res, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token": res.Token,
		"role":  res.User.Role,
		"user":  res.User,
	})
}

// --- POST: /api/admin/bootstrap ---
func (h *UserHandler) Bootstrap(c *gin.Context) {
	var input auth.BootstrapRequest
	if !bindJSON(c, &input) {
		return
	}
	user, err := h.users.Bootstrap(c.Request.Context(), c.GetHeader(bootstrapHeader), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// --- GET: /api/admin/users ---
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// --- POST: /api/admin/users ---
func (h *UserHandler) CreateUser(c *gin.Context) {
	var input auth.NewUser
	if !bindJSON(c, &input) {
		return
	}
	actorID, _, _ := middleware.CurrentUser(c)
	user, err := h.users.Create(c.Request.Context(), actorID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
