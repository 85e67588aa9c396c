package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/opencafe/intake/internal/db"
)

type UserHandler struct {
	store *db.Store
	log   *slog.Logger
}

func NewUserHandler(store *db.Store, log *slog.Logger) *UserHandler {
	return &UserHandler{store: store, log: log}
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	UserType string `json:"user_type" binding:"required"`
}

type UpdateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	UserType string `json:"user_type" binding:"required"`
	Password string `json:"password"`
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userType, err := h.store.GetUserTypeByName(c.Request.Context(), req.UserType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user type"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	u := &db.User{
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: string(hash),
		UserTypeID:   userType.ID,
		UserType:     userType.Name,
	}
	if err := h.store.CreateUser(c.Request.Context(), u); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userType, err := h.store.GetUserTypeByName(c.Request.Context(), req.UserType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user type"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	u := &db.User{ID: id, Name: req.Name, UserTypeID: userType.ID, UserType: userType.Name}
	if err := h.store.UpdateUser(c.Request.Context(), u); err != nil {
		respondError(c, h.log, err)
		return
	}

	if req.Password != "" {
		if len(req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		if err := h.store.UpdateUserPassword(c.Request.Context(), id, string(hash)); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *UserHandler) ListUserTypes(c *gin.Context) {
	types, err := h.store.ListUserTypes(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_types": types})
}
