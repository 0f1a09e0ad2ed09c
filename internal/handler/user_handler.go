package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"socialgraph/backend/internal/auth"
	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Name       string `json:"name" binding:"required,max=255" example:"Anna"`
	Surname    string `json:"surname" binding:"max=255" example:"Petrova"`
	Patronymic string `json:"patronymic" binding:"max=255"`
	Email      string `json:"email" binding:"required,email" example:"anna@example.com"`
	Password   string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email" example:"anna@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// TokenResponse carries a session token.
type TokenResponse struct {
	Token string `json:"token"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"name" example:"Anna Petrova"`
	Image        string               `json:"image,omitempty"`
	ImagePreview string               `json:"image_preview,omitempty"`
	Relation     *relation.StatusView `json:"relation,omitempty"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	models.User
	Counts relation.Counts `json:"counts"`
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, "invalid_request", err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to hash password"})
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(input.Name),
		Surname:      strings.TrimSpace(input.Surname),
		Patronymic:   strings.TrimSpace(input.Patronymic),
		Email:        strings.ToLower(input.Email),
		PasswordHash: string(hashedPassword),
	}
	if err := h.users.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Email already registered", Code: string(relation.CodeAlreadyExists)})
			return
		}
		h.logger.Error("Failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create user"})
		return
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate token"})
		return
	}

	h.logger.Info("User registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, TokenResponse{Token: token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, "invalid_request", err)
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), input.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("Failed to load user", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	// Unknown email and wrong password look the same to the caller.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials", Code: string(relation.CodeUnauthenticated)})
		return
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// endregion

// region --- User Handlers ---

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches for users by name or email with pagination. The caller is never listed.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query for name or email"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[PublicUserResponse]
// @Failure      401   {object}  ErrorResponse
// @Router       /users [get]
func (h *Handler) SearchUsers(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	users, total, err := h.users.SearchUsers(c.Request.Context(), strings.TrimSpace(c.Query("q")), viewerID, page, limit)
	if err != nil {
		h.logger.Error("Failed to search users", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve users"})
		return
	}

	data := make([]PublicUserResponse, 0, len(users))
	for i := range users {
		data = append(data, buildPublicUserResponse(&users[i], nil))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(data, total, page, limit))
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves the public profile of a user. With a valid token the caller's relationship to the user is included.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *Handler) GetUserByID(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID", Code: string(relation.CodeInvalidTarget)})
		return
	}

	viewerID, authenticated := auth.UserID(c)
	if authenticated && viewerID == targetID {
		h.GetMe(c)
		return
	}

	target, err := h.users.GetUserByID(c.Request.Context(), targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found", Code: string(relation.CodeNotFound)})
			return
		}
		h.logger.Error("Failed to load user", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	var view *relation.StatusView
	if authenticated {
		status, err := h.relations.GetStatus(c.Request.Context(), viewerID, targetID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		view = &status
	}
	c.JSON(http.StatusOK, buildPublicUserResponse(target, view))
}

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile and relationship counts of the authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found", Code: string(relation.CodeNotFound)})
			return
		}
		h.logger.Error("Failed to load user", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	counts, err := h.relations.CountByType(c.Request.Context(), viewerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PrivateUserResponse{User: *user, Counts: counts})
}

// endregion

// region --- Helpers ---

func buildPublicUserResponse(user *models.User, view *relation.StatusView) PublicUserResponse {
	return PublicUserResponse{
		ID:           user.ID,
		Name:         user.DisplayName(),
		Image:        user.Image,
		ImagePreview: user.ImagePreview,
		Relation:     view,
	}
}

// endregion
