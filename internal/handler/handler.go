package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"socialgraph/backend/internal/auth"
	"socialgraph/backend/internal/hub"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
	"socialgraph/backend/pkg/jwt"
)

// Handler serves the HTTP API.
type Handler struct {
	relations *relation.Service
	users     repository.UserRepository
	events    repository.EventRepository
	tokens    *jwt.Issuer
	hub       *hub.Hub
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Relations *relation.Service
	Users     repository.UserRepository
	Events    repository.EventRepository
	Tokens    *jwt.Issuer
	Hub       *hub.Hub
	Logger    *slog.Logger
	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string
}

// New creates a Handler.
func New(d Deps) *Handler {
	useJSONFieldNames()
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		relations: d.Relations,
		users:     d.Users,
		events:    d.Events,
		tokens:    d.Tokens,
		hub:       d.Hub,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(d.AllowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// currentUser returns the authenticated user's ID or responds 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": relation.CodeUnauthenticated})
		return id, false
	}
	return id, true
}
