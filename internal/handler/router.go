package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"socialgraph/backend/internal/auth"
)

// NewRouter wires every route. gatherer backs /metrics and may be nil.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	requireAuth := auth.AuthMiddleware(h.tokens)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", h.RegisterUser)
			authRoutes.POST("/login", h.LoginUser)
		}

		userRoutes := apiV1.Group("/users")
		{
			userRoutes.GET("", requireAuth, h.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", requireAuth, h.GetMe)
			userRoutes.GET("/:id", auth.OptionalAuthMiddleware(h.tokens), h.GetUserByID)
		}

		friendRoutes := apiV1.Group("/friends")
		friendRoutes.Use(requireAuth)
		{
			friendRoutes.GET("", h.GetFriends)
			friendRoutes.GET("/counts", h.GetFriendCounts)
			friendRoutes.GET("/status/:id", h.GetStatus)
			friendRoutes.POST("/follow", h.Follow)
			friendRoutes.POST("/request", h.SendRequest)
			friendRoutes.POST("/accept", h.AcceptRequest)
			friendRoutes.POST("/decline", h.DeclineRequest)
			friendRoutes.POST("/remove", h.RemoveRelation)
			friendRoutes.POST("/block", h.Block)
		}

		eventRoutes := apiV1.Group("/events")
		eventRoutes.Use(requireAuth)
		{
			eventRoutes.GET("", h.GetEvents)
			eventRoutes.POST("/read", h.MarkEventsRead)
			eventRoutes.DELETE("/:id", h.DeleteEvent)
		}

		apiV1.GET("/ws", requireAuth, h.Events)
	}

	return router
}
