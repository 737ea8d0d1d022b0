package server

import (
	"net/http"
	"strings"

	"bazaar/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes builds the gin router with the full API surface.
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", s.healthHandler)

	// Authentication
	r.POST("/register", s.authHandler.Register)
	r.POST("/login", s.authHandler.Login)
	r.POST("/logout", BearerAuthMiddleware(s.tokens), s.authHandler.Logout)

	// Public listing reads
	r.GET("/listings", s.listingHandler.List)
	r.GET("/listings/:id", s.listingHandler.Get)

	// Authenticated mutations
	protected := r.Group("/")
	protected.Use(BearerAuthMiddleware(s.tokens))
	{
		protected.POST("/listings", s.listingHandler.Create)
		protected.PUT("/listings/:id", s.listingHandler.Update)
		protected.DELETE("/listings/:id", s.listingHandler.Delete)
		protected.GET("/users/me/listings", s.listingHandler.ListMine)
		protected.POST("/files/upload-url", s.storageHandler.UploadURL)
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	response := gin.H{
		"database": s.db.Health(),
	}

	if s.storage != nil {
		storageHealth := gin.H{"status": "up"}
		if err := s.storage.Health(c.Request.Context()); err != nil {
			storageHealth = gin.H{"status": "down", "error": err.Error()}
		}
		response["storage"] = storageHealth
	}

	c.JSON(http.StatusOK, response)
}

func allowedOrigins() []string {
	raw := config.GetEnvOrDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	return strings.Split(raw, ",")
}
