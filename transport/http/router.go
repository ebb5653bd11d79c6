package http

import (
	"github.com/gin-gonic/gin"

	"github.com/zkvault/zkvault/service"
)

// SetupRouter sets up the gin router.
func SetupRouter(authService *service.AuthService) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService)

	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/logout", handlers.Logout)
	}

	protected := router.Group("/")
	protected.Use(AuthMiddleware(authService))
	{
		protected.GET("/api/me", handlers.Me)
		protected.GET("/vault", handlers.GetVault)
		protected.POST("/vault", handlers.PutVault)
	}

	return router
}
