package controllers

import (
	"SmartDentist/handlers"
	"SmartDentist/middlewares"
	"SmartDentist/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler      *handlers.AuthHandler
	Authenticate gin.HandlerFunc
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler, authenticate gin.HandlerFunc) *AuthController {
	return &AuthController{
		Handler:      authHandler,
		Authenticate: authenticate,
	}
}

// RegisterRoutes initializes all account routes directly on the router
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	// Public routes: no authentication, logout never fails
	router.POST("/api/login/", ac.Handler.Login)
	router.POST("/api/logout/", ac.Handler.Logout)
	router.POST("/api/refresh_token/", ac.Handler.RefreshToken)
	router.POST("/api/register/worker/", ac.Handler.RegisterWorker)

	// Superadmin only
	superGroup := router.Group("/api/register").Use(
		ac.Authenticate,
		middlewares.RequirePermission(services.IsSuperAdmin),
	)
	{
		superGroup.POST("/admin/", ac.Handler.RegisterAdmin)
		superGroup.POST("/superadmin/", ac.Handler.RegisterSuperAdmin)
	}

	// Any authenticated account
	authGroup := router.Group("/api").Use(
		ac.Authenticate,
		middlewares.RequirePermission(services.IsAuthenticated),
	)
	{
		authGroup.GET("/account/profile/", ac.Handler.Profile)
		authGroup.GET("/account/me/", ac.Handler.CurrentUser)
		authGroup.GET("/workers/", ac.Handler.ListWorkers)
	}
}
