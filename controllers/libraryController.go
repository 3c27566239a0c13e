package controllers

import (
	"SmartDentist/handlers"
	"SmartDentist/middlewares"
	"SmartDentist/services"

	"github.com/gin-gonic/gin"
)

// SetupLibraryRoutes lets every account read the catalog and staff extend it
func SetupLibraryRoutes(router *gin.Engine, authenticate gin.HandlerFunc, libraryHandler *handlers.LibraryHandler) {
	library := router.Group("/api/library").Use(
		authenticate,
		middlewares.RequirePermission(services.IsAdminOrAuthenticatedReadOnly),
	)
	{
		library.GET("/", libraryHandler.ListEntries)
		library.POST("/", libraryHandler.CreateEntry)
		library.GET("/:id/", libraryHandler.GetEntry)
	}
}
