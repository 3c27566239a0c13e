package controllers

import (
	"SmartDentist/handlers"
	"SmartDentist/middlewares"
	"SmartDentist/services"

	"github.com/gin-gonic/gin"
)

// SetupPatientRoutes registers patient and case routes for authenticated accounts
func SetupPatientRoutes(router *gin.Engine, authenticate gin.HandlerFunc, patientHandler *handlers.PatientHandler, caseHandler *handlers.CaseHandler) {
	api := router.Group("/api").Use(
		authenticate,
		middlewares.RequirePermission(services.IsAuthenticated),
	)

	api.GET("/patients/", patientHandler.GetAllPatients)
	api.POST("/patients/", patientHandler.CreatePatient)
	api.POST("/patients/create/", patientHandler.CreatePatient)
	api.PUT("/patients/update/:id/", patientHandler.UpdatePatient)
	api.PATCH("/patients/update/:id/", patientHandler.UpdatePatient)
	api.GET("/patients/:patient_id/cases/", patientHandler.PatientHistory)
	api.GET("/patients/:patient_id/cases/:case_id/", caseHandler.CaseDetail)

	api.GET("/cases/", caseHandler.GetAllCases)
	api.POST("/cases/create/", caseHandler.CreateCase)
	api.PUT("/cases/update/:id/", caseHandler.UpdateCase)
	api.PATCH("/cases/update/:id/", caseHandler.UpdateCase)
	api.POST("/cases/:case_id/upload-dicom/", caseHandler.UploadDicom)
	api.POST("/cases/:case_id/process/", caseHandler.ProcessCase)
}
