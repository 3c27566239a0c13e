package handlers

import (
	"SmartDentist/middlewares"
	"SmartDentist/models"
	"SmartDentist/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type patientRequest struct {
	Name       *string           `json:"name"`
	Surname    *string           `json:"surname"`
	Patronymic *string           `json:"patronymic"`
	BirthDate  *models.BirthDate `json:"birth_date"`
	Gender     *models.Gender    `json:"gender"`
}

func (r patientRequest) input() services.PatientInput {
	return services.PatientInput{
		Name:       r.Name,
		Surname:    r.Surname,
		Patronymic: r.Patronymic,
		BirthDate:  r.BirthDate,
		Gender:     r.Gender,
	}
}

type PatientHandler struct {
	service *services.PatientService
	cases   services.CaseService
}

func NewPatientHandler(service *services.PatientService, cases services.CaseService) *PatientHandler {
	return &PatientHandler{service: service, cases: cases}
}

func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.HttpError(c, err.Error(), http.StatusBadRequest, err)
		return
	}
	patient, err := h.service.Create(c.Request.Context(), req.input())
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (h *PatientHandler) GetAllPatients(c *gin.Context) {
	patients, err := h.service.List(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

// UpdatePatient serves PUT (full replacement) and PATCH (partial update)
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.HttpError(c, err.Error(), http.StatusBadRequest, err)
		return
	}
	partial := c.Request.Method == http.MethodPatch
	patient, err := h.service.Update(c.Request.Context(), id, req.input(), partial)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// PatientHistory lists the cases of one patient
func (h *PatientHandler) PatientHistory(c *gin.Context) {
	id, ok := parseID(c, "patient_id")
	if !ok {
		return
	}
	cases, err := h.cases.ListByPatient(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCaseResponses(cases))
}
