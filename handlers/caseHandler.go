package handlers

import (
	"SmartDentist/middlewares"
	"SmartDentist/services"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxArchiveSize caps the size of one uploaded archive.
const MaxArchiveSize = 512 << 20

type caseRequest struct {
	Patient   *uint   `json:"patient"`
	Doctor    *uint   `json:"doctor"`
	Diagnosis *string `json:"diagnosis"`
}

type CaseHandler struct {
	service  services.CaseService
	mediaURL string
}

func NewCaseHandler(service services.CaseService, mediaURL string) *CaseHandler {
	return &CaseHandler{service: service, mediaURL: mediaURL}
}

func (h *CaseHandler) CreateCase(c *gin.Context) {
	var req caseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.HttpError(c, err.Error(), http.StatusBadRequest, err)
		return
	}
	input := services.CaseInput{DoctorID: req.Doctor}
	if req.Patient != nil {
		input.PatientID = *req.Patient
	}
	if req.Diagnosis != nil {
		input.Diagnosis = *req.Diagnosis
	}

	medicalCase, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCaseResponse(medicalCase))
}

func (h *CaseHandler) GetAllCases(c *gin.Context) {
	cases, err := h.service.List(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCaseResponses(cases))
}

// UpdateCase serves PUT (full replacement) and PATCH (partial update)
func (h *CaseHandler) UpdateCase(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req caseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.HttpError(c, err.Error(), http.StatusBadRequest, err)
		return
	}
	changes := services.CaseChanges{
		PatientID: req.Patient,
		DoctorID:  req.Doctor,
		Diagnosis: req.Diagnosis,
	}
	medicalCase, err := h.service.Update(c.Request.Context(), id, changes, c.Request.Method == http.MethodPatch)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCaseResponse(medicalCase))
}

// CaseDetail returns the case with its calculation and stored file URLs
func (h *CaseHandler) CaseDetail(c *gin.Context) {
	patientID, ok := parseID(c, "patient_id")
	if !ok {
		return
	}
	caseID, ok := parseID(c, "case_id")
	if !ok {
		return
	}
	detail, err := h.service.Detail(c.Request.Context(), patientID, caseID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMediaURLs(c, h.mediaURL).caseDetail(detail))
}

// UploadDicom stores the archive from the "file" field and runs the calculation
func (h *CaseHandler) UploadDicom(c *gin.Context) {
	caseID, ok := parseID(c, "case_id")
	if !ok {
		return
	}
	filename, data, err := readUpload(c)
	if err != nil {
		middlewares.HttpError(c, "failed to read uploaded file", http.StatusBadRequest, err)
		return
	}

	detail, err := h.service.UploadAndProcess(c.Request.Context(), caseID, filename, data)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMediaURLs(c, h.mediaURL).caseDetail(detail))
}

// ProcessCase picks a new catalog entry for a case that already has an archive
func (h *CaseHandler) ProcessCase(c *gin.Context) {
	caseID, ok := parseID(c, "case_id")
	if !ok {
		return
	}
	implant, err := h.service.Process(c.Request.Context(), caseID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, calculationResponse{
		IsCalculated: implant.Calculated(),
		Implant:      newMediaURLs(c, h.mediaURL).implant(implant),
	})
}

// readUpload returns empty data without error when no file was sent.
func readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxArchiveSize)
	header, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return "", nil, nil
		}
		return "", nil, err
	}
	file, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}
