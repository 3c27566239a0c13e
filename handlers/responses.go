package handlers

import (
	"SmartDentist/models"
	"SmartDentist/services"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type accountResponse struct {
	ID          uint        `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Surname     string      `json:"surname"`
	Patronymic  string      `json:"patronymic"`
	Role        models.Role `json:"role"`
	IsActive    bool        `json:"is_active"`
	IsStaff     bool        `json:"is_staff"`
	IsSuperuser bool        `json:"is_superuser"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func newAccountResponse(account *models.Account) *accountResponse {
	if account == nil {
		return nil
	}
	return &accountResponse{
		ID:          account.ID,
		Email:       account.Email,
		Name:        account.Name,
		Surname:     account.Surname,
		Patronymic:  account.Patronymic,
		Role:        account.Role,
		IsActive:    account.IsActive,
		IsStaff:     account.IsStaff(),
		IsSuperuser: account.IsSuperuser(),
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

type profileResponse struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Patronymic string `json:"patronymic"`
}

type workerProfileResponse struct {
	ID       uint             `json:"id"`
	User     *accountResponse `json:"user"`
	Work     string           `json:"work"`
	Position string           `json:"position"`
}

type caseResponse struct {
	ID        uint              `json:"id"`
	Patient   uint              `json:"patient"`
	Doctor    *uint             `json:"doctor"`
	Diagnosis string            `json:"diagnosis"`
	Status    models.CaseStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func newCaseResponse(medicalCase *models.MedicalCase) caseResponse {
	return caseResponse{
		ID:        medicalCase.ID,
		Patient:   medicalCase.PatientID,
		Doctor:    medicalCase.DoctorID,
		Diagnosis: medicalCase.Diagnosis,
		Status:    medicalCase.Status,
		CreatedAt: medicalCase.CreatedAt,
		UpdatedAt: medicalCase.UpdatedAt,
	}
}

func newCaseResponses(cases []models.MedicalCase) []caseResponse {
	out := make([]caseResponse, 0, len(cases))
	for i := range cases {
		out = append(out, newCaseResponse(&cases[i]))
	}
	return out
}

type libraryResponse struct {
	models.ImplantLibrary
	StressImageURL string `json:"stress_image_url,omitempty"`
	GraphImageURL  string `json:"graph_image_url,omitempty"`
}

type implantResponse struct {
	ID           uint             `json:"id"`
	IsCalculated bool             `json:"is_calculated"`
	Library      *libraryResponse `json:"library"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type calculationResponse struct {
	IsCalculated bool             `json:"is_calculated"`
	Implant      *implantResponse `json:"implant"`
}

type uploadResponse struct {
	ID         uint      `json:"id"`
	File       string    `json:"file"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type caseDetailResponse struct {
	caseResponse
	PatientName     string              `json:"patient_name"`
	DoctorName      string              `json:"doctor_name,omitempty"`
	Uploads         []uploadResponse    `json:"uploads"`
	DicomFiles      []string            `json:"dicom_files"`
	DicomFilesCount int                 `json:"dicom_files_count"`
	Calculation     calculationResponse `json:"calculation"`
}

// mediaURLs turns media-relative paths into absolute URLs of the current request.
type mediaURLs struct {
	base string
}

func newMediaURLs(c *gin.Context, mediaURL string) mediaURLs {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return mediaURLs{base: fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, mediaURL)}
}

func (m mediaURLs) url(relative string) string {
	if relative == "" {
		return ""
	}
	return m.base + strings.TrimPrefix(path.Clean("/"+relative), "/")
}

func (m mediaURLs) library(entry *models.ImplantLibrary) *libraryResponse {
	if entry == nil {
		return nil
	}
	return &libraryResponse{
		ImplantLibrary: *entry,
		StressImageURL: m.url(entry.StressImage),
		GraphImageURL:  m.url(entry.GraphImage),
	}
}

func (m mediaURLs) implant(implant *models.IndividualImplant) *implantResponse {
	if implant == nil {
		return nil
	}
	return &implantResponse{
		ID:           implant.ID,
		IsCalculated: implant.IsCalculated,
		Library:      m.library(implant.Library),
		CreatedAt:    implant.CreatedAt,
		UpdatedAt:    implant.UpdatedAt,
	}
}

func (m mediaURLs) caseDetail(in *services.CaseDetail) caseDetailResponse {
	medicalCase := in.Case
	urls := make([]string, 0, len(in.Files))
	for _, file := range in.Files {
		urls = append(urls, m.url(file))
	}
	uploads := make([]uploadResponse, 0, len(in.Uploads))
	for _, upload := range in.Uploads {
		uploads = append(uploads, uploadResponse{ID: upload.ID, File: m.url(upload.File), UploadedAt: upload.UploadedAt})
	}
	detail := caseDetailResponse{
		caseResponse:    newCaseResponse(medicalCase),
		Uploads:         uploads,
		DicomFiles:      urls,
		DicomFilesCount: len(urls),
		Calculation: calculationResponse{
			IsCalculated: in.Implant.Calculated(),
			Implant:      m.implant(in.Implant),
		},
	}
	if medicalCase.Patient != nil {
		detail.PatientName = strings.TrimSpace(medicalCase.Patient.Surname + " " + medicalCase.Patient.Name)
	}
	if medicalCase.Doctor != nil {
		detail.DoctorName = medicalCase.Doctor.FullName()
	}
	return detail
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return uint(id), true
}
