package handlers

import (
	"SmartDentist/models"
	"SmartDentist/services"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func testContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

func TestMediaURLs(t *testing.T) {
	c, _ := testContext(http.MethodGet, "http://clinic.test/api/cases/")
	urls := newMediaURLs(c, "/media/")

	if got := urls.url("dicom/1/a.dcm"); got != "http://clinic.test/media/dicom/1/a.dcm" {
		t.Errorf("got %q", got)
	}
	if got := urls.url("../secret"); got != "http://clinic.test/media/secret" {
		t.Errorf("expected relative path to be cleaned, got %q", got)
	}
	if got := urls.url(""); got != "" {
		t.Errorf("expected empty url for empty path, got %q", got)
	}

	c.Request.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	if got := newMediaURLs(c, "/media/").url("a.png"); got != "https://clinic.test/media/a.png" {
		t.Errorf("expected forwarded scheme, got %q", got)
	}
}

func TestCaseDetailResponse(t *testing.T) {
	c, _ := testContext(http.MethodGet, "http://clinic.test/")
	urls := newMediaURLs(c, "/media/")
	doctorID := uint(3)
	medicalCase := &models.MedicalCase{
		ID:        5,
		PatientID: 2,
		DoctorID:  &doctorID,
		Status:    models.CaseArchiveReceived,
		Patient:   &models.Patient{Name: "Ivan", Surname: "Petrov"},
		Doctor:    &models.Account{Name: "Anna", Surname: "Ivanova", Patronymic: "Sergeevna"},
	}

	detail := urls.caseDetail(&services.CaseDetail{
		Case:    medicalCase,
		Uploads: []models.DicomUpload{{ID: 1, CaseID: 5, File: "dicom_archives/scan.zip"}},
		Files:   []string{"dicom/5/a.dcm", "dicom/5/b.dcm"},
	})
	if detail.DicomFilesCount != 2 || detail.DicomFiles[1] != "http://clinic.test/media/dicom/5/b.dcm" {
		t.Errorf("unexpected files %v", detail.DicomFiles)
	}
	if detail.PatientName != "Petrov Ivan" || detail.DoctorName != "Ivanova Anna Sergeevna" {
		t.Errorf("unexpected names %q, %q", detail.PatientName, detail.DoctorName)
	}
	if len(detail.Uploads) != 1 || detail.Uploads[0].File != "http://clinic.test/media/dicom_archives/scan.zip" {
		t.Errorf("unexpected uploads %+v", detail.Uploads)
	}
	if detail.Calculation.IsCalculated || detail.Calculation.Implant != nil {
		t.Errorf("expected no calculation, got %+v", detail.Calculation)
	}

	libraryID := uint(8)
	implant := &models.IndividualImplant{ID: 1, CaseID: 5, LibraryID: &libraryID, IsCalculated: true,
		Library: &models.ImplantLibrary{ID: 8, Name: "Standard", GraphImage: "library/graph.png"}}
	detail = urls.caseDetail(&services.CaseDetail{Case: medicalCase, Implant: implant})
	if !detail.Calculation.IsCalculated || detail.Calculation.Implant.Library.GraphImageURL != "http://clinic.test/media/library/graph.png" {
		t.Errorf("unexpected calculation %+v", detail.Calculation.Implant)
	}
	if detail.DicomFiles == nil || detail.Uploads == nil {
		t.Error("dicom_files and uploads must render as empty lists")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"12", true},
		{"0", false},
		{"-1", false},
		{"abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c, w := testContext(http.MethodGet, "/")
			c.Params = gin.Params{{Key: "id", Value: tt.value}}
			_, ok := parseID(c, "id")
			if ok != tt.ok {
				t.Errorf("parseID(%q) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if !ok && w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}
