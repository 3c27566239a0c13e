package services

import (
	"SmartDentist/models"
	"SmartDentist/repositories"
	"SmartDentist/storage"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
)

const uploadLockTTL = 2 * time.Minute

// CaseInput creates a case. DoctorID is optional.
type CaseInput struct {
	PatientID uint
	DoctorID  *uint
	Diagnosis string
}

// CaseChanges updates a case. With partial set only non-nil fields apply;
// otherwise PatientID is required and a nil DoctorID clears the clinician.
type CaseChanges struct {
	PatientID *uint
	DoctorID  *uint
	Diagnosis *string
}

// CaseDetail is a case together with its calculation, upload history and
// stored files. Files are media-relative paths.
type CaseDetail struct {
	Case    *models.MedicalCase
	Implant *models.IndividualImplant
	Uploads []models.DicomUpload
	Files   []string
}

type CaseService interface {
	Create(ctx context.Context, input CaseInput) (*models.MedicalCase, error)
	List(ctx context.Context) ([]models.MedicalCase, error)
	ListByPatient(ctx context.Context, patientID uint) ([]models.MedicalCase, error)
	Update(ctx context.Context, id uint, changes CaseChanges, partial bool) (*models.MedicalCase, error)
	Detail(ctx context.Context, patientID, caseID uint) (*CaseDetail, error)
	UploadArchive(ctx context.Context, caseID uint, filename string, data []byte) (*models.DicomUpload, error)
	Process(ctx context.Context, caseID uint) (*models.IndividualImplant, error)
	UploadAndProcess(ctx context.Context, caseID uint, filename string, data []byte) (*CaseDetail, error)
}

// CaseServiceOption tunes a case service.
type CaseServiceOption func(*caseService)

// WithRandomSource replaces the catalog picker's randomness.
func WithRandomSource(rng RandomSource) CaseServiceOption {
	return func(s *caseService) { s.rng = rng }
}

// WithSleep replaces the function used for the processing delay.
func WithSleep(sleep func(time.Duration)) CaseServiceOption {
	return func(s *caseService) { s.sleep = sleep }
}

type caseService struct {
	patientRepo repositories.PatientRepository
	caseRepo    repositories.CaseRepository
	libraryRepo repositories.LibraryRepository
	archives    *storage.ArchiveStore
	locker      Locker
	delay       time.Duration
	rng         RandomSource
	sleep       func(time.Duration)
}

func NewCaseService(
	patientRepo repositories.PatientRepository,
	caseRepo repositories.CaseRepository,
	libraryRepo repositories.LibraryRepository,
	archives *storage.ArchiveStore,
	locker Locker,
	delay time.Duration,
	opts ...CaseServiceOption,
) CaseService {
	s := &caseService{
		patientRepo: patientRepo,
		caseRepo:    caseRepo,
		libraryRepo: libraryRepo,
		archives:    archives,
		locker:      locker,
		delay:       delay,
		rng:         DefaultRandomSource(),
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *caseService) Create(ctx context.Context, input CaseInput) (*models.MedicalCase, error) {
	err := validation.Errors{
		"patient": validation.Validate(input.PatientID, validation.Required.Error("patient is required")),
	}.Filter()
	if err != nil {
		return nil, newValidationError(err)
	}
	if err := s.ensurePatient(ctx, input.PatientID); err != nil {
		return nil, err
	}

	medicalCase := &models.MedicalCase{
		PatientID: input.PatientID,
		DoctorID:  input.DoctorID,
		Diagnosis: strings.TrimSpace(input.Diagnosis),
		Status:    models.CaseOpen,
	}
	if err := s.caseRepo.Create(ctx, medicalCase); err != nil {
		return nil, err
	}
	return medicalCase, nil
}

func (s *caseService) List(ctx context.Context) ([]models.MedicalCase, error) {
	return s.caseRepo.List(ctx)
}

func (s *caseService) ListByPatient(ctx context.Context, patientID uint) ([]models.MedicalCase, error) {
	if err := s.ensurePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.caseRepo.ListByPatient(ctx, patientID)
}

func (s *caseService) Update(ctx context.Context, id uint, changes CaseChanges, partial bool) (*models.MedicalCase, error) {
	medicalCase, err := s.getCase(ctx, id)
	if err != nil {
		return nil, err
	}

	if !partial && changes.PatientID == nil {
		return nil, fieldError("patient", "patient is required")
	}
	if changes.PatientID != nil {
		if err := s.ensurePatient(ctx, *changes.PatientID); err != nil {
			return nil, err
		}
		medicalCase.PatientID = *changes.PatientID
	}
	if changes.Diagnosis != nil {
		medicalCase.Diagnosis = strings.TrimSpace(*changes.Diagnosis)
	} else if !partial {
		medicalCase.Diagnosis = ""
	}
	if changes.DoctorID != nil || !partial {
		medicalCase.DoctorID = changes.DoctorID
	}

	if err := s.caseRepo.Update(ctx, medicalCase); err != nil {
		return nil, err
	}
	return s.getCase(ctx, id)
}

func (s *caseService) Detail(ctx context.Context, patientID, caseID uint) (*CaseDetail, error) {
	medicalCase, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if medicalCase.PatientID != patientID {
		return nil, fmt.Errorf("%w: case %d of patient %d", ErrNotFound, caseID, patientID)
	}
	return s.detail(ctx, medicalCase)
}

func (s *caseService) detail(ctx context.Context, medicalCase *models.MedicalCase) (*CaseDetail, error) {
	implant, err := s.caseRepo.GetImplant(ctx, medicalCase.ID)
	if err != nil {
		return nil, err
	}
	uploads, err := s.caseRepo.ListUploads(ctx, medicalCase.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.archives.ListFiles(medicalCase.ID)
	if err != nil {
		return nil, err
	}
	return &CaseDetail{Case: medicalCase, Implant: implant, Uploads: uploads, Files: files}, nil
}

// UploadArchive reads the whole payload as a zip before anything is recorded.
// The upload row, the original archive, the extracted files and the status
// change commit together; files written by a failed upload are removed.
// Concurrent uploads to one case are serialised.
func (s *caseService) UploadArchive(ctx context.Context, caseID uint, filename string, data []byte) (*models.DicomUpload, error) {
	if len(data) == 0 {
		return nil, fieldError("file", "no file was submitted")
	}
	if _, err := s.getCase(ctx, caseID); err != nil {
		return nil, err
	}
	reader, err := storage.Open(data)
	if err == nil {
		err = s.archives.Verify(reader)
	}
	if err != nil {
		return nil, archiveError(err)
	}

	upload := &models.DicomUpload{CaseID: caseID}
	var written []string
	lockKey := fmt.Sprintf("case_upload_lock:%d", caseID)
	err = withLock(ctx, s.locker, lockKey, lockOptions{ttl: uploadLockTTL, maxRetries: 5, retryDelay: time.Second}, func() error {
		return s.caseRepo.RecordUpload(ctx, upload, func() error {
			stored, err := s.archives.SaveOriginal(filename, data)
			if err != nil {
				return err
			}
			upload.File = stored
			written = append(written, stored)

			extraction, err := s.archives.Extract(caseID, reader)
			if err != nil {
				return archiveError(err)
			}
			written = append(written, extraction.Created...)
			logrus.WithFields(logrus.Fields{"case_id": caseID, "files": extraction.Files}).Info("Archive extracted")
			return nil
		})
	})
	if err != nil {
		if rmErr := s.archives.Remove(written...); rmErr != nil {
			logrus.WithError(rmErr).WithField("case_id", caseID).Warn("Failed to remove files of a failed upload")
		}
		return nil, err
	}
	return upload, nil
}

func archiveError(err error) error {
	if errors.Is(err, storage.ErrNotZip) || errors.Is(err, storage.ErrTooLarge) {
		return fmt.Errorf("%w: %v", ErrBadArchive, err)
	}
	return err
}

// Process picks a random catalog entry for the case after the fixed delay.
// An empty catalog leaves any earlier result untouched.
func (s *caseService) Process(ctx context.Context, caseID uint) (*models.IndividualImplant, error) {
	medicalCase, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !medicalCase.HasArchive() {
		return nil, fmt.Errorf("%w: case %d", ErrNoArchive, caseID)
	}

	entries, err := s.libraryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyLibrary
	}

	s.sleep(s.delay)

	chosen, err := ChooseVariant(entries, s.rng)
	if err != nil {
		return nil, err
	}
	implant, err := s.caseRepo.SaveCalculation(ctx, caseID, chosen.ID)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"case_id": caseID, "library_id": chosen.ID}).Info("Implant selected")
	return implant, nil
}

func (s *caseService) UploadAndProcess(ctx context.Context, caseID uint, filename string, data []byte) (*CaseDetail, error) {
	if _, err := s.UploadArchive(ctx, caseID, filename, data); err != nil {
		return nil, err
	}
	if _, err := s.Process(ctx, caseID); err != nil {
		return nil, err
	}
	medicalCase, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, medicalCase)
}

func (s *caseService) getCase(ctx context.Context, id uint) (*models.MedicalCase, error) {
	medicalCase, err := s.caseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if medicalCase == nil {
		return nil, fmt.Errorf("%w: case %d", ErrNotFound, id)
	}
	return medicalCase, nil
}

func (s *caseService) ensurePatient(ctx context.Context, id uint) error {
	patient, err := s.patientRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if patient == nil {
		return fmt.Errorf("%w: patient %d", ErrNotFound, id)
	}
	return nil
}
