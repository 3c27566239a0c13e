package repositories

import (
	"SmartDentist/models"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaseRepository persists medical cases together with their uploads and
// implant calculation. Lookups return (nil, nil) when nothing matches.
type CaseRepository interface {
	Create(ctx context.Context, medicalCase *models.MedicalCase) error
	GetByID(ctx context.Context, id uint) (*models.MedicalCase, error)
	List(ctx context.Context) ([]models.MedicalCase, error)
	ListByPatient(ctx context.Context, patientID uint) ([]models.MedicalCase, error)
	Update(ctx context.Context, medicalCase *models.MedicalCase) error

	// RecordUpload runs store, then inserts the upload row and moves an OPEN
	// case to ARCHIVE_RECEIVED in the same transaction. When store fails
	// nothing is recorded.
	RecordUpload(ctx context.Context, upload *models.DicomUpload, store func() error) error
	ListUploads(ctx context.Context, caseID uint) ([]models.DicomUpload, error)

	// SaveCalculation upserts the individual implant of the case and marks the
	// case CALCULATED.
	SaveCalculation(ctx context.Context, caseID uint, libraryID uint) (*models.IndividualImplant, error)
	GetImplant(ctx context.Context, caseID uint) (*models.IndividualImplant, error)
}

type caseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) Create(ctx context.Context, medicalCase *models.MedicalCase) error {
	if medicalCase.Status == "" {
		medicalCase.Status = models.CaseOpen
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(medicalCase).Error; err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id uint) (*models.MedicalCase, error) {
	var medicalCase models.MedicalCase
	err := r.db.WithContext(ctx).Preload("Patient").Preload("Doctor").First(&medicalCase, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return &medicalCase, nil
}

func (r *caseRepository) List(ctx context.Context) ([]models.MedicalCase, error) {
	var cases []models.MedicalCase
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, nil
}

func (r *caseRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.MedicalCase, error) {
	var cases []models.MedicalCase
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("created_at DESC, id DESC").Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list patient cases: %w", err)
	}
	return cases, nil
}

func (r *caseRepository) Update(ctx context.Context, medicalCase *models.MedicalCase) error {
	err := r.db.WithContext(ctx).Model(medicalCase).Omit(clause.Associations).Select("patient_id", "diagnosis", "doctor_id").Updates(medicalCase).Error
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}
	return nil
}

func (r *caseRepository) RecordUpload(ctx context.Context, upload *models.DicomUpload, store func() error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := store(); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(upload).Error; err != nil {
			return fmt.Errorf("failed to record upload: %w", err)
		}
		err := tx.Model(&models.MedicalCase{}).
			Where("id = ? AND status = ?", upload.CaseID, models.CaseOpen).
			Update("status", models.CaseArchiveReceived).Error
		if err != nil {
			return fmt.Errorf("failed to update case status: %w", err)
		}
		return nil
	})
}

func (r *caseRepository) ListUploads(ctx context.Context, caseID uint) ([]models.DicomUpload, error) {
	var uploads []models.DicomUpload
	if err := r.db.WithContext(ctx).Where("case_id = ?", caseID).Order("uploaded_at, id").Find(&uploads).Error; err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, nil
}

func (r *caseRepository) SaveCalculation(ctx context.Context, caseID uint, libraryID uint) (*models.IndividualImplant, error) {
	implant := models.IndividualImplant{
		CaseID:       caseID,
		LibraryID:    &libraryID,
		IsCalculated: true,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "case_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"library_id", "is_calculated", "updated_at"}),
		}).Create(&implant).Error
		if err != nil {
			return fmt.Errorf("failed to save implant: %w", err)
		}
		err = tx.Model(&models.MedicalCase{}).Where("id = ?", caseID).Update("status", models.CaseCalculated).Error
		if err != nil {
			return fmt.Errorf("failed to update case status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetImplant(ctx, caseID)
}

func (r *caseRepository) GetImplant(ctx context.Context, caseID uint) (*models.IndividualImplant, error) {
	var implant models.IndividualImplant
	err := r.db.WithContext(ctx).Preload("Library").Where("case_id = ?", caseID).First(&implant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get implant: %w", err)
	}
	return &implant, nil
}
