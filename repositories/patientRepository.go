package repositories

import (
	"SmartDentist/cache"
	"SmartDentist/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	PatientCacheExpiry = 7 * 24 * time.Hour
)

// PatientRepository persists patients. Lookups return (nil, nil) when nothing matches.
type PatientRepository interface {
	Create(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, id uint) (*models.Patient, error)
	List(ctx context.Context) ([]models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) error
}

type patientRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewPatientRepository(db *gorm.DB, cache *cache.Cache) PatientRepository {
	return &patientRepository{db: db, cache: cache}
}

func (r *patientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if err := r.db.WithContext(ctx).Create(patient).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	cacheKey := r.getPatientCacheKey(id)
	var cached models.Patient
	hit, err := r.cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		logrus.WithError(err).Warn("Failed to get patient from cache")
	} else if hit {
		return &cached, nil
	}

	var patient models.Patient
	if err := r.db.WithContext(ctx).First(&patient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if err := r.cache.SetJSON(ctx, cacheKey, patient, PatientCacheExpiry); err != nil {
		logrus.WithError(err).Warn("Failed to set patient in cache")
	}
	return &patient, nil
}

// List returns patients newest first.
func (r *patientRepository) List(ctx context.Context) ([]models.Patient, error) {
	var patients []models.Patient
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *models.Patient) error {
	err := r.db.WithContext(ctx).Model(patient).Select("name", "surname", "patronymic", "birth_date", "gender").Updates(patient).Error
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	if err := r.cache.Delete(ctx, r.getPatientCacheKey(patient.ID)); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate patient cache")
	}
	return nil
}

func (r *patientRepository) getPatientCacheKey(id uint) string {
	return fmt.Sprintf("patient_cache:%d", id)
}
