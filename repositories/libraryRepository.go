package repositories

import (
	"SmartDentist/models"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// LibraryRepository persists the implant catalog.
type LibraryRepository interface {
	Create(ctx context.Context, entry *models.ImplantLibrary) error
	GetByID(ctx context.Context, id uint) (*models.ImplantLibrary, error)
	List(ctx context.Context) ([]models.ImplantLibrary, error)
}

type libraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{db: db}
}

func (r *libraryRepository) Create(ctx context.Context, entry *models.ImplantLibrary) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create library entry: %w", err)
	}
	return nil
}

func (r *libraryRepository) GetByID(ctx context.Context, id uint) (*models.ImplantLibrary, error) {
	var entry models.ImplantLibrary
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get library entry: %w", err)
	}
	return &entry, nil
}

func (r *libraryRepository) List(ctx context.Context) ([]models.ImplantLibrary, error) {
	var entries []models.ImplantLibrary
	if err := r.db.WithContext(ctx).Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	return entries, nil
}
