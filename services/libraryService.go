package services

import (
	"SmartDentist/models"
	"SmartDentist/repositories"
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

type LibraryService struct {
	repository repositories.LibraryRepository
}

func NewLibraryService(repository repositories.LibraryRepository) *LibraryService {
	return &LibraryService{repository: repository}
}

func (s *LibraryService) List(ctx context.Context) ([]models.ImplantLibrary, error) {
	return s.repository.List(ctx)
}

func (s *LibraryService) GetByID(ctx context.Context, id uint) (*models.ImplantLibrary, error) {
	entry, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: library entry %d", ErrNotFound, id)
	}
	return entry, nil
}

// Create adds a catalog entry. Dimensions must be positive, loads and
// densities non-negative.
func (s *LibraryService) Create(ctx context.Context, entry *models.ImplantLibrary) error {
	entry.Name = strings.TrimSpace(entry.Name)
	err := validation.Errors{
		"name":             validation.Validate(entry.Name, validation.Required, validation.Length(1, 100)),
		"diameter":         validation.Validate(entry.Diameter, validation.By(positive)),
		"length":           validation.Validate(entry.Length, validation.By(positive)),
		"thread_pitch":     validation.Validate(entry.ThreadPitch, validation.By(nonNegative)),
		"thread_depth":     validation.Validate(entry.ThreadDepth, validation.By(nonNegative)),
		"thread_shape":     validation.Validate(entry.ThreadShape, validation.Length(0, 50)),
		"bone_type":        validation.Validate(entry.BoneType, validation.Length(0, 10)),
		"bone_density":     validation.Validate(entry.BoneDensity, validation.By(nonNegative)),
		"max_axial_load":   validation.Validate(entry.MaxAxialLoad, validation.By(nonNegative)),
		"max_lateral_load": validation.Validate(entry.MaxLateralLoad, validation.By(nonNegative)),
		"surface_area":     validation.Validate(entry.SurfaceArea, validation.By(nonNegative)),
	}.Filter()
	if err != nil {
		return newValidationError(err)
	}
	return s.repository.Create(ctx, entry)
}

func positive(value interface{}) error {
	if d, ok := value.(decimal.Decimal); ok && !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func nonNegative(value interface{}) error {
	if d, ok := value.(decimal.Decimal); ok && d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
