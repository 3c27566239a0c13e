package services

import (
	"SmartDentist/models"
	"SmartDentist/repositories"
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PatientInput carries patient fields; nil means "not supplied".
type PatientInput struct {
	Name       *string
	Surname    *string
	Patronymic *string
	BirthDate  *models.BirthDate
	Gender     *models.Gender
}

type PatientService struct {
	repository repositories.PatientRepository
}

func NewPatientService(repository repositories.PatientRepository) *PatientService {
	return &PatientService{repository: repository}
}

func (s *PatientService) Create(ctx context.Context, input PatientInput) (*models.Patient, error) {
	patient := &models.Patient{}
	if err := applyPatientInput(patient, input, false); err != nil {
		return nil, err
	}
	if err := s.repository.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *PatientService) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	patient, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, fmt.Errorf("%w: patient %d", ErrNotFound, id)
	}
	return patient, nil
}

// List returns every patient, newest first.
func (s *PatientService) List(ctx context.Context) ([]models.Patient, error) {
	return s.repository.List(ctx)
}

// Update replaces the patient fields, or only the supplied ones when partial.
func (s *PatientService) Update(ctx context.Context, id uint, input PatientInput, partial bool) (*models.Patient, error) {
	patient, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyPatientInput(patient, input, partial); err != nil {
		return nil, err
	}
	if err := s.repository.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func applyPatientInput(patient *models.Patient, input PatientInput, partial bool) error {
	if input.BirthDate != nil && input.BirthDate.IsZero() {
		input.BirthDate = nil
	}
	required := func(supplied bool) validation.Rule {
		return validation.When(!partial || supplied, validation.Required)
	}
	err := validation.Errors{
		"name":       validation.Validate(trimmed(input.Name), required(input.Name != nil), validation.Length(0, 100)),
		"surname":    validation.Validate(trimmed(input.Surname), required(input.Surname != nil), validation.Length(0, 100)),
		"patronymic": validation.Validate(trimmed(input.Patronymic), validation.Length(0, 100)),
		"birth_date": validation.Validate(input.BirthDate, validation.When(!partial, validation.NotNil.Error("birth date is required"))),
		"gender":     validation.Validate(input.Gender, validation.When(!partial, validation.NotNil.Error("gender is required")), validation.By(validGender)),
	}.Filter()
	if err != nil {
		return newValidationError(err)
	}

	if input.Name != nil || !partial {
		patient.Name = trimmed(input.Name)
	}
	if input.Surname != nil || !partial {
		patient.Surname = trimmed(input.Surname)
	}
	if input.Patronymic != nil || !partial {
		patient.Patronymic = trimmed(input.Patronymic)
	}
	if input.BirthDate != nil {
		patient.BirthDate = *input.BirthDate
	}
	if input.Gender != nil {
		patient.Gender = *input.Gender
	}
	return nil
}

func validGender(value interface{}) error {
	gender, ok := value.(*models.Gender)
	if !ok || gender == nil {
		return nil
	}
	if !gender.Valid() {
		return fmt.Errorf("%d is not a valid choice", *gender)
	}
	return nil
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
