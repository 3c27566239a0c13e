package services

import (
	"SmartDentist/models"
	"SmartDentist/repositories/repotest"
	"context"
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func genderPtr(g models.Gender) *models.Gender { return &g }

func birthDate(t *testing.T, value string) *models.BirthDate {
	t.Helper()
	d, err := models.ParseBirthDate(value)
	if err != nil {
		t.Fatalf("ParseBirthDate: %v", err)
	}
	return &d
}

func ivanInput(t *testing.T) PatientInput {
	return PatientInput{
		Name:      strPtr("Ivan"),
		Surname:   strPtr("Petrov"),
		BirthDate: birthDate(t, "01.02.1980"),
		Gender:    genderPtr(models.GenderMale),
	}
}

func TestPatientService_Create(t *testing.T) {
	svc := NewPatientService(repotest.NewStore().Patients())

	patient, err := svc.Create(context.Background(), ivanInput(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if patient.ID == 0 || patient.Name != "Ivan" || patient.Surname != "Petrov" {
		t.Errorf("unexpected patient %+v", patient)
	}
	if patient.BirthDate.String() != "01.02.1980" {
		t.Errorf("unexpected birth date %s", patient.BirthDate)
	}
}

func TestPatientService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *PatientInput)
		field  string
	}{
		{"missing name", func(in *PatientInput) { in.Name = nil }, "name"},
		{"blank surname", func(in *PatientInput) { in.Surname = strPtr("  ") }, "surname"},
		{"missing birth date", func(in *PatientInput) { in.BirthDate = nil }, "birth_date"},
		{"zero birth date", func(in *PatientInput) { in.BirthDate = &models.BirthDate{} }, "birth_date"},
		{"missing gender", func(in *PatientInput) { in.Gender = nil }, "gender"},
		{"invalid gender", func(in *PatientInput) { in.Gender = genderPtr(2) }, "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPatientService(repotest.NewStore().Patients())
			input := ivanInput(t)
			tt.mutate(&input)

			_, err := svc.Create(context.Background(), input)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := validationErr.Fields[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, validationErr.Fields)
			}
		})
	}
}

func TestPatientService_ListNewestFirst(t *testing.T) {
	svc := NewPatientService(repotest.NewStore().Patients())
	ctx := context.Background()

	for _, name := range []string{"First", "Second", "Third"} {
		input := ivanInput(t)
		input.Name = strPtr(name)
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	patients, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(patients) != 3 || patients[0].Name != "Third" || patients[2].Name != "First" {
		t.Errorf("expected newest first, got %+v", patients)
	}
}

func TestPatientService_Update(t *testing.T) {
	svc := NewPatientService(repotest.NewStore().Patients())
	ctx := context.Background()

	patient, err := svc.Create(ctx, ivanInput(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	patched, err := svc.Update(ctx, patient.ID, PatientInput{Surname: strPtr("Sidorov")}, true)
	if err != nil {
		t.Fatalf("partial Update: %v", err)
	}
	if patched.Surname != "Sidorov" || patched.Name != "Ivan" || patched.BirthDate.String() != "01.02.1980" {
		t.Errorf("partial update changed unrelated fields: %+v", patched)
	}

	if _, err := svc.Update(ctx, patient.ID, PatientInput{Name: strPtr("Ivan")}, false); !errors.Is(err, ErrValidation) {
		t.Errorf("full update without required fields must fail, got %v", err)
	}

	full := ivanInput(t)
	full.Gender = genderPtr(models.GenderFemale)
	replaced, err := svc.Update(ctx, patient.ID, full, false)
	if err != nil {
		t.Fatalf("full Update: %v", err)
	}
	if replaced.Surname != "Petrov" || replaced.Gender != models.GenderFemale || replaced.Patronymic != "" {
		t.Errorf("unexpected replaced patient %+v", replaced)
	}

	if _, err := svc.Update(ctx, 999, PatientInput{}, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
