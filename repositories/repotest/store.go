// Package repotest provides in-memory repositories, a token blacklist and a
// locker for tests.
package repotest

import (
	"SmartDentist/models"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store keeps every table in memory behind one mutex.
type Store struct {
	mu sync.Mutex

	nextID    uint
	now       time.Time
	accounts  map[uint]models.Account
	profiles  map[uint]models.WorkerProfile
	patients  map[uint]models.Patient
	cases     map[uint]models.MedicalCase
	uploads   []models.DicomUpload
	implants  map[uint]models.IndividualImplant
	library   map[uint]models.ImplantLibrary
	createErr error
}

func NewStore() *Store {
	return &Store{
		now:      time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		accounts: map[uint]models.Account{},
		profiles: map[uint]models.WorkerProfile{},
		patients: map[uint]models.Patient{},
		cases:    map[uint]models.MedicalCase{},
		implants: map[uint]models.IndividualImplant{},
		library:  map[uint]models.ImplantLibrary{},
	}
}

// FailCreates makes every subsequent insert return err.
func (s *Store) FailCreates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

// tick hands out ids and strictly increasing timestamps.
func (s *Store) tick() (uint, time.Time) {
	s.nextID++
	s.now = s.now.Add(time.Second)
	return s.nextID, s.now
}

func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s} }
func (s *Store) Patients() *PatientRepository { return &PatientRepository{s} }
func (s *Store) Cases() *CaseRepository       { return &CaseRepository{s} }
func (s *Store) Library() *LibraryRepository  { return &LibraryRepository{s} }

// Uploads returns a copy of every recorded upload.
func (s *Store) Uploads() []models.DicomUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DicomUpload(nil), s.uploads...)
}

// Implant returns the implant of a case without the catalog row.
func (s *Store) Implant(caseID uint) (models.IndividualImplant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	implant, ok := s.implants[caseID]
	return implant, ok
}

// SetImplant stores an implant as-is.
func (s *Store) SetImplant(implant models.IndividualImplant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.implants[implant.CaseID] = implant
}

type AccountRepository struct{ s *Store }

func (r *AccountRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, account := range r.s.accounts {
		if strings.EqualFold(account.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, account := range r.s.accounts {
		if account.Email == email {
			return &account, nil
		}
	}
	return nil, nil
}

func (r *AccountRepository) GetByID(_ context.Context, id uint) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (r *AccountRepository) Create(_ context.Context, account *models.Account, profile *models.WorkerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	for _, existing := range r.s.accounts {
		if existing.Email == account.Email {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	account.ID, account.CreatedAt = r.s.tick()
	account.UpdatedAt = account.CreatedAt
	r.s.accounts[account.ID] = *account
	if profile != nil {
		profile.AccountID = account.ID
		if existing, ok := r.s.profiles[account.ID]; ok {
			profile.ID = existing.ID
		} else {
			profile.ID, _ = r.s.tick()
		}
		stored := *profile
		stored.Account = nil
		r.s.profiles[account.ID] = stored
	}
	return nil
}

func (r *AccountRepository) Reload(ctx context.Context, id uint) (*models.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) Deactivate(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return nil
	}
	account.IsActive = false
	r.s.accounts[id] = account
	return nil
}

func (r *AccountRepository) ListWorkerProfiles(_ context.Context, accountID *uint) ([]models.WorkerProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var profiles []models.WorkerProfile
	for _, profile := range r.s.profiles {
		if accountID != nil && profile.AccountID != *accountID {
			continue
		}
		account := r.s.accounts[profile.AccountID]
		profile.Account = &account
		profiles = append(profiles, profile)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

type PatientRepository struct{ s *Store }

func (r *PatientRepository) Create(_ context.Context, patient *models.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	patient.ID, patient.CreatedAt = r.s.tick()
	r.s.patients[patient.ID] = *patient
	return nil
}

func (r *PatientRepository) GetByID(_ context.Context, id uint) (*models.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	patient, ok := r.s.patients[id]
	if !ok {
		return nil, nil
	}
	return &patient, nil
}

func (r *PatientRepository) List(_ context.Context) ([]models.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	patients := make([]models.Patient, 0, len(r.s.patients))
	for _, patient := range r.s.patients {
		patients = append(patients, patient)
	}
	sort.Slice(patients, func(i, j int) bool { return patients[i].CreatedAt.After(patients[j].CreatedAt) })
	return patients, nil
}

func (r *PatientRepository) Update(_ context.Context, patient *models.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[patient.ID]; !ok {
		return errors.New("record not found")
	}
	r.s.patients[patient.ID] = *patient
	return nil
}

type CaseRepository struct{ s *Store }

func (r *CaseRepository) Create(_ context.Context, medicalCase *models.MedicalCase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	if medicalCase.Status == "" {
		medicalCase.Status = models.CaseOpen
	}
	medicalCase.ID, medicalCase.CreatedAt = r.s.tick()
	medicalCase.UpdatedAt = medicalCase.CreatedAt
	stored := *medicalCase
	stored.Patient, stored.Doctor = nil, nil
	r.s.cases[medicalCase.ID] = stored
	return nil
}

func (r *CaseRepository) GetByID(_ context.Context, id uint) (*models.MedicalCase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	medicalCase, ok := r.s.cases[id]
	if !ok {
		return nil, nil
	}
	if patient, ok := r.s.patients[medicalCase.PatientID]; ok {
		medicalCase.Patient = &patient
	}
	if medicalCase.DoctorID != nil {
		if doctor, ok := r.s.accounts[*medicalCase.DoctorID]; ok {
			medicalCase.Doctor = &doctor
		}
	}
	return &medicalCase, nil
}

func (r *CaseRepository) List(_ context.Context) ([]models.MedicalCase, error) {
	return r.list(func(models.MedicalCase) bool { return true }), nil
}

func (r *CaseRepository) ListByPatient(_ context.Context, patientID uint) ([]models.MedicalCase, error) {
	return r.list(func(c models.MedicalCase) bool { return c.PatientID == patientID }), nil
}

func (r *CaseRepository) list(keep func(models.MedicalCase) bool) []models.MedicalCase {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cases := []models.MedicalCase{}
	for _, medicalCase := range r.s.cases {
		if keep(medicalCase) {
			cases = append(cases, medicalCase)
		}
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].CreatedAt.After(cases[j].CreatedAt) })
	return cases
}

func (r *CaseRepository) Update(_ context.Context, medicalCase *models.MedicalCase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.cases[medicalCase.ID]
	if !ok {
		return errors.New("record not found")
	}
	stored.PatientID = medicalCase.PatientID
	stored.Diagnosis = medicalCase.Diagnosis
	stored.DoctorID = medicalCase.DoctorID
	_, stored.UpdatedAt = r.s.tick()
	r.s.cases[stored.ID] = stored
	return nil
}

// RecordUpload runs store first and only commits when it succeeds and
// inserts are not failing.
func (r *CaseRepository) RecordUpload(_ context.Context, upload *models.DicomUpload, store func() error) error {
	if err := store(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	upload.ID, upload.UploadedAt = r.s.tick()
	r.s.uploads = append(r.s.uploads, *upload)
	if medicalCase, ok := r.s.cases[upload.CaseID]; ok && medicalCase.Status == models.CaseOpen {
		medicalCase.Status = models.CaseArchiveReceived
		r.s.cases[medicalCase.ID] = medicalCase
	}
	return nil
}

func (r *CaseRepository) ListUploads(_ context.Context, caseID uint) ([]models.DicomUpload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var uploads []models.DicomUpload
	for _, upload := range r.s.uploads {
		if upload.CaseID == caseID {
			uploads = append(uploads, upload)
		}
	}
	return uploads, nil
}

func (r *CaseRepository) SaveCalculation(ctx context.Context, caseID uint, libraryID uint) (*models.IndividualImplant, error) {
	r.s.mu.Lock()
	implant, ok := r.s.implants[caseID]
	if !ok {
		implant.ID, implant.CreatedAt = r.s.tick()
		implant.CaseID = caseID
	}
	id := libraryID
	implant.LibraryID = &id
	implant.IsCalculated = true
	_, implant.UpdatedAt = r.s.tick()
	r.s.implants[caseID] = implant
	if medicalCase, ok := r.s.cases[caseID]; ok {
		medicalCase.Status = models.CaseCalculated
		r.s.cases[caseID] = medicalCase
	}
	r.s.mu.Unlock()
	return r.GetImplant(ctx, caseID)
}

func (r *CaseRepository) GetImplant(_ context.Context, caseID uint) (*models.IndividualImplant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	implant, ok := r.s.implants[caseID]
	if !ok {
		return nil, nil
	}
	if implant.LibraryID != nil {
		if entry, ok := r.s.library[*implant.LibraryID]; ok {
			implant.Library = &entry
		}
	}
	return &implant, nil
}

type LibraryRepository struct{ s *Store }

func (r *LibraryRepository) Create(_ context.Context, entry *models.ImplantLibrary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	entry.ID, entry.CreatedAt = r.s.tick()
	r.s.library[entry.ID] = *entry
	return nil
}

func (r *LibraryRepository) GetByID(_ context.Context, id uint) (*models.ImplantLibrary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry, ok := r.s.library[id]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *LibraryRepository) List(_ context.Context) ([]models.ImplantLibrary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := []models.ImplantLibrary{}
	for _, entry := range r.s.library {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
