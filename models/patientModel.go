package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	birthDateLayout = "02.01.2006"
	isoDateLayout   = "2006-01-02"
)

// BirthDate is a calendar date rendered as DD.MM.YYYY.
type BirthDate struct {
	time.Time
}

// ParseBirthDate accepts DD.MM.YYYY and YYYY-MM-DD.
func ParseBirthDate(value string) (BirthDate, error) {
	for _, layout := range []string{birthDateLayout, isoDateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return BirthDate{Time: t}, nil
		}
	}
	return BirthDate{}, fmt.Errorf("invalid date %q, expected DD.MM.YYYY", value)
}

func (d BirthDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(birthDateLayout)
}

func (d BirthDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(birthDateLayout))
}

func (d *BirthDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("birth date must be a string: %w", err)
	}
	if raw == nil || *raw == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseBirthDate(*raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d BirthDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(isoDateLayout), nil
}

func (d *BirthDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = v
	case string:
		t, err := time.Parse(isoDateLayout, v)
		if err != nil {
			return err
		}
		d.Time = t
	case []byte:
		t, err := time.Parse(isoDateLayout, string(v))
		if err != nil {
			return err
		}
		d.Time = t
	default:
		return fmt.Errorf("cannot scan %T into BirthDate", value)
	}
	return nil
}

func (BirthDate) GormDataType() string {
	return "date"
}

// Gender is stored as 0 (male) or 1 (female).
type Gender int

const (
	GenderMale   Gender = 0
	GenderFemale Gender = 1
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Patient model
type Patient struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	Name       string    `gorm:"size:100;not null;column:name" json:"name"`
	Surname    string    `gorm:"size:100;not null;index;column:surname" json:"surname"`
	Patronymic string    `gorm:"size:100;not null;default:'';column:patronymic" json:"patronymic"`
	BirthDate  BirthDate `gorm:"column:birth_date;not null" json:"birth_date"`
	Gender     Gender    `gorm:"column:gender;not null;check:gender IN (0, 1)" json:"gender"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Patient) TableName() string {
	return "patients"
}

// CaseStatus is the explicit workflow state of a medical case.
type CaseStatus string

const (
	CaseOpen            CaseStatus = "OPEN"
	CaseArchiveReceived CaseStatus = "ARCHIVE_RECEIVED"
	CaseCalculated      CaseStatus = "CALCULATED"
)

// MedicalCase is one clinical visit of a patient.
type MedicalCase struct {
	ID        uint       `gorm:"primaryKey;column:id" json:"id"`
	PatientID uint       `gorm:"column:patient_id;not null;index" json:"patient_id"`
	DoctorID  *uint      `gorm:"column:doctor_id;index" json:"doctor_id"`
	Diagnosis string     `gorm:"column:diagnosis;type:text;not null;default:''" json:"diagnosis"`
	Status    CaseStatus `gorm:"column:status;size:20;not null;default:'OPEN';check:status IN ('OPEN','ARCHIVE_RECEIVED','CALCULATED')" json:"status"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Patient   *Patient   `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"-"`
	Doctor    *Account   `gorm:"foreignKey:DoctorID;constraint:OnDelete:SET NULL" json:"-"`
}

func (MedicalCase) TableName() string {
	return "medical_cases"
}

// HasArchive reports whether at least one archive was accepted for the case.
func (m *MedicalCase) HasArchive() bool {
	return m.Status == CaseArchiveReceived || m.Status == CaseCalculated
}

// DicomUpload records one uploaded archive of a case
type DicomUpload struct {
	ID         uint         `gorm:"primaryKey;column:id" json:"id"`
	CaseID     uint         `gorm:"column:case_id;not null;index" json:"case_id"`
	File       string       `gorm:"column:file;size:255;not null" json:"file"`
	UploadedAt time.Time    `gorm:"column:uploaded_at;autoCreateTime" json:"uploaded_at"`
	Case       *MedicalCase `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DicomUpload) TableName() string {
	return "dicom_uploads"
}
