package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImplantLibrary is a pre-made implant template of the catalog.
type ImplantLibrary struct {
	ID             uint            `gorm:"primaryKey;column:id" json:"id"`
	Name           string          `gorm:"size:100;not null;column:name" json:"name"`
	Diameter       decimal.Decimal `gorm:"type:numeric(6,2);not null;column:diameter" json:"diameter"`
	Length         decimal.Decimal `gorm:"type:numeric(6,2);not null;column:length" json:"length"`
	ThreadPitch    decimal.Decimal `gorm:"type:numeric(6,2);not null;column:thread_pitch" json:"thread_pitch"`
	ThreadDepth    decimal.Decimal `gorm:"type:numeric(6,2);not null;column:thread_depth" json:"thread_depth"`
	ThreadShape    string          `gorm:"size:50;not null;default:'';column:thread_shape" json:"thread_shape"`
	BoneType       string          `gorm:"size:10;not null;default:'';column:bone_type" json:"bone_type"`
	BoneDensity    decimal.Decimal `gorm:"type:numeric(8,2);not null;column:bone_density" json:"bone_density"`
	MaxAxialLoad   decimal.Decimal `gorm:"type:numeric(8,2);not null;column:max_axial_load" json:"max_axial_load"`
	MaxLateralLoad decimal.Decimal `gorm:"type:numeric(8,2);not null;column:max_lateral_load" json:"max_lateral_load"`
	SurfaceArea    decimal.Decimal `gorm:"type:numeric(8,2);not null;column:surface_area" json:"surface_area"`
	StressImage    string          `gorm:"size:255;not null;default:'';column:stress_image" json:"stress_image"`
	GraphImage     string          `gorm:"size:255;not null;default:'';column:graph_image" json:"graph_image"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (ImplantLibrary) TableName() string {
	return "implant_library"
}

// IndividualImplant is the calculation result attached to a case.
// Its displayed parameters come from the referenced library row.
type IndividualImplant struct {
	ID           uint            `gorm:"primaryKey;column:id" json:"id"`
	CaseID       uint            `gorm:"column:case_id;not null;uniqueIndex" json:"case_id"`
	LibraryID    *uint           `gorm:"column:library_id;index" json:"library_id"`
	IsCalculated bool            `gorm:"column:is_calculated;not null;default:false" json:"is_calculated"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	Case         *MedicalCase    `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"-"`
	Library      *ImplantLibrary `gorm:"foreignKey:LibraryID;constraint:OnDelete:SET NULL" json:"library,omitempty"`
}

func (IndividualImplant) TableName() string {
	return "individual_implants"
}

// Calculated reports whether the implant holds a usable result.
func (i *IndividualImplant) Calculated() bool {
	return i != nil && i.IsCalculated && i.LibraryID != nil
}
