package models

import (
	"time"
)

// Role is the single source of truth for what an account may do.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleWorker     Role = "WORKER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleWorker:
		return true
	}
	return false
}

// IsStaff is true for roles allowed into administrative operations.
func (r Role) IsStaff() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// IsSuperuser is true only for the superadmin role.
func (r Role) IsSuperuser() bool {
	return r == RoleSuperAdmin
}

// Account represents a clinic user identified by e-mail
type Account struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	Email      string    `gorm:"size:254;not null;uniqueIndex;column:email" json:"email"`
	Name       string    `gorm:"size:50;not null;column:name" json:"name"`
	Surname    string    `gorm:"size:50;not null;column:surname" json:"surname"`
	Patronymic string    `gorm:"size:50;not null;default:'';column:patronymic" json:"patronymic"`
	Password   string    `gorm:"size:255;not null;column:password" json:"-"`
	Role       Role      `gorm:"size:20;not null;default:'WORKER';index;column:role;check:role IN ('SUPERADMIN','ADMIN','WORKER')" json:"role"`
	IsActive   bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// IsStaff mirrors the role; there is no separate column to drift from it.
func (a *Account) IsStaff() bool {
	return a != nil && a.Role.IsStaff()
}

func (a *Account) IsSuperuser() bool {
	return a != nil && a.Role.IsSuperuser()
}

// FullName renders "Surname Name Patronymic" without trailing blanks.
func (a *Account) FullName() string {
	name := a.Surname + " " + a.Name
	if a.Patronymic != "" {
		name += " " + a.Patronymic
	}
	return name
}

// WorkerProfile holds workplace details of a WORKER account
type WorkerProfile struct {
	ID        uint     `gorm:"primaryKey;column:id" json:"id"`
	AccountID uint     `gorm:"not null;uniqueIndex;column:account_id" json:"-"`
	Work      string   `gorm:"size:255;not null;default:'';column:work" json:"work"`
	Position  string   `gorm:"size:255;not null;default:'';column:position" json:"position"`
	Account   *Account `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (WorkerProfile) TableName() string {
	return "worker_profiles"
}
