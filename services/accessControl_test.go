package services

import (
	"SmartDentist/models"
	"net/http"
	"testing"
)

func TestPermissions(t *testing.T) {
	superadmin := &models.Account{ID: 1, Role: models.RoleSuperAdmin, IsActive: true}
	admin := &models.Account{ID: 2, Role: models.RoleAdmin, IsActive: true}
	worker := &models.Account{ID: 3, Role: models.RoleWorker, IsActive: true}
	inactive := &models.Account{ID: 4, Role: models.RoleSuperAdmin, IsActive: false}

	tests := []struct {
		name       string
		permission Permission
		account    *models.Account
		method     string
		want       bool
	}{
		{"anonymous is not authenticated", IsAuthenticated, nil, http.MethodGet, false},
		{"worker is authenticated", IsAuthenticated, worker, http.MethodPost, true},
		{"inactive is not authenticated", IsAuthenticated, inactive, http.MethodGet, false},
		{"superadmin passes superadmin check", IsSuperAdmin, superadmin, http.MethodPost, true},
		{"admin fails superadmin check", IsSuperAdmin, admin, http.MethodPost, false},
		{"inactive superadmin fails", IsSuperAdmin, inactive, http.MethodPost, false},
		{"admin passes staff check", IsAdminOrSuperAdmin, admin, http.MethodDelete, true},
		{"worker fails staff check", IsAdminOrSuperAdmin, worker, http.MethodGet, false},
		{"worker reads library", IsAdminOrAuthenticatedReadOnly, worker, http.MethodGet, true},
		{"worker heads library", IsAdminOrAuthenticatedReadOnly, worker, http.MethodHead, true},
		{"worker cannot write library", IsAdminOrAuthenticatedReadOnly, worker, http.MethodPost, false},
		{"admin writes library", IsAdminOrAuthenticatedReadOnly, admin, http.MethodPost, true},
		{"anonymous cannot read library", IsAdminOrAuthenticatedReadOnly, nil, http.MethodGet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.permission(tt.account, tt.method); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSafeMethod(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		if !IsSafeMethod(method) {
			t.Errorf("%s should be safe", method)
		}
	}
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		if IsSafeMethod(method) {
			t.Errorf("%s should not be safe", method)
		}
	}
}
