package services

import (
	"SmartDentist/models"
	"net/http"
)

// Permission decides whether the resolved account may perform a request with
// the given method. A nil account is an anonymous caller.
type Permission func(account *models.Account, method string) bool

// IsSafeMethod reports whether method cannot change state.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func IsAuthenticated(account *models.Account, _ string) bool {
	return account != nil && account.IsActive
}

func IsSuperAdmin(account *models.Account, method string) bool {
	return IsAuthenticated(account, method) && account.Role == models.RoleSuperAdmin
}

func IsAdminOrSuperAdmin(account *models.Account, method string) bool {
	return IsAuthenticated(account, method) &&
		(account.Role == models.RoleAdmin || account.Role == models.RoleSuperAdmin)
}

// IsAdminOrAuthenticatedReadOnly lets every authenticated account read and
// only staff write.
func IsAdminOrAuthenticatedReadOnly(account *models.Account, method string) bool {
	if !IsAuthenticated(account, method) {
		return false
	}
	return IsSafeMethod(method) || account.IsStaff()
}
