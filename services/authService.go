package services

import (
	"SmartDentist/models"
	"SmartDentist/repositories"
	"SmartDentist/utils"
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
)

// Registration is the input of every account creation path.
type Registration struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Patronymic string `json:"patronymic"`
	Password   string `json:"password"`
	Password2  string `json:"password2"`
	Work       string `json:"work"`
	Position   string `json:"position"`
}

type AccountService interface {
	RegisterWorker(ctx context.Context, input Registration) (*models.Account, error)
	RegisterAdmin(ctx context.Context, input Registration) (*models.Account, error)
	RegisterSuperAdmin(ctx context.Context, input Registration) (*models.Account, error)
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	Deactivate(ctx context.Context, email string) (*models.Account, error)
	ListWorkerProfiles(ctx context.Context, actor *models.Account) ([]models.WorkerProfile, error)
}

type accountService struct {
	accountRepo repositories.AccountRepository
	locker      Locker
}

func NewAccountService(accountRepo repositories.AccountRepository, locker Locker) AccountService {
	return &accountService{accountRepo: accountRepo, locker: locker}
}

func (s *accountService) RegisterWorker(ctx context.Context, input Registration) (*models.Account, error) {
	return s.register(ctx, input, models.RoleWorker)
}

func (s *accountService) RegisterAdmin(ctx context.Context, input Registration) (*models.Account, error) {
	return s.register(ctx, input, models.RoleAdmin)
}

func (s *accountService) RegisterSuperAdmin(ctx context.Context, input Registration) (*models.Account, error) {
	return s.register(ctx, input, models.RoleSuperAdmin)
}

func (s *accountService) register(ctx context.Context, input Registration, role models.Role) (*models.Account, error) {
	input.Email = utils.NormalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Patronymic = strings.TrimSpace(input.Patronymic)

	errs := validation.Errors{}
	if err := utils.ValidateAccountData(input.Email, input.Name, input.Surname, input.Patronymic); err != nil {
		mergeErrors(errs, err)
	}
	if err := utils.ValidatePasswordPair(input.Password, input.Password2); err != nil {
		mergeErrors(errs, err)
	}
	if len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	var account *models.Account
	lockKey := fmt.Sprintf("account_lock:%s", strings.ToLower(input.Email))
	err := withLock(ctx, s.locker, lockKey, lockOptions{ttl: time.Minute, maxRetries: 1}, func() error {
		exists, err := s.accountRepo.EmailExists(ctx, input.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrEmailTaken
		}

		hashedPassword, err := utils.HashPassword(input.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		account = &models.Account{
			Email:      input.Email,
			Name:       input.Name,
			Surname:    input.Surname,
			Patronymic: input.Patronymic,
			Password:   hashedPassword,
			Role:       role,
			IsActive:   true,
		}

		var profile *models.WorkerProfile
		work, position := strings.TrimSpace(input.Work), strings.TrimSpace(input.Position)
		if role == models.RoleWorker && work != "" && position != "" {
			profile = &models.WorkerProfile{Work: work, Position: position}
		}
		return s.accountRepo.Create(ctx, account, profile)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"account_id": account.ID, "role": role}).Info("Account registered")
	return account, nil
}

// Authenticate returns ErrAuthenticationFailed for an unknown email, a wrong
// password or an inactive account alike.
func (s *accountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.accountRepo.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if account == nil || !account.IsActive || !utils.CheckPassword(password, account.Password) {
		return nil, ErrAuthenticationFailed
	}
	return account, nil
}

func (s *accountService) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, id)
	}
	return account, nil
}

// Deactivate disables login, refresh and token use for the account. Accounts
// are never deleted.
func (s *accountService) Deactivate(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.accountRepo.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, email)
	}
	if err := s.accountRepo.Deactivate(ctx, account.ID); err != nil {
		return nil, err
	}
	account.IsActive = false
	logrus.WithField("account_id", account.ID).Info("Account deactivated")
	return account, nil
}

// ListWorkerProfiles shows staff every profile and everybody else only their own.
func (s *accountService) ListWorkerProfiles(ctx context.Context, actor *models.Account) ([]models.WorkerProfile, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	if actor.IsStaff() || actor.IsSuperuser() {
		return s.accountRepo.ListWorkerProfiles(ctx, nil)
	}
	id := actor.ID
	return s.accountRepo.ListWorkerProfiles(ctx, &id)
}

func mergeErrors(dst validation.Errors, err error) {
	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			dst[field] = fieldErr
		}
		return
	}
	dst["detail"] = err
}
