package repositories

import (
	"SmartDentist/cache"
	"SmartDentist/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	AccountCacheExpiry = 5 * time.Minute
)

// AccountRepository persists accounts and worker profiles. Lookups return
// (nil, nil) when nothing matches.
type AccountRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	// Reload reads the account from the database and refreshes its cache entry.
	Reload(ctx context.Context, id uint) (*models.Account, error)
	Deactivate(ctx context.Context, id uint) error
	Create(ctx context.Context, account *models.Account, profile *models.WorkerProfile) error
	ListWorkerProfiles(ctx context.Context, accountID *uint) ([]models.WorkerProfile, error)
}

type accountRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewAccountRepository(db *gorm.DB, cache *cache.Cache) AccountRepository {
	return &accountRepository{db: db, cache: cache}
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

// GetByEmail always reads the database because the password hash is needed.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetByID serves from the cache first; cached accounts carry no password hash.
func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getAccountCacheKey(id)
	var cached models.Account
	hit, err := r.cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		logrus.WithError(err).Warn("Failed to get account from cache")
	} else if hit {
		return &cached, nil
	}

	return r.Reload(ctx, id)
}

func (r *accountRepository) Reload(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if err := r.cache.SetJSON(ctx, r.getAccountCacheKey(id), account, AccountCacheExpiry); err != nil {
		logrus.WithError(err).Warn("Failed to set account in cache")
	}

	return &account, nil
}

// Deactivate clears the active flag and drops the cached copy.
func (r *accountRepository) Deactivate(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	if err := r.cache.Delete(ctx, r.getAccountCacheKey(id)); err != nil {
		logrus.WithError(err).Warn("Failed to delete account from cache")
	}
	return nil
}

// Create stores the account and, when given, its worker profile in one
// transaction. An existing profile is updated in place.
func (r *accountRepository) Create(ctx context.Context, account *models.Account, profile *models.WorkerProfile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		if profile == nil {
			return nil
		}
		profile.AccountID = account.ID
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"work", "position"}),
		}).Create(profile).Error
		if err != nil {
			return fmt.Errorf("failed to save worker profile: %w", err)
		}
		return nil
	})
}

// ListWorkerProfiles returns every profile, or only the profile of accountID when set.
func (r *accountRepository) ListWorkerProfiles(ctx context.Context, accountID *uint) ([]models.WorkerProfile, error) {
	query := r.db.WithContext(ctx).Preload("Account").Order("id")
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}
	var profiles []models.WorkerProfile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list worker profiles: %w", err)
	}
	return profiles, nil
}

func (r *accountRepository) getAccountCacheKey(id uint) string {
	return fmt.Sprintf("account_cache:%d", id)
}
