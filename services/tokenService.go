package services

import (
	"SmartDentist/models"
	"SmartDentist/utils"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RevocationList remembers revoked token ids until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AccountSource loads the current state of an account, bypassing caches.
type AccountSource interface {
	Reload(ctx context.Context, id uint) (*models.Account, error)
}

// TokenPair is the result of a login or a refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Access       *utils.TokenClaims
	Refresh      *utils.TokenClaims
}

// TokenService issues, validates, refreshes and revokes session tokens.
type TokenService struct {
	codec           utils.TokenCodec
	revoked         RevocationList
	accounts        AccountSource
	accessLifetime  time.Duration
	refreshLifetime time.Duration
}

func NewTokenService(codec utils.TokenCodec, revoked RevocationList, accounts AccountSource, accessLifetime, refreshLifetime time.Duration) *TokenService {
	return &TokenService{
		codec:           codec,
		revoked:         revoked,
		accounts:        accounts,
		accessLifetime:  accessLifetime,
		refreshLifetime: refreshLifetime,
	}
}

// Issue creates an access and a refresh token for the account.
func (s *TokenService) Issue(account *models.Account) (*TokenPair, error) {
	return s.issue(account.ID, string(account.Role))
}

func (s *TokenService) issue(accountID uint, role string) (*TokenPair, error) {
	now := time.Now()
	access := utils.TokenClaims{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Role:      role,
		Type:      utils.AccessToken,
		IssuedAt:  now,
		Expiry:    now.Add(s.accessLifetime),
	}
	refresh := utils.TokenClaims{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Role:      role,
		Type:      utils.RefreshToken,
		IssuedAt:  now,
		Expiry:    now.Add(s.refreshLifetime),
	}

	accessToken, err := s.codec.Encode(access)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.codec.Encode(refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Access:       &access,
		Refresh:      &refresh,
	}, nil
}

// Validate decodes token and checks its type, expiry and revocation.
func (s *TokenService) Validate(ctx context.Context, token string, want utils.TokenType) (*utils.TokenClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is missing", ErrInvalidToken)
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, want, claims.Type)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: token has no id", ErrInvalidToken)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token is blacklisted", ErrInvalidToken)
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair. The account is reloaded
// so a deactivated account cannot refresh and role changes apply. The
// presented refresh token is revoked so it cannot be replayed.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.Validate(ctx, refreshToken, utils.RefreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Reload(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsActive {
		return nil, fmt.Errorf("%w: account %d is unavailable", ErrInvalidToken, claims.AccountID)
	}

	pair, err := s.Issue(account)
	if err != nil {
		return nil, err
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.Expiry); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return pair, nil
}

// Revoke blacklists a refresh token. It never fails: unparsable, expired or
// already revoked tokens are simply ignored.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		logrus.WithError(err).Debug("Ignoring revocation of unusable token")
		return
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.Expiry); err != nil {
		logrus.WithError(err).Warn("Failed to revoke refresh token")
	}
}
