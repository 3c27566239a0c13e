package middlewares

import (
	"SmartDentist/models"
	"SmartDentist/services"
	"SmartDentist/utils"
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// AccountLookup resolves the account a token belongs to.
type AccountLookup interface {
	GetByID(ctx context.Context, id uint) (*models.Account, error)
}

const (
	accountKey = "account"
	claimsKey  = "tokenClaims"
)

// Authenticate resolves the caller from the Authorization header or, failing
// that, from the access cookie. Requests carrying neither stay anonymous; an
// unusable token is rejected with 401.
func Authenticate(tokens *services.TokenService, accounts AccountLookup, cookies *utils.SessionCookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			RespondError(c, err)
			return
		}
		if token == "" {
			token = utils.CookieValue(c.Request, cookies.Config().AccessCookie)
		}
		if token == "" {
			c.Next()
			return
		}

		claims, err := tokens.Validate(c.Request.Context(), token, utils.AccessToken)
		if err != nil {
			RespondError(c, err)
			return
		}
		account, err := accounts.GetByID(c.Request.Context(), claims.AccountID)
		if err != nil || account == nil || !account.IsActive {
			RespondError(c, fmt.Errorf("%w: account %d is unavailable", services.ErrInvalidToken, claims.AccountID))
			return
		}

		c.Set(accountKey, account)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequirePermission lets the request through only when p allows the caller.
// Anonymous callers get 401, authenticated but unauthorised ones 403.
func RequirePermission(p services.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := CurrentAccount(c)
		if p(account, c.Request.Method) {
			c.Next()
			return
		}
		if !services.IsAuthenticated(account, c.Request.Method) {
			RespondError(c, fmt.Errorf("%w: authentication credentials were not provided", services.ErrInvalidToken))
			return
		}
		RespondError(c, services.ErrPermissionDenied)
	}
}

// CurrentAccount returns the authenticated account or nil.
func CurrentAccount(c *gin.Context) *models.Account {
	value, ok := c.Get(accountKey)
	if !ok {
		return nil
	}
	account, _ := value.(*models.Account)
	return account
}

// CurrentClaims returns the claims of the access token used by the request.
func CurrentClaims(c *gin.Context) *utils.TokenClaims {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*utils.TokenClaims)
	return claims
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: invalid Authorization header format", services.ErrInvalidToken)
	}
	return strings.TrimSpace(token), nil
}
