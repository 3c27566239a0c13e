package handlers

import (
	"SmartDentist/middlewares"
	"SmartDentist/models"
	"SmartDentist/services"
	"SmartDentist/utils"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	AccountService services.AccountService
	Tokens         *services.TokenService
	Cookies        *utils.SessionCookies
}

func NewAuthHandler(accountService services.AccountService, tokens *services.TokenService, cookies *utils.SessionCookies) *AuthHandler {
	return &AuthHandler{
		AccountService: accountService,
		Tokens:         tokens,
		Cookies:        cookies,
	}
}

// Login authenticates the account, sets the session cookies and returns the tokens
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&credentials); err != nil {
		middlewares.HttpError(c, "Invalid request body", http.StatusBadRequest, err)
		return
	}
	if err := utils.ValidateLogin(credentials.Email, credentials.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	ctx := c.Request.Context()
	account, err := h.AccountService.Authenticate(ctx, credentials.Email, credentials.Password)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	pair, err := h.Tokens.Issue(account)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	h.Cookies.SetLogin(c, pair.AccessToken, pair.RefreshToken, account.IsStaff(), utils.GenerateCSRFToken())
	logrus.WithField("account_id", account.ID).Info("Account logged in")

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Logout revokes the refresh cookie if possible and always clears the session
func (h *AuthHandler) Logout(c *gin.Context) {
	refresh := utils.CookieValue(c.Request, h.Cookies.Config().RefreshCookie)
	h.Tokens.Revoke(c.Request.Context(), refresh)
	h.Cookies.Clear(c)
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out successfully"})
}

// RefreshToken rotates the session tokens using the refresh cookie only
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	cfg := h.Cookies.Config()
	refresh := utils.CookieValue(c.Request, cfg.RefreshCookie)
	if refresh == "" {
		middlewares.RespondError(c, fmt.Errorf("%w: no valid refresh token in cookie", services.ErrInvalidToken))
		return
	}

	pair, err := h.Tokens.Refresh(c.Request.Context(), refresh)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	h.Cookies.SetTokens(c, pair.AccessToken, pair.RefreshToken)
	c.Header(cfg.CSRFHeader, utils.CookieValue(c.Request, cfg.CSRFCookie))
	c.JSON(http.StatusOK, gin.H{})
}

func (h *AuthHandler) RegisterWorker(c *gin.Context) {
	h.register(c, h.AccountService.RegisterWorker)
}

func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	h.register(c, h.AccountService.RegisterAdmin)
}

func (h *AuthHandler) RegisterSuperAdmin(c *gin.Context) {
	h.register(c, h.AccountService.RegisterSuperAdmin)
}

func (h *AuthHandler) register(c *gin.Context, create func(ctx context.Context, input services.Registration) (*models.Account, error)) {
	var input services.Registration
	if err := c.ShouldBind(&input); err != nil {
		middlewares.HttpError(c, "Invalid request body", http.StatusBadRequest, err)
		return
	}

	account, err := create(c.Request.Context(), input)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"email":      account.Email,
		"name":       account.Name,
		"surname":    account.Surname,
		"patronymic": account.Patronymic,
	})
}

// Profile returns the name parts of the caller
func (h *AuthHandler) Profile(c *gin.Context) {
	account := middlewares.CurrentAccount(c)
	c.JSON(http.StatusOK, profileResponse{
		Name:       account.Name,
		Surname:    account.Surname,
		Patronymic: account.Patronymic,
	})
}

// CurrentUser returns the full account of the caller
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, newAccountResponse(middlewares.CurrentAccount(c)))
}

// ListWorkers returns worker profiles visible to the caller
func (h *AuthHandler) ListWorkers(c *gin.Context) {
	profiles, err := h.AccountService.ListWorkerProfiles(c.Request.Context(), middlewares.CurrentAccount(c))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	out := make([]workerProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, workerProfileResponse{
			ID:       profiles[i].ID,
			User:     newAccountResponse(profiles[i].Account),
			Work:     profiles[i].Work,
			Position: profiles[i].Position,
		})
	}
	c.JSON(http.StatusOK, out)
}
