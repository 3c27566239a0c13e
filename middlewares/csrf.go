package middlewares

import (
	"SmartDentist/services"
	"SmartDentist/utils"
	"fmt"

	"github.com/gin-gonic/gin"
)

// CSRFProtect enforces the double-submit token on state-changing requests
// that carry a session cookie. The logout path is never checked.
func CSRFProtect(cookies *utils.SessionCookies) gin.HandlerFunc {
	cfg := cookies.Config()
	return func(c *gin.Context) {
		if services.IsSafeMethod(c.Request.Method) ||
			c.Request.URL.Path == cfg.LogoutPath ||
			!cookies.HasSession(c.Request) {
			c.Next()
			return
		}

		expected := utils.CookieValue(c.Request, cfg.CSRFCookie)
		if expected == "" {
			RespondError(c, fmt.Errorf("%w: CSRF cookie not set", services.ErrPermissionDenied))
			return
		}
		if !utils.CSRFTokensMatch(expected, c.GetHeader(cfg.CSRFHeader)) {
			RespondError(c, fmt.Errorf("%w: CSRF token missing or incorrect", services.ErrPermissionDenied))
			return
		}
		c.Next()
	}
}
