package middlewares

import (
	"SmartDentist/models"
	"SmartDentist/utils"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestLoggingMiddleware(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	router := gin.New()
	router.Use(LoggingMiddleware())
	router.GET("/anonymous", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/session", func(c *gin.Context) {
		c.Set(accountKey, &models.Account{ID: 4})
		c.Set(claimsKey, &utils.TokenClaims{ID: "jti-4"})
		c.Status(http.StatusOK)
	})
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	tests := []struct {
		path      string
		level     logrus.Level
		accountID interface{}
		tokenID   interface{}
	}{
		{"/anonymous", logrus.InfoLevel, nil, nil},
		{"/session", logrus.InfoLevel, uint(4), "jti-4"},
		{"/missing", logrus.WarnLevel, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			hook.Reset()
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			entry := hook.LastEntry()
			if entry == nil {
				t.Fatal("expected a log entry")
			}
			if entry.Level != tt.level {
				t.Errorf("expected level %s, got %s", tt.level, entry.Level)
			}
			if entry.Data["path"] != tt.path {
				t.Errorf("expected path %s, got %v", tt.path, entry.Data["path"])
			}
			if entry.Data["account_id"] != tt.accountID {
				t.Errorf("expected account_id %v, got %v", tt.accountID, entry.Data["account_id"])
			}
			if entry.Data["token_id"] != tt.tokenID {
				t.Errorf("expected token_id %v, got %v", tt.tokenID, entry.Data["token_id"])
			}
		})
	}
}
