package routes

import (
	"SmartDentist/cache"
	"SmartDentist/config"
	"SmartDentist/controllers"
	"SmartDentist/database"
	"SmartDentist/handlers"
	"SmartDentist/middlewares"
	"SmartDentist/repositories"
	"SmartDentist/services"
	"SmartDentist/storage"
	"SmartDentist/utils"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Dependencies is everything the router needs; tests fill it with in-memory doubles.
type Dependencies struct {
	Config      *config.AppConfig
	Codec       utils.TokenCodec
	Revoked     services.RevocationList
	Locker      services.Locker
	Accounts    repositories.AccountRepository
	Patients    repositories.PatientRepository
	Cases       repositories.CaseRepository
	Library     repositories.LibraryRepository
	Archives    *storage.ArchiveStore
	CaseOptions []services.CaseServiceOption
}

// NewTokenCodec picks the token format configured for the deployment.
func NewTokenCodec(cfg *config.AppConfig) (utils.TokenCodec, error) {
	switch cfg.TokenFormat {
	case config.TokenFormatPaseto:
		return utils.NewPasetoCodec(cfg.SymmetricKey)
	case config.TokenFormatJWT, "":
		return utils.NewJWTCodec(cfg.TokenSecret), nil
	}
	return nil, fmt.Errorf("unknown token format %q", cfg.TokenFormat)
}

// SetupRoutes wires the production stores and returns the HTTP handler
func SetupRoutes(appCache *cache.Cache, cfg *config.AppConfig, db *gorm.DB, redisClient *redis.Client) (http.Handler, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	}

	codec, err := NewTokenCodec(cfg)
	if err != nil {
		return nil, err
	}
	archives, err := storage.NewOsArchiveStore(cfg.MediaRoot, storage.WithExtractLimit(cfg.MaxExtracted))
	if err != nil {
		return nil, err
	}

	return NewRouter(Dependencies{
		Config:   cfg,
		Codec:    codec,
		Revoked:  cache.NewTokenBlacklist(appCache),
		Locker:   database.NewRedisLocker(redisClient),
		Accounts: repositories.NewAccountRepository(db, appCache),
		Patients: repositories.NewPatientRepository(db, appCache),
		Cases:    repositories.NewCaseRepository(db),
		Library:  repositories.NewLibraryRepository(db),
		Archives: archives,
	}), nil
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middlewares.LoggingMiddleware())
	router.Use(middlewares.CorsMiddleware(middlewares.NewCorsConfig(cfg.CORSOrigins, cfg.Session.CSRFHeader)))
	if cfg.RateLimitRPS > 0 {
		router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}

	cookies := utils.NewSessionCookies(cfg.Session)
	router.Use(middlewares.CSRFProtect(cookies))

	tokenService := services.NewTokenService(deps.Codec, deps.Revoked, deps.Accounts, cfg.Session.AccessLifetime, cfg.Session.RefreshLifetime)
	accountService := services.NewAccountService(deps.Accounts, deps.Locker)
	patientService := services.NewPatientService(deps.Patients)
	caseService := services.NewCaseService(deps.Patients, deps.Cases, deps.Library, deps.Archives, deps.Locker, cfg.ProcessDelay, deps.CaseOptions...)
	libraryService := services.NewLibraryService(deps.Library)

	authenticate := middlewares.Authenticate(tokenService, accountService, cookies)

	authHandler := handlers.NewAuthHandler(accountService, tokenService, cookies)
	patientHandler := handlers.NewPatientHandler(patientService, caseService)
	caseHandler := handlers.NewCaseHandler(caseService, cfg.MediaURL)
	libraryHandler := handlers.NewLibraryHandler(libraryService, cfg.MediaURL)

	controllers.NewAuthController(authHandler, authenticate).RegisterRoutes(router)
	controllers.SetupPatientRoutes(router, authenticate, patientHandler, caseHandler)
	controllers.SetupLibraryRoutes(router, authenticate, libraryHandler)
	controllers.SetupMediaRoute(router, cfg.MediaURL, deps.Archives.Fs())
	controllers.SetupRootRoute(router)

	return router
}
