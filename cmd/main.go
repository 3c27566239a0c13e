package main

import (
	"SmartDentist/cache"
	"SmartDentist/config"
	"SmartDentist/database"
	"SmartDentist/repositories"
	"SmartDentist/routes"
	"SmartDentist/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smartdentist",
		Short: "SmartDentist clinical records API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createSuperuserCmd())
	rootCmd.AddCommand(deactivateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.InitDB(cmd.Context(), cfg.DBURL, cfg.IsDev())
			if err != nil {
				return err
			}
			defer closeDB(db)
			logrus.Info("Migrations applied")
			return nil
		},
	}
}

func createSuperuserCmd() *cobra.Command {
	var input services.Registration
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a superadmin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, redisClient, appCache, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			defer redisClient.Close()

			if input.Password2 == "" {
				input.Password2 = input.Password
			}
			accountService := services.NewAccountService(
				repositories.NewAccountRepository(db, appCache),
				database.NewRedisLocker(redisClient),
			)
			account, err := accountService.RegisterSuperAdmin(cmd.Context(), input)
			if err != nil {
				var validationErr *services.ValidationError
				if errors.As(err, &validationErr) {
					return fmt.Errorf("invalid superuser data: %v", validationErr.Fields)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (id %d)\n", account.Email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "E-mail used to log in")
	cmd.Flags().StringVar(&input.Name, "name", "", "First name")
	cmd.Flags().StringVar(&input.Surname, "surname", "", "Last name")
	cmd.Flags().StringVar(&input.Patronymic, "patronymic", "", "Patronymic")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password, at least 6 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func deactivateCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate an account so it can no longer log in or refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, redisClient, appCache, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			defer redisClient.Close()

			accountService := services.NewAccountService(
				repositories.NewAccountRepository(db, appCache),
				database.NewRedisLocker(redisClient),
			)
			account, err := accountService.Deactivate(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s deactivated (id %d)\n", account.Email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "E-mail of the account")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, redisClient, appCache, err := connect(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)
	defer redisClient.Close()

	handler, err := routes.SetupRoutes(appCache, cfg, db, redisClient)
	if err != nil {
		return fmt.Errorf("failed to set up routes: %w", err)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	serverErr := make(chan error, 1)

	go func() {
		defer wg.Done()
		logrus.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("listenAndServe(): %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	logrus.Info("Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	wg.Wait()
	database.MonitorRedisPool(redisClient)
	logrus.Info("Server exited gracefully")
	return nil
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	configureLogging(cfg)
	return cfg, nil
}

func configureLogging(cfg *config.AppConfig) {
	if cfg.IsDev() {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)
}

func connect(ctx context.Context, cfg *config.AppConfig) (*gorm.DB, *redis.Client, *cache.Cache, error) {
	db, err := database.InitDB(ctx, cfg.DBURL, cfg.IsDev())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := database.InitializeRedis(cfg.RedisAddress)
	if err != nil {
		closeDB(db)
		return nil, nil, nil, err
	}

	appCache, err := cache.NewCache(redisClient)
	if err != nil {
		closeDB(db)
		redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return db, redisClient, appCache, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close database")
	}
}
