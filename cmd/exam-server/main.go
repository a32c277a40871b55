package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Iv3rn/exam-access-flow/internal/config"
	"github.com/Iv3rn/exam-access-flow/internal/domain/exam"
	"github.com/Iv3rn/exam-access-flow/internal/domain/examtype"
	"github.com/Iv3rn/exam-access-flow/internal/domain/patient"
	"github.com/Iv3rn/exam-access-flow/internal/domain/patientauth"
	"github.com/Iv3rn/exam-access-flow/internal/domain/settings"
	"github.com/Iv3rn/exam-access-flow/internal/domain/staff"
	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
	"github.com/Iv3rn/exam-access-flow/internal/platform/db"
	"github.com/Iv3rn/exam-access-flow/internal/platform/middleware"
	"github.com/Iv3rn/exam-access-flow/internal/platform/objectstore"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "exam-server",
		Short: "Clinic exam access API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

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
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			issuer := auth.NewTokenIssuer([]byte(cfg.SessionSecret), "exam-server",
				time.Duration(cfg.SessionTTLMinutes)*time.Minute)
			directory := auth.NewPGDirectory(pool, issuer)
			roles := staff.NewRoleRepoPG(pool)

			account, err := ensureAdminAccount(ctx, directory, roles, email, password, name)
			if err != nil {
				return err
			}

			fmt.Printf("Admin account ready: %s (%s)\n", email, account.ID)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Admin email address")
	createCmd.Flags().String("password", "", "Admin password")
	createCmd.Flags().String("name", "", "Full name")

	cmd.AddCommand(createCmd)
	return cmd
}

type roleAssigner interface {
	Upsert(ctx context.Context, accountID uuid.UUID, role string) error
}

// ensureAdminAccount provisions the bootstrap admin, or grants the admin
// role to an existing account on rerun. The directory leaves Account unset
// on the AlreadyExists outcome, so the id is resolved by email.
func ensureAdminAccount(ctx context.Context, directory auth.Directory, roles roleAssigner, email, password, name string) (*auth.Account, error) {
	res, err := directory.CreateAccount(ctx, email, password, auth.Metadata{FullName: name})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	account := res.Account
	if res.Outcome == auth.OutcomeAlreadyExists {
		fmt.Printf("Account %s already exists; granting admin role.\n", email)
		account, err = directory.FindAccountByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("look up existing account: %w", err)
		}
	}
	if err := roles.Upsert(ctx, account.ID, staff.RoleAdmin); err != nil {
		return nil, fmt.Errorf("grant admin role: %w", err)
	}
	return account, nil
}

// resolveSessionSecret returns the configured session secret, generating an
// ephemeral random key in development when none is set.
func resolveSessionSecret(cfg *config.Config, logger zerolog.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	logger.Warn().Msg("SESSION_SECRET not set; using an ephemeral key, sessions will not survive restarts")
	return key, nil
}

func buildObjectStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (objectstore.ObjectStore, error) {
	if cfg.MinioEndpoint == "" {
		logger.Warn().Msg("MINIO_ENDPOINT not set; using in-memory object store")
		store := objectstore.NewMemoryStore()
		store.BaseURL = fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)
		return store, nil
	}
	return objectstore.NewS3Store(ctx, objectstore.S3Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	secret, err := resolveSessionSecret(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve session secret")
	}
	issuer := auth.NewTokenIssuer(secret, "exam-server",
		time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	directory := auth.NewPGDirectory(pool, issuer)

	store, err := buildObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize object store")
	}

	// Repositories
	patientRepo := patient.NewRepoPG(pool)
	roleRepo := staff.NewRoleRepoPG(pool)
	activityRepo := staff.NewActivityRepoPG(pool)
	examRepo := exam.NewExamRepoPG(pool)
	reportRepo := exam.NewReportRepoPG(pool)
	examTypeRepo := examtype.NewRepoPG(pool)
	settingsRepo := settings.NewRepoPG(pool)

	// Services
	patientSvc := patient.NewService(patientRepo, directory, roleRepo, activityRepo, cfg.PatientEmailDomain, logger)
	patientAuthSvc := patientauth.NewService(patientRepo, directory, roleRepo, auth.BcryptVerifier{}, cfg.PatientEmailDomain, logger)
	staffSvc := staff.NewService(roleRepo, activityRepo, directory)
	examSvc := exam.NewService(examRepo, reportRepo, store, activityRepo, logger)
	examTypeSvc := examtype.NewService(examTypeRepo)
	settingsSvc := settings.NewService(settingsRepo, store)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(auth.SessionMiddleware(issuer, auth.DefaultSkipper))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Login endpoints live outside the API group; the session middleware
	// skips them.
	auth.NewLoginHandler(directory).RegisterRoutes(e)
	patientauth.NewHandler(patientAuthSvc).RegisterRoutes(e)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	staff.NewHandler(staffSvc).RegisterRoutes(apiV1)
	exam.NewHandler(examSvc).RegisterRoutes(apiV1)
	examtype.NewHandler(examTypeSvc).RegisterRoutes(apiV1)
	settings.NewHandler(settingsSvc).RegisterRoutes(apiV1)
	filesHandler := objectstore.NewHandler(store)
	filesHandler.RegisterRoutes(apiV1.Group("", auth.RequireRole("staff")))
	filesHandler.RegisterReadRoutes(apiV1.Group("", objectstore.OwnerOrStaff()))

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server start failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
