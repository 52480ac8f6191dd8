package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careops/hms/internal/config"
	"github.com/careops/hms/internal/domain/cases"
	"github.com/careops/hms/internal/domain/catalog"
	"github.com/careops/hms/internal/domain/documents"
	"github.com/careops/hms/internal/domain/hospital"
	"github.com/careops/hms/internal/domain/intake"
	"github.com/careops/hms/internal/domain/reports"
	"github.com/careops/hms/internal/domain/user"
	"github.com/careops/hms/internal/platform/auth"
	"github.com/careops/hms/internal/platform/db"
	"github.com/careops/hms/internal/platform/middleware"
	"github.com/careops/hms/internal/platform/recommend"
	"github.com/careops/hms/internal/platform/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital administration API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hospitalCmd())

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

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default: MIGRATIONS_DIR)")
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

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default: MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func hospitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hospital",
		Short: "Manage hospitals",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new hospital",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.PoolFromConfigURL(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			h := &hospital.Hospital{Name: name}
			if err := hospital.NewService(hospital.NewRepo(pool)).Create(ctx, h); err != nil {
				return err
			}
			fmt.Printf("Created hospital %q with id %s\n", h.Name, h.ID)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Hospital name")

	cmd.AddCommand(createCmd)
	return cmd
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

	if statuses, err := db.NewMigrator(pool, cfg.MigrationsDir).Status(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not check migration status")
	} else {
		pending := 0
		for _, s := range statuses {
			if !s.Applied {
				pending++
			}
		}
		if pending > 0 {
			logger.Warn().Int("pending", pending).Msg("schema has pending migrations, run `hms-server migrate up`")
		}
	}

	store, err := newDocStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to initialize document storage")
	}

	recommender := newRecommender(cfg, logger)

	var renderer reports.Renderer
	if cfg.RendererURL != "" {
		renderer = reports.NewHTTPRenderer(cfg.RendererURL)
	}

	var narrator reports.Narrator
	if cfg.NarratorURL != "" {
		narrator = reports.NewHTTPNarrator(cfg.NarratorURL)
		logger.Info().Str("url", cfg.NarratorURL).Msg("report narratives enabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M", "50M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Hospital-ID"},
	}))

	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	e.Use(metrics.Middleware())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", db.HealthHandler(pool))

	// Auth middleware
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("running with development auth, all requests act as admin")
		e.Use(auth.DevMiddleware(cfg.DefaultHospital))
	} else {
		e.Use(auth.Middleware([]byte(cfg.JWTSecret)))
	}

	// Repositories and services
	hospitalSvc := hospital.NewService(hospital.NewRepo(pool))

	registry := user.NewRegistry(user.NewSpecializedRepo(pool))
	userSvc := user.NewService(pool, user.NewRepo(pool), user.NewRoleRepo(pool), registry)

	catalogSvc := catalog.NewService(catalog.NewRefRepo(pool), catalog.NewExamProcedureRepo(pool))
	caseSvc := cases.NewService(pool, cases.NewRepo(pool), userSvc)
	intakeSvc := intake.NewService(pool, intake.NewRepo(pool), userSvc, catalogSvc, caseSvc, recommender)
	documentSvc := documents.NewService(documents.NewRepo(pool), store, caseSvc)
	reportSvc := reports.NewService(reports.NewRepo(pool), caseSvc, userSvc, catalogSvc, store, narrator, renderer)

	// Platform admin routes sit outside the hospital scope; everything
	// else requires a resolved hospital.
	admin := e.Group("/api/v1/admin")
	hospital.NewHandler(hospitalSvc).RegisterRoutes(admin)

	api := e.Group("/api/v1")
	api.Use(db.HospitalMiddleware(hospitalSvc, cfg.DefaultHospital))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	user.NewHandler(userSvc).RegisterRoutes(api)
	cases.NewHandler(caseSvc).RegisterRoutes(api)
	intake.NewHandler(intakeSvc).RegisterRoutes(api)
	documents.NewHandler(documentSvc).RegisterRoutes(api)
	reports.NewHandler(reportSvc).RegisterRoutes(api)

	// Start server with graceful shutdown
	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}

// newDocStore builds the document storage backend selected in config.
func newDocStore(ctx context.Context, cfg *config.Config) (storage.DocStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3(ctx, cfg.S3Bucket, cfg.S3Region)
	case "local":
		return storage.NewLocal(cfg.StorageDir, "/api/v1/documents/raw")
	case "disabled":
		return storage.NewDisabled(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// newRecommender picks the intake recommender: the external model service
// when configured, the keyword classifier otherwise, or nothing at all.
func newRecommender(cfg *config.Config, logger zerolog.Logger) recommend.Recommender {
	if !cfg.RecommenderEnabled {
		logger.Info().Msg("recommender disabled, intake runs without defaults")
		return recommend.Disabled()
	}
	if cfg.RecommenderURL != "" {
		logger.Info().Str("url", cfg.RecommenderURL).Msg("using external recommender")
		return recommend.NewHTTP(cfg.RecommenderURL)
	}
	return recommend.NewRuleClassifier()
}
