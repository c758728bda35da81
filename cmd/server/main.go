// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ermakplan-back/internal/auth"
	"ermakplan-back/internal/config"
	"ermakplan-back/internal/database"
	"ermakplan-back/internal/logs"
	"ermakplan-back/internal/realtime"
	"ermakplan-back/internal/server"
	"ermakplan-back/internal/storage"
	"ermakplan-back/internal/worker"
	"ermakplan-back/pkg/email"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const sessionCleanupInterval = time.Hour

var seedFlag bool

var errSeedInProduction = errors.New("demo users cannot be seeded in production")

var rootCmd = &cobra.Command{
	Use:   "ermakplan",
	Short: "ErmakPlan task and project management backend",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := database.MigrateDB(db); err != nil {
			return err
		}
		logs.Log.WithField("driver", cfg.Database.Driver).Info("Database migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin and demo accounts on an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if cfg.IsProduction() {
			return errSeedInProduction
		}
		if err := database.MigrateDB(db); err != nil {
			return err
		}
		return database.SeedDemoUsers(cmd.Context(), db)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().BoolVar(&seedFlag, "seed", false, "seed demo users on an empty database")
	}
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logs.Log.Debug("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateConfig(); err != nil {
		return nil, nil, err
	}
	logs.Init(cfg.Log.Level, cfg.Log.Format)

	db, err := database.InitDB(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logs.Log.WithError(err).Warn("Failed to close database connection")
	}
}

func newMailer(cfg *config.Config) email.Mailer {
	if cfg.Email.TestingMode || cfg.IsDevelopment() {
		logs.Log.Info("Using mock email service for development/testing")
		return email.NewMockMailer()
	}

	logs.Log.WithField("host", cfg.Email.SMTPHost).Info("Using SMTP email service")
	return email.NewSMTPMailer(&email.Config{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromEmail:    cfg.Email.FromEmail,
		FromName:     cfg.Email.FromName,
	})
}

func newStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if !cfg.MinIO.Enabled {
		logs.Log.Warn("MinIO disabled, uploads are kept in memory")
		return storage.NewMemoryStore(), nil
	}
	return storage.NewMinIOClient(ctx, cfg.MinIO)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.MigrateDB(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if seedFlag && cfg.IsProduction() {
		return errSeedInProduction
	}
	if seedFlag || cfg.Server.SeedDemoUsers {
		if err := database.SeedDemoUsers(ctx, db); err != nil {
			return err
		}
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	mailer := newMailer(cfg)
	sessions := auth.NewSessionManager(db, cfg.Session.Secret, cfg.Session.TTL)

	hub := realtime.NewHub(cfg.Realtime.PingInterval, cfg.Server.AllowedOrigins)
	go hub.Run(ctx)
	go worker.NewReminderDispatcher(db, mailer, hub, cfg.Reminders.Interval).Run(ctx)
	go worker.RunSessionCleanup(ctx, sessions, sessionCleanupInterval)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Deps{
		Config:   cfg,
		DB:       db,
		Sessions: sessions,
		Hub:      hub,
		Mailer:   mailer,
		Store:    store,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logs.Log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logs.Log.Info("Server shutdown complete")
	return nil
}
