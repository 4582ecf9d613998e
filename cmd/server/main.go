package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/maeknit/dashboard/internal/access"
	"github.com/maeknit/dashboard/internal/config"
	"github.com/maeknit/dashboard/internal/db"
	"github.com/maeknit/dashboard/internal/memo"
	"github.com/maeknit/dashboard/internal/metrics"
	"github.com/maeknit/dashboard/internal/migrations"
	"github.com/maeknit/dashboard/internal/seed"
	"github.com/maeknit/dashboard/internal/settings"
)

const memoEntries = 512

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "maeknit",
		Short:         "MaeKnit finance dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
			setupLogging(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := openDatabase(cfg)
				if err != nil {
					return err
				}
				defer database.Close()

				version, err := migrations.Version(database.DB, cfg.DBDriver)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert default settings documents that do not exist yet",
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := openDatabase(cfg)
				if err != nil {
					return err
				}
				defer database.Close()

				stats, err := seed.Run(database, settings.Variants())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, kept %d\n", stats.Inserts, stats.Skipped)
				return nil
			},
		},
		newHashPasswordCmd(),
		newCalcCmd(&cfg),
	)

	return root
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// openDatabase opens the configured database and brings its schema up to
// date.
func openDatabase(cfg config.Config) (*sqlx.DB, error) {
	database, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrations.Up(database.DB, cfg.DBDriver); err != nil {
		database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return database, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.SessionSecret == "" && !cfg.IsDev() {
		return errors.New("SESSION_SECRET is required outside dev")
	}

	accessFile, err := config.LoadAccessFile(cfg.AccessFile)
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	templates, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	gate := access.NewGate(accessFile.Policy())
	srv := &server{
		store:     settings.NewStore(database),
		db:        database,
		gate:      gate,
		sessions:  newSessionManager(cfg.SessionSecret, cfg.SessionTTL, !cfg.IsDev()),
		oauth:     newGoogleProvider(cfg),
		cache:     memo.New(ctx, cfg.RedisAddr, memoEntries),
		metrics:   metrics.New(),
		tables:    accessFile.Tables(),
		templates: templates,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Str("db_driver", cfg.DBDriver).
			Int("allowlist_version", gate.Version()).
			Int("allowlist_size", gate.Len()).
			Bool("google", srv.oauth != nil).
			Bool("guest", gate.Guest().Enabled()).
			Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
