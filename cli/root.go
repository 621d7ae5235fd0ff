// Package cli holds the workhours command line: the web server plus the
// database maintenance commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workhours/config"
	"workhours/database"
	"workhours/logging"
)

// App carries what every command needs once configuration is loaded.
type App struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:   "workhours",
		Short: "Track employee working hours",
		Long: `workhours records daily work entries per employee, computes their
duration and reports monthly and yearly totals through a web interface.

CONFIGURATION:
  Settings come from defaults, then the optional YAML file given by
  --config or WORKHOURS_CONFIG, then environment variables. A .env file in
  the working directory is loaded first.

    DATABASE_URL        postgres://... or sqlite://path
    JWT_SECRET          session signing secret (at least 16 characters)
    SERVER_PORT         HTTP port (default: 8080)
    LOG_LEVEL           debug, info, warn, error (default: info)
    LOG_FORMAT          console or json (default: console)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.log != nil {
				_ = app.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", os.Getenv("WORKHOURS_CONFIG"), "Path to a YAML config file (overrides WORKHOURS_CONFIG)")

	root.AddCommand(
		newServeCommand(app),
		newMigrateCommand(app),
		newSeedCommand(app),
		newCreateUserCommand(app),
	)
	return root
}

func (a *App) init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// openStore connects and migrates the database. The returned func closes
// the connection pool.
func (a *App) openStore() (*database.Store, func(), error) {
	db, err := database.Open(a.cfg.DatabaseURL, a.cfg.SQLLogLevel)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if err := database.Migrate(db); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return database.NewStore(db), closeDB, nil
}
