package commands

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meterbook-dev/meterbook/internal/auditlog"
	"github.com/meterbook-dev/meterbook/internal/buildinfo"
	"github.com/meterbook-dev/meterbook/internal/catalog"
	"github.com/meterbook-dev/meterbook/internal/config"
	"github.com/meterbook-dev/meterbook/internal/gitops"
	"github.com/meterbook-dev/meterbook/internal/ledger"
	"github.com/meterbook-dev/meterbook/internal/readings"
)

// app carries the state shared by subcommands once the config is loaded.
type app struct {
	dir        string
	configPath string
	cfg        *config.Config
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "meterbook",
		Short:   "Household meter readings with corrections and statistics",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "data directory")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default <dir>/"+config.FileName+")")

	rootCmd.AddCommand(
		newInitCommand(),
		newListCommand(a),
		newAddCommand(a),
		newDeleteCommand(a),
		newHistoryCommand(a),
		newSeriesCommand(a),
		newAggregateCommand(a),
		newStatsCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newServeCommand(a),
	)

	return rootCmd
}

// load reads <dir>/.env and the config file and installs the logger.
func (a *app) load() error {
	dir, err := filepath.Abs(a.dir)
	if err != nil {
		return eris.Wrap(err, "resolving data directory")
	}
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrap(err, "loading .env")
	}

	path := a.configPath
	if path == "" {
		path = filepath.Join(dir, config.FileName)
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}
	if cfg.Dir, err = filepath.Abs(cfg.Dir); err != nil {
		return eris.Wrap(err, "resolving config directory")
	}
	cfg.Log.File = cfg.Path(cfg.Log.File)
	if err := config.InitLogger(cfg.Log); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// ledger wires a ledger.Service from the loaded config.
func (a *app) ledger() *ledger.Service {
	cfg := a.cfg
	opts := ledger.Options{
		Store: readings.NewStore(readings.Options{
			Path:             cfg.Path(cfg.Storage.DataFile),
			Delimiter:        cfg.Storage.DelimiterRune(),
			DecimalSeparator: cfg.Storage.DecimalSeparator,
		}),
		ChangesPath: cfg.Path(cfg.Storage.MeterChangesFile),
		Catalog:     catalog.WithOverrides(cfg.Metrics),
		ImportDir:   cfg.Path(cfg.Storage.ImportDir),
		MinYear:     cfg.Validation.MinYear,
	}
	if cfg.Storage.AuditLog != "" {
		opts.Audit = auditlog.New(cfg.Path(cfg.Storage.AuditLog))
	}
	if cfg.Git.AutoCommit {
		if gitops.IsRepo(cfg.Dir) {
			opts.Committer = gitops.Committer{
				Dir:         cfg.Dir,
				AuthorName:  cfg.Git.AuthorName,
				AuthorEmail: cfg.Git.AuthorEmail,
			}
		} else {
			zap.L().Warn("git.auto_commit is set but the data directory is not a git repository",
				zap.String("dir", cfg.Dir))
		}
	}
	return ledger.NewService(opts)
}
