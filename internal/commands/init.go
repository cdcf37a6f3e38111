package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meterbook-dev/meterbook/internal/config"
	"github.com/meterbook-dev/meterbook/internal/gitops"
	"github.com/meterbook-dev/meterbook/internal/meterchanges"
	"github.com/meterbook-dev/meterbook/internal/model"
	"github.com/meterbook-dev/meterbook/internal/readings"
)

func newInitCommand() *cobra.Command {
	var useGit bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new meterbook data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, useGit, force)
		},
	}

	cmd.Flags().BoolVar(&useGit, "git", true, "initialize a git repository and commit every change")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing "+config.FileName)

	return cmd
}

func runInit(out io.Writer, dir string, useGit, force bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	cfg := config.Default()
	cfg.Dir = dir
	cfg.Git.AutoCommit = useGit

	// Create directory structure.
	dirs := []string{
		filepath.Dir(cfg.Path(cfg.Storage.AuditLog)),
		cfg.Path(cfg.Storage.ImportDir),
		filepath.Join(cfg.Path(cfg.Storage.ImportDir), "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write meterbook.yaml.
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write the data file header unless readings already exist.
	dataPath := cfg.Path(cfg.Storage.DataFile)
	if _, err := os.Stat(dataPath); errors.Is(err, fs.ErrNotExist) {
		store := readings.NewStore(readings.Options{
			Path:             dataPath,
			Delimiter:        cfg.Storage.DelimiterRune(),
			DecimalSeparator: cfg.Storage.DecimalSeparator,
		})
		if err := store.Save(model.NewTable(model.DefaultColumns)); err != nil {
			return fmt.Errorf("writing data file: %w", err)
		}
	}

	// Write the meter change template.
	changesPath := cfg.Path(cfg.Storage.MeterChangesFile)
	if _, err := os.Stat(changesPath); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(changesPath, []byte(meterchanges.Template), 0o644); err != nil {
			return fmt.Errorf("writing meter changes: %w", err)
		}
	}

	// Write .gitignore.
	gitignore := ".env\n*.log\n" + filepath.ToSlash(filepath.Join(cfg.Storage.ImportDir, "processed")) + "/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Write import/.gitkeep.
	if err := os.WriteFile(filepath.Join(cfg.Path(cfg.Storage.ImportDir), ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !useGit {
		fmt.Fprintf(out, "Initialized meterbook data directory at %s\n", dir)
		return nil
	}

	// Initialize git and create initial commit.
	if !gitops.IsRepo(dir) {
		if err := gitops.Init(dir); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
	}

	hash, err := gitops.CommitAll(dir, "init: Initialize meterbook", cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil && !errors.Is(err, gitops.ErrNothingToCommit) {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized meterbook data directory at %s (%s)\n", dir, hash)
	return nil
}
