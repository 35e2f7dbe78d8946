/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ssargent/enod/pkg/catalog"
	"github.com/ssargent/enod/pkg/config"
	"github.com/ssargent/enod/pkg/logging"
	"github.com/ssargent/enod/pkg/store"
)

// app is the state shared by every command of one invocation
type app struct {
	configPath string
	dataDir    string
	logLevel   string
	logJSON    bool

	cfg     *config.Config
	log     *logrus.Logger
	manager *catalog.Manager
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "enod",
		Short: "enod - single-file time-series store",
		Long: `enod stores (time offset, value) samples in compact single-file databases.

A database is referenced either by its file path or by the name or id of a
series registered in the data directory's catalog.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to config file (default: ~/.config/enod/config.yaml)")
	flags.StringVarP(&a.dataDir, "data-dir", "d", "", "Data directory holding the catalog and series files")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(
		newCreateCmd(a),
		newAppendCmd(a),
		newGetCmd(a),
		newHeaderCmd(a),
		newDumpCmd(a),
		newCheckCmd(a),
		newRepairCmd(a),
		newSeriesCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	a.closeAfter(rootCmd)

	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config file, if any, applies flag overrides and builds the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.configPath == "" {
		a.configPath = config.GetDefaultConfigPath()
	}

	a.cfg = config.DefaultConfig()
	if config.ConfigExists(a.configPath) {
		cfg, err := config.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if a.dataDir != "" {
		a.cfg.DataDir = a.dataDir
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}
	if a.logJSON {
		a.cfg.Logging.Structured = true
	}

	var err error
	if a.cfg.Logging.File != "" {
		a.log, err = logging.New(a.cfg.Logging)
	} else {
		a.log, err = logging.NewWithOutput(a.cfg.Logging, cmd.ErrOrStderr())
	}
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	return nil
}

// closeAfter wraps every RunE below cmd so the catalog is closed whether
// or not the command succeeds. Cobra skips post-run hooks on error.
func (a *app) closeAfter(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if closeErr := a.teardown(); err == nil {
				err = closeErr
			}
			return err
		}
	}
	for _, child := range cmd.Commands() {
		a.closeAfter(child)
	}
}

func (a *app) teardown() error {
	if a.manager == nil {
		return nil
	}
	err := a.manager.Close()
	a.manager = nil
	return err
}

// openManager opens the catalog in the data directory on first use
func (a *app) openManager() (*catalog.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}

	manager, err := catalog.NewManager(catalog.ManagerConfig{
		DataDir: a.cfg.DataDir,
		Logger:  a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open data dir %s: %w", a.cfg.DataDir, err)
	}
	a.manager = manager
	return manager, nil
}

// openDB resolves ref to a database. An existing file path wins over a
// series name. The returned release func must be called when done.
func (a *app) openDB(ref string) (*store.PhysicalDB, func(), error) {
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		db, err := store.Load(ref, store.WithLogger(a.log))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", ref, err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close database")
			}
		}, nil
	}

	manager, err := a.openManager()
	if err != nil {
		return nil, nil, err
	}
	_, db, err := manager.Get(ref)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s is neither a database file nor a registered series", ref)
		}
		return nil, nil, err
	}
	// The manager closes its databases on teardown
	return db, func() {}, nil
}

// attachDB is openDB for check and repair: a database whose header cannot be
// read is still returned so CheckFile can classify it.
func (a *app) attachDB(ref string) (*store.PhysicalDB, func(), error) {
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		db := store.Attach(ref, store.WithLogger(a.log))
		return db, func() {
			if err := db.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close database")
			}
		}, nil
	}

	manager, err := a.openManager()
	if err != nil {
		return nil, nil, err
	}
	_, db, release, err := manager.Attach(ref)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s is neither a database file nor a registered series", ref)
		}
		return nil, nil, err
	}
	return db, release, nil
}

// parseTime accepts RFC 3339 or "YYYY-MM-DD hh:mm:ss" in UTC
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateTime, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or \"YYYY-MM-DD hh:mm:ss\"", value)
	}
	return t, nil
}
