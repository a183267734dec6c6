package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vidyasagar/journey/internal/app"
	"github.com/vidyasagar/journey/internal/logging"
	"github.com/vidyasagar/journey/internal/storage"
	"github.com/vidyasagar/journey/internal/theme"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	config   string
	theme    string
	dataDir  string
	logLevel string
	fresh    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "journey [path]",
		Short: "journey - session history, reconciled",
		Long: `A terminal session browser over a tiny built-in site. Every move
goes through a chain reconciler that keeps its own ordered history aligned
with the host's, even across restarts and manual location edits.

Examples:
  journey                  # restore the last session
  journey /docs            # restore, then open /docs
  journey --fresh          # start over at the configured start path
  journey --theme nord`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var open string
			if len(args) > 0 {
				open = args[0]
			}
			return runBrowser(cmd, opts, open)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.config, "config", "", "config file (default: user config dir)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory for the database and log")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "color theme ("+strings.Join(theme.List(), ", ")+")")
	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "ignore the saved session")

	cmd.AddCommand(newEntriesCommand(opts))
	cmd.AddCommand(newVisitsCommand(opts))

	return cmd
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*storage.Config, error) {
	cfg, err := storage.LoadConfig(opts.config)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("theme") {
		cfg.Theme = opts.theme
	}
	return cfg, nil
}

func runBrowser(cmd *cobra.Command, opts *rootOptions, open string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if !theme.Set(cfg.Theme) {
		return fmt.Errorf("unknown theme %q (available: %s)", cfg.Theme, strings.Join(theme.List(), ", "))
	}

	logCfg, err := logging.FileConfig(cfg.DataDir, cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := storage.OpenDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := app.New(app.Options{
		StartPath: cfg.StartPath,
		Open:      open,
		Fresh:     opts.fresh,
		PageCache: cfg.PageCache,
		DB:        db,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	final, runErr := p.Run()

	if fm, ok := final.(app.Model); ok {
		m = fm
	}
	if err := m.Close(); err != nil {
		logger.Error("saving session failed", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
