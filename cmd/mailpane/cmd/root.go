// Package cmd implements the mailpane command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mailpane/mailpane/internal/config"
	"github.com/mailpane/mailpane/internal/controller"
	imapclient "github.com/mailpane/mailpane/internal/imap"
	"github.com/mailpane/mailpane/internal/scheduler"
	"github.com/mailpane/mailpane/internal/state"
	"github.com/mailpane/mailpane/internal/tui"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailpane",
	Short: "Terminal email client",
	Long: `mailpane is a terminal email client for a single IMAP inbox.

Running mailpane without a subcommand opens the interactive inbox view.
Set up an account first with 'mailpane add-account'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" {
			return nil
		}

		// Set up logging
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		// Load config (--home is passed through so it influences
		// where config.toml is loaded from, like MAILPANE_HOME).
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Ensure home directory exists on first use
		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.HomeDir, err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient()
		if err != nil {
			return err
		}

		store := state.NewStore(state.AppState{})
		ctrl := controller.New(store, client, controller.WithLogger(logger))
		defer func() { _ = ctrl.Close() }()

		model := tui.New(store, ctrl, tui.Options{
			Version:  Version,
			PageSize: cfg.UI.PageSize,
		})
		p := tea.NewProgram(model, tea.WithAltScreen())

		// Background refresh reloads the inbox on the configured cron
		// schedule and nudges the running program to repaint.
		if cfg.Refresh.Enabled {
			sched := scheduler.New(func(ctx context.Context) error {
				if err := ctrl.LoadInbox(ctx); err != nil {
					return err
				}
				p.Send(tui.ExternalRefreshMsg{})
				return nil
			}).WithLogger(logger)
			if err := sched.Schedule(cfg.Refresh.Schedule); err != nil {
				return fmt.Errorf("schedule refresh: %w", err)
			}
			sched.Start()
			defer func() { <-sched.Stop().Done() }()
		}

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}

		return nil
	},
}

// openClient builds the IMAP client for the configured account using the
// stored password. It does not connect; the TUI signs in on startup.
func openClient() (*imapclient.Client, error) {
	imapCfg := &cfg.IMAP.Config
	if imapCfg.Host == "" || imapCfg.Username == "" {
		return nil, fmt.Errorf("no account configured; run 'mailpane add-account' or edit %s", cfg.ConfigFilePath())
	}

	password, err := imapclient.LoadCredentials(cfg.CredentialsDir(), imapCfg.Identifier())
	if err != nil {
		if errors.Is(err, imapclient.ErrNoCredentials) {
			return nil, fmt.Errorf("no stored password for %s; run 'mailpane add-account'", imapCfg.Identifier())
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	return imapclient.NewClient(imapCfg, password,
		imapclient.WithLogger(logger),
		imapclient.WithRateLimit(cfg.IMAP.RateLimitQPS),
		imapclient.WithFetchLimit(cfg.IMAP.FetchLimit),
	), nil
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.mailpane/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides MAILPANE_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
