package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/ticketdep/internal/config"
	"github.com/antigravity-dev/ticketdep/internal/i18n"
	"github.com/antigravity-dev/ticketdep/internal/plugin"
	"github.com/antigravity-dev/ticketdep/internal/store"
)

// errProblems signals that validation problems were already printed.
var errProblems = errors.New("ticket has validation problems")

func configureLogger(w io.Writer, logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

type options struct {
	configPath string
	dev        bool
}

// app holds what every subcommand needs. It is built per invocation.
type app struct {
	cfg       *config.RWMutexManager
	store     *store.SQL
	plugin    *plugin.Plugin
	translate i18n.Translator
	logger    *slog.Logger
}

func openApp(ctx context.Context, cmd *cobra.Command, opts *options) (*app, error) {
	cfgManager, err := config.LoadManager(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := cfgManager.Get()

	logger := configureLogger(cmd.ErrOrStderr(), cfg.General.LogLevel, opts.dev)
	slog.SetDefault(logger)

	translate, err := i18n.New(cfg.General.Locale)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	dsn := cfg.Database.DSN
	if cfg.Database.Driver == "sqlite" {
		dsn = config.ExpandHome(dsn)
	}
	st, err := store.Open(ctx, cfg.Database.Driver, dsn)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "driver", cfg.Database.Driver)

	return &app{
		cfg:       cfgManager,
		store:     st,
		plugin:    plugin.New(cfgManager, st, translate, logger),
		translate: translate,
		logger:    logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp adapts a subcommand body to cobra, opening and closing the app.
func withApp(opts *options, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ticketdep",
		Short: "Manage \"depends on\" relationships between tickets",
		Long: `ticketdep keeps the ticketref custom field of tickets: a list of the
ticket IDs a ticket depends on, separated by spaces or commas.

Examples:
  ticketdep upgrade                          # register the ticketref field
  ticketdep save --summary "Docs" --depends "1, 2"
  ticketdep show 3                           # dependencies and supertickets
  ticketdep referencing 1                    # tickets depending on #1
  ticketdep ready                            # open tickets with closed dependencies`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "ticketdep.toml", "path to config file")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "use text log format (default is JSON)")

	root.AddCommand(
		newUpgradeCmd(opts),
		newSaveCmd(opts),
		newValidateCmd(opts),
		newShowCmd(opts),
		newReferencingCmd(opts),
		newReadyCmd(opts),
		newColumnsCmd(opts),
		newDiffCmd(),
	)
	return root
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errProblems) {
			slog.Error("ticketdep failed", "error", err)
		}
		os.Exit(1)
	}
}
