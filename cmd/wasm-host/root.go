package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/wippyai/wasm-host/capability"
	"github.com/wippyai/wasm-host/config"
	"github.com/wippyai/wasm-host/linker"
	"github.com/wippyai/wasm-host/trigger"
	"github.com/wippyai/wasm-host/wasi/logging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type options struct {
	follow    []string
	logDir    string
	followAll bool
	noLogDir  bool
	verbose   bool
}

func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "wasm-host <app.toml>",
		Short: "Run the WebAssembly components of an application",
		Long: `wasm-host runs every component declared in an application file.

Each component's stdout and stderr are stored in
<log dir>/<component>_stdout.txt and <component>_stderr.txt, every line
prefixed with "[component] ". Components named with --follow are also
mirrored live to this process's stderr.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), &o, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&o.follow, "follow", nil, "Mirror a component's output to stderr (repeatable)")
	flags.BoolVar(&o.followAll, "follow-all", false, "Mirror every component's output to stderr")
	flags.StringVar(&o.logDir, "log-dir", "", "Directory for component logs (default <state dir>/wasm-host/<app>/logs)")
	flags.BoolVar(&o.noLogDir, "no-log-dir", false, "Do not store component output; inherit this process's stdio")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.MarkFlagsMutuallyExclusive("follow", "follow-all")
	cmd.MarkFlagsMutuallyExclusive("log-dir", "no-log-dir")

	return cmd
}

// followSelection applies the flags over the file's selection.
func (o *options) followSelection(cfg *config.Config) trigger.FollowComponents {
	switch {
	case o.followAll:
		return trigger.FollowAll()
	case len(o.follow) > 0:
		return trigger.FollowNamed(o.follow...)
	default:
		return cfg.Follow()
	}
}

// logDirSelection applies the flags over the file's log directory.
func (o *options) logDirSelection(cfg *config.Config) trigger.LogDir {
	switch {
	case o.noLogDir:
		return trigger.NoLogDir()
	case o.logDir != "":
		return trigger.LogDirAt(o.logDir)
	default:
		return cfg.LogDir()
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	return cfg.Build()
}

func setLoggers(l *zap.Logger) {
	capability.SetLogger(l.Named("capability"))
	linker.SetLogger(l.Named("linker"))
	trigger.SetLogger(l.Named("trigger"))
	config.SetLogger(l.Named("config"))
	logging.SetLogger(l.Named("guest"))
}

func run(ctx context.Context, o *options, path string) (err error) {
	logger, err := newLogger(o.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	setLoggers(logger)

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	hooks := trigger.NewStdioHooks(o.followSelection(cfg), o.logDirSelection(cfg),
		trigger.WithLogRoot(trigger.DefaultLogRoot()))

	exec, err := trigger.NewExecutor(ctx, cfg.App(),
		trigger.WithHooks(hooks),
		trigger.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, exec.Close(context.Background()))
	}()

	if dir := hooks.LogDir(); dir != "" {
		logger.Info("storing component output", zap.String("dir", dir))
	}
	return exec.RunAll(ctx)
}
