package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/config"
	"github.com/cory-johannsen/crawl/internal/game/engine"
	"github.com/cory-johannsen/crawl/internal/game/world"
	"github.com/cory-johannsen/crawl/internal/observability"
)

type options struct {
	configPath string
	seed       uint64
	logLevel   string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "crawlsim",
		Short:         "Exercise the crawl decision and combat engine",
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file (defaults apply when empty)")
	root.PersistentFlags().Uint64Var(&opts.seed, "seed", 0, "override combat.seed for reproducible rolls")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newValidateCmd(opts), newArenaCmd(opts), newRunCmd(opts))
	return root
}

func (o *options) load() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return config.Config{}, err
	}
	if o.seed != 0 {
		cfg.Combat.Seed = o.seed
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// start loads configuration and builds a logger and engine. The caller must
// call the returned stop func.
func (o *options) start() (*engine.Engine, *zap.Logger, func(), error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	eng, err := engine.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	stop := func() {
		eng.Close()
		_ = logger.Sync()
	}
	return eng, logger, stop, nil
}

// writerLog prints player messages to a writer, one per line.
type writerLog struct {
	out io.Writer
}

func (l writerLog) AddMessage(text string, severity world.Severity) {
	fmt.Fprintf(l.out, "[%s] %s\n", severity, text)
}

// messageLog prints player messages to out and mirrors them into the log stream.
func messageLog(out io.Writer, logger *zap.Logger) world.MessageLog {
	return observability.Tee{writerLog{out: out}, observability.NewMessageSink(logger)}
}
