package cmd

import (
	"io"

	"github.com/Iron-Ham/postoffice/internal/config"
	"github.com/Iron-Ham/postoffice/internal/errors"
	"github.com/Iron-Ham/postoffice/internal/event"
	"github.com/Iron-Ham/postoffice/internal/loader"
	"github.com/Iron-Ham/postoffice/internal/logging"
	"github.com/spf13/cobra"
)

// runtime is the set of collaborators a command needs, built from the
// effective configuration.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	bus      *event.Bus
	registry *loader.Registry
	loader   *loader.Loader
	mailOut  io.Writer

	eventLogSub string
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.NewLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create logger at %q", cfg.Logging.File)
	}
	logger = logger.WithComponent("cli")

	bus := event.NewBus(logger)
	eventLogSub := bus.SubscribeAll(func(e event.Event) {
		logger.Debug("event", "type", e.EventType())
	})

	mailOut := cmd.OutOrStdout()
	if cfg.Mail.Output == "stderr" {
		mailOut = cmd.ErrOrStderr()
	}

	registry := loader.NewRegistry()
	if err := loader.RegisterBuiltins(registry, mailOut, bus); err != nil {
		_ = logger.Close()
		return nil, err
	}

	l, err := loader.New(
		loader.WithRegistry(registry),
		loader.WithAllowPatterns(cfg.Loader.Allow...),
		loader.WithLogger(logger),
		loader.WithBus(bus),
		loader.WithWatchDebounce(cfg.Loader.WatchDebounce()),
	)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		registry: registry,
		loader:   l,
		mailOut:  mailOut,

		eventLogSub: eventLogSub,
	}, nil
}

func (r *runtime) Close() error {
	r.bus.Unsubscribe(r.eventLogSub)
	if n := r.bus.SubscriptionCount(); n > 0 {
		r.logger.Debug("dropping event subscriptions", "count", n)
		r.bus.Clear()
	}
	return r.logger.Close()
}

// logFailure records err along with its severity and whether its message
// is meant for users.
func (r *runtime) logFailure(msg string, err error, args ...any) {
	args = append(args,
		"error", err.Error(),
		"severity", errors.GetSeverity(err).String(),
		"user_facing", errors.IsUserFacing(err),
	)
	r.logger.Error(msg, args...)
}
