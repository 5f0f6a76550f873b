package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/glass"
	"pkt.systems/glass/internal/appconfig"
	"pkt.systems/glass/internal/command"
	"pkt.systems/glass/internal/eventbus"
	"pkt.systems/pslog"
)

const stopTimeout = 10 * time.Second

func newRunCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	var headful bool
	cmd := &cobra.Command{
		Use:   "run [url...]",
		Short: "Start the browser host and read commands from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			if headful {
				cfg.Engine.Headless = false
			}
			logger := configuredLogger(pslog.Ctx(cmd.Context()), cfg.Logging.Level)
			ctx, stop := signal.NotifyContext(pslog.ContextWithLogger(cmd.Context(), logger), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			host, err := glass.New(glass.ConfigFromApp(cfg), glass.HostDeps{Logger: logger})
			if err != nil {
				return err
			}
			if err := host.Start(ctx); err != nil {
				_ = host.Stop(context.Background())
				return err
			}
			go func() {
				if err := host.Wait(); err != nil {
					logger.Error("host loop stopped", "err", err)
				}
				stop()
			}()

			out := &syncWriter{w: cmd.OutOrStdout()}
			events, cancelEvents := host.Events().Subscribe(eventbus.AllTabs)
			defer cancelEvents()
			go printEvents(out, events)

			handler := command.NewHandler(host.Service(), out, command.HandlerConfig{
				SearchURL:           cfg.Session.SearchURL,
				DisableAuditLogging: cfg.Logging.DisableAuditTrails,
			})
			for _, arg := range args {
				if _, err := handler.Handle(ctx, "/new "+arg); err != nil {
					logger.Warn("initial tab failed", "input", arg, "err", err)
				}
			}
			consoleErr := runConsole(ctx, handler, cmd.InOrStdin(), out)

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := host.Stop(stopCtx); err != nil {
				return err
			}
			if consoleErr != nil {
				return consoleErr
			}
			return host.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	cmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	return cmd
}

// configuredLogger applies the config log level unless LOG_LEVEL already
// chose one.
func configuredLogger(logger pslog.Logger, level string) pslog.Logger {
	if _, ok := os.LookupEnv("LOG_LEVEL"); ok {
		return logger
	}
	opts, ok := loggerOptions(level)
	if !ok {
		return logger
	}
	return pslog.NewWithOptions(os.Stderr, opts)
}

func loggerOptions(level string) (pslog.Options, bool) {
	opts := pslog.Options{Mode: pslog.ModeConsole}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "info":
		opts.MinLevel = pslog.InfoLevel
	case "warn", "warning":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	default:
		return opts, false
	}
	return opts, true
}
