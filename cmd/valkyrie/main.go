package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cliplugins "valkyrie/internal/cli_plugins"
	"valkyrie/internal/config"
	"valkyrie/internal/metrics"
	"valkyrie/internal/util/logger/handlers/slogpretty"
	"valkyrie/pkg/cli"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	// Создаем контекст с отменой для graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &cliplugins.App{}

	CLI := cli.NewCLI(ctx, "valkyrie", "Valkyrie peer network node")
	root := CLI.Root()
	configPath := root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.FetchConfigPath(*configPath))
		if err != nil {
			return err
		}

		app.Config = cfg
		app.Log = setupLogger(cfg.Env, logWriter(cfg.LogFile))
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.Metrics = metrics.New(metrics.DefaultNamespace, app.Registry)

		app.Log.Debug("config loaded",
			slog.String("network", cfg.Network.Identifier),
			slog.String("address", cfg.Network.Address),
			slog.Int("port", cfg.Network.Port),
		)
		return nil
	}

	CLI.RegisterPlugin(cliplugins.NewListenCommand(app))
	CLI.RegisterPlugin(cliplugins.NewSendCommand(app))
	CLI.RegisterPlugin(cliplugins.NewJournalCommand(app))

	if err := CLI.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// logWriter rotates the log file when one is configured.
func logWriter(path string) io.Writer {
	if path == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
}

func setupLogger(env string, writer io.Writer) *slog.Logger {

	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(writer)
	case envDev:
		log = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return log
}

func setupPrettySlog(writer io.Writer) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(writer)

	return slog.New(handler)
}
