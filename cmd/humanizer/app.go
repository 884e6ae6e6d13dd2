package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/humanizer/internal/backend"
	"github.com/nao1215/humanizer/internal/config"
	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/log"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/observability"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/report"
	"github.com/nao1215/humanizer/internal/resident"
	"github.com/nao1215/humanizer/internal/segment"
	"github.com/nao1215/humanizer/internal/service"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the flush of the tracer provider on exit.
const shutdownTimeout = 5 * time.Second

// app holds the components shared by every command that talks to models.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	svc      *service.Service
	client   *backend.Client
	history  *database.HistoryDB
	shutdown observability.ShutdownFunc
}

// newApp loads the configuration for cmd, applies adjust, and wires the
// service. The caller must call close.
func newApp(ctx context.Context, cmd *cobra.Command, adjust ...func(*config.Config)) (*app, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(cfg)
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
	if cfg.ConfigFilePath != "" {
		logger.Debug("loaded configuration file", "path", cfg.ConfigFilePath)
	}

	a := &app{cfg: cfg, logger: logger}
	a.shutdown, err = observability.Setup(ctx, observability.Options{
		ServiceName: config.AppName,
		Version:     getVersion(),
		Endpoint:    cfg.OTLPEndpoint,
		Headers:     cfg.OTLPHeaders,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := a.wire(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg := a.cfg

	reg, err := registry.New(registry.DefaultCatalog(),
		registry.WithGoals(registry.DefaultGoals()),
		registry.WithGoals(cfg.Goals),
	)
	if err != nil {
		return fmt.Errorf("invalid goals configuration: %w", err)
	}

	if cfg.BackendURL != "" || len(cfg.Endpoints) > 0 {
		a.client, err = backend.NewClient(cfg.BackendURL,
			backend.WithProxy(cfg.ProxyAddress),
			backend.WithAPIKey(cfg.APIKey),
			backend.WithTimeout(cfg.BackendTimeout),
			backend.WithEndpoints(cfg.Endpoints),
			backend.WithLogger(a.logger),
		)
		if err != nil {
			return fmt.Errorf("failed to create backend client: %w", err)
		}
	} else {
		a.logger.Debug("no backend configured, only built-in models are available")
	}

	provider := backend.NewProvider(reg, a.client)
	state := resident.New(provider.Loader(),
		resident.WithInitialGenerator(cfg.InitialModel),
		resident.WithLogger(a.logger),
	)

	opts := []service.Option{
		service.WithLimits(service.Limits{
			MinDetect:   cfg.MinDetectLength,
			MaxDetect:   cfg.MaxDetectLength,
			MinHumanize: cfg.MinHumanizeLength,
			MaxHumanize: cfg.MaxHumanizeLength,
		}),
		service.WithThreshold(cfg.Threshold),
		service.WithDetectors(cfg.Detectors),
		service.WithSegmentOptions(segment.Options{
			Granularity: model.Granularity(cfg.Granularity),
			MinLength:   cfg.MinSegmentLength,
			ChunkSize:   cfg.ChunkSize,
		}),
		service.WithWeights(cfg.Weights),
		service.WithDetectTimeout(cfg.DetectTimeout),
		service.WithGenerateTimeout(cfg.GenerateTimeout),
		service.WithLogger(a.logger),
	}
	if a.client != nil {
		opts = append(opts, service.WithPinger(a.client))
	}
	if cfg.HistoryEnabled() {
		a.history, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		a.logger.Debug("recording history", "path", a.history.Path())
		opts = append(opts, service.WithHistory(a.history))
	}

	a.svc = service.New(reg, provider, state, opts...)
	return nil
}

// close releases the history database and flushes traces.
func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("failed to close history database", "error", err)
		}
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.shutdown(ctx) //nolint:errcheck // logged by the shutdown func
	}
}

// buildConfig layers command line flags over the loaded configuration.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(stringFlag(cmd, "config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.BackendURL = stringFlag(cmd, "backend")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = stringFlag(cmd, "log-format")
	}
	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}
	if flags.Changed("history-dir") {
		cfg.DBDir = stringFlag(cmd, "history-dir")
	} else if boolFlag(cmd, "history") && cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	if flags.Changed("threshold") {
		if cfg.Threshold, err = flags.GetFloat64("threshold"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("granularity") {
		cfg.Granularity = stringFlag(cmd, "granularity")
	}
	if flags.Changed("min-length") {
		if cfg.MinSegmentLength, err = flags.GetInt("min-length"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("chunk-size") {
		if cfg.ChunkSize, err = flags.GetInt("chunk-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("listen") {
		cfg.ListenAddress = stringFlag(cmd, "listen")
	}
	if flags.Changed("cors-origin") {
		if cfg.CORSOrigins, err = flags.GetStringSlice("cors-origin"); err != nil {
			return nil, err
		}
	}

	cfg.JSONReport = boolFlag(cmd, "json")
	cfg.MarkdownReport = boolFlag(cmd, "markdown")
	cfg.ReportFile = stringFlag(cmd, "output")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringFlag returns the value of a string flag, or "" when cmd does not
// define it.
func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// boolFlag returns the value of a bool flag, or false when cmd does not
// define it.
func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return v
}

// getVerboseFlag gets the verbose flag from the command or its root.
func getVerboseFlag(cmd *cobra.Command) bool {
	if v, err := cmd.Flags().GetBool("verbose"); err == nil {
		return v
	}
	if v, err := cmd.Root().PersistentFlags().GetBool("verbose"); err == nil {
		return v
	}
	return false
}

// addReportFlags registers the output format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Output the result as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Output the result as Markdown")
	cmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// outputReport writes a result with the writer selected by the report
// flags, to the report file or the command output.
func (a *app) outputReport(cmd *cobra.Command, write func(report.Writer) (int, error)) (err error) {
	out := cmd.OutOrStdout()
	if a.cfg.ReportFile != "" {
		f, closeFile, ferr := createReportFile(a.cfg.ReportFile)
		if ferr != nil {
			return ferr
		}
		defer func() {
			err = errors.Join(err, closeFile())
		}()
		out = f
	}

	if _, err := write(newReportWriter(out, a.cfg)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if a.cfg.ReportFile != "" {
		a.logger.Info("report saved", "file", a.cfg.ReportFile)
	}
	return nil
}

func newReportWriter(out io.Writer, cfg *config.Config) report.Writer {
	format := report.FormatFor(cfg.JSONReport, cfg.MarkdownReport)
	if format == report.FormatText {
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	return report.New(out, format)
}

func createReportFile(path string) (io.Writer, func() error, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
