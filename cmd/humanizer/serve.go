package main

import (
	"github.com/gin-gonic/gin"
	"github.com/nao1215/humanizer/internal/config"
	"github.com/nao1215/humanizer/internal/httpserver"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the detection and humanization API over HTTP",
		Long: `Serve starts the JSON API on --listen. Models are served by the inference
backend; the built-in detector and rewriters are always available.

Endpoints:
  GET  /healthz
  GET  /v1/models                 POST /v1/models/load
  POST /v1/detect                 POST /v1/detect/segments
  POST /v1/highlight
  POST /v1/paraphrase             POST /v1/rewrite
  POST /v1/refine                 POST /v1/synonym
  POST /v1/pipeline               POST /v1/humanize
  POST /v1/humanize/verify
  GET  /v1/history/runs           GET  /v1/history/runs/:id
  GET  /v1/history/detections

Examples:
  humanizer serve
  humanizer serve --listen :8080 --backend http://gpu-host:8000 --history`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress, "Address of the HTTP API")
	cmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origin; repeat for each (default: all)")
	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	if h, err := a.svc.Health(ctx); err == nil && h.Status != "ok" {
		a.logger.Warn("backend is not reachable, only built-in models will work",
			"backend", a.cfg.BackendURL, "error", h.BackendError)
	}

	srv := httpserver.New(a.svc,
		httpserver.WithLogger(a.logger),
		httpserver.WithAddress(a.cfg.ListenAddress),
		httpserver.WithCORSOrigins(a.cfg.CORSOrigins),
		httpserver.WithShutdownTimeout(a.cfg.ShutdownTimeout),
		httpserver.WithVersion(getVersion()),
	)
	return srv.Run(ctx)
}
