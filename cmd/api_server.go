package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rm-hull/png-scrubber/internal"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"
)

func NewRouter(c internal.Config, debug bool) (*gin.Engine, error) {
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	r := gin.New()

	// a registry per router, so building more than one never collides
	prometheus := ginprom.New(
		ginprom.Engine(r),
		ginprom.Registry(prom.NewRegistry()),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prometheus.Instrument(),
	)

	if debug {
		slog.Warn("pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	err := healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{
		internal.WritableDirCheck{Dir: c.OutputDir},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize healthcheck: %w", err)
	}

	internal.RegisterRoutes(r, c)
	return r, nil
}

func ApiServer(c internal.Config, debug bool) error {
	internal.StartupInfo(c)

	r, err := NewRouter(c, debug)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", c.Server.Port)
	slog.Info("Starting HTTP API Server", "port", c.Server.Port)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		slog.Error("HTTP API Server failed", "port", c.Server.Port, tint.Err(err))
		return err
	}
	return nil
}
