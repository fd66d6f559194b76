package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/scanworth/scanworth/internal/api/handlers"
	apimw "github.com/scanworth/scanworth/internal/api/middleware"
	"github.com/scanworth/scanworth/internal/auth"
	"github.com/scanworth/scanworth/internal/config"
	"github.com/scanworth/scanworth/internal/estimator"
	"github.com/scanworth/scanworth/internal/sink"
	"github.com/scanworth/scanworth/internal/source"
	"github.com/scanworth/scanworth/pkg/logger"
)

const defaultEbayTokenURL = "https://api.ebay.com/identity/v1/oauth2/token"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the estimate API server",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	var notes sink.Sink = sink.NewNoopSink()
	if cfg.Sink.Enabled {
		notes = sink.NewWebhookSink(cfg.Sink.URL, sink.WithHeaders(cfg.Sink.Headers))
		log.Info("note sink enabled", "url", cfg.Sink.URL)
	}

	current, sold := buildAdapters(cfg, log)

	est := estimator.New(
		current,
		sold,
		estimator.WithLogger(log),
		estimator.WithCallTimeout(cfg.Estimator.CallTimeout),
		estimator.WithSink(notes),
	)

	var provider estimator.Provider = est
	var cache *estimator.Cached
	if cfg.Estimator.CacheEnabled {
		cache = estimator.NewCached(est, cfg.Estimator.CacheTTL, estimator.WithCacheLogger(log))
		if err := cache.StartSweeper(); err != nil {
			return fmt.Errorf("starting cache sweeper: %w", err)
		}
		provider = cache
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(apimw.Recovery(log))
	e.Use(apimw.RequestLog(log))
	e.Use(apimw.Metrics())

	health := handlers.NewHealthHandler(func() error {
		if len(current) == 0 && len(sold) == 0 {
			return estimator.ErrNoSources
		}
		return nil
	})
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("scanworth API", Version))
	handlers.RegisterEstimateRoutes(api, handlers.NewEstimateHandler(provider))
	handlers.RegisterLogsRoutes(api, handlers.NewLogsHandler(notes))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server",
		"addr", addr,
		"current_sources", len(current),
		"sold_sources", len(sold),
		"cache", cfg.Estimator.CacheEnabled,
	)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	if cache != nil {
		cache.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// buildAdapters assembles the per-branch cascade order from whatever
// credentials are present. Browse leads the current branch with the price
// guide as fallback; the sold branch is Finding alone.
func buildAdapters(cfg *config.Config, log *slog.Logger) (current, sold []source.Adapter) {
	if cfg.Ebay.Configured() {
		tokenURL := cfg.Ebay.TokenURL
		if tokenURL == "" {
			tokenURL = defaultEbayTokenURL
		}
		tokens := auth.NewManager(cfg.Ebay.AppID, cfg.Ebay.CertID, tokenURL)

		limiter := source.NewRateLimiter(
			cfg.Ebay.RateLimit.PerSecond,
			cfg.Ebay.RateLimit.Burst,
			cfg.Ebay.RateLimit.DailyLimit,
		)

		opts := []source.BrowseOption{
			source.WithMarketplace(cfg.Ebay.Marketplace),
			source.WithBrowseRateLimiter(limiter),
		}
		if cfg.Ebay.BrowseURL != "" {
			opts = append(opts, source.WithBrowseURL(cfg.Ebay.BrowseURL))
		}
		if cfg.Ebay.Scope != "" {
			opts = append(opts, source.WithBrowseScope(cfg.Ebay.Scope))
		}

		current = append(current, source.NewBrowseAdapter(tokens, opts...))
		log.Info("source enabled", "source", source.SourceEbayBrowse, "branch", "current")
	}

	if cfg.PriceCharting.Configured() {
		var opts []source.PriceChartingOption
		if cfg.PriceCharting.APIURL != "" {
			opts = append(opts, source.WithPriceChartingURL(cfg.PriceCharting.APIURL))
		}

		current = append(current, source.NewPriceChartingAdapter(cfg.PriceCharting.Token, opts...))
		log.Info("source enabled", "source", source.SourcePriceCharting, "branch", "current")
	}

	if cfg.Ebay.FindingConfigured() {
		var opts []source.FindingOption
		if cfg.Ebay.FindingURL != "" {
			opts = append(opts, source.WithFindingURL(cfg.Ebay.FindingURL))
		}

		sold = append(sold, source.NewFindingAdapter(cfg.Ebay.AppID, opts...))
		log.Info("source enabled", "source", source.SourceEbayFinding, "branch", "sold")
	}

	return current, sold
}
