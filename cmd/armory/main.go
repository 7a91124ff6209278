package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/user/armory-card/internal/api"
	"github.com/user/armory-card/internal/armory"
	"github.com/user/armory-card/internal/cache"
	"github.com/user/armory-card/internal/command"
	"github.com/user/armory-card/internal/config"
	"github.com/user/armory-card/internal/fetch"
	"github.com/user/armory-card/internal/layout"
	"github.com/user/armory-card/internal/monitoring"
	"github.com/user/armory-card/internal/proxy"
	"github.com/user/armory-card/internal/render"
	"github.com/user/armory-card/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("could not load config", zap.Error(err))
	}

	// Initialize structured logger
	log, err := logger.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("could not build logger", zap.Error(err))
	}
	defer log.Sync()

	// Initialize Monitoring
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	// Initialize Storage Layer
	ctx := context.Background()
	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open cache storage", zap.Error(err))
	}
	defer stores.Close()

	pageCache := cache.NewPageCache(stores.pages, cfg.PageCacheTTL(), metrics, log)
	itemCache := cache.NewItemCache(stores.items, cfg.ItemCacheTTL(), metrics, log)

	// Initialize Proxies and upstream clients
	proxyManager, err := proxy.NewManager(cfg.ProxyList(), cfg.UserAgent)
	if err != nil {
		log.Fatal("invalid proxy list", zap.Error(err))
	}
	pageClient := fetch.NewClient(proxyManager, cfg.AcceptLanguage, cfg.FetchTimeout, metrics, log)
	iconClient := fetch.NewClient(proxyManager, cfg.AcceptLanguage, cfg.IconTimeout, metrics, log)

	var resolver armory.Resolver
	if cfg.EnableItemLookup {
		resolver = armory.NewItemResolver(cfg.ItemURLTemplate, pageClient, itemCache, metrics, log)
	}
	profiles := armory.NewProfileExtractor(cfg.ArmoryBaseURL, pageClient, pageCache, resolver, log)
	talents := armory.NewTalentExtractor(cfg.ArmoryBaseURL, pageClient, pageCache, log)

	// Initialize Rendering
	icons := render.NewIconLoader(iconClient, cfg.IconConcurrency, log)
	var renderer render.Renderer
	switch cfg.RenderBackend {
	case "browser":
		br := render.NewBrowserRenderer(cfg.ChromePath, icons, cfg.RenderTimeout, metrics, log)
		defer br.Close()
		renderer = br
	default:
		renderer = render.NewCanvasRenderer(icons, metrics, log)
	}
	engine := layout.NewEngine(layout.NewFontMeasurer())

	// Initialize Commands
	svc := command.NewService(profiles, talents, engine, renderer, cfg.DefaultRealm, metrics, log)
	deliverer := command.NewWebhookDeliverer(&http.Client{Timeout: 30 * time.Second}, log)
	dispatcher := command.NewDispatcher(svc, deliverer, cfg.CommandWorkers, cfg.CommandQueueSize, cfg.CommandTimeout, log)
	dispatcher.Start()

	// Initialize API Server
	server := api.NewServer(cfg.ServerPort, svc, dispatcher, stores.checks, reg, metrics, log)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()

	log.Info("server started",
		zap.String("port", cfg.ServerPort),
		zap.String("renderer", renderer.Name()),
		zap.String("page_cache", cfg.PageCacheBackend),
		zap.String("item_cache", cfg.ItemCacheBackend),
		zap.Bool("item_lookup", cfg.EnableItemLookup))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	dispatcher.Stop()

	log.Info("server exiting")
}
