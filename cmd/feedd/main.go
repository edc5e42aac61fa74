package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"confeed/internal/client/cms"
	"confeed/internal/config"
	cronrunner "confeed/internal/cron"
	"confeed/internal/handler"
	"confeed/internal/logger"
	"confeed/internal/schedule"
)

func main() {
	cfgPath := os.Getenv("CONFEED_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CONFEED_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	location, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		logger.Fatal("invalid feed timezone", zap.String("timezone", cfg.Feed.Timezone), zap.Error(err))
	}

	cmsClient := cms.New(cfg.CMS)
	loader := &schedule.Loader{CMS: cmsClient}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	upstream := &handler.UpstreamStatus{}
	healthHandler := &handler.HealthHandler{CMS: cmsClient, Status: upstream}
	healthHandler.Register(engine)

	feedHandler := &handler.FeedHandler{
		Loader:        loader,
		Event:         cfg.Event,
		ParallelRooms: cfg.Feed.ParallelRooms,
		Location:      location,
		Logger:        logger,
	}
	feedHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add(cfg.Cron.UpstreamProbe, func(ctx context.Context) {
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := cmsClient.Ping(probeCtx)
			upstream.Set(err)
			if err != nil {
				logger.Warn("cms probe failed", zap.Error(err))
				return
			}
			logger.Debug("cms probe ok")
		})
		if err != nil {
			logger.Warn("cron register cms probe failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
