package main

import (
	"context"

	"hris-timekeeper/internal/app"
	"hris-timekeeper/internal/bootstrap"
	"hris-timekeeper/internal/shared/apperror"
	"hris-timekeeper/internal/shared/config"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	// build dependency + routes
	application, err := app.BuildApp(cfg, logger)
	if err != nil {
		logger.Fatal("build app failed", zap.Error(err))
	}
	defer application.Close()

	ctx, stop := bootstrap.SignalContext(context.Background())
	defer stop()

	if err := bootstrap.RunHTTPServer(
		ctx,
		application.Router,
		bootstrap.DefaultServerConfig(cfg.Port),
		bootstrap.NewZapAuditLogger(logger),
	); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}
}
