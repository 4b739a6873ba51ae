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

	ctx, stop := bootstrap.SignalContext(context.Background())
	defer stop()

	if err := app.RunWorker(ctx, cfg); err != nil {
		logger.Fatal("run worker failed", zap.Error(err))
	}
}
