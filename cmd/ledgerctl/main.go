package main

import (
	"os"

	"hris-timekeeper/internal/shared/apperror"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()

	if err := newRootCmd(openLedger).Execute(); err != nil {
		os.Exit(1)
	}
}
