package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/biolink/internal/app"
	"github.com/patric-chuzhbe/biolink/internal/logger"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		logger.Log.Errorw("server stopped with error", zap.Error(err))
		return err
	}

	return nil
}

func main() {
	fmt.Printf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}
