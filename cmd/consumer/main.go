package main

import (
	"leave-portal/internal/app"
	"leave-portal/internal/config"
	"leave-portal/internal/shared/apperror"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var envFile string
	pflag.StringVarP(&envFile, "env", "e", ".env", "Path to the .env file")
	pflag.Parse()

	_ = godotenv.Load(envFile)
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()

	if err := app.RunConsumer(cfg); err != nil {
		logger.Fatal("run consumer failed", zap.Error(err))
	}
}
