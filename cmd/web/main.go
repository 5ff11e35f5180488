package main

import (
	"log"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/ZEBDA1/McHess/internal/config"
	"github.com/ZEBDA1/McHess/internal/infra/logger"
	"github.com/ZEBDA1/McHess/internal/server"
)

func main() {
	cfg := config.Load()
	logger.Init()

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	zap.L().Info("api server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		log.Fatalf("failed to run api server: %v", err)
	}
}
