package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/config"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/http"
)

func main() {
	ctx, settings, err := config.InitContext()
	if err != nil {
		log.Fatalf("Failed to initialize context: %v", err)
	}

	defer func() {
		if err := ctx.Logger.Sync(); err != nil {
			fmt.Printf("Failed to sync logger: %v\n", err)
		}
	}()

	sqlDB, err := ctx.DB.DB()
	if err != nil {
		ctx.Logger.Fatal("Failed to get underlying SQL DB from GORM DB", zap.Error(err))
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			ctx.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	service := http.NewHTTPService(ctx)

	ctx.Logger.Info("Starting server", zap.String("addr", settings.Addr()))
	if err := service.Engine().Run(settings.Addr()); err != nil {
		ctx.Logger.Fatal("Failed to start the server", zap.Error(err))
	}
}
