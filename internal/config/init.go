package config

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/database"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/metrics"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/registry"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/staging"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/utils"
)

func InitContext() (*appcontext.Context, *Settings, error) {
	logger, err := InitLogger()
	if err != nil {
		return nil, nil, err
	}
	LoadEnv(logger)

	settings, err := LoadSettings()
	if err != nil {
		return nil, nil, err
	}

	db, err := InitDB(settings)
	if err != nil {
		return nil, nil, err
	}

	catalog := registry.NewCatalog()
	if err := catalog.Load(context.Background(), db, settings.DatabaseSchema); err != nil {
		return nil, nil, err
	}
	logger.Info("Loaded dataset catalog", zap.Int("datasets", catalog.Len()))

	ctx := &appcontext.Context{
		DB:     db,
		Logger: logger,

		Registry:     registry.NewStore(db, settings.DatabaseSchema, catalog),
		ItemsPerPage: settings.ItemsPerPage,

		GCSBucketName: settings.GCSBucketName,
		Metrics:       metrics.New(),

		JWTSecret:      []byte(settings.JWTSecret),
		Environment:    settings.Environment,
		AllowedOrigins: settings.AllowedOrigins,
	}

	if settings.GCSBucketName != "" {
		gcsClient, err := InitGCSClient(settings.GCSCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		ctx.GCSClient = gcsClient
		ctx.Staging = &staging.GCSStore{Client: gcsClient, Bucket: settings.GCSBucketName}
	} else {
		diskStore, err := staging.NewDiskStore(settings.StagingDir)
		if err != nil {
			return nil, nil, err
		}
		ctx.Staging = diskStore
	}

	if settings.MeilisearchHost != "" {
		meilisearchClient, err := InitMeilisearch(settings.MeilisearchHost, settings.MeilisearchAPIKey)
		if err != nil {
			return nil, nil, err
		}
		ctx.MeilisearchClient = meilisearchClient
	} else {
		logger.Info("MEILISEARCH_HOST not set, dataset search disabled")
	}

	return ctx, settings, nil
}

func InitDB(settings *Settings) (*gorm.DB, error) {
	db, err := database.Open(settings.DatabaseURL, settings.DatabaseSchema, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := registry.Migrate(db, settings.DatabaseSchema); err != nil {
		return nil, err
	}

	return db, nil
}

// LoadEnv loads .env files into the process environment. A missing file is
// not an error; variables already set win.
func LoadEnv(logger *zap.Logger, filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		logger.Warn("No .env file found, using environment variables", zap.Error(err))
	}
}

func InitLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func InitGCSClient(credentialsFile string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
	}
	return client, nil
}

func InitMeilisearch(host, apiKey string) (*meilisearch.Client, error) {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	_, err := client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        utils.SearchIndex,
		PrimaryKey: "id",
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	task, err := client.Index(utils.SearchIndex).UpdateFilterableAttributes(&[]string{
		"type",
		"file_type",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update filterable attributes: %w", err)
	}
	if _, err = client.WaitForTask(task.TaskUID); err != nil {
		return nil, fmt.Errorf("failed to wait for filterable attributes update: %w", err)
	}

	task, err = client.Index(utils.SearchIndex).UpdateSearchableAttributes(&[]string{
		"name",
		"columns",
		"metadata",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update searchable attributes: %w", err)
	}
	if _, err = client.WaitForTask(task.TaskUID); err != nil {
		return nil, fmt.Errorf("failed to wait for searchable attributes update: %w", err)
	}

	return client, nil
}
