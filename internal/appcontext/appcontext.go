package appcontext

import (
	"cloud.google.com/go/storage"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/metrics"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/registry"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/staging"
)

type Context struct {
	DB     *gorm.DB
	Logger *zap.Logger

	Registry     *registry.Store
	Staging      staging.Store
	ItemsPerPage int

	GCSClient     *storage.Client
	GCSBucketName string

	// MeilisearchClient is nil when search is disabled.
	MeilisearchClient *meilisearch.Client
	Metrics           *metrics.Metrics

	JWTSecret      []byte
	Environment    string
	AllowedOrigins []string
}
