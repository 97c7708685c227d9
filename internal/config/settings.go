package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultSchema       = "mircs"
	defaultPort         = "8080"
	defaultItemsPerPage = 100
	defaultStagingDir   = "./media"
)

// Settings is the process configuration read from the environment.
type Settings struct {
	DatabaseURL    string
	DatabaseSchema string
	Port           string

	// ItemsPerPage is the page size used by every paginated endpoint.
	ItemsPerPage int

	StagingDir         string
	GCSBucketName      string
	GCSCredentialsFile string

	MeilisearchHost   string
	MeilisearchAPIKey string

	JWTSecret      string
	Environment    string
	AllowedOrigins []string
}

func LoadSettings() (*Settings, error) {
	return loadSettings(os.Getenv)
}

func loadSettings(getenv func(string) string) (*Settings, error) {
	s := &Settings{
		DatabaseURL:        getenv("DATABASE_URL"),
		DatabaseSchema:     withDefault(getenv("DATABASE_SCHEMA"), defaultSchema),
		Port:               withDefault(getenv("PORT"), defaultPort),
		ItemsPerPage:       defaultItemsPerPage,
		StagingDir:         withDefault(getenv("STAGING_DIR"), defaultStagingDir),
		GCSBucketName:      getenv("GCS_BUCKET_NAME"),
		GCSCredentialsFile: getenv("GCS_CREDENTIALS_FILE"),
		MeilisearchHost:    getenv("MEILISEARCH_HOST"),
		MeilisearchAPIKey:  getenv("MEILISEARCH_API_KEY"),
		JWTSecret:          getenv("JWT_SECRET"),
		Environment:        getenv("ENVIRONMENT"),
	}

	if s.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	if v := getenv("DATASET_ITEMS_PER_PAGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DATASET_ITEMS_PER_PAGE %q: %w", v, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid DATASET_ITEMS_PER_PAGE %d: must be positive", n)
		}
		s.ItemsPerPage = n
	}

	port, err := strconv.Atoi(s.Port)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", s.Port)
	}

	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, origin)
		}
	}

	return s, nil
}

// Addr is the listen address of the HTTP server.
func (s *Settings) Addr() string {
	return ":" + s.Port
}

func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
