package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := loadSettings(env(map[string]string{"DATABASE_URL": "postgres://localhost/geo"}))
	require.NoError(t, err)

	assert.Equal(t, "mircs", s.DatabaseSchema)
	assert.Equal(t, ":8080", s.Addr())
	assert.Equal(t, 100, s.ItemsPerPage)
	assert.Equal(t, "./media", s.StagingDir)
	assert.Empty(t, s.GCSBucketName)
	assert.Empty(t, s.AllowedOrigins)
	assert.False(t, s.IsProduction())
}

func TestLoadSettingsOverrides(t *testing.T) {
	s, err := loadSettings(env(map[string]string{
		"DATABASE_URL":           "postgres://localhost/geo",
		"DATABASE_SCHEMA":        "geo",
		"PORT":                   "9000",
		"DATASET_ITEMS_PER_PAGE": "25",
		"GCS_BUCKET_NAME":        "uploads",
		"ENVIRONMENT":            "production",
		"ALLOWED_ORIGINS":        "https://a.example, https://b.example,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "geo", s.DatabaseSchema)
	assert.Equal(t, ":9000", s.Addr())
	assert.Equal(t, 25, s.ItemsPerPage)
	assert.Equal(t, "uploads", s.GCSBucketName)
	assert.True(t, s.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins)
}

func TestLoadSettingsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database url": {},
		"non numeric page size": {
			"DATABASE_URL": "postgres://localhost/geo", "DATASET_ITEMS_PER_PAGE": "many",
		},
		"zero page size": {
			"DATABASE_URL": "postgres://localhost/geo", "DATASET_ITEMS_PER_PAGE": "0",
		},
		"bad port": {
			"DATABASE_URL": "postgres://localhost/geo", "PORT": "http",
		},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadSettings(env(values))
			assert.Error(t, err)
		})
	}
}
