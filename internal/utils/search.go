package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/entity"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
)

// SearchIndex is the meilisearch index holding one document per dataset.
const SearchIndex = "datasets"

func DatasetToDocument(dataset *entity.Dataset, table *materialize.Table, metadata []entity.Metadata) map[string]interface{} {
	entries := make([]string, len(metadata))
	for i, m := range metadata {
		entries[i] = m.Key + ": " + m.Value
	}

	return map[string]interface{}{
		"id":                 dataset.UUID,
		"type":               "dataset",
		"name":               dataset.OriginalFilename,
		"file_type":          strings.TrimPrefix(strings.ToLower(filepath.Ext(dataset.OriginalFilename)), "."),
		"columns":            table.ColumnNames(),
		"geospatial_columns": table.GeoColumnNames(),
		"metadata":           entries,
		"upload_date":        dataset.UploadDate.Unix(),
	}
}

// IndexDocument adds or replaces a document. It is a no-op when search is
// disabled.
func IndexDocument(ctx *appcontext.Context, document map[string]interface{}) error {
	if ctx.MeilisearchClient == nil {
		return nil
	}
	_, err := ctx.MeilisearchClient.Index(SearchIndex).AddDocuments([]map[string]interface{}{document})
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}
