package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/utils"
)

// SearchDatasets searches dataset filenames, columns and metadata. A
// "csv:" or "xlsx:" prefix restricts the file type.
func SearchDatasets(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctx.MeilisearchClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not enabled"})
			return
		}

		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search query"})
			return
		}

		filter := "type = dataset"
		switch {
		case strings.HasPrefix(query, "csv:"):
			filter += " AND file_type = csv"
			query = strings.TrimPrefix(query, "csv:")
		case strings.HasPrefix(query, "xlsx:"):
			filter += " AND file_type = xlsx"
			query = strings.TrimPrefix(query, "xlsx:")
		}

		searchResult, err := ctx.MeilisearchClient.Index(utils.SearchIndex).Search(query, &meilisearch.SearchRequest{
			Query:  query,
			Filter: filter,
		})
		if err != nil {
			ctx.Logger.Error("Failed to perform search", zap.Error(err), zap.String("query", query))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to perform search"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"results": searchResult.Hits})
	}
}
