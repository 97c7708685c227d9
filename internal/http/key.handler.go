package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/utils"
)

// keyColumns reads the "columns" form field, either repeated or as a comma
// separated list.
func keyColumns(c *gin.Context) []string {
	var columns []string
	for _, value := range c.PostFormArray("columns") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				columns = append(columns, name)
			}
		}
	}
	return columns
}

func GetAddKeyForm(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, err := ctx.Registry.GetDataset(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}
		table, err := ctx.Registry.Table(dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset schema", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"uuid":     dataset.UUID,
			"filename": dataset.OriginalFilename,
			"columns":  append([]string{materialize.IDColumn}, table.ColumnNames()...),
		})
	}
}

func GetDatasetKeys(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, err := ctx.Registry.GetDataset(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		keys, err := ctx.Registry.ListKeys(c.Request.Context(), dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset keys", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"keys": keys})
	}
}

// AddDatasetKey creates an index over the posted columns, authored by the
// bearer of the request token.
func AddDatasetKey(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		columns := keyColumns(c)
		if len(columns) == 0 {
			respondError(ctx, c, "Failed to add dataset key", fmt.Errorf("%w: no columns selected", errBadRequest))
			return
		}

		datasetID := c.Param("id")
		if _, err := ctx.Registry.GetDataset(c.Request.Context(), datasetID); err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		key, err := ctx.Registry.CreateKey(c.Request.Context(), datasetID, columns, utils.GetAuthorFromClaims(c))
		if err != nil {
			respondError(ctx, c, "Failed to add dataset key", err)
			return
		}

		ctx.Logger.Info("Created dataset key",
			zap.String("dataset_uuid", datasetID),
			zap.String("constraint_name", key.ConstraintName),
			zap.String("author", key.ConstraintAuthor))

		c.Redirect(http.StatusFound, manageLocation(datasetID))
	}
}
