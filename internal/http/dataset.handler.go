package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/pagination"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/presentation"
)

// viewRows is how many rows the dataset view shows.
const viewRows = 100

type datasetSummary struct {
	UUID             string `json:"uuid"`
	OriginalFilename string `json:"original_filename"`
	UploadDate       string `json:"upload_date"`
	Uploaded         string `json:"uploaded"`
}

func GetDatasets(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		datasets, err := ctx.Registry.ListDatasets(c.Request.Context())
		if err != nil {
			respondError(ctx, c, "Failed to get datasets", err)
			return
		}

		summaries := make([]datasetSummary, len(datasets))
		for i, d := range datasets {
			summaries[i] = datasetSummary{
				UUID:             d.UUID,
				OriginalFilename: d.OriginalFilename,
				UploadDate:       d.UploadDate.Format("2006-01-02 15:04:05"),
				Uploaded:         humanize.Time(d.UploadDate),
			}
		}

		c.JSON(http.StatusOK, gin.H{"datasets": summaries})
	}
}

func GetDataset(ctx *appcontext.Context) gin.HandlerFunc {
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

		rows, err := pagination.Head(ctx.Registry.Session(c.Request.Context()), table, table.SelectList(), viewRows)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset rows", err)
			return
		}
		result, err := presentation.ScanTable(rows)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset rows", err)
			return
		}

		sanitized := result.Sanitized()
		c.JSON(http.StatusOK, gin.H{
			"uuid":     dataset.UUID,
			"filename": dataset.OriginalFilename,
			"columns":  sanitized.Columns,
			"rows":     sanitized.Rows,
		})
	}
}

func ManageDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqCtx := c.Request.Context()
		dataset, err := ctx.Registry.GetDataset(reqCtx, c.Param("id"))
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		keys, err := ctx.Registry.ListKeys(reqCtx, dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset keys", err)
			return
		}
		joins, err := ctx.Registry.JoinsFor(reqCtx, dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset joins", err)
			return
		}
		metadata, err := ctx.Registry.ListMetadata(reqCtx, dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset metadata", err)
			return
		}
		transactions, err := ctx.Registry.ListTransactions(reqCtx, dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset transactions", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"uuid":         dataset.UUID,
			"filename":     dataset.OriginalFilename,
			"keys":         keys,
			"joins":        joins,
			"metadata":     metadata,
			"transactions": transactions,
		})
	}
}

func GetDatasetTransactions(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, err := ctx.Registry.GetDataset(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		transactions, err := ctx.Registry.ListTransactions(c.Request.Context(), dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset transactions", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"transactions": transactions})
	}
}

func GetDatasetMetadata(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, err := ctx.Registry.GetDataset(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		metadata, err := ctx.Registry.ListMetadata(c.Request.Context(), dataset.UUID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset metadata", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"metadata": metadata})
	}
}

func AddDatasetMetadata(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.PostForm("key"))
		if key == "" {
			respondError(ctx, c, "Failed to add metadata", fmt.Errorf("%w: missing key", errBadRequest))
			return
		}

		dataset, err := ctx.Registry.GetDataset(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		if _, err := ctx.Registry.AddMetadata(c.Request.Context(), dataset.UUID, key, c.PostForm("value")); err != nil {
			respondError(ctx, c, "Failed to add metadata", err)
			return
		}

		if table, err := ctx.Registry.Table(dataset.UUID); err == nil {
			indexDataset(ctx, c, dataset, table)
		}

		c.Redirect(http.StatusFound, manageLocation(dataset.UUID))
	}
}

func pageParam(c *gin.Context) (int, error) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return 0, fmt.Errorf("%w: page %q is not a number", pagination.ErrInvalidPage, c.Param("page"))
	}
	return page, nil
}

// GetDatasetPage returns one page of a dataset table with the median
// latitude and longitude of the page, when the dataset has such columns.
func GetDatasetPage(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		datasetID := c.Param("id")
		number, err := pageParam(c)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset page", err)
			return
		}
		table, err := ctx.Registry.Table(datasetID)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		session := ctx.Registry.Session(c.Request.Context())
		page, err := pagination.Paginate(session, table, number, ctx.ItemsPerPage)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset page", err)
			return
		}
		rows, err := page.Rows(session, table, table.SelectList())
		if err != nil {
			respondError(ctx, c, "Failed to get dataset page", err)
			return
		}
		result, err := presentation.ScanTable(rows)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset page", err)
			return
		}

		lat, lon := presentation.MedianLatLon(result)
		sanitized := result.Sanitized()

		ctx.Logger.Debug("Served dataset page",
			zap.String("dataset_uuid", datasetID),
			zap.Int("page", page.Number),
			zap.Int("rows", len(sanitized.Rows)))

		c.JSON(http.StatusOK, gin.H{
			"columns":   sanitized.Columns,
			"rows":      sanitized.Rows,
			"page":      page.Number,
			"pageCount": page.PageCount,
			"rowCount":  page.RowCount,
			"lat":       lat,
			"lon":       lon,
		})
	}
}

// GetDatasetGeoJSON returns one page of a dataset as GeoJSON Features.
func GetDatasetGeoJSON(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		number, err := pageParam(c)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset features", err)
			return
		}
		table, err := ctx.Registry.Table(c.Param("id"))
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}
		selectList, err := presentation.FeatureSelectList(table)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset features", err)
			return
		}

		session := ctx.Registry.Session(c.Request.Context())
		page, err := pagination.Paginate(session, table, number, ctx.ItemsPerPage)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset features", err)
			return
		}
		rows, err := page.Rows(session, table, selectList)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset features", err)
			return
		}
		result, err := presentation.ScanTable(rows)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset features", err)
			return
		}

		features, err := presentation.Features(result, table.GeoColumnNames())
		if err != nil {
			respondError(ctx, c, "Failed to get dataset features", err)
			return
		}

		c.JSON(http.StatusOK, features)
	}
}
