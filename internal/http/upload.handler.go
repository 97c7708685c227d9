package http

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/entity"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/staging"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/tabular"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/utils"
)

const (
	fileField     = "file"
	previewRows   = 10
	homeLocation  = "/api/v1/datasets"
	storeLocation = "/api/v1/upload/store"
)

var acceptedExtensions = []string{".csv", ".xlsx"}

func manageLocation(datasetID string) string {
	return "/api/v1/datasets/" + datasetID + "/manage"
}

// readUpload parses the multipart file field into a frame with normalized
// column names.
func readUpload(c *gin.Context) (*tabular.Frame, *multipart.FileHeader, error) {
	header, err := c.FormFile(fileField)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing %q file field", errBadRequest, fileField)
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	frame, err := tabular.Read(header.Filename, file)
	if err != nil {
		return nil, nil, err
	}
	frame.NormalizeColumns()
	return frame, header, nil
}

func GetUploadForm(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"action":     storeLocation,
			"field":      fileField,
			"extensions": acceptedExtensions,
		})
	}
}

// SubmitUploadForm is the plain form post of the upload page.
func SubmitUploadForm(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, homeLocation)
	}
}

// StoreFile parses an upload, stages it as CSV and proposes column types.
func StoreFile(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		frame, header, err := readUpload(c)
		if err != nil {
			respondError(ctx, c, "Failed to read uploaded file", err)
			return
		}

		data, err := tabular.EncodeCSV(frame)
		if err != nil {
			respondError(ctx, c, "Failed to encode uploaded file", err)
			return
		}

		upload := staging.NewUpload(header.Filename)
		if err := ctx.Staging.Put(c.Request.Context(), upload, data); err != nil {
			respondError(ctx, c, "Failed to stage uploaded file", err)
			return
		}

		result := inference.Infer(frame)
		ctx.Logger.Info("Staged upload",
			zap.String("upload_id", upload.ID),
			zap.String("filename", upload.Filename),
			zap.Int("rows", frame.Len()))

		c.JSON(http.StatusOK, gin.H{
			"uploadId":          upload.ID,
			"filename":          upload.Filename,
			"columns":           frame.Columns,
			"rows":              frame.Sample(previewRows).Rows,
			"datatypes":         result.Types(),
			"possibleDatatypes": result.Possible,
		})
	}
}

// CreateTable materializes a staged upload with the confirmed column types.
func CreateTable(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		uploadID := c.PostForm("upload_id")
		if uploadID == "" {
			respondError(ctx, c, "Failed to create dataset", fmt.Errorf("%w: missing upload_id", errBadRequest))
			return
		}

		types, err := inference.ParseTypes(c.PostForm("datatypes"))
		if err != nil {
			respondError(ctx, c, "Failed to create dataset", err)
			return
		}
		geo, err := materialize.ParseGeoSpecs(c.PostForm("geospatial_columns"), tabular.NormalizeColumnName)
		if err != nil {
			respondError(ctx, c, "Failed to create dataset", err)
			return
		}

		upload, data, err := ctx.Staging.Get(c.Request.Context(), uploadID)
		if err != nil {
			respondError(ctx, c, "Failed to fetch staged upload", err)
			return
		}
		frame, err := tabular.ReadCSV(bytes.NewReader(data))
		if err != nil {
			respondError(ctx, c, "Failed to read staged upload", err)
			return
		}

		table, err := ctx.Registry.NewTable(frame.Columns, types, geo)
		if err != nil {
			respondError(ctx, c, "Failed to create dataset", err)
			return
		}

		dataset, txn, err := ctx.Registry.CreateDataset(c.Request.Context(), upload.Filename, table, frame)
		if err != nil {
			respondError(ctx, c, "Failed to create dataset", err)
			return
		}

		ctx.Metrics.DatasetsCreated.Inc()
		ctx.Metrics.RowsIngested.WithLabelValues("create").Add(float64(txn.RowsAffected))
		ctx.Logger.Info("Created dataset",
			zap.String("dataset_uuid", dataset.UUID),
			zap.String("filename", dataset.OriginalFilename),
			zap.Int("rows", txn.RowsAffected))

		indexDataset(ctx, c, dataset, table)

		c.Redirect(http.StatusFound, homeLocation)
	}
}

func GetAppendForm(ctx *appcontext.Context) gin.HandlerFunc {
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
			"uuid":       dataset.UUID,
			"filename":   dataset.OriginalFilename,
			"columns":    table.Columns,
			"field":      fileField,
			"extensions": acceptedExtensions,
		})
	}
}

// AppendDataset inserts the rows of an uploaded file into an existing
// dataset. The upload may carry any subset of the dataset's columns.
func AppendDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		datasetID := c.Param("id")
		if _, err := ctx.Registry.GetDataset(c.Request.Context(), datasetID); err != nil {
			respondError(ctx, c, "Failed to get dataset", err)
			return
		}

		frame, _, err := readUpload(c)
		if err != nil {
			respondError(ctx, c, "Failed to read uploaded file", err)
			return
		}

		txn, err := ctx.Registry.AppendRows(c.Request.Context(), datasetID, frame)
		if err != nil {
			respondError(ctx, c, "Failed to append to dataset", err)
			return
		}

		ctx.Metrics.RowsIngested.WithLabelValues("append").Add(float64(txn.RowsAffected))
		ctx.Logger.Info("Appended to dataset",
			zap.String("dataset_uuid", datasetID),
			zap.Int("rows", txn.RowsAffected))

		c.Redirect(http.StatusFound, manageLocation(datasetID))
	}
}

// indexDataset refreshes the search document of a dataset. Search is best
// effort: failures are only logged.
func indexDataset(ctx *appcontext.Context, c *gin.Context, dataset *entity.Dataset, table *materialize.Table) {
	if ctx.MeilisearchClient == nil {
		return
	}

	metadata, err := ctx.Registry.ListMetadata(c.Request.Context(), dataset.UUID)
	if err != nil {
		ctx.Logger.Warn("Failed to list metadata for search", zap.String("dataset_uuid", dataset.UUID), zap.Error(err))
		return
	}

	document := utils.DatasetToDocument(dataset, table, metadata)
	if err := utils.IndexDocument(ctx, document); err != nil {
		ctx.Logger.Warn("Failed to index dataset", zap.String("dataset_uuid", dataset.UUID), zap.Error(err))
	}
}
