package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/pagination"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/presentation"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/registry"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/staging"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/tabular"
)

// errBadRequest marks malformed or missing form fields.
var errBadRequest = errors.New("bad request")

var badRequestErrors = []error{
	errBadRequest,
	tabular.ErrUnsupportedFileType,
	tabular.ErrMalformedFile,
	inference.ErrUnknownType,
	materialize.ErrColumnMismatch,
	materialize.ErrInvalidGeoSpec,
	registry.ErrUnknownColumn,
	registry.ErrUnknownKey,
	registry.ErrEmptyAppend,
	pagination.ErrInvalidPage,
	presentation.ErrNoGeometry,
}

func statusFor(err error) int {
	var rowErr *materialize.RowError
	switch {
	case errors.Is(err, registry.ErrDatasetNotFound), errors.Is(err, staging.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.As(err, &rowErr):
		return http.StatusUnprocessableEntity
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the error response. Client errors carry
// the error text as detail; server errors do not.
func respondError(ctx *appcontext.Context, c *gin.Context, message string, err error) {
	status := statusFor(err)

	fields := []zap.Field{zap.Error(err), zap.Int("status", status)}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("dataset_uuid", id))
	}

	body := gin.H{"error": message}
	if status >= http.StatusInternalServerError {
		ctx.Logger.Error(message, fields...)
	} else {
		ctx.Logger.Warn(message, fields...)
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}
