package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/metrics"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/registry"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/staging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(t *testing.T, db *gorm.DB, schema string) *appcontext.Context {
	t.Helper()
	store, err := staging.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	return &appcontext.Context{
		DB:           db,
		Logger:       zap.NewNop(),
		Registry:     registry.NewStore(db, schema, nil),
		Staging:      store,
		ItemsPerPage: 2,
		Metrics:      metrics.New(),
	}
}

func serve(ctx *appcontext.Context, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewHTTPService(ctx).Engine().ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(fileField, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type storeFileResponse struct {
	UploadID          string               `json:"uploadId"`
	Filename          string               `json:"filename"`
	Columns           []string             `json:"columns"`
	Rows              [][]string           `json:"rows"`
	Datatypes         []inference.DataType `json:"datatypes"`
	PossibleDatatypes []inference.DataType `json:"possibleDatatypes"`
}

func TestStoreFile(t *testing.T) {
	ctx := newTestContext(t, nil, "mircs")

	var csv strings.Builder
	csv.WriteString("A,birth date,place name\n")
	for i := 1; i <= 12; i++ {
		csv.WriteString("1,1901-02-03,Halifax\n")
	}

	rec := serve(ctx, multipartRequest(t, "/api/v1/upload/store", "people.csv", csv.String()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp storeFileResponse
	decode(t, rec, &resp)
	assert.Equal(t, "people.csv", resp.Filename)
	assert.Equal(t, []string{"A", "birth_date", "place_name"}, resp.Columns)
	assert.Len(t, resp.Rows, previewRows)
	assert.Equal(t, []inference.DataType{inference.Integer, inference.DateTime, inference.Text}, resp.Datatypes)
	assert.Equal(t, inference.PossibleTypes(), resp.PossibleDatatypes)

	upload, data, err := ctx.Staging.Get(context.Background(), resp.UploadID)
	require.NoError(t, err)
	assert.Equal(t, "people.csv", upload.Filename)
	assert.True(t, strings.HasPrefix(string(data), "A,birth_date,place_name\n"))
}

func TestStoreFileRejectsBadUploads(t *testing.T) {
	ctx := newTestContext(t, nil, "mircs")

	rec := serve(ctx, multipartRequest(t, "/api/v1/upload/store", "people.txt", "A\n1\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(ctx, multipartRequest(t, "/api/v1/upload/store", "people.csv", "A,A\n1,2\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(ctx, formRequest("/api/v1/upload/store", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTableValidation(t *testing.T) {
	ctx := newTestContext(t, nil, "mircs")

	rec := serve(ctx, formRequest("/api/v1/datasets", url.Values{"datatypes": {"integer"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(ctx, formRequest("/api/v1/datasets", url.Values{
		"upload_id": {staging.NewUpload("x.csv").ID},
		"datatypes": {"integer"},
	}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	upload := staging.NewUpload("people.csv")
	require.NoError(t, ctx.Staging.Put(context.Background(), upload, []byte("A,B\n1,x\n")))

	rec = serve(ctx, formRequest("/api/v1/datasets", url.Values{
		"upload_id": {upload.ID},
		"datatypes": {"integer,decimal"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(ctx, formRequest("/api/v1/datasets", url.Values{
		"upload_id": {upload.ID},
		"datatypes": {"integer"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(ctx, formRequest("/api/v1/datasets", url.Values{
		"upload_id":          {upload.ID},
		"datatypes":          {"integer,text"},
		"geospatial_columns": {"B:CIRCLE"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageAndGeoJSONErrors(t *testing.T) {
	ctx := newTestContext(t, nil, "mircs")
	table, err := materialize.NewTable("mircs", "plain",
		[]string{"A"}, []inference.DataType{inference.Integer}, nil)
	require.NoError(t, err)
	ctx.Registry.Catalog.Register(table)

	rec := serve(ctx, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/missing/pages/0", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(ctx, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/plain/pages/first", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(ctx, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/plain/geojson/0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormsAndServiceEndpoints(t *testing.T) {
	ctx := newTestContext(t, nil, "mircs")

	rec := serve(ctx, httptest.NewRequest(http.MethodGet, "/api/v1/upload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), storeLocation)

	rec = serve(ctx, formRequest("/api/v1/upload", url.Values{}))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, homeLocation, rec.Header().Get("Location"))

	rec = serve(ctx, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=census", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(ctx, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mircs_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(registry.ErrDatasetNotFound))
	assert.Equal(t, http.StatusNotFound, statusFor(staging.ErrUploadNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&materialize.RowError{Row: 1, Column: "A", Value: "x", Err: assert.AnError}))
	assert.Equal(t, http.StatusBadRequest, statusFor(inference.ErrUnknownType))
	assert.Equal(t, http.StatusBadRequest, statusFor(registry.ErrUnknownColumn))
	assert.Equal(t, http.StatusBadRequest, statusFor(registry.ErrEmptyAppend))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
