package http

import (
	"github.com/gin-gonic/gin"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/http/middleware"
)

type APIService struct {
	engine  *gin.Engine
	context *appcontext.Context
}

func NewHTTPService(ctx *appcontext.Context) *APIService {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.MetricsMiddleware(ctx.Metrics))
	engine.Use(middleware.CORSMiddleware(ctx.Environment, ctx.AllowedOrigins))

	service := &APIService{
		engine:  engine,
		context: ctx,
	}
	service.setupRoutes()
	return service
}

func (h *APIService) Engine() *gin.Engine {
	return h.engine
}

func (h *APIService) setupRoutes() {
	v1 := h.engine.Group("/api/v1")
	v1.Use(middleware.OptionalJWTMiddleware(h.context.JWTSecret))
	h.setupUploadRoutes(v1)
	h.setupDatasetRoutes(v1)
	h.setupSearchRoutes(v1)

	h.engine.GET("/metrics", gin.WrapH(h.context.Metrics.Handler()))
}

func (h *APIService) setupUploadRoutes(group *gin.RouterGroup) {
	upload := group.Group("/upload")

	upload.GET("", GetUploadForm(h.context))
	upload.POST("", SubmitUploadForm(h.context))
	upload.POST("/store", StoreFile(h.context))
}

func (h *APIService) setupDatasetRoutes(group *gin.RouterGroup) {
	datasets := group.Group("/datasets")

	datasets.GET("", GetDatasets(h.context))
	datasets.POST("", CreateTable(h.context))
	datasets.GET("/:id", GetDataset(h.context))
	datasets.GET("/:id/manage", ManageDataset(h.context))

	datasets.GET("/:id/append", GetAppendForm(h.context))
	datasets.POST("/:id/append", AppendDataset(h.context))

	datasets.GET("/:id/keys", GetDatasetKeys(h.context))
	datasets.GET("/:id/keys/new", GetAddKeyForm(h.context))
	datasets.POST("/:id/keys", AddDatasetKey(h.context))

	datasets.GET("/:id/join", GetJoinForm(h.context))
	datasets.POST("/:id/join", JoinDatasets(h.context))

	datasets.GET("/:id/metadata", GetDatasetMetadata(h.context))
	datasets.POST("/:id/metadata", AddDatasetMetadata(h.context))
	datasets.GET("/:id/transactions", GetDatasetTransactions(h.context))

	datasets.GET("/:id/pages/:page", GetDatasetPage(h.context))
	datasets.GET("/:id/geojson/:page", GetDatasetGeoJSON(h.context))
}

func (h *APIService) setupSearchRoutes(group *gin.RouterGroup) {
	group.GET("/search", SearchDatasets(h.context))
}
