package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/appcontext"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/entity"
)

type joinCandidate struct {
	UUID             string              `json:"uuid"`
	OriginalFilename string              `json:"original_filename"`
	Keys             []entity.DatasetKey `json:"keys"`
}

// GetJoinForm lists the keys of the dataset and every other dataset with
// its keys.
func GetJoinForm(ctx *appcontext.Context) gin.HandlerFunc {
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

		datasets, err := ctx.Registry.ListDatasets(reqCtx)
		if err != nil {
			respondError(ctx, c, "Failed to get datasets", err)
			return
		}

		candidates := make([]joinCandidate, 0, len(datasets))
		for _, d := range datasets {
			if d.UUID == dataset.UUID {
				continue
			}
			otherKeys, err := ctx.Registry.ListKeys(reqCtx, d.UUID)
			if err != nil {
				respondError(ctx, c, "Failed to get dataset keys", err)
				return
			}
			candidates = append(candidates, joinCandidate{
				UUID:             d.UUID,
				OriginalFilename: d.OriginalFilename,
				Keys:             otherKeys,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"uuid":     dataset.UUID,
			"filename": dataset.OriginalFilename,
			"keys":     keys,
			"datasets": candidates,
		})
	}
}

// JoinDatasets records a join from the dataset in the path to the posted
// dataset2 through the posted keys.
func JoinDatasets(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		datasetID := c.Param("id")
		join := entity.DatasetJoin{
			Dataset1UUID: datasetID,
			Dataset2UUID: strings.TrimSpace(c.PostForm("dataset2")),
			Index1Name:   strings.TrimSpace(c.PostForm("index1")),
			Index2Name:   strings.TrimSpace(c.PostForm("index2")),
		}
		if join.Dataset2UUID == "" {
			respondError(ctx, c, "Failed to join datasets", fmt.Errorf("%w: missing dataset2", errBadRequest))
			return
		}

		if err := ctx.Registry.CreateJoin(c.Request.Context(), join); err != nil {
			respondError(ctx, c, "Failed to join datasets", err)
			return
		}

		ctx.Logger.Info("Joined datasets",
			zap.String("dataset_uuid", join.Dataset1UUID),
			zap.String("joined_uuid", join.Dataset2UUID))

		c.Redirect(http.StatusFound, manageLocation(datasetID))
	}
}
