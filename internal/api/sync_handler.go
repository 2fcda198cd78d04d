package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"LotterySync/internal/config"
	"LotterySync/internal/model"
	"LotterySync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegionTrigger 按需同步并清理缓存（RetrievalService 实现）
type RegionTrigger interface {
	TriggerSync(ctx context.Context, region model.RegionCode, drawDate time.Time) (*service.IngestResult, error)
}

type SyncHandler struct {
	trigger  RegionTrigger
	location *time.Location
	now      func() time.Time
	logger   *logrus.Logger
}

func NewSyncHandler(trigger RegionTrigger, logger *logrus.Logger, cfg *config.Config) *SyncHandler {
	return &SyncHandler{
		trigger:  trigger,
		location: cfg.Watchdog.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

// SyncRegionHandler 同步指定区域某天的开奖
// @Summary 同步区域开奖数据
// @Param region path string true "区域短码（mb/mt/mn）"
// @Param date query string false "开奖日期 YYYY-MM-DD（默认当天）"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /sync/region/{region} [post]
func (h *SyncHandler) SyncRegionHandler(c *gin.Context) {
	region, err := model.ParseRegion(c.Param("region"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	drawDate, err := parseDrawDate(c.Query("date"), h.now().In(h.location))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	result, err := h.trigger.TriggerSync(c.Request.Context(), region, drawDate)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"region": region,
			"date":   drawDate.Format(model.DateLayout),
		}).Error("同步区域开奖失败")
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrTransportFailure) || errors.Is(err, model.ErrStructureNotFound) ||
			errors.Is(err, model.ErrIncompleteResults) || errors.Is(err, model.ErrMalformedRecord) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"region": result.Region,
		"date":   result.DrawDate.Format(model.DateLayout),
		"source": result.Source,
		"run_id": result.RunID,
	}
	if result.Stats != nil {
		resp["draws"] = result.Stats.Draws
		resp["prizes"] = result.Stats.Prizes
		resp["results"] = result.Stats.Results
	}
	c.JSON(http.StatusOK, resp)
}
