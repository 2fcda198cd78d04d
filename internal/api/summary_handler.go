package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"LotterySync/internal/config"
	"LotterySync/internal/model"
	"LotterySync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DrawResolver 带回退窗口的查询（RetrievalService 实现）
type DrawResolver interface {
	Resolve(ctx context.Context, requested time.Time, regions []model.RegionCode, window int) (*service.Resolution, error)
}

// LotterySummaryResponse /v1/kqsx/summary 响应
type LotterySummaryResponse struct {
	RequestedDate      string              `json:"requested_date"`
	Date               string              `json:"date"`
	Region             string              `json:"region"`
	RegionLabel        string              `json:"region_label"`
	Draws              []model.DrawSummary `json:"draws"`
	SummaryText        string              `json:"summary_text"`
	FallbackOffsetDays int                 `json:"fallback_offset_days"`
}

type SummaryHandler struct {
	resolver DrawResolver
	window   int
	location *time.Location
	now      func() time.Time
	logger   *logrus.Logger
}

func NewSummaryHandler(resolver DrawResolver, logger *logrus.Logger, cfg *config.Config) *SummaryHandler {
	return &SummaryHandler{
		resolver: resolver,
		window:   cfg.Retrieval.FallbackDays,
		location: cfg.Watchdog.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

// GetSummary 开奖汇总
// GET /v1/kqsx/summary?date=2024-01-01&region=mn
// date 缺省为当天，region 缺省为全部区域；当天无数据时按 fallback_days 往前回退
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	requested, err := parseDrawDate(c.Query("date"), h.now().In(h.location))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var region model.RegionCode
	var regions []model.RegionCode
	if raw := strings.TrimSpace(c.Query("region")); raw != "" {
		region, err = model.ParseRegion(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		regions = []model.RegionCode{region}
	}

	res, err := h.resolver.Resolve(c.Request.Context(), requested, regions, h.window)
	if err != nil {
		h.writeError(c, err)
		return
	}

	draws := res.Summaries()
	regionValue := "all"
	if region != "" {
		regionValue = string(region)
	}
	c.JSON(http.StatusOK, LotterySummaryResponse{
		RequestedDate:      res.RequestedDate.Format(model.DateLayout),
		Date:               res.Date.Format(model.DateLayout),
		Region:             regionValue,
		RegionLabel:        service.RegionTitle(region),
		Draws:              draws,
		SummaryText:        service.RenderSummaryText(res.Date, region, draws),
		FallbackOffsetDays: res.Offset,
	})
}

func (h *SummaryHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": model.ErrNotFound.Message})
		return
	}
	h.logger.WithError(err).Error("GetSummary failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// parseDrawDate 解析 YYYY-MM-DD，空串取 today 所在日期
func parseDrawDate(raw string, today time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.DateOnly(today), nil
	}
	t, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("Invalid date format, expected YYYY-MM-DD.")
	}
	return t, nil
}
