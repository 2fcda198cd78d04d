package api

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// NewRouter 注册全部路由；enablePprof 为 true 时挂载 /debug/pprof
func NewRouter(summary *SummaryHandler, sync *SyncHandler, enablePprof bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if enablePprof {
		// 注册ppof 方便调试和监测性能问题
		pprof.Register(r)
	}

	r.GET("/healthz", Healthz)
	r.GET("/privacy_policy", PrivacyPolicy)
	r.GET("/v1/random_numbers", RandomNumbers)
	r.GET("/v1/kqsx/summary", summary.GetSummary)
	r.POST("/sync/region/:region", sync.SyncRegionHandler)
	return r
}
