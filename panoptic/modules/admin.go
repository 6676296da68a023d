package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Luismorlan/infoflow/server/middlewares"
)

// NewAdminRouter exposes scheduler status and controls of a running panoptic
// engine, plus its metrics.
func NewAdminRouter(s *Scheduler, registry *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestLogger())
	router.Use(middlewares.Metrics(registry))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/jobs", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})
	router.POST("/jobs/:name/pause", jobAction(s.Pause))
	router.POST("/jobs/:name/resume", jobAction(s.Resume))
	router.POST("/jobs/:name/trigger", jobAction(s.Trigger))
	return router
}

func jobAction(action func(name string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := action(name); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": name})
	}
}
