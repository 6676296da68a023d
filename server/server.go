package server

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/Luismorlan/infoflow/query"
	"github.com/Luismorlan/infoflow/server/middlewares"
)

// Cache keeps json encoded responses, *utils.RedisCache satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, out interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
}

type Options struct {
	// Service name reported to the tracer, tracing is off when empty.
	TraceService string
	// Nil disables response caching.
	Cache Cache
	// Defaults to a fresh registry.
	Registry *prometheus.Registry
}

type Server struct {
	Reader *query.Reader
	Cache  Cache
}

// NewRouter builds the read only http api over the query package.
func NewRouter(reader *query.Reader, opts Options) *gin.Engine {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	s := &Server{Reader: reader, Cache: opts.Cache}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	if opts.TraceService != "" {
		router.Use(gintrace.Middleware(opts.TraceService))
	}
	router.Use(middlewares.RequestLogger())
	router.Use(middlewares.Metrics(registry))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	api.GET("/briefs", s.ListBriefs)
	api.GET("/briefs/latest", s.LatestBrief)
	api.GET("/items", s.ListItems)
	api.GET("/items/top", s.TopItems)
	api.GET("/stats/platforms", s.CountsByPlatform)
	api.GET("/stats/topics", s.CountsByTopic)
	api.GET("/stats/days", s.CountsByDay)
	api.GET("/stats/hourly", s.HourlyDistribution)
	api.GET("/sources", s.SourceStats)
	api.GET("/jobs", s.JobRuns)
	return router
}
