package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/query"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

const (
	latestBriefKey = "latest_brief"
	statsKeyPrefix = "stats:"
)

type itemParams struct {
	Platform     string  `form:"platform"`
	Tag          string  `form:"tag"`
	MinHeat      float64 `form:"min_heat"`
	MinPotential float64 `form:"min_potential"`
	From         string  `form:"from"`
	To           string  `form:"to"`
	Limit        int     `form:"limit"`
	Offset       int     `form:"offset"`
}

type topParams struct {
	Kind  string `form:"kind"`
	Days  int    `form:"days"`
	Limit int    `form:"limit"`
}

type daysParams struct {
	Days int `form:"days"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, err error) {
	Logger.Log.WithFields(logrus.Fields{"path": c.FullPath()}).Error("query failed: ", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// cached serves key from the cache when possible, otherwise computes the
// value and stores it. Cache failures only cost the cache.
func (s *Server) cached(c *gin.Context, key string, compute func() (interface{}, error)) {
	ctx := c.Request.Context()
	if s.Cache != nil {
		var raw json.RawMessage
		hit, err := s.Cache.GetJSON(ctx, key, &raw)
		if err != nil {
			Logger.Log.WithField("key", key).Warn("cache read failed: ", err)
		}
		if hit && err == nil {
			c.Header("X-Cache", "hit")
			c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
			return
		}
	}
	value, err := compute()
	if err != nil {
		internalError(c, err)
		return
	}
	if value == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, key, value); err != nil {
			Logger.Log.WithField("key", key).Warn("cache write failed: ", err)
		}
	}
	c.JSON(http.StatusOK, value)
}

// parseBound accepts a date or a RFC3339 time.
func parseBound(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(model.BriefDateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expect YYYY-MM-DD or RFC3339", value)
	}
	return t, nil
}

func (s *Server) ListBriefs(c *gin.Context) {
	briefs, err := s.Reader.ListBriefs(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, briefs)
}

func (s *Server) LatestBrief(c *gin.Context) {
	s.cached(c, latestBriefKey, func() (interface{}, error) {
		brief, err := s.Reader.LatestBrief(c.Request.Context())
		if brief == nil {
			return nil, err
		}
		return brief, err
	})
}

func (s *Server) ListItems(c *gin.Context) {
	var params itemParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	from, err := parseBound(params.From)
	if err != nil {
		badRequest(c, err)
		return
	}
	to, err := parseBound(params.To)
	if err != nil {
		badRequest(c, err)
		return
	}
	items, err := s.Reader.ListItems(c.Request.Context(), query.ItemFilter{
		Platform:     params.Platform,
		Tag:          params.Tag,
		MinHeat:      params.MinHeat,
		MinPotential: params.MinPotential,
		From:         from,
		To:           to,
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) TopItems(c *gin.Context) {
	params := topParams{Kind: model.ScoreKindHeat, Days: 1, Limit: 10}
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	if params.Kind != model.ScoreKindHeat && params.Kind != model.ScoreKindPotential {
		badRequest(c, fmt.Errorf("kind must be %s or %s", model.ScoreKindHeat, model.ScoreKindPotential))
		return
	}
	since := s.Reader.Now().AddDate(0, 0, -params.Days)
	items, err := s.Reader.TopItems(c.Request.Context(), params.Kind, since, params.Limit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) CountsByPlatform(c *gin.Context) {
	s.cached(c, statsKeyPrefix+"platforms", func() (interface{}, error) {
		return s.Reader.CountsByPlatform(c.Request.Context())
	})
}

func (s *Server) CountsByTopic(c *gin.Context) {
	s.cached(c, statsKeyPrefix+"topics", func() (interface{}, error) {
		return s.Reader.CountsByTopic(c.Request.Context())
	})
}

func (s *Server) CountsByDay(c *gin.Context) {
	params := daysParams{Days: 7}
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	s.cached(c, fmt.Sprintf("%sdays:%d", statsKeyPrefix, params.Days), func() (interface{}, error) {
		return s.Reader.CountsByDay(c.Request.Context(), params.Days)
	})
}

func (s *Server) HourlyDistribution(c *gin.Context) {
	params := daysParams{Days: 7}
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	s.cached(c, fmt.Sprintf("%shourly:%d", statsKeyPrefix, params.Days), func() (interface{}, error) {
		return s.Reader.HourlyDistribution(c.Request.Context(), params.Days)
	})
}

func (s *Server) SourceStats(c *gin.Context) {
	stats, err := s.Reader.SourceStats(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type jobParams struct {
	Kind  string `form:"kind"`
	Limit int    `form:"limit"`
}

func (s *Server) JobRuns(c *gin.Context) {
	var params jobParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	runs, err := s.Reader.RecentJobRuns(c.Request.Context(), params.Kind, params.Limit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}
