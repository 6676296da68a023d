package curator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/classifier"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

const (
	StateCollecting = "collecting"
	StateRanking    = "ranking"
	StateFinalized  = "finalized"
)

const (
	StatusCreated          = "created"
	StatusRegenerated      = "regenerated"
	StatusExists           = "exists"
	StatusInsufficientData = "insufficient-data"
)

const scoreChunk = 500

// Result is the outcome of one generation. insufficient-data and exists are
// regular outcomes, not errors.
type Result struct {
	Status string
	// Last state reached.
	State  string
	Brief  *model.Brief
	Reason string
}

// Curator turns the scored items of one day into a Brief.
type Curator struct {
	DB     *gorm.DB
	Config Config
	Now    func() time.Time
}

func NewCurator(db *gorm.DB, config Config) *Curator {
	return &Curator{DB: db, Config: config, Now: time.Now}
}

// DefaultDay is yesterday in the configured location.
func (c *Curator) DefaultDay() time.Time {
	start, _ := utils.DayBounds(c.Now(), c.Config.location())
	return start.AddDate(0, 0, -1)
}

// ParseDay parses a YYYY-MM-DD date in the configured location.
func (c *Curator) ParseDay(date string) (time.Time, error) {
	day, err := time.ParseInLocation(model.BriefDateLayout, date, c.Config.location())
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid brief date %q", date)
	}
	return day, nil
}

type generation struct {
	date   string
	state  string
	logger *logrus.Entry
}

func (g *generation) advance(state string) {
	g.state = state
	g.logger.WithField("state", state).Info("brief generation")
}

func (g *generation) insufficient(reason string) *Result {
	g.logger.WithField("reason", reason).Info("insufficient data for brief")
	return &Result{Status: StatusInsufficientData, State: g.state, Reason: reason}
}

// Generate builds the Brief of the calendar day containing day. An existing
// Brief is only replaced when regenerate is set.
func (c *Curator) Generate(ctx context.Context, day time.Time, regenerate bool) (*Result, error) {
	start, end := utils.DayBounds(day, c.Config.location())
	g := &generation{
		date:   start.Format(model.BriefDateLayout),
		logger: Logger.Log.WithFields(logrus.Fields{"brief_date": start.Format(model.BriefDateLayout)}),
	}

	existing, err := c.findBrief(ctx, g.date)
	if err != nil {
		return nil, err
	}
	if existing != nil && !regenerate {
		return &Result{Status: StatusExists, Brief: existing, Reason: "brief already exists"}, nil
	}

	g.advance(StateCollecting)
	var items []*model.Item
	if err := c.DB.WithContext(ctx).
		Where("published_at >= ? AND published_at < ?", start.UTC(), end.UTC()).
		Order("id").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load items of the day")
	}
	scored := []*model.Item{}
	for _, item := range items {
		if item.Scored {
			scored = append(scored, item)
		}
	}
	if len(scored) < c.Config.MinItems {
		return g.insufficient(fmt.Sprintf("%d scored items, need at least %d", len(scored), c.Config.MinItems)), nil
	}
	if len(items) > 0 && float64(len(scored))/float64(len(items)) < c.Config.MinCoverage {
		return g.insufficient(fmt.Sprintf("scoring incomplete: %d of %d items scored", len(scored), len(items))), nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Id)
	}
	topics, err := classifier.DominantTopics(ctx, c.DB, ids)
	if err != nil {
		return nil, err
	}
	candidates, err := c.candidates(ctx, scored, topics)
	if err != nil {
		return nil, err
	}

	g.advance(StateRanking)
	buckets := Bucket(candidates, c.Config)
	stats := Stats(g.date, items, candidates, topics, buckets)
	title := TitlePrefix + g.date
	md, page, err := Render(title, stats, buckets)
	if err != nil {
		return nil, err
	}
	brief, err := newBrief(g.date, title, stats, buckets, md, page)
	if err != nil {
		return nil, err
	}

	if err := c.finalize(ctx, brief, existing, buckets.Selected()); err != nil {
		return nil, err
	}
	g.advance(StateFinalized)

	status := StatusCreated
	if existing != nil {
		status = StatusRegenerated
	}
	g.logger.WithFields(logrus.Fields{
		"status":    status,
		"featured":  len(buckets.Featured),
		"heat_top":  len(buckets.HeatTop),
		"potential": len(buckets.Potential),
	}).Info("brief finalized")
	return &Result{Status: status, State: g.state, Brief: brief}, nil
}

func (c *Curator) findBrief(ctx context.Context, date string) (*model.Brief, error) {
	var briefs []*model.Brief
	if err := c.DB.WithContext(ctx).Preload("Deliveries").
		Where("brief_date = ?", date).Limit(1).Find(&briefs).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load brief")
	}
	if len(briefs) == 0 {
		return nil, nil
	}
	return briefs[0], nil
}

type scoreRow struct {
	ItemId string
	Kind   string
	Value  float64
}

func (c *Curator) candidates(ctx context.Context, items []*model.Item, topics map[string]string) ([]*Candidate, error) {
	scores := map[string]map[string]float64{}
	for start := 0; start < len(items); start += scoreChunk {
		end := start + scoreChunk
		if end > len(items) {
			end = len(items)
		}
		ids := []string{}
		for _, item := range items[start:end] {
			ids = append(ids, item.Id)
		}
		var rows []scoreRow
		if err := c.DB.WithContext(ctx).Model(&model.Score{}).
			Select("item_id, kind, value").
			Where("item_id IN ?", ids).Scan(&rows).Error; err != nil {
			return nil, errors.Wrap(err, "fail to load scores")
		}
		for _, row := range rows {
			if scores[row.ItemId] == nil {
				scores[row.ItemId] = map[string]float64{}
			}
			scores[row.ItemId][row.Kind] = row.Value
		}
	}

	res := make([]*Candidate, 0, len(items))
	for _, item := range items {
		heat := scores[item.Id][model.ScoreKindHeat]
		potential := scores[item.Id][model.ScoreKindPotential]
		res = append(res, &Candidate{
			Item:      item,
			Heat:      heat,
			Potential: potential,
			Composite: c.Config.Composite(heat, potential),
			Topic:     topics[item.Id],
		})
	}
	return res, nil
}

// Stats summarizes the day: every item counts toward platforms and topics,
// averages only cover scored items.
func Stats(date string, items []*model.Item, candidates []*Candidate, topics map[string]string, buckets Buckets) model.BriefStats {
	stats := model.BriefStats{
		Date:      date,
		Total:     len(items),
		Scored:    len(candidates),
		Selected:  len(buckets.Selected()),
		Platforms: map[string]int{},
		Topics:    map[string]int{},
	}
	for _, item := range items {
		stats.Platforms[item.Platform]++
		if topic, ok := topics[item.Id]; ok {
			stats.Topics[topic]++
		}
	}
	if len(candidates) > 0 {
		heats := make([]float64, 0, len(candidates))
		potentials := make([]float64, 0, len(candidates))
		for _, c := range candidates {
			heats = append(heats, c.Heat)
			potentials = append(potentials, c.Potential)
		}
		stats.AvgHeat = stat.Mean(heats, nil)
		stats.AvgPotential = stat.Mean(potentials, nil)
	}
	return stats
}

func newBrief(date, title string, stats model.BriefStats, buckets Buckets, md, page string) (*model.Brief, error) {
	encoded := map[string]datatypes.JSON{}
	for name, value := range map[string]interface{}{
		"featured":  Ids(buckets.Featured),
		"heat_top":  Ids(buckets.HeatTop),
		"potential": Ids(buckets.Potential),
		"stats":     stats,
	} {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to encode brief %s", name)
		}
		encoded[name] = datatypes.JSON(raw)
	}
	return &model.Brief{
		BriefDate:       date,
		Title:           title,
		Status:          model.BriefStatusFinalized,
		FeaturedIds:     encoded["featured"],
		HeatTopIds:      encoded["heat_top"],
		PotentialIds:    encoded["potential"],
		Stats:           encoded["stats"],
		TotalItems:      stats.Total,
		MarkdownContent: md,
		HtmlContent:     page,
	}, nil
}

// finalize persists the brief and the briefed flags atomically. Regeneration
// resets deliveries and clears the flag of items that dropped out.
func (c *Curator) finalize(ctx context.Context, brief *model.Brief, existing *model.Brief, selected []string) error {
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existing == nil {
			brief.Id = uuid.New().String()
			if err := tx.Create(brief).Error; err != nil {
				return errors.Wrap(err, "fail to create brief")
			}
		} else {
			brief.Id = existing.Id
			brief.CreatedAt = existing.CreatedAt
			if err := tx.Model(brief).Select(
				"title", "status", "featured_ids", "heat_top_ids", "potential_ids",
				"stats", "total_items", "markdown_content", "html_content",
			).Updates(brief).Error; err != nil {
				return errors.Wrap(err, "fail to update brief")
			}
			if err := tx.Where("brief_id = ?", existing.Id).Delete(&model.BriefDelivery{}).Error; err != nil {
				return errors.Wrap(err, "fail to reset deliveries")
			}

			stale := []string{}
			for _, id := range existing.Selected() {
				if !utils.ContainsString(selected, id) {
					stale = append(stale, id)
				}
			}
			if len(stale) > 0 {
				if err := tx.Model(&model.Item{}).Where("id IN ?", stale).
					Update("briefed", false).Error; err != nil {
					return errors.Wrap(err, "fail to unmark items")
				}
			}
		}

		if len(selected) == 0 {
			return nil
		}
		if err := tx.Model(&model.Item{}).Where("id IN ?", selected).
			Update("briefed", true).Error; err != nil {
			return errors.Wrap(err, "fail to mark items briefed")
		}
		return nil
	})
	if err != nil {
		return err
	}
	brief.Deliveries = nil
	return nil
}
