package app_config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

var platforms = []string{model.PlatformRSS, model.PlatformReddit, model.PlatformX, model.PlatformWeb}

// SourceConfig declares a source in the app config. The source id is derived
// from platform and name, so renaming a source creates a new one.
type SourceConfig struct {
	NAME                   string                 `yaml:"NAME"`
	PLATFORM               string                 `yaml:"PLATFORM"`
	FETCH_INTERVAL_MINUTES int                    `yaml:"FETCH_INTERVAL_MINUTES"`
	INACTIVE               bool                   `yaml:"INACTIVE"`
	PARAMS                 map[string]interface{} `yaml:"PARAMS"`
}

func (s SourceConfig) Validate() error {
	if s.NAME == "" {
		return errors.New("source requires a name")
	}
	if !utils.ContainsString(platforms, s.PLATFORM) {
		return errors.Errorf("source %s has unknown platform %q", s.NAME, s.PLATFORM)
	}
	return nil
}

func (s SourceConfig) SourceId() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.PLATFORM+"://"+s.NAME)).String()
}

func (s SourceConfig) ToSource() (*model.Source, error) {
	params, err := json.Marshal(jsonCompatible(s.PARAMS))
	if err != nil {
		return nil, errors.Wrapf(err, "fail to encode params of source %s", s.NAME)
	}
	interval := s.FETCH_INTERVAL_MINUTES
	if interval <= 0 {
		interval = model.DefaultFetchIntervalMinutes
	}
	return &model.Source{
		Id:                   s.SourceId(),
		Name:                 s.NAME,
		Platform:             s.PLATFORM,
		Config:               datatypes.JSON(params),
		IsActive:             !s.INACTIVE,
		FetchIntervalMinutes: interval,
	}, nil
}

// SyncSources creates the declared sources and updates the declared fields of
// existing ones. Cursor and fetch history are left untouched, sources missing
// from the config are left as they are.
func SyncSources(ctx context.Context, db *gorm.DB, sources []SourceConfig) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range sources {
			source, err := s.ToSource()
			if err != nil {
				return err
			}
			var existing model.Source
			res := tx.Limit(1).Find(&existing, "id = ?", source.Id)
			if res.Error != nil {
				return errors.Wrapf(res.Error, "fail to load source %s", s.NAME)
			}
			if res.RowsAffected == 0 {
				if err := tx.Create(source).Error; err != nil {
					return errors.Wrapf(err, "fail to create source %s", s.NAME)
				}
				// is_active has a db default, a false value is skipped on create.
				if !source.IsActive {
					if err := tx.Model(source).Update("is_active", false).Error; err != nil {
						return errors.Wrapf(err, "fail to deactivate source %s", s.NAME)
					}
				}
				Logger.Log.WithFields(logrus.Fields{"source": source.Id, "name": s.NAME}).Info("source created")
				continue
			}
			// Select forces zero values such as is_active=false to be written.
			if err := tx.Model(&existing).
				Select("name", "platform", "config", "is_active", "fetch_interval_minutes").
				Updates(source).Error; err != nil {
				return errors.Wrapf(err, "fail to update source %s", s.NAME)
			}
		}
		return nil
	})
}

// yaml.v2 decodes nested maps with interface keys, which encoding/json
// refuses.
func jsonCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = jsonCompatible(val)
		}
		return m
	case []interface{}:
		res := make([]interface{}, len(t))
		for i, val := range t {
			res[i] = jsonCompatible(val)
		}
		return res
	default:
		return v
	}
}
