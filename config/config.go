// Package config loads build settings from YAML.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"tidbyt.dev/gtfsgraph/mode"
	"tidbyt.dev/gtfsgraph/model"
)

// Config controls a graph build.
type Config struct {
	SearchRadiusMeters float64        `yaml:"search_radius_meters" validate:"gt=0"`
	Modes              ModesConfig    `yaml:"modes"`
	Routes             RoutesConfig   `yaml:"routes"`
	TimeWindow         TimeWindow     `yaml:"time_window"`
	Logging            LoggingConfig  `yaml:"logging"`
	Download           DownloadConfig `yaml:"download"`

	// Sort stop_times by trip and stop_sequence before assembly, for
	// feeds that do not keep each trip's rows together.
	SortStopTimes bool `yaml:"sort_stop_times"`
}

// ModesConfig adjusts the route_type to mode table.
type ModesConfig struct {
	Overrides   map[int]string `yaml:"overrides" validate:"dive,keys,gte=0,endkeys,mode"`
	Deactivated []int          `yaml:"deactivated" validate:"dive,gte=0"`
}

// RoutesConfig selects routes by id. A non-empty Include wins over
// Exclude.
type RoutesConfig struct {
	Include []string `yaml:"include" validate:"dive,required"`
	Exclude []string `yaml:"exclude" validate:"dive,required"`
}

// TimeWindow keeps trips whose first departure lies in [Start, End].
type TimeWindow struct {
	Start string `yaml:"start" validate:"omitempty,timeofday"`
	End   string `yaml:"end" validate:"omitempty,timeofday"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

type DownloadConfig struct {
	MaxSizeBytes int           `yaml:"max_size_bytes" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
	CachePath    string        `yaml:"cache_path"`
	CacheTTL     time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

func Default() *Config {
	return &Config{
		SearchRadiusMeters: 20,
		Modes: ModesConfig{
			Overrides: map[int]string{},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Download: DownloadConfig{
			Timeout:  2 * time.Minute,
			CacheTTL: 24 * time.Hour,
		},
	}
}

// Load reads and validates the YAML file at path. Settings absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, err := model.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		_, ok := mode.Parse(fl.Field().String())
		return ok
	})
	return v
}

func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	if (c.TimeWindow.Start == "") != (c.TimeWindow.End == "") {
		return errors.New("invalid config: time window needs both start and end")
	}

	if c.TimeWindow.Start != "" {
		start, _ := model.ParseTimeOfDay(c.TimeWindow.Start)
		end, _ := model.ParseTimeOfDay(c.TimeWindow.End)
		if end < start {
			return errors.Errorf("invalid config: time window ends (%s) before it starts (%s)", end, start)
		}
	}

	return nil
}

// Classifier returns the default route type table with the configured
// overrides and deactivations applied.
func (c *Config) Classifier() *mode.Classifier {
	classifier := mode.NewClassifier()
	for routeType, name := range c.Modes.Overrides {
		m, _ := mode.Parse(name)
		classifier.Override(model.RouteType(routeType), m)
	}
	for _, routeType := range c.Modes.Deactivated {
		classifier.Deactivate(model.RouteType(routeType))
	}
	return classifier
}

// IncludeRoute reports whether routes with id routeID take part in
// the build.
func (c *Config) IncludeRoute(routeID string) bool {
	if len(c.Routes.Include) > 0 {
		for _, id := range c.Routes.Include {
			if id == routeID {
				return true
			}
		}
		return false
	}
	for _, id := range c.Routes.Exclude {
		if id == routeID {
			return false
		}
	}
	return true
}

// DepartureFilter returns nil when no time window is configured.
func (c *Config) DepartureFilter() func(model.TimeOfDay) bool {
	if c.TimeWindow.Start == "" {
		return nil
	}
	start, _ := model.ParseTimeOfDay(c.TimeWindow.Start)
	end, _ := model.ParseTimeOfDay(c.TimeWindow.End)
	return func(t model.TimeOfDay) bool {
		return t >= start && t <= end
	}
}

func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
