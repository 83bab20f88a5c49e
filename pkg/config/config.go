package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"recall-watch/internal/recall_watch/notify"
)

type MongoConfig struct {
	Host       string `yaml:"host"`
	DBName     string `yaml:"dbname"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AuthSource string `yaml:"authSource"`
}

type FeedConfig struct {
	URL     string `yaml:"url"`
	Dataset string `yaml:"dataset"`
	Rows    int    `yaml:"rows"`
}

type FCMConfig struct {
	Endpoint  string `yaml:"endpoint"`
	ServerKey string `yaml:"serverKey"`
}

type ScheduleConfig struct {
	SweepHours      int `yaml:"sweepHours"`
	PurgeHours      int `yaml:"purgeHours"`
	RetentionMonths int `yaml:"retentionMonths"`
}

type Config struct {
	Mongo    MongoConfig    `yaml:"mongo"`
	Feed     FeedConfig     `yaml:"feed"`
	FCM      FCMConfig      `yaml:"fcm"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed.URL == "" {
		c.Feed.URL = "https://data.economie.gouv.fr/api/records/1.0/search/"
	}
	if c.Feed.Dataset == "" {
		c.Feed.Dataset = "rappelconso0"
	}
	if c.Feed.Rows <= 0 {
		c.Feed.Rows = 100
	}
	if c.FCM.Endpoint == "" {
		c.FCM.Endpoint = notify.DefaultEndpoint
	}
	if c.Schedule.SweepHours <= 0 {
		c.Schedule.SweepHours = 6
	}
	if c.Schedule.PurgeHours <= 0 {
		c.Schedule.PurgeHours = 24
	}
	if c.Schedule.RetentionMonths <= 0 {
		c.Schedule.RetentionMonths = 6
	}
}
