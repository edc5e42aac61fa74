package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	CMS    CMSConfig    `mapstructure:"cms"`
	Cron   CronConfig   `mapstructure:"cron"`
	Event  EventConfig  `mapstructure:"event"`
	Feed   FeedConfig   `mapstructure:"feed"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// CMSConfig describes the outbound connection to the Drupal JSON:API.
type CMSConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxConnections int           `mapstructure:"max_connections"`
	Locale         string        `mapstructure:"locale"`
}

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	UpstreamProbe string `mapstructure:"upstream_probe"`
}

// EventConfig carries the static blocks embedded in the extended feed.
type EventConfig struct {
	Title        string        `mapstructure:"title"`
	Description  string        `mapstructure:"description"`
	WebURL       string        `mapstructure:"web_url"`
	FBURL        string        `mapstructure:"fb_url"`
	FloorPlan    []FloorFigure `mapstructure:"floor_plan"`
	FeedbackForm FeedbackForm  `mapstructure:"feedback_form"`
}

type FloorFigure struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Image       string `mapstructure:"image"`
}

type FeedbackForm struct {
	Enabled     bool   `mapstructure:"enabled"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Image       string `mapstructure:"image"`
	Link        string `mapstructure:"link"`
}

type FeedConfig struct {
	// Timezone the extended feed rewrites timestamps into.
	Timezone string `mapstructure:"timezone"`
	// Rooms that host parallel tracks; matched against the resolved
	// location label, including any parenthesized description.
	ParallelRooms []string `mapstructure:"parallel_rooms"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("cms.base_url", "https://slavcon.sk")
	v.SetDefault("cms.request_timeout", "20s")
	v.SetDefault("cms.connect_timeout", "20s")
	v.SetDefault("cms.max_connections", 100)
	v.SetDefault("cms.locale", "sk")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.upstream_probe", "@every 5m")
	v.SetDefault("feed.timezone", "Europe/Bratislava")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
