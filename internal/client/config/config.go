package config

import "time"

// Config holds runtime settings for the Willnicht client.
//
// Durations are time.Duration values; the JSON loader accepts "10s" style
// strings for them.
type Config struct {
	ServerURL           string
	EvaluatorURL        string
	DataDir             string
	CacheFile           string
	RemoteTimeout       time.Duration
	EvaluatorTimeout    time.Duration
	EvaluatorRate       float64
	OnlineCheckInterval time.Duration
	RemoteEnabled       bool
	PageSize            int

	UserEmail           string
	UserLanguage        string
	MarketplaceLanguage string
	SourceURL           string

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.EvaluatorURL = ""
	c.DataDir = ".willnicht"
	c.CacheFile = "willnicht.db"
	c.RemoteTimeout = 10 * time.Second
	c.EvaluatorTimeout = 60 * time.Second
	c.EvaluatorRate = 1
	c.OnlineCheckInterval = 3 * time.Second
	c.RemoteEnabled = true
	c.PageSize = 50
	c.UserEmail = "user@example.com"
	c.UserLanguage = "Russian"
	c.MarketplaceLanguage = "German"
	c.SourceURL = "https://www.willnicht.com/app#form1"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
