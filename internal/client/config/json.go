package config

import (
	"encoding/json"
	"os"

	"github.com/willnicht/willnicht/internal/flagx"
	"github.com/willnicht/willnicht/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations go
// through timex.Duration; RemoteEnabled is a pointer so an absent key keeps
// the default.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	EvaluatorURL        string         `json:"evaluator_url"`
	DataDir             string         `json:"data_dir"`
	CacheFile           string         `json:"cache_file"`
	RemoteTimeout       timex.Duration `json:"remote_timeout"`
	EvaluatorTimeout    timex.Duration `json:"evaluator_timeout"`
	EvaluatorRate       float64        `json:"evaluator_rate"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RemoteEnabled       *bool          `json:"remote_enabled"`
	PageSize            int            `json:"page_size"`
	UserEmail           string         `json:"user_email"`
	UserLanguage        string         `json:"user_language"`
	MarketplaceLanguage string         `json:"marketplace_language"`
	SourceURL           string         `json:"source_url"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Keys missing from the file leave the current value alone. Read
// and unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.EvaluatorURL, jc.EvaluatorURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.CacheFile, jc.CacheFile)
	setString(&cfg.UserEmail, jc.UserEmail)
	setString(&cfg.UserLanguage, jc.UserLanguage)
	setString(&cfg.MarketplaceLanguage, jc.MarketplaceLanguage)
	setString(&cfg.SourceURL, jc.SourceURL)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.RemoteTimeout.Duration > 0 {
		cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	}
	if jc.EvaluatorTimeout.Duration > 0 {
		cfg.EvaluatorTimeout = jc.EvaluatorTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.EvaluatorRate > 0 {
		cfg.EvaluatorRate = jc.EvaluatorRate
	}
	if jc.PageSize > 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.RemoteEnabled != nil {
		cfg.RemoteEnabled = *jc.RemoteEnabled
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
