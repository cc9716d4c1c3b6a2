package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json" yaml:"json"`
}

// HTTP tunes the upstream client shared by every source.
type HTTP struct {
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec"`
	UserAgent  string `json:"user_agent" yaml:"user_agent"`
}

type Equity struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type Fund struct {
	RealtimeEndpoint string `json:"realtime_endpoint" yaml:"realtime_endpoint"`
	HistoryEndpoint  string `json:"history_endpoint" yaml:"history_endpoint"`
	Referer          string `json:"referer" yaml:"referer"`
}

type Crypto struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// FX configures currency conversion. With Enabled false, prices are always
// returned in their native currency.
type FX struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type Config struct {
	Server Server `json:"server" yaml:"server"`
	Log    Log    `json:"log" yaml:"log"`
	HTTP   HTTP   `json:"http" yaml:"http"`
	Equity Equity `json:"equity" yaml:"equity"`
	Fund   Fund   `json:"fund" yaml:"fund"`
	Crypto Crypto `json:"crypto" yaml:"crypto"`
	FX     FX     `json:"fx" yaml:"fx"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 15},
		Log:    Log{Level: "info"},
		HTTP:   HTTP{TimeoutSec: 10, UserAgent: "Mozilla/5.0"},
		Equity: Equity{Endpoint: "https://query1.finance.yahoo.com"},
		Fund: Fund{
			RealtimeEndpoint: "https://fundgz.1234567.com.cn",
			HistoryEndpoint:  "https://fund.eastmoney.com",
			Referer:          "https://fund.eastmoney.com/",
		},
		Crypto: Crypto{Endpoint: "https://api.coingecko.com"},
		FX:     FX{Enabled: true, Endpoint: "https://open.er-api.com"},
	}
}

// defaultFiles are probed in order when Load is called without a path.
var defaultFiles = []string{"config.json", "config.yaml", "config.yml"}

// Load reads config from path, decoding YAML for .yaml/.yml files and JSON
// otherwise. If path is empty or the file does not exist, it returns defaults.
// Environment variables override individual fields afterwards.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, name := range defaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Server.RequestTimeoutSec < 1 {
		return fmt.Errorf("server.request_timeout_sec must be >= 1, got %d", c.Server.RequestTimeoutSec)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.HTTP.TimeoutSec < 1 {
		return fmt.Errorf("http.timeout_sec must be >= 1, got %d", c.HTTP.TimeoutSec)
	}
	if c.Equity.Endpoint == "" {
		return errors.New("equity.endpoint is required")
	}
	if c.Fund.RealtimeEndpoint == "" {
		return errors.New("fund.realtime_endpoint is required")
	}
	if c.Fund.HistoryEndpoint == "" {
		return errors.New("fund.history_endpoint is required")
	}
	if c.Crypto.Endpoint == "" {
		return errors.New("crypto.endpoint is required")
	}
	if c.FX.Enabled && c.FX.Endpoint == "" {
		return errors.New("fx.endpoint is required when fx.enabled is true")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if b, ok := envBool("LOG_JSON"); ok {
		cfg.Log.JSON = b
	}
	if x, ok := envInt("HTTP_TIMEOUT_SEC"); ok && x > 0 {
		cfg.HTTP.TimeoutSec = x
	}
	if v := os.Getenv("HTTP_USER_AGENT"); v != "" {
		cfg.HTTP.UserAgent = v
	}
	if v := os.Getenv("EQUITY_ENDPOINT"); v != "" {
		cfg.Equity.Endpoint = v
	}
	if v := os.Getenv("FUND_REALTIME_ENDPOINT"); v != "" {
		cfg.Fund.RealtimeEndpoint = v
	}
	if v := os.Getenv("FUND_HISTORY_ENDPOINT"); v != "" {
		cfg.Fund.HistoryEndpoint = v
	}
	if v := os.Getenv("CRYPTO_ENDPOINT"); v != "" {
		cfg.Crypto.Endpoint = v
	}
	if b, ok := envBool("FX_ENABLED"); ok {
		cfg.FX.Enabled = b
	}
	if v := os.Getenv("FX_ENDPOINT"); v != "" {
		cfg.FX.Endpoint = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err != nil {
		return 0, false
	}
	return x, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}
