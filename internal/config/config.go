package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env         string                   `yaml:"env"`
	ShortCode   ShortCode                `yaml:"short_code"`
	Durations   map[string]time.Duration `yaml:"durations"`
	SweepChance float64                  `yaml:"sweep_chance"`
	HTTPServer  `yaml:"http_server"`
	SQLite      `yaml:"sqlite"`
	RateLimit   `yaml:"rate_limit"`
}

// ShortCode controls how generated codes look.
type ShortCode struct {
	Length   int    `yaml:"length"`
	Alphabet string `yaml:"alphabet"`
}

var defaultShortCode = ShortCode{
	Length:   6,
	Alphabet: "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type SQLite struct {
	Path string `yaml:"path"`
}

var defaultSQLite = SQLite{
	Path: "urls.db",
}

// RateLimit carries the per-route rate-limit policy strings, in the
// "200/day;50/hour;10/minute" form.
type RateLimit struct {
	Default  string `yaml:"default"`
	Create   string `yaml:"create"`
	Redirect string `yaml:"redirect"`
}

var defaultRateLimit = RateLimit{
	Default:  "200/day;50/hour;10/minute",
	Create:   "5/minute",
	Redirect: "10/minute",
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.ShortCode = defaultShortCode
	cfg.Durations = map[string]time.Duration{
		"24h": 24 * time.Hour,
		"48h": 48 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	cfg.SweepChance = 0.1
	cfg.HTTPServer = defaultHTTPServer
	cfg.SQLite = defaultSQLite
	cfg.RateLimit = defaultRateLimit
}
