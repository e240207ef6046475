package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Backend string

const (
	BackendCLI     Backend = "cli"
	BackendLibrary Backend = "library"
)

type Config struct {
	HTTPAddr string

	// Engine
	EnginePath string // declared override; empty means discover
	Lang       string
	Backend    Backend
	OCRTimeout time.Duration

	// Bounds
	MaxUploadBytes int64
	MaxImagePixels int64
	ScratchDir     string // parent dir for per-request workspaces; "" = os.TempDir()

	CORSOrigins []string

	// Event log (off when driver is empty)
	EventLogDriver string // sqlite|postgres
	EventLogDSN    string
}

// fileConfig mirrors Config for OCR_CONFIG_FILE. Zero values are ignored.
type fileConfig struct {
	Port           int      `yaml:"port"`
	EnginePath     string   `yaml:"engine_path"`
	Lang           string   `yaml:"lang"`
	Backend        string   `yaml:"backend"`
	OCRTimeout     string   `yaml:"ocr_timeout"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	MaxImagePixels int64    `yaml:"max_image_pixels"`
	ScratchDir     string   `yaml:"scratch_dir"`
	CORSOrigins    []string `yaml:"cors_origins"`
	EventLog       struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"event_log"`
}

func Defaults() Config {
	return Config{
		HTTPAddr:       ":5000",
		Lang:           "eng",
		Backend:        BackendCLI,
		OCRTimeout:     30 * time.Second,
		MaxUploadBytes: 10 << 20,
		MaxImagePixels: 50_000_000,
		CORSOrigins:    []string{"http://localhost:3000"},
	}
}

// FromEnv builds the config from defaults, then OCR_CONFIG_FILE (if set),
// then environment variables.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("OCR_CONFIG_FILE"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.EnginePath = envOr("OCR_ENGINE_PATH", cfg.EnginePath)
	cfg.Lang = envOr("OCR_LANG", cfg.Lang)
	cfg.Backend = Backend(strings.ToLower(envOr("OCR_BACKEND", string(cfg.Backend))))
	cfg.OCRTimeout = envDuration("OCR_TIMEOUT", cfg.OCRTimeout)
	cfg.MaxUploadBytes = envInt("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxImagePixels = envInt("MAX_IMAGE_PIXELS", cfg.MaxImagePixels)
	cfg.ScratchDir = envOr("SCRATCH_DIR", cfg.ScratchDir)
	if os.Getenv("CORS_ORIGINS") != "" {
		cfg.CORSOrigins = csvOr("CORS_ORIGINS", "")
	}
	cfg.EventLogDriver = envOr("EVENT_LOG_DRIVER", cfg.EventLogDriver)
	cfg.EventLogDSN = envOr("EVENT_LOG_DSN", cfg.EventLogDSN)

	return cfg, cfg.Validate()
}

// LoadFile overlays a YAML config file onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if fc.Port > 0 {
		cfg.HTTPAddr = ":" + strconv.Itoa(fc.Port)
	}
	if fc.EnginePath != "" {
		cfg.EnginePath = fc.EnginePath
	}
	if fc.Lang != "" {
		cfg.Lang = fc.Lang
	}
	if fc.Backend != "" {
		cfg.Backend = Backend(strings.ToLower(fc.Backend))
	}
	if fc.OCRTimeout != "" {
		d, err := time.ParseDuration(fc.OCRTimeout)
		if err != nil {
			return fmt.Errorf("config: ocr_timeout: %w", err)
		}
		cfg.OCRTimeout = d
	}
	if fc.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.MaxImagePixels > 0 {
		cfg.MaxImagePixels = fc.MaxImagePixels
	}
	if fc.ScratchDir != "" {
		cfg.ScratchDir = fc.ScratchDir
	}
	if len(fc.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	if fc.EventLog.Driver != "" {
		cfg.EventLogDriver = fc.EventLog.Driver
	}
	if fc.EventLog.DSN != "" {
		cfg.EventLogDSN = fc.EventLog.DSN
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendCLI, BackendLibrary:
	default:
		return fmt.Errorf("config: unsupported OCR_BACKEND %q", c.Backend)
	}
	if c.OCRTimeout <= 0 {
		return fmt.Errorf("config: OCR_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	switch c.EventLogDriver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported EVENT_LOG_DRIVER %q", c.EventLogDriver)
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare integers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
