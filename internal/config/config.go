// Package config resolves the service configuration from defaults, an
// optional YAML file, and environment overrides, in that order. Every
// threshold the scanning pipeline depends on lives here so recalibration
// against new sample photos never needs a code change.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cardfolio/cardscan/internal/detect"
	"github.com/cardfolio/cardscan/internal/lookup"
	"github.com/cardfolio/cardscan/internal/ocr"
	"github.com/cardfolio/cardscan/internal/scan"
)

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP bind address, host:port.
	Listen string `yaml:"listen"`

	Engine EngineConfig `yaml:"engine"`
	Scan   ScanConfig   `yaml:"scan"`
	Lookup LookupConfig `yaml:"lookup"`
}

// EngineConfig selects and tunes the recognition backend.
type EngineConfig struct {
	// Backend is "tesseract" or "rekognition".
	Backend string `yaml:"backend"`

	// Language is the Tesseract language code.
	Language string `yaml:"language"`

	// Region is the AWS region for Rekognition. Empty defers to the SDK
	// resolution chain.
	Region string `yaml:"region"`
}

// ScanConfig carries the pipeline tunables. The variance and score
// thresholds are empirical; treat them as starting points, not truths.
type ScanConfig struct {
	CanonicalWidth  int `yaml:"canonical_width"`
	CanonicalHeight int `yaml:"canonical_height"`

	MaxDetectSize int             `yaml:"max_detect_size"`
	Presets       []detect.Preset `yaml:"presets"`
	AspectMin     float64         `yaml:"aspect_min"`
	AspectMax     float64         `yaml:"aspect_max"`

	TitleTop    float64 `yaml:"title_top"`
	TitleBottom float64 `yaml:"title_bottom"`
	TitleLeft   float64 `yaml:"title_left"`
	TitleRight  float64 `yaml:"title_right"`

	UpscaleFactor int `yaml:"upscale_factor"`

	EarlyExitScore          int `yaml:"early_exit_score"`
	RecognizeTimeoutSeconds int `yaml:"recognize_timeout_seconds"`

	GridRows      int     `yaml:"grid_rows"`
	GridCols      int     `yaml:"grid_cols"`
	CellPadding   int     `yaml:"cell_padding"`
	EmptyVariance float64 `yaml:"empty_variance"`
	Workers       int     `yaml:"workers"`
}

// LookupConfig tunes the Scryfall resolution client.
type LookupConfig struct {
	// Enabled turns name resolution on; recognition still works without
	// it, returning raw names only.
	Enabled bool `yaml:"enabled"`

	RequestsPerSecond float64 `yaml:"requests_per_second"`
	CacheSize         int     `yaml:"cache_size"`
}

// Default returns the configuration the service runs with when no file and
// no environment overrides are present.
func Default() Config {
	sc := scan.DefaultOptions()
	lk := lookup.DefaultOptions()

	return Config{
		Listen: ":8085",
		Engine: EngineConfig{
			Backend:  ocr.BackendTesseract,
			Language: ocr.DefaultLanguage,
		},
		Scan: ScanConfig{
			CanonicalWidth:          sc.CanonicalWidth,
			CanonicalHeight:         sc.CanonicalHeight,
			MaxDetectSize:           sc.Detect.MaxDetectSize,
			Presets:                 sc.Detect.Presets,
			AspectMin:               sc.Detect.AspectMin,
			AspectMax:               sc.Detect.AspectMax,
			TitleTop:                sc.Prep.TitleTop,
			TitleBottom:             sc.Prep.TitleBottom,
			TitleLeft:               sc.Prep.TitleLeft,
			TitleRight:              sc.Prep.TitleRight,
			UpscaleFactor:           sc.Prep.UpscaleFactor,
			EarlyExitScore:          sc.EarlyExitScore,
			RecognizeTimeoutSeconds: int(sc.RecognizeTimeout.Seconds()),
			GridRows:                sc.GridRows,
			GridCols:                sc.GridCols,
			CellPadding:             sc.CellPadding,
			EmptyVariance:           sc.EmptyVariance,
			Workers:                 sc.Workers,
		},
		Lookup: LookupConfig{
			Enabled:           true,
			RequestsPerSecond: lk.RequestsPerSecond,
			CacheSize:         lk.CacheSize,
		},
	}
}

// Load resolves the configuration: defaults, then the YAML file at path if
// one is given, then environment variables. A missing file at an
// explicitly given path is an error; path "" skips the file step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Engine.Backend != ocr.BackendTesseract && cfg.Engine.Backend != ocr.BackendRekognition {
		return Config{}, fmt.Errorf("unknown recognition backend %q", cfg.Engine.Backend)
	}
	return cfg, nil
}

// applyEnv layers environment overrides on top of cfg. Only the knobs an
// operator plausibly changes per deployment have variables; the geometric
// tunables stay file-only.
func applyEnv(cfg *Config) {
	cfg.Listen = getEnv("CARDSCAN_LISTEN", cfg.Listen)
	cfg.Engine.Backend = getEnv("CARDSCAN_ENGINE", cfg.Engine.Backend)
	cfg.Engine.Language = getEnv("CARDSCAN_TESSERACT_LANG", cfg.Engine.Language)
	cfg.Engine.Region = getEnv("AWS_REGION", cfg.Engine.Region)

	cfg.Scan.Workers = getEnvInt("CARDSCAN_WORKERS", cfg.Scan.Workers)
	cfg.Scan.EarlyExitScore = getEnvInt("CARDSCAN_EARLY_EXIT_SCORE", cfg.Scan.EarlyExitScore)
	cfg.Scan.EmptyVariance = getEnvFloat("CARDSCAN_EMPTY_VARIANCE", cfg.Scan.EmptyVariance)
	cfg.Scan.RecognizeTimeoutSeconds = getEnvInt("CARDSCAN_RECOGNIZE_TIMEOUT", cfg.Scan.RecognizeTimeoutSeconds)

	if v, ok := os.LookupEnv("CARDSCAN_LOOKUP"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Lookup.Enabled = b
		}
	}
}

// ScanOptions maps the configuration onto the pipeline option set.
func (c Config) ScanOptions() scan.Options {
	opts := scan.DefaultOptions()

	opts.CanonicalWidth = c.Scan.CanonicalWidth
	opts.CanonicalHeight = c.Scan.CanonicalHeight

	opts.Detect.MaxDetectSize = c.Scan.MaxDetectSize
	if len(c.Scan.Presets) > 0 {
		opts.Detect.Presets = c.Scan.Presets
	}
	opts.Detect.AspectMin = c.Scan.AspectMin
	opts.Detect.AspectMax = c.Scan.AspectMax

	opts.Prep.TitleTop = c.Scan.TitleTop
	opts.Prep.TitleBottom = c.Scan.TitleBottom
	opts.Prep.TitleLeft = c.Scan.TitleLeft
	opts.Prep.TitleRight = c.Scan.TitleRight
	opts.Prep.UpscaleFactor = c.Scan.UpscaleFactor

	opts.EarlyExitScore = c.Scan.EarlyExitScore
	opts.RecognizeTimeout = secondsToDuration(c.Scan.RecognizeTimeoutSeconds)

	opts.GridRows = c.Scan.GridRows
	opts.GridCols = c.Scan.GridCols
	opts.CellPadding = c.Scan.CellPadding
	opts.EmptyVariance = c.Scan.EmptyVariance
	opts.Workers = c.Scan.Workers

	return opts
}

// EngineOptions maps the configuration onto backend construction settings.
func (c Config) EngineOptions() ocr.Options {
	return ocr.Options{
		Language: c.Engine.Language,
		Region:   c.Engine.Region,
	}
}

// LookupOptions maps the configuration onto the lookup client settings.
func (c Config) LookupOptions() lookup.Options {
	return lookup.Options{
		RequestsPerSecond: c.Lookup.RequestsPerSecond,
		CacheSize:         c.Lookup.CacheSize,
	}
}

func secondsToDuration(s int) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s) * time.Second
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
