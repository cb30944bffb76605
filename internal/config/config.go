package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const propertyPlaceholder = "{property}"

// Config priority: defaults, then the YAML file, then environment variables.
type Config struct {
	PropertyCode string `yaml:"property_code" env:"TOURVISION_PROPERTY"`
	ImageDir     string `yaml:"image_dir" env:"TOURVISION_IMAGE_DIR"`
	OutputDir    string `yaml:"output_dir" env:"TOURVISION_OUTPUT_DIR"`

	Gemini   GeminiConfig   `yaml:"gemini" envPrefix:"GEMINI_"`
	Pipeline PipelineConfig `yaml:"pipeline" envPrefix:"TOURVISION_"`
	Ledger   LedgerConfig   `yaml:"ledger" envPrefix:"TOURVISION_"`
	Server   ServerConfig   `yaml:"server" envPrefix:"TOURVISION_"`
	Log      LogConfig      `yaml:"log" envPrefix:"TOURVISION_LOG_"`
}

type GeminiConfig struct {
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	VisionModel string        `yaml:"vision_model" env:"VISION_MODEL"`
	VideoModel  string        `yaml:"video_model" env:"VIDEO_MODEL"`
	AspectRatio string        `yaml:"aspect_ratio" env:"ASPECT_RATIO"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type PipelineConfig struct {
	TargetDuration   float64       `yaml:"target_duration" env:"TARGET_DURATION"`
	Transition       float64       `yaml:"transition" env:"TRANSITION"`
	ClassifyInterval time.Duration `yaml:"classify_interval" env:"CLASSIFY_INTERVAL"`
	PollInterval     time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	FPS              int           `yaml:"fps" env:"FPS"`
	Codec            string        `yaml:"codec" env:"CODEC"`
	Threads          int           `yaml:"threads" env:"THREADS"`
}

type LedgerConfig struct {
	CSVPath      string `yaml:"csv_path" env:"CSV_PATH"`
	DatabasePath string `yaml:"database_path" env:"DB_PATH"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

func Default() *Config {
	return &Config{
		PropertyCode: "005",
		ImageDir:     "images/" + propertyPlaceholder,
		OutputDir:    "output/" + propertyPlaceholder,
		Gemini: GeminiConfig{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			VisionModel: "gemini-2.0-flash",
			VideoModel:  "veo-3.1-fast-generate-preview",
			AspectRatio: "16:9",
			Timeout:     2 * time.Minute,
		},
		Pipeline: PipelineConfig{
			TargetDuration:   45.0,
			Transition:       1.2,
			ClassifyInterval: time.Second,
			PollInterval:     15 * time.Second,
			FPS:              24,
			Codec:            "libx264",
			Threads:          8,
		},
		Ledger: LedgerConfig{
			CSVPath:      "token_counter.csv",
			DatabasePath: "tourvision.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path (when non-empty) over the defaults and applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.PropertyCode) == "" {
		errs = append(errs, errors.New("property_code is required"))
	}
	if c.Pipeline.TargetDuration <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.target_duration must be positive, got %v", c.Pipeline.TargetDuration))
	}
	if c.Pipeline.Transition < 0 || c.Pipeline.Transition >= c.Pipeline.TargetDuration {
		errs = append(errs, fmt.Errorf("pipeline.transition must be in [0, target_duration), got %v", c.Pipeline.Transition))
	}
	if c.Pipeline.PollInterval <= 0 {
		errs = append(errs, errors.New("pipeline.poll_interval must be positive"))
	}
	if c.Pipeline.ClassifyInterval < 0 {
		errs = append(errs, errors.New("pipeline.classify_interval must not be negative"))
	}
	if c.Pipeline.FPS <= 0 {
		errs = append(errs, errors.New("pipeline.fps must be positive"))
	}
	if c.Ledger.DatabasePath == "" {
		errs = append(errs, errors.New("ledger.database_path is required"))
	}

	return errors.Join(errs...)
}

// RequireAPIKey is checked only by commands that talk to the provider.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return errors.New("GEMINI_API_KEY is not set")
	}
	return nil
}

func (c *Config) ImageDirFor(propertyCode string) string {
	return strings.ReplaceAll(c.ImageDir, propertyPlaceholder, propertyCode)
}

func (c *Config) OutputDirFor(propertyCode string) string {
	return strings.ReplaceAll(c.OutputDir, propertyPlaceholder, propertyCode)
}
