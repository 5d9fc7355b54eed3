package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/schmogen/protocol-converter-mvp/internal/logger"
)

var Logger = logger.GetLogger("config")

type LLM struct {
	Model          string        `yaml:"model" validate:"required"`
	VisionModel    string        `yaml:"vision_model" validate:"required"`
	APIKey         string        `yaml:"api_key" validate:"required"`
	BaseURL        string        `yaml:"base_url" validate:"omitempty,url"`
	MaxRetries     int           `yaml:"max_retries" validate:"min=1,max=10"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" validate:"min=0"`
	MaxInputChars  int           `yaml:"max_input_chars" validate:"min=1000"`
}

type Vision struct {
	Enabled bool `yaml:"enabled"`
	DPI     int  `yaml:"dpi" validate:"min=72,max=600"`
}

type Render struct {
	Formats  []string `yaml:"formats" validate:"min=1,dive,oneof=pdf txt"`
	FontSize float64  `yaml:"font_size" validate:"min=6,max=24"`
}

type Batch struct {
	Concurrency int `yaml:"concurrency" validate:"min=1,max=16"`
}

type Flags struct {
	Enabled bool `yaml:"enabled"`
}

type Log struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
	Color bool   `yaml:"color"`
}

// Config drives a batch run. Ruleset is the path to the output contract given
// to the rewriter.
type Config struct {
	InputDir  string `yaml:"input_dir" validate:"required"`
	OutputDir string `yaml:"output_dir" validate:"required"`
	Ruleset   string `yaml:"ruleset" validate:"required"`
	LLM       LLM    `yaml:"llm"`
	Vision    Vision `yaml:"vision"`
	Render    Render `yaml:"render"`
	Batch     Batch  `yaml:"batch"`
	Flags     Flags  `yaml:"flags"`
	Log       Log    `yaml:"log"`
}

func Default() *Config {
	return &Config{
		InputDir:  "input_pdfs",
		OutputDir: "output",
		Ruleset:   "contract.md",
		LLM: LLM{
			Model:          "gpt-4.1-mini",
			VisionModel:    "gpt-4o-mini",
			MaxRetries:     5,
			RetryBaseDelay: 2 * time.Second,
			MaxInputChars:  120_000,
		},
		Vision: Vision{Enabled: true, DPI: 150},
		Render: Render{Formats: []string{"pdf"}, FontSize: 11},
		Batch:  Batch{Concurrency: 2},
		Flags:  Flags{Enabled: true},
		Log:    Log{Color: true},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. An empty path uses defaults and environment only. The result is
// not validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		Logger.Debug("loaded config file", "path", path)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("PROTOCONV_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PROTOCONV_DEBUG: %w", err)
		}
		cfg.Log.Debug = debug
	}
	return nil
}

func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WantsFormat reports whether the renderer should produce the given format.
func (cfg *Config) WantsFormat(format string) bool {
	for _, f := range cfg.Render.Formats {
		if f == format {
			return true
		}
	}
	return false
}
