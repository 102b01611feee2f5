package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr         string   `yaml:"addr"`
	CORSOrigins  []string `yaml:"corsOrigins"`
	MaxBodyBytes int64    `yaml:"maxBodyBytes"`
}

type Data struct {
	BaseDir   string `yaml:"baseDir"`   // e.g. data
	Folder    string `yaml:"folder"`    // folder used by /train-local
	Extension string `yaml:"extension"` // e.g. .json
}

type Split struct {
	Seed           int64   `yaml:"seed"`
	Train          float64 `yaml:"train"`
	Validation     float64 `yaml:"validation"`
	Test           float64 `yaml:"test"`
	StratifyColumn string  `yaml:"stratifyColumn"`
}

type Storage struct {
	Path string `yaml:"path"` // empty disables run history
}

type Tracing struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

type Slack struct {
	Enabled bool   `yaml:"enabled"`
	Webhook string `yaml:"webhook"`
}

type Job struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // cron, e.g. "0 3 * * *"
	Folder   string `yaml:"folder"`   // empty = data.folder
}

type Watch struct {
	Debounce string `yaml:"debounce"` // e.g. 2s
}

type Config struct {
	LogLevel    string  `yaml:"logLevel"`
	Server      Server  `yaml:"server"`
	Data        Data    `yaml:"data"`
	Split       Split   `yaml:"split"`
	LabelColumn string  `yaml:"labelColumn"`
	SampleRows  *int    `yaml:"sampleRows"` // nil = 2, 0 turns the sample off
	Storage     Storage `yaml:"storage"`
	Tracing     Tracing `yaml:"tracing"`
	Slack       Slack   `yaml:"slack"`
	Jobs        []Job   `yaml:"jobs"`
	Watch       Watch   `yaml:"watch"`
}

// Load reads path (a missing file means defaults), overlays env and validates.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used when no file and no env are present.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyEnv() {
	set := func(dst *string, k string) {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.Server.Addr, "HTTP_ADDR")
	set(&c.Data.BaseDir, "DATA_DIR")
	set(&c.Data.Folder, "DATA_FOLDER")
	set(&c.Storage.Path, "STORAGE_PATH")
	if v := os.Getenv("SPLIT_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Split.Seed = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 32 << 20
	}
	if c.Data.BaseDir == "" {
		c.Data.BaseDir = "data"
	}
	if c.Data.Folder == "" {
		c.Data.Folder = "raw_emails"
	}
	if c.Data.Extension == "" {
		c.Data.Extension = ".json"
	}
	if c.Split.Seed == 0 {
		c.Split.Seed = 42
	}
	if c.Split.Train == 0 && c.Split.Validation == 0 && c.Split.Test == 0 {
		c.Split.Train, c.Split.Validation, c.Split.Test = 0.6, 0.2, 0.2
	}
	if c.Split.StratifyColumn == "" {
		c.Split.StratifyColumn = "protocol_type"
	}
	if c.LabelColumn == "" {
		c.LabelColumn = "class"
	}
	if c.SampleRows == nil {
		n := 2
		c.SampleRows = &n
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "go-dataset-prep"
	}
	if c.Tracing.OTLPEndpoint == "" {
		c.Tracing.OTLPEndpoint = "localhost:4317"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1.0
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = "2s"
	}
}

// Samples is the number of transformed rows echoed in responses.
func (c *Config) Samples() int {
	if c.SampleRows == nil {
		return 2
	}
	return *c.SampleRows
}

func (c *Config) Validate() error {
	s := c.Split
	if s.Train <= 0 || s.Validation <= 0 || s.Test <= 0 {
		return fmt.Errorf("split ratios must be positive (train=%g validation=%g test=%g)", s.Train, s.Validation, s.Test)
	}
	if math.Abs(s.Train+s.Validation+s.Test-1) > 1e-9 {
		return fmt.Errorf("split ratios must sum to 1, got %g", s.Train+s.Validation+s.Test)
	}
	if c.SampleRows != nil && *c.SampleRows < 0 {
		return fmt.Errorf("sampleRows must be >= 0, got %d", *c.SampleRows)
	}
	for _, j := range c.Jobs {
		if j.Schedule == "" {
			return fmt.Errorf("job %q: schedule is required", j.Name)
		}
	}
	return nil
}
