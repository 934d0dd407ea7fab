// Package config loads the kwrun configuration file. Values may
// reference environment variables as ${VAR}; they are expanded
// before the YAML is parsed.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/runner"
	"digital.vasic.keywords/pkg/testcase"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of the configuration file.
type Config struct {
	Browser browser.Options `yaml:"browser"`
	Engine  Engine          `yaml:"engine"`
	Reports Reports         `yaml:"reports"`
	Logging Logging         `yaml:"logging"`
	Monitor Monitor         `yaml:"monitor"`
	Notify  Notify          `yaml:"notify"`
	Run     Run             `yaml:"run"`
}

// Engine holds step execution timing and dialog handling.
type Engine struct {
	ElementTimeout          time.Duration `yaml:"element_timeout" validate:"gt=0"`
	DialogTimeout           time.Duration `yaml:"dialog_timeout" validate:"gt=0"`
	DialogProbe             time.Duration `yaml:"dialog_probe" validate:"gte=0"`
	PollInterval            time.Duration `yaml:"poll_interval" validate:"gt=0"`
	AlertAttempts           int           `yaml:"alert_attempts" validate:"gte=1"`
	SettleDelay             time.Duration `yaml:"settle_delay" validate:"gte=0"`
	DefaultWait             time.Duration `yaml:"default_wait" validate:"gte=0"`
	DuplicateDialogPatterns []string      `yaml:"duplicate_dialog_patterns"`

	// ExpandVariables replaces ${VAR} in table cells.
	ExpandVariables bool `yaml:"expand_variables"`
}

// Reports configures output files.
type Reports struct {
	Dir            string `yaml:"dir" validate:"required"`
	ScreenshotsDir string `yaml:"screenshots_dir"`
	JSON           bool   `yaml:"json"`

	// History is the JSON-lines run history file. Empty
	// disables it.
	History      string `yaml:"history"`
	SuiteSummary bool   `yaml:"suite_summary"`
}

// Logging configures the run and step logs.
type Logging struct {
	Dir     string `yaml:"dir"`
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	Verbose bool   `yaml:"verbose"`
	Console bool   `yaml:"console"`

	// Redact lists extra values masked in every log line.
	Redact []string `yaml:"redact"`
}

// Monitor configures the live event server. An empty address
// disables it.
type Monitor struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Notify configures run summary notifications.
type Notify struct {
	URLs          []string `yaml:"urls" validate:"dive,required,contains=://"`
	Template      string   `yaml:"template"`
	OnlyOnFailure bool     `yaml:"only_on_failure"`
}

// Run configures case scheduling.
type Run struct {
	Parallel       int           `yaml:"parallel" validate:"gte=1"`
	CaseTimeout    time.Duration `yaml:"case_timeout" validate:"gte=0"`
	StaleThreshold time.Duration `yaml:"stale_threshold" validate:"gte=0"`
	EnvFile        string        `yaml:"env_file"`
	Cases          []runner.Case `yaml:"cases" validate:"dive"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	tc := testcase.NewConfig()
	return &Config{
		Browser: browser.DefaultOptions(),
		Engine: Engine{
			ElementTimeout:          tc.ElementTimeout,
			DialogTimeout:           tc.DialogTimeout,
			DialogProbe:             tc.DialogProbe,
			PollInterval:            tc.PollInterval,
			AlertAttempts:           tc.AlertAttempts,
			SettleDelay:             tc.SettleDelay,
			DefaultWait:             tc.DefaultWait,
			DuplicateDialogPatterns: tc.DuplicateDialogPatterns,
			ExpandVariables:         true,
		},
		Reports: Reports{
			Dir: tc.ReportsDir,
		},
		Logging: Logging{
			Dir:     "logs",
			Level:   "info",
			Console: true,
		},
		Run: Run{
			Parallel:    1,
			CaseTimeout: 30 * time.Minute,
		},
	}
}

// Load reads, expands and validates the file at path. Keys that
// are absent keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolveRelative(filepath.Dir(path))
	return cfg, nil
}

// Parse expands, decodes and validates data.
func Parse(data []byte) (*Config, error) {
	data, err := envsubst.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("expanding env vars: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRelative makes case paths relative to the config
// file's directory.
func (c *Config) resolveRelative(dir string) {
	for i, cs := range c.Run.Cases {
		if cs.Path != "" && !filepath.IsAbs(cs.Path) {
			c.Run.Cases[i].Path = filepath.Join(dir, cs.Path)
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section. The error lists each failing
// field by its YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Sprintf(
			"%s must satisfy %s=%s (got %v)",
			field, fe.Tag(), fe.Param(), fe.Value(),
		)
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// TestcaseConfig converts the engine and report sections into
// the engine's runtime configuration.
func (c *Config) TestcaseConfig() *testcase.Config {
	shots := c.Reports.ScreenshotsDir
	if shots == "" {
		shots = filepath.Join(c.Reports.Dir, "screenshots")
	}
	return &testcase.Config{
		ReportsDir:              c.Reports.Dir,
		ScreenshotsDir:          shots,
		ElementTimeout:          c.Engine.ElementTimeout,
		DialogTimeout:           c.Engine.DialogTimeout,
		DialogProbe:             c.Engine.DialogProbe,
		PollInterval:            c.Engine.PollInterval,
		AlertAttempts:           c.Engine.AlertAttempts,
		SettleDelay:             c.Engine.SettleDelay,
		DefaultWait:             c.Engine.DefaultWait,
		DuplicateDialogPatterns: c.Engine.DuplicateDialogPatterns,
	}
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.LogLevel {
	return logging.ParseLevel(c.Logging.Level)
}
