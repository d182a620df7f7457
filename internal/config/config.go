// Package config loads player configuration from the environment and an
// optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalidConfig is returned when a loaded value fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all configuration for the player.
type Config struct {
	// Generator settings
	Source       string `env:"TAPE_SOURCE, default=tone" validate:"oneof=tone file ws" json:"source"`
	GeneratorURL string `env:"TAPE_GENERATOR_URL" validate:"omitempty,url" json:"generator_url,omitempty"`
	AudioFile    string `env:"TAPE_AUDIO_FILE" validate:"required_if=Source file" json:"audio_file,omitempty"`
	Loop         bool   `env:"TAPE_LOOP, default=true" json:"loop"`
	SampleRate   int    `env:"TAPE_SAMPLE_RATE, default=48000" validate:"min=8000,max=192000" json:"sample_rate"`

	// Output settings
	Output     string `env:"TAPE_OUTPUT, default=malgo" validate:"oneof=malgo oto null" json:"output"`
	Volume     int    `env:"TAPE_VOLUME, default=100" validate:"min=0,max=100" json:"volume"`
	DropSilent bool   `env:"TAPE_DROP_SILENT, default=true" json:"drop_silent"`
	LowPassHz  int    `env:"TAPE_LOWPASS_HZ, default=20000" validate:"min=100,max=20000" json:"lowpass_hz"`
	HighPassHz int    `env:"TAPE_HIGHPASS_HZ, default=20" validate:"min=20,max=5000" json:"highpass_hz"`

	// Export settings
	ExportDir          string `env:"TAPE_EXPORT_DIR, default=exports" validate:"required" json:"export_dir"`
	S3Bucket           string `env:"S3_BUCKET" validate:"required_with=S3Region" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" validate:"required_with=S3Bucket" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" validate:"omitempty,url" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Observability
	MetricsAddr string `env:"TAPE_METRICS_ADDR" validate:"omitempty,hostname_port" json:"metrics_addr,omitempty"`
	LogFile     string `env:"TAPE_LOG_FILE, default=resonate-tape.log" json:"log_file"`
	Debug       bool   `env:"TAPE_DEBUG, default=false" json:"debug"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from the process environment, falling back to
// values in envFiles (default ".env"). Missing files are ignored.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	fileValues := map[string]string{}
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		for k, v := range values {
			if _, ok := fileValues[k]; !ok {
				fileValues[k] = v
			}
		}
	}

	return LoadWith(ctx, envconfig.MultiLookuper(envconfig.OsLookuper(), envconfig.MapLookuper(fileValues)))
}

// LoadWith reads configuration from an explicit lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Source: %s, GeneratorURL: %s, AudioFile: %s, SampleRate: %d, Output: %s, Volume: %d, LowPassHz: %d, HighPassHz: %d, DropSilent: %v, ExportDir: %s, S3Bucket: %s, S3Region: %s, MetricsAddr: %s}",
		c.Source,
		c.GeneratorURL,
		c.AudioFile,
		c.SampleRate,
		c.Output,
		c.Volume,
		c.LowPassHz,
		c.HighPassHz,
		c.DropSilent,
		c.ExportDir,
		c.S3Bucket,
		c.S3Region,
		c.MetricsAddr,
	)
}
