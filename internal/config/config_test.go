package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadWith(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, nil)
	require.NoError(t, err)

	assert.Equal(t, "tone", cfg.Source)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, "malgo", cfg.Output)
	assert.Equal(t, 100, cfg.Volume)
	assert.Equal(t, 20000, cfg.LowPassHz)
	assert.Equal(t, 20, cfg.HighPassHz)
	assert.True(t, cfg.DropSilent)
	assert.True(t, cfg.Loop)
	assert.Equal(t, "exports", cfg.ExportDir)
	assert.Equal(t, "resonate-tape.log", cfg.LogFile)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"TAPE_SOURCE":        "ws",
		"TAPE_GENERATOR_URL": "ws://studio.local:8928/generate",
		"TAPE_OUTPUT":        "null",
		"TAPE_VOLUME":        "40",
		"TAPE_LOWPASS_HZ":    "8000",
		"TAPE_HIGHPASS_HZ":   "120",
		"TAPE_DROP_SILENT":   "false",
		"TAPE_METRICS_ADDR":  "127.0.0.1:9100",
		"S3_BUCKET":          "tapes",
		"S3_REGION":          "eu-west-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ws", cfg.Source)
	assert.Equal(t, "ws://studio.local:8928/generate", cfg.GeneratorURL)
	assert.Equal(t, "null", cfg.Output)
	assert.Equal(t, 40, cfg.Volume)
	assert.Equal(t, 8000, cfg.LowPassHz)
	assert.Equal(t, 120, cfg.HighPassHz)
	assert.False(t, cfg.DropSilent)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown source", map[string]string{"TAPE_SOURCE": "radio"}},
		{"file source without file", map[string]string{"TAPE_SOURCE": "file"}},
		{"unknown output", map[string]string{"TAPE_OUTPUT": "portaudio"}},
		{"volume too high", map[string]string{"TAPE_VOLUME": "150"}},
		{"low-pass below range", map[string]string{"TAPE_LOWPASS_HZ": "50"}},
		{"high-pass above range", map[string]string{"TAPE_HIGHPASS_HZ": "9000"}},
		{"sample rate too low", map[string]string{"TAPE_SAMPLE_RATE": "1000"}},
		{"bucket without region", map[string]string{"S3_BUCKET": "tapes"}},
		{"bad metrics addr", map[string]string{"TAPE_METRICS_ADDR": "not an address"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.env)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_BadNumber(t *testing.T) {
	_, err := load(t, map[string]string{"TAPE_VOLUME": "loud"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TAPE_OUTPUT=oto\nTAPE_VOLUME=55\n"), 0600))

	t.Setenv("TAPE_VOLUME", "70")

	cfg, err := Load(context.Background(), path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "oto", cfg.Output, "value from .env")
	assert.Equal(t, 70, cfg.Volume, "process env wins over .env")
}

func TestString_MasksSecrets(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"AWS_ACCESS_KEY_ID":     "AKIASECRET",
		"AWS_SECRET_ACCESS_KEY": "supersecret",
	})
	require.NoError(t, err)

	s := cfg.String()
	assert.NotContains(t, s, "AKIASECRET")
	assert.NotContains(t, s, "supersecret")
}
