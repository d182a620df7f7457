// Package storage provides the sinks session exports are written to.
// It defines the Sink interface and implementations for a local directory
// and S3.
package storage

import (
	"context"
	"io"
)

// Sink stores a finished export under name and returns where it went
// (a file path or URL).
type Sink interface {
	Save(ctx context.Context, name string, data io.Reader) (location string, err error)
}

// Config selects and configures a sink. S3 is used when Bucket and Region are set.
type Config struct {
	Dir string
	S3  S3Config
}

// New returns the S3 sink when configured, otherwise the local sink.
func New(cfg Config) (Sink, error) {
	if cfg.S3.Bucket != "" && cfg.S3.Region != "" {
		return NewS3Storage(cfg.Dir, cfg.S3)
	}
	return NewLocalStorage(cfg.Dir)
}
