// ABOUTME: Entry point for the Resonate tape player
// ABOUTME: Loads config, wires generator, session, sinks and metrics, and runs the TUI
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/internal/config"
	"github.com/Resonate-Protocol/resonate-tape/internal/discovery"
	"github.com/Resonate-Protocol/resonate-tape/internal/generator"
	"github.com/Resonate-Protocol/resonate-tape/internal/metrics"
	"github.com/Resonate-Protocol/resonate-tape/internal/session"
	"github.com/Resonate-Protocol/resonate-tape/internal/storage"
	"github.com/Resonate-Protocol/resonate-tape/internal/ui"
	"github.com/Resonate-Protocol/resonate-tape/internal/version"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/output"
	"github.com/google/uuid"
)

const discoveryTimeout = 10 * time.Second

var (
	envFile      = flag.String("env", "", "Env file to load (default: .env if present)")
	source       = flag.String("source", "", "Generator source: tone, file or ws (overrides TAPE_SOURCE)")
	audioFile    = flag.String("audio", "", "Audio file to stream (MP3, FLAC, WAV); implies -source file")
	generatorURL = flag.String("generator", "", "Generator WebSocket URL; implies -source ws (skips mDNS)")
	outputName   = flag.String("output", "", "Output backend: malgo, oto or null")
	exportDir    = flag.String("export-dir", "", "Directory for WAV exports")
	metricsAddr  = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	logFile      = flag.String("log-file", "", "Log file path")
	name         = flag.String("name", "", "Player friendly name (default: hostname-resonate-tape)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	noTUI        = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs   = flag.Bool("stream-logs", false, "Alias for -no-tui")
	exportOnExit = flag.Bool("export-on-exit", false, "Export the whole recording before exiting")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-resonate-tape", hostname)
	}

	log.Printf("Starting %s %s: %s", version.Product, version.Version, playerName)
	if cfg.Debug {
		log.Printf("Configuration: %s", cfg)
	}

	m := metrics.NewMetrics(nil)
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, m)
	}

	sink, err := storage.New(storage.Config{
		Dir: cfg.ExportDir,
		S3: storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create export sink: %v", err)
	}
	if cfg.S3Enabled() {
		log.Printf("Exports go to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	} else {
		log.Printf("Exports go to %s", cfg.ExportDir)
	}

	out, err := output.New(cfg.Output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}

	sess := session.New(out, session.Config{
		DropSilent: cfg.DropSilent,
		Sink:       sink,
		Metrics:    m,
	})
	sess.SetVolume(cfg.Volume)
	sess.SetLowPass(cfg.LowPassHz)
	sess.SetHighPass(cfg.HighPassHz)
	go sess.Run(ctx)

	ctrl := &tapeController{
		Session: sess,
		ctx:     ctx,
		newGen: func(ctx context.Context) (generator.Generator, error) {
			return newGenerator(ctx, cfg, playerName)
		},
	}

	gen, err := ctrl.newGen(ctx)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	if err := sess.Start(ctx, gen); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if useTUI {
		prog := ui.Run(ctrl)
		tuiDone := make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := prog.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		select {
		case <-tuiDone:
			log.Printf("Received quit from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
			prog.Quit()
			<-tuiDone
		}
	} else {
		go statsLogLoop(ctx, sess)

		select {
		case <-sigChan:
			log.Printf("Shutdown signal received")
		case <-sess.Done():
			log.Printf("Generator finished")
		}
	}

	sess.Stop()

	if *exportOnExit {
		location, err := sess.Export(ctx)
		if err != nil {
			log.Printf("Export on exit failed: %v", err)
		} else {
			log.Printf("Exported to %s", location)
		}
	}

	if err := sess.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}

	log.Printf("Player stopped")
}

// loadConfig reads env config and applies command-line overrides
func loadConfig(ctx context.Context) (*config.Config, error) {
	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}

	cfg, err := config.Load(ctx, envFiles...)
	if err != nil {
		return nil, err
	}

	if *source != "" {
		cfg.Source = *source
	}
	if *audioFile != "" {
		cfg.Source = "file"
		cfg.AudioFile = *audioFile
	}
	if *generatorURL != "" {
		cfg.Source = "ws"
		cfg.GeneratorURL = *generatorURL
	}
	if *outputName != "" {
		cfg.Output = *outputName
	}
	if *exportDir != "" {
		cfg.ExportDir = *exportDir
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newGenerator builds the configured generator source
func newGenerator(ctx context.Context, cfg *config.Config, playerName string) (generator.Generator, error) {
	switch cfg.Source {
	case "file":
		return generator.NewFile(generator.FileConfig{
			Path:     cfg.AudioFile,
			Loop:     cfg.Loop,
			Realtime: true,
		}), nil

	case "ws":
		url := cfg.GeneratorURL
		if url == "" {
			log.Printf("Starting generator discovery...")
			disc := discovery.NewManager(discovery.Config{ServiceName: playerName})

			discCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
			server, err := disc.First(discCtx)
			cancel()
			disc.Stop()
			if err != nil {
				return nil, err
			}
			url = server.URL()
			log.Printf("Discovered generator %s at %s", server.Name, url)
		}
		return generator.NewWebSocket(generator.WebSocketConfig{
			URL:      url,
			ClientID: uuid.New().String(),
			Name:     playerName,
		}), nil

	default:
		tone := generator.DefaultToneConfig()
		tone.SampleRate = cfg.SampleRate
		return generator.NewTone(tone), nil
	}
}

// tapeController restarts the session with a fresh generator
type tapeController struct {
	*session.Session
	ctx    context.Context
	newGen func(ctx context.Context) (generator.Generator, error)
}

// Restart clears the session and starts recording again
func (c *tapeController) Restart() error {
	c.Session.Restart()

	gen, err := c.newGen(c.ctx)
	if err != nil {
		return err
	}
	return c.Session.Start(c.ctx, gen)
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	log.Printf("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Metrics server error: %v", err)
	}
}

// statsLogLoop periodically logs session health when the TUI is off
func statsLogLoop(ctx context.Context, sess *session.Session) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := sess.Snapshot()
			log.Printf("Buffer %.2fs (%d samples), underruns %d, history %.2fs, peak %.2f",
				st.BufferSeconds, st.Queued, st.Underruns, st.HistorySeconds, st.Peak)
		}
	}
}
