// ABOUTME: Entry point for the Resonate generator server
// ABOUTME: Parses CLI flags and serves tone or file audio over /generate
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/internal/generator"
	"github.com/Resonate-Protocol/resonate-tape/internal/server"
	"github.com/Resonate-Protocol/resonate-tape/internal/version"
)

var (
	port       = flag.Int("port", 8928, "WebSocket server port")
	name       = flag.String("name", "", "Server friendly name (default: hostname-resonate-gen)")
	logFile    = flag.String("log-file", "resonate-gen.log", "Log file path")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	audioFile  = flag.String("audio", "", "Audio file to stream (MP3, FLAC, WAV). If not specified, generates a tone")
	loop       = flag.Bool("loop", true, "Loop the audio file")
	frequency  = flag.Float64("freq", 440, "Tone frequency in Hz")
	sampleRate = flag.Int("rate", 48000, "Tone sample rate")
	duration   = flag.Duration("duration", 0, "Stop each tone stream after this long (0 = forever)")
)

func main() {
	flag.Parse()

	// Set up logging (both file and console)
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	// Log to both file and stdout
	multiWriter := io.MultiWriter(os.Stdout, f)
	log.SetOutput(multiWriter)

	// Determine server name
	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-resonate-gen", hostname)
	}

	log.Printf("Starting %s generator %s: %s on port %d", version.Product, version.Version, serverName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	if *audioFile != "" {
		log.Printf("Streaming file: %s (loop=%v)", *audioFile, *loop)
	} else {
		log.Printf("Streaming %.0f Hz tone at %d Hz", *frequency, *sampleRate)
	}
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	config := server.Config{
		Port:       *port,
		Name:       serverName,
		EnableMDNS: !*noMDNS,
		Debug:      *debug,
		NewSource:  newSource,
	}

	srv := server.New(config)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}

// newSource builds one generator per connected client
func newSource() generator.Generator {
	if *audioFile != "" {
		return generator.NewFile(generator.FileConfig{
			Path:     *audioFile,
			Loop:     *loop,
			Realtime: true,
		})
	}

	cfg := generator.DefaultToneConfig()
	cfg.Frequency = *frequency
	cfg.SampleRate = *sampleRate
	cfg.Duration = *duration
	cfg.Seed = uint64(time.Now().UnixNano())
	return generator.NewTone(cfg)
}
