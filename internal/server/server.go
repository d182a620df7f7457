// ABOUTME: Generator server for the /generate WebSocket protocol
// ABOUTME: Performs the handshake, negotiates a codec and streams one source per client
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/internal/discovery"
	"github.com/Resonate-Protocol/resonate-tape/internal/generator"
	"github.com/Resonate-Protocol/resonate-tape/internal/protocol"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeDeadline    = 10 * time.Second
)

// opusRates are the sample rates the Opus encoder accepts
var opusRates = []int{8000, 12000, 16000, 24000, 48000}

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool

	// NewSource builds a fresh generator for each connection
	NewSource func() generator.Generator
}

// Server represents the generator server
type Server struct {
	config   Config
	serverID string

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*Client
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager

	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected player
type Client struct {
	ID    string
	Name  string
	Codec string
	Conn  *websocket.Conn
}

// New creates a new server instance
func New(config Config) *Server {
	mux := http.NewServeMux()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      mux,
		upgrader: websocket.Upgrader{
			// Generator servers run on trusted local networks
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*Client),
		ctx:     ctx,
		cancel:  cancel,
	}
	mux.HandleFunc(protocol.Path, s.handleWebSocket)
	return s
}

// Handler exposes the HTTP routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ClientCount returns the number of connected players
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Start listens until Stop is called or the HTTP server fails
func (s *Server) Start() error {
	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        protocol.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s%s", addr, protocol.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.ctx.Done():
		log.Printf("Server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
		s.cancel()
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server and every active stream
func (s *Server) Stop() {
	s.stopOnce.Do(s.cancel)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello, err := readHello(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		return
	}

	client := &Client{
		ID:   hello.ClientID,
		Name: hello.Name,
		Conn: conn,
	}

	s.clientsMu.Lock()
	if _, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected, rejecting duplicate", client.ID)
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		log.Printf("Client disconnected: %s", client.Name)
	}()

	if err := s.sendMessage(conn, protocol.TypeServerHello, protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
	}); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// The reader only watches for the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				return
			}
		}
	}()

	if err := s.stream(ctx, client, hello.Codecs); err != nil {
		log.Printf("Stream to %s ended: %v", client.Name, err)
	}
}

func readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg struct {
		Type    string               `json:"type"`
		Payload protocol.ClientHello `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return protocol.ClientHello{}, fmt.Errorf("error reading hello: %w", err)
	}
	if msg.Type != protocol.TypeClientHello {
		return protocol.ClientHello{}, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, msg.Type)
	}
	if msg.Payload.ClientID == "" {
		return protocol.ClientHello{}, fmt.Errorf("client hello missing client_id")
	}
	if msg.Payload.Name == "" {
		msg.Payload.Name = msg.Payload.ClientID
	}

	log.Printf("Client hello: %s (ID: %s, codecs: %v)", msg.Payload.Name, msg.Payload.ClientID, msg.Payload.Codecs)
	return msg.Payload, nil
}

// stream runs one source to completion for a client
func (s *Server) stream(ctx context.Context, client *Client, codecs []string) error {
	if s.config.NewSource == nil {
		return fmt.Errorf("no source configured")
	}
	source := s.config.NewSource()
	defer source.Close()

	format, err := source.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	format.Codec = negotiateCodec(codecs, format.SampleRate)
	client.Codec = format.Codec

	writer, err := newChunkWriter(client.Conn, format)
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := s.sendMessage(client.Conn, protocol.TypeStreamStart, protocol.StreamStart{
		Codec:      format.Codec,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
	}); err != nil {
		return fmt.Errorf("error sending stream/start: %w", err)
	}

	log.Printf("Streaming %s %d Hz to %s", format.Codec, format.SampleRate, client.Name)

	streamCtx, stop := context.WithCancel(ctx)
	defer stop()

	var writeErr error
	err = source.Stream(streamCtx, func(chunk *audio.Chunk) {
		if writeErr != nil {
			return
		}
		if writeErr = writer.Write(chunk.Take()); writeErr != nil {
			stop()
		}
	})
	if writeErr != nil {
		return fmt.Errorf("write failed: %w", writeErr)
	}
	if err != nil {
		return err
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}
	if s.config.Debug {
		log.Printf("[DEBUG] Sent %d frames to %s", writer.Sent(), client.Name)
	}
	return s.sendMessage(client.Conn, protocol.TypeStreamEnd, protocol.StreamEnd{Reason: "source exhausted"})
}

// negotiateCodec picks the first requested codec the server can produce
func negotiateCodec(requested []string, sampleRate int) string {
	for _, c := range requested {
		switch c {
		case "opus":
			if slices.Contains(opusRates, sampleRate) {
				return "opus"
			}
		case "pcm":
			return "pcm"
		}
	}
	return "pcm"
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, payload interface{}) error {
	data, err := json.Marshal(protocol.Message{Type: msgType, Payload: payload})
	if err != nil {
		return fmt.Errorf("error marshaling message: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteMessage(websocket.TextMessage, data)
}
