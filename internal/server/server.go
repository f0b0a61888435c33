// Package server implements the OpenAI-compatible HTTP surface:
// request validation, worker admission, synthesis orchestration, and
// streaming delivery with disconnect handling.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/kokoro-openai-server/internal/config"
	"github.com/example/kokoro-openai-server/internal/pool"
	"github.com/example/kokoro-openai-server/internal/telemetry"
	"github.com/example/kokoro-openai-server/internal/tts"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// WorkerPool is the admission gate in front of the synthesis services.
type WorkerPool = pool.Pool[*tts.Service]

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxInputChars    int
	defaultVoice     string
	admissionTimeout time.Duration
	streamBuffer     int
	apiKey           string
	logger           *slog.Logger
	metrics          *telemetry.Metrics
	metricsHandler   http.Handler
}

func defaultOptions() options {
	return options{
		maxInputChars:    4096,
		defaultVoice:     "af_alloy",
		admissionTimeout: 30 * time.Second,
		streamBuffer:     8,
		logger:           slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxInputChars sets the maximum input length in characters.
func WithMaxInputChars(n int) Option {
	return func(o *options) { o.maxInputChars = n }
}

// WithDefaultVoice sets the voice used when a request omits one.
func WithDefaultVoice(v string) Option {
	return func(o *options) { o.defaultVoice = v }
}

// WithAdmissionTimeout bounds the wait for a free worker; 0 waits
// forever.
func WithAdmissionTimeout(d time.Duration) Option {
	return func(o *options) { o.admissionTimeout = d }
}

// WithStreamBuffer sets how many chunks a streaming response may have
// in flight before the producer blocks.
func WithStreamBuffer(n int) Option {
	return func(o *options) { o.streamBuffer = n }
}

// WithAPIKey enables bearer-token auth on the API routes.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches the telemetry instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMetricsHandler mounts a scrape endpoint at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metricsHandler = h }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	pool   *WorkerPool
	voices *tts.Catalog
	opts   options
	log    *slog.Logger
}

// NewHandler returns the http.Handler serving the full API surface.
func NewHandler(p *WorkerPool, voices *tts.Catalog, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		pool:   p,
		voices: voices,
		opts:   opts,
		log:    opts.logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/v1/models", h.handleModels)
	mux.HandleFunc("/v1/audio/voices", h.handleVoices)
	mux.HandleFunc("/v1/audio/speech", h.handleSpeech)
	if opts.metricsHandler != nil {
		mux.Handle("/metrics", opts.metricsHandler)
	}

	return requireBearer(opts.apiKey, mux)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/v1" {
		writeAPIError(w, http.StatusNotFound, "invalid_request_error", "Not found", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Kokoro OpenAI TTS Server",
		"version": buildVersion(),
		"docs":    "/v1/models",
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type listResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

func (h *handler) handleModels(w http.ResponseWriter, _ *http.Request) {
	const created = 1704067200 // 2024-01-01

	models := []modelInfo{
		{ID: "tts-1", Object: "model", Created: created, OwnedBy: "kokoro"},
		{ID: "tts-1-hd", Object: "model", Created: created, OwnedBy: "kokoro"},
		{ID: "kokoro", Object: "model", Created: created, OwnedBy: "kokoro"},
		{ID: "gpt-4o-mini-tts", Object: "model", Created: created, OwnedBy: "kokoro"},
	}

	writeJSON(w, http.StatusOK, listResponse[modelInfo]{Object: "list", Data: models})
}

func (h *handler) handleVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, listResponse[tts.Voice]{
		Object: "list",
		Data:   h.voices.ListWithAliases(),
	})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server runs the handler with graceful shutdown.
type Server struct {
	cfg             config.Config
	handler         http.Handler
	shutdownTimeout time.Duration
}

func New(cfg config.Config, h http.Handler) *Server {
	return &Server{
		cfg:             cfg,
		handler:         h,
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}
}

func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP checks the health endpoint of a running server.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
