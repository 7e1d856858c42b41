// Package ingest adapts external event sources to ports.IngestGateway.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"ConsensusAnalyzer/internal/config"
	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
)

const defaultMaxBodyBytes = 4 << 20

// HTTPGateway accepts ingest events on POST /events.
type HTTPGateway struct {
	settings config.IngestConfig
	logger   *slog.Logger

	mu       sync.RWMutex
	listener net.Listener
}

var _ ports.IngestGateway = (*HTTPGateway)(nil)

// NewHTTPGateway prepares a gateway; nothing listens until Run.
func NewHTTPGateway(settings config.IngestConfig, logger *slog.Logger) *HTTPGateway {
	if settings.MaxBodyBytes <= 0 {
		settings.MaxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPGateway{settings: settings, logger: logger}
}

// Run serves until ctx is done, then drains in-flight requests.
func (g *HTTPGateway) Run(ctx context.Context, handle ports.EventHandler) error {
	addr := g.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	g.mu.Lock()
	g.listener = listener
	g.mu.Unlock()

	server := &http.Server{
		Handler:      g.Handler(ctx, handle),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	g.logger.Info("ingest listening", "addr", listener.Addr().String())

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}

// Addr returns the bound address once Run has started listening.
func (g *HTTPGateway) Addr() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Handler builds the HTTP routes. Events are handed to handle with the
// long-lived ctx rather than the request context, which ends with the response.
func (g *HTTPGateway) Handler(ctx context.Context, handle ports.EventHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		g.handleEvents(ctx, handle, w, r)
	})
	return mux
}

func (g *HTTPGateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *HTTPGateway) handleEvents(ctx context.Context, handle ports.EventHandler, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := http.MaxBytesReader(w, r.Body, g.settings.MaxBodyBytes)
	var event domain.IngestEvent
	if err := json.NewDecoder(body).Decode(&event); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		g.logger.Warn("undecodable ingest event", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}

	// handle may block while all workers are busy; that is the backpressure.
	handle(ctx, event)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "topicId": event.TopicID.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
