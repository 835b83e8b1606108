// Package api exposes the discovery engine over JSON HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/aluiziolira/go-scrape-leads/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBody = 1 << 20

// Discoverer is the discovery capability the endpoints call into.
type Discoverer interface {
	ScanWebsite(ctx context.Context, raw string) *models.Result
	DeepSearch(ctx context.Context, raw string) *models.Result
	Scrape(ctx context.Context, raw string) *models.Result
}

// Request is the body accepted by the discovery endpoints. Exactly one of
// the fields is read, in the order target, url, domain.
type Request struct {
	Target *string `json:"target,omitempty"`
	URL    *string `json:"url,omitempty"`
	Domain *string `json:"domain,omitempty"`
}

// Value returns the first field that was present.
func (r Request) Value() (string, bool) {
	for _, v := range []*string{r.Target, r.URL, r.Domain} {
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

type errorResponse struct {
	Status  models.Status `json:"status"`
	Message string        `json:"message"`
}

// Server routes HTTP requests to a Discoverer.
type Server struct {
	cfg        *config.Config
	discoverer Discoverer
	metrics    *scraper.Metrics
	handler    http.Handler
}

// NewServer wires routes and middleware. metrics may be nil, in which case
// /metrics is not served.
func NewServer(cfg *config.Config, discoverer Discoverer, metrics *scraper.Metrics) *Server {
	s := &Server{
		cfg:        cfg,
		discoverer: discoverer,
		metrics:    metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan", s.discover(discoverer.ScanWebsite))
	mux.HandleFunc("POST /deep-search", s.discover(discoverer.DeepSearch))
	mux.HandleFunc("POST /scrape", s.discover(discoverer.Scrape))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	s.handler = withRequestID(withLogging(withRecovery(withCORS(cfg.AllowedOrigins, mux))))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on cfg.ListenAddr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server listening", slog.String("addr", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}

func (s *Server) discover(run func(context.Context, string) *models.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := decodeRequest(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: models.StatusError, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, run(r.Context(), raw))
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", errors.New("request body is empty")
		}
		return "", fmt.Errorf("malformed request body: %w", err)
	}
	raw, ok := req.Value()
	if !ok {
		return "", errors.New(`request body needs one of "target", "url" or "domain"`)
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", slog.Any("error", err))
	}
}
