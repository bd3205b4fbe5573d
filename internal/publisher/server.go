// Package publisher is the Publisher (spec §4.7): an HTTP server that
// exposes the running scan's accumulator as static files, a chunked
// streaming demo, JSON snapshots/history, Prometheus metrics, a heatmap
// image and a live WebSocket feed. It runs on its own goroutine and
// never mutates scan state, matching the read-only view spec §5
// prescribes for T_web.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wbscan/wbscan/internal/accumulator"
	"github.com/wbscan/wbscan/internal/store"
)

// maxKeepAliveRequests and idleTimeout implement spec §4.7's keep-alive
// policy: at most 20 requests per connection, 60 seconds idle.
const (
	maxKeepAliveRequests = 20
	idleTimeout          = 60 * time.Second
)

// Server is the Publisher's HTTP surface.
type Server struct {
	addr   string
	logger *slog.Logger
	acc    *accumulator.Accumulator
	store  *store.Store
	theme  ColorTheme

	publicDir string

	srv      *http.Server
	upgrader websocket.Upgrader

	accumulations prometheus.Gauge
	requests      *prometheus.CounterVec
}

// Options configures a Server.
type Options struct {
	Addr      string // "localhost:<web_port>"
	PublicDir string // static file root for "/"
	Theme     ColorTheme
	Store     *store.Store // may be nil: /history then reports empty
}

// New builds a Server bound to acc, not yet listening.
func New(opts Options, acc *accumulator.Accumulator, logger *slog.Logger) *Server {
	if opts.Theme == "" {
		opts.Theme = ClassicTheme
	}
	s := &Server{
		addr:      opts.Addr,
		logger:    logger,
		acc:       acc,
		store:     opts.Store,
		theme:     opts.Theme,
		publicDir: opts.PublicDir,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 65536},
		accumulations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wbscan_accumulation_count",
			Help: "Number of FFT frames folded into the accumulator so far.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wbscan_http_requests_total",
			Help: "HTTP requests served by the publisher, by path.",
		}, []string{"path"}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(s.accumulations, s.requests)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/chunked", s.handleChunked)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/spectrum.png", s.handleHeatmap)
	mux.HandleFunc("/ws/spectrum", s.handleWebSocket)
	metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.accumulations.Set(float64(s.acc.Snapshot().AccumulationCount))
		metrics.ServeHTTP(w, r)
	})

	s.srv = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.withKeepAliveLimit(mux),
		IdleTimeout: idleTimeout,
		ConnContext: connContext,
	}
	return s
}

// Start begins serving on its own goroutine, per spec §4.7 ("the server
// runs on its own thread"). Errors other than a clean Stop are logged.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("publisher stopped", "error", err)
		}
	}()
}

// Stop implements spec §4.7's cooperative stop() operation.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type connRequestCount struct{ n atomic.Int32 }

type connCountKey struct{}

// withKeepAliveLimit enforces the 20-requests-per-connection cap by
// marking the response Connection: close once a connection's count is
// reached, leaning on net/http to close the socket after the response.
func (s *Server) withKeepAliveLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.WithLabelValues(r.URL.Path).Inc()

		if cc, ok := r.Context().Value(connCountKey{}).(*connRequestCount); ok {
			if cc.n.Add(1) >= maxKeepAliveRequests {
				w.Header().Set("Connection", "close")
			}
		}
		next.ServeHTTP(w, r)
	})
}

func connContext(ctx context.Context, _ net.Conn) context.Context {
	return context.WithValue(ctx, connCountKey{}, &connRequestCount{})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		http.Redirect(w, r, "/index.html", http.StatusFound)
		return
	}
	if s.publicDir == "" {
		renderError(w, http.StatusNotFound, "no public directory configured")
		return
	}
	http.FileServer(http.Dir(s.publicDir)).ServeHTTP(w, r)
}

// handleChunked is the example streaming endpoint of spec §4.7: a
// keep-alive chunked response emitting successive accumulator snapshots
// until the client disconnects.
func (s *Server) handleChunked(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		renderError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snap := s.acc.Snapshot()
			s.accumulations.Set(float64(snap.AccumulationCount))
			fmt.Fprintf(w, "accumulation_count=%d buckets=%d\n", snap.AccumulationCount, len(snap.Power))
			flusher.Flush()
		}
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	view := BuildSnapshotView(s.acc.Snapshot(), time.Now())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.Warn("encoding snapshot failed", "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.store == nil {
		json.NewEncoder(w).Encode([]SnapshotView{})
		return
	}
	records, err := s.store.RecentSnapshots(r.Context(), 100)
	if err != nil {
		renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	json.NewEncoder(w).Encode(records)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	view := BuildSnapshotView(s.acc.Snapshot(), time.Now())
	img := RenderHeatmap(view, s.theme)
	w.Header().Set("Content-Type", "image/png")
	if err := encodePNG(w, img); err != nil {
		s.logger.Warn("encoding heatmap failed", "error", err)
	}
}

// handleWebSocket pushes one averaged snapshot per second to the client,
// in the spirit of user_spectrum_websocket.go's per-connection spectrum
// push loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		view := BuildSnapshotView(s.acc.Snapshot(), time.Now())
		if err := conn.WriteJSON(view); err != nil {
			return
		}
	}
}

func renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<html><body><h1>%d</h1><p>%s</p></body></html>", status, message)
}
