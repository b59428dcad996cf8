// Package httpserver serves /metrics, /healthz and optional pprof endpoints.
package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rtsup "hwbot/internal/runtime/supervisor"
	logx "hwbot/pkg/logx"
)

const DefaultAddr = "127.0.0.1:9464"

// Config controls the observability listener.
//
// Binding to a non-loopback address with Pprof enabled requires Token;
// the profiling endpoints then need "Authorization: Bearer <token>".
type Config struct {
	Enabled bool
	Addr    string
	Pprof   bool
	Token   string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// HealthFunc reports whether the service is healthy plus a JSON-able detail.
type HealthFunc func() (ok bool, detail any)

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	metrics http.Handler
	health  HealthFunc

	ln  net.Listener
	srv *http.Server
	sup *rtsup.Supervisor
}

func New(cfg Config, metrics http.Handler, health HealthFunc, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	return &Service{cfg: cfg, metrics: metrics, health: health, log: log}
}

// Addr returns the bound address, or "" when not listening.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start binds the listener and serves in the background. Bind errors are
// returned; later serve failures are retried with backoff.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.sup != nil {
		return nil
	}
	if s.cfg.Pprof && s.cfg.Token == "" && !isLoopbackAddr(s.cfg.Addr) {
		return errors.New("httpserver: pprof on a non-loopback address requires a token")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log))
	s.sup.GoRestart("http.serve", s.serve, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second))

	s.log.Info("observability server started",
		logx.String("addr", ln.Addr().String()),
		logx.Bool("pprof", s.cfg.Pprof),
	)
	return nil
}

func (s *Service) serve(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.srv, s.ln
	if ln == nil {
		// Previous listener died; bind again.
		var err error
		if ln, err = net.Listen("tcp", s.cfg.Addr); err != nil {
			s.mu.Unlock()
			return err
		}
		s.ln = ln
	}
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	})
	defer stop()

	err := srv.Serve(ln)
	s.mu.Lock()
	if s.ln == ln {
		s.ln = nil
	}
	s.mu.Unlock()
	if ctx.Err() != nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down and waits for the serve loop.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sup, srv := s.sup, s.srv
	s.sup, s.srv = nil, nil
	s.mu.Unlock()
	if sup == nil {
		return
	}
	_ = srv.Shutdown(ctx)
	if err := sup.Stop(ctx); err != nil {
		s.log.Warn("observability server stop incomplete", logx.Err(err))
	}
	s.log.Info("observability server stopped")
}

func (s *Service) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	if s.cfg.Pprof {
		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(s.cfg.Token))
			r.Mount("/debug", middleware.Profiler())
		})
	}
	return r
}

func (s *Service) healthz(w http.ResponseWriter, _ *http.Request) {
	ok, detail := true, any(nil)
	if s.health != nil {
		ok, detail = s.health()
	}
	code, status := http.StatusOK, "ok"
	if !ok {
		code, status = http.StatusServiceUnavailable, "unhealthy"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "poll": detail})
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	tok := strings.TrimSpace(token)
	return func(next http.Handler) http.Handler {
		if tok == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(tok)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil || h == "" {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
