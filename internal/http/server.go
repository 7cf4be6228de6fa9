// Package http serves the spending API as JSON over net/http.
package http

import (
	"context"
	"net/http"
	"time"

	"spendtrack/internal/log"
	"spendtrack/internal/middleware/ratelimit"
	"spendtrack/internal/middleware/security"
	"spendtrack/internal/middleware/trace"
	"spendtrack/internal/services"
)

// HeaderUserID selects whose data a request reads and writes.
const HeaderUserID = "X-User-ID"

type Options struct {
	DefaultUserID      string
	RateLimitPerMinute int
	// Ready reports backend health for /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	Now    func() time.Time
}

type Server struct {
	http.Server
	budgets       *services.BudgetService
	limiter       *ratelimit.Limiter
	ips           *security.IPResolver
	logger        *log.Logger
	ready         func(ctx context.Context) error
	defaultUserID string
	now           func() time.Time
}

func NewServer(addr string, budgets *services.BudgetService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		budgets:       budgets,
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ips:           security.NewIPResolver(),
		logger:        logger.WithComponent(log.ComponentHTTP),
		ready:         opts.Ready,
		defaultUserID: opts.DefaultUserID,
		now:           now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleSetBudgets)
	mux.HandleFunc("GET /api/breakdown", s.handleBreakdown)

	var handler http.Handler = mux
	handler = s.limiter.WriteMiddleware(s.ips.ClientIP)(handler)
	handler = security.HeadersMiddleware(security.DefaultHeadersConfig())(handler)
	handler = trace.NewMiddleware(logger, s.ips.ClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Shutdown drains connections and stops the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
