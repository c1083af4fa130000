package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moneymanager/internal/core"
	applog "moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/middleware/security"
	"moneymanager/internal/middleware/trace"
)

const defaultRequestTimeout = 30 * time.Second

// TransactionAPI is the service surface the handlers call.
type TransactionAPI interface {
	AddTransaction(ctx context.Context, draft core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	GetTransactionsBetween(ctx context.Context, start, end time.Time) ([]core.Transaction, error)
	FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	GetSummary(ctx context.Context, start, end time.Time) (core.Summary, error)
	CategorySummary(ctx context.Context, start, end time.Time) (core.CategoryTotals, error)
	GenerateExcelReport(ctx context.Context, start, end time.Time) ([]byte, error)
	AddTransferAccount(ctx context.Context, a core.Account) (core.Account, error)
	Ping(ctx context.Context) error
	Location() *time.Location
}

// Options tunes the middleware stack.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	svc    TransactionAPI
	loc    *time.Location
	logger *applog.Logger

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	detector        *security.Detector
	started         time.Time

	shutdownOnce sync.Once
}

// NewServer registers the API routes and wraps them in the middleware stack.
func NewServer(addr string, svc TransactionAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.RequestsPerMinute = opts.RateLimitPerMinute

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	s := &Server{
		svc:         svc,
		loc:         svc.Location(),
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(limiterCfg),
		detector:    security.NewDetector(),
		started:     time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("POST /api/transactions/{$}", s.handleAddTransaction)
	mux.HandleFunc("POST /api/transactions/transferAccounts", s.handleAddTransferAccount)
	mux.HandleFunc("GET /api/transactions/range", s.handleRange)
	mux.HandleFunc("GET /api/transactions/summary", s.handleSummary)
	mux.HandleFunc("GET /api/transactions/category-summary", s.handleCategorySummary)
	mux.HandleFunc("GET /api/transactions/excelReport", s.handleExcelReport)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metricsRegistry(), promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(handler)
	handler = s.flagSuspicious(handler)
	handler = chimw.Timeout(timeout)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = chimw.Recoverer(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders:   []string{"Content-Disposition", trace.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	})(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// flagSuspicious logs requests that look like probes. They are still served.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "HTTP server shutting down", applog.FieldOperation, applog.OpShutdown)
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
