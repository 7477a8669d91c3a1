package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"expenseview/internal/cache"
	"expenseview/internal/core"
	"expenseview/internal/form"
	applog "expenseview/internal/log"
	"expenseview/internal/metrics"
	"expenseview/internal/middleware/ratelimit"
	"expenseview/internal/middleware/security"
	"expenseview/internal/middleware/trace"
	appweb "expenseview/web"
)

// ExpenseView is the read side of the synchronizer.
type ExpenseView interface {
	Snapshot() cache.Snapshot
}

// FormController is the add-expense form.
type FormController interface {
	View() form.View
	Toggle() form.View
	SubmitDraft(ctx context.Context, d core.Draft) (core.Expense, error)
	DismissAlert()
}

// Config holds server settings.
type Config struct {
	Addr                string
	RefreshInterval     time.Duration
	SubmitRatePerMinute int
	Logger              *applog.Logger
	// Templates and Static default to the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

// Server renders the expense view.
type Server struct {
	http.Server
	templates   *template.Template
	view        ExpenseView
	forms       FormController
	logger      *applog.Logger
	refresh     time.Duration
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(cfg Config, view ExpenseView, forms FormController) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.Templates == nil {
		cfg.Templates = appweb.TemplatesFS
	}
	if cfg.Static == nil {
		cfg.Static = appweb.StaticFS
	}

	logger := cfg.Logger.WithComponent(applog.ComponentHTTP)

	t, err := template.ParseFS(cfg.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector, err := security.NewDetector()
	if err != nil {
		return nil, err
	}
	detector.OnSuspicious(func(*http.Request) { metrics.SuspiciousRequest() })

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		templates:   t,
		view:        view,
		forms:       forms,
		logger:      logger,
		refresh:     cfg.RefreshInterval,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.SubmitRatePerMinute}),
		detector:    detector,
		started:     time.Now(),
	}

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(cfg.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	limitPOST := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/expenses", s.handleExpenses)
	mux.HandleFunc("POST /ui/form/toggle", s.handleToggleForm)
	mux.HandleFunc("POST /ui/alert/dismiss", s.handleDismissAlert)
	mux.Handle("POST /expense", limitPOST(http.HandlerFunc(s.handleCreateExpense)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger.Logger, detector.ExtractClientIP)

	var handler http.Handler = mux
	handler = detector.Middleware(logger.Logger)(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)
	s.Handler = handler

	return s, nil
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// render executes a named template into a buffer so a failure never leaves
// a half-written response.
func (s *Server) render(ctx context.Context, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(ctx, "Template render failed",
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorTypeInternal)
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	body, err := s.render(r.Context(), name, data)
	if err != nil {
		InternalServerError("render failed").Write(w)
		return
	}
	b.BodyHTML(body).Write(w)
}
