package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/export"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/middleware/security"
	"moneytracker/internal/middleware/trace"
	"moneytracker/internal/recurring"
)

// Ledger is the storage the API serves.
type Ledger interface {
	Ping(ctx context.Context) error

	EnsureMonth(ctx context.Context, month core.MonthKey) (int64, error)
	ListMonths(ctx context.Context) ([]core.MonthKey, error)

	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (int64, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListTransactions(ctx context.Context, month core.MonthKey) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error

	ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
	GetTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error)
	CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error)
	UpdateTemplate(ctx context.Context, id int64, patch core.TemplatePatch) (core.RecurringTemplate, error)
	DeleteTemplate(ctx context.Context, id int64) error

	ListBudgets(ctx context.Context, month core.MonthKey) ([]core.Budget, error)
	SetBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, month core.MonthKey, categoryID int64) error
	CopyBudgets(ctx context.Context, from, to core.MonthKey) (int, error)

	EnsureGoalRow(ctx context.Context, month core.MonthKey) error
	GetGoal(ctx context.Context, month core.MonthKey) (core.Goal, error)
	SetGoal(ctx context.Context, g core.Goal) error

	MonthSummary(ctx context.Context, month core.MonthKey) (core.MonthSummary, error)
	MonthTrends(ctx context.Context, n int) ([]core.MonthTrend, error)
}

// Applier runs the recurring engine.
type Applier interface {
	Apply(ctx context.Context, monthKey string, overrides core.Overrides) (recurring.Result, error)
}

// MonthPorter moves whole months in and out.
type MonthPorter interface {
	Export(ctx context.Context, monthKey string) (export.MonthExport, error)
	Import(ctx context.Context, doc export.MonthExport, overwrite bool) (core.ImportResult, error)
}

// Deps are the collaborators a Server needs. Notifier and RateLimit are optional.
type Deps struct {
	Ledger    Ledger
	Engine    Applier
	Porter    MonthPorter
	Notifier  core.TransactionNotifier
	Logger    *log.Logger
	RateLimit ratelimit.Config
}

// EventSourceAPI tags transaction events for rows created through the API.
const EventSourceAPI = "api"

type Server struct {
	http.Server
	ledger   Ledger
	engine   Applier
	porter   MonthPorter
	notifier core.TransactionNotifier
	logger   *log.Logger
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:   deps.Ledger,
		engine:   deps.Engine,
		porter:   deps.Porter,
		notifier: deps.Notifier,
		logger:   logger.WithComponent(log.ComponentHTTP),
		tracer:   trace.NewMiddleware(logger),
		limiter:  ratelimit.NewLimiter(deps.RateLimit),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/months", s.handleListMonths)
	mux.HandleFunc("POST /api/months", s.handleCreateMonth)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/recurring", s.handleListTemplates)
	mux.HandleFunc("POST /api/recurring", s.handleCreateTemplate)
	mux.HandleFunc("GET /api/recurring/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/recurring/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/recurring/apply", s.handleApplyRecurring)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets", s.handleDeleteBudget)
	mux.HandleFunc("POST /api/budgets/copy", s.handleCopyBudgets)

	mux.HandleFunc("GET /api/goals", s.handleGetGoal)
	mux.HandleFunc("PUT /api/goals", s.handleSetGoal)
	mux.HandleFunc("POST /api/goals", s.handleSetGoal)
	mux.HandleFunc("POST /api/goal", s.handleSetGoal)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trends", s.handleTrends)

	mux.HandleFunc("GET /api/month/export", s.handleExportMonth)
	mux.HandleFunc("POST /api/month/import", s.handleImportMonth)

	limit := s.limiter.Middleware(security.ClientIP, mutating, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, security.ClientIP(r))
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(headers.Middleware(limit(mux)))

	return s
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// mutating reports whether r changes state and so counts against the rate limit.
func mutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// notifyCreated publishes a transaction event when a notifier is configured.
// Failures are logged and never reach the client.
func (s *Server) notifyCreated(r *http.Request, id int64, month core.MonthKey) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TransactionCreated(r.Context(), id, month, EventSourceAPI); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Transaction event not published",
			log.FieldTxID, id,
			log.FieldMonthKey, month,
			log.FieldError, err)
	}
}
