package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/spice-ledger/internal/importer"
	"github.com/Veraticus/spice-ledger/internal/report"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the ledger operations over HTTP.
type Server struct {
	store    service.Storage
	reports  *report.Aggregator
	importer *importer.Importer
	logger   *slog.Logger
}

// NewServer creates a server over store.
func NewServer(store service.Storage, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    store,
		reports:  report.NewAggregator(store),
		importer: importer.New(store),
		logger:   logger,
	}
}

// Routes returns the router with every operation mounted under /api/v1.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, http.StatusOK, "ok", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/accounts", s.listAccounts)
		r.Post("/accounts", s.createAccount)
		r.Get("/accounts/{id}", s.getAccount)
		r.Delete("/accounts/{id}", s.deleteAccount)

		r.Get("/categories", s.listCategories)
		r.Post("/categories", s.createCategory)
		r.Post("/categories/seed", s.seedCategories)
		r.Get("/categories/{id}", s.getCategory)
		r.Delete("/categories/{id}", s.deleteCategory)

		r.Get("/transactions", s.searchTransactions)
		r.Post("/transactions", s.createTransaction)
		r.Get("/transactions/{id}", s.getTransaction)
		r.Patch("/transactions/{id}", s.updateTransaction)
		r.Delete("/transactions/{id}", s.deleteTransaction)
		r.Post("/transactions/{id}/splits", s.addSplit)
		r.Delete("/splits/{id}", s.deleteSplit)
		r.Get("/transactions/{id}/attachments", s.listAttachments)
		r.Post("/transactions/{id}/attachments", s.addAttachment)

		r.Get("/budgets", s.listBudgets)
		r.Put("/budgets", s.setBudget)
		r.Delete("/budgets", s.deleteBudgets)
		r.Get("/budgets/{month}/summary", s.budgetSummary)

		r.Get("/goals", s.listGoals)
		r.Put("/goals", s.setGoal)
		r.Delete("/goals", s.deleteGoals)
		r.Get("/goals/{name}/progress", s.goalProgress)

		r.Get("/summary", s.summary)
		r.Get("/forecast", s.forecast)

		r.Get("/rules", s.listRules)
		r.Post("/rules", s.addRule)
		r.Get("/rules/stale", s.staleRules)
		r.Delete("/rules/{id}", s.removeRule)

		r.Get("/fx", s.listFxRates)
		r.Put("/fx", s.setFxRate)
		r.Get("/fx/lookup", s.getFxRate)

		r.Post("/import/csv", s.importCSV)
		r.Post("/import/ofx", s.importOFX)
		r.Get("/export", s.export)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
