package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Veraticus/spice-ledger/internal/importer"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/pattern"
	"github.com/Veraticus/spice-ledger/internal/report"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/go-chi/chi/v5"
)

type budgetRequest struct {
	Month      string           `json:"month_yyyymm"`
	Amount     ledger.RawAmount `json:"amount"`
	CategoryID int64            `json:"category_id"`
}

func (s *Server) setBudget(w http.ResponseWriter, r *http.Request) {
	var in budgetRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.SetBudget(r.Context(), in.Month, in.CategoryID, in.Amount); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, in, nil)
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	budgets, err := s.store.ListBudgets(r.Context(), month)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, budgets, map[string]any{"month_yyyymm": month, "count": len(budgets)})
}

func (s *Server) deleteBudgets(w http.ResponseWriter, r *http.Request) {
	var filter service.BudgetFilter
	if month := r.URL.Query().Get("month"); month != "" {
		filter.Month = &month
	}
	var err error
	if filter.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		writeErr(w, err)
		return
	}
	if filter.All, err = queryBool(r, "all", false); err != nil {
		writeErr(w, err)
		return
	}
	result, err := s.store.DeleteBudgets(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, result, nil)
}

func (s *Server) budgetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reports.BudgetSummary(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, summary.Lines, map[string]any{
		"month_yyyymm": summary.Month,
		"start":        summary.Start,
		"end":          summary.End,
	})
}

type goalRequest struct {
	Name       string           `json:"name"`
	Target     ledger.RawAmount `json:"target_amount"`
	TargetDate string           `json:"target_date"`
}

func (s *Server) setGoal(w http.ResponseWriter, r *http.Request) {
	var in goalRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.SetGoal(r.Context(), in.Name, in.Target, in.TargetDate); err != nil {
		writeErr(w, err)
		return
	}
	goal, err := s.store.GetGoal(r.Context(), in.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, goal, nil)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, goals, map[string]any{"count": len(goals)})
}

func (s *Server) deleteGoals(w http.ResponseWriter, r *http.Request) {
	all, err := queryBool(r, "all", false)
	if err != nil {
		writeErr(w, err)
		return
	}
	deleted, err := s.store.DeleteGoals(r.Context(), r.URL.Query().Get("name"), all)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": deleted}, nil)
}

func (s *Server) goalProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	progress, err := s.reports.GoalProgress(r.Context(), chi.URLParam(r, "name"), q.Get("start"), q.Get("end"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, progress, nil)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	start, err := requireQuery(r, "start")
	if err != nil {
		writeErr(w, err)
		return
	}
	end, err := requireQuery(r, "end")
	if err != nil {
		writeErr(w, err)
		return
	}
	summary, err := s.reports.Summary(r.Context(), start, end, r.URL.Query().Get("group_by"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, summary.Rows, map[string]any{
		"start":    summary.Start,
		"end":      summary.End,
		"group_by": summary.GroupBy,
	})
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months", 3)
	if err != nil {
		writeErr(w, err)
		return
	}
	forecast, err := s.reports.Forecast(r.Context(), months)
	if err != nil {
		writeErr(w, err)
		return
	}
	meta := map[string]any{"months": report.ClampMonths(months)}
	if forecast.Note != "" {
		meta["note"] = forecast.Note
	}
	writeOK(w, http.StatusOK, forecast, meta)
}

func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, s.importer.ImportCSV)
}

func (s *Server) importOFX(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, s.importer.ImportOFX)
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, run func(context.Context, io.Reader, importer.Options) (importer.Result, error)) {
	opts, err := importOptions(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	result, err := run(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes), opts)
	meta := map[string]any{"batch_id": result.BatchID, "dry_run": opts.DryRun, "inserted": result.Inserted}
	if err != nil {
		writeEnvelope(w, StatusFor(err), Err(err, meta))
		return
	}
	writeOK(w, http.StatusOK, result, meta)
}

func importOptions(r *http.Request) (importer.Options, error) {
	opts := importer.DefaultOptions()

	var err error
	if opts.DryRun, err = queryBool(r, "dry_run", true); err != nil {
		return opts, err
	}
	if opts.AccountID, err = queryInt64(r, "account_id"); err != nil {
		return opts, err
	}
	if t := r.URL.Query().Get("default_type"); t != "" {
		if opts.DefaultType, err = ledger.ParseTransactionType(t); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := importer.Export(r.Context(), s.store, importer.ExportOptions{
		Format:    q.Get("format"),
		StartDate: q.Get("start"),
		EndDate:   q.Get("end"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, result, map[string]any{"count": result.Count, "format": result.Format})
}

// StaleRules reports rules whose category override no longer exists.
func StaleRules(ctx context.Context, store service.Storage) ([]pattern.StaleReference, error) {
	rules, err := store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	cats, err := store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	ids := make([]int64, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	stale := pattern.StaleReferences(rules, ids)
	if stale == nil {
		stale = []pattern.StaleReference{}
	}
	return stale, nil
}
