package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, accounts, map[string]any{"count": len(accounts)})
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var in model.Account
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	id, err := s.store.CreateAccount(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]int64{"id": id}, nil)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	account, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, account, nil)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	reassignTo, err := queryInt64(r, "reassign_to")
	if err != nil {
		writeErr(w, err)
		return
	}
	result, err := s.store.DeleteAccount(r.Context(), id, reassignTo)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, result, nil)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	roots, err := queryBool(r, "roots", false)
	if err != nil {
		writeErr(w, err)
		return
	}
	var cats []model.Category
	if roots {
		cats, err = s.store.ListRootCategories(r.Context())
	} else {
		cats, err = s.store.ListCategories(r.Context())
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, cats, map[string]any{"count": len(cats), "roots": roots})
}

type categoryRequest struct {
	ParentID *int64 `json:"parent_id"`
	Name     string `json:"name"`
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	id, err := s.store.CreateCategory(r.Context(), in.Name, in.ParentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]int64{"id": id}, nil)
}

type seedRequest struct {
	Definitions json.RawMessage `json:"definitions"`
	Reset       bool            `json:"reset"`
}

func (s *Server) seedCategories(w http.ResponseWriter, r *http.Request) {
	var in seedRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	defs, err := storage.ParseCategoryDefinitions(in.Definitions)
	if err != nil {
		writeErr(w, err)
		return
	}
	result, err := s.store.SeedCategories(r.Context(), defs, in.Reset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, result, nil)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	cat, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, cat, nil)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var opts service.DeleteCategoryOptions
	if opts.ReassignTo, err = queryInt64(r, "reassign_to"); err != nil {
		writeErr(w, err)
		return
	}
	if opts.SingleNode, err = queryBool(r, "single_node", false); err != nil {
		writeErr(w, err)
		return
	}
	result, err := s.store.DeleteCategory(r.Context(), id, opts)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, result, nil)
}

func (s *Server) searchTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := searchFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	rows, err := s.store.SearchTransactions(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, rows, map[string]any{"filter": filter, "count": len(rows)})
}

func searchFilter(r *http.Request) (service.TransactionFilter, error) {
	q := r.URL.Query()
	f := service.TransactionFilter{
		Query:     q.Get("q"),
		Tags:      q.Get("tags"),
		Merchant:  q.Get("merchant"),
		Type:      q.Get("type"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}

	var err error
	if f.AccountID, err = queryInt64(r, "account_id"); err != nil {
		return f, err
	}
	if f.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		return f, err
	}
	if f.MinAmount, err = queryFloat(r, "min_amount"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = queryFloat(r, "max_amount"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit", service.DefaultSearchLimit); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in service.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	id, err := s.store.CreateTransaction(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]int64{"id": id}, nil)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	detail, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, detail, nil)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		writeErr(w, err)
		return
	}
	updated, err := s.store.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"updated": updated}, nil)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	deleted, err := s.store.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": deleted}, nil)
}

func (s *Server) addSplit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var in service.SplitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	splitID, err := s.store.AddSplit(r.Context(), id, in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]int64{"id": splitID}, nil)
}

func (s *Server) deleteSplit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	deleted, err := s.store.DeleteSplit(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": deleted}, nil)
}

type attachmentRequest struct {
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
}

func (s *Server) addAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var in attachmentRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	att, err := s.store.AddAttachment(r.Context(), id, in.Path, in.MimeType)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, att, nil)
}

func (s *Server) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	atts, err := s.store.ListAttachments(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, atts, map[string]any{"count": len(atts)})
}

type ruleRequest struct {
	Priority *int            `json:"priority"`
	Enabled  *bool           `json:"enabled"`
	When     model.RuleMatch `json:"when"`
	Set      model.Overrides `json:"set"`
}

func (s *Server) addRule(w http.ResponseWriter, r *http.Request) {
	var in ruleRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	rule := model.Rule{When: in.When, Set: in.Set, Priority: model.DefaultRulePriority, Enabled: true}
	if in.Priority != nil {
		rule.Priority = *in.Priority
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}
	id, err := s.store.AddRule(r.Context(), rule)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]int64{"id": id}, nil)
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRules(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, rules, map[string]any{"count": len(rules)})
}

func (s *Server) removeRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	deleted, err := s.store.RemoveRule(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": deleted}, nil)
}

func (s *Server) staleRules(w http.ResponseWriter, r *http.Request) {
	stale, err := StaleRules(r.Context(), s.store)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, stale, map[string]any{"count": len(stale)})
}

func (s *Server) listFxRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.store.ListFxRates(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, rates, map[string]any{"count": len(rates)})
}

func (s *Server) setFxRate(w http.ResponseWriter, r *http.Request) {
	var in model.FxRate
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.SetFxRate(r.Context(), in); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, in, nil)
}

func (s *Server) getFxRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rate, err := s.store.GetFxRate(r.Context(), q.Get("date"), strings.ToUpper(q.Get("from")), strings.ToUpper(q.Get("to")))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, rate, nil)
}

// requireQuery returns the named query value or a validation error.
func requireQuery(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", common.Validationf("%s is required", name)
	}
	return v, nil
}
