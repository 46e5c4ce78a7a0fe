package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/domain"
)

var validate = validator.New()

// ─── Request Bodies ─────────────────────────────────────────────────────────

type quantityRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type goalRequest struct {
	Goal *int64 `json:"goal" validate:"required,gte=0"`
}

type amountRequest struct {
	Amount json.Number `json:"amount" validate:"required,numeric"`
}

func (a amountRequest) decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(string(a.Amount))
}

// decodeBody parses and validates a JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return decimal.Zero, false
	}
	amount, err := req.decimal()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return decimal.Zero, false
	}
	return amount, true
}

// pathUser resolves the {user} parameter; "me" stands for the caller.
func pathUser(r *http.Request) domain.UserID {
	user := chi.URLParam(r, "user")
	if user == "me" {
		return callerID(r)
	}
	return domain.UserID(user)
}

func callerID(r *http.Request) domain.UserID {
	return domain.UserID(r.Header.Get(UserHeader))
}

// ─── Quotas ─────────────────────────────────────────────────────────────────

func (s *Server) handleQuotaAdd(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item := domain.ItemID(chi.URLParam(r, "item"))
	out, err := s.ledger.QuotaAdd(r.Context(), pathUser(r), item, req.Quantity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuotaRemove(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item := domain.ItemID(chi.URLParam(r, "item"))
	out, err := s.ledger.QuotaRemove(r.Context(), pathUser(r), item, req.Quantity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuotaView(w http.ResponseWriter, r *http.Request) {
	showAll, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	out, err := s.ledger.QuotaView(r.Context(), pathUser(r), showAll)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuotaLeaderboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.ledger.QuotaLeaderboard(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"standings": out})
}

// ─── Goals ──────────────────────────────────────────────────────────────────

func (s *Server) handleGoalSet(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.ledger.GoalSet(r.Context(), domain.ItemID(chi.URLParam(r, "item")), *req.Goal)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGoalView(w http.ResponseWriter, r *http.Request) {
	out, err := s.ledger.GoalView(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": out})
}

// ─── Sales ──────────────────────────────────────────────────────────────────

func (s *Server) handleSalesAdd(w http.ResponseWriter, r *http.Request) {
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	out, err := s.ledger.SalesAdd(r.Context(), pathUser(r), amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSalesRemove(w http.ResponseWriter, r *http.Request) {
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	out, err := s.ledger.SalesRemove(r.Context(), pathUser(r), amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSalesMine(w http.ResponseWriter, r *http.Request) {
	out, err := s.ledger.SalesMine(r.Context(), callerID(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSalesView(w http.ResponseWriter, r *http.Request) {
	out, err := s.ledger.SalesView(r.Context(), pathUser(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSalesGoalSet(w http.ResponseWriter, r *http.Request) {
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	goal, err := s.ledger.SalesGoalSet(r.Context(), amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goal": goal})
}

func (s *Server) handleSalesLeaderboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.ledger.SalesLeaderboard(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"standings": out})
}

// ─── Admin ──────────────────────────────────────────────────────────────────

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ledger.State(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	out, err := s.ledger.Rollover(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
