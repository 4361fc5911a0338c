package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"funneltrack/internal/core"
)

type spendingRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	FunnelID  string          `json:"funnel_id"`
}

func (s *Server) handleListSpendings(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var from, to int64
	var err error
	if from, err = queryInt64(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' timestamp")
		return
	}
	if to, err = queryInt64(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' timestamp")
		return
	}
	funnelID := strings.TrimSpace(r.URL.Query().Get("funnel_id"))

	spendings, err := s.spendings.List(r.Context(), claims.Username, funnelID, from, to)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if spendings == nil {
		spendings = []core.Spending{}
	}
	writeJSON(w, http.StatusOK, spendings)
}

func (s *Server) handleCreateSpending(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req spendingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	spending := core.Spending{
		Amount:    req.Amount,
		Timestamp: req.Timestamp,
		FunnelID:  req.FunnelID,
	}
	if err := spending.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := s.spendings.Create(r.Context(), claims.Username, spending)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdateSpending(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req spendingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	spending := core.Spending{
		ID:        r.PathValue("id"),
		Amount:    req.Amount,
		Timestamp: req.Timestamp,
		FunnelID:  req.FunnelID,
	}
	if err := spending.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.spendings.Update(r.Context(), claims.Username, spending); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSpending(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	if err := s.spendings.Delete(r.Context(), claims.Username, r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt64(r *http.Request, key string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
