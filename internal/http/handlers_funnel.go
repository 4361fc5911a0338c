package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"funneltrack/internal/core"
)

type funnelRequest struct {
	Name  string          `json:"name"`
	Limit decimal.Decimal `json:"limit"`
	Color string          `json:"color"`
	Emoji string          `json:"emoji"`
}

func (s *Server) handleListFunnels(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	views, err := s.funnels.List(r.Context(), claims.Username)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if views == nil {
		views = []core.FunnelView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetFunnel(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	view, err := s.funnels.Get(r.Context(), r.PathValue("id"), claims.Username)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateFunnel(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req funnelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	funnel := core.Funnel{
		Name:  req.Name,
		Limit: req.Limit,
		Color: req.Color,
		Emoji: req.Emoji,
		Owner: claims.Username,
	}
	if err := funnel.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	view, err := s.funnels.Create(r.Context(), funnel)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateFunnel(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req funnelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	funnel := core.Funnel{
		ID:    r.PathValue("id"),
		Name:  req.Name,
		Limit: req.Limit,
		Color: req.Color,
		Emoji: req.Emoji,
		Owner: claims.Username,
	}
	if err := funnel.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.funnels.Update(r.Context(), funnel); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteFunnel(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	if err := s.funnels.Delete(r.Context(), r.PathValue("id"), claims.Username); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
