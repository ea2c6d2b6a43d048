package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"costbook/internal/chart"
	"costbook/internal/core"
	"costbook/internal/log"
	"costbook/internal/middleware/security"
	"costbook/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	summary := s.tracker.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"checks": map[string]any{
			"state": map[string]any{
				"items": summary.ItemCount,
				"costs": summary.CostCount,
			},
			"rate_limiter": s.limiter.Metrics(),
		},
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).Warn("Rate limit exceeded", "client_ip", security.ClientIP(r))
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseViewConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.ItemView(cfg))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var in itemInput
	if !decodeBody(w, r, &in) {
		return
	}
	it, err := s.tracker.AddItem(r.Context(), in.Name, string(in.Cost))
	if err != nil {
		s.writeMutationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var in itemInput
	if !decodeBody(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	it, found, err := s.tracker.UpdateItem(r.Context(), id, in.Name, string(in.Cost))
	switch {
	case err != nil:
		s.writeMutationError(w, r, err)
	case !found:
		writeError(w, http.StatusNotFound, "item not found")
	default:
		writeJSON(w, http.StatusOK, it)
	}
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.DeleteItem(r.Context(), chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCosts(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseViewConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.CostView(cfg))
}

func (s *Server) handleCreateCost(w http.ResponseWriter, r *http.Request) {
	var in costInput
	if !decodeBody(w, r, &in) {
		return
	}
	c, err := s.tracker.AddCost(r.Context(), in.Description, string(in.Amount))
	if err != nil {
		s.writeMutationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCost(w http.ResponseWriter, r *http.Request) {
	var in costInput
	if !decodeBody(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	c, found, err := s.tracker.UpdateCost(r.Context(), id, in.Description, string(in.Amount))
	switch {
	case err != nil:
		s.writeMutationError(w, r, err)
	case !found:
		writeError(w, http.StatusNotFound, "cost not found")
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) handleDeleteCost(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.DeleteCost(r.Context(), chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "cost not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Summary())
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var bundle chart.Bundle
	if kind == core.KindItems {
		bundle = s.tracker.ItemCharts()
	} else {
		bundle = s.tracker.CostCharts()
	}
	writeJSON(w, http.StatusOK, bundle)
}

// handleSync replaces local state with the remote copy.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	err := s.tracker.Hydrate(r.Context())
	switch {
	case errors.Is(err, services.ErrNoRemote):
		writeError(w, http.StatusConflict, "sync requires a signed-in user and a remote backend")
	case err != nil:
		log.FromContext(r.Context()).Error("Sync failed", log.FieldOperation, log.OpSync, log.FieldError, err)
		writeError(w, http.StatusBadGateway, "remote store unavailable")
	default:
		writeJSON(w, http.StatusOK, s.tracker.Summary())
	}
}

// writeMutationError maps validation failures to 400; anything else is
// unexpected.
func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	if isValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.FromContext(r.Context()).Error("Mutation failed", log.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func isValidation(err error) bool {
	for _, target := range []error{
		core.ErrEmptyName,
		core.ErrEmptyDescription,
		core.ErrInvalidAmount,
		core.ErrTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
