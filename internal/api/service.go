// Package api exposes the simulation engine to presentation code over HTTP
// and WebSocket. Handlers are a thin command/query adapter: all business
// rules live in the engine.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/engine"
	"github.com/paperdesk/sim-engine/internal/model"
)

// Service handles the HTTP surface of the engine.
type Service struct {
	engine *engine.Engine
}

// NewService creates the HTTP adapter for an engine.
func NewService(e *engine.Engine) *Service {
	return &Service{engine: e}
}

// Routes registers all engine endpoints on a chi router.
func (s *Service) Routes(r chi.Router) {
	r.Post("/orders", s.SubmitOrder)
	r.Get("/orders", s.ListOrders)
	r.Delete("/orders/{orderID}", s.CancelOrder)

	r.Post("/strategies", s.DeployStrategy)
	r.Get("/strategies", s.ListStrategies)
	r.Post("/strategies/{strategyID}/stop", s.StopStrategy)

	r.Get("/positions", s.ListPositions)
	r.Post("/positions/{positionID}/close", s.ClosePosition)

	r.Get("/history", s.GetHistory)
	r.Get("/pnl", s.GetTotalPnL)
	r.Post("/portfolio/reset", s.ResetPortfolio)
}

// SubmitOrder handles POST /api/v1/orders.
func (s *Service) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var spec engine.OrderSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.engine.SubmitOrder(r.Context(), spec)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidOrderSpec) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, "failed to submit order", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"order_id": id})
}

// ListOrders handles GET /api/v1/orders.
func (s *Service) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.engine.GetOrders(r.Context())
	if err != nil {
		writeError(w, "failed to list orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// CancelOrder handles DELETE /api/v1/orders/{orderID}. Cancellation of a
// terminal or unknown order is a no-op, so this always succeeds.
func (s *Service) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CancelOrder(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		writeError(w, "failed to cancel order", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeployStrategy handles POST /api/v1/strategies.
func (s *Service) DeployStrategy(w http.ResponseWriter, r *http.Request) {
	var cfg model.StrategyConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	strategy, proj, err := s.engine.DeployStrategy(r.Context(), cfg)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidStrategyConfig) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, "failed to deploy strategy", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"strategy":   strategy,
		"projection": proj,
	})
}

// ListStrategies handles GET /api/v1/strategies.
func (s *Service) ListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.engine.GetStrategies(r.Context())
	if err != nil {
		writeError(w, "failed to list strategies", http.StatusInternalServerError)
		return
	}
	if strategies == nil {
		strategies = []model.Strategy{}
	}
	writeJSON(w, http.StatusOK, strategies)
}

// StopStrategy handles POST /api/v1/strategies/{strategyID}/stop.
func (s *Service) StopStrategy(w http.ResponseWriter, r *http.Request) {
	err := s.engine.StopStrategy(r.Context(), chi.URLParam(r, "strategyID"))
	if err != nil {
		if errors.Is(err, engine.ErrStrategyNotFound) {
			writeError(w, "strategy not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to stop strategy", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPositions handles GET /api/v1/positions, optionally filtered by
// ?exchange=<name>. Only open positions are returned.
func (s *Service) ListPositions(w http.ResponseWriter, r *http.Request) {
	var positions []model.Position
	var err error

	if exchange := r.URL.Query().Get("exchange"); exchange != "" {
		positions, err = s.engine.GetPositionsByExchange(r.Context(), exchange)
	} else {
		positions, err = s.engine.GetOpenPositions(r.Context())
	}
	if err != nil {
		writeError(w, "failed to list positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// closeRequest is the JSON body for POST /positions/{id}/close.
type closeRequest struct {
	ExitPrice decimal.Decimal `json:"exit_price"`
}

// ClosePosition handles POST /api/v1/positions/{positionID}/close.
func (s *Service) ClosePosition(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pos, err := s.engine.ClosePosition(r.Context(), chi.URLParam(r, "positionID"), req.ExitPrice)
	if err != nil {
		if errors.Is(err, engine.ErrPositionNotFound) {
			writeError(w, "position not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to close position", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, pos)
}

// GetHistory handles GET /api/v1/history.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.GetHistory(r.Context())
	if err != nil {
		writeError(w, "failed to get history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetTotalPnL handles GET /api/v1/pnl.
func (s *Service) GetTotalPnL(w http.ResponseWriter, r *http.Request) {
	total, err := s.engine.GetTotalPnL(r.Context())
	if err != nil {
		writeError(w, "failed to compute pnl", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"total_pnl": total})
}

// ResetPortfolio handles POST /api/v1/portfolio/reset.
func (s *Service) ResetPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetPortfolio(r.Context()); err != nil {
		writeError(w, "failed to reset portfolio", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
