// Package httpapi exposes the staged coaching flow over REST. Stage
// endpoints mirror the conversation: 1 submits profile and goal details, 2
// submits food preferences, 3 asks for the plan and cart.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/coach"
	"nutrition-coach/internal/domain"
	"nutrition-coach/internal/plan"
)

// Server routes stage requests to the pipeline.
type Server struct {
	pipeline *coach.Pipeline
}

// NewServer creates the HTTP front-end over a pipeline.
func NewServer(pipeline *coach.Pipeline) *Server {
	return &Server{pipeline: pipeline}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /stage/1", s.handleStage(s.pipeline.SubmitIntake))
	mux.HandleFunc("POST /stage/2", s.handleStage(s.pipeline.SubmitPrefs))
	mux.HandleFunc("POST /stage/3", s.handlePlan)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

type stageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type stageResponse struct {
	SessionID string `json:"session_id"`
	coach.Reply
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleStage(op func(ctx context.Context, sessionID, text string) (coach.Reply, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeStageRequest(w, r, true)
		if !ok {
			return
		}
		reply, err := op(r.Context(), req.SessionID, req.Message)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stageResponse{SessionID: req.SessionID, Reply: reply})
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state := s.pipeline.Snapshot(r.PathValue("id"))
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Reset(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStageRequest(w, r, false)
	if !ok {
		return
	}
	reply, err := s.pipeline.RequestPlan(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stageResponse{SessionID: req.SessionID, Reply: reply})
}

func decodeStageRequest(w http.ResponseWriter, r *http.Request, needMessage bool) (stageRequest, bool) {
	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Kind: "bad_request"})
		return req, false
	}
	if needMessage && strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required", Kind: "bad_request"})
		return req, false
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	return req, true
}

func writeError(w http.ResponseWriter, err error) {
	var (
		validation *domain.ValidationError
		aggregate  *domain.AggregationError
		contract   *plan.ContractError
		upstream   *plan.UpstreamError
		stage      *coach.StageViolationError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "validation"})
	case errors.As(err, &stage):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "stage_violation"})
	case errors.As(err, &contract):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "generation_contract"})
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: "upstream_unavailable"})
	case errors.As(err, &aggregate):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "aggregation"})
	default:
		log.Error().Err(err).Msg("unhandled pipeline error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Kind: "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
