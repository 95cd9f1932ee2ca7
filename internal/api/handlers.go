package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hugo-lorenzo-mato/askdb/internal/core"
)

type askRequest struct {
	Question string `json:"question"`
}

type runSQLRequest struct {
	SQL string `json:"sql"`
}

// handleAsk runs one question through the workflow and returns the
// final response. The body is always well-formed JSON with answer,
// plot_config and sql fields, even on the workflow's failure path.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		var domainErr *core.DomainError
		if errors.As(err, &domainErr) && domainErr.Category == core.ErrCatValidation {
			respondError(w, http.StatusBadRequest, core.UserMessage(err))
			return
		}
		s.logger.Error("ask failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleRunSQL validates and executes raw SQL, returning the execution
// result. Gateway rejections and execution failures map to 400 with the
// sanitized message. Idempotent because only read-only SQL can pass the
// gateway.
func (s *Server) handleRunSQL(w http.ResponseWriter, r *http.Request) {
	var req runSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sql := strings.TrimSpace(req.SQL)
	if sql == "" {
		respondError(w, http.StatusBadRequest, "SQL cannot be empty.")
		return
	}

	result := s.executor.Execute(r.Context(), sql)
	if !result.OK() {
		message := result.ErrorMessage
		if message == "" {
			message = "SQL run failed."
		}
		respondError(w, http.StatusBadRequest, message)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleSchema returns the column metadata for the allow-listed tables.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.inspector.Inspect(r.Context())
	if err != nil {
		s.logger.Error("schema inspection failed", "error", err.Error())
		status := http.StatusInternalServerError
		var domainErr *core.DomainError
		if errors.As(err, &domainErr) &&
			(domainErr.Category == core.ErrCatValidation || domainErr.Category == core.ErrCatConfig) {
			status = http.StatusBadRequest
		}
		respondError(w, status, core.UserMessage(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"table_schemas": schemas})
}
