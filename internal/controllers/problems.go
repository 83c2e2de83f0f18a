package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/moogar0880/problems"

	"github.com/RealZimboGuy/reviewflow/internal/repository"
	"github.com/RealZimboGuy/reviewflow/internal/services"
)

const problemContentType = "application/problem+json"

func writeProblem(w http.ResponseWriter, p *problems.Problem) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("Failed to encode problem", "error", err)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(r.URL.Path).
		WithType("validation_error").
		WithDetail(detail))
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, problems.NewStatusProblem(http.StatusUnauthorized).
		WithInstance(r.URL.Path).
		WithType("unauthorized").
		WithDetail("authentication required"))
}

func forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, problems.NewStatusProblem(http.StatusForbidden).
		WithInstance(r.URL.Path).
		WithType("forbidden").
		WithDetail(detail))
}

func notFound(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, problems.NewStatusProblem(http.StatusNotFound).
		WithInstance(r.URL.Path).
		WithType("not_found").
		WithDetail(detail))
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	writeProblem(w, problems.NewStatusProblem(http.StatusInternalServerError).
		WithInstance(r.URL.Path).
		WithType("internal_error").
		WithDetail("internal error"))
}

// handleServiceError maps service and repository errors onto problem responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case services.IsValidationError(err):
		badRequest(w, r, err.Error())

	case services.IsLimitError(err):
		writeProblem(w, problems.NewStatusProblem(http.StatusForbidden).
			WithInstance(r.URL.Path).
			WithType("limit_reached").
			WithDetail(err.Error()))

	case services.IsConflictError(err):
		writeProblem(w, problems.NewStatusProblem(http.StatusConflict).
			WithInstance(r.URL.Path).
			WithType("conflict").
			WithDetail(err.Error()))

	case repository.IsLastWorkflow(err):
		writeProblem(w, problems.NewStatusProblem(http.StatusConflict).
			WithInstance(r.URL.Path).
			WithType("last_workflow").
			WithDetail("the last remaining workflow cannot be deleted"))

	case repository.IsWorkflowNotFound(err):
		notFound(w, r, "workflow not found")

	default:
		internalError(w, r, err)
	}
}
