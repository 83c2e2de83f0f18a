package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *ReviewWorkflowsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/review-workflows", c.RequireAuth(c.handleListWorkflows))
	mux.HandleFunc("POST /api/review-workflows", c.RequireAuth(c.handleCreateWorkflow))
	mux.HandleFunc("GET /api/review-workflows/{id}", c.RequireAuth(c.handleGetWorkflow))
	mux.HandleFunc("PUT /api/review-workflows/{id}", c.RequireAuth(c.handleUpdateWorkflow))
	mux.HandleFunc("DELETE /api/review-workflows/{id}", c.RequireAuth(c.handleDeleteWorkflow))
	mux.HandleFunc("GET /api/content-types", c.RequireAuth(c.handleListContentTypes))
	mux.HandleFunc("GET /api/license-limits/{feature}", c.RequireAuth(c.handleGetLicenseLimits))
}

func (c *UsersController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/me", c.RequireAuth(c.handleMe))
}
