package web

import (
	"net/http"
)

func (c *WebController) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /login", c.loginPageHandler)
	mux.HandleFunc("POST /login", c.loginSubmitHandler)

	// Protected routes
	mux.HandleFunc("/", c.RequireAuth(c.rootHandler))
	mux.HandleFunc("POST /logout", c.RequireAuth(c.logoutHandler))

	// List screen and its fragment
	mux.HandleFunc("GET "+BasePath, c.RequireAuth(c.listPageHandler))
	mux.HandleFunc("GET "+BasePath+"/table", c.RequireAuth(c.screenHandler))
	// Screen actions
	mux.HandleFunc("POST "+BasePath+"/create-click", c.RequireAuth(c.createClickHandler))
	mux.HandleFunc("POST "+BasePath+"/rows/{id}/click", c.RequireAuth(c.rowClickHandler))
	mux.HandleFunc("POST "+BasePath+"/rows/{id}/delete", c.RequireAuth(c.deleteClickHandler))
	mux.HandleFunc("POST "+BasePath+"/delete/cancel", c.RequireAuth(c.cancelDeleteHandler))
	mux.HandleFunc("POST "+BasePath+"/delete/confirm", c.RequireAuth(c.confirmDeleteHandler))
	mux.HandleFunc("POST "+BasePath+"/limit/dismiss", c.RequireAuth(c.dismissLimitHandler))
	// Create and detail views
	mux.HandleFunc("GET "+BasePath+"/create", c.RequireAuth(c.createPageHandler))
	mux.HandleFunc("POST "+BasePath+"/create", c.RequireAuth(c.createSubmitHandler))
	mux.HandleFunc("GET "+BasePath+"/{id}", c.RequireAuth(c.detailHandler))
}
