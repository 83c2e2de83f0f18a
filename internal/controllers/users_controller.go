package controllers

import (
	"net/http"

	"github.com/RealZimboGuy/reviewflow/internal/listview"
	"github.com/RealZimboGuy/reviewflow/internal/util"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

type UsersController struct {
	AuthController
	Permissions listview.PermissionEvaluator
}

func NewUsersController(auth AuthController, permissions listview.PermissionEvaluator) *UsersController {
	return &UsersController{AuthController: auth, Permissions: permissions}
}

type meResponse struct {
	Username    string               `json:"username"`
	Role        string               `json:"role"`
	Permissions domain.PermissionSet `json:"permissions"`
}

// handleMe returns the caller and what they may do with review workflows.
func (c *UsersController) handleMe(w http.ResponseWriter, r *http.Request) {
	username := Username(r.Context())
	u, err := c.UserRepo.FindByUsername(r.Context(), username)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if u == nil {
		unauthorized(w, r)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, dataResponse{Data: meResponse{
		Username:    u.Username,
		Role:        u.Role,
		Permissions: c.Permissions.Evaluate(r.Context(), username, domain.ScopeReviewWorkflows),
	}})
}
