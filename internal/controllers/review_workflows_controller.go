package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/reviewflow/internal/listview"
	"github.com/RealZimboGuy/reviewflow/internal/services"
	"github.com/RealZimboGuy/reviewflow/internal/util"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// WorkflowAdmin is implemented by services.WorkflowAdminService.
type WorkflowAdmin interface {
	Get(ctx context.Context, id string) (*domain.Workflow, error)
	Create(ctx context.Context, in services.WorkflowInput) (*domain.Workflow, error)
	Update(ctx context.Context, id string, in services.WorkflowInput) (*domain.Workflow, error)
}

// ReviewWorkflowsController serves the review workflow JSON API.
type ReviewWorkflowsController struct {
	AuthController
	Workflows    listview.WorkflowService
	Admin        WorkflowAdmin
	ContentTypes listview.ContentTypeRegistry
	License      listview.LicenseResolver
	Permissions  listview.PermissionEvaluator
}

func NewReviewWorkflowsController(
	auth AuthController,
	workflows listview.WorkflowService,
	admin WorkflowAdmin,
	contentTypes listview.ContentTypeRegistry,
	license listview.LicenseResolver,
	permissions listview.PermissionEvaluator,
) *ReviewWorkflowsController {
	return &ReviewWorkflowsController{
		AuthController: auth,
		Workflows:      workflows,
		Admin:          admin,
		ContentTypes:   contentTypes,
		License:        license,
		Permissions:    permissions,
	}
}

type listResponse struct {
	Data []domain.Workflow      `json:"data"`
	Meta domain.WorkflowListMeta `json:"meta"`
}

type dataResponse struct {
	Data any `json:"data"`
}

// allowed answers 403 and returns false when the caller lacks the action.
func (c *ReviewWorkflowsController) allowed(w http.ResponseWriter, r *http.Request, action string) bool {
	perms := c.Permissions.Evaluate(r.Context(), Username(r.Context()), domain.ScopeReviewWorkflows)
	if perms.Allows(action) {
		return true
	}
	forbidden(w, r, "missing permission "+domain.PermissionAction(domain.ScopeReviewWorkflows, action))
	return false
}

func (c *ReviewWorkflowsController) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	if !c.allowed(w, r, domain.ActionRead) {
		return
	}
	items, meta, err := c.Workflows.ListWorkflows(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, listResponse{Data: items, Meta: meta})
}

func (c *ReviewWorkflowsController) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	if !c.allowed(w, r, domain.ActionRead) {
		return
	}
	wf, err := c.Admin.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, dataResponse{Data: wf})
}

func (c *ReviewWorkflowsController) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	if !c.allowed(w, r, domain.ActionCreate) {
		return
	}
	in, err := util.DecodeJSONBody[services.WorkflowInput](w, r)
	if err != nil {
		badRequest(w, r, "Invalid JSON format")
		return
	}
	wf, err := c.Admin.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusCreated, dataResponse{Data: wf})
}

func (c *ReviewWorkflowsController) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	if !c.allowed(w, r, domain.ActionUpdate) {
		return
	}
	in, err := util.DecodeJSONBody[services.WorkflowInput](w, r)
	if err != nil {
		badRequest(w, r, "Invalid JSON format")
		return
	}
	wf, err := c.Admin.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, dataResponse{Data: wf})
}

func (c *ReviewWorkflowsController) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if !c.allowed(w, r, domain.ActionDelete) {
		return
	}
	id := r.PathValue("id")
	if err := c.Workflows.DeleteWorkflow(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Workflow deleted via API", "workflowId", id, "username", Username(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (c *ReviewWorkflowsController) handleListContentTypes(w http.ResponseWriter, r *http.Request) {
	if !c.allowed(w, r, domain.ActionRead) {
		return
	}
	items, err := c.ContentTypes.ListContentTypes(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, dataResponse{Data: items})
}

func (c *ReviewWorkflowsController) handleGetLicenseLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := c.License.FeatureLimits(r.Context(), r.PathValue("feature"))
	if err != nil {
		internalError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, dataResponse{Data: limits})
}
