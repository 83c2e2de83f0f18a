package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealZimboGuy/reviewflow/internal/services"
	"github.com/RealZimboGuy/reviewflow/internal/util"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

type listResponse struct {
	Data []domain.Workflow      `json:"data"`
	Meta domain.WorkflowListMeta `json:"meta"`
}

type workflowResponse struct {
	Data domain.Workflow `json:"data"`
}

type problem struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

var client = &http.Client{Timeout: 10 * time.Second}

func Call(t *testing.T, port int, apiKey, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, fmt.Sprintf("http://localhost:%d%s", port, path), reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func ListWorkflows(t *testing.T, port int) listResponse {
	t.Helper()
	resp := Call(t, port, ApiKey, "GET", "/api/review-workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list, err := util.DecodeJSONBodyResponse[listResponse](resp)
	require.NoError(t, err)
	return list
}

func expectProblem(t *testing.T, resp *http.Response, status int, kind string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	p, err := util.DecodeJSONBodyResponse[problem](resp)
	require.NoError(t, err)
	assert.Equal(t, kind, p.Type)
}

// RunReviewWorkflowScenario walks the API through the life of the workflow
// list: the seeded default, creation with its conflicts, the permission checks
// and the last-workflow rule on delete.
func RunReviewWorkflowScenario(t *testing.T, port int) {
	list := ListWorkflows(t, port)
	require.Len(t, list.Data, 1)
	assert.Equal(t, domain.DefaultWorkflowID, list.Data[0].ID)
	assert.Equal(t, 1, list.Meta.WorkflowCount)

	in := services.WorkflowInput{
		Name:         "Legal",
		Stages:       []services.StageInput{{Name: "Draft"}, {Name: "Legal check", Color: "#FF0000"}},
		ContentTypes: []string{"api::article.article"},
	}
	resp := Call(t, port, ApiKey, "POST", "/api/review-workflows", in)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created, err := util.DecodeJSONBodyResponse[workflowResponse](resp)
	require.NoError(t, err)
	assert.NotEmpty(t, created.Data.ID)
	require.Len(t, created.Data.Stages, 2)

	expectProblem(t, Call(t, port, ApiKey, "POST", "/api/review-workflows", in), http.StatusConflict, "conflict")

	in.Name = "Marketing"
	expectProblem(t, Call(t, port, ApiKey, "POST", "/api/review-workflows", in), http.StatusConflict, "conflict")

	expectProblem(t, Call(t, port, ApiKey, "POST", "/api/review-workflows", services.WorkflowInput{Name: "No stages"}),
		http.StatusBadRequest, "validation_error")

	expectProblem(t, Call(t, port, EditorApiKey, "DELETE", "/api/review-workflows/"+created.Data.ID, nil),
		http.StatusForbidden, "forbidden")

	resp = Call(t, port, ApiKey, "GET", "/api/review-workflows/"+created.Data.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := util.DecodeJSONBodyResponse[workflowResponse](resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"api::article.article"}, got.Data.ContentTypes)

	list = ListWorkflows(t, port)
	assert.Equal(t, 2, list.Meta.WorkflowCount)

	resp = Call(t, port, ApiKey, "DELETE", "/api/review-workflows/"+domain.DefaultWorkflowID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	expectProblem(t, Call(t, port, ApiKey, "DELETE", "/api/review-workflows/"+created.Data.ID, nil),
		http.StatusConflict, "last_workflow")

	expectProblem(t, Call(t, port, ApiKey, "GET", "/api/review-workflows/"+domain.DefaultWorkflowID, nil),
		http.StatusNotFound, "not_found")

	list = ListWorkflows(t, port)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Legal", list.Data[0].Name)
}

// RunLicenseScenario checks that the API refuses a workflow beyond the plan.
func RunLicenseScenario(t *testing.T, port int) {
	resp := Call(t, port, ApiKey, "GET", "/api/license-limits/"+domain.FeatureReviewWorkflows, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	limits, err := util.DecodeJSONBodyResponse[struct {
		Data domain.Limits `json:"data"`
	}](resp)
	require.NoError(t, err)
	require.Equal(t, "1", limits.Data[domain.EntitlementWorkflows])

	in := services.WorkflowInput{Name: "Second", Stages: []services.StageInput{{Name: "Draft"}}}
	expectProblem(t, Call(t, port, ApiKey, "POST", "/api/review-workflows", in), http.StatusForbidden, "limit_reached")

	resp = Call(t, port, ApiKey, "GET", "/api/users/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me, err := util.DecodeJSONBodyResponse[struct {
		Data struct {
			Username    string               `json:"username"`
			Permissions domain.PermissionSet `json:"permissions"`
		} `json:"data"`
	}](resp)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Data.Username)
	assert.True(t, me.Data.Permissions.CanCreate)
}
