package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RealZimboGuy/reviewflow/internal/controllers"
	"github.com/RealZimboGuy/reviewflow/internal/listview"
	"github.com/RealZimboGuy/reviewflow/internal/notification"
	"github.com/RealZimboGuy/reviewflow/internal/repository"
	"github.com/RealZimboGuy/reviewflow/internal/services"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

const testSession = "sess-1"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// MockUserRepo implements UserRepo for testing
type MockUserRepo struct {
	mu            sync.Mutex
	users         map[string]*domain.User
	sessions      map[string]string
	clearedID     string
	updatedExpiry time.Time
}

func newMockUserRepo() *MockUserRepo {
	return &MockUserRepo{
		users: map[string]*domain.User{
			"admin": {ID: 1, Username: "admin", Role: domain.RoleSuperAdmin},
		},
		sessions: map[string]string{testSession: "admin"},
	}
}

func (m *MockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[username], nil
}
func (m *MockUserRepo) FindBySessionID(_ context.Context, sessionID string, _ time.Time) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name, ok := m.sessions[sessionID]; ok {
		return m.users[name], nil
	}
	return nil, nil
}
func (m *MockUserRepo) FindByApiKey(context.Context, string) (*domain.User, error) {
	return nil, nil
}
func (m *MockUserRepo) UpdateSession(_ context.Context, userID int64, sessionID string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			m.sessions[sessionID] = u.Username
		}
	}
	m.updatedExpiry = expiry
	return nil
}
func (m *MockUserRepo) ClearSessionBySessionID(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	m.clearedID = sessionID
	return nil
}

type MockWorkflows struct {
	mu      sync.Mutex
	items   []domain.Workflow
	deleted []string
}

func (m *MockWorkflows) ListWorkflows(context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Workflow(nil), m.items...)
	return out, domain.WorkflowListMeta{WorkflowCount: len(out)}, nil
}
func (m *MockWorkflows) DeleteWorkflow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	for i, wf := range m.items {
		if wf.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrWorkflowNotFound
}

type MockContentTypes struct{}

func (MockContentTypes) ListContentTypes(context.Context) ([]domain.ContentType, error) {
	return []domain.ContentType{
		{UID: "api::article.article", DisplayName: "Article"},
		{UID: "api::page.page", DisplayName: "Page"},
	}, nil
}

type MockLicense struct{ limits domain.Limits }

func (m MockLicense) FeatureLimits(context.Context, string) (domain.Limits, error) {
	return m.limits, nil
}

type MockPermissions struct{ set domain.PermissionSet }

func (m MockPermissions) Evaluate(context.Context, string, string) domain.PermissionSet {
	return m.set
}

type MockTracker struct {
	mu     sync.Mutex
	events []string
}

func (m *MockTracker) Track(_ context.Context, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockTracker) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

type MockAdmin struct {
	CreateFunc func(in services.WorkflowInput) (*domain.Workflow, error)
	GetFunc    func(id string) (*domain.Workflow, error)
}

func (m *MockAdmin) Get(_ context.Context, id string) (*domain.Workflow, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return nil, repository.ErrWorkflowNotFound
}
func (m *MockAdmin) Create(_ context.Context, in services.WorkflowInput) (*domain.Workflow, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(in)
	}
	return &domain.Workflow{ID: "new", Name: in.Name}, nil
}
func (m *MockAdmin) Update(context.Context, string, services.WorkflowInput) (*domain.Workflow, error) {
	return nil, nil
}

type testEnv struct {
	mux       *http.ServeMux
	users     *MockUserRepo
	workflows *MockWorkflows
	tracker   *MockTracker
	admin     *MockAdmin
	center    *notification.Center
	screens   *ScreenStore
}

var allPermissions = domain.PermissionSet{CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true}

func newTestEnv(t *testing.T, n int, limits domain.Limits, perms domain.PermissionSet) *testEnv {
	t.Helper()
	items := make([]domain.Workflow, 0, n)
	names := []string{"Default", "Legal", "Marketing", "Press", "Docs", "Blog"}
	for i := 0; i < n; i++ {
		items = append(items, domain.Workflow{
			ID:           "wf" + string(rune('1'+i)),
			Name:         names[i%len(names)],
			Stages:       []domain.Stage{{Name: "To do"}, {Name: "Done"}},
			ContentTypes: []string{"api::article.article"},
		})
	}
	env := &testEnv{
		users:     newMockUserRepo(),
		workflows: &MockWorkflows{items: items},
		tracker:   &MockTracker{},
		admin:     &MockAdmin{},
		center:    notification.NewCenter(core.FixedClock{T: testNow}),
		screens:   NewScreenStore(core.FixedClock{T: testNow}, time.Hour),
		mux:       http.NewServeMux(),
	}
	deps := listview.Deps{
		Workflows:    env.workflows,
		ContentTypes: MockContentTypes{},
		License:      MockLicense{limits: limits},
		Permissions:  MockPermissions{set: perms},
		Tracker:      env.tracker,
	}
	wc := NewWebController(env.users, core.FixedClock{T: testNow}, deps, env.admin, env.center, env.screens)
	wc.RegisterRoutes(env.mux)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req.AddCookie(&http.Cookie{Name: controllers.SessionCookie, Value: testSession})
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

// mount opens the list page and waits until the table has loaded.
func (e *testEnv) mount(t *testing.T) {
	t.Helper()
	w := e.do(t, "GET", BasePath, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		body := e.do(t, "GET", BasePath+"/table", nil, true).Body.String()
		return !strings.Contains(body, "Loading workflows") && !strings.Contains(body, "hx-trigger=\"every 1s\"")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListPage_RequiresLogin(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)

	req := httptest.NewRequest("GET", BasePath, nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRoot_RedirectsToList(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)

	w := env.do(t, "GET", "/", nil, false)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, BasePath, w.Header().Get("Location"))
}

func TestListPage_MountsAndLoads(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)
	env.mount(t)

	body := env.do(t, "GET", BasePath+"/table", nil, true).Body.String()
	assert.Contains(t, body, "Default")
	assert.Contains(t, body, "Legal")
	assert.Contains(t, body, "Article")
	assert.Contains(t, body, "Create new workflow")
	assert.Contains(t, body, "Delete Legal")
	assert.Equal(t, 1, env.screens.Len())
}

func TestListPage_SingleWorkflowHasNoDelete(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)
	env.mount(t)

	body := env.do(t, "GET", BasePath+"/table", nil, true).Body.String()
	assert.Contains(t, body, "Default")
	assert.NotContains(t, body, "Delete Default")
}

func TestListPage_ReadOnlyUser(t *testing.T) {
	env := newTestEnv(t, 2, nil, domain.PermissionSet{CanRead: true})
	env.mount(t)

	body := env.do(t, "GET", BasePath+"/table", nil, true).Body.String()
	assert.NotContains(t, body, "Create new workflow")
	assert.NotContains(t, body, "Delete Legal")

	w := env.do(t, "POST", BasePath+"/create-click", nil, true)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("HX-Redirect"))
}

func TestListPage_NoPermissionForbidden(t *testing.T) {
	env := newTestEnv(t, 2, nil, domain.PermissionSet{})

	w := env.do(t, "GET", BasePath, nil, false)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "Legal")
	assert.Equal(t, 0, env.screens.Len())

	w = env.do(t, "GET", BasePath+"/table", nil, true)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "Legal")

	w = env.do(t, "POST", BasePath+"/rows/wf2/click", nil, true)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("HX-Redirect"))
}

func TestCreateClick_NavigatesUnderLimit(t *testing.T) {
	env := newTestEnv(t, 2, domain.Limits{domain.EntitlementWorkflows: "5"}, allPermissions)
	env.mount(t)

	w := env.do(t, "POST", BasePath+"/create-click", nil, true)

	assert.Equal(t, BasePath+"/create", w.Header().Get("HX-Redirect"))
	assert.Equal(t, []string{listview.EventWillCreateWorkflow}, env.tracker.Events())
}

func TestCreateClick_WithoutHTMXRedirects(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)
	env.mount(t)

	w := env.do(t, "POST", BasePath+"/create-click", nil, false)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, BasePath+"/create", w.Header().Get("Location"))
}

func TestCreateClick_AtLimitOpensModal(t *testing.T) {
	env := newTestEnv(t, 2, domain.Limits{domain.EntitlementWorkflows: "2"}, allPermissions)
	env.mount(t)

	body := env.do(t, "GET", BasePath+"/table", nil, true).Body.String()
	assert.NotContains(t, body, "limit of workflows", "2 of 2 is not over the limit")

	w := env.do(t, "POST", BasePath+"/create-click", nil, true)
	assert.Empty(t, w.Header().Get("HX-Redirect"))
	assert.Contains(t, w.Body.String(), "You have reached the limit of workflows in your plan")
	assert.Empty(t, env.tracker.Events())

	w = env.do(t, "POST", BasePath+"/limit/dismiss", nil, true)
	assert.NotContains(t, w.Body.String(), "limit of workflows")
}

func TestListPage_OverLimitShowsModal(t *testing.T) {
	env := newTestEnv(t, 3, domain.Limits{domain.EntitlementWorkflows: "2"}, allPermissions)
	env.mount(t)

	body := env.do(t, "GET", BasePath+"/table", nil, true).Body.String()
	assert.Contains(t, body, "You have reached the limit of workflows in your plan")
}

func TestRowClick_NavigatesToDetail(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)
	env.mount(t)

	w := env.do(t, "POST", BasePath+"/rows/wf2/click", nil, true)
	assert.Equal(t, BasePath+"/wf2", w.Header().Get("HX-Redirect"))

	w = env.do(t, "POST", BasePath+"/rows/nope/click", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteFlow(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)
	env.mount(t)

	w := env.do(t, "POST", BasePath+"/rows/wf2/delete", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("HX-Redirect"))
	assert.Contains(t, w.Body.String(), `Are you sure you want to delete "Legal"`)

	w = env.do(t, "POST", BasePath+"/delete/cancel", nil, true)
	assert.NotContains(t, w.Body.String(), "Are you sure")

	env.do(t, "POST", BasePath+"/rows/wf2/delete", nil, true)
	w = env.do(t, "POST", BasePath+"/delete/confirm", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Are you sure")
	assert.NotContains(t, w.Body.String(), "Legal")
	assert.Equal(t, []string{"wf2"}, env.workflows.deleted)
}

func TestScreenActions_WithoutMountRedirect(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)

	w := env.do(t, "POST", BasePath+"/create-click", nil, true)

	assert.Equal(t, BasePath, w.Header().Get("HX-Redirect"))
}

func TestNotificationsAreDrainedOnRender(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)
	env.mount(t)
	env.center.Push(testSession, notification.Notification{Level: notification.LevelSuccess, Message: "Workflow deleted."})

	first := env.do(t, "GET", BasePath+"/table", nil, true).Body.String()
	second := env.do(t, "GET", BasePath+"/table", nil, true).Body.String()

	assert.Contains(t, first, "Workflow deleted.")
	assert.NotContains(t, second, "Workflow deleted.")
}

func TestCreateSubmit(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)
	var got services.WorkflowInput
	env.admin.CreateFunc = func(in services.WorkflowInput) (*domain.Workflow, error) {
		got = in
		return &domain.Workflow{ID: "new", Name: in.Name}, nil
	}

	form := url.Values{
		"name":         {"Legal"},
		"stages":       {"Draft\n\n Review \r\nDone"},
		"contentTypes": {"api::page.page"},
	}
	w := env.do(t, "POST", BasePath+"/create", form, false)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "Legal", got.Name)
	require.Len(t, got.Stages, 3)
	assert.Equal(t, "Review", got.Stages[1].Name)
	assert.Equal(t, []string{"api::page.page"}, got.ContentTypes)
	assert.Len(t, env.center.Drain(testSession), 1)
}

func TestCreateSubmit_Rejected(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)
	env.admin.CreateFunc = func(in services.WorkflowInput) (*domain.Workflow, error) {
		return nil, &services.LimitError{Entitlement: domain.EntitlementWorkflows, Limit: 1}
	}

	w := env.do(t, "POST", BasePath+"/create", url.Values{"name": {"Legal"}, "stages": {"Draft"}}, false)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Create review workflow")
	assert.Contains(t, w.Body.String(), `value="Legal"`)
}

func TestCreatePage_Forbidden(t *testing.T) {
	env := newTestEnv(t, 1, nil, domain.PermissionSet{CanRead: true})

	w := env.do(t, "GET", BasePath+"/create", nil, false)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreatePage_ListsContentTypes(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)

	w := env.do(t, "GET", BasePath+"/create", nil, false)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Article")
	assert.Contains(t, w.Body.String(), "Page")
}

func TestDetailPage(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)
	env.admin.GetFunc = func(id string) (*domain.Workflow, error) {
		if id != "wf1" {
			return nil, repository.ErrWorkflowNotFound
		}
		return &domain.Workflow{
			ID:           "wf1",
			Name:         "Default",
			Stages:       []domain.Stage{{Name: "To do", Color: "#4945FF"}},
			ContentTypes: []string{"api::article.article", "api::page.page"},
		}, nil
	}

	w := env.do(t, "GET", BasePath+"/wf1", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Article, Page")

	w = env.do(t, "GET", BasePath+"/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	env.users.users["admin"].Password = string(hash)

	form := url.Values{"username": {"admin"}, "password": {"secret"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, BasePath, w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, controllers.SessionCookie, cookies[0].Name)
	assert.Len(t, cookies[0].Value, 64)
	assert.True(t, env.users.updatedExpiry.After(testNow))
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t, 1, nil, allPermissions)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	env.users.users["admin"].Password = string(hash)

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, 2, nil, allPermissions)
	env.mount(t)
	require.Equal(t, 1, env.screens.Len())

	w := env.do(t, "POST", "/logout", nil, false)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, testSession, env.users.clearedID)
	assert.Equal(t, 0, env.screens.Len())
}
