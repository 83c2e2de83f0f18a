package listview

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/RealZimboGuy/reviewflow/internal/notification"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

type FakeWorkflowService struct {
	ListWorkflowsFunc  func(ctx context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error)
	DeleteWorkflowFunc func(ctx context.Context, id string) error

	mu      sync.Mutex
	deleted []string
	lists   int
}

func (f *FakeWorkflowService) ListWorkflows(ctx context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
	f.mu.Lock()
	f.lists++
	f.mu.Unlock()
	if f.ListWorkflowsFunc != nil {
		return f.ListWorkflowsFunc(ctx)
	}
	return nil, domain.WorkflowListMeta{}, nil
}

func (f *FakeWorkflowService) DeleteWorkflow(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	if f.DeleteWorkflowFunc != nil {
		return f.DeleteWorkflowFunc(ctx, id)
	}
	return nil
}

func (f *FakeWorkflowService) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

type FakeContentTypes struct {
	ListContentTypesFunc func(ctx context.Context) ([]domain.ContentType, error)
}

func (f *FakeContentTypes) ListContentTypes(ctx context.Context) ([]domain.ContentType, error) {
	if f.ListContentTypesFunc != nil {
		return f.ListContentTypesFunc(ctx)
	}
	return nil, nil
}

type FakeLicense struct {
	FeatureLimitsFunc func(ctx context.Context, feature string) (domain.Limits, error)
}

func (f *FakeLicense) FeatureLimits(ctx context.Context, feature string) (domain.Limits, error) {
	if f.FeatureLimitsFunc != nil {
		return f.FeatureLimitsFunc(ctx, feature)
	}
	return domain.Limits{}, nil
}

type StaticPermissions domain.PermissionSet

func (p StaticPermissions) Evaluate(context.Context, string, string) domain.PermissionSet {
	return domain.PermissionSet(p)
}

type MockTracker struct{ mock.Mock }

func (m *MockTracker) Track(ctx context.Context, event string) {
	m.Called(event)
}

type MockNavigator struct{ mock.Mock }

func (m *MockNavigator) Navigate(path string) {
	m.Called(path)
}

type RecordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *RecordingNotifier) Notify(_ context.Context, _ notification.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *RecordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

var allPermissions = StaticPermissions{CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true}

func workflowsN(n int) []domain.Workflow {
	out := make([]domain.Workflow, n)
	for i := range n {
		id := string(rune('a' + i))
		out[i] = domain.Workflow{
			ID:     id,
			Name:   "Workflow " + id,
			Stages: make([]domain.Stage, i+1),
		}
	}
	return out
}

func limitsOf(v string) domain.Limits {
	if v == "" {
		return domain.Limits{}
	}
	return domain.Limits{domain.EntitlementWorkflows: v}
}

type fixture struct {
	workflows *FakeWorkflowService
	types     *FakeContentTypes
	license   *FakeLicense
	tracker   *MockTracker
	navigator *MockNavigator
	notifier  *RecordingNotifier
	perms     StaticPermissions
}

// newFixture serves the given workflows with workflowCount == len(items) and
// the given numberOfWorkflows limit ("" for unbounded).
func newFixture(items []domain.Workflow, limit string) *fixture {
	return &fixture{
		workflows: &FakeWorkflowService{
			ListWorkflowsFunc: func(context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
				return items, domain.WorkflowListMeta{WorkflowCount: len(items)}, nil
			},
		},
		types: &FakeContentTypes{},
		license: &FakeLicense{
			FeatureLimitsFunc: func(context.Context, string) (domain.Limits, error) {
				return limitsOf(limit), nil
			},
		},
		tracker:   &MockTracker{},
		navigator: &MockNavigator{},
		notifier:  &RecordingNotifier{},
		perms:     allPermissions,
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Workflows:    f.workflows,
		ContentTypes: f.types,
		License:      f.license,
		Permissions:  f.perms,
		Tracker:      f.tracker,
		Navigator:    f.navigator,
		Notifier:     f.notifier,
	}
}

func (f *fixture) mount() *Controller {
	return Mount(context.Background(), NewSession("ada"), f.deps())
}

func (f *fixture) loaded() *Controller {
	c := f.mount()
	_ = c.Load(context.Background())
	return c
}
