// Package listview holds the state of the review workflow list screen: which
// rows to show, which actions are offered, the license limit overlay and the
// delete confirmation. It talks to its collaborators only through the
// interfaces in Deps and never renders anything itself.
package listview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/RealZimboGuy/reviewflow/internal/notification"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// EventWillCreateWorkflow is tracked when the user leaves for the create view.
const EventWillCreateWorkflow = "willCreateWorkflow"

// slot is the state of one asynchronous fetch.
type slot[T any] struct {
	loading bool
	data    T
	err     error
}

// Controller is one mounted list screen. All methods are safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	session Session
	deps    Deps

	perms      domain.PermissionSet
	permsKnown bool

	workflows    slot[[]domain.Workflow]
	meta         *domain.WorkflowListMeta
	contentTypes slot[*Registry]
	license      slot[domain.Limit]

	overlay          OverlayState
	workflowToDelete string
	deleting         bool
}

// View is a consistent snapshot of the screen.
type View struct {
	Loading bool
	Rows    []Row

	// CanCreate controls the create actions in the header and footer.
	CanCreate bool

	WorkflowCount    int
	CountKnown       bool
	Limit            domain.Limit
	LicenseLoading   bool
	Overlay          OverlayState
	ShowLimitModal   bool
	WorkflowToDelete string
	DeleteInFlight   bool

	WorkflowsErr    error
	ContentTypesErr error
	LicenseErr      error
}

// Mount creates the screen for a session and evaluates its permissions. The
// data slots start out loading until Load runs.
func Mount(ctx context.Context, session Session, deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notification.Discard{}
	}
	c := &Controller{
		session:      session,
		deps:         deps,
		workflows:    slot[[]domain.Workflow]{loading: true},
		contentTypes: slot[*Registry]{loading: true},
		license:      slot[domain.Limit]{loading: true, data: domain.Unbounded()},
	}
	if deps.Permissions != nil {
		c.perms = deps.Permissions.Evaluate(ctx, session.Actor, session.Scope)
		c.permsKnown = true
	}
	return c
}

// Load runs the workflow, content-type and license fetches concurrently. Each
// result is applied as soon as it arrives. The first fetch error is returned
// after all three finished; failures were already reported to the notifier.
func (c *Controller) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.loadWorkflows(ctx) })
	g.Go(func() error { return c.loadContentTypes(ctx) })
	g.Go(func() error { return c.loadLicense(ctx) })
	return g.Wait()
}

func (c *Controller) loadWorkflows(ctx context.Context) error {
	items, meta, err := c.deps.Workflows.ListWorkflows(ctx)

	c.mu.Lock()
	c.workflows.loading = false
	c.workflows.err = err
	if err == nil {
		c.workflows.data = items
		c.meta = &meta
	}
	c.evaluateOverlayLocked()
	c.mu.Unlock()

	if err != nil {
		c.reportFetchError(ctx, "workflows", err)
		return fmt.Errorf("load workflows: %w", err)
	}
	return nil
}

func (c *Controller) loadContentTypes(ctx context.Context) error {
	items, err := c.deps.ContentTypes.ListContentTypes(ctx)

	c.mu.Lock()
	c.contentTypes.loading = false
	c.contentTypes.err = err
	if err == nil {
		c.contentTypes.data = NewRegistry(items)
	}
	c.mu.Unlock()

	if err != nil {
		c.reportFetchError(ctx, "content types", err)
		return fmt.Errorf("load content types: %w", err)
	}
	return nil
}

func (c *Controller) loadLicense(ctx context.Context) error {
	limits, err := c.deps.License.FeatureLimits(ctx, domain.FeatureReviewWorkflows)

	c.mu.Lock()
	c.license.loading = false
	c.license.err = err
	if err == nil {
		c.license.data = limits.Get(domain.EntitlementWorkflows)
	}
	c.evaluateOverlayLocked()
	c.mu.Unlock()

	if err != nil {
		c.reportFetchError(ctx, "license limits", err)
		return fmt.Errorf("load license limits: %w", err)
	}
	return nil
}

// Revalidate refetches the workflow list without entering the loading state.
// On failure the previous list stays on screen.
func (c *Controller) Revalidate(ctx context.Context) error {
	items, meta, err := c.deps.Workflows.ListWorkflows(ctx)
	if err != nil {
		c.mu.Lock()
		c.workflows.err = err
		c.mu.Unlock()
		c.reportFetchError(ctx, "workflows", err)
		return fmt.Errorf("revalidate workflows: %w", err)
	}

	c.mu.Lock()
	c.workflows.data = items
	c.workflows.err = nil
	c.meta = &meta
	c.evaluateOverlayLocked()
	c.mu.Unlock()
	return nil
}

func (c *Controller) reportFetchError(ctx context.Context, what string, err error) {
	slog.ErrorContext(ctx, "Failed to load "+what, "actor", c.session.Actor, "error", err)
	c.deps.Notifier.Notify(ctx, notification.LevelError, "Could not load "+what+".")
}

// evaluateOverlayLocked opens the overlay once the count and the limit are
// both settled and the count is beyond the limit.
func (c *Controller) evaluateOverlayLocked() {
	if c.workflows.loading || c.license.loading || c.meta == nil {
		return
	}
	if OverLimit(c.license.data, c.meta.WorkflowCount) {
		c.overlay = c.overlay.auto()
	}
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Loading:          c.workflows.loading || c.contentTypes.loading,
		CanCreate:        c.permsKnown && c.perms.CanCreate,
		Limit:            c.license.data,
		LicenseLoading:   c.license.loading,
		Overlay:          c.overlay,
		ShowLimitModal:   c.overlay.Visible(),
		WorkflowToDelete: c.workflowToDelete,
		DeleteInFlight:   c.deleting,
		WorkflowsErr:     c.workflows.err,
		ContentTypesErr:  c.contentTypes.err,
		LicenseErr:       c.license.err,
	}
	if c.meta != nil {
		v.WorkflowCount = c.meta.WorkflowCount
		v.CountKnown = true
	}
	if !v.Loading {
		perms := domain.PermissionSet{}
		if c.permsKnown {
			perms = c.perms
		}
		v.Rows = BuildRows(c.workflows.data, c.contentTypes.data, perms)
	}
	return v
}

// HandleCreateClick runs the create guard. When the limit is reached the
// overlay opens instead of navigating.
func (c *Controller) HandleCreateClick(ctx context.Context) Decision {
	c.mu.Lock()
	if !c.permsKnown || !c.perms.CanCreate {
		c.mu.Unlock()
		return deny(ReasonForbidden)
	}
	d := CreateGuard(c.license.data, c.meta)
	if !d.Allowed {
		c.overlay = c.overlay.open()
		c.mu.Unlock()
		slog.InfoContext(ctx, "Workflow creation blocked by license limit", "actor", c.session.Actor, "limit", c.license.data.String())
		return d
	}
	c.mu.Unlock()

	c.deps.Navigator.Navigate(CreatePath)
	c.deps.Tracker.Track(ctx, EventWillCreateWorkflow)
	return d
}

// RowClick opens the detail view of a listed workflow.
func (c *Controller) RowClick(id string) error {
	c.mu.Lock()
	found := c.indexLocked(id) >= 0
	c.mu.Unlock()
	if !found {
		return ErrUnknownWorkflow
	}
	c.deps.Navigator.Navigate(WorkflowPath(id))
	return nil
}

// DeleteClick asks for confirmation to delete id, replacing any pending
// target. It never navigates.
func (c *Controller) DeleteClick(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workflows.loading || c.contentTypes.loading {
		return ErrActionNotAllowed
	}
	if !c.permsKnown || !c.perms.CanDelete || len(c.workflows.data) <= 1 {
		return ErrActionNotAllowed
	}
	if c.indexLocked(id) < 0 {
		return ErrUnknownWorkflow
	}
	c.workflowToDelete = id
	return nil
}

// CancelDelete closes the confirmation without side effects.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workflowToDelete = ""
}

// ConfirmDelete deletes the pending target and clears it whatever the
// outcome, unless another target was chosen meanwhile. The list is revalidated after a successful delete. Confirming with
// no pending target is a no-op.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.deleting {
		c.mu.Unlock()
		return ErrDeleteInFlight
	}
	id := c.workflowToDelete
	if id == "" {
		c.mu.Unlock()
		return nil
	}
	c.deleting = true
	c.mu.Unlock()

	err := c.deps.Workflows.DeleteWorkflow(ctx, id)

	c.mu.Lock()
	c.deleting = false
	// a target picked while the delete ran stays pending
	if c.workflowToDelete == id {
		c.workflowToDelete = ""
	}
	c.mu.Unlock()

	if err != nil {
		slog.WarnContext(ctx, "Workflow delete failed", "actor", c.session.Actor, "workflowId", id, "error", err)
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Workflow deleted", "actor", c.session.Actor, "workflowId", id)
	// the delete itself succeeded; a failed refresh only leaves a stale list
	_ = c.Revalidate(ctx)
	return nil
}

// DismissLimitModal closes the limit overlay.
func (c *Controller) DismissLimitModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = c.overlay.dismiss()
}

func (c *Controller) indexLocked(id string) int {
	for i, wf := range c.workflows.data {
		if wf.ID == id {
			return i
		}
	}
	return -1
}
