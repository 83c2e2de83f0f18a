package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

func TestMount_StartsLoadingWithoutRows(t *testing.T) {
	f := newFixture(workflowsN(2), "")
	c := f.mount()

	v := c.View()
	assert.True(t, v.Loading)
	assert.Nil(t, v.Rows)
	assert.True(t, v.LicenseLoading)
	assert.False(t, v.CountKnown)
	assert.False(t, v.ShowLimitModal)
	assert.True(t, v.CanCreate)
}

func TestMount_WithoutPermissionEvaluatorOffersNothing(t *testing.T) {
	f := newFixture(workflowsN(3), "")
	deps := f.deps()
	deps.Permissions = nil
	c := Mount(context.Background(), NewSession("ada"), deps)
	require.NoError(t, c.Load(context.Background()))

	v := c.View()
	assert.False(t, v.CanCreate)
	for _, row := range v.Rows {
		assert.False(t, row.CanEdit)
		assert.False(t, row.CanDelete)
	}
	assert.Equal(t, ReasonForbidden, c.HandleCreateClick(context.Background()).Reason)
	assert.ErrorIs(t, c.DeleteClick("a"), ErrActionNotAllowed)
}

func TestLoad_BuildsRowsInServiceOrder(t *testing.T) {
	items := []domain.Workflow{
		{ID: "z", Name: "Zulu", Stages: make([]domain.Stage, 3), ContentTypes: []string{"ct-1", "ct-missing"}},
		{ID: "a", Name: "Alpha", Stages: nil, ContentTypes: []string{"ct-2"}},
	}
	f := newFixture(items, "")
	f.types.ListContentTypesFunc = func(context.Context) ([]domain.ContentType, error) {
		return []domain.ContentType{{UID: "ct-1", DisplayName: "Article"}, {UID: "ct-2", DisplayName: "Page"}}, nil
	}
	c := f.loaded()

	v := c.View()
	assert.False(t, v.Loading)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, Row{
		ID: "z", Name: "Zulu", StageCount: 3, ContentTypeNames: "Article, ",
		Href: "/z", CanEdit: true, CanDelete: true,
	}, v.Rows[0])
	assert.Equal(t, "Alpha", v.Rows[1].Name)
	assert.Equal(t, 0, v.Rows[1].StageCount)
	assert.Equal(t, "Page", v.Rows[1].ContentTypeNames)
	assert.Equal(t, 2, v.WorkflowCount)
	assert.True(t, v.CountKnown)
}

func TestRows_SingleWorkflowNeverDeletable(t *testing.T) {
	perms := []StaticPermissions{
		allPermissions,
		{CanDelete: true},
		{},
	}
	for _, p := range perms {
		f := newFixture(workflowsN(1), "")
		f.perms = p
		c := f.loaded()

		v := c.View()
		require.Len(t, v.Rows, 1)
		assert.False(t, v.Rows[0].CanDelete, "perms %+v", p)
		assert.ErrorIs(t, c.DeleteClick("a"), ErrActionNotAllowed)
	}
}

func TestRows_MultipleWorkflowsDeletableEverywhereWithPermission(t *testing.T) {
	for n := 2; n <= 6; n++ {
		f := newFixture(workflowsN(n), "")
		f.perms = StaticPermissions{CanDelete: true}
		v := f.loaded().View()

		require.Len(t, v.Rows, n)
		for _, row := range v.Rows {
			assert.True(t, row.CanDelete, "n=%d row=%s", n, row.ID)
			assert.False(t, row.CanEdit)
		}
	}
}

func TestRows_EditNeedsReadOrUpdate(t *testing.T) {
	cases := []struct {
		perms StaticPermissions
		want  bool
	}{
		{StaticPermissions{}, false},
		{StaticPermissions{CanRead: true}, true},
		{StaticPermissions{CanUpdate: true}, true},
		{StaticPermissions{CanCreate: true, CanDelete: true}, false},
	}
	for _, tc := range cases {
		f := newFixture(workflowsN(2), "")
		f.perms = tc.perms
		v := f.loaded().View()
		assert.Equal(t, tc.want, v.Rows[0].CanEdit, "perms %+v", tc.perms)
	}
}

func TestHandleCreateClick_AtOrOverLimitOpensOverlay(t *testing.T) {
	for limit := 1; limit <= 4; limit++ {
		for count := limit; count <= limit+2; count++ {
			f := newFixture(workflowsN(count), fmt.Sprint(limit))
			c := f.loaded()
			c.DismissLimitModal()

			d := c.HandleCreateClick(context.Background())

			assert.False(t, d.Allowed, "count=%d limit=%d", count, limit)
			assert.Equal(t, ReasonLimitReached, d.Reason)
			assert.True(t, c.View().ShowLimitModal)
			f.navigator.AssertNotCalled(t, "Navigate", CreatePath)
			f.tracker.AssertNotCalled(t, "Track", EventWillCreateWorkflow)
		}
	}
}

func TestHandleCreateClick_UnderLimitNavigatesAndTracksOnce(t *testing.T) {
	for limit := 2; limit <= 5; limit++ {
		for count := 1; count < limit; count++ {
			f := newFixture(workflowsN(count), fmt.Sprint(limit))
			f.navigator.On("Navigate", CreatePath).Return()
			f.tracker.On("Track", EventWillCreateWorkflow).Return()
			c := f.loaded()

			d := c.HandleCreateClick(context.Background())

			assert.True(t, d.Allowed)
			assert.False(t, c.View().ShowLimitModal)
			f.navigator.AssertNumberOfCalls(t, "Navigate", 1)
			f.tracker.AssertNumberOfCalls(t, "Track", 1)
		}
	}
}

func TestHandleCreateClick_UnboundedAlwaysNavigates(t *testing.T) {
	for _, raw := range []string{"", "unlimited"} {
		f := newFixture(workflowsN(250), raw)
		f.navigator.On("Navigate", CreatePath).Return()
		f.tracker.On("Track", EventWillCreateWorkflow).Return()
		c := f.loaded()

		assert.True(t, c.HandleCreateClick(context.Background()).Allowed)
		f.navigator.AssertExpectations(t)
		f.tracker.AssertExpectations(t)
	}
}

func TestHandleCreateClick_BeforeCountIsKnownAllows(t *testing.T) {
	f := newFixture(workflowsN(9), "1")
	f.navigator.On("Navigate", CreatePath).Return()
	f.tracker.On("Track", EventWillCreateWorkflow).Return()
	c := f.mount()

	assert.True(t, c.HandleCreateClick(context.Background()).Allowed)
	f.navigator.AssertExpectations(t)
}

func TestHandleCreateClick_WithoutCreatePermission(t *testing.T) {
	f := newFixture(workflowsN(1), "")
	f.perms = StaticPermissions{CanRead: true}
	c := f.loaded()

	d := c.HandleCreateClick(context.Background())
	assert.Equal(t, Decision{Reason: ReasonForbidden}, d)
	assert.False(t, c.View().CanCreate)
	assert.False(t, c.View().ShowLimitModal)
}

func TestOverLimit_AutoOpensAfterLoading(t *testing.T) {
	f := newFixture(workflowsN(5), "4")
	c := f.loaded()
	v := c.View()
	assert.True(t, v.ShowLimitModal)
	assert.Equal(t, OverlayAutoShown, v.Overlay)

	f = newFixture(workflowsN(4), "4")
	v = f.loaded().View()
	assert.False(t, v.ShowLimitModal)
	assert.Equal(t, OverlayHidden, v.Overlay)
}

func TestOverLimit_WaitsForBothWorkflowsAndLicense(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(workflowsN(5), "4")
	f.license.FeatureLimitsFunc = func(context.Context, string) (domain.Limits, error) {
		<-release
		return limitsOf("4"), nil
	}
	c := f.mount()

	done := make(chan error)
	go func() { done <- c.Load(context.Background()) }()

	require.Eventually(t, func() bool { return !c.View().Loading }, testTimeout, testTick)
	v := c.View()
	assert.True(t, v.LicenseLoading)
	assert.False(t, v.ShowLimitModal)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, c.View().ShowLimitModal)
}

func TestOverLimit_DismissalIsSticky(t *testing.T) {
	f := newFixture(workflowsN(5), "4")
	c := f.loaded()
	require.True(t, c.View().ShowLimitModal)

	c.DismissLimitModal()
	assert.Equal(t, OverlayDismissed, c.View().Overlay)

	require.NoError(t, c.Revalidate(context.Background()))
	require.NoError(t, c.Load(context.Background()))
	assert.False(t, c.View().ShowLimitModal)

	// running into the limit again reopens it
	d := c.HandleCreateClick(context.Background())
	assert.False(t, d.Allowed)
	assert.Equal(t, OverlayShown, c.View().Overlay)
}

func TestRowClick_NavigatesToDetail(t *testing.T) {
	f := newFixture(workflowsN(3), "")
	f.navigator.On("Navigate", "/b").Return()
	c := f.loaded()

	require.NoError(t, c.RowClick("b"))
	f.navigator.AssertExpectations(t)

	assert.ErrorIs(t, c.RowClick("nope"), ErrUnknownWorkflow)
	f.navigator.AssertNumberOfCalls(t, "Navigate", 1)
}

func TestDeleteClick_DoesNotNavigate(t *testing.T) {
	f := newFixture(workflowsN(3), "")
	c := f.loaded()

	require.NoError(t, c.DeleteClick("b"))
	assert.Equal(t, "b", c.View().WorkflowToDelete)
	f.navigator.AssertNotCalled(t, "Navigate", "/b")
	assert.Empty(t, f.workflows.deleted)
}

func TestDeleteClick_LastWriteWins(t *testing.T) {
	f := newFixture(workflowsN(3), "")
	c := f.loaded()

	require.NoError(t, c.DeleteClick("a"))
	require.NoError(t, c.DeleteClick("c"))
	assert.Equal(t, "c", c.View().WorkflowToDelete)

	assert.ErrorIs(t, c.DeleteClick("x"), ErrUnknownWorkflow)
	assert.Equal(t, "c", c.View().WorkflowToDelete)
}

func TestDeleteClick_WhileLoadingNotAllowed(t *testing.T) {
	f := newFixture(workflowsN(3), "")
	c := f.mount()
	assert.ErrorIs(t, c.DeleteClick("a"), ErrActionNotAllowed)
}

func TestCancelDelete_RoundTripLeavesStateUnchanged(t *testing.T) {
	items := workflowsN(3)
	items[0].ContentTypes = []string{"ct-1"}
	f := newFixture(items, "10")
	f.types.ListContentTypesFunc = func(context.Context) ([]domain.ContentType, error) {
		return []domain.ContentType{{UID: "ct-1", DisplayName: "Article"}}, nil
	}
	c := f.loaded()
	before := c.View()

	require.NoError(t, c.DeleteClick("b"))
	c.CancelDelete()

	assert.Equal(t, before, c.View())
	assert.Empty(t, f.workflows.deleted)
	assert.Equal(t, 1, f.workflows.listCalls())
}

func TestConfirmDelete_DeletesAndRevalidates(t *testing.T) {
	items := workflowsN(3)
	f := newFixture(items, "")
	calls := 0
	f.workflows.ListWorkflowsFunc = func(context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
		calls++
		if calls == 1 {
			return items, domain.WorkflowListMeta{WorkflowCount: 3}, nil
		}
		return items[:2], domain.WorkflowListMeta{WorkflowCount: 2}, nil
	}
	c := f.loaded()

	require.NoError(t, c.DeleteClick("c"))
	require.NoError(t, c.ConfirmDelete(context.Background()))

	v := c.View()
	assert.Equal(t, []string{"c"}, f.workflows.deleted)
	assert.Empty(t, v.WorkflowToDelete)
	assert.False(t, v.DeleteInFlight)
	assert.Len(t, v.Rows, 2)
	assert.Equal(t, 2, v.WorkflowCount)
	assert.False(t, v.Loading)
}

func TestConfirmDelete_FailureStillClearsTarget(t *testing.T) {
	f := newFixture(workflowsN(2), "")
	boom := errors.New("boom")
	f.workflows.DeleteWorkflowFunc = func(context.Context, string) error { return boom }
	c := f.loaded()

	require.NoError(t, c.DeleteClick("a"))
	err := c.ConfirmDelete(context.Background())

	assert.ErrorIs(t, err, boom)
	v := c.View()
	assert.Empty(t, v.WorkflowToDelete)
	assert.Len(t, v.Rows, 2)
	assert.Equal(t, 1, f.workflows.listCalls())
}

func TestConfirmDelete_WithoutTargetIsNoop(t *testing.T) {
	f := newFixture(workflowsN(2), "")
	c := f.loaded()

	require.NoError(t, c.ConfirmDelete(context.Background()))
	assert.Empty(t, f.workflows.deleted)
}

func TestConfirmDelete_RejectsSecondConfirmInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(workflowsN(3), "")
	f.workflows.DeleteWorkflowFunc = func(context.Context, string) error {
		close(started)
		<-release
		return nil
	}
	c := f.loaded()
	require.NoError(t, c.DeleteClick("a"))

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = c.ConfirmDelete(context.Background())
	}()
	<-started

	assert.True(t, c.View().DeleteInFlight)
	assert.ErrorIs(t, c.ConfirmDelete(context.Background()), ErrDeleteInFlight)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, []string{"a"}, f.workflows.deleted)
}

func TestConfirmDelete_KeepsTargetChosenWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(workflowsN(3), "")
	f.workflows.DeleteWorkflowFunc = func(context.Context, string) error {
		close(started)
		<-release
		return nil
	}
	c := f.loaded()
	require.NoError(t, c.DeleteClick("a"))

	done := make(chan error, 1)
	go func() { done <- c.ConfirmDelete(context.Background()) }()
	<-started

	require.NoError(t, c.DeleteClick("b"))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "b", c.View().WorkflowToDelete)
	assert.Equal(t, []string{"a"}, f.workflows.deleted)
}

func TestLoad_FetchFailuresDegrade(t *testing.T) {
	f := newFixture(workflowsN(2), "1")
	f.types.ListContentTypesFunc = func(context.Context) ([]domain.ContentType, error) {
		return nil, errors.New("registry down")
	}
	f.license.FeatureLimitsFunc = func(context.Context, string) (domain.Limits, error) {
		return nil, errors.New("license down")
	}
	f.workflows.ListWorkflowsFunc = func(context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
		items := workflowsN(2)
		items[0].ContentTypes = []string{"ct-1"}
		return items, domain.WorkflowListMeta{WorkflowCount: 2}, nil
	}
	c := f.mount()

	err := c.Load(context.Background())
	require.Error(t, err)

	v := c.View()
	assert.False(t, v.Loading)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "", v.Rows[0].ContentTypeNames)
	assert.Error(t, v.ContentTypesErr)
	assert.Error(t, v.LicenseErr)
	assert.False(t, v.Limit.Bounded())
	assert.False(t, v.ShowLimitModal)
	assert.Equal(t, 2, f.notifier.count())
}

func TestLoad_WorkflowFailureKeepsCountUnknown(t *testing.T) {
	f := newFixture(nil, "1")
	f.workflows.ListWorkflowsFunc = func(context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
		return nil, domain.WorkflowListMeta{}, errors.New("db down")
	}
	f.navigator.On("Navigate", CreatePath).Return()
	f.tracker.On("Track", EventWillCreateWorkflow).Return()
	c := f.loaded()

	v := c.View()
	assert.False(t, v.Loading)
	assert.Empty(t, v.Rows)
	assert.False(t, v.CountKnown)
	assert.True(t, c.HandleCreateClick(context.Background()).Allowed)
}

func TestRevalidate_FailureKeepsStaleRows(t *testing.T) {
	f := newFixture(workflowsN(3), "")
	c := f.loaded()

	f.workflows.ListWorkflowsFunc = func(context.Context) ([]domain.Workflow, domain.WorkflowListMeta, error) {
		return nil, domain.WorkflowListMeta{}, errors.New("gone")
	}
	require.Error(t, c.Revalidate(context.Background()))

	v := c.View()
	assert.Len(t, v.Rows, 3)
	assert.Error(t, v.WorkflowsErr)
}
