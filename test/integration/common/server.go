package common

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/internal/seed"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// ApiKey authenticates the seeded super admin.
const ApiKey = "b5f0e8c4-daa6-465c-bded-50ca22b798b2"

// EditorApiKey authenticates the seeded editor, who may only read.
const EditorApiKey = "0d9d6c1e-1f3a-4c61-9d0e-3c7d2f1b5a44"

var portBase int32 = 9018

func NextPort() int {
	return int(atomic.AddInt32(&portBase, 1))
}

var fixture = &seed.File{
	ContentTypes: []seed.ContentType{
		{UID: "api::article.article", DisplayName: "Article"},
		{UID: "api::page.page", DisplayName: "Page"},
	},
	Users: []seed.User{
		{Username: "admin", Password: "admin", Role: domain.RoleSuperAdmin, ApiKey: ApiKey},
		{Username: "editor", Password: "editor", Role: domain.RoleEditor, ApiKey: EditorApiKey},
	},
}

// StartServer migrates and seeds the configured database, then serves the
// application on port until the test ends. The database settings must be in
// the environment already.
func StartServer(t *testing.T, port int) {
	t.Helper()
	config.Reset()
	t.Setenv("HTTP_ADDR", ":"+strconv.Itoa(port))

	db, err := reviewflow.OpenDatabase()
	require.NoError(t, err)
	_, err = reviewflow.NewApp(db, core.NewRealClock()).Seeder().Apply(t.Context(), fixture)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reviewflow.Start(ctx, nil) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Logf("server stopped with error: %v", err)
			}
		case <-time.After(15 * time.Second):
			t.Log("server did not stop in time")
		}
	})

	client := &http.Client{Timeout: time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get(fmt.Sprintf("http://localhost:%d/login", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 30*time.Second, 100*time.Millisecond, "server did not come up")
}
