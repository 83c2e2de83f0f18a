// Package reviewflow boots the review workflow admin: database, services, the
// JSON API and the web screens.
package reviewflow

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/internal/controllers"
	"github.com/RealZimboGuy/reviewflow/internal/listview"
	"github.com/RealZimboGuy/reviewflow/internal/notification"
	"github.com/RealZimboGuy/reviewflow/internal/repository"
	"github.com/RealZimboGuy/reviewflow/internal/seed"
	"github.com/RealZimboGuy/reviewflow/internal/services"
	"github.com/RealZimboGuy/reviewflow/internal/telemetry"
	"github.com/RealZimboGuy/reviewflow/internal/web"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
)

// Version is set at build time.
var Version = "dev"

// App holds the wired components of one running instance.
type App struct {
	Clock         core.Clock
	Workflows     *repository.WorkflowRepository
	Users         *repository.UserRepository
	ContentTypes  *repository.ContentTypeRepository
	Permissions   *repository.PermissionRepository
	License       *services.LicenseLimitService
	Admin         *services.WorkflowAdminService
	Notifications *notification.Center
	Screens       *web.ScreenStore

	api   *controllers.ReviewWorkflowsController
	users *controllers.UsersController
	web   *web.WebController
}

func NewApp(db *sql.DB, clock core.Clock) *App {
	workflowRepo := repository.NewWorkflowRepository(db, clock)
	userRepo := repository.NewUserRepository(db, clock)
	contentTypeRepo := repository.NewContentTypeRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	licenseRepo := repository.NewLicenseRepository(db)

	center := notification.NewCenter(clock)
	license := services.NewLicenseLimitService(licenseRepo)
	admin := services.NewWorkflowAdminService(workflowRepo, license)
	deps := listview.Deps{
		Workflows:    services.NewWorkflowDataService(workflowRepo, center),
		ContentTypes: services.NewContentTypeRegistryService(contentTypeRepo),
		License:      license,
		Permissions:  services.NewPermissionService(userRepo, permissionRepo),
		Tracker:      services.NewUsageTracker(),
	}
	screens := web.NewScreenStore(clock, config.GetSystemSettingDuration(config.WEB_SCREEN_TTL))

	auth := controllers.NewAuthController(userRepo, clock)
	return &App{
		Clock:         clock,
		Workflows:     workflowRepo,
		Users:         userRepo,
		ContentTypes:  contentTypeRepo,
		Permissions:   permissionRepo,
		License:       license,
		Admin:         admin,
		Notifications: center,
		Screens:       screens,
		api:           controllers.NewReviewWorkflowsController(auth, deps.Workflows, admin, deps.ContentTypes, license, deps.Permissions),
		users:         controllers.NewUsersController(auth, deps.Permissions),
		web:           web.NewWebController(userRepo, clock, deps, admin, center, screens),
	}
}

func (a *App) RegisterRoutes(mux *http.ServeMux) {
	a.api.RegisterRoutes(mux)
	a.users.RegisterRoutes(mux)
	a.web.RegisterRoutes(mux)
}

// Seeder applies seed files through the same rules as the API.
func (a *App) Seeder() *seed.Seeder {
	return &seed.Seeder{
		ContentTypes: a.ContentTypes,
		Workflows:    a.Workflows,
		Admin:        a.Admin,
		Users:        a.Users,
		Permissions:  a.Permissions,
		License:      a.License,
	}
}

// Start serves the application until ctx is cancelled or the server fails.
// A nil mux gets a fresh one.
func Start(ctx context.Context, mux *http.ServeMux) error {
	if err := telemetry.Init(ctx, "reviewflow", Version); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
	}()

	db, err := OpenDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	app := NewApp(db, core.NewRealClock())
	if mux == nil {
		mux = http.NewServeMux()
	}
	app.RegisterRoutes(mux)

	go app.Screens.Run(ctx, time.Minute)

	addr := ":" + config.GetSystemSettingString(config.SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("HTTP server failed", "error", err)
		return err
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func SetupLogger() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      parseLevel(config.GetSystemSettingString(config.LOG_LEVEL)),
			TimeFormat: time.RFC3339Nano,
		}),
	))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
