package web

import (
	"bytes"
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/internal/controllers"
	"github.com/RealZimboGuy/reviewflow/internal/listview"
	"github.com/RealZimboGuy/reviewflow/internal/notification"
	"github.com/RealZimboGuy/reviewflow/internal/repository"
	"github.com/RealZimboGuy/reviewflow/internal/services"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

//go:embed templates
var templatesFS embed.FS

// BasePath is where the review workflow settings screen lives.
const BasePath = "/settings/review-workflows"

// UserRepo is implemented by repository.UserRepository.
type UserRepo interface {
	controllers.UserLookup
	UpdateSession(ctx context.Context, userID int64, sessionID string, expiry time.Time) error
	ClearSessionBySessionID(ctx context.Context, sessionID string) error
}

type WebController struct {
	controllers.AuthController
	userRepo      UserRepo
	deps          listview.Deps
	admin         controllers.WorkflowAdmin
	notifications *notification.Center
	screens       *ScreenStore
	loadTimeout   time.Duration
}

// NewWebController builds the web UI. deps supplies the screen collaborators;
// Navigator and Notifier are set per mounted screen. Notifications of a
// session go away with its expired screen.
func NewWebController(
	userRepo UserRepo,
	clock core.Clock,
	deps listview.Deps,
	admin controllers.WorkflowAdmin,
	notifications *notification.Center,
	screens *ScreenStore,
) *WebController {
	screens.OnExpire(func(key string) {
		if id, ok := strings.CutPrefix(key, sessionKeyPrefix); ok {
			notifications.Forget(id)
		}
	})
	return &WebController{
		AuthController: controllers.NewAuthController(userRepo, clock),
		userRepo:       userRepo,
		deps:           deps,
		admin:          admin,
		notifications:  notifications,
		screens:        screens,
		loadTimeout:    config.GetSystemSettingDuration(config.WEB_SCREEN_LOAD_TIMEOUT),
	}
}

type screenData struct {
	Base          string
	View          listview.View
	DeleteName    string
	Notifications []notification.Notification
}

type pageData struct {
	Title       string
	CurrentPath string
	Username    string
	Screen      screenData
}

type workflowFormData struct {
	Title        string
	CurrentPath  string
	Username     string
	Base         string
	Error        string
	Name         string
	Stages       string
	Selected     map[string]bool
	ContentTypes []domain.ContentType
}

type detailData struct {
	Title        string
	CurrentPath  string
	Username     string
	Base         string
	Workflow     *domain.Workflow
	ContentTypes string
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

func (wc *WebController) render(w http.ResponseWriter, status int, name string, data any, files ...string) {
	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(templatesFS, files...)
	if err != nil {
		slog.Error("Failed to parse template", "template", name, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Failed to execute template", "template", name, "error", err)
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func pageFiles(page string) []string {
	return []string{
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/fragments/screen.html",
		page,
	}
}

const sessionKeyPrefix = "session:"

// screenKey identifies the caller's screen: the login session, or the user
// when authenticated by API key.
func screenKey(ctx context.Context) string {
	if id := controllers.SessionID(ctx); id != "" {
		return sessionKeyPrefix + id
	}
	return "user:" + controllers.Username(ctx)
}

func (wc *WebController) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, BasePath, http.StatusSeeOther)
}

// listPageHandler mounts a fresh screen for the session and starts its fetches
// in the background. The table fragment polls until they settle.
func (wc *WebController) listPageHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !wc.permissions(ctx).CanRead {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	nav := &pendingNavigator{}
	deps := wc.deps
	deps.Navigator = nav
	deps.Notifier = wc.notifications
	ctrl := listview.Mount(ctx, listview.NewSession(controllers.Username(ctx)), deps)
	wc.screens.Put(screenKey(ctx), ctrl, nav)

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wc.loadTimeout)
	go func() {
		defer cancel()
		if err := ctrl.Load(loadCtx); err != nil {
			slog.WarnContext(loadCtx, "List screen loaded with errors", "error", err)
		}
	}()

	wc.render(w, http.StatusOK, "workflows", pageData{
		Title:       "Review Workflows",
		CurrentPath: r.URL.Path,
		Username:    controllers.Username(ctx),
		Screen:      wc.screenData(ctx, ctrl),
	}, pageFiles("templates/workflows/list.html")...)
}

func (wc *WebController) screenData(ctx context.Context, ctrl *listview.Controller) screenData {
	v := ctrl.View()
	d := screenData{Base: BasePath, View: v}
	for _, row := range v.Rows {
		if row.ID == v.WorkflowToDelete {
			d.DeleteName = row.Name
		}
	}
	if id := controllers.SessionID(ctx); id != "" {
		d.Notifications = wc.notifications.Drain(id)
	}
	return d
}

func (wc *WebController) renderScreen(w http.ResponseWriter, r *http.Request, status int, ctrl *listview.Controller) {
	wc.render(w, status, "screen", wc.screenData(r.Context(), ctrl), "templates/fragments/screen.html")
}

// currentScreen returns the caller's mounted screen. Without one the browser is
// sent back to the list page, which mounts a new screen. Callers that lost read
// access get a 403 and their screen is dropped.
func (wc *WebController) currentScreen(w http.ResponseWriter, r *http.Request) (*screen, bool) {
	if !wc.permissions(r.Context()).CanRead {
		wc.screens.Drop(screenKey(r.Context()))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	sc, ok := wc.screens.Get(screenKey(r.Context()))
	if !ok {
		redirect(w, r, BasePath)
		return nil, false
	}
	return sc, true
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// respond follows a navigation the screen asked for, or re-renders the screen.
func (wc *WebController) respond(w http.ResponseWriter, r *http.Request, sc *screen, status int) {
	if path := sc.nav.take(); path != "" {
		redirect(w, r, BasePath+path)
		return
	}
	if !isHTMX(r) {
		http.Redirect(w, r, BasePath, http.StatusSeeOther)
		return
	}
	wc.renderScreen(w, r, status, sc.ctrl)
}

func (wc *WebController) screenHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := wc.currentScreen(w, r)
	if !ok {
		return
	}
	wc.renderScreen(w, r, http.StatusOK, sc.ctrl)
}

func (wc *WebController) createClickHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := wc.currentScreen(w, r)
	if !ok {
		return
	}
	status := http.StatusOK
	if d := sc.ctrl.HandleCreateClick(r.Context()); d.Reason == listview.ReasonForbidden {
		status = http.StatusForbidden
	}
	wc.respond(w, r, sc, status)
}

func (wc *WebController) rowClickHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := wc.currentScreen(w, r)
	if !ok {
		return
	}
	status := http.StatusOK
	if err := sc.ctrl.RowClick(r.PathValue("id")); err != nil {
		status = actionStatus(err)
	}
	wc.respond(w, r, sc, status)
}

func (wc *WebController) deleteClickHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := wc.currentScreen(w, r)
	if !ok {
		return
	}
	status := http.StatusOK
	if err := sc.ctrl.DeleteClick(r.PathValue("id")); err != nil {
		status = actionStatus(err)
	}
	wc.respond(w, r, sc, status)
}

func (wc *WebController) cancelDeleteHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := wc.currentScreen(w, r)
	if !ok {
		return
	}
	sc.ctrl.CancelDelete()
	wc.respond(w, r, sc, http.StatusOK)
}

// confirmDeleteHandler runs the delete in the request. Its outcome reaches the
// user as a notification.
func (wc *WebController) confirmDeleteHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := wc.currentScreen(w, r)
	if !ok {
		return
	}
	status := http.StatusOK
	if err := sc.ctrl.ConfirmDelete(r.Context()); errors.Is(err, listview.ErrDeleteInFlight) {
		status = http.StatusConflict
	}
	wc.respond(w, r, sc, status)
}

func (wc *WebController) dismissLimitHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := wc.currentScreen(w, r)
	if !ok {
		return
	}
	sc.ctrl.DismissLimitModal()
	wc.respond(w, r, sc, http.StatusOK)
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, listview.ErrUnknownWorkflow):
		return http.StatusNotFound
	case errors.Is(err, listview.ErrActionNotAllowed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (wc *WebController) permissions(ctx context.Context) domain.PermissionSet {
	return wc.deps.Permissions.Evaluate(ctx, controllers.Username(ctx), domain.ScopeReviewWorkflows)
}

func (wc *WebController) renderCreateForm(w http.ResponseWriter, r *http.Request, status int, form workflowFormData) {
	ctx := r.Context()
	items, err := wc.deps.ContentTypes.ListContentTypes(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load content types for create form", "error", err)
	}
	form.Title = "Create Review Workflow"
	form.CurrentPath = r.URL.Path
	form.Username = controllers.Username(ctx)
	form.Base = BasePath
	form.ContentTypes = items
	wc.render(w, status, "workflow_create", form, pageFiles("templates/workflows/create.html")...)
}

func (wc *WebController) createPageHandler(w http.ResponseWriter, r *http.Request) {
	if !wc.permissions(r.Context()).CanCreate {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	wc.renderCreateForm(w, r, http.StatusOK, workflowFormData{Stages: "To do\nIn progress\nReady to review\nReviewed"})
}

// parseWorkflowForm reads the name, one stage per line and the selected
// content types.
func parseWorkflowForm(r *http.Request) (services.WorkflowInput, workflowFormData) {
	form := workflowFormData{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Stages:   r.FormValue("stages"),
		Selected: map[string]bool{},
	}
	in := services.WorkflowInput{Name: form.Name}
	for _, line := range strings.Split(form.Stages, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			in.Stages = append(in.Stages, services.StageInput{Name: name})
		}
	}
	for _, uid := range r.Form["contentTypes"] {
		in.ContentTypes = append(in.ContentTypes, uid)
		form.Selected[uid] = true
	}
	return in, form
}

func (wc *WebController) createSubmitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !wc.permissions(ctx).CanCreate {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		wc.renderCreateForm(w, r, http.StatusBadRequest, workflowFormData{Error: "Invalid form"})
		return
	}
	in, form := parseWorkflowForm(r)
	wf, err := wc.admin.Create(ctx, in)
	if err != nil {
		status := http.StatusInternalServerError
		form.Error = "Could not create the workflow."
		switch {
		case services.IsValidationError(err):
			status, form.Error = http.StatusBadRequest, err.Error()
		case services.IsLimitError(err):
			status, form.Error = http.StatusForbidden, err.Error()
		case services.IsConflictError(err):
			status, form.Error = http.StatusConflict, err.Error()
		default:
			slog.ErrorContext(ctx, "Failed to create workflow", "error", err)
		}
		wc.renderCreateForm(w, r, status, form)
		return
	}
	slog.InfoContext(ctx, "Workflow created", "workflowId", wf.ID, "username", controllers.Username(ctx))
	wc.notifications.Notify(ctx, notification.LevelSuccess, "Workflow \""+wf.Name+"\" created.")
	http.Redirect(w, r, BasePath, http.StatusSeeOther)
}

func (wc *WebController) detailHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	perms := wc.permissions(ctx)
	if !perms.CanRead && !perms.CanUpdate {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	wf, err := wc.admin.Get(ctx, r.PathValue("id"))
	if err != nil {
		if repository.IsWorkflowNotFound(err) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(ctx, "Failed to load workflow", "workflowId", r.PathValue("id"), "error", err)
		http.Error(w, "Failed to load", http.StatusInternalServerError)
		return
	}
	var registry *listview.Registry
	if items, err := wc.deps.ContentTypes.ListContentTypes(ctx); err == nil {
		registry = listview.NewRegistry(items)
	}
	wc.render(w, http.StatusOK, "workflow_detail", detailData{
		Title:        wf.Name,
		CurrentPath:  r.URL.Path,
		Username:     controllers.Username(ctx),
		Base:         BasePath,
		Workflow:     wf,
		ContentTypes: listview.JoinContentTypeNames(wf.ContentTypes, registry),
	}, pageFiles("templates/workflows/detail.html")...)
}

// --- Authentication helpers and handlers ---

func (wc *WebController) renderLogin(w http.ResponseWriter, status int, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Login"
	}
	wc.render(w, status, "login", data, "templates/fragments/header.html", "templates/login.html")
}

func (wc *WebController) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	wc.renderLogin(w, http.StatusOK, nil)
}

func (wc *WebController) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		wc.renderLogin(w, http.StatusBadRequest, map[string]any{"Error": "Invalid form"})
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		wc.renderLogin(w, http.StatusUnauthorized, map[string]any{"Error": "Username and password are required"})
		return
	}
	u, err := wc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		slog.ErrorContext(ctx, "FindByUsername failed", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if u == nil || (u.Enabled.Valid && !u.Enabled.Bool) {
		wc.renderLogin(w, http.StatusUnauthorized, map[string]any{"Error": "Invalid username or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		wc.renderLogin(w, http.StatusUnauthorized, map[string]any{"Error": "Invalid username or password"})
		return
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		slog.ErrorContext(ctx, "rand.Read failed", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	sessionID := hex.EncodeToString(buf)
	expiryHours := config.GetSystemSettingInteger(config.WEB_SESSION_EXPIRY_HOURS)
	expires := wc.Clock.Now().UTC().Add(time.Duration(expiryHours) * time.Hour)
	if err := wc.userRepo.UpdateSession(ctx, u.ID, sessionID, expires); err != nil {
		slog.ErrorContext(ctx, "UpdateSession failed", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	slog.InfoContext(ctx, "User logged in", "username", u.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     controllers.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	http.Redirect(w, r, BasePath, http.StatusSeeOther)
}

// logoutHandler clears the current user's session and redirects to the login page.
func (wc *WebController) logoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wc.screens.Drop(screenKey(ctx))
	if id := controllers.SessionID(ctx); id != "" {
		wc.notifications.Forget(id)
		if err := wc.userRepo.ClearSessionBySessionID(ctx, id); err != nil {
			slog.WarnContext(ctx, "Failed to clear session in DB during logout", "error", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     controllers.SessionCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
		})
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
