// Package seed loads fixture data (content types, workflows, users, role
// permissions and license limits) from a YAML file into the database.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/RealZimboGuy/reviewflow/internal/services"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

type File struct {
	ContentTypes []ContentType                `yaml:"contentTypes"`
	Workflows    []Workflow                   `yaml:"workflows"`
	Users        []User                       `yaml:"users"`
	Roles        map[string][]string          `yaml:"roles"`
	License      map[string]map[string]string `yaml:"license"`
}

type ContentType struct {
	UID         string `yaml:"uid"`
	DisplayName string `yaml:"displayName"`
	Kind        string `yaml:"kind,omitempty"`
}

type Stage struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color,omitempty"`
}

type Workflow struct {
	Name         string   `yaml:"name"`
	Stages       []Stage  `yaml:"stages"`
	ContentTypes []string `yaml:"contentTypes,omitempty,flow"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role,omitempty"`
	ApiKey   string `yaml:"apiKey,omitempty"`
}

// Load reads and strictly decodes a seed file. Unknown keys are an error.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 - seed file path from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

type ContentTypeWriter interface {
	Upsert(ctx context.Context, ct domain.ContentType) error
}

type WorkflowFinder interface {
	FindByName(ctx context.Context, name string) (*domain.Workflow, error)
}

type WorkflowCreator interface {
	Create(ctx context.Context, in services.WorkflowInput) (*domain.Workflow, error)
}

type UserWriter interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Save(ctx context.Context, u *domain.User) (int64, error)
}

type PermissionWriter interface {
	Grant(ctx context.Context, role, action string) error
}

type LicenseWriter interface {
	SetLimit(ctx context.Context, feature, entitlement, value string) error
}

// Seeder applies a File. Workflows go through the admin rules, so a seed
// cannot create what the API would refuse.
type Seeder struct {
	ContentTypes ContentTypeWriter
	Workflows    WorkflowFinder
	Admin        WorkflowCreator
	Users        UserWriter
	Permissions  PermissionWriter
	License      LicenseWriter
}

type Result struct {
	ContentTypes int
	Workflows    int
	Users        int
	Grants       int
	Limits       int
}

// Apply is idempotent: existing workflows and users (matched by name) are
// skipped, content types, grants and limits are upserted. License limits are
// applied last so they never block the workflows of the same file.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	for _, ct := range f.ContentTypes {
		if err := s.ContentTypes.Upsert(ctx, domain.ContentType{UID: ct.UID, DisplayName: ct.DisplayName, Kind: ct.Kind}); err != nil {
			return res, fmt.Errorf("content type %s: %w", ct.UID, err)
		}
		res.ContentTypes++
	}

	for _, wf := range f.Workflows {
		existing, err := s.Workflows.FindByName(ctx, wf.Name)
		if err != nil {
			return res, fmt.Errorf("workflow %s: %w", wf.Name, err)
		}
		if existing != nil {
			slog.InfoContext(ctx, "Workflow already exists, skipping", "name", wf.Name)
			continue
		}
		in := services.WorkflowInput{Name: wf.Name, ContentTypes: wf.ContentTypes}
		for _, st := range wf.Stages {
			in.Stages = append(in.Stages, services.StageInput{Name: st.Name, Color: st.Color})
		}
		created, err := s.Admin.Create(ctx, in)
		if err != nil {
			return res, fmt.Errorf("workflow %s: %w", wf.Name, err)
		}
		slog.InfoContext(ctx, "Workflow seeded", "name", created.Name, "id", created.ID)
		res.Workflows++
	}

	for _, u := range f.Users {
		existing, err := s.Users.FindByUsername(ctx, u.Username)
		if err != nil {
			return res, fmt.Errorf("user %s: %w", u.Username, err)
		}
		if existing != nil {
			slog.InfoContext(ctx, "User already exists, skipping", "username", u.Username)
			continue
		}
		if _, err := CreateUser(ctx, s.Users, u); err != nil {
			return res, err
		}
		res.Users++
	}

	for role, actions := range f.Roles {
		for _, action := range actions {
			if err := s.Permissions.Grant(ctx, role, domain.PermissionAction(domain.ScopeReviewWorkflows, action)); err != nil {
				return res, fmt.Errorf("grant %s to %s: %w", action, role, err)
			}
			res.Grants++
		}
	}

	for feature, entitlements := range f.License {
		for entitlement, value := range entitlements {
			if err := s.License.SetLimit(ctx, feature, entitlement, value); err != nil {
				return res, fmt.Errorf("license %s.%s: %w", feature, entitlement, err)
			}
			res.Limits++
		}
	}
	return res, nil
}

// CreateUser hashes the password and stores the user.
func CreateUser(ctx context.Context, users UserWriter, u User) (int64, error) {
	if u.Username == "" || u.Password == "" {
		return 0, fmt.Errorf("user needs a username and a password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password for %s: %w", u.Username, err)
	}
	role := u.Role
	if role == "" {
		role = domain.RoleAuthor
	}
	user := &domain.User{
		Username: u.Username,
		Password: string(hash),
		Role:     role,
		ApiKey:   sql.NullString{String: u.ApiKey, Valid: u.ApiKey != ""},
		Enabled:  sql.NullBool{Bool: true, Valid: true},
	}
	id, err := users.Save(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("save user %s: %w", u.Username, err)
	}
	slog.InfoContext(ctx, "User created", "username", u.Username, "role", role)
	return id, nil
}
