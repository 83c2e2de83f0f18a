package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

const defaultStageColor = "#4945FF"

// LicenseSource resolves plan ceilings; LicenseLimitService implements it.
type LicenseSource interface {
	FeatureLimits(ctx context.Context, feature string) (domain.Limits, error)
}

type StageInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" validate:"required,max=255"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// WorkflowInput is the body accepted when creating or updating a workflow.
type WorkflowInput struct {
	Name         string       `json:"name" validate:"required,max=255"`
	Stages       []StageInput `json:"stages" validate:"required,min=1,dive"`
	ContentTypes []string     `json:"contentTypes" validate:"omitempty,unique,dive,required"`
}

// WorkflowAdminService enforces the rules on submitted workflows: input
// validation, the plan ceilings and content-type ownership.
type WorkflowAdminService struct {
	store    WorkflowStore
	license  LicenseSource
	validate *validator.Validate
}

func NewWorkflowAdminService(store WorkflowStore, license LicenseSource) *WorkflowAdminService {
	return &WorkflowAdminService{
		store:    store,
		license:  license,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *WorkflowAdminService) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	return s.store.FindByID(ctx, id)
}

// Create adds a workflow when the plan still allows one more.
func (s *WorkflowAdminService) Create(ctx context.Context, in WorkflowInput) (*domain.Workflow, error) {
	in = normalize(in)
	if err := s.check(in); err != nil {
		return nil, err
	}
	limits, err := s.license.FeatureLimits(ctx, domain.FeatureReviewWorkflows)
	if err != nil {
		return nil, newServiceError("Create", "", err)
	}
	if err := stageCeiling(limits, len(in.Stages)); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}
	if err := s.ensureContentTypesFree(ctx, in.ContentTypes, ""); err != nil {
		return nil, err
	}

	wf := toWorkflow("", in)
	for i := range wf.Stages {
		wf.Stages[i].ID = ""
	}
	err = s.store.SaveAdmitted(ctx, wf, func(count int) error {
		return workflowCeiling(limits, count)
	})
	if err != nil {
		var limitErr *LimitError
		if errors.As(err, &limitErr) {
			return nil, limitErr
		}
		return nil, newServiceError("Create", "", err)
	}
	slog.InfoContext(ctx, "Workflow created", "workflowId", wf.ID, "name", wf.Name, "stages", len(wf.Stages))
	return wf, nil
}

// Update replaces a workflow's name, stages and content types.
func (s *WorkflowAdminService) Update(ctx context.Context, id string, in WorkflowInput) (*domain.Workflow, error) {
	in = normalize(in)
	if err := s.check(in); err != nil {
		return nil, err
	}
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	limits, err := s.license.FeatureLimits(ctx, domain.FeatureReviewWorkflows)
	if err != nil {
		return nil, newServiceError("Update", "", err)
	}
	if err := stageCeiling(limits, len(in.Stages)); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, id); err != nil {
		return nil, err
	}
	if err := s.ensureContentTypesFree(ctx, in.ContentTypes, id); err != nil {
		return nil, err
	}

	wf := toWorkflow(id, in)
	wf.Created = existing.Created
	own := make(map[string]bool, len(existing.Stages))
	for _, st := range existing.Stages {
		own[st.ID] = true
	}
	for i := range wf.Stages {
		if !own[wf.Stages[i].ID] {
			wf.Stages[i].ID = ""
		}
	}
	if err := s.store.Update(ctx, wf); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Workflow updated", "workflowId", id, "stages", len(wf.Stages))
	return wf, nil
}

func (s *WorkflowAdminService) check(in WorkflowInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newServiceError("Validate", err.Error(), ErrInvalidRequest)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe.Namespace())] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func workflowCeiling(limits domain.Limits, count int) error {
	if n, bounded := limits.Get(domain.EntitlementWorkflows).Value(); bounded {
		if count >= n {
			return &LimitError{Entitlement: domain.EntitlementWorkflows, Limit: n}
		}
		return nil
	}
	if count >= domain.HardWorkflowCeiling {
		return &LimitError{Entitlement: domain.EntitlementWorkflows, Limit: domain.HardWorkflowCeiling}
	}
	return nil
}

func stageCeiling(limits domain.Limits, stages int) error {
	n, bounded := limits.Get(domain.EntitlementStagesPerWorkflow).Value()
	if !bounded {
		n = domain.HardStageCeiling
	}
	if stages > n {
		return &LimitError{Entitlement: domain.EntitlementStagesPerWorkflow, Limit: n}
	}
	return nil
}

func (s *WorkflowAdminService) ensureNameFree(ctx context.Context, name, selfID string) error {
	other, err := s.store.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return newServiceError("CheckName", fmt.Sprintf("name %q is already used", name), ErrNameTaken)
	}
	return nil
}

func (s *WorkflowAdminService) ensureContentTypesFree(ctx context.Context, uids []string, selfID string) error {
	if len(uids) == 0 {
		return nil
	}
	assigned, err := s.store.ContentTypeAssignments(ctx)
	if err != nil {
		return err
	}
	for _, uid := range uids {
		if owner, ok := assigned[uid]; ok && owner != selfID {
			return newServiceError("CheckContentTypes", fmt.Sprintf("%s is used by workflow %s", uid, owner), ErrContentTypeTaken)
		}
	}
	return nil
}

func normalize(in WorkflowInput) WorkflowInput {
	in.Name = strings.TrimSpace(in.Name)
	for i := range in.Stages {
		in.Stages[i].Name = strings.TrimSpace(in.Stages[i].Name)
		in.Stages[i].Color = strings.TrimSpace(in.Stages[i].Color)
	}
	return in
}

func toWorkflow(id string, in WorkflowInput) *domain.Workflow {
	wf := &domain.Workflow{
		ID:           id,
		Name:         in.Name,
		Stages:       make([]domain.Stage, len(in.Stages)),
		ContentTypes: append([]string{}, in.ContentTypes...),
	}
	for i, st := range in.Stages {
		color := st.Color
		if color == "" {
			color = defaultStageColor
		}
		wf.Stages[i] = domain.Stage{ID: st.ID, Name: st.Name, Color: color, Position: i}
	}
	return wf
}

// fieldPath turns "WorkflowInput.Stages[1].Name" into "stages[1].name".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	parts := strings.Split(namespace, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "needs at least " + fe.Param() + " entry"
	case "hexcolor":
		return "must be a hex color"
	case "unique":
		return "must not contain duplicates"
	}
	return "is invalid (" + fe.Tag() + ")"
}
