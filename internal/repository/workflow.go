package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// WorkflowRepository persists review workflows together with their stages and
// content-type assignments.
type WorkflowRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewWorkflowRepository(db *sql.DB, clock core.Clock) *WorkflowRepository {
	return &WorkflowRepository{db: db, clock: clock}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// FindAll returns every workflow in insertion order.
func (r *WorkflowRepository) FindAll(ctx context.Context) ([]domain.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, created, updated
        FROM review_workflows
        ORDER BY created ASC, id ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]domain.Workflow, 0)
	for rows.Next() {
		var wf domain.Workflow
		if err := rows.Scan(&wf.ID, &wf.Name, &wf.Created, &wf.Updated); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		wf.Stages = make([]domain.Stage, 0)
		wf.ContentTypes = make([]string, 0)
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(workflows) == 0 {
		return workflows, nil
	}
	if err := r.loadChildren(ctx, r.db, workflows, ""); err != nil {
		return nil, err
	}
	return workflows, nil
}

// FindByID returns the workflow or ErrWorkflowNotFound.
func (r *WorkflowRepository) FindByID(ctx context.Context, id string) (*domain.Workflow, error) {
	var wf domain.Workflow
	err := r.db.QueryRowContext(ctx, `
        SELECT id, name, created, updated
        FROM review_workflows
        WHERE id = `+placeholder(1), id).Scan(&wf.ID, &wf.Name, &wf.Created, &wf.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newWorkflowError("FindByID", id, ErrWorkflowNotFound)
	}
	if err != nil {
		return nil, newWorkflowError("FindByID", id, err)
	}
	wf.Stages = make([]domain.Stage, 0)
	wf.ContentTypes = make([]string, 0)
	list := []domain.Workflow{wf}
	if err := r.loadChildren(ctx, r.db, list, id); err != nil {
		return nil, newWorkflowError("FindByID", id, err)
	}
	return &list[0], nil
}

// FindByName returns (nil, nil) when no workflow carries the name.
func (r *WorkflowRepository) FindByName(ctx context.Context, name string) (*domain.Workflow, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM review_workflows WHERE name = `+placeholder(1), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Count returns the total number of workflows.
func (r *WorkflowRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_workflows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return n, nil
}

// ContentTypeAssignments maps every assigned content-type uid to its workflow id.
func (r *WorkflowRepository) ContentTypeAssignments(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT content_type_uid, workflow_id FROM review_workflow_content_types`)
	if err != nil {
		return nil, fmt.Errorf("query content type assignments: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var uid, workflowID string
		if err := rows.Scan(&uid, &workflowID); err != nil {
			return nil, err
		}
		out[uid] = workflowID
	}
	return out, rows.Err()
}

// Save inserts a new workflow. Missing workflow and stage ids are generated.
func (r *WorkflowRepository) Save(ctx context.Context, wf *domain.Workflow) error {
	return r.SaveAdmitted(ctx, wf, nil)
}

// SaveAdmitted inserts wf once admit accepts the current workflow count. The
// count and the insert share one transaction, so concurrent callers see each
// other's workflows. A nil admit accepts any count.
func (r *WorkflowRepository) SaveAdmitted(ctx context.Context, wf *domain.Workflow, admit func(count int) error) error {
	if wf.ID == "" {
		wf.ID = ulid.Make().String()
	}
	now := r.clock.Now().UTC()
	wf.Created = now
	wf.Updated = now

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if admit != nil {
			count, err := lockedWorkflowCount(ctx, tx)
			if err != nil {
				return err
			}
			if err := admit(count); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO review_workflows (id, name, created, updated)
            VALUES (`+placeholders(1, 4)+`)`,
			wf.ID, wf.Name, formatDateInDatabase(now), formatDateInDatabase(now))
		if err != nil {
			return err
		}
		return insertChildren(ctx, tx, wf)
	})
	if err != nil {
		return newWorkflowError("Save", wf.ID, err)
	}
	return nil
}

// Update replaces the name, stages and content types of an existing workflow.
func (r *WorkflowRepository) Update(ctx context.Context, wf *domain.Workflow) error {
	now := r.clock.Now().UTC()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
            UPDATE review_workflows
            SET name = `+placeholder(1)+`, updated = `+placeholder(2)+`
            WHERE id = `+placeholder(3),
			wf.Name, formatDateInDatabase(now), wf.ID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrWorkflowNotFound
		}
		if err := deleteChildren(ctx, tx, wf.ID); err != nil {
			return err
		}
		return insertChildren(ctx, tx, wf)
	})
	if err != nil {
		return newWorkflowError("Update", wf.ID, err)
	}
	wf.Updated = now
	return nil
}

// Delete removes a workflow unless it is the last one left.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM review_workflows`+lockRowsClause())
		if err != nil {
			return err
		}
		found, total := false, 0
		for rows.Next() {
			var existing string
			if err := rows.Scan(&existing); err != nil {
				rows.Close()
				return err
			}
			total++
			if existing == id {
				found = true
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if !found {
			return ErrWorkflowNotFound
		}
		if total <= 1 {
			return ErrLastWorkflow
		}
		if err := deleteChildren(ctx, tx, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM review_workflows WHERE id = `+placeholder(1), id)
		return err
	})
	if err != nil {
		return newWorkflowError("Delete", id, err)
	}
	return nil
}

// loadChildren attaches stages and content types to the given workflows. When
// onlyID is set the queries are restricted to that workflow.
func (r *WorkflowRepository) loadChildren(ctx context.Context, q querier, workflows []domain.Workflow, onlyID string) error {
	index := make(map[string]int, len(workflows))
	for i, wf := range workflows {
		index[wf.ID] = i
	}

	where, args := "", []any{}
	if onlyID != "" {
		where = " WHERE workflow_id = " + placeholder(1)
		args = append(args, onlyID)
	}

	stageRows, err := q.QueryContext(ctx, `
        SELECT id, workflow_id, name, color, position
        FROM review_workflow_stages`+where+`
        ORDER BY workflow_id, position`, args...)
	if err != nil {
		return fmt.Errorf("query stages: %w", err)
	}
	defer stageRows.Close()
	for stageRows.Next() {
		var s domain.Stage
		var workflowID string
		if err := stageRows.Scan(&s.ID, &workflowID, &s.Name, &s.Color, &s.Position); err != nil {
			return fmt.Errorf("scan stage: %w", err)
		}
		if i, ok := index[workflowID]; ok {
			workflows[i].Stages = append(workflows[i].Stages, s)
		}
	}
	if err := stageRows.Err(); err != nil {
		return err
	}

	ctRows, err := q.QueryContext(ctx, `
        SELECT workflow_id, content_type_uid
        FROM review_workflow_content_types`+where+`
        ORDER BY workflow_id, position`, args...)
	if err != nil {
		return fmt.Errorf("query content types: %w", err)
	}
	defer ctRows.Close()
	for ctRows.Next() {
		var workflowID, uid string
		if err := ctRows.Scan(&workflowID, &uid); err != nil {
			return fmt.Errorf("scan content type: %w", err)
		}
		if i, ok := index[workflowID]; ok {
			workflows[i].ContentTypes = append(workflows[i].ContentTypes, uid)
		}
	}
	return ctRows.Err()
}

func insertChildren(ctx context.Context, tx *sql.Tx, wf *domain.Workflow) error {
	for i := range wf.Stages {
		s := &wf.Stages[i]
		if s.ID == "" {
			s.ID = ulid.Make().String()
		}
		s.Position = i
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO review_workflow_stages (id, workflow_id, name, color, position)
            VALUES (`+placeholders(1, 5)+`)`,
			s.ID, wf.ID, s.Name, s.Color, s.Position); err != nil {
			return fmt.Errorf("insert stage %q: %w", s.Name, err)
		}
	}
	for i, uid := range wf.ContentTypes {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO review_workflow_content_types (content_type_uid, workflow_id, position)
            VALUES (`+placeholders(1, 3)+`)`,
			uid, wf.ID, i); err != nil {
			return fmt.Errorf("assign content type %q: %w", uid, err)
		}
	}
	return nil
}

func deleteChildren(ctx context.Context, tx *sql.Tx, workflowID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_workflow_stages WHERE workflow_id = `+placeholder(1), workflowID); err != nil {
		return fmt.Errorf("delete stages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_workflow_content_types WHERE workflow_id = `+placeholder(1), workflowID); err != nil {
		return fmt.Errorf("delete content types: %w", err)
	}
	return nil
}
