package domain

import "time"

// Workflow is a named, ordered set of review stages applied to one or more content types.
type Workflow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Stages       []Stage   `json:"stages"`
	ContentTypes []string  `json:"contentTypes"`
	Created      time.Time `json:"createdAt"`
	Updated      time.Time `json:"updatedAt"`
}

type Stage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}

// WorkflowListMeta carries aggregates returned alongside a workflow listing.
type WorkflowListMeta struct {
	WorkflowCount int `json:"workflowCount"`
}

// DefaultWorkflowID is the workflow created by the initial migration.
const DefaultWorkflowID = "default"

// HardWorkflowCeiling is enforced on submission when the plan has no limit.
const HardWorkflowCeiling = 200

// HardStageCeiling is enforced on submission when the plan has no stage limit.
const HardStageCeiling = 200
