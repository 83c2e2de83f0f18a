package listview

import "errors"

var (
	// ErrActionNotAllowed is returned for an interaction whose affordance is not offered.
	ErrActionNotAllowed = errors.New("action not allowed")

	// ErrDeleteInFlight is returned when a delete is confirmed while another is running.
	ErrDeleteInFlight = errors.New("a delete is already in progress")

	// ErrUnknownWorkflow is returned for an id that is not in the current list.
	ErrUnknownWorkflow = errors.New("workflow is not in the list")
)
