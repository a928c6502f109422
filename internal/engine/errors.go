package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEntityNotFound means the referenced entity id has no row.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityTerminal means the entity is in a terminal stage and no
	// further transitions are possible.
	ErrEntityTerminal = errors.New("entity is in a terminal stage")

	// ErrEntityBusy means another writer changed the entity between read
	// and write. Safe to retry with fresh state.
	ErrEntityBusy = errors.New("entity is being modified by another writer")

	// ErrUnknownWorkflowType means no stage definition is registered for
	// the requested workflow type.
	ErrUnknownWorkflowType = errors.New("unknown workflow type")

	// ErrDuplicateWorkflowType means a stage definition was registered
	// twice. Registration errors are fatal at startup.
	ErrDuplicateWorkflowType = errors.New("workflow type already registered")
)

// IllegalTransitionError is returned when the requested action has no
// mapping from the entity's current stage. ValidActions lists what the
// caller could have requested instead.
type IllegalTransitionError struct {
	WorkflowType string
	FromStage    string
	Action       string
	ValidActions []string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: no action %q from stage %q of %s (valid: %s)",
		e.Action, e.FromStage, e.WorkflowType, strings.Join(e.ValidActions, ", "))
}

// FieldError names one missing or invalid field of a transition request.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned when required fields for the target
// transition are missing or invalid. The caller corrects and resubmits.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StorageUnavailableError wraps a persistence failure. The enclosing
// transition was rolled back completely; retrying is safe.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return "storage unavailable: " + e.Err.Error()
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }
