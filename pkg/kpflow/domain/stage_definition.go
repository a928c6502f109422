package domain

import (
	"sort"
	"time"

	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// TransitionKey identifies one legal transition: the stage an entity is in
// and the action requested against it.
type TransitionKey struct {
	FromStage string
	Action    string
}

// TransitionSpec declares the target stage of a transition plus the fields
// the caller must supply for it to be accepted.
type TransitionSpec struct {
	ToStage       string
	RequiresNotes bool
	RequiresScore bool
	ScoreMin      float64
	ScoreMax      float64
}

// StageDefinition declares one workflow type's stages and transition rules.
// Exactly one stage must be of type Initial and at least one of type
// Terminal; every transition must reference declared stages only.
type StageDefinition struct {
	WorkflowType string
	Description  string
	Stages       []models.Stage
	Transitions  map[TransitionKey]TransitionSpec

	// PayloadSchema is an optional JSON schema applied to the entity
	// payload at creation time. Empty means any payload is accepted.
	PayloadSchema string
}

// InitialStage returns the name of the definition's Initial stage, or ""
// when the definition is invalid.
func (d *StageDefinition) InitialStage() string {
	for _, s := range d.Stages {
		if s.StageType == models.StageInitial {
			return s.Name
		}
	}
	return ""
}

// StageByName returns the declared stage with the given name.
func (d *StageDefinition) StageByName(name string) (models.Stage, bool) {
	for _, s := range d.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return models.Stage{}, false
}

// IsTerminal reports whether the named stage is declared Terminal.
func (d *StageDefinition) IsTerminal(name string) bool {
	s, ok := d.StageByName(name)
	return ok && s.StageType == models.StageTerminal
}

// ActionsFrom returns the actions legal from the given stage, in a stable
// order so error messages and API responses are deterministic.
func (d *StageDefinition) ActionsFrom(stage string) []string {
	var actions []string
	for key := range d.Transitions {
		if key.FromStage == stage {
			actions = append(actions, key.Action)
		}
	}
	sort.Strings(actions)
	return actions
}

// StoredDefinition is the persisted snapshot of a registered definition,
// kept for the definitions API and dashboards.
type StoredDefinition struct {
	WorkflowType string
	Description  string
	FlowChart    string
	Created      time.Time
	Updated      time.Time
}
