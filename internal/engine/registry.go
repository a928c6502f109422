package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// StageRegistry holds every registered stage definition. It is the single
// place that declares which statuses exist and which transitions are legal,
// so callers ask it for valid actions instead of hardcoding status enums.
type StageRegistry struct {
	mu   sync.RWMutex
	defs map[string]*registeredDefinition
}

type registeredDefinition struct {
	def    domain.StageDefinition
	schema *jsonschema.Schema
}

func NewStageRegistry() *StageRegistry {
	return &StageRegistry{defs: make(map[string]*registeredDefinition)}
}

// Register validates and stores a definition. Validation failures and
// duplicates are configuration errors; callers treat them as fatal at
// startup.
func (r *StageRegistry) Register(def domain.StageDefinition) error {
	if strings.TrimSpace(def.WorkflowType) == "" {
		return fmt.Errorf("stage definition has empty workflow type")
	}
	if err := validateDefinition(&def); err != nil {
		return fmt.Errorf("stage definition %s: %w", def.WorkflowType, err)
	}

	var schema *jsonschema.Schema
	if def.PayloadSchema != "" {
		compiled, err := compilePayloadSchema(&def)
		if err != nil {
			return fmt.Errorf("stage definition %s: payload schema: %w", def.WorkflowType, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.WorkflowType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkflowType, def.WorkflowType)
	}
	r.defs[def.WorkflowType] = &registeredDefinition{def: def, schema: schema}
	return nil
}

// Get returns the definition for a workflow type.
func (r *StageRegistry) Get(workflowType string) (*domain.StageDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.defs[workflowType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflowType, workflowType)
	}
	return &reg.def, nil
}

// PayloadSchema returns the compiled payload schema for a workflow type, or
// nil when the definition accepts any payload.
func (r *StageRegistry) PayloadSchema(workflowType string) (*jsonschema.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.defs[workflowType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflowType, workflowType)
	}
	return reg.schema, nil
}

// All returns every registered definition, for definition sync and the API.
func (r *StageRegistry) All() []domain.StageDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]domain.StageDefinition, 0, len(r.defs))
	for _, reg := range r.defs {
		defs = append(defs, reg.def)
	}
	return defs
}

func validateDefinition(def *domain.StageDefinition) error {
	if len(def.Stages) == 0 {
		return fmt.Errorf("no stages declared")
	}

	seen := make(map[string]models.StageType, len(def.Stages))
	initialCount := 0
	terminalCount := 0
	for _, s := range def.Stages {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("stage with empty name")
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate stage %q", s.Name)
		}
		seen[s.Name] = s.StageType
		switch s.StageType {
		case models.StageInitial:
			initialCount++
		case models.StageTerminal:
			terminalCount++
		case models.StageNormal:
		default:
			return fmt.Errorf("stage %q has unknown type %q", s.Name, s.StageType)
		}
	}
	if initialCount != 1 {
		return fmt.Errorf("must declare exactly one Initial stage, found %d", initialCount)
	}
	if terminalCount == 0 {
		return fmt.Errorf("must declare at least one Terminal stage")
	}

	for key, spec := range def.Transitions {
		fromType, ok := seen[key.FromStage]
		if !ok {
			return fmt.Errorf("transition (%s, %s) references undeclared from stage", key.FromStage, key.Action)
		}
		if fromType == models.StageTerminal {
			return fmt.Errorf("transition (%s, %s) leaves a terminal stage", key.FromStage, key.Action)
		}
		if strings.TrimSpace(key.Action) == "" {
			return fmt.Errorf("transition from %q has empty action", key.FromStage)
		}
		if _, ok := seen[spec.ToStage]; !ok {
			return fmt.Errorf("transition (%s, %s) targets undeclared stage %q", key.FromStage, key.Action, spec.ToStage)
		}
		if spec.RequiresScore && spec.ScoreMax <= spec.ScoreMin {
			return fmt.Errorf("transition (%s, %s) requires a score but has empty range [%v, %v]",
				key.FromStage, key.Action, spec.ScoreMin, spec.ScoreMax)
		}
	}

	// Every non-terminal stage must be reachable from the initial stage.
	// Orphaned terminal stages are allowed; a pending-only workflow is not.
	reachable := map[string]bool{def.InitialStage(): true}
	for changed := true; changed; {
		changed = false
		for key, spec := range def.Transitions {
			if reachable[key.FromStage] && !reachable[spec.ToStage] {
				reachable[spec.ToStage] = true
				changed = true
			}
		}
	}
	for name, stageType := range seen {
		if stageType != models.StageTerminal && !reachable[name] {
			return fmt.Errorf("stage %q is unreachable from the initial stage", name)
		}
	}
	return nil
}

func compilePayloadSchema(def *domain.StageDefinition) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(def.PayloadSchema))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	resource := def.WorkflowType + ".schema.json"
	if err := compiler.AddResource(resource, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}
