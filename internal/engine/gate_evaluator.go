package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/kpflow/kpflow/pkg/kpflow/domain"
)

// GateEvaluator computes whether dependent stages are unlocked, given live
// entity state. Predicates are expr expressions over the snapshot of all
// DependsOn entities sharing a business key; evaluation is pure and nothing
// is cached except the compiled programs, so results are always fresh.
type GateEvaluator struct {
	entityRepo EntityRepo
	rules      []domain.GateRule

	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewGateEvaluator compiles every rule's expression up front so a bad rule
// fails at startup rather than on first use.
func NewGateEvaluator(entityRepo EntityRepo, rules []domain.GateRule) (*GateEvaluator, error) {
	g := &GateEvaluator{
		entityRepo: entityRepo,
		rules:      rules,
		programs:   make(map[string]*vm.Program, len(rules)),
	}
	for _, rule := range rules {
		if rule.Name == "" || rule.DependsOn == "" || rule.Expression == "" {
			return nil, fmt.Errorf("gate rule %q: name, dependsOn and expression are required", rule.Name)
		}
		if _, err := g.getOrCompile(rule.Expression); err != nil {
			return nil, fmt.Errorf("gate rule %q: %w", rule.Name, err)
		}
	}
	return g, nil
}

// Rules returns the registered gate rules.
func (g *GateEvaluator) Rules() []domain.GateRule {
	return g.rules
}

// IsUnlocked evaluates one rule against the current snapshot of its
// dependent entities. An empty dependent set short-circuits to the rule's
// explicit vacuous policy.
func (g *GateEvaluator) IsUnlocked(ctx context.Context, rule domain.GateRule, businessKey string) (bool, error) {
	entities, err := g.entityRepo.FindByTypeAndBusinessKey(rule.DependsOn, businessKey)
	if err != nil {
		return false, &StorageUnavailableError{Err: err}
	}
	if entities == nil || len(*entities) == 0 {
		return rule.VacuousResult, nil
	}

	prg, err := g.getOrCompile(rule.Expression)
	if err != nil {
		return false, err
	}

	env := map[string]any{
		"businessKey": businessKey,
		"entities":    entitiesEnv(*entities),
	}
	out, err := vm.Run(prg, env)
	if err != nil {
		return false, fmt.Errorf("gate rule %q: evaluation failed: %w", rule.Name, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("gate rule %q: expression returned %T, want bool", rule.Name, out)
	}
	return result, nil
}

// UnlockedGates returns the names of every rule currently unlocked for a
// business key, sorted for stable API output.
func (g *GateEvaluator) UnlockedGates(ctx context.Context, businessKey string) ([]string, error) {
	unlocked := make([]string, 0, len(g.rules))
	for _, rule := range g.rules {
		ok, err := g.IsUnlocked(ctx, rule, businessKey)
		if err != nil {
			return nil, err
		}
		if ok {
			unlocked = append(unlocked, rule.Name)
		}
	}
	sort.Strings(unlocked)
	return unlocked, nil
}

// GateStates returns the unlocked state of every rule for a business key.
func (g *GateEvaluator) GateStates(ctx context.Context, businessKey string) (map[string]bool, error) {
	states := make(map[string]bool, len(g.rules))
	for _, rule := range g.rules {
		ok, err := g.IsUnlocked(ctx, rule, businessKey)
		if err != nil {
			return nil, err
		}
		states[rule.Name] = ok
	}
	return states, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a
// new one. Compiled programs are reusable across goroutines.
func (g *GateEvaluator) getOrCompile(expression string) (*vm.Program, error) {
	g.mu.RLock()
	if prg, ok := g.programs[expression]; ok {
		g.mu.RUnlock()
		return prg, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if prg, ok := g.programs[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile error in %q: %w", expression, err)
	}
	g.programs[expression] = prg
	return prg, nil
}

// entitiesEnv maps entities to plain maps so expressions stay decoupled
// from the domain structs.
func entitiesEnv(entities []domain.Entity) []map[string]any {
	env := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		payload := map[string]any{}
		if e.Payload.Valid && e.Payload.String != "" {
			_ = json.Unmarshal([]byte(e.Payload.String), &payload)
		}
		env = append(env, map[string]any{
			"id":           e.ExternalID,
			"workflowType": e.WorkflowType,
			"businessKey":  e.BusinessKey,
			"currentStage": e.CurrentStage,
			"payload":      payload,
		})
	}
	return env
}
