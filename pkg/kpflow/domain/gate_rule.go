package domain

// GateRule declares that a stage of one workflow is unlocked only when a
// predicate over related entities holds. The predicate is an expr
// expression evaluated against the snapshot of all DependsOn entities that
// share a business key; it must be pure so gate state can be recomputed at
// any time.
type GateRule struct {
	Name         string `yaml:"name"`
	WorkflowType string `yaml:"workflowType"`
	Stage        string `yaml:"stage"`
	DependsOn    string `yaml:"dependsOn"`
	Expression   string `yaml:"expression"`

	// VacuousResult is the gate state when no DependsOn entities exist
	// for the business key. The policy is deliberately explicit per rule.
	VacuousResult bool `yaml:"vacuousResult"`
}
