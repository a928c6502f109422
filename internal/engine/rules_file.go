package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kpflow/kpflow/pkg/kpflow/domain"
)

type gateRulesFile struct {
	Gates []domain.GateRule `yaml:"gates"`
}

// LoadGateRulesFile reads extra gate rules from a yaml file so deployments
// can add gates without recompiling. Expressions are compiled (and thus
// checked) when the evaluator is built.
func LoadGateRulesFile(path string) ([]domain.GateRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gate rules file %s: %w", path, err)
	}
	var file gateRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("gate rules file %s: %w", path, err)
	}
	for i, rule := range file.Gates {
		if rule.Name == "" || rule.DependsOn == "" || rule.Expression == "" {
			return nil, fmt.Errorf("gate rules file %s: gate %d: name, dependsOn and expression are required", path, i)
		}
	}
	return file.Gates, nil
}
