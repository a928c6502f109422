package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// BuildFlowChart renders a mermaid flowchart of a definition's stages and
// transitions, stored alongside the definition for dashboards and review
// dialogs.
func BuildFlowChart(def *domain.StageDefinition) string {
	var sb strings.Builder

	initialClass := "fill:#5568FE,stroke:#3346FF,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"
	terminalClass := "fill:#4ECDC4,stroke:#1F9C8C,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"
	normalClass := "fill:#F0F4F8,stroke:#B0C4DE,stroke-width:1px,color:#333,rx:10,ry:10;"

	sb.WriteString("flowchart TD\n")

	// Stable edge order so the stored chart does not churn on every sync
	keys := make([]domain.TransitionKey, 0, len(def.Transitions))
	for key := range def.Transitions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].FromStage != keys[j].FromStage {
			return keys[i].FromStage < keys[j].FromStage
		}
		return keys[i].Action < keys[j].Action
	})
	for _, key := range keys {
		spec := def.Transitions[key]
		sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", key.FromStage, key.Action, spec.ToStage))
	}

	sb.WriteString(fmt.Sprintf("    classDef initialClass %s\n", initialClass))
	sb.WriteString(fmt.Sprintf("    classDef terminalClass %s\n", terminalClass))
	sb.WriteString(fmt.Sprintf("    classDef normalClass %s\n", normalClass))

	for _, st := range def.Stages {
		switch st.StageType {
		case models.StageInitial:
			sb.WriteString(fmt.Sprintf("    class %s initialClass;\n", st.Name))
		case models.StageTerminal:
			sb.WriteString(fmt.Sprintf("    class %s terminalClass;\n", st.Name))
		default:
			sb.WriteString(fmt.Sprintf("    class %s normalClass;\n", st.Name))
		}
	}

	return sb.String()
}
