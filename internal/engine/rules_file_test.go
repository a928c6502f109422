package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGateRulesFile(t *testing.T) {
	path := writeRulesFile(t, `
gates:
  - name: grading
    workflowType: KpHearing
    stage: grading
    dependsOn: KpRevision
    expression: 'all(entities, {.currentStage == "approved"})'
  - name: response-letter
    dependsOn: KpDocumentReview
    expression: 'any(entities, {.currentStage == "accepted"})'
    vacuousResult: true
`)

	rules, err := LoadGateRulesFile(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "grading", rules[0].Name)
	assert.Equal(t, "KpRevision", rules[0].DependsOn)
	assert.False(t, rules[0].VacuousResult)
	assert.True(t, rules[1].VacuousResult)
}

func TestLoadGateRulesFile_MissingFields(t *testing.T) {
	path := writeRulesFile(t, `
gates:
  - name: grading
    dependsOn: KpRevision
`)
	_, err := LoadGateRulesFile(path)
	assert.Error(t, err)
}

func TestLoadGateRulesFile_BadYaml(t *testing.T) {
	path := writeRulesFile(t, "gates: [whoops")
	_, err := LoadGateRulesFile(path)
	assert.Error(t, err)
}

func TestLoadGateRulesFile_MissingFile(t *testing.T) {
	_, err := LoadGateRulesFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
