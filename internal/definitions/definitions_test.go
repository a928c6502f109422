package definitions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpflow/kpflow/internal/engine"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// stubEntityRepo serves the gate evaluator a fixed set of entities.
type stubEntityRepo struct {
	entities []domain.Entity
}

func (s *stubEntityRepo) FindByID(id int64) (*domain.Entity, error) { return nil, nil }
func (s *stubEntityRepo) FindByExternalID(externalID string) (*domain.Entity, error) {
	return nil, nil
}
func (s *stubEntityRepo) Save(e *domain.Entity) (int64, error) { return 0, nil }
func (s *stubEntityRepo) ApplyTransition(e *domain.Entity, rec *domain.TransitionRecord) error {
	return nil
}
func (s *stubEntityRepo) Search(req models.SearchEntitiesRequest) (*[]domain.Entity, error) {
	return &s.entities, nil
}
func (s *stubEntityRepo) FindByTypeAndBusinessKey(workflowType string, businessKey string) (*[]domain.Entity, error) {
	matched := make([]domain.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if e.WorkflowType == workflowType && e.BusinessKey == businessKey {
			matched = append(matched, e)
		}
	}
	return &matched, nil
}

func TestAllDefinitionsRegister(t *testing.T) {
	registry := engine.NewStageRegistry()
	for _, def := range All() {
		require.NoError(t, registry.Register(def), "definition %s must register", def.WorkflowType)
	}
	assert.Len(t, registry.All(), 5)
}

func TestAllGateRulesCompile(t *testing.T) {
	_, err := engine.NewGateEvaluator(&stubEntityRepo{}, Gates())
	assert.NoError(t, err)
}

// walk follows a sequence of actions through a definition, failing on any
// action that is not declared from the current stage.
func walk(t *testing.T, def domain.StageDefinition, actions ...string) string {
	t.Helper()
	stage := def.InitialStage()
	for _, action := range actions {
		spec, ok := def.Transitions[domain.TransitionKey{FromStage: stage, Action: action}]
		require.True(t, ok, "no transition (%s, %s)", stage, action)
		stage = spec.ToStage
	}
	return stage
}

func TestRevision_RejectionLoop(t *testing.T) {
	def := Revision()

	assert.Equal(t, "approved", walk(t, def, "approve"))
	assert.Equal(t, "approved", walk(t, def, "reject", "resubmit", "approve"))
	assert.Equal(t, "rejected", walk(t, def, "reject", "resubmit", "reject"))

	reject := def.Transitions[domain.TransitionKey{FromStage: "pending", Action: "reject"}]
	assert.True(t, reject.RequiresNotes, "a rejection must carry reviewer notes")
	assert.True(t, def.IsTerminal("approved"))
	assert.False(t, def.IsTerminal("rejected"), "rejected revisions can be resubmitted")
}

func TestDocumentReview_HasPayloadSchema(t *testing.T) {
	def := DocumentReview()
	require.NotEmpty(t, def.PayloadSchema)

	registry := engine.NewStageRegistry()
	require.NoError(t, registry.Register(def))
	schema, err := registry.PayloadSchema(TypeDocumentReview)
	require.NoError(t, err)
	assert.Error(t, schema.Validate(map[string]any{"studentName": "Siti"}), "documents are required")
	assert.NoError(t, schema.Validate(map[string]any{"documents": []any{"transcript.pdf"}}))
}

func TestTitleSubmission_BothOutcomesAreFinal(t *testing.T) {
	def := TitleSubmission()
	assert.True(t, def.IsTerminal(walk(t, def, "approve")))
	assert.True(t, def.IsTerminal(walk(t, def, "reject")))
}

func TestHearing_ApprovalRequiresScore(t *testing.T) {
	def := Hearing()

	assert.Equal(t, "approved", walk(t, def, "verify", "approve"))
	approve := def.Transitions[domain.TransitionKey{FromStage: "verified", Action: "approve"}]
	assert.True(t, approve.RequiresScore)
	assert.Equal(t, 0.0, approve.ScoreMin)
	assert.Equal(t, 100.0, approve.ScoreMax)

	_, fromScheduled := def.Transitions[domain.TransitionKey{FromStage: "scheduled", Action: "approve"}]
	assert.False(t, fromScheduled, "a hearing cannot be approved before verification")
}

func TestLogbook_ReturnLoop(t *testing.T) {
	def := Logbook()
	assert.Equal(t, "signed", walk(t, def, "submit", "sign"))
	assert.Equal(t, "signed", walk(t, def, "submit", "return", "submit", "sign"))
}

func TestGradingGate_TracksRevisionApproval(t *testing.T) {
	repo := &stubEntityRepo{entities: []domain.Entity{
		{WorkflowType: TypeRevision, BusinessKey: "student-1", CurrentStage: "approved"},
		{WorkflowType: TypeRevision, BusinessKey: "student-1", CurrentStage: "pending"},
	}}
	evaluator, err := engine.NewGateEvaluator(repo, Gates())
	require.NoError(t, err)

	states, err := evaluator.GateStates(context.Background(), "student-1")
	require.NoError(t, err)
	assert.False(t, states["grading"], "one unapproved revision keeps grading locked")

	repo.entities[1].CurrentStage = "approved"
	states, err = evaluator.GateStates(context.Background(), "student-1")
	require.NoError(t, err)
	assert.True(t, states["grading"])
}

func TestGates_LockedWithoutDependents(t *testing.T) {
	evaluator, err := engine.NewGateEvaluator(&stubEntityRepo{}, Gates())
	require.NoError(t, err)

	unlocked, err := evaluator.UnlockedGates(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Empty(t, unlocked, "a student with nothing submitted has every gate locked")
}
