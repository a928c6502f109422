package controllers

// Shared function-field mocks for the controller tests. Individual tests
// override only the functions they care about.

import (
	"testing"
	"time"

	"github.com/kpflow/kpflow/internal/engine"
	"github.com/kpflow/kpflow/pkg/kpflow/core"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type MockEntityRepo struct {
	FindByIDFunc                 func(id int64) (*domain.Entity, error)
	FindByExternalIDFunc         func(externalID string) (*domain.Entity, error)
	SaveFunc                     func(e *domain.Entity) (int64, error)
	ApplyTransitionFunc          func(e *domain.Entity, rec *domain.TransitionRecord) error
	SearchFunc                   func(req models.SearchEntitiesRequest) (*[]domain.Entity, error)
	FindByTypeAndBusinessKeyFunc func(workflowType string, businessKey string) (*[]domain.Entity, error)
}

func (m *MockEntityRepo) FindByID(id int64) (*domain.Entity, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}
func (m *MockEntityRepo) FindByExternalID(externalID string) (*domain.Entity, error) {
	if m.FindByExternalIDFunc != nil {
		return m.FindByExternalIDFunc(externalID)
	}
	return nil, nil
}
func (m *MockEntityRepo) Save(e *domain.Entity) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(e)
	}
	return 1, nil
}
func (m *MockEntityRepo) ApplyTransition(e *domain.Entity, rec *domain.TransitionRecord) error {
	if m.ApplyTransitionFunc != nil {
		return m.ApplyTransitionFunc(e, rec)
	}
	return nil
}
func (m *MockEntityRepo) Search(req models.SearchEntitiesRequest) (*[]domain.Entity, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(req)
	}
	return &[]domain.Entity{}, nil
}
func (m *MockEntityRepo) FindByTypeAndBusinessKey(workflowType string, businessKey string) (*[]domain.Entity, error) {
	if m.FindByTypeAndBusinessKeyFunc != nil {
		return m.FindByTypeAndBusinessKeyFunc(workflowType, businessKey)
	}
	return &[]domain.Entity{}, nil
}

type MockTransitionRecordRepo struct {
	FindAllByEntityIDFunc func(entityID int64) (*[]domain.TransitionRecord, error)
	CountByEntityIDFunc   func(entityID int64) (int, error)
}

func (m *MockTransitionRecordRepo) FindAllByEntityID(entityID int64) (*[]domain.TransitionRecord, error) {
	if m.FindAllByEntityIDFunc != nil {
		return m.FindAllByEntityIDFunc(entityID)
	}
	return &[]domain.TransitionRecord{}, nil
}
func (m *MockTransitionRecordRepo) CountByEntityID(entityID int64) (int, error) {
	if m.CountByEntityIDFunc != nil {
		return m.CountByEntityIDFunc(entityID)
	}
	return 0, nil
}

type MockActorRepo struct {
	SaveFunc           func(a *domain.Actor) (int64, error)
	FindByIdFunc       func(id int64) (*domain.Actor, error)
	FindByUsernameFunc func(username string) (*domain.Actor, error)
	FindAllFunc        func() (*[]domain.Actor, error)
}

func (m *MockActorRepo) Save(a *domain.Actor) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(a)
	}
	return 1, nil
}
func (m *MockActorRepo) FindById(id int64) (*domain.Actor, error) {
	if m.FindByIdFunc != nil {
		return m.FindByIdFunc(id)
	}
	return nil, nil
}
func (m *MockActorRepo) FindByUsername(username string) (*domain.Actor, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(username)
	}
	return nil, nil
}
func (m *MockActorRepo) FindAll() (*[]domain.Actor, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return &[]domain.Actor{}, nil
}

type MockDefinitionRepo struct {
	FindAllFunc            func() (*[]domain.StoredDefinition, error)
	FindByWorkflowTypeFunc func(workflowType string) (*domain.StoredDefinition, error)
	SaveFunc               func(def *domain.StoredDefinition) error
}

func (m *MockDefinitionRepo) FindAll() (*[]domain.StoredDefinition, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return &[]domain.StoredDefinition{}, nil
}
func (m *MockDefinitionRepo) FindByWorkflowType(workflowType string) (*domain.StoredDefinition, error) {
	if m.FindByWorkflowTypeFunc != nil {
		return m.FindByWorkflowTypeFunc(workflowType)
	}
	return nil, nil
}
func (m *MockDefinitionRepo) Save(def *domain.StoredDefinition) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(def)
	}
	return nil
}

func reviewDefinition() domain.StageDefinition {
	return domain.StageDefinition{
		WorkflowType: "Review",
		Description:  "A review workflow for tests",
		Stages: []models.Stage{
			{Name: "pending", StageType: models.StageInitial},
			{Name: "rejected", StageType: models.StageNormal},
			{Name: "approved", StageType: models.StageTerminal},
		},
		Transitions: map[domain.TransitionKey]domain.TransitionSpec{
			{FromStage: "pending", Action: "approve"}: {ToStage: "approved"},
			{FromStage: "pending", Action: "reject"}:  {ToStage: "rejected", RequiresNotes: true},
		},
	}
}

func newTestTransitionEngine(t *testing.T, entityRepo engine.EntityRepo) *engine.TransitionEngine {
	t.Helper()
	registry := engine.NewStageRegistry()
	if err := registry.Register(reviewDefinition()); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	gates, err := engine.NewGateEvaluator(entityRepo, nil)
	if err != nil {
		t.Fatalf("NewGateEvaluator returned error: %v", err)
	}
	return engine.NewTransitionEngine(registry, entityRepo, &MockTransitionRecordRepo{}, gates, &core.RealClock{})
}
