package engine

import (
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// EntityRepo defines the interface for entity persistence, matching
// repository.EntityRepository.
type EntityRepo interface {
	FindByID(id int64) (*domain.Entity, error)
	FindByExternalID(externalID string) (*domain.Entity, error)
	Save(e *domain.Entity) (int64, error)
	ApplyTransition(e *domain.Entity, rec *domain.TransitionRecord) error
	Search(req models.SearchEntitiesRequest) (*[]domain.Entity, error)
	FindByTypeAndBusinessKey(workflowType string, businessKey string) (*[]domain.Entity, error)
}

// TransitionRecordRepo defines the interface for audit trail reads.
type TransitionRecordRepo interface {
	FindAllByEntityID(entityID int64) (*[]domain.TransitionRecord, error)
	CountByEntityID(entityID int64) (int, error)
}

// ActorRepo defines the interface for actor persistence.
type ActorRepo interface {
	Save(a *domain.Actor) (int64, error)
	FindById(id int64) (*domain.Actor, error)
	FindByUsername(username string) (*domain.Actor, error)
	FindAll() (*[]domain.Actor, error)
}

// DefinitionRepo defines the interface for stored definition snapshots.
type DefinitionRepo interface {
	FindAll() (*[]domain.StoredDefinition, error)
	FindByWorkflowType(workflowType string) (*domain.StoredDefinition, error)
	Save(def *domain.StoredDefinition) error
}
