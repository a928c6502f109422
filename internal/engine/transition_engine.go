package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kpflow/kpflow/internal/repository"
	"github.com/kpflow/kpflow/pkg/kpflow/core"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// TransitionEngine is the sole authority for mutating an entity's stage.
// Every mutation goes through Transition; nothing else writes current_stage.
type TransitionEngine struct {
	Registry   *StageRegistry
	EntityRepo EntityRepo
	RecordRepo TransitionRecordRepo
	Gates      *GateEvaluator
	clock      core.Clock

	mu    sync.Mutex
	locks map[int64]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func NewTransitionEngine(registry *StageRegistry, entityRepo EntityRepo, recordRepo TransitionRecordRepo,
	gates *GateEvaluator, clock core.Clock) *TransitionEngine {
	return &TransitionEngine{
		Registry:   registry,
		EntityRepo: entityRepo,
		RecordRepo: recordRepo,
		Gates:      gates,
		clock:      clock,
		locks:      make(map[int64]*entityLock),
	}
}

// acquire takes the per-entity mutex so no two transitions on the same
// entity id run concurrently in this process. Cross-process writers are
// caught by the optimistic guard in ApplyTransition.
func (te *TransitionEngine) acquire(id int64) *entityLock {
	te.mu.Lock()
	l, ok := te.locks[id]
	if !ok {
		l = &entityLock{}
		te.locks[id] = l
	}
	l.refs++
	te.mu.Unlock()

	l.mu.Lock()
	return l
}

func (te *TransitionEngine) release(id int64, l *entityLock) {
	l.mu.Unlock()
	te.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(te.locks, id)
	}
	te.mu.Unlock()
}

// CreateEntity creates a new entity in its workflow's initial stage. A
// duplicate external id returns the existing entity rather than an error.
func (te *TransitionEngine) CreateEntity(ctx context.Context, req models.CreateEntityRequest) (*domain.Entity, bool, error) {
	def, err := te.Registry.Get(req.WorkflowType)
	if err != nil {
		return nil, false, err
	}

	var fields []FieldError
	if strings.TrimSpace(req.BusinessKey) == "" {
		fields = append(fields, FieldError{Field: "businessKey", Reason: "required"})
	}
	if len(fields) > 0 {
		return nil, false, &ValidationError{Fields: fields}
	}

	externalID := req.ExternalID
	if externalID == "" {
		externalID = uuid.NewString()
	}

	if existing, err := te.EntityRepo.FindByExternalID(externalID); err == nil && existing != nil {
		slog.WarnContext(ctx, "Entity already exists", "external_id", externalID)
		return existing, true, nil
	}

	// The schema is checked even when no payload was sent; a definition with
	// required fields must reject an empty submission.
	schema, err := te.Registry.PayloadSchema(req.WorkflowType)
	if err != nil {
		return nil, false, err
	}
	if schema != nil {
		if err := schema.Validate(req.Payload); err != nil {
			return nil, false, &ValidationError{Fields: []FieldError{{Field: "payload", Reason: err.Error()}}}
		}
	}

	var payloadJSON sql.NullString
	if req.Payload != nil {
		b, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, false, &ValidationError{Fields: []FieldError{{Field: "payload", Reason: err.Error()}}}
		}
		payloadJSON = sql.NullString{String: string(b), Valid: true}
	}

	now := te.clock.Now().UTC()
	entity := &domain.Entity{
		ExternalID:   externalID,
		WorkflowType: req.WorkflowType,
		BusinessKey:  req.BusinessKey,
		CurrentStage: def.InitialStage(),
		Payload:      payloadJSON,
		Created:      now,
		Modified:     now,
	}

	slog.InfoContext(ctx, "Creating entity", "external_id", externalID, "workflow_type", req.WorkflowType, "business_key", req.BusinessKey)
	if _, err := te.EntityRepo.Save(entity); err != nil {
		return nil, false, &StorageUnavailableError{Err: err}
	}
	return entity, false, nil
}

// Resolve loads an entity by numeric id or external id. A missing row is
// ErrEntityNotFound; any other repository failure surfaces as retryable
// storage unavailability.
func (te *TransitionEngine) Resolve(ref string) (*domain.Entity, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		e, err := te.EntityRepo.FindByID(id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, &StorageUnavailableError{Err: err}
		}
		if e != nil {
			return e, nil
		}
	}
	e, err := te.EntityRepo.FindByExternalID(ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntityNotFound
		}
		return nil, &StorageUnavailableError{Err: err}
	}
	if e == nil {
		return nil, ErrEntityNotFound
	}
	return e, nil
}

// Transition validates and applies one action against an entity, appending
// the audit record and persisting both atomically. On success it returns
// the updated entity plus the gates unlocked for its business key.
func (te *TransitionEngine) Transition(ctx context.Context, ref string, action string, actorID string,
	notes string, score *float64) (*domain.Entity, []string, error) {

	entity, err := te.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}

	l := te.acquire(entity.ID)
	defer te.release(entity.ID, l)

	// Reload under the lock; the pre-lock read may be stale.
	entity, err = te.EntityRepo.FindByID(entity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrEntityNotFound
		}
		return nil, nil, &StorageUnavailableError{Err: err}
	}
	if entity == nil {
		return nil, nil, ErrEntityNotFound
	}

	def, err := te.Registry.Get(entity.WorkflowType)
	if err != nil {
		return nil, nil, err
	}

	if def.IsTerminal(entity.CurrentStage) {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrEntityTerminal, entity.ExternalID, entity.CurrentStage)
	}

	spec, ok := def.Transitions[domain.TransitionKey{FromStage: entity.CurrentStage, Action: action}]
	if !ok {
		return nil, nil, &IllegalTransitionError{
			WorkflowType: entity.WorkflowType,
			FromStage:    entity.CurrentStage,
			Action:       action,
			ValidActions: def.ActionsFrom(entity.CurrentStage),
		}
	}

	if err := validateTransitionFields(&spec, notes, score); err != nil {
		return nil, nil, err
	}

	// An abandoned call must apply fully or not at all; past this point we
	// no longer observe the caller's cancellation.
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	record := &domain.TransitionRecord{
		EntityID:  entity.ID,
		FromStage: entity.CurrentStage,
		ToStage:   spec.ToStage,
		Action:    action,
		ActorID:   actorID,
		DateTime:  te.clock.Now().UTC(),
	}
	if notes != "" {
		record.Notes = sql.NullString{String: notes, Valid: true}
	}
	if score != nil {
		record.Score = sql.NullFloat64{Float64: *score, Valid: true}
	}

	slog.InfoContext(ctx, "Applying transition", "entity", entity.ExternalID, "from", entity.CurrentStage,
		"action", action, "to", spec.ToStage, "actor", actorID)
	if err := te.EntityRepo.ApplyTransition(entity, record); err != nil {
		if errors.Is(err, repository.ErrNotLocked) {
			return nil, nil, ErrEntityBusy
		}
		slog.ErrorContext(ctx, "Transition not applied", "entity", entity.ExternalID, "error", err)
		return nil, nil, &StorageUnavailableError{Err: err}
	}

	updated, err := te.EntityRepo.FindByID(entity.ID)
	if err != nil {
		return nil, nil, &StorageUnavailableError{Err: err}
	}

	unlocked, err := te.Gates.UnlockedGates(ctx, updated.BusinessKey)
	if err != nil {
		// The transition is committed; gate state is advisory here.
		slog.WarnContext(ctx, "Gate recompute failed after transition", "entity", updated.ExternalID, "error", err)
		unlocked = []string{}
	}

	return updated, unlocked, nil
}

// ValidActions reports the actions currently legal for an entity.
func (te *TransitionEngine) ValidActions(entity *domain.Entity) (*models.ValidActionsResponse, error) {
	def, err := te.Registry.Get(entity.WorkflowType)
	if err != nil {
		return nil, err
	}
	actions := def.ActionsFrom(entity.CurrentStage)
	if actions == nil {
		actions = []string{}
	}
	return &models.ValidActionsResponse{
		CurrentStage: entity.CurrentStage,
		Terminal:     def.IsTerminal(entity.CurrentStage),
		Actions:      actions,
	}, nil
}

func validateTransitionFields(spec *domain.TransitionSpec, notes string, score *float64) error {
	var fields []FieldError
	if spec.RequiresNotes && strings.TrimSpace(notes) == "" {
		fields = append(fields, FieldError{Field: "notes", Reason: "required for this transition"})
	}
	if spec.RequiresScore {
		if score == nil {
			fields = append(fields, FieldError{Field: "score",
				Reason: fmt.Sprintf("required, must be in [%v, %v]", spec.ScoreMin, spec.ScoreMax)})
		} else if *score < spec.ScoreMin || *score > spec.ScoreMax {
			fields = append(fields, FieldError{Field: "score",
				Reason: fmt.Sprintf("%v is out of range [%v, %v]", *score, spec.ScoreMin, spec.ScoreMax)})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// SyncDefinitions upserts a stored snapshot (description + flowchart) of
// every registered definition so list pages can render them without
// touching the registry.
func (te *TransitionEngine) SyncDefinitions(ctx context.Context, repo DefinitionRepo) {
	for _, def := range te.Registry.All() {
		existing, err := repo.FindByWorkflowType(def.WorkflowType)
		if err != nil {
			slog.WarnContext(ctx, "Stage definition lookup error, will attempt create", "workflow_type", def.WorkflowType, "error", err)
			existing = nil
		}

		now := te.clock.Now().UTC()
		stored := &domain.StoredDefinition{
			WorkflowType: def.WorkflowType,
			Description:  def.Description,
			FlowChart:    BuildFlowChart(&def),
			Created:      now,
			Updated:      now,
		}
		if existing != nil {
			stored.Created = existing.Created
		}
		slog.InfoContext(ctx, "Saving stage definition", "workflow_type", def.WorkflowType)
		if err := repo.Save(stored); err != nil {
			slog.Error("Failed to save stage definition", "workflow_type", def.WorkflowType, "error", err)
		}
	}
}
