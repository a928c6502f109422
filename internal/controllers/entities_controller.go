package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kpflow/kpflow/internal/config"
	"github.com/kpflow/kpflow/internal/engine"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

// EntitiesController holds dependencies for the entity HTTP endpoints.
type EntitiesController struct {
	AuthController
	EntityRepo engine.EntityRepo
	RecordRepo engine.TransitionRecordRepo
	Engine     *engine.TransitionEngine
}

func NewEntitiesController(entityRepo engine.EntityRepo, recordRepo engine.TransitionRecordRepo,
	transitionEngine *engine.TransitionEngine, actorRepo engine.ActorRepo) *EntitiesController {
	return &EntitiesController{EntityRepo: entityRepo, RecordRepo: recordRepo, Engine: transitionEngine,
		AuthController: AuthController{ActorRepo: actorRepo}}
}

func (c *EntitiesController) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.CreateEntityRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.WorkflowType == "" {
		http.Error(w, "workflowType is required", http.StatusBadRequest)
		return
	}

	entity, existing, err := c.Engine.CreateEntity(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.CreateEntityResponse{ID: entity.ID, ExternalID: entity.ExternalID, Existing: existing})
}

func (c *EntitiesController) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ref := r.PathValue("id")
	if ref == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	entity, err := c.Engine.Resolve(ref)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapEntityToApiEntity(entity))
}

func (c *EntitiesController) handleListEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	pageSize := int64(config.GetSystemSettingInteger(config.SEARCH_DEFAULT_PAGE_SIZE))
	if v := q.Get("pageSize"); v != "" {
		pageSize, _ = strconv.ParseInt(v, 10, 64)
	}
	maxPageSize := int64(config.GetSystemSettingInteger(config.SEARCH_MAX_PAGE_SIZE))
	if pageSize <= 0 || pageSize > maxPageSize {
		slog.Warn("pageSize out of range", "page_size", pageSize)
		http.Error(w, "pageSize out of range", http.StatusBadRequest)
		return
	}
	page := int64(1)
	if v := q.Get("page"); v != "" {
		page, _ = strconv.ParseInt(v, 10, 64)
		if page < 1 {
			http.Error(w, "page starts at 1", http.StatusBadRequest)
			return
		}
	}

	req := models.SearchEntitiesRequest{
		WorkflowType: q.Get("workflowType"),
		Stage:        q.Get("stage"),
		BusinessKey:  q.Get("businessKey"),
		Query:        q.Get("q"),
		Limit:        pageSize,
		Offset:       (page - 1) * pageSize,
	}

	results, err := c.EntityRepo.Search(req)
	if err != nil {
		slog.Error("Failed to search entities", "error", err)
		http.Error(w, "failed to search entities", http.StatusInternalServerError)
		return
	}

	entities := make([]models.EntityApiResponse, 0)
	if results != nil {
		for i := range *results {
			entities = append(entities, mapEntityToApiEntity(&(*results)[i]))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.SearchEntitiesResponse{
		Results:  len(entities),
		Offset:   req.Offset,
		Entities: entities,
	})
}

func (c *EntitiesController) handleTransitionEntity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ref := r.PathValue("id")
	if ref == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	var req models.TransitionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Action == "" {
		http.Error(w, "action is required", http.StatusBadRequest)
		return
	}

	actorID := ActorIDFromContext(r.Context())
	entity, unlocked, err := c.Engine.Transition(r.Context(), ref, req.Action, actorID, req.Notes, req.Score)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.TransitionResponse{
		Entity:        mapEntityToApiEntity(entity),
		UnlockedGates: unlocked,
	})
}

func (c *EntitiesController) handleGetEntityHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ref := r.PathValue("id")
	entity, err := c.Engine.Resolve(ref)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	records, err := c.RecordRepo.FindAllByEntityID(entity.ID)
	if err != nil {
		slog.Error("Failed to load history", "entity_id", entity.ID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	history := make([]models.TransitionRecordApiResponse, 0)
	if records != nil {
		for _, rec := range *records {
			history = append(history, mapRecordToApiRecord(rec))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(history)
}

func (c *EntitiesController) handleGetValidActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ref := r.PathValue("id")
	entity, err := c.Engine.Resolve(ref)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	actions, err := c.Engine.ValidActions(entity)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(actions)
}

func mapEntityToApiEntity(e *domain.Entity) models.EntityApiResponse {
	var payload map[string]any
	if e.Payload.Valid && len(e.Payload.String) > 0 {
		if err := json.Unmarshal([]byte(e.Payload.String), &payload); err != nil {
			slog.Warn("Failed to parse entity payload", "id", e.ID, "error", err)
		}
	}
	return models.EntityApiResponse{
		ID:           e.ID,
		ExternalID:   e.ExternalID,
		WorkflowType: e.WorkflowType,
		BusinessKey:  e.BusinessKey,
		CurrentStage: e.CurrentStage,
		Payload:      payload,
		Created:      e.Created,
		Modified:     e.Modified,
	}
}

func mapRecordToApiRecord(rec domain.TransitionRecord) models.TransitionRecordApiResponse {
	api := models.TransitionRecordApiResponse{
		ID:        rec.ID,
		EntityID:  rec.EntityID,
		FromStage: rec.FromStage,
		ToStage:   rec.ToStage,
		Action:    rec.Action,
		ActorID:   rec.ActorID,
		DateTime:  rec.DateTime,
	}
	if rec.Notes.Valid {
		api.Notes = rec.Notes.String
	}
	if rec.Score.Valid {
		score := rec.Score.Float64
		api.Score = &score
	}
	return api
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var validation *engine.ValidationError
	if errors.As(err, &validation) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  "validation failed",
			"fields": validation.Fields,
		})
		return
	}
	var illegal *engine.IllegalTransitionError
	if errors.As(err, &illegal) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":        illegal.Error(),
			"validActions": illegal.ValidActions,
		})
		return
	}
	var storage *engine.StorageUnavailableError
	switch {
	case errors.Is(err, engine.ErrEntityNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrEntityTerminal):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrEntityBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrUnknownWorkflowType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &storage):
		slog.Error("Storage unavailable", "error", err)
		http.Error(w, "storage unavailable, retry later", http.StatusServiceUnavailable)
	default:
		slog.Error("Unhandled engine error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
