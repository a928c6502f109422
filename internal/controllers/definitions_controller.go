package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kpflow/kpflow/internal/engine"
)

type DefinitionsController struct {
	AuthController
	DefinitionRepo engine.DefinitionRepo
}

func NewDefinitionsController(definitionRepo engine.DefinitionRepo, actorRepo engine.ActorRepo) *DefinitionsController {
	return &DefinitionsController{DefinitionRepo: definitionRepo, AuthController: AuthController{ActorRepo: actorRepo}}
}

// handleListDefinitions returns a list of all stored stage definitions
func (c *DefinitionsController) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defs, err := c.DefinitionRepo.FindAll()
	if err != nil {
		slog.Error("Failed to list stage definitions", "error", err)
		http.Error(w, "Failed to load definitions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(defs)
}

// handleGetDefinitionByType returns a specific stage definition by workflow type
func (c *DefinitionsController) handleGetDefinitionByType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	workflowType := r.PathValue("workflowType")
	if workflowType == "" {
		http.Error(w, "workflowType is required", http.StatusBadRequest)
		return
	}

	def, err := c.DefinitionRepo.FindByWorkflowType(workflowType)
	if err != nil || def == nil {
		slog.Error("Failed to get stage definition", "workflow_type", workflowType, "error", err)
		http.Error(w, "Definition not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(def)
}
