package controllers

import (
	"log/slog"
	"net/http"

	"github.com/kpflow/kpflow/internal/engine"
	"github.com/kpflow/kpflow/internal/util"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

type GatesController struct {
	AuthController
	Gates *engine.GateEvaluator
}

func NewGatesController(gates *engine.GateEvaluator, actorRepo engine.ActorRepo) *GatesController {
	return &GatesController{Gates: gates, AuthController: AuthController{ActorRepo: actorRepo}}
}

func (c *GatesController) handleGetGateStates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	businessKey := r.URL.Query().Get("businessKey")
	if businessKey == "" {
		http.Error(w, "businessKey is required", http.StatusBadRequest)
		return
	}

	states, err := c.Gates.GateStates(r.Context(), businessKey)
	if err != nil {
		slog.Error("Failed to evaluate gates", "business_key", businessKey, "error", err)
		writeEngineError(w, err)
		return
	}

	util.WriteJSONResponse(w, http.StatusOK, models.GateStateResponse{
		BusinessKey: businessKey,
		Gates:       states,
	})
}
