package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kpflow/kpflow/internal/engine"
	"github.com/kpflow/kpflow/internal/util"
	"github.com/kpflow/kpflow/pkg/kpflow/core"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"
	"github.com/kpflow/kpflow/pkg/kpflow/models"
)

type ActorsController struct {
	AuthController
	Clock core.Clock
}

func NewActorsController(actorRepo engine.ActorRepo, clock core.Clock) *ActorsController {
	return &ActorsController{AuthController: AuthController{ActorRepo: actorRepo}, Clock: clock}
}

// handleCreateActor registers an actor and returns its API key once. When
// no actors exist yet the call is allowed unauthenticated so the first
// admin can bootstrap the system.
func (c *ActorsController) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := util.DecodeJSONBody[models.CreateActorRequest](r)
	if err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	if existing, err := c.ActorRepo.FindByUsername(req.Username); err == nil && existing != nil {
		http.Error(w, "username already exists", http.StatusConflict)
		return
	}

	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash api key", "error", err)
		http.Error(w, "failed to create actor", http.StatusInternalServerError)
		return
	}

	actor := &domain.Actor{
		Username:   req.Username,
		Role:       req.Role,
		ApiKeyHash: string(hash),
		Enabled:    true,
		Created:    c.Clock.Now().UTC(),
	}
	id, err := c.ActorRepo.Save(actor)
	if err != nil {
		slog.Error("Failed to save actor", "error", err)
		http.Error(w, "failed to create actor", http.StatusInternalServerError)
		return
	}

	util.WriteJSONResponse(w, http.StatusOK, models.CreateActorResponse{
		ID:       id,
		Username: actor.Username,
		Role:     actor.Role,
		ApiKey:   fmt.Sprintf("%d.%s", id, secret),
	})
}

func (c *ActorsController) handleListActors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	actors, err := c.ActorRepo.FindAll()
	if err != nil {
		slog.Error("Failed to list actors", "error", err)
		http.Error(w, "failed to list actors", http.StatusInternalServerError)
		return
	}

	out := make([]models.ActorApiResponse, 0)
	if actors != nil {
		for _, a := range *actors {
			out = append(out, models.ActorApiResponse{
				ID:       a.ID,
				Username: a.Username,
				Role:     a.Role,
				Enabled:  a.Enabled,
				Created:  a.Created,
			})
		}
	}
	util.WriteJSONResponse(w, http.StatusOK, out)
}

// requireActorOrBootstrap lets the very first actor be created without a
// key; once any actor exists the normal auth applies.
func (c *ActorsController) requireActorOrBootstrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actors, err := c.ActorRepo.FindAll()
		if err == nil && actors != nil && len(*actors) == 0 {
			next(w, r)
			return
		}
		c.RequireActor(next)(w, r)
	}
}
