package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kpflow/kpflow/internal/engine"
	"github.com/kpflow/kpflow/pkg/kpflow/core"
)

// AuthController resolves the acting user from an API key of the form
// <actorId>.<secret>. The secret half is bcrypt-compared against the stored
// hash; the resolved actor id is what ends up on every transition record.
type AuthController struct {
	ActorRepo engine.ActorRepo
}

func NewBaseController(actorRepo engine.ActorRepo) *AuthController {
	return &AuthController{ActorRepo: actorRepo}
}

func (ac *AuthController) RequireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		actor := ac.resolveActor(apiKey)
		if actor == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), core.CtxKeyActorId, strconv.FormatInt(actor.ID, 10))
		ctx = context.WithValue(ctx, core.CtxKeyUsername, actor.Username)
		next(w, r.WithContext(ctx))
	}
}

func (ac *AuthController) resolveActor(apiKey string) *actorIdentity {
	idPart, secret, found := strings.Cut(apiKey, ".")
	if !found || secret == "" {
		return nil
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil
	}
	actor, err := ac.ActorRepo.FindById(id)
	if err != nil || actor == nil || !actor.Enabled {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(actor.ApiKeyHash), []byte(secret)) != nil {
		return nil
	}
	return &actorIdentity{ID: actor.ID, Username: actor.Username}
}

type actorIdentity struct {
	ID       int64
	Username string
}

// ActorIDFromContext returns the authenticated actor id, or "" when the
// request was not authenticated (tests hitting handlers directly).
func ActorIDFromContext(ctx context.Context) string {
	if v := ctx.Value(core.CtxKeyActorId); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
