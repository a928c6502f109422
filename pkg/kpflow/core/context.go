package core

type ctxKey string

const (
	CtxKeyActorId  ctxKey = ctxKey("actorId")
	CtxKeyUsername ctxKey = ctxKey("username")
)
