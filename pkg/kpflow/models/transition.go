package models

import "time"

// TransitionRequest asks the engine to apply an action to an entity. The
// actor is taken from the authenticated request, never from the body.
type TransitionRequest struct {
	Action string   `json:"action"`
	Notes  string   `json:"notes,omitempty"`
	Score  *float64 `json:"score,omitempty"`
}

// TransitionResponse carries the entity after the transition plus the gates
// that are unlocked for its business key.
type TransitionResponse struct {
	Entity        EntityApiResponse `json:"entity"`
	UnlockedGates []string          `json:"unlockedGates"`
}

// TransitionRecordApiResponse is one audit trail entry as served over HTTP.
type TransitionRecordApiResponse struct {
	ID        int64     `json:"id"`
	EntityID  int64     `json:"entityId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actorId"`
	Notes     string    `json:"notes,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	DateTime  time.Time `json:"dateTime"`
}

// ValidActionsResponse lists the actions currently legal for an entity.
type ValidActionsResponse struct {
	CurrentStage string   `json:"currentStage"`
	Terminal     bool     `json:"terminal"`
	Actions      []string `json:"actions"`
}
