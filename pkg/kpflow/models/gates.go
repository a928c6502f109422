package models

// GateStateResponse maps each registered gate rule to its unlocked state
// for one business key.
type GateStateResponse struct {
	BusinessKey string          `json:"businessKey"`
	Gates       map[string]bool `json:"gates"`
}
