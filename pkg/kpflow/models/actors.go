package models

import "time"

// CreateActorRequest registers an actor that may perform transitions.
type CreateActorRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CreateActorResponse carries the generated API key. The key is shown only
// once; the stored value is a bcrypt hash of its secret half.
type CreateActorResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ApiKey   string `json:"apiKey"`
}

// ActorApiResponse represents an actor without credential material.
type ActorApiResponse struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Enabled  bool      `json:"enabled"`
	Created  time.Time `json:"created"`
}
