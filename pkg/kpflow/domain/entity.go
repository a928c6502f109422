package domain

import (
	"database/sql"
	"time"
)

// Entity is any object whose lifecycle is governed by a registered
// workflow. The engine owns CurrentStage; Payload is opaque domain data.
type Entity struct {
	ID           int64
	ExternalID   string
	WorkflowType string
	BusinessKey  string
	CurrentStage string
	Payload      sql.NullString
	Created      time.Time
	Modified     time.Time
}
