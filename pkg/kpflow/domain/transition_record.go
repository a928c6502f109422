package domain

import (
	"database/sql"
	"time"
)

// TransitionRecord is one append-only audit entry. Records are immutable
// once written; ordering for an entity follows insertion order.
type TransitionRecord struct {
	ID        int64
	EntityID  int64
	FromStage string
	ToStage   string
	Action    string
	ActorID   string
	Notes     sql.NullString
	Score     sql.NullFloat64
	DateTime  time.Time
}
