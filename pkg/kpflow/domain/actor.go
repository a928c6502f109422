package domain

import "time"

// Actor is a registered participant (student, lecturer, mentor, admin)
// whose id is recorded on every transition it performs.
type Actor struct {
	ID         int64
	Username   string
	Role       string
	ApiKeyHash string
	Enabled    bool
	Created    time.Time
}
