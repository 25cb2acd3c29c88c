package models

import "time"

// Turn is one persisted prompt/response exchange within a session. Rows are
// append-only: once written they are never updated or deleted by this service.
type Turn struct {
	ID        string
	UserID    string
	SessionID string
	Prompt    string
	Response  string
	CreatedAt time.Time
}
