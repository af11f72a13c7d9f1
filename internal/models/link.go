package models

import (
	"time"

	"github.com/google/uuid"
)

// OffenseLink associates a person with at most one offense: federal, state, or
// none. The jurisdiction tag plus single Offense pointer replaces the pair of
// nullable foreign keys the storage layer uses; a CHECK constraint there keeps
// the two columns mutually exclusive.
type OffenseLink struct {
	ID           uuid.UUID    `json:"id"`
	PersonID     uuid.UUID    `json:"person_id"`
	Jurisdiction Jurisdiction `json:"jurisdiction,omitempty"` // empty when no offense is attached
	Offense      *Offense     `json:"offense,omitempty"`      // nil when no offense is attached
	DateCharged  *time.Time   `json:"date_charged,omitempty"`
	Convicted    bool         `json:"convicted"`
	CreatedAt    time.Time    `json:"created_at"`
}

// HasOffense reports whether the link carries an offense.
func (l *OffenseLink) HasOffense() bool {
	return l.Offense != nil
}
