package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Person struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FullName returns the display name used in search results and views.
func (p *Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PersonWithLinks bundles a person with their offense links, preloaded in
// link creation order. Classification iterates links in this order.
type PersonWithLinks struct {
	Person *Person        `json:"person"`
	Links  []*OffenseLink `json:"offenses"`
}
