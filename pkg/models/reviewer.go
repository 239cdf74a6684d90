package models

import (
	"time"

	"github.com/google/uuid"
)

// Reviewer is an actor in the review workflow. Each reviewer holds exactly
// one role; account lifecycle is owned by the identity system, this service
// only reads reviewers for assignment and attribution.
type Reviewer struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        ReviewRole `json:"role"`
	IsAvailable bool       `json:"is_available"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ReviewerWorkload pairs a reviewer with their current open-submission count
// for their role. Snapshots are recomputed per assignment call, never cached.
type ReviewerWorkload struct {
	Reviewer  Reviewer `json:"reviewer"`
	OpenCount int      `json:"open_count"`
}
