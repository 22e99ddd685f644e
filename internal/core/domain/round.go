package domain

import (
	"time"

	"github.com/google/uuid"
)

// Archetype is the kind of decision a round collects.
type Archetype string

const (
	ArchetypeScored       Archetype = "scored"
	ArchetypeInteraction  Archetype = "interaction"
	ArchetypeDeliberation Archetype = "deliberation"
)

func ParseArchetype(s string) (Archetype, error) {
	a := Archetype(s)
	if !a.Valid() {
		return "", ErrInvalidArchetype
	}
	return a, nil
}

func (a Archetype) Valid() bool {
	switch a {
	case ArchetypeScored, ArchetypeInteraction, ArchetypeDeliberation:
		return true
	}
	return false
}

func (a Archetype) IsScored() bool       { return a == ArchetypeScored }
func (a Archetype) IsInteraction() bool  { return a == ArchetypeInteraction }
func (a Archetype) IsDeliberation() bool { return a == ArchetypeDeliberation }

type RoundStatus string

const (
	RoundPending RoundStatus = "pending"
	RoundOpen    RoundStatus = "open"
	RoundClosed  RoundStatus = "closed"
)

type Round struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Archetype Archetype   `json:"archetype"`
	Status    RoundStatus `json:"status"`
	OpenedAt  *time.Time  `json:"opened_at,omitempty"`
	ClosedAt  *time.Time  `json:"closed_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`

	// Deliberation is set only for deliberation rounds.
	Deliberation *DeliberationState `json:"deliberation,omitempty"`
}

func (r *Round) IsOpen() bool { return r.Status == RoundOpen }

// DeliberationState is the administrative state of a live deliberation.
type DeliberationState struct {
	CurrentPnmID    *uuid.UUID                 `json:"current_pnm_id,omitempty"`
	VotingOpen      bool                       `json:"voting_open"`
	ResultsRevealed bool                       `json:"results_revealed"`
	SealedPnmIDs    []uuid.UUID                `json:"sealed_pnm_ids"`
	SealedResults   map[uuid.UUID]SealedResult `json:"sealed_results"`
}

func NewDeliberationState() *DeliberationState {
	return &DeliberationState{
		SealedPnmIDs:  []uuid.UUID{},
		SealedResults: map[uuid.UUID]SealedResult{},
	}
}

func (d *DeliberationState) IsSealed(pnmID uuid.UUID) bool {
	for _, id := range d.SealedPnmIDs {
		if id == pnmID {
			return true
		}
	}
	return false
}

// Tally is the aggregate of deliberation decisions for one candidate.
type Tally struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Total int `json:"total"`
}

func NewTally(yes, no int) Tally {
	return Tally{Yes: yes, No: no, Total: yes + no}
}

// SealedResult is a frozen tally.
type SealedResult struct {
	Yes       int       `json:"yes"`
	No        int       `json:"no"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

func (s SealedResult) Tally() Tally {
	return Tally{Yes: s.Yes, No: s.No, Total: s.Total}
}

// RoundControl is a partial update of a deliberation round's administrative
// state. Nil fields are left untouched.
type RoundControl struct {
	VotingOpen      *bool
	ResultsRevealed *bool
	CurrentPnmID    *uuid.UUID
	SealedPnmIDs    []uuid.UUID
	SealedResults   map[uuid.UUID]SealedResult
	ReplaceSeals    bool
}
