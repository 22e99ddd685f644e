package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRoundNotFound        = errors.New("round not found")
	ErrCandidateNotFound    = errors.New("pnm not found")
	ErrInvalidTransition    = errors.New("invalid round status transition")
	ErrConfirmationRequired = errors.New("another round is open; confirmation required")
	ErrWrongArchetype       = errors.New("operation not supported for this round archetype")
	ErrRoundNotOpen         = errors.New("round is not open")
	ErrVotingClosed         = errors.New("voting is closed")
	ErrNotActiveCandidate   = errors.New("pnm is not the active candidate")
	ErrForbidden            = errors.New("administrative privilege required")
	ErrInternal             = errors.New("internal server error")
)

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("validation failed")

var (
	ErrNameRequired      = fmt.Errorf("%w: name is required", ErrValidation)
	ErrInvalidArchetype  = fmt.Errorf("%w: archetype must be scored, interaction or deliberation", ErrValidation)
	ErrInvalidScore      = fmt.Errorf("%w: score must be between %d and %d", ErrValidation, MinScore, MaxScore)
	ErrInvalidID         = fmt.Errorf("%w: invalid id", ErrValidation)
	ErrNothingToSeal     = fmt.Errorf("%w: no decisions recorded; load results before sealing", ErrValidation)
	ErrInconsistentSeals = fmt.Errorf("%w: sealedPnmIds and sealedResults must be updated together and match", ErrValidation)
)
