package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

type deliberationService struct {
	rounds    ports.RoundRepository
	decisions ports.DecisionRepository
	bus       ports.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewDeliberationService(rounds ports.RoundRepository, decisions ports.DecisionRepository, bus ports.Publisher) ports.DeliberationService {
	return &deliberationService{
		rounds:    rounds,
		decisions: decisions,
		bus:       bus,
		now:       time.Now,
		logger:    logging.New("deliberation"),
	}
}

func (s *deliberationService) UpdateControl(ctx context.Context, input ports.RoundControlInput) (*domain.Round, error) {
	if !input.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if _, err := s.deliberationRound(ctx, input.RoundID); err != nil {
		return nil, err
	}

	control := domain.RoundControl{
		VotingOpen:      input.VotingOpen,
		ResultsRevealed: input.ResultsRevealed,
		CurrentPnmID:    input.CurrentPnmID,
	}
	if input.SealedPnmIDs != nil || input.SealedResults != nil {
		if err := checkSeals(input.SealedPnmIDs, input.SealedResults); err != nil {
			return nil, err
		}
		control.ReplaceSeals = true
		control.SealedPnmIDs = *input.SealedPnmIDs
		control.SealedResults = *input.SealedResults
	}

	round, err := s.rounds.UpdateControl(ctx, input.RoundID, control)
	if err != nil {
		return nil, err
	}

	s.logger.Info("round control updated", "round_id", round.ID,
		"voting_open", round.Deliberation.VotingOpen,
		"results_revealed", round.Deliberation.ResultsRevealed)
	s.publishRoundChange(ctx, round.ID)
	return round, nil
}

// checkSeals requires the sealed set and the snapshot map to describe the
// same candidates.
func checkSeals(ids *[]uuid.UUID, results *map[uuid.UUID]domain.SealedResult) error {
	if ids == nil || results == nil {
		return domain.ErrInconsistentSeals
	}
	seen := make(map[uuid.UUID]struct{}, len(*ids))
	for _, id := range *ids {
		if _, ok := (*results)[id]; !ok {
			return domain.ErrInconsistentSeals
		}
		seen[id] = struct{}{}
	}
	if len(seen) != len(*results) {
		return domain.ErrInconsistentSeals
	}
	return nil
}

func (s *deliberationService) SetActiveCandidate(ctx context.Context, roundID, pnmID uuid.UUID, isAdmin bool) (*domain.Round, error) {
	return s.UpdateControl(ctx, ports.RoundControlInput{RoundID: roundID, CurrentPnmID: &pnmID, IsAdmin: isAdmin})
}

func (s *deliberationService) SetVotingOpen(ctx context.Context, roundID uuid.UUID, open, isAdmin bool) (*domain.Round, error) {
	return s.UpdateControl(ctx, ports.RoundControlInput{RoundID: roundID, VotingOpen: &open, IsAdmin: isAdmin})
}

func (s *deliberationService) SetResultsRevealed(ctx context.Context, roundID uuid.UUID, revealed, isAdmin bool) (*domain.Round, error) {
	return s.UpdateControl(ctx, ports.RoundControlInput{RoundID: roundID, ResultsRevealed: &revealed, IsAdmin: isAdmin})
}

func (s *deliberationService) Tally(ctx context.Context, roundID, pnmID uuid.UUID) (domain.Tally, error) {
	if _, err := s.deliberationRound(ctx, roundID); err != nil {
		return domain.Tally{}, err
	}
	return s.decisions.Tally(ctx, roundID, pnmID)
}

func (s *deliberationService) Seal(ctx context.Context, input ports.SealInput) (*domain.Round, error) {
	if !input.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if _, err := s.deliberationRound(ctx, input.RoundID); err != nil {
		return nil, err
	}

	tally, err := s.decisions.Tally(ctx, input.RoundID, input.PnmID)
	if err != nil {
		return nil, err
	}
	if tally.Total == 0 {
		return nil, domain.ErrNothingToSeal
	}

	result := domain.SealedResult{
		Yes:       tally.Yes,
		No:        tally.No,
		Total:     tally.Total,
		Timestamp: s.now(),
	}
	round, err := s.rounds.Seal(ctx, input.RoundID, input.PnmID, result)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pnm sealed", "round_id", input.RoundID, "pnm_id", input.PnmID, "yes", tally.Yes, "no", tally.No)
	s.publishRoundChange(ctx, input.RoundID)
	return round, nil
}

func (s *deliberationService) Unseal(ctx context.Context, input ports.SealInput) (*domain.Round, error) {
	if !input.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if _, err := s.deliberationRound(ctx, input.RoundID); err != nil {
		return nil, err
	}

	round, err := s.rounds.Unseal(ctx, input.RoundID, input.PnmID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pnm unsealed", "round_id", input.RoundID, "pnm_id", input.PnmID)
	s.publishRoundChange(ctx, input.RoundID)
	return round, nil
}

func (s *deliberationService) SubmitDecision(ctx context.Context, input ports.DecisionInput) (*domain.DeliberationDecision, error) {
	if err := requireIDs(input.VoterID, input.RoundID, input.PnmID); err != nil {
		return nil, err
	}

	round, err := s.deliberationRound(ctx, input.RoundID)
	if err != nil {
		return nil, err
	}
	if !round.IsOpen() {
		return nil, domain.ErrRoundNotOpen
	}
	state := round.Deliberation
	if !state.VotingOpen {
		return nil, domain.ErrVotingClosed
	}
	if state.CurrentPnmID == nil || *state.CurrentPnmID != input.PnmID {
		return nil, domain.ErrNotActiveCandidate
	}

	decision := &domain.DeliberationDecision{
		VoterID:   input.VoterID,
		PnmID:     input.PnmID,
		RoundID:   input.RoundID,
		Decision:  input.Decision,
		CreatedAt: s.now(),
	}
	if err := s.decisions.UpsertDecision(ctx, decision); err != nil {
		return nil, err
	}

	publish(ctx, s.bus, s.logger, domain.TableTopic(domain.EntityDeliberationDecisions),
		domain.TableChanged(domain.EntityDeliberationDecisions, input.PnmID.String(), domain.OperationUpdate, input.RoundID, s.now()))
	return decision, nil
}

// Result returns the aggregate a caller may see: the sealed snapshot when one
// exists, otherwise the live tally. Non-admins see nothing until results are
// revealed.
func (s *deliberationService) Result(ctx context.Context, roundID, pnmID uuid.UUID, isAdmin bool) (*ports.CandidateResult, error) {
	round, err := s.deliberationRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	state := round.Deliberation

	result := &ports.CandidateResult{
		RoundID: roundID,
		PnmID:   pnmID,
		Sealed:  state.IsSealed(pnmID),
		Visible: isAdmin || state.ResultsRevealed,
	}
	if !result.Visible {
		return result, nil
	}

	if result.Sealed {
		seal := state.SealedResults[pnmID]
		tally := seal.Tally()
		result.Seal = &seal
		result.Tally = &tally
		return result, nil
	}

	tally, err := s.decisions.Tally(ctx, roundID, pnmID)
	if err != nil {
		return nil, err
	}
	result.Tally = &tally
	return result, nil
}

// ListDecisions is the only path that exposes voter-level decisions.
func (s *deliberationService) ListDecisions(ctx context.Context, roundID, pnmID uuid.UUID, isAdmin bool) ([]domain.DeliberationDecision, error) {
	if !isAdmin {
		return nil, domain.ErrForbidden
	}
	if _, err := s.deliberationRound(ctx, roundID); err != nil {
		return nil, err
	}
	return s.decisions.ListDecisions(ctx, roundID, pnmID)
}

func (s *deliberationService) deliberationRound(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	round, err := s.rounds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !round.Archetype.IsDeliberation() || round.Deliberation == nil {
		return nil, domain.ErrWrongArchetype
	}
	return round, nil
}

func (s *deliberationService) publishRoundChange(ctx context.Context, roundID uuid.UUID) {
	publish(ctx, s.bus, s.logger, domain.TableTopic(domain.EntityRounds),
		domain.TableChanged(domain.EntityRounds, roundID.String(), domain.OperationUpdate, roundID, s.now()))
}
