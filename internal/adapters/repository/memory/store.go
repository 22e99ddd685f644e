// Package memory is an in-process Persistence Adapter. A single mutex
// serializes every operation, which gives Open the same atomicity the
// Postgres adapter gets from its transaction.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

var (
	_ ports.RoundRepository       = (*Store)(nil)
	_ ports.VoteRepository        = (*Store)(nil)
	_ ports.InteractionRepository = (*Store)(nil)
	_ ports.DecisionRepository    = (*Store)(nil)
	_ ports.CandidateRepository   = (*Store)(nil)
)

type ballotKey struct {
	voter uuid.UUID
	pnm   uuid.UUID
	round uuid.UUID
}

type Store struct {
	mu           sync.Mutex
	rounds       map[uuid.UUID]*domain.Round
	candidates   map[uuid.UUID]struct{}
	votes        map[ballotKey]domain.Vote
	interactions map[ballotKey]domain.Interaction
	decisions    map[ballotKey]domain.DeliberationDecision
}

func NewStore() *Store {
	return &Store{
		rounds:       make(map[uuid.UUID]*domain.Round),
		candidates:   make(map[uuid.UUID]struct{}),
		votes:        make(map[ballotKey]domain.Vote),
		interactions: make(map[ballotKey]domain.Interaction),
		decisions:    make(map[ballotKey]domain.DeliberationDecision),
	}
}

// AddCandidates registers pnm ids so ballots referencing them are accepted.
func (s *Store) AddCandidates(ids ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.candidates[id] = struct{}{}
	}
}

func (s *Store) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.candidates))
	for id := range s.candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Rounds

func (s *Store) Create(ctx context.Context, round *domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if round.Archetype.IsDeliberation() && round.Deliberation == nil {
		round.Deliberation = domain.NewDeliberationState()
	}
	s.rounds[round.ID] = cloneRound(round)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	return cloneRound(r), nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Round, error) {
	return s.list(func(*domain.Round) bool { return true }), nil
}

func (s *Store) ListByArchetype(ctx context.Context, archetype domain.Archetype) ([]*domain.Round, error) {
	return s.list(func(r *domain.Round) bool { return r.Archetype == archetype }), nil
}

func (s *Store) list(keep func(*domain.Round) bool) []*domain.Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rounds []*domain.Round
	for _, r := range s.rounds {
		if keep(r) {
			rounds = append(rounds, cloneRound(r))
		}
	}
	sort.Slice(rounds, func(i, j int) bool {
		if !rounds[i].CreatedAt.Equal(rounds[j].CreatedAt) {
			return rounds[i].CreatedAt.Before(rounds[j].CreatedAt)
		}
		return bytes.Compare(rounds[i].ID[:], rounds[j].ID[:]) < 0
	})
	return rounds
}

func (s *Store) GetOpen(ctx context.Context) (*domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rounds {
		if r.IsOpen() {
			return cloneRound(r), nil
		}
	}
	return nil, nil
}

func (s *Store) Open(ctx context.Context, id uuid.UUID, at time.Time) (*uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}

	var closed *uuid.UUID
	for _, r := range s.rounds {
		if r.ID != id && r.IsOpen() {
			r.Status = domain.RoundClosed
			r.ClosedAt = timePtr(at)
			closedID := r.ID
			closed = &closedID
		}
	}

	target.Status = domain.RoundOpen
	target.OpenedAt = timePtr(at)
	target.ClosedAt = nil
	return closed, nil
}

func (s *Store) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return domain.ErrRoundNotFound
	}
	if !r.IsOpen() {
		return domain.ErrInvalidTransition
	}
	r.Status = domain.RoundClosed
	r.ClosedAt = timePtr(at)
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rounds[id]; !ok {
		return domain.ErrRoundNotFound
	}
	delete(s.rounds, id)
	for k := range s.votes {
		if k.round == id {
			delete(s.votes, k)
		}
	}
	for k := range s.interactions {
		if k.round == id {
			delete(s.interactions, k)
		}
	}
	for k := range s.decisions {
		if k.round == id {
			delete(s.decisions, k)
		}
	}
	return nil
}

func (s *Store) UpdateControl(ctx context.Context, id uuid.UUID, control domain.RoundControl) (*domain.Round, error) {
	return s.mutateDeliberation(id, func(d *domain.DeliberationState) {
		if control.VotingOpen != nil {
			d.VotingOpen = *control.VotingOpen
		}
		if control.ResultsRevealed != nil {
			d.ResultsRevealed = *control.ResultsRevealed
		}
		if control.CurrentPnmID != nil {
			pnm := *control.CurrentPnmID
			d.CurrentPnmID = &pnm
		}
		if control.ReplaceSeals {
			d.SealedPnmIDs = append([]uuid.UUID{}, control.SealedPnmIDs...)
			d.SealedResults = make(map[uuid.UUID]domain.SealedResult, len(control.SealedResults))
			for k, v := range control.SealedResults {
				d.SealedResults[k] = v
			}
		}
	})
}

func (s *Store) Seal(ctx context.Context, roundID, pnmID uuid.UUID, result domain.SealedResult) (*domain.Round, error) {
	return s.mutateDeliberation(roundID, func(d *domain.DeliberationState) {
		if !d.IsSealed(pnmID) {
			d.SealedPnmIDs = append(d.SealedPnmIDs, pnmID)
		}
		d.SealedResults[pnmID] = result
	})
}

func (s *Store) Unseal(ctx context.Context, roundID, pnmID uuid.UUID) (*domain.Round, error) {
	return s.mutateDeliberation(roundID, func(d *domain.DeliberationState) {
		ids := d.SealedPnmIDs[:0]
		for _, id := range d.SealedPnmIDs {
			if id != pnmID {
				ids = append(ids, id)
			}
		}
		d.SealedPnmIDs = ids
		delete(d.SealedResults, pnmID)
	})
}

func (s *Store) mutateDeliberation(id uuid.UUID, mutate func(*domain.DeliberationState)) (*domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	if !r.Archetype.IsDeliberation() {
		return nil, domain.ErrWrongArchetype
	}
	mutate(r.Deliberation)
	return cloneRound(r), nil
}

// Ballots

func (s *Store) UpsertVote(ctx context.Context, vote *domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefs(vote.RoundID, vote.PnmID); err != nil {
		return err
	}
	s.votes[ballotKey{vote.VoterID, vote.PnmID, vote.RoundID}] = *vote
	return nil
}

func (s *Store) ListByCandidate(ctx context.Context, pnmID uuid.UUID) ([]domain.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var votes []domain.Vote
	for k, v := range s.votes {
		if k.pnm == pnmID {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func (s *Store) ScoreSummary(ctx context.Context) (domain.ScoreSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, count := 0, 0
	for _, v := range s.votes {
		r, ok := s.rounds[v.RoundID]
		if !ok || !r.Archetype.IsScored() {
			continue
		}
		sum += v.Score
		count++
	}
	if count == 0 {
		return domain.ScoreSummary{}, nil
	}
	return domain.ScoreSummary{Mean: float64(sum) / float64(count), Count: count}, nil
}

func (s *Store) UpsertInteraction(ctx context.Context, interaction *domain.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefs(interaction.RoundID, interaction.PnmID); err != nil {
		return err
	}
	s.interactions[ballotKey{interaction.VoterID, interaction.PnmID, interaction.RoundID}] = *interaction
	return nil
}

func (s *Store) CountByCandidate(ctx context.Context, pnmID uuid.UUID) ([]domain.InteractionCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byRound := make(map[uuid.UUID]*domain.InteractionCount)
	for k, in := range s.interactions {
		if k.pnm != pnmID {
			continue
		}
		c, ok := byRound[k.round]
		if !ok {
			c = &domain.InteractionCount{RoundID: k.round}
			byRound[k.round] = c
		}
		if in.Interacted {
			c.Interacted++
		} else {
			c.NotInteracted++
		}
	}

	counts := make([]domain.InteractionCount, 0, len(byRound))
	for _, c := range byRound {
		counts = append(counts, *c)
	}
	return counts, nil
}

func (s *Store) UpsertDecision(ctx context.Context, decision *domain.DeliberationDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefs(decision.RoundID, decision.PnmID); err != nil {
		return err
	}
	s.decisions[ballotKey{decision.VoterID, decision.PnmID, decision.RoundID}] = *decision
	return nil
}

func (s *Store) Tally(ctx context.Context, roundID, pnmID uuid.UUID) (domain.Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	yes, no := 0, 0
	for k, d := range s.decisions {
		if k.round != roundID || k.pnm != pnmID {
			continue
		}
		if d.Decision {
			yes++
		} else {
			no++
		}
	}
	return domain.NewTally(yes, no), nil
}

func (s *Store) ListDecisions(ctx context.Context, roundID, pnmID uuid.UUID) ([]domain.DeliberationDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var decisions []domain.DeliberationDecision
	for k, d := range s.decisions {
		if k.round == roundID && k.pnm == pnmID {
			decisions = append(decisions, d)
		}
	}
	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].CreatedAt.Before(decisions[j].CreatedAt)
	})
	return decisions, nil
}

func (s *Store) checkRefs(roundID, pnmID uuid.UUID) error {
	if _, ok := s.rounds[roundID]; !ok {
		return domain.ErrRoundNotFound
	}
	if _, ok := s.candidates[pnmID]; !ok {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func cloneRound(r *domain.Round) *domain.Round {
	c := *r
	if r.OpenedAt != nil {
		c.OpenedAt = timePtr(*r.OpenedAt)
	}
	if r.ClosedAt != nil {
		c.ClosedAt = timePtr(*r.ClosedAt)
	}
	if r.Deliberation != nil {
		d := *r.Deliberation
		if r.Deliberation.CurrentPnmID != nil {
			pnm := *r.Deliberation.CurrentPnmID
			d.CurrentPnmID = &pnm
		}
		d.SealedPnmIDs = append([]uuid.UUID{}, r.Deliberation.SealedPnmIDs...)
		d.SealedResults = make(map[uuid.UUID]domain.SealedResult, len(r.Deliberation.SealedResults))
		for k, v := range r.Deliberation.SealedResults {
			d.SealedResults[k] = v
		}
		c.Deliberation = &d
	}
	return &c
}

func timePtr(t time.Time) *time.Time {
	return &t
}
