package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/rushvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

func TestRoundRepository(t *testing.T) {
	db := setupDB(t)
	repo := postgres.NewRoundRepository(db)
	ctx := context.Background()

	t.Run("open closes the previously open round", func(t *testing.T) {
		a := insertRound(t, repo, "Round A", domain.ArchetypeScored)
		b := insertRound(t, repo, "Round B", domain.ArchetypeInteraction)

		closed, err := repo.Open(ctx, a.ID, time.Now())
		require.NoError(t, err)
		assert.Nil(t, closed)

		closed, err = repo.Open(ctx, b.ID, time.Now())
		require.NoError(t, err)
		require.NotNil(t, closed)
		assert.Equal(t, a.ID, *closed)

		gotA, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoundClosed, gotA.Status)
		assert.NotNil(t, gotA.ClosedAt)

		gotB, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoundOpen, gotB.Status)
		assert.NotNil(t, gotB.OpenedAt)
		assert.Nil(t, gotB.ClosedAt)

		open, err := repo.GetOpen(ctx)
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Equal(t, b.ID, open.ID)

		require.NoError(t, repo.Close(ctx, b.ID, time.Now()))
	})

	t.Run("concurrent opens leave exactly one open round", func(t *testing.T) {
		ids := make([]uuid.UUID, 8)
		for i := range ids {
			ids[i] = insertRound(t, repo, "Concurrent", domain.ArchetypeScored).ID
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := repo.Open(ctx, id, time.Now())
				assert.NoError(t, err)
			}(id)
		}
		wg.Wait()

		var open int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM rounds WHERE status = 'open'`).Scan(&open))
		assert.Equal(t, 1, open)

		current, err := repo.GetOpen(ctx)
		require.NoError(t, err)
		require.NotNil(t, current)
		require.NoError(t, repo.Close(ctx, current.ID, time.Now()))
	})

	t.Run("close rejects a round that is not open", func(t *testing.T) {
		r := insertRound(t, repo, "Pending", domain.ArchetypeScored)
		assert.ErrorIs(t, repo.Close(ctx, r.ID, time.Now()), domain.ErrInvalidTransition)
		assert.ErrorIs(t, repo.Close(ctx, uuid.New(), time.Now()), domain.ErrRoundNotFound)
	})

	t.Run("get open returns nil when nothing is open", func(t *testing.T) {
		open, err := repo.GetOpen(ctx)
		require.NoError(t, err)
		assert.Nil(t, open)
	})

	t.Run("seal and unseal a candidate", func(t *testing.T) {
		r := insertRound(t, repo, "Deliberation", domain.ArchetypeDeliberation)
		pnm := insertCandidate(t, db)
		result := domain.SealedResult{Yes: 4, No: 1, Total: 5, Timestamp: time.Now().UTC().Truncate(time.Second)}

		sealed, err := repo.Seal(ctx, r.ID, pnm, result)
		require.NoError(t, err)
		require.NotNil(t, sealed.Deliberation)
		assert.Equal(t, []uuid.UUID{pnm}, sealed.Deliberation.SealedPnmIDs)
		assert.Equal(t, result.Tally(), sealed.Deliberation.SealedResults[pnm].Tally())
		assert.True(t, result.Timestamp.Equal(sealed.Deliberation.SealedResults[pnm].Timestamp))

		// Re-sealing overwrites without duplicating the id.
		resealed, err := repo.Seal(ctx, r.ID, pnm, domain.SealedResult{Yes: 5, No: 1, Total: 6, Timestamp: time.Now()})
		require.NoError(t, err)
		assert.Len(t, resealed.Deliberation.SealedPnmIDs, 1)
		assert.Equal(t, 6, resealed.Deliberation.SealedResults[pnm].Total)

		unsealed, err := repo.Unseal(ctx, r.ID, pnm)
		require.NoError(t, err)
		assert.Empty(t, unsealed.Deliberation.SealedPnmIDs)
		assert.Empty(t, unsealed.Deliberation.SealedResults)
	})

	t.Run("deliberation updates reject other archetypes", func(t *testing.T) {
		r := insertRound(t, repo, "Scored", domain.ArchetypeScored)
		_, err := repo.Seal(ctx, r.ID, uuid.New(), domain.SealedResult{Yes: 1, Total: 1})
		assert.ErrorIs(t, err, domain.ErrWrongArchetype)

		_, err = repo.UpdateControl(ctx, uuid.New(), domain.RoundControl{})
		assert.ErrorIs(t, err, domain.ErrRoundNotFound)
	})

	t.Run("update control only touches supplied fields", func(t *testing.T) {
		r := insertRound(t, repo, "Control", domain.ArchetypeDeliberation)
		pnm := uuid.New()
		yes := true

		updated, err := repo.UpdateControl(ctx, r.ID, domain.RoundControl{VotingOpen: &yes, CurrentPnmID: &pnm})
		require.NoError(t, err)
		assert.True(t, updated.Deliberation.VotingOpen)
		assert.False(t, updated.Deliberation.ResultsRevealed)
		require.NotNil(t, updated.Deliberation.CurrentPnmID)
		assert.Equal(t, pnm, *updated.Deliberation.CurrentPnmID)

		updated, err = repo.UpdateControl(ctx, r.ID, domain.RoundControl{ResultsRevealed: &yes})
		require.NoError(t, err)
		assert.True(t, updated.Deliberation.VotingOpen)
		assert.True(t, updated.Deliberation.ResultsRevealed)
		assert.Equal(t, pnm, *updated.Deliberation.CurrentPnmID)

		seal := domain.SealedResult{Yes: 2, No: 0, Total: 2, Timestamp: time.Now().UTC()}
		updated, err = repo.UpdateControl(ctx, r.ID, domain.RoundControl{
			ReplaceSeals:  true,
			SealedPnmIDs:  []uuid.UUID{pnm},
			SealedResults: map[uuid.UUID]domain.SealedResult{pnm: seal},
		})
		require.NoError(t, err)
		assert.True(t, updated.Deliberation.IsSealed(pnm))
		assert.Equal(t, 2, updated.Deliberation.SealedResults[pnm].Yes)
	})

	t.Run("delete cascades ballots", func(t *testing.T) {
		r := insertRound(t, repo, "Doomed", domain.ArchetypeScored)
		pnm := insertCandidate(t, db)
		votes := postgres.NewVoteRepository(db)
		require.NoError(t, votes.UpsertVote(ctx, &domain.Vote{VoterID: uuid.New(), PnmID: pnm, RoundID: r.ID, Score: 3, CreatedAt: time.Now()}))

		require.NoError(t, repo.Delete(ctx, r.ID))
		assert.ErrorIs(t, repo.Delete(ctx, r.ID), domain.ErrRoundNotFound)

		var remaining int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM votes WHERE round_id = $1`, r.ID).Scan(&remaining))
		assert.Zero(t, remaining)
	})
}
