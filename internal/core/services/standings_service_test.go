package services

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

func TestStandingsService_RanksByBayesianScore(t *testing.T) {
	f := newFixture(t)
	ids := f.candidates(4)
	strong, steady, weak, unseen := ids[0], ids[1], ids[2], ids[3]

	r := f.createRound(t, "Day 1", domain.ArchetypeScored, true)
	f.castScores(t, r.ID, strong, 5, 5, 5, 5)
	f.castScores(t, r.ID, steady, 4, 4)
	f.castScores(t, r.ID, weak, 1, 2)

	standings, err := f.standings.Standings(context.Background())
	require.NoError(t, err)

	type row struct {
		Rank  int
		PnmID uuid.UUID
		Count int
	}
	got := make([]row, len(standings))
	for i, s := range standings {
		got[i] = row{s.Rank, s.PnmID, s.Count}
	}
	want := []row{
		{1, strong, 4},
		{2, steady, 2},
		{3, unseen, 0},
		{4, weak, 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("standings mismatch (-want +got):\n%s", diff)
	}
}

func TestStandingsService_NoCandidates(t *testing.T) {
	f := newFixture(t)
	standings, err := f.standings.Standings(context.Background())
	require.NoError(t, err)
	require.Empty(t, standings)
}
