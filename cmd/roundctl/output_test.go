package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"gopkg.in/yaml.v3"
)

func sampleStats() *domain.VoteStats {
	roundID := uuid.New()
	return &domain.VoteStats{
		PnmID:      uuid.New(),
		ScoreStats: domain.ScoreStats{Average: 4, Bayesian: 3.25, Count: 3},
		RoundStats: map[string]domain.RoundScoreStats{
			"Day 1": {RoundID: roundID, ScoreStats: domain.ScoreStats{Average: 4, Bayesian: 3.25, Count: 3}},
		},
	}
}

func TestParseOutput(t *testing.T) {
	for _, s := range []string{"table", "json", "yaml"} {
		mode, err := parseOutput(s)
		require.NoError(t, err)
		assert.Equal(t, outputMode(s), mode)
	}
	_, err := parseOutput("csv")
	assert.Error(t, err)
}

func TestRender_JSON(t *testing.T) {
	stats := sampleStats()
	var buf bytes.Buffer
	require.NoError(t, render(&buf, outputJSON, stats, voteStatsTable(stats)))

	var got domain.VoteStats
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, stats.Count, got.Count)
	assert.Contains(t, got.RoundStats, "Day 1")
}

func TestRender_YAMLUsesAPIFieldNames(t *testing.T) {
	stats := sampleStats()
	var buf bytes.Buffer
	require.NoError(t, render(&buf, outputYAML, stats, voteStatsTable(stats)))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got["count"])
	assert.Equal(t, 3.25, got["bayesian"])
	assert.Contains(t, got, "round_stats")
}

func TestRender_Table(t *testing.T) {
	opened := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	rounds := []*domain.Round{
		{ID: uuid.New(), Name: "Day 1", Archetype: domain.ArchetypeScored, Status: domain.RoundOpen, OpenedAt: &opened},
		{ID: uuid.New(), Name: "Bids", Archetype: domain.ArchetypeDeliberation, Status: domain.RoundPending},
	}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, outputTable, rounds, roundsTable(rounds)))

	out := buf.String()
	assert.Contains(t, out, "Day 1")
	assert.Contains(t, out, "deliberation")
	assert.Contains(t, out, "pending")

	stats := sampleStats()
	buf.Reset()
	require.NoError(t, render(&buf, outputTable, stats, voteStatsTable(stats)))
	assert.Contains(t, buf.String(), "3.25")
}

func TestRender_Tally(t *testing.T) {
	tally := domain.NewTally(4, 1)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, outputTable, tally, tallyTable(tally)))
	out := buf.String()
	assert.Contains(t, out, "YES")
	assert.Contains(t, out, "5")

	buf.Reset()
	require.NoError(t, render(&buf, outputJSON, tally, tallyTable(tally)))
	assert.JSONEq(t, `{"yes":4,"no":1,"total":5}`, buf.String())
}
