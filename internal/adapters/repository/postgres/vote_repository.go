package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) UpsertVote(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (voter_id, pnm_id, round_id, score, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (voter_id, pnm_id, round_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, vote.VoterID, vote.PnmID, vote.RoundID, vote.Score, vote.CreatedAt)
	if err != nil {
		if refErr := refError(err); refErr != nil {
			return refErr
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) ListByCandidate(ctx context.Context, pnmID uuid.UUID) ([]domain.Vote, error) {
	query := `
		SELECT voter_id, pnm_id, round_id, score, created_at
		FROM votes
		WHERE pnm_id = $1
		ORDER BY created_at, voter_id
	`
	rows, err := r.db.QueryContext(ctx, query, pnmID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := []domain.Vote{}
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.VoterID, &v.PnmID, &v.RoundID, &v.Score, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}
	return votes, nil
}

// ScoreSummary covers every score cast in a scored round.
func (r *voteRepository) ScoreSummary(ctx context.Context) (domain.ScoreSummary, error) {
	query := `
		SELECT COALESCE(AVG(v.score), 0)::float8, COUNT(v.score)
		FROM votes v
		JOIN rounds r ON r.id = v.round_id
		WHERE r.archetype = 'scored'
	`
	var summary domain.ScoreSummary
	if err := r.db.QueryRowContext(ctx, query).Scan(&summary.Mean, &summary.Count); err != nil {
		return domain.ScoreSummary{}, fmt.Errorf("failed to summarize scores: %w", err)
	}
	return summary, nil
}
