package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type decisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) ports.DecisionRepository {
	return &decisionRepository{
		db: db,
	}
}

func (r *decisionRepository) UpsertDecision(ctx context.Context, decision *domain.DeliberationDecision) error {
	query := `
		INSERT INTO deliberation_decisions (voter_id, pnm_id, round_id, decision, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (voter_id, pnm_id, round_id)
		DO UPDATE SET decision = EXCLUDED.decision, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		decision.VoterID, decision.PnmID, decision.RoundID, decision.Decision, decision.CreatedAt,
	)
	if err != nil {
		if refErr := refError(err); refErr != nil {
			return refErr
		}
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

func (r *decisionRepository) Tally(ctx context.Context, roundID, pnmID uuid.UUID) (domain.Tally, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE decision), COUNT(*) FILTER (WHERE NOT decision)
		FROM deliberation_decisions
		WHERE round_id = $1 AND pnm_id = $2
	`
	var yes, no int
	if err := r.db.QueryRowContext(ctx, query, roundID, pnmID).Scan(&yes, &no); err != nil {
		return domain.Tally{}, fmt.Errorf("failed to tally decisions: %w", err)
	}
	return domain.NewTally(yes, no), nil
}

func (r *decisionRepository) ListDecisions(ctx context.Context, roundID, pnmID uuid.UUID) ([]domain.DeliberationDecision, error) {
	query := `
		SELECT voter_id, pnm_id, round_id, decision, created_at
		FROM deliberation_decisions
		WHERE round_id = $1 AND pnm_id = $2
		ORDER BY created_at, voter_id
	`
	rows, err := r.db.QueryContext(ctx, query, roundID, pnmID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	decisions := []domain.DeliberationDecision{}
	for rows.Next() {
		var d domain.DeliberationDecision
		if err := rows.Scan(&d.VoterID, &d.PnmID, &d.RoundID, &d.Decision, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return decisions, nil
}
