package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type interactionRepository struct {
	db *sql.DB
}

func NewInteractionRepository(db *sql.DB) ports.InteractionRepository {
	return &interactionRepository{
		db: db,
	}
}

func (r *interactionRepository) UpsertInteraction(ctx context.Context, interaction *domain.Interaction) error {
	query := `
		INSERT INTO interactions (voter_id, pnm_id, round_id, interacted, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (voter_id, pnm_id, round_id)
		DO UPDATE SET interacted = EXCLUDED.interacted, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		interaction.VoterID, interaction.PnmID, interaction.RoundID, interaction.Interacted, interaction.CreatedAt,
	)
	if err != nil {
		if refErr := refError(err); refErr != nil {
			return refErr
		}
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

func (r *interactionRepository) CountByCandidate(ctx context.Context, pnmID uuid.UUID) ([]domain.InteractionCount, error) {
	query := `
		SELECT round_id,
			COUNT(*) FILTER (WHERE interacted),
			COUNT(*) FILTER (WHERE NOT interacted)
		FROM interactions
		WHERE pnm_id = $1
		GROUP BY round_id
	`
	rows, err := r.db.QueryContext(ctx, query, pnmID)
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}
	defer rows.Close()

	counts := []domain.InteractionCount{}
	for rows.Next() {
		var c domain.InteractionCount
		if err := rows.Scan(&c.RoundID, &c.Interacted, &c.NotInteracted); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interaction counts: %w", err)
	}
	return counts, nil
}
