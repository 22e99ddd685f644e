package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

// openLockKey serializes every Open across processes sharing the database.
const openLockKey int64 = 0x7275736876

const roundColumns = `
	id, name, archetype, status, opened_at, closed_at, created_at,
	current_pnm_id, voting_open, results_revealed, sealed_pnm_ids, sealed_results`

type roundRepository struct {
	db *sql.DB
}

func NewRoundRepository(db *sql.DB) ports.RoundRepository {
	return &roundRepository{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*domain.Round, error) {
	var (
		round           domain.Round
		archetype       string
		status          string
		currentPnm      uuid.NullUUID
		votingOpen      bool
		resultsRevealed bool
		sealedIDs       pq.StringArray
		sealedResults   []byte
	)
	err := row.Scan(
		&round.ID, &round.Name, &archetype, &status, &round.OpenedAt, &round.ClosedAt, &round.CreatedAt,
		&currentPnm, &votingOpen, &resultsRevealed, &sealedIDs, &sealedResults,
	)
	if err != nil {
		return nil, err
	}
	round.Archetype = domain.Archetype(archetype)
	round.Status = domain.RoundStatus(status)

	if !round.Archetype.IsDeliberation() {
		return &round, nil
	}

	state := domain.NewDeliberationState()
	state.VotingOpen = votingOpen
	state.ResultsRevealed = resultsRevealed
	if currentPnm.Valid {
		pnm := currentPnm.UUID
		state.CurrentPnmID = &pnm
	}
	for _, raw := range sealedIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid sealed pnm id %q: %w", raw, err)
		}
		state.SealedPnmIDs = append(state.SealedPnmIDs, id)
	}
	if len(sealedResults) > 0 {
		if err := json.Unmarshal(sealedResults, &state.SealedResults); err != nil {
			return nil, fmt.Errorf("failed to decode sealed results: %w", err)
		}
	}
	round.Deliberation = state
	return &round, nil
}

func (r *roundRepository) Create(ctx context.Context, round *domain.Round) error {
	query := `
		INSERT INTO rounds (id, name, archetype, status, opened_at, closed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		round.ID, round.Name, string(round.Archetype), string(round.Status),
		round.OpenedAt, round.ClosedAt, round.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	return nil
}

func (r *roundRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`
	round, err := scanRound(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

func (r *roundRepository) List(ctx context.Context) ([]*domain.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds ORDER BY created_at, id`
	return r.query(ctx, query)
}

func (r *roundRepository) ListByArchetype(ctx context.Context, archetype domain.Archetype) ([]*domain.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE archetype = $1 ORDER BY created_at, id`
	return r.query(ctx, query, string(archetype))
}

func (r *roundRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Round, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	rounds := []*domain.Round{}
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rounds: %w", err)
	}
	return rounds, nil
}

func (r *roundRepository) GetOpen(ctx context.Context) (*domain.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE status = 'open'`
	round, err := scanRound(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open round: %w", err)
	}
	return round, nil
}

func (r *roundRepository) Open(ctx context.Context, id uuid.UUID, at time.Time) (*uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, openLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire open lock: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM rounds WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to lock round: %w", err)
	}

	var closed *uuid.UUID
	queryClose := `
		UPDATE rounds SET status = 'closed', closed_at = $2
		WHERE status = 'open' AND id <> $1
		RETURNING id
	`
	var closedID uuid.UUID
	err = tx.QueryRowContext(ctx, queryClose, id, at).Scan(&closedID)
	switch {
	case err == nil:
		closed = &closedID
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("failed to close open round: %w", err)
	}

	queryOpen := `
		UPDATE rounds SET status = 'open', opened_at = $2, closed_at = NULL
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, queryOpen, id, at); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("another round opened concurrently: %w", domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("failed to open round: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return closed, nil
}

func (r *roundRepository) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE rounds SET status = 'closed', closed_at = $2
		WHERE id = $1 AND status = 'open'
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to close round: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to close round: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (r *roundRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rounds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	if affected == 0 {
		return domain.ErrRoundNotFound
	}
	return nil
}

func (r *roundRepository) UpdateControl(ctx context.Context, id uuid.UUID, control domain.RoundControl) (*domain.Round, error) {
	sealedIDs := make([]string, 0, len(control.SealedPnmIDs))
	for _, pnm := range control.SealedPnmIDs {
		sealedIDs = append(sealedIDs, pnm.String())
	}
	sealedResults := control.SealedResults
	if sealedResults == nil {
		sealedResults = map[uuid.UUID]domain.SealedResult{}
	}
	encoded, err := json.Marshal(sealedResults)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sealed results: %w", err)
	}

	query := `
		UPDATE rounds SET
			voting_open = COALESCE($2, voting_open),
			results_revealed = COALESCE($3, results_revealed),
			current_pnm_id = COALESCE($4, current_pnm_id),
			sealed_pnm_ids = CASE WHEN $5 THEN $6::uuid[] ELSE sealed_pnm_ids END,
			sealed_results = CASE WHEN $5 THEN $7::jsonb ELSE sealed_results END
		WHERE id = $1 AND archetype = 'deliberation'
		RETURNING ` + roundColumns

	row := r.db.QueryRowContext(ctx, query,
		id, control.VotingOpen, control.ResultsRevealed, control.CurrentPnmID,
		control.ReplaceSeals, pq.Array(sealedIDs), string(encoded),
	)
	return r.deliberationResult(ctx, id, row, "update round control")
}

func (r *roundRepository) Seal(ctx context.Context, roundID, pnmID uuid.UUID, result domain.SealedResult) (*domain.Round, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sealed result: %w", err)
	}
	query := `
		UPDATE rounds SET
			sealed_pnm_ids = array_append(array_remove(sealed_pnm_ids, $2::uuid), $2::uuid),
			sealed_results = sealed_results || jsonb_build_object($3::text, $4::jsonb)
		WHERE id = $1 AND archetype = 'deliberation'
		RETURNING ` + roundColumns

	row := r.db.QueryRowContext(ctx, query, roundID, pnmID, pnmID.String(), string(encoded))
	return r.deliberationResult(ctx, roundID, row, "seal candidate")
}

func (r *roundRepository) Unseal(ctx context.Context, roundID, pnmID uuid.UUID) (*domain.Round, error) {
	query := `
		UPDATE rounds SET
			sealed_pnm_ids = array_remove(sealed_pnm_ids, $2::uuid),
			sealed_results = sealed_results - $3::text
		WHERE id = $1 AND archetype = 'deliberation'
		RETURNING ` + roundColumns

	row := r.db.QueryRowContext(ctx, query, roundID, pnmID, pnmID.String())
	return r.deliberationResult(ctx, roundID, row, "unseal candidate")
}

// deliberationResult scans the row returned by a deliberation update. No row
// means the round is missing or is not a deliberation round.
func (r *roundRepository) deliberationResult(ctx context.Context, id uuid.UUID, row *sql.Row, action string) (*domain.Round, error) {
	round, err := scanRound(row)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrWrongArchetype
}
