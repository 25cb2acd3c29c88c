package db

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaeyoon0415/convgate/db/models"
)

// TurnRepository reads and appends conversation turns backed by a pgx pool.
type TurnRepository struct {
	pool *pgxpool.Pool
}

func NewTurnRepository(pool *pgxpool.Pool) *TurnRepository {
	return &TurnRepository{pool: pool}
}

// FetchRecentTurns returns up to limit turns for the (user, session) pair in
// chronological order. The query selects most-recent-first so the window is a
// suffix of the conversation; the result is reversed in-process because the
// prompt context must read oldest-first.
func (r *TurnRepository) FetchRecentTurns(ctx context.Context, userID, sessionID string, limit int) ([]models.Turn, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("postgres pool is nil")
	}

	const query = `
		SELECT id, user_id, session_id, prompt, response, created_at
		FROM turns
		WHERE user_id = $1 AND session_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	turns := make([]models.Turn, 0, limit)
	for rows.Next() {
		var turn models.Turn
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.SessionID, &turn.Prompt, &turn.Response, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read turn rows: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// InsertTurn appends a single completed exchange. The store assigns seq, so
// equal timestamps keep insertion order.
func (r *TurnRepository) InsertTurn(ctx context.Context, userID, sessionID, prompt, response string) error {
	if r == nil || r.pool == nil {
		return errors.New("postgres pool is nil")
	}

	const query = `
		INSERT INTO turns (id, user_id, session_id, prompt, response)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, uuid.NewString(), userID, sessionID, prompt, response); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	return nil
}

// ListTurns returns the full history for the pair, oldest first.
func (r *TurnRepository) ListTurns(ctx context.Context, userID, sessionID string) ([]models.Turn, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("postgres pool is nil")
	}

	const query = `
		SELECT id, user_id, session_id, prompt, response, created_at
		FROM turns
		WHERE user_id = $1 AND session_id = $2
		ORDER BY created_at ASC, seq ASC`

	rows, err := r.pool.Query(ctx, query, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]models.Turn, 0)
	for rows.Next() {
		var turn models.Turn
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.SessionID, &turn.Prompt, &turn.Response, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read turn rows: %w", err)
	}

	return turns, nil
}

// IsUnavailable reports whether err indicates the store itself is unreachable
// rather than a per-row data fault. Connection-class Postgres errors and
// transport errors count; scan and constraint failures do not.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
