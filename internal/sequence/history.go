package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when a playback history record is missing.
var ErrRecordNotFound = errors.New("sequence: history record not found")

// PlaybackRecord is one row of playback history: a single sequence
// activation from start to whatever ended it.
type PlaybackRecord struct {
	ID            string
	Index         Index
	TriggerSource string
	Status        string // "started", "completed", "stopped", "superseded"
	StepsAdvanced int
	StartedAt     time.Time
	EndedAt       *time.Time
}

// HistoryRepository persists playback records to SQLite. It satisfies
// HistoryRecorder; repository errors are logged and swallowed there, since
// history is an audit trail and must never block or fail playback.
type HistoryRepository struct {
	db     *sql.DB
	logger Logger
}

// NewHistoryRepository creates a SQLite-backed playback history repository.
func NewHistoryRepository(db *sql.DB, logger Logger) *HistoryRepository {
	if logger == nil {
		logger = noopLogger{}
	}
	return &HistoryRepository{db: db, logger: logger}
}

// PlaybackStarted opens a history record and returns its ID.
// Implements HistoryRecorder; failures are logged, not returned.
func (r *HistoryRepository) PlaybackStarted(index Index, source string) string {
	id := uuid.NewString()
	err := r.Create(context.Background(), &PlaybackRecord{
		ID:            id,
		Index:         index,
		TriggerSource: source,
		Status:        "started",
		StartedAt:     time.Now().UTC(),
	})
	if err != nil {
		r.logger.Error("failed to record playback start",
			"index", index.String(), "error", err)
		return ""
	}
	return id
}

// PlaybackEnded closes a history record.
// Implements HistoryRecorder; failures are logged, not returned.
func (r *HistoryRepository) PlaybackEnded(id, status string, stepsAdvanced int) {
	if id == "" {
		return
	}
	if err := r.Close(context.Background(), id, status, stepsAdvanced); err != nil {
		r.logger.Error("failed to record playback end",
			"id", id, "status", status, "error", err)
	}
}

// Create inserts a new playback record.
func (r *HistoryRepository) Create(ctx context.Context, rec *PlaybackRecord) error {
	query := `
		INSERT INTO playback_history (
			id, sequence_x, sequence_y, trigger_source, status,
			steps_advanced, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Index.X,
		rec.Index.Y,
		rec.TriggerSource,
		rec.Status,
		rec.StepsAdvanced,
		rec.StartedAt.Format(time.RFC3339),
		nullableTime(rec.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting playback record: %w", err)
	}
	return nil
}

// Close marks a record finished with a final status and advance count.
func (r *HistoryRepository) Close(ctx context.Context, id, status string, stepsAdvanced int) error {
	query := `
		UPDATE playback_history
		SET status = ?, steps_advanced = ?, ended_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		status,
		stepsAdvanced,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating playback record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Get retrieves a single playback record by ID.
func (r *HistoryRepository) Get(ctx context.Context, id string) (*PlaybackRecord, error) {
	query := `
		SELECT id, sequence_x, sequence_y, trigger_source, status,
			steps_advanced, started_at, ended_at
		FROM playback_history
		WHERE id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying playback record: %w", err)
	}
	return rec, nil
}

// ListRecent retrieves the most recent playback records, newest first.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]PlaybackRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT id, sequence_x, sequence_y, trigger_source, status,
			steps_advanced, started_at, ended_at
		FROM playback_history
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying playback history: %w", err)
	}
	defer rows.Close()

	var records []PlaybackRecord
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning playback record: %w", scanErr)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playback history: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*PlaybackRecord, error) {
	var rec PlaybackRecord
	var startedAt string
	var endedAt sql.NullString

	err := scanner.Scan(
		&rec.ID,
		&rec.Index.X,
		&rec.Index.Y,
		&rec.TriggerSource,
		&rec.Status,
		&rec.StepsAdvanced,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
		rec.StartedAt = t
	}
	if endedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, endedAt.String); parseErr == nil {
			rec.EndedAt = &t
		}
	}
	return &rec, nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
