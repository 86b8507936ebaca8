// internal/infra/database/postgres_actionlog_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"originality_sync/internal/domain/actionlog"
)

type PostgresActionLogRepository struct {
	db *sql.DB
}

func NewPostgresActionLogRepository(db *sql.DB) *PostgresActionLogRepository {
	return &PostgresActionLogRepository{db: db}
}

func (r *PostgresActionLogRepository) Append(ctx context.Context, e *actionlog.Entry) error {
	query := `INSERT INTO originality_action_log
                   (document_id, external_id, action_type, status, course_id, module_id, user_id, detail)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		e.DocumentID, e.ExternalID, e.Action, e.Status, e.CourseID, e.ModuleID, e.UserID, e.Detail,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error appending action log entry: %w", err)
	}
	return nil
}

func (r *PostgresActionLogRepository) ListByDocument(ctx context.Context, documentID int64) ([]*actionlog.Entry, error) {
	query := `SELECT id, document_id, external_id, action_type, status, course_id, module_id, user_id, detail, created_at
               FROM originality_action_log
               WHERE document_id = $1
               ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("error listing action log: %w", err)
	}
	defer rows.Close()

	entries := make([]*actionlog.Entry, 0)
	for rows.Next() {
		e := &actionlog.Entry{}
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.ExternalID, &e.Action, &e.Status,
			&e.CourseID, &e.ModuleID, &e.UserID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning action log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action log: %w", err)
	}
	return entries, nil
}

func (r *PostgresActionLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM originality_action_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old action log entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting deleted action log entries: %w", err)
	}
	return n, nil
}
