// internal/infra/database/postgres_document_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq" // For pq.Array

	"originality_sync/internal/domain/document"
)

const documentColumns = `id, doctype, course_id, module_id, activity_id, answer_id, user_id, attempt,
       content_hash, filename, external_id, status, error, auto_retry, added_at,
       upload_started_at, upload_ended_at, check_started_at, check_ended_at,
       plagiarism, legal, self_cite, originality, is_suspicious,
       report_edit_link, report_read_link, report_short_link,
       work_type, self_checks_used, updated_at`

type PostgresDocumentRepository struct {
	db *sql.DB
}

func NewPostgresDocumentRepository(db *sql.DB) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one row selected with documentColumns followed by extra.
func scanDocument(row rowScanner, extra ...any) (*document.Record, error) {
	rec := &document.Record{}
	var (
		plagiarism, legal, selfCite, originality sql.NullFloat64
		suspicious                               bool
		links                                    document.ReportLinks
	)
	dest := []any{
		&rec.ID, &rec.DocType, &rec.CourseID, &rec.ModuleID, &rec.ActivityID, &rec.AnswerID, &rec.UserID, &rec.Attempt,
		&rec.ContentHash, &rec.Filename, &rec.ExternalID, &rec.Status, &rec.Error, &rec.AutoRetry, &rec.AddedAt,
		&rec.UploadStartedAt, &rec.UploadEndedAt, &rec.CheckStartedAt, &rec.CheckEndedAt,
		&plagiarism, &legal, &selfCite, &originality, &suspicious,
		&links.Edit, &links.Read, &links.Short,
		&rec.WorkType, &rec.SelfChecksUsed, &rec.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if originality.Valid {
		rec.Result = &document.Result{
			Plagiarism:   plagiarism.Float64,
			Legal:        legal.Float64,
			SelfCite:     selfCite.Float64,
			Originality:  originality.Float64,
			IsSuspicious: suspicious,
			Links:        links,
		}
	}
	return rec, nil
}

func (r *PostgresDocumentRepository) Enqueue(ctx context.Context, rec *document.Record) (bool, error) {
	query := `INSERT INTO originality_documents
                   (doctype, course_id, module_id, activity_id, answer_id, user_id, attempt, content_hash, filename, status, work_type)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
               ON CONFLICT (doctype, answer_id, content_hash) DO UPDATE
               SET attempt = GREATEST(originality_documents.attempt, EXCLUDED.attempt), updated_at = NOW()
               RETURNING ` + documentColumns + `, (xmax = 0) AS inserted`

	var inserted bool
	stored, err := scanDocument(r.db.QueryRowContext(ctx, query,
		rec.DocType, rec.CourseID, rec.ModuleID, rec.ActivityID, rec.AnswerID, rec.UserID, rec.Attempt,
		rec.ContentHash, rec.Filename, rec.Status, rec.WorkType,
	), &inserted)
	if err != nil {
		return false, fmt.Errorf("error enqueueing document: %w", err)
	}
	*rec = *stored
	return inserted, nil
}

func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id int64) (*document.Record, error) {
	query := `SELECT ` + documentColumns + ` FROM originality_documents WHERE id = $1`
	rec, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, document.ErrNotFound
		}
		return nil, fmt.Errorf("error getting document by ID: %w", err)
	}
	return rec, nil
}

func (r *PostgresDocumentRepository) ListByStatus(ctx context.Context, statuses []document.Status, limit int) ([]*document.Record, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	query := `SELECT ` + documentColumns + `
               FROM originality_documents
               WHERE status = ANY($1)
               ORDER BY added_at, id
               LIMIT $2`
	return r.list(ctx, "documents by status", query, pq.Array(names), limit)
}

func (r *PostgresDocumentRepository) ListUploadable(ctx context.Context, limit int) ([]*document.Record, error) {
	query := `SELECT ` + documentColumns + `
               FROM originality_documents
               WHERE status = 'pending-upload' OR (status = 'upload-error' AND auto_retry)
               ORDER BY CASE WHEN status = 'upload-error' THEN updated_at ELSE added_at END, id
               LIMIT $1`
	return r.list(ctx, "documents awaiting upload", query, limit)
}

func (r *PostgresDocumentRepository) ListSupersededIndexed(ctx context.Context, limit int) ([]*document.Record, error) {
	query := `SELECT ` + documentColumns + `
               FROM originality_documents d
               WHERE d.status = 'indexed'
                 AND d.external_id IS NOT NULL
                 AND EXISTS (
                     SELECT 1 FROM originality_documents n
                     WHERE n.user_id = d.user_id AND n.module_id = d.module_id AND n.attempt > d.attempt
                 )
               ORDER BY d.added_at, d.id
               LIMIT $1`
	return r.list(ctx, "superseded indexed documents", query, limit)
}

func (r *PostgresDocumentRepository) list(ctx context.Context, what, query string, args ...any) ([]*document.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", what, err)
	}
	defer rows.Close()

	docs := make([]*document.Record, 0)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", what, err)
		}
		docs = append(docs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return docs, nil
}

func (r *PostgresDocumentRepository) Transition(ctx context.Context, rec *document.Record, from document.Status) error {
	query := `UPDATE originality_documents
               SET status = $2, error = $3, external_id = COALESCE(external_id, $4),
                   attempt = $5,
                   upload_started_at = $6, upload_ended_at = $7, check_started_at = $8, check_ended_at = $9,
                   plagiarism = $10, legal = $11, self_cite = $12, originality = $13, is_suspicious = $14,
                   report_edit_link = $15, report_read_link = $16, report_short_link = $17,
                   self_checks_used = $18, auto_retry = $20, updated_at = NOW()
               WHERE id = $1 AND status = $19
               RETURNING external_id, added_at, updated_at`

	var (
		plagiarism, legal, selfCite, originality sql.NullFloat64
		suspicious                               bool
		links                                    document.ReportLinks
	)
	if res := rec.Result; res != nil {
		plagiarism = sql.NullFloat64{Float64: res.Plagiarism, Valid: true}
		legal = sql.NullFloat64{Float64: res.Legal, Valid: true}
		selfCite = sql.NullFloat64{Float64: res.SelfCite, Valid: true}
		originality = sql.NullFloat64{Float64: res.Originality, Valid: true}
		suspicious = res.IsSuspicious
		links = res.Links
	}

	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.Status, rec.Error, rec.ExternalID,
		rec.Attempt,
		rec.UploadStartedAt, rec.UploadEndedAt, rec.CheckStartedAt, rec.CheckEndedAt,
		plagiarism, legal, selfCite, originality, suspicious,
		links.Edit, links.Read, links.Short,
		rec.SelfChecksUsed, from, rec.AutoRetry,
	).Scan(&rec.ExternalID, &rec.AddedAt, &rec.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error updating document: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM originality_documents WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
		return fmt.Errorf("error checking document existence: %w", err)
	}
	if !exists {
		return document.ErrNotFound
	}
	return document.ErrStaleTransition
}
