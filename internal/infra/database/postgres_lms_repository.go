// internal/infra/database/postgres_lms_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/lms"
)

// PostgresLMSRepository reads the LMS-owned tables: module checking settings,
// submitted answers and the stored text of inline answers.
type PostgresLMSRepository struct {
	db *sql.DB
}

func NewPostgresLMSRepository(db *sql.DB) *PostgresLMSRepository {
	return &PostgresLMSRepository{db: db}
}

// Get implements lms.ModuleSettingsProvider.
func (r *PostgresLMSRepository) Get(ctx context.Context, moduleID int64) (*lms.ModuleSettings, error) {
	query := `SELECT module_id, mode, check_text, check_files, add_to_index, show_student_report, self_check_quota, work_type
               FROM lms_module_settings WHERE module_id = $1`
	s := &lms.ModuleSettings{}
	err := r.db.QueryRowContext(ctx, query, moduleID).Scan(
		&s.ModuleID, &s.Mode, &s.CheckText, &s.CheckFiles, &s.AddToIndex, &s.ShowStudentReport, &s.SelfCheckQuota, &s.WorkType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lms.ErrModuleNotFound
		}
		return nil, fmt.Errorf("error getting module settings: %w", err)
	}
	return s, nil
}

// ListNew implements lms.AnswerFeed. An answer is new while no document
// exists for its doctype, answer id, content hash and attempt. Answers of
// modules that do not check their doctype are never returned.
func (r *PostgresLMSRepository) ListNew(ctx context.Context, limit int) ([]*lms.Answer, error) {
	query := `SELECT a.doctype, a.course_id, a.module_id, a.activity_id, a.answer_id, a.user_id, a.attempt,
                      a.content_hash, a.filename, a.submitted_at
               FROM lms_answers a
               JOIN lms_module_settings m ON m.module_id = a.module_id
               WHERE m.mode IN ('enabled', 'automatic')
                 AND ((a.doctype = 'file' AND m.check_files) OR (a.doctype <> 'file' AND m.check_text))
                 AND NOT EXISTS (
                   SELECT 1 FROM originality_documents d
                   WHERE d.doctype = a.doctype AND d.answer_id = a.answer_id
                     AND d.content_hash = a.content_hash AND d.attempt >= a.attempt
               )
               ORDER BY a.submitted_at, a.id
               LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing new answers: %w", err)
	}
	defer rows.Close()

	answers := make([]*lms.Answer, 0)
	for rows.Next() {
		a := &lms.Answer{}
		if err := rows.Scan(&a.DocType, &a.CourseID, &a.ModuleID, &a.ActivityID, &a.AnswerID, &a.UserID, &a.Attempt,
			&a.ContentHash, &a.Filename, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("error scanning answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}
	return answers, nil
}

// Extract implements lms.ContentSource for inline text answers.
func (r *PostgresLMSRepository) Extract(ctx context.Context, rec *document.Record) (*lms.Content, error) {
	query := `SELECT content_text FROM lms_answers
               WHERE doctype = $1 AND answer_id = $2 AND content_hash = $3
               ORDER BY attempt DESC
               LIMIT 1`
	var text sql.NullString
	err := r.db.QueryRowContext(ctx, query, rec.DocType, rec.AnswerID, rec.ContentHash).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lms.ErrContentNotFound
		}
		return nil, fmt.Errorf("error reading answer text: %w", err)
	}
	if !text.Valid || strings.TrimSpace(text.String) == "" {
		return nil, lms.ErrContentNotFound
	}

	name := rec.Filename
	if name == "" {
		name = fmt.Sprintf("%s-%d.txt", rec.DocType, rec.AnswerID)
	}
	return &lms.Content{
		Data:     []byte(text.String),
		Text:     text.String,
		Filename: name,
		FileType: strings.ToLower(filepath.Ext(name)),
	}, nil
}
