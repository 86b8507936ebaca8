// Package content extracts the checkable payload of a document from the LMS
// storage it lives in.
package content

import (
	"context"
	"fmt"

	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/lms"
)

// Registry dispatches extraction by doctype: files come from the file store,
// inline answers from the text source.
type Registry struct {
	files lms.ContentSource
	text  lms.ContentSource
}

func NewRegistry(files, text lms.ContentSource) *Registry {
	return &Registry{files: files, text: text}
}

func (r *Registry) Extract(ctx context.Context, rec *document.Record) (*lms.Content, error) {
	switch {
	case rec.DocType == document.DocTypeFile:
		return r.files.Extract(ctx, rec)
	case rec.DocType.IsText():
		return r.text.Extract(ctx, rec)
	default:
		return nil, fmt.Errorf("no content source for doctype %q", rec.DocType)
	}
}
