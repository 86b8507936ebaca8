package content

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/lms"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMemberTooLarge    = errors.New("archive member exceeds size limit")
)

// maxMemberSize bounds the decompressed body read from a zipped office file.
const maxMemberSize = 64 << 20

// zipped office formats and the archive member holding their body text
var zippedText = map[string]string{
	".docx": "word/document.xml",
	".odt":  "content.xml",
}

// FileSource reads submitted files from a content-addressed store laid out as
// root/ab/cd/abcdef..., keyed by the document's content hash.
type FileSource struct {
	root string
}

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

// Path returns the storage path for a content hash.
func (s *FileSource) Path(hash string) (string, error) {
	if hash == "" || strings.ContainsAny(hash, `/\.`) {
		return "", fmt.Errorf("invalid content hash %q", hash)
	}
	if len(hash) < 4 {
		return filepath.Join(s.root, hash), nil
	}
	return filepath.Join(s.root, hash[:2], hash[2:4], hash), nil
}

func (s *FileSource) Extract(ctx context.Context, rec *document.Record) (*lms.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(rec.ContentHash)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lms.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, lms.ErrContentNotFound
	}

	ext := strings.ToLower(filepath.Ext(rec.Filename))
	text, err := plainText(path, ext, data)
	if err != nil {
		return nil, err
	}
	return &lms.Content{
		Data:     data,
		Text:     text,
		Filename: rec.Filename,
		FileType: ext,
	}, nil
}

func plainText(path, ext string, data []byte) (string, error) {
	if ext == ".pdf" {
		return pdfText(path)
	}
	if member, ok := zippedText[ext]; ok {
		return zippedXMLText(data, member, maxMemberSize)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

// elements after which a word boundary is implied
var breakElements = map[string]bool{"p": true, "h": true, "tab": true, "br": true, "line-break": true, "s": true}

// zippedXMLText concatenates the character data of one XML member of a zip
// archive. Members that decompress to more than limit bytes are rejected.
func zippedXMLText(data []byte, member string, limit int64) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	f, err := zr.Open(member)
	if err != nil {
		return "", fmt.Errorf("archive has no %s: %w", member, err)
	}
	defer f.Close()

	// The declared size is not trusted; the read itself is capped.
	body, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", member, err)
	}
	if int64(len(body)) > limit {
		return "", fmt.Errorf("%w: %s is over %d bytes", ErrMemberTooLarge, member, limit)
	}

	var b strings.Builder
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", member, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if breakElements[t.Name.Local] {
				b.WriteByte(' ')
			}
		}
	}
	return b.String(), nil
}
