package quotes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS quote_requests (
	reference      TEXT PRIMARY KEY,
	form_id        TEXT NOT NULL,
	insurance_type TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	payload        TEXT NOT NULL,
	attachments    TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_quote_requests_form ON quote_requests (form_id, created_at);
`

// Fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists quote requests with the pure-Go modernc driver.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens dsn and creates the schema when missing.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("quotes: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("quotes: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, quote QuoteRequest) error {
	payload, err := json.Marshal(quote.Payload)
	if err != nil {
		return fmt.Errorf("quotes: encode payload: %w", err)
	}
	attachments := quote.Attachments
	if attachments == nil {
		attachments = []AttachmentInfo{}
	}
	files, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("quotes: encode attachments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quote_requests (reference, form_id, insurance_type, created_at, payload, attachments) VALUES (?, ?, ?, ?, ?, ?)`,
		quote.Reference, quote.FormID, quote.InsuranceType, quote.CreatedAt.UTC().Format(timeLayout), string(payload), string(files),
	)
	if err != nil {
		var sqlErr *sqlite.Error
		if errors.As(err, &sqlErr) && sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return ErrDuplicate
		}
		return fmt.Errorf("quotes: insert %s: %w", quote.Reference, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, reference string) (QuoteRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT reference, form_id, insurance_type, created_at, payload, attachments FROM quote_requests WHERE reference = ?`,
		reference,
	)
	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return QuoteRequest{}, ErrNotFound
	}
	return quote, err
}

func (s *SQLiteStore) List(ctx context.Context, formID string) ([]QuoteRequest, error) {
	query := `SELECT reference, form_id, insurance_type, created_at, payload, attachments FROM quote_requests`
	var args []any
	if formID != "" {
		query += ` WHERE form_id = ?`
		args = append(args, formID)
	}
	query += ` ORDER BY created_at, reference`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("quotes: list: %w", err)
	}
	defer rows.Close()

	out := make([]QuoteRequest, 0)
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("quotes: list: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(row scanner) (QuoteRequest, error) {
	var (
		quote              QuoteRequest
		createdAt          string
		payload, documents string
	)
	if err := row.Scan(&quote.Reference, &quote.FormID, &quote.InsuranceType, &createdAt, &payload, &documents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuoteRequest{}, err
		}
		return QuoteRequest{}, fmt.Errorf("quotes: scan: %w", err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return QuoteRequest{}, fmt.Errorf("quotes: %s: created_at: %w", quote.Reference, err)
	}
	quote.CreatedAt = ts
	if err := json.Unmarshal([]byte(payload), &quote.Payload); err != nil {
		return QuoteRequest{}, fmt.Errorf("quotes: %s: payload: %w", quote.Reference, err)
	}
	if err := json.Unmarshal([]byte(documents), &quote.Attachments); err != nil {
		return QuoteRequest{}, fmt.Errorf("quotes: %s: attachments: %w", quote.Reference, err)
	}
	if len(quote.Attachments) == 0 {
		quote.Attachments = nil
	}
	return quote, nil
}
