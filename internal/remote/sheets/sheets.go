// Package sheets stores remote documents in a Google Sheets spreadsheet,
// one tab per user and kind. Each row holds id, label, amount and timestamp.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/core"
	"costbook/internal/log"
	"costbook/internal/remote"
)

var header = []any{"id", "label", "amount", "timestamp"}

// Store implements remote.Store on top of a spreadsheet.
type Store struct {
	api    values
	ids    core.IDGenerator
	logger *log.Logger

	// serializes read-modify-write sequences per tab
	mu sync.Mutex
}

// New connects to spreadsheetID with the given service account.
func New(ctx context.Context, spreadsheetID string, creds Credentials, logger *log.Logger) (*Store, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)
	api, err := newAPIValues(ctx, spreadsheetID, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newStore(api, core.UUIDGenerator{}, logger), nil
}

func newStore(api values, ids core.IDGenerator, logger *log.Logger) *Store {
	return &Store{api: api, ids: ids, logger: logger}
}

// TabName is the sheet holding kind documents of user.
func TabName(user string, kind core.Kind) string {
	return fmt.Sprintf("%s_%s", kind, user)
}

func (s *Store) Create(ctx context.Context, user string, kind core.Kind, doc remote.Document) (string, error) {
	if err := remote.CheckScope(user, kind); err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = s.ids.NewID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, rows, err := s.load(ctx, user, kind)
	if err != nil {
		return "", err
	}
	if n := findRow(rows, doc.ID); n > 0 {
		if err := s.api.Update(ctx, rowRange(tab, n), [][]any{toRow(doc)}); err != nil {
			return "", err
		}
		return doc.ID, nil
	}
	if len(rows) == 0 {
		if err := s.api.Update(ctx, rowRange(tab, 1), [][]any{header}); err != nil {
			return "", err
		}
	}
	if err := s.api.Append(ctx, fmt.Sprintf("%s!A:D", tab), [][]any{toRow(doc)}); err != nil {
		return "", err
	}
	s.logger.DebugContext(ctx, "Document appended", log.FieldKind, kind, log.FieldRecordID, doc.ID)
	return doc.ID, nil
}

func (s *Store) Update(ctx context.Context, user string, kind core.Kind, id string, doc remote.Document) error {
	if err := remote.CheckScope(user, kind); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, rows, err := s.load(ctx, user, kind)
	if err != nil {
		return err
	}
	n := findRow(rows, id)
	if n < 0 {
		return remote.ErrNotFound
	}
	doc.ID = id
	return s.api.Update(ctx, rowRange(tab, n), [][]any{toRow(doc)})
}

func (s *Store) Delete(ctx context.Context, user string, kind core.Kind, id string) error {
	if err := remote.CheckScope(user, kind); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, rows, err := s.load(ctx, user, kind)
	if err != nil {
		return err
	}
	n := findRow(rows, id)
	if n < 0 {
		return remote.ErrNotFound
	}
	// cleared rows are skipped on read; the next append lands after them
	return s.api.Clear(ctx, rowRange(tab, n))
}

func (s *Store) ListAll(ctx context.Context, user string, kind core.Kind) ([]remote.Document, error) {
	if err := remote.CheckScope(user, kind); err != nil {
		return nil, err
	}
	s.mu.Lock()
	_, rows, err := s.load(ctx, user, kind)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	docs := []remote.Document{}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		doc, err := fromRow(row)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed row",
				log.FieldKind, kind, "row", i+1, log.FieldError, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) load(ctx context.Context, user string, kind core.Kind) (string, [][]any, error) {
	tab := TabName(user, kind)
	if err := s.api.EnsureSheet(ctx, tab); err != nil {
		return "", nil, err
	}
	rows, err := s.api.Get(ctx, fmt.Sprintf("%s!A:D", tab))
	if err != nil {
		return "", nil, err
	}
	return tab, rows, nil
}

// findRow returns the 1-based sheet row holding id, or -1.
func findRow(rows [][]any, id string) int {
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if cell(row, 0) == id {
			return i + 1
		}
	}
	return -1
}

func rowRange(tab string, n int) string {
	return fmt.Sprintf("%s!A%d:D%d", tab, n, n)
}

func toRow(d remote.Document) []any {
	stamp := ""
	if !d.Timestamp.IsZero() {
		stamp = d.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return []any{d.ID, d.Label, d.Amount.String(), stamp}
}

func fromRow(row []any) (remote.Document, error) {
	doc := remote.Document{ID: cell(row, 0), Label: cell(row, 1)}
	if doc.ID == "" {
		return doc, errors.New("missing id")
	}
	if amount := cell(row, 2); amount != "" {
		// cells edited by hand may use a decimal comma
		d, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", "."))
		if err != nil {
			return doc, fmt.Errorf("amount %q: %w", amount, err)
		}
		doc.Amount = d
	}
	if stamp := cell(row, 3); stamp != "" {
		t, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			return doc, fmt.Errorf("timestamp %q: %w", stamp, err)
		}
		doc.Timestamp = t.UTC()
	}
	return doc, nil
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

var _ remote.Store = (*Store)(nil)
