package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"costbook/internal/log"
)

// values is the slice of the Sheets API the store needs.
type values interface {
	EnsureSheet(ctx context.Context, title string) error
	Get(ctx context.Context, rng string) ([][]any, error)
	Append(ctx context.Context, rng string, rows [][]any) error
	Update(ctx context.Context, rng string, rows [][]any) error
	Clear(ctx context.Context, rng string) error
}

// Credentials selects the service account used to call the API. JSON wins
// over File; when both are empty GOOGLE_APPLICATION_CREDENTIALS is read.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	file := strings.TrimSpace(c.File)
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case file == "":
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// apiValues talks to the real Sheets API.
type apiValues struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu     sync.Mutex
	titles map[string]bool
}

func newAPIValues(ctx context.Context, spreadsheetID string, creds Credentials, logger *log.Logger) (*apiValues, error) {
	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &apiValues{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (a *apiValues) EnsureSheet(ctx context.Context, title string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.titles == nil {
		ss, err := a.svc.Spreadsheets.Get(a.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read spreadsheet: %w", err)
		}
		a.titles = make(map[string]bool, len(ss.Sheets))
		for _, s := range ss.Sheets {
			a.titles[s.Properties.Title] = true
		}
	}
	if a.titles[title] {
		return nil
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := a.svc.Spreadsheets.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	a.titles[title] = true
	return nil
}

func (a *apiValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(a.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (a *apiValues) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Append(a.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

func (a *apiValues) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Update(a.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (a *apiValues) Clear(ctx context.Context, rng string) error {
	_, err := a.svc.Spreadsheets.Values.Clear(a.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}
