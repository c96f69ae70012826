package blacklist

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	maxResponseBytes = 10 << 20 // 10 MiB safety cap

	DefaultSheetsBaseURL = "https://sheets.googleapis.com"
	DefaultSheetRange    = "A:D"
)

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// Row is one data row of a tabular feed: domain, category, description.
type Row struct {
	Domain      string
	Category    string
	Description string
}

// Source fetches the authoritative list. A Source returns an error instead of
// a partial list when the feed cannot be read.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Row, error)
}

// SheetSource reads a Google Sheets range through the v4 values API. The
// first row is a header.
type SheetSource struct {
	SheetID string
	APIKey  string
	Range   string
	BaseURL string
	Client  *http.Client
}

func (s *SheetSource) Name() string {
	return "sheet:" + s.SheetID
}

type sheetValues struct {
	Values [][]string `json:"values"`
}

func (s *SheetSource) Fetch(ctx context.Context) ([]Row, error) {
	if s.SheetID == "" {
		return nil, errors.New("sheet source: sheet id is not configured")
	}

	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = DefaultSheetsBaseURL
	}
	rng := s.Range
	if rng == "" {
		rng = DefaultSheetRange
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		base, url.PathEscape(s.SheetID), url.PathEscape(rng), url.QueryEscape(s.APIKey))

	body, err := fetchBody(ctx, s.Client, endpoint)
	if err != nil {
		return nil, err
	}

	var payload sheetValues
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode sheet values: %w", err)
	}
	return rowsFromRecords(payload.Values), nil
}

// CSVSource reads a CSV feed over HTTP. The first record is a header.
type CSVSource struct {
	URL    string
	Client *http.Client
}

func (s *CSVSource) Name() string {
	return "csv:" + sanitizeURL(s.URL)
}

func (s *CSVSource) Fetch(ctx context.Context) ([]Row, error) {
	if s.URL == "" {
		return nil, errors.New("csv source: url is not configured")
	}

	body, err := fetchBody(ctx, s.Client, s.URL)
	if err != nil {
		return nil, err
	}
	return parseCSV(bytes.NewReader(body))
}

// FileSource reads a CSV feed from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

func (s *FileSource) Fetch(_ context.Context) ([]Row, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseCSV(io.LimitReader(f, maxResponseBytes))
}

func parseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv feed: %w", err)
	}
	return rowsFromRecords(records), nil
}

// rowsFromRecords drops the header row and keeps the first three columns.
func rowsFromRecords(records [][]string) []Row {
	if len(records) < 2 {
		return []Row{}
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, Row{
			Domain:      column(record, 0),
			Category:    column(record, 1),
			Description: column(record, 2),
		})
	}
	return rows
}

func column(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func fetchBody(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if client == nil {
		client = defaultHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return content, nil
}

// sanitizeURL keeps scheme and host so feed tokens never reach the logs.
func sanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	return u.Scheme + "://" + u.Host
}
