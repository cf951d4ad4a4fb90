/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	sheetsMaxRetries = 3
	// lastColumn bounds every read; no table here is wider than P.
	lastColumn = "Z"
)

// SheetsStore is a RowStore over one Google spreadsheet. Each table is a tab
// whose first row is a header. The Sheets API has no row-level CAS, so
// Update compares the revision against a fresh read before writing; two
// writers racing between that read and the write can still both win.
type SheetsStore struct {
	srv           *sheets.Service
	spreadsheetID string
	mu            sync.Mutex
	sheetIDs      map[string]int64
	newBackOff    func() backoff.BackOff
}

// SheetsCredentials identifies the service account used to talk to the API.
type SheetsCredentials struct {
	Email      string
	PrivateKey string
}

func (c SheetsCredentials) json() ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":         "service_account",
		"client_email": c.Email,
		"private_key":  c.PrivateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
}

// NewSheetsStore builds a store from service-account credentials. Extra
// options are appended last so tests can point it at a local server.
func NewSheetsStore(ctx context.Context, spreadsheetID string, creds SheetsCredentials, opts ...option.ClientOption) (*SheetsStore, error) {
	var clientOpts []option.ClientOption
	if creds.Email != "" && creds.PrivateKey != "" {
		raw, err := creds.json()
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(raw), option.WithScopes(sheets.SpreadsheetsScope))
	}
	clientOpts = append(clientOpts, opts...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &SheetsStore{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}, nil
}

// retry runs op with exponential backoff. Only rate limiting and server
// errors are retried.
func (s *SheetsStore) retry(ctx context.Context, name string, op func() error) error {
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), sheetsMaxRetries), ctx)
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		logrus.WithFields(logrus.Fields{
			"op":      name,
			"attempt": attempt,
		}).Warnf("sheets call failed, retrying: %v", err)
		return err
	}, b)
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func rowRange(table string, row int64) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(table), row, lastColumn, row)
}

// parseUpdatedRow extracts the first row number of an A1 range such as
// 'Outbox'!A7:P7.
func parseUpdatedRow(updatedRange string) (int64, error) {
	ref := updatedRange
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.Index(ref, ":"); i >= 0 {
		ref = ref[:i]
	}
	digits := strings.TrimLeft(ref, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	row, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || row <= 0 {
		return 0, fmt.Errorf("unexpected updated range %q", updatedRange)
	}
	return row, nil
}

func toCells(values []interface{}) []string {
	cells := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		cells[i] = fmt.Sprint(v)
	}
	return cells
}

func toValues(cells []string) []interface{} {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return values
}

// revisionOf hashes the trimmed cells; the API drops trailing empty cells on
// read so they must not change the revision.
func revisionOf(cells []string) string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	h := sha256.Sum256([]byte(strings.Join(cells[:n], "\x1f")))
	return hex.EncodeToString(h[:8])
}

func blank(values []interface{}) bool {
	for _, v := range values {
		if v != nil && fmt.Sprint(v) != "" {
			return false
		}
	}
	return true
}

func (s *SheetsStore) Append(ctx context.Context, table string, cells []string) (Locator, error) {
	var resp *sheets.AppendValuesResponse
	err := s.retry(ctx, "append", func() error {
		var err error
		resp, err = s.srv.Spreadsheets.Values.
			Append(s.spreadsheetID, quoteSheet(table)+"!A:"+lastColumn, &sheets.ValueRange{Values: [][]interface{}{toValues(cells)}}).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return Locator{}, fmt.Errorf("failed to append row to %s: %w", table, err)
	}
	if resp.Updates == nil {
		return Locator{}, fmt.Errorf("append to %s returned no updated range", table)
	}
	row, err := parseUpdatedRow(resp.Updates.UpdatedRange)
	if err != nil {
		return Locator{}, err
	}
	return Locator{table: table, row: row}, nil
}

func (s *SheetsStore) Get(ctx context.Context, loc Locator) (Row, error) {
	if err := checkLocator(loc); err != nil {
		return Row{}, err
	}
	var resp *sheets.ValueRange
	err := s.retry(ctx, "get", func() error {
		var err error
		resp, err = s.srv.Spreadsheets.Values.Get(s.spreadsheetID, rowRange(loc.table, loc.row)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return Row{}, fmt.Errorf("failed to read row %s: %w", loc, err)
	}
	if len(resp.Values) == 0 || blank(resp.Values[0]) {
		return Row{}, ErrRowNotFound
	}
	cells := toCells(resp.Values[0])
	return Row{Locator: loc, Cells: cells, Revision: revisionOf(cells)}, nil
}

func (s *SheetsStore) Update(ctx context.Context, loc Locator, revision string, cells []string) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	if revision != "" {
		current, err := s.Get(ctx, loc)
		if err != nil {
			return err
		}
		if current.Revision != revision {
			return ErrRevisionMismatch
		}
	}
	err := s.retry(ctx, "update", func() error {
		_, err := s.srv.Spreadsheets.Values.
			Update(s.spreadsheetID, fmt.Sprintf("%s!A%d", quoteSheet(loc.table), loc.row), &sheets.ValueRange{Values: [][]interface{}{toValues(cells)}}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update row %s: %w", loc, err)
	}
	return nil
}

func (s *SheetsStore) Scan(ctx context.Context, table string) ([]Row, error) {
	var resp *sheets.ValueRange
	err := s.retry(ctx, "scan", func() error {
		var err error
		resp, err = s.srv.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(table)+"!A2:"+lastColumn).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}

	rows := make([]Row, 0, len(resp.Values))
	for i, values := range resp.Values {
		if blank(values) {
			continue
		}
		cells := toCells(values)
		rows = append(rows, Row{
			Locator:  Locator{table: table, row: int64(i) + 2},
			Cells:    cells,
			Revision: revisionOf(cells),
		})
	}
	return rows, nil
}

func (s *SheetsStore) sheetID(ctx context.Context, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.sheetIDs[table]; ok {
		return id, nil
	}
	var resp *sheets.Spreadsheet
	err := s.retry(ctx, "metadata", func() error {
		var err error
		resp, err = s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
	}
	id, ok := s.sheetIDs[table]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", table)
	}
	return id, nil
}

func (s *SheetsStore) Delete(ctx context.Context, loc Locator) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	id, err := s.sheetID(ctx, loc.table)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         id,
					Dimension:       "ROWS",
					StartIndex:      loc.row - 1,
					EndIndex:        loc.row,
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	err = s.retry(ctx, "delete", func() error {
		_, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete row %s: %w", loc, err)
	}
	return nil
}

func (s *SheetsStore) Close() error { return nil }
