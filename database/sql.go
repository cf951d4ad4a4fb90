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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// SQLStore keeps every table in one sheet_rows relation, one JSON array of
// cells per row. row_id gives storage order and revision gives real CAS.
type SQLStore struct {
	Conn    *sql.DB
	dialect string
}

// NewSQLStore wraps an open connection.
func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{Conn: db, dialect: dialect}
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode row cells: %w", err)
	}
	return cells, nil
}

func (s *SQLStore) Append(ctx context.Context, table string, cells []string) (Locator, error) {
	data, err := encodeCells(cells)
	if err != nil {
		return Locator{}, err
	}

	var id int64
	err = s.Conn.QueryRowContext(ctx,
		s.rebind(`INSERT INTO sheet_rows (sheet, cells, revision, created_at) VALUES (?, ?, 1, ?) RETURNING row_id`),
		table, data, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return Locator{}, fmt.Errorf("failed to append row to %s: %w", table, err)
	}
	return Locator{table: table, row: id}, nil
}

func (s *SQLStore) Get(ctx context.Context, loc Locator) (Row, error) {
	if err := checkLocator(loc); err != nil {
		return Row{}, err
	}

	var raw string
	var revision int64
	err := s.Conn.QueryRowContext(ctx,
		s.rebind(`SELECT cells, revision FROM sheet_rows WHERE row_id = ? AND sheet = ?`),
		loc.row, loc.table,
	).Scan(&raw, &revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Row{}, ErrRowNotFound
		}
		return Row{}, fmt.Errorf("failed to read row %s: %w", loc, err)
	}

	cells, err := decodeCells(raw)
	if err != nil {
		return Row{}, err
	}
	return Row{Locator: loc, Cells: cells, Revision: strconv.FormatInt(revision, 10)}, nil
}

func (s *SQLStore) Update(ctx context.Context, loc Locator, revision string, cells []string) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	data, err := encodeCells(cells)
	if err != nil {
		return err
	}

	var result sql.Result
	if revision == "" {
		result, err = s.Conn.ExecContext(ctx,
			s.rebind(`UPDATE sheet_rows SET cells = ?, revision = revision + 1 WHERE row_id = ? AND sheet = ?`),
			data, loc.row, loc.table,
		)
	} else {
		expected, parseErr := strconv.ParseInt(revision, 10, 64)
		if parseErr != nil {
			return ErrRevisionMismatch
		}
		result, err = s.Conn.ExecContext(ctx,
			s.rebind(`UPDATE sheet_rows SET cells = ?, revision = revision + 1 WHERE row_id = ? AND sheet = ? AND revision = ?`),
			data, loc.row, loc.table, expected,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update row %s: %w", loc, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if revision == "" {
		return ErrRowNotFound
	}

	// Nothing matched: either the row is gone or someone else wrote first.
	var exists int
	err = s.Conn.QueryRowContext(ctx,
		s.rebind(`SELECT 1 FROM sheet_rows WHERE row_id = ? AND sheet = ?`),
		loc.row, loc.table,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRowNotFound
	}
	if err != nil {
		return err
	}
	return ErrRevisionMismatch
}

func (s *SQLStore) Scan(ctx context.Context, table string) ([]Row, error) {
	rows, err := s.Conn.QueryContext(ctx,
		s.rebind(`SELECT row_id, cells, revision FROM sheet_rows WHERE sheet = ? ORDER BY row_id ASC`),
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Row
	for rows.Next() {
		var id, revision int64
		var raw string
		if err := rows.Scan(&id, &raw, &revision); err != nil {
			return nil, err
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Row{
			Locator:  Locator{table: table, row: id},
			Cells:    cells,
			Revision: strconv.FormatInt(revision, 10),
		})
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, loc Locator) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	result, err := s.Conn.ExecContext(ctx,
		s.rebind(`DELETE FROM sheet_rows WHERE row_id = ? AND sheet = ?`),
		loc.row, loc.table,
	)
	if err != nil {
		return fmt.Errorf("failed to delete row %s: %w", loc, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRowNotFound
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.Conn.Close()
}
