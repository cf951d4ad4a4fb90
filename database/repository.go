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
	"errors"
	"fmt"
)

var (
	// ErrRowNotFound is returned when a locator no longer addresses a row.
	ErrRowNotFound = errors.New("row not found")
	// ErrRevisionMismatch is returned by Update when the row changed since it was read.
	ErrRevisionMismatch = errors.New("row revision mismatch")
	// ErrForeignLocator is returned when a locator was not issued by this store.
	ErrForeignLocator = errors.New("locator does not belong to this store")
)

// Locator is an opaque handle to one row. Only the store that issued it can
// interpret it; callers hold it and hand it back.
type Locator struct {
	table string
	row   int64
}

// NewLocator builds a locator for a backend living outside this package.
func NewLocator(table string, row int64) Locator {
	return Locator{table: table, row: row}
}

// Table is the name of the table the locator points into.
func (l Locator) Table() string {
	return l.table
}

// IsZero reports whether the locator was never issued.
func (l Locator) IsZero() bool {
	return l.table == "" && l.row == 0
}

// String is for logs only.
func (l Locator) String() string {
	if l.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s#%d", l.table, l.row)
}

// Row is one positional row together with its handle and revision token.
type Row struct {
	Locator  Locator
	Cells    []string
	Revision string
}

// RowStore is an append/update/scan interface over named tables of
// positional rows. Rows are addressed by locator, not by key.
type RowStore interface {
	// Append adds a row at the end of table and returns its locator.
	Append(ctx context.Context, table string, cells []string) (Locator, error)
	// Get reads the row at loc.
	Get(ctx context.Context, loc Locator) (Row, error)
	// Update overwrites the row at loc. A non-empty revision must match the
	// current row revision or ErrRevisionMismatch is returned.
	Update(ctx context.Context, loc Locator, revision string, cells []string) error
	// Scan returns every data row of table in storage order, header excluded.
	Scan(ctx context.Context, table string) ([]Row, error)
	// Delete removes the row at loc.
	Delete(ctx context.Context, loc Locator) error
	// Close releases the underlying connection.
	Close() error
}

func checkLocator(loc Locator) error {
	if loc.table == "" || loc.row <= 0 {
		return ErrForeignLocator
	}
	return nil
}

func copyCells(cells []string) []string {
	out := make([]string, len(cells))
	copy(out, cells)
	return out
}
