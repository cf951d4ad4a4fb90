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
	"strconv"
	"sync"
)

type memoryRow struct {
	id       int64
	cells    []string
	revision int64
}

type memoryTable struct {
	nextID int64
	rows   []*memoryRow
}

// MemoryStore is a process-local RowStore. Updates are true compare-and-swap.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memoryTable
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memoryTable)}
}

func (m *MemoryStore) table(name string) *memoryTable {
	t, ok := m.tables[name]
	if !ok {
		t = &memoryTable{}
		m.tables[name] = t
	}
	return t
}

func (m *MemoryStore) find(loc Locator) (*memoryRow, int) {
	t, ok := m.tables[loc.table]
	if !ok {
		return nil, -1
	}
	for i, r := range t.rows {
		if r.id == loc.row {
			return r, i
		}
	}
	return nil, -1
}

func (m *MemoryStore) Append(_ context.Context, table string, cells []string) (Locator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table)
	t.nextID++
	t.rows = append(t.rows, &memoryRow{id: t.nextID, cells: copyCells(cells), revision: 1})
	return Locator{table: table, row: t.nextID}, nil
}

func (m *MemoryStore) Get(_ context.Context, loc Locator) (Row, error) {
	if err := checkLocator(loc); err != nil {
		return Row{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, _ := m.find(loc)
	if r == nil {
		return Row{}, ErrRowNotFound
	}
	return Row{Locator: loc, Cells: copyCells(r.cells), Revision: strconv.FormatInt(r.revision, 10)}, nil
}

func (m *MemoryStore) Update(_ context.Context, loc Locator, revision string, cells []string) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, _ := m.find(loc)
	if r == nil {
		return ErrRowNotFound
	}
	if revision != "" && revision != strconv.FormatInt(r.revision, 10) {
		return ErrRevisionMismatch
	}
	r.cells = copyCells(cells)
	r.revision++
	return nil
}

func (m *MemoryStore) Scan(_ context.Context, table string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[table]
	if !ok {
		return nil, nil
	}
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, Row{
			Locator:  Locator{table: table, row: r.id},
			Cells:    copyCells(r.cells),
			Revision: strconv.FormatInt(r.revision, 10),
		})
	}
	return rows, nil
}

func (m *MemoryStore) Delete(_ context.Context, loc Locator) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, i := m.find(loc)
	if r == nil {
		return ErrRowNotFound
	}
	t := m.tables[loc.table]
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
