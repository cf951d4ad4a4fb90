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
package mocks

import (
	"context"

	"github.com/jerry-enebeli/notebox/database"
	"github.com/stretchr/testify/mock"
)

// MockRowStore is a mock implementation of the database.RowStore interface
type MockRowStore struct {
	mock.Mock
}

func (m *MockRowStore) Append(ctx context.Context, table string, cells []string) (database.Locator, error) {
	args := m.Called(ctx, table, cells)
	return args.Get(0).(database.Locator), args.Error(1)
}

func (m *MockRowStore) Get(ctx context.Context, loc database.Locator) (database.Row, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).(database.Row), args.Error(1)
}

func (m *MockRowStore) Update(ctx context.Context, loc database.Locator, revision string, cells []string) error {
	args := m.Called(ctx, loc, revision, cells)
	return args.Error(0)
}

func (m *MockRowStore) Scan(ctx context.Context, table string) ([]database.Row, error) {
	args := m.Called(ctx, table)
	rows, _ := args.Get(0).([]database.Row)
	return rows, args.Error(1)
}

func (m *MockRowStore) Delete(ctx context.Context, loc database.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *MockRowStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
