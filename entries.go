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

package notebox

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/notebox/database"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/sirupsen/logrus"
)

var ErrEntryNotFound = errors.New("entry not found")

// ListEntries returns every captured note in storage order.
func (n *Notebox) ListEntries(ctx context.Context) ([]model.Entry, error) {
	rows, err := n.store.Scan(ctx, n.tables.Entries)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entries: %w", err)
	}
	entries := make([]model.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, model.EntryFromRow(row.Cells))
	}
	return entries, nil
}

func (n *Notebox) findEntry(ctx context.Context, id string) (database.Row, model.Entry, error) {
	rows, err := n.store.Scan(ctx, n.tables.Entries)
	if err != nil {
		return database.Row{}, model.Entry{}, fmt.Errorf("failed to scan entries: %w", err)
	}
	for _, row := range rows {
		if model.EntryIDFromRow(row.Cells) == id {
			return row, model.EntryFromRow(row.Cells), nil
		}
	}
	return database.Row{}, model.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// ValidatePatch checks the mutable fields an edit may carry.
func ValidatePatch(p model.EntryPatch) error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ItemType, validation.NilOrNotEmpty, validation.By(func(value interface{}) error {
			t, _ := value.(*model.ItemType)
			if t != nil && !t.Valid() {
				return fmt.Errorf("must be one of %v", model.ItemTypes)
			}
			return nil
		})),
		validation.Field(&p.TimeBucket, validation.NilOrNotEmpty, validation.By(func(value interface{}) error {
			b, _ := value.(*string)
			if b != nil && !model.ValidTimeBucket(*b) {
				return errors.New("must be a timestamp or one of today, this_week, upcoming, none")
			}
			return nil
		})),
		validation.Field(&p.Text, validation.NilOrNotEmpty),
	)
}

// UpdateEntry applies patch to the entry with id. received_at, id and status
// are never changed here.
func (n *Notebox) UpdateEntry(ctx context.Context, id string, patch model.EntryPatch) (model.Entry, error) {
	if err := ValidatePatch(patch); err != nil {
		return model.Entry{}, err
	}

	row, entry, err := n.findEntry(ctx, id)
	if err != nil {
		return model.Entry{}, err
	}
	if patch.Empty() {
		return entry, nil
	}

	updated := patch.Apply(entry)
	if err := n.store.Update(ctx, row.Locator, row.Revision, updated.ToRow()); err != nil {
		return model.Entry{}, fmt.Errorf("failed to update entry %s: %w", id, err)
	}
	logrus.WithField("id", id).Info("entry updated")
	return updated, nil
}

// DeleteEntry removes the entry with id. Its outbox record is kept.
func (n *Notebox) DeleteEntry(ctx context.Context, id string) error {
	row, _, err := n.findEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := n.store.Delete(ctx, row.Locator); err != nil {
		if errors.Is(err, database.ErrRowNotFound) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	logrus.WithField("id", id).Info("entry deleted")
	return nil
}
