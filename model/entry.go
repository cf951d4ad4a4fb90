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

package model

import "time"

// EntryStatus tracks whether a captured note reached the executor.
type EntryStatus string

const (
	EntryLocal     EntryStatus = "LOCAL"
	EntryForwarded EntryStatus = "FORWARDED"
)

// EntryColumns is the positional layout of the Entries table.
var EntryColumns = []string{"text", "created_at_client", "received_at", "item_type", "time_bucket", "categories", "id", "status"}

const (
	entryText = iota
	entryCreatedAtClient
	entryReceivedAt
	entryItemType
	entryTimeBucket
	entryCategory
	entryID
	entryStatus
)

// Entry is one captured note in the primary table.
type Entry struct {
	Text            string      `json:"text"`
	CreatedAtClient string      `json:"created_at_client"`
	ReceivedAt      time.Time   `json:"received_at"`
	ItemType        ItemType    `json:"item_type"`
	TimeBucket      string      `json:"time_bucket"`
	Category        string      `json:"category"`
	ID              string      `json:"id"`
	Status          EntryStatus `json:"status"`
}

// NewEntry builds a LOCAL entry for freshly classified text.
func NewEntry(id, text, createdAtClient string, receivedAt time.Time, c Classification) Entry {
	return Entry{
		Text:            text,
		CreatedAtClient: createdAtClient,
		ReceivedAt:      receivedAt.UTC(),
		ItemType:        c.ItemType,
		TimeBucket:      c.TimeBucket,
		Category:        c.Category,
		ID:              id,
		Status:          EntryLocal,
	}
}

// ToRow encodes the entry in table column order.
func (e Entry) ToRow() []string {
	row := make([]string, len(EntryColumns))
	row[entryText] = e.Text
	row[entryCreatedAtClient] = e.CreatedAtClient
	row[entryReceivedAt] = FormatTime(e.ReceivedAt)
	row[entryItemType] = string(e.ItemType)
	row[entryTimeBucket] = e.TimeBucket
	row[entryCategory] = e.Category
	row[entryID] = e.ID
	row[entryStatus] = string(e.Status)
	return row
}

// EntryFromRow decodes a positional row. Rows written before the status
// column existed decode as LOCAL.
func EntryFromRow(cells []string) Entry {
	status := EntryStatus(cell(cells, entryStatus))
	if status == "" {
		status = EntryLocal
	}
	return Entry{
		Text:            cell(cells, entryText),
		CreatedAtClient: cell(cells, entryCreatedAtClient),
		ReceivedAt:      ParseTime(cell(cells, entryReceivedAt)),
		ItemType:        ItemType(cell(cells, entryItemType)),
		TimeBucket:      cell(cells, entryTimeBucket),
		Category:        cell(cells, entryCategory),
		ID:              cell(cells, entryID),
		Status:          status,
	}
}

// EntryIDFromRow extracts only the id column, for lookups.
func EntryIDFromRow(cells []string) string {
	return cell(cells, entryID)
}

// EntryPatch carries the mutable fields of an entry. Nil means unchanged.
type EntryPatch struct {
	Text            *string   `json:"text,omitempty"`
	CreatedAtClient *string   `json:"created_at_client,omitempty"`
	ItemType        *ItemType `json:"item_type,omitempty"`
	TimeBucket      *string   `json:"time_bucket,omitempty"`
	Category        *string   `json:"category,omitempty"`
}

// Apply returns a copy of e with the patch applied. received_at, id and
// status are never touched.
func (p EntryPatch) Apply(e Entry) Entry {
	if p.Text != nil {
		e.Text = *p.Text
	}
	if p.CreatedAtClient != nil {
		e.CreatedAtClient = *p.CreatedAtClient
	}
	if p.ItemType != nil {
		e.ItemType = *p.ItemType
	}
	if p.TimeBucket != nil {
		e.TimeBucket = *p.TimeBucket
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	return e
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.Text == nil && p.CreatedAtClient == nil && p.ItemType == nil && p.TimeBucket == nil && p.Category == nil
}
