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

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("trace")
	assert.True(t, strings.HasPrefix(id, "trace_"))
	assert.Len(t, id, len("trace_")+36)
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("trace"))
}

func TestParseTime(t *testing.T) {
	assert.True(t, ParseTime("").IsZero())
	assert.True(t, ParseTime("yesterday").IsZero())
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), ParseTime("2024-05-01T09:00:00Z"))
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), ParseTime("2024-05-01T10:00:00+01:00"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 50))
	assert.Equal(t, "", Truncate("anything", 0))
}

func TestItemType(t *testing.T) {
	assert.True(t, ItemTask.Routable())
	assert.True(t, ItemEvent.Routable())
	assert.False(t, ItemIdea.Routable())
	assert.False(t, ItemImportantInfo.Routable())
	assert.True(t, ItemImportantInfo.Valid())
	assert.False(t, ItemType("reminder").Valid())
}

func TestValidTimeBucket(t *testing.T) {
	for _, v := range []string{"today", "this_week", "upcoming", "none", "2024-05-01T09:00:00Z", "2024-05-01"} {
		assert.True(t, ValidTimeBucket(v), v)
	}
	for _, v := range []string{"", "tomorrow-ish", "next week"} {
		assert.False(t, ValidTimeBucket(v), v)
	}
}

func TestFallbackClassification(t *testing.T) {
	text := strings.Repeat("x", 80)
	c := FallbackClassification(text)
	assert.Equal(t, ItemIdea, c.ItemType)
	assert.Equal(t, CategoryOther, c.Category)
	assert.Equal(t, BucketNone, c.TimeBucket)
	assert.False(t, c.IsEvent)
	assert.Len(t, c.Summary, 50)
}

func TestEntry_RowCodec(t *testing.T) {
	received := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c := Classification{ItemType: ItemTask, Category: "Work", TimeBucket: BucketToday}
	e := NewEntry("note-1", "send invoice", "2024-05-01T08:59:00Z", received, c)

	row := e.ToRow()
	assert.Equal(t, []string{"send invoice", "2024-05-01T08:59:00Z", "2024-05-01T09:00:00Z", "task", "today", "Work", "note-1", "LOCAL"}, row)
	assert.Equal(t, e, EntryFromRow(row))
	assert.Equal(t, "note-1", EntryIDFromRow(row))
}

func TestEntryFromRow_LegacyRowWithoutStatus(t *testing.T) {
	e := EntryFromRow([]string{"old note", "", "2024-01-01T00:00:00Z", "idea", "none", "Other", "note-0"})
	assert.Equal(t, EntryLocal, e.Status)
	assert.Equal(t, "note-0", e.ID)
}

func TestEntryPatch_Apply(t *testing.T) {
	received := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	e := Entry{Text: "a", ReceivedAt: received, ItemType: ItemIdea, Category: "Other", ID: "note-1", Status: EntryForwarded}

	text := "b"
	category := "Work"
	itemType := ItemTask
	patch := EntryPatch{Text: &text, Category: &category, ItemType: &itemType}
	assert.False(t, patch.Empty())
	assert.True(t, EntryPatch{}.Empty())

	updated := patch.Apply(e)
	assert.Equal(t, "b", updated.Text)
	assert.Equal(t, "Work", updated.Category)
	assert.Equal(t, ItemTask, updated.ItemType)
	assert.Equal(t, received, updated.ReceivedAt)
	assert.Equal(t, "note-1", updated.ID)
	assert.Equal(t, EntryForwarded, updated.Status)
	assert.Equal(t, "a", e.Text, "original entry is not mutated")
}

func TestEntry_JSONMatchesColumns(t *testing.T) {
	e := NewEntry("n1", "call mom", "2024-05-01T09:00:00Z", time.Date(2024, 5, 1, 9, 0, 5, 0, time.UTC), FallbackClassification("call mom"))
	b, err := json.Marshal(e)
	assert.NoError(t, err)

	var got map[string]interface{}
	assert.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "2024-05-01T09:00:05Z", got["received_at"])
	assert.Equal(t, "2024-05-01T09:00:00Z", got["created_at_client"])
	assert.NotContains(t, got, "created_at_server")
}
