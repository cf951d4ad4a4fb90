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
	"strings"
	"sync"
	"testing"

	"github.com/jerry-enebeli/notebox/database"
	"github.com/jerry-enebeli/notebox/database/mocks"
	"github.com/jerry-enebeli/notebox/internal/classifier"
	"github.com/jerry-enebeli/notebox/internal/forwarder"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	errs []error
}

func (r *recordingNotifier) NotifyError(err error) {
	r.errs = append(r.errs, err)
}

func TestCapture_EmptyText(t *testing.T) {
	store := database.NewMemoryStore()
	n, _ := newTestNotebox(store, acceptingForwarder())

	_, err := n.Capture(context.Background(), CaptureInput{Text: "   \n\t"})
	assert.ErrorIs(t, err, ErrEmptyText)

	rows, err := store.Scan(context.Background(), "Sheet1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.False(t, n.guard.Done())
}

func TestCapture_TaskForwarded(t *testing.T) {
	store := database.NewMemoryStore()
	fwd := acceptingForwarder()
	n, clk := newTestNotebox(store, fwd)
	ctx := context.Background()

	res, err := n.Capture(ctx, CaptureInput{Text: "  pay rent friday ", CreatedAt: "2024-05-07T08:59:00Z"})
	require.NoError(t, err)
	assert.True(t, res.CalendarRouted)
	assert.True(t, res.Forwarded)
	assert.Equal(t, "evt_"+res.ID, res.RemoteID)
	assert.Equal(t, model.EntryForwarded, res.Stored.Status)
	assert.True(t, n.guard.Done())

	entries, err := n.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.Entry{
		Text:            "pay rent friday",
		CreatedAtClient: "2024-05-07T08:59:00Z",
		ReceivedAt:      clk.Now(),
		ItemType:        model.ItemTask,
		TimeBucket:      model.BucketToday,
		Category:        "Work",
		ID:              res.ID,
		Status:          model.EntryForwarded,
	}, entries[0])

	records, err := n.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, res.ID, records[0].ID)
	assert.Equal(t, model.OutboxSent, records[0].Status)
	assert.Equal(t, 1, records[0].Attempts)

	calls := fwd.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, res.ID, calls[0].ID)
	assert.Equal(t, "pay rent friday", calls[0].Text)
}

func TestCapture_ForwardFailureIsDeferred(t *testing.T) {
	store := database.NewMemoryStore()
	n, _ := newTestNotebox(store, rejectingForwarder("HTTP 503"))
	ctx := context.Background()

	res, err := n.Capture(ctx, CaptureInput{Text: noteText()})
	require.NoError(t, err)
	assert.True(t, res.CalendarRouted)
	assert.False(t, res.Forwarded)
	assert.Equal(t, model.EntryLocal, res.Stored.Status)

	records, err := n.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.OutboxFailed, records[0].Status)
	assert.True(t, records[0].Eligible(5))

	// The sweeper later delivers it and syncs the entry.
	n.forwarder = acceptingForwarder()
	sweep, err := n.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sweep.Sent)

	entries, err := n.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.EntryForwarded, entries[0].Status)
}

func TestCapture_IdeaStaysLocal(t *testing.T) {
	store := database.NewMemoryStore()
	fwd := acceptingForwarder()
	n, _ := newTestNotebox(store, fwd, func(o *Options) {
		o.Classifier = fixedClassifier{c: model.Classification{ItemType: model.ItemIdea, Category: "Creative", TimeBucket: model.BucketNone}}
	})

	res, err := n.Capture(context.Background(), CaptureInput{Text: "a song about lighthouses"})
	require.NoError(t, err)
	assert.False(t, res.CalendarRouted)
	assert.False(t, res.Forwarded)

	rows, err := store.Scan(context.Background(), "Outbox")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, fwd.calls())
}

func TestCapture_ClassifierFailureUsesFallback(t *testing.T) {
	store := database.NewMemoryStore()
	// An unreachable model with no key: Classify degrades to the fallback.
	gemini := classifier.NewGemini("http://127.0.0.1:1", "", "", 0)
	n, _ := newTestNotebox(store, acceptingForwarder(), func(o *Options) { o.Classifier = gemini })

	text := "remember to think about the garden layout at some point soon"
	res, err := n.Capture(context.Background(), CaptureInput{Text: text})
	require.NoError(t, err)
	assert.Equal(t, model.FallbackClassification(text), res.Classification)

	entries, err := n.ListEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ItemIdea, entries[0].ItemType)
	assert.Equal(t, model.CategoryOther, entries[0].Category)
}

func TestCapture_StorageFailure(t *testing.T) {
	store := new(mocks.MockRowStore)
	store.On("Scan", mock.Anything, "Config").Return([]database.Row(nil), nil)
	store.On("Append", mock.Anything, "Sheet1", mock.Anything).Return(database.Locator{}, errors.New("quota exceeded"))

	notifier := &recordingNotifier{}
	fwd := acceptingForwarder()
	n, _ := newTestNotebox(store, fwd, func(o *Options) { o.Notifier = notifier })

	_, err := n.Capture(context.Background(), CaptureInput{Text: noteText()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "quota exceeded")
	require.Len(t, notifier.errs, 1)
	assert.Empty(t, fwd.calls())

	store.AssertNotCalled(t, "Append", mock.Anything, "Outbox", mock.Anything)
	store.AssertExpectations(t)
}

func TestCapture_EnqueueFailureStillCaptures(t *testing.T) {
	store := new(mocks.MockRowStore)
	entryLoc := database.NewLocator("Sheet1", 2)
	store.On("Scan", mock.Anything, "Config").Return([]database.Row(nil), nil)
	store.On("Append", mock.Anything, "Sheet1", mock.Anything).Return(entryLoc, nil)
	store.On("Append", mock.Anything, "Outbox", mock.Anything).Return(database.Locator{}, errors.New("outbox sheet missing"))

	fwd := acceptingForwarder()
	n, _ := newTestNotebox(store, fwd)

	res, err := n.Capture(context.Background(), CaptureInput{Text: noteText()})
	require.NoError(t, err)
	assert.False(t, res.CalendarRouted)
	assert.Empty(t, fwd.calls())
	store.AssertExpectations(t)
}

func TestCapture_UsesLiveCategories(t *testing.T) {
	store := database.NewMemoryStore()
	var seen []string
	n, _ := newTestNotebox(store, acceptingForwarder(), func(o *Options) {
		o.Classifier = classifierFunc(func(_ context.Context, text string, categories []string) model.Classification {
			seen = categories
			return model.FallbackClassification(text)
		})
	})

	_, err := n.ReplaceCategories(context.Background(), []string{"Home", "Errands", "Other"})
	require.NoError(t, err)

	_, err = n.Capture(context.Background(), CaptureInput{Text: "mow the lawn"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Errands", "Other"}, seen)
}

type classifierFunc func(ctx context.Context, text string, categories []string) model.Classification

func (f classifierFunc) Classify(ctx context.Context, text string, categories []string) model.Classification {
	return f(ctx, text, categories)
}

// shiftingStore addresses rows by position, so deleting a row moves every
// later row up by one.
type shiftingStore struct {
	mu     sync.Mutex
	tables map[string][][]string
}

func newShiftingStore() *shiftingStore {
	return &shiftingStore{tables: make(map[string][][]string)}
}

func (s *shiftingStore) index(loc database.Locator) int {
	for i := range s.tables[loc.Table()] {
		if database.NewLocator(loc.Table(), int64(i+1)) == loc {
			return i
		}
	}
	return -1
}

func revisionOf(cells []string) string {
	return strings.Join(cells, "\x1f")
}

func (s *shiftingStore) Append(_ context.Context, table string, cells []string) (database.Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], append([]string(nil), cells...))
	return database.NewLocator(table, int64(len(s.tables[table]))), nil
}

func (s *shiftingStore) Get(_ context.Context, loc database.Locator) (database.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(loc)
	if i < 0 {
		return database.Row{}, database.ErrRowNotFound
	}
	cells := s.tables[loc.Table()][i]
	return database.Row{Locator: loc, Cells: append([]string(nil), cells...), Revision: revisionOf(cells)}, nil
}

func (s *shiftingStore) Update(_ context.Context, loc database.Locator, revision string, cells []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(loc)
	if i < 0 {
		return database.ErrRowNotFound
	}
	if revision != "" && revision != revisionOf(s.tables[loc.Table()][i]) {
		return database.ErrRevisionMismatch
	}
	s.tables[loc.Table()][i] = append([]string(nil), cells...)
	return nil
}

func (s *shiftingStore) Scan(_ context.Context, table string) ([]database.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]database.Row, 0, len(s.tables[table]))
	for i, cells := range s.tables[table] {
		rows = append(rows, database.Row{
			Locator:  database.NewLocator(table, int64(i+1)),
			Cells:    append([]string(nil), cells...),
			Revision: revisionOf(cells),
		})
	}
	return rows, nil
}

func (s *shiftingStore) Delete(_ context.Context, loc database.Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(loc)
	if i < 0 {
		return database.ErrRowNotFound
	}
	rows := s.tables[loc.Table()]
	s.tables[loc.Table()] = append(rows[:i], rows[i+1:]...)
	return nil
}

func (s *shiftingStore) Close() error { return nil }

func TestCapture_StatusSyncAfterRowsShift(t *testing.T) {
	ctx := context.Background()
	idea := model.Classification{ItemType: model.ItemIdea, Category: "Creative", TimeBucket: model.BucketNone}

	tests := []struct {
		name string
		// appendNewer adds an entry after the captured one, so its old
		// position now holds a different note.
		appendNewer bool
	}{
		{"captured row moved up", false},
		{"old position holds another entry", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newShiftingStore()
			older := model.NewEntry("older", "renew passport", "", newClock().Now(), idea)
			_, err := store.Append(ctx, "Sheet1", older.ToRow())
			require.NoError(t, err)

			var n *Notebox
			fwd := &fakeForwarder{fn: func(req forwarder.Request) (forwarder.Result, error) {
				require.NoError(t, n.DeleteEntry(ctx, "older"))
				if tt.appendNewer {
					newer := model.NewEntry("newer", "buy stamps", "", newClock().Now(), idea)
					_, err := store.Append(ctx, "Sheet1", newer.ToRow())
					require.NoError(t, err)
				}
				return forwarder.Result{Success: true, Status: 200, Data: forwarder.Data{ID: "evt"}, TraceID: req.TraceID}, nil
			}}
			n, _ = newTestNotebox(store, fwd)

			res, err := n.Capture(ctx, CaptureInput{Text: noteText()})
			require.NoError(t, err)
			assert.True(t, res.Forwarded)
			assert.Equal(t, "evt", res.RemoteID)
			assert.Equal(t, model.EntryForwarded, res.Stored.Status)

			entries, err := n.ListEntries(ctx)
			require.NoError(t, err)
			statuses := make(map[string]model.EntryStatus, len(entries))
			for _, e := range entries {
				statuses[e.ID] = e.Status
			}
			assert.Equal(t, model.EntryForwarded, statuses[res.ID])
			if tt.appendNewer {
				assert.Equal(t, model.EntryLocal, statuses["newer"])
			}
		})
	}
}
