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
	"strings"

	"github.com/jerry-enebeli/notebox/database"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrEmptyText = errors.New("text is required")
	// ErrStorage marks failures to persist a captured note. Every other
	// capture failure is absorbed.
	ErrStorage = errors.New("failed to store note")
)

var inboxTracer = otel.Tracer("notebox.inbox")

// CaptureInput is a parsed inbound note.
type CaptureInput struct {
	Text      string
	CreatedAt string
}

// CaptureResult reports what happened to a captured note. CalendarRouted
// means the note was routable and entered the outbox; Forwarded means the
// immediate attempt was confirmed by the executor.
type CaptureResult struct {
	ID             string               `json:"id"`
	Classification model.Classification `json:"classification"`
	CalendarRouted bool                 `json:"calendar_routed"`
	Forwarded      bool                 `json:"forwarded"`
	RemoteID       string               `json:"remote_id,omitempty"`
	Stored         model.Entry          `json:"stored"`
}

// Capture classifies, persists and, for routable notes, enqueues and makes
// one immediate delivery attempt. Only empty text and storage failures are
// returned as errors.
func (n *Notebox) Capture(ctx context.Context, in CaptureInput) (CaptureResult, error) {
	ctx, span := inboxTracer.Start(ctx, "Capture")
	defer span.End()

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return CaptureResult{}, ErrEmptyText
	}
	n.logLayout()

	classification := n.classifier.Classify(ctx, text, n.liveCategories(ctx))
	id := model.NewNoteID()
	span.SetAttributes(attribute.String("notebox.id", id), attribute.String("notebox.item_type", string(classification.ItemType)))

	entry := model.NewEntry(id, text, in.CreatedAt, n.now(), classification)
	entryLoc, err := n.store.Append(ctx, n.tables.Entries, entry.ToRow())
	if err != nil {
		span.RecordError(err)
		err = fmt.Errorf("%w %s: %w", ErrStorage, id, err)
		n.notifier.NotifyError(err)
		return CaptureResult{}, err
	}

	result := CaptureResult{ID: id, Classification: classification, Stored: entry}
	fields := logrus.Fields{"id": id, "item_type": classification.ItemType, "category": classification.Category}
	logrus.WithFields(fields).Info("note captured")

	if !classification.ItemType.Routable() {
		return result, nil
	}

	loc, err := n.Enqueue(ctx, text, classification.ItemType, id)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("failed to enqueue note, it will not be forwarded")
		return result, nil
	}
	result.CalendarRouted = true

	claimed, err := n.Claim(ctx, loc)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("immediate attempt skipped")
		return result, nil
	}

	rec, err := n.deliver(ctx, loc, claimed)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("failed to record immediate attempt")
		return result, nil
	}
	if !rec.Delivered() {
		logrus.WithFields(fields).WithField("trace_id", rec.TraceID).Info("immediate attempt failed, deferred to sweeper")
		return result, nil
	}

	result.Forwarded = true
	result.RemoteID = rec.RemoteID

	// On positional backends a delete during the attempt shifts rows, so
	// the append-time locator may miss or address another entry.
	row, err := n.store.Get(ctx, entryLoc)
	switch {
	case err == nil && model.EntryIDFromRow(row.Cells) == id:
		err = n.markForwarded(ctx, row, model.EntryFromRow(row.Cells))
	case err == nil, errors.Is(err, database.ErrRowNotFound):
		err = n.SyncEntryStatus(ctx, id)
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("entry status sync failed")
		return result, nil
	}
	result.Stored.Status = model.EntryForwarded
	return result, nil
}
