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

	"github.com/jerry-enebeli/notebox/database"
	"github.com/jerry-enebeli/notebox/internal/forwarder"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrNotRoutable  = errors.New("item type is not routable")
	ErrNotClaimable = errors.New("outbox record is not claimable")
	ErrClaimLost    = errors.New("outbox record was claimed by another invocation")
)

// recordRetries bounds the read-modify-write loop in RecordResult.
const recordRetries = 3

var outboxTracer = otel.Tracer("notebox.outbox")

// Enqueue appends a pending record for a routable note. It must run before
// the first delivery attempt; the returned locator addresses the record for
// every later update.
func (n *Notebox) Enqueue(ctx context.Context, text string, itemType model.ItemType, id string) (database.Locator, error) {
	ctx, span := outboxTracer.Start(ctx, "Enqueue")
	defer span.End()

	if !itemType.Routable() {
		return database.Locator{}, fmt.Errorf("%w: %s", ErrNotRoutable, itemType)
	}

	rec := model.NewOutboxRecord(id, text, itemType, model.NewTraceID(), n.now())
	span.SetAttributes(attribute.String("notebox.id", id), attribute.String("notebox.trace_id", rec.TraceID))

	loc, err := n.store.Append(ctx, n.tables.Outbox, rec.ToRow())
	if err != nil {
		span.RecordError(err)
		return database.Locator{}, fmt.Errorf("failed to enqueue %s: %w", id, err)
	}

	logrus.WithFields(logrus.Fields{"id": id, "trace_id": rec.TraceID, "row": loc.String()}).Info("note enqueued")
	return loc, nil
}

// Claim marks the record at loc in_progress, guarded by the revision it
// was read at. Losing that race yields ErrClaimLost.
func (n *Notebox) Claim(ctx context.Context, loc database.Locator) (model.OutboxRecord, error) {
	row, err := n.store.Get(ctx, loc)
	if err != nil {
		return model.OutboxRecord{}, fmt.Errorf("failed to read outbox row %s: %w", loc, err)
	}

	now := n.now()
	rec := model.OutboxRecordFromRow(row.Cells)
	if !rec.Claimable(n.maxAttempts, now, n.claimTTL) {
		return rec, ErrNotClaimable
	}

	claimed := rec.Claim(now)
	err = n.store.Update(ctx, loc, row.Revision, claimed.ToRow())
	if errors.Is(err, database.ErrRevisionMismatch) {
		return rec, ErrClaimLost
	}
	if err != nil {
		return rec, fmt.Errorf("failed to claim outbox row %s: %w", loc, err)
	}
	return claimed, nil
}

// RecordResult folds one attempt into the record at loc. The write carries
// the revision it read; on a conflict the whole read-modify-write is
// repeated so a concurrent writer cannot swallow the attempt increment.
func (n *Notebox) RecordResult(ctx context.Context, loc database.Locator, res model.AttemptResult) (model.OutboxRecord, error) {
	ctx, span := outboxTracer.Start(ctx, "RecordResult")
	defer span.End()

	for i := 0; i < recordRetries; i++ {
		row, err := n.store.Get(ctx, loc)
		if err != nil {
			span.RecordError(err)
			return model.OutboxRecord{}, fmt.Errorf("failed to read outbox row %s: %w", loc, err)
		}

		updated := model.OutboxRecordFromRow(row.Cells).Apply(res, n.now())
		err = n.store.Update(ctx, loc, row.Revision, updated.ToRow())
		if errors.Is(err, database.ErrRevisionMismatch) {
			logrus.WithFields(logrus.Fields{"row": loc.String(), "attempt": i + 1}).Warn("outbox row changed underneath, retrying")
			continue
		}
		if err != nil {
			span.RecordError(err)
			return model.OutboxRecord{}, fmt.Errorf("failed to record result for %s: %w", loc, err)
		}

		logrus.WithFields(logrus.Fields{
			"id":       updated.ID,
			"trace_id": updated.TraceID,
			"row":      loc.String(),
			"attempts": updated.Attempts,
			"status":   updated.Status,
		}).Info("outbox attempt recorded")
		return updated, nil
	}
	return model.OutboxRecord{}, fmt.Errorf("failed to record result for %s: %w", loc, database.ErrRevisionMismatch)
}

// deliver makes one forwarding attempt for a claimed record and records it.
// Forwarder errors become a failed attempt.
func (n *Notebox) deliver(ctx context.Context, loc database.Locator, rec model.OutboxRecord) (model.OutboxRecord, error) {
	res, err := n.forwarder.Forward(ctx, forwarder.Request{
		Text:    rec.Text,
		AuthKey: n.forwardKey,
		ID:      rec.ID,
		TraceID: rec.TraceID,
	})

	attempt := attemptResult(res)
	if err != nil {
		logrus.WithFields(logrus.Fields{"id": rec.ID, "trace_id": rec.TraceID}).Warnf("forward failed: %v", err)
		attempt = model.AttemptResult{Error: err.Error()}
	}
	if attempt.TraceID == "" {
		attempt.TraceID = rec.TraceID
	}
	return n.RecordResult(ctx, loc, attempt)
}

func attemptResult(res forwarder.Result) model.AttemptResult {
	return model.AttemptResult{
		Success:        res.Success,
		RemoteID:       res.Data.ID,
		Error:          res.Error,
		TraceID:        res.TraceID,
		RemoteAction:   res.Data.Action,
		RemoteCalendar: res.Data.CalendarID,
		RemoteStart:    res.Data.Start,
		RemoteEnd:      res.Data.End,
		RawResponse:    res.Raw,
	}
}

// SyncEntryStatus pushes FORWARDED onto the entry with id.
func (n *Notebox) SyncEntryStatus(ctx context.Context, id string) error {
	row, entry, err := n.findEntry(ctx, id)
	if err != nil {
		return err
	}
	return n.markForwarded(ctx, row, entry)
}

func (n *Notebox) markForwarded(ctx context.Context, row database.Row, entry model.Entry) error {
	if entry.Status == model.EntryForwarded {
		return nil
	}
	entry.Status = model.EntryForwarded
	if err := n.store.Update(ctx, row.Locator, row.Revision, entry.ToRow()); err != nil {
		return fmt.Errorf("failed to mark %s forwarded: %w", entry.ID, err)
	}
	return nil
}

// Records returns every outbox record in storage order.
func (n *Notebox) Records(ctx context.Context) ([]model.OutboxRecord, error) {
	rows, err := n.store.Scan(ctx, n.tables.Outbox)
	if err != nil {
		return nil, fmt.Errorf("failed to scan outbox: %w", err)
	}
	records := make([]model.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.OutboxRecordFromRow(row.Cells))
	}
	return records, nil
}
