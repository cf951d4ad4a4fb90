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

	redlock "github.com/jerry-enebeli/notebox/internal/lock"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const sweepLockKey = "notebox:outbox:sweep"

// SweepResult summarizes one sweep. Skipped is set when another sweep held
// the lease and nothing was processed.
type SweepResult struct {
	Processed int  `json:"processed"`
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	Skipped   bool `json:"skipped"`
}

// Sweep walks the outbox oldest first and retries every claimable record
// until the sweep cap is reached. Rows past the cap stay eligible for the
// next sweep. A failing row never stops the scan.
func (n *Notebox) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := outboxTracer.Start(ctx, "Sweep")
	defer span.End()

	var result SweepResult

	var locker *redlock.Locker
	if n.redis != nil {
		locker = redlock.NewLocker(n.redis, sweepLockKey, model.GenerateUUIDWithSuffix("sweep"))
		if err := locker.Lock(ctx, n.sweepLease); err != nil {
			if errors.Is(err, redlock.ErrLockHeld) {
				logrus.Info("another sweep holds the outbox lease, skipping")
				result.Skipped = true
				return result, nil
			}
			span.RecordError(err)
			return result, fmt.Errorf("failed to take sweep lease: %w", err)
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				logrus.WithError(err).Warn("failed to release sweep lease")
			}
		}()
	}

	rows, err := n.store.Scan(ctx, n.tables.Outbox)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("failed to scan outbox: %w", err)
	}

	now := n.now()
	for _, row := range rows {
		if result.Processed >= n.sweepCap {
			break
		}

		rec := model.OutboxRecordFromRow(row.Cells)
		fields := logrus.Fields{"id": rec.ID, "trace_id": rec.TraceID, "row": row.Locator.String()}
		if rec.ID == "" {
			logrus.WithFields(fields).Warn("skipping outbox row without id")
			continue
		}
		if !rec.Claimable(n.maxAttempts, now, n.claimTTL) {
			continue
		}

		claimed, err := n.Claim(ctx, row.Locator)
		if errors.Is(err, ErrClaimLost) || errors.Is(err, ErrNotClaimable) {
			logrus.WithFields(fields).Info("outbox row taken by another invocation")
			continue
		}
		if err != nil {
			logrus.WithFields(fields).WithError(err).Warn("failed to claim outbox row")
			continue
		}

		result.Processed++
		fields["attempt"] = claimed.Attempts + 1

		updated, err := n.deliver(ctx, row.Locator, claimed)
		if err != nil {
			result.Failed++
			logrus.WithFields(fields).WithError(err).Error("failed to record outbox attempt")
			continue
		}

		if updated.Delivered() {
			result.Sent++
			if err := n.SyncEntryStatus(ctx, updated.ID); err != nil {
				logrus.WithFields(fields).WithError(err).Warn("entry status sync failed")
			}
		} else {
			result.Failed++
		}

		if locker != nil {
			if err := locker.ExtendLock(ctx, n.sweepLease); err != nil {
				logrus.WithError(err).Warn("failed to extend sweep lease")
			}
		}
	}

	span.SetAttributes(
		attribute.Int("notebox.processed", result.Processed),
		attribute.Int("notebox.sent", result.Sent),
		attribute.Int("notebox.failed", result.Failed),
	)
	logrus.WithFields(logrus.Fields{"processed": result.Processed, "sent": result.Sent, "failed": result.Failed}).Info("outbox sweep done")
	return result, nil
}
