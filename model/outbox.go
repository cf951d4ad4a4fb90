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
	"strconv"
	"time"

	"github.com/wacul/ptr"
)

// OutboxStatus is the delivery state of an outbox record.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxInProgress OutboxStatus = "in_progress"
	OutboxSent       OutboxStatus = "sent"
	OutboxFailed     OutboxStatus = "failed"
)

// DefaultMaxAttempts bounds how many times a record is tried.
const DefaultMaxAttempts = 5

// MaxRawResponseLength bounds the remote_raw_response cell.
const MaxRawResponseLength = 2000

// OutboxColumns is the positional layout of the Outbox table.
var OutboxColumns = []string{
	"created_at", "text", "item_type", "status", "attempts", "last_error", "last_attempt_at", "sent_at",
	"id", "remote_id", "remote_action", "remote_calendar_id", "remote_start", "remote_end",
	"remote_raw_response", "forward_trace_id",
}

const (
	outboxCreatedAt = iota
	outboxText
	outboxItemType
	outboxStatus
	outboxAttempts
	outboxLastError
	outboxLastAttemptAt
	outboxSentAt
	outboxID
	outboxRemoteID
	outboxRemoteAction
	outboxRemoteCalendarID
	outboxRemoteStart
	outboxRemoteEnd
	outboxRemoteRawResponse
	outboxTraceID
)

// OutboxRecord is one forwarding lineage. It is created once per routable
// note and never deleted.
type OutboxRecord struct {
	CreatedAt         time.Time    `json:"created_at"`
	Text              string       `json:"text"`
	ItemType          ItemType     `json:"item_type"`
	Status            OutboxStatus `json:"status"`
	Attempts          int          `json:"attempts"`
	LastError         string       `json:"last_error,omitempty"`
	LastAttemptAt     *time.Time   `json:"last_attempt_at,omitempty"`
	SentAt            *time.Time   `json:"sent_at,omitempty"`
	ID                string       `json:"id"`
	RemoteID          string       `json:"remote_id,omitempty"`
	RemoteAction      string       `json:"remote_action,omitempty"`
	RemoteCalendarID  string       `json:"remote_calendar_id,omitempty"`
	RemoteStart       string       `json:"remote_start,omitempty"`
	RemoteEnd         string       `json:"remote_end,omitempty"`
	RemoteRawResponse string       `json:"remote_raw_response,omitempty"`
	TraceID           string       `json:"forward_trace_id"`
}

// NewOutboxRecord builds a pending record with zero attempts.
func NewOutboxRecord(id, text string, itemType ItemType, traceID string, now time.Time) OutboxRecord {
	return OutboxRecord{
		CreatedAt: now.UTC(),
		Text:      text,
		ItemType:  itemType,
		Status:    OutboxPending,
		ID:        id,
		TraceID:   traceID,
	}
}

// Delivered is the authoritative delivery check: only a remote id proves
// the executor accepted the note. Status alone is advisory.
func (r OutboxRecord) Delivered() bool {
	return r.RemoteID != ""
}

// Eligible reports whether the record may be attempted again.
// A record marked sent without a remote id is still eligible.
func (r OutboxRecord) Eligible(maxAttempts int) bool {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return r.Attempts < maxAttempts && (r.Status != OutboxSent || r.RemoteID == "")
}

// Claimable is Eligible minus records another invocation claimed less than
// claimTTL ago. Stale claims are treated as abandoned.
func (r OutboxRecord) Claimable(maxAttempts int, now time.Time, claimTTL time.Duration) bool {
	if !r.Eligible(maxAttempts) {
		return false
	}
	if r.Status != OutboxInProgress {
		return true
	}
	if r.LastAttemptAt == nil {
		return true
	}
	return now.Sub(*r.LastAttemptAt) >= claimTTL
}

// Claim marks the record in progress.
func (r OutboxRecord) Claim(now time.Time) OutboxRecord {
	r.Status = OutboxInProgress
	r.LastAttemptAt = ptr.Time(now.UTC())
	return r
}

// AttemptResult is the outcome of one delivery attempt.
type AttemptResult struct {
	Success        bool
	RemoteID       string
	Error          string
	TraceID        string
	RemoteAction   string
	RemoteCalendar string
	RemoteStart    string
	RemoteEnd      string
	RawResponse    string
}

// ErrMissingRemoteID is recorded when the executor reports success without an id.
const ErrMissingRemoteID = "executor response missing event id"

// Apply folds one attempt into the record: attempts grow by one, status
// becomes sent only when the executor returned an id.
func (r OutboxRecord) Apply(res AttemptResult, now time.Time) OutboxRecord {
	now = now.UTC()
	r.Attempts++
	r.LastAttemptAt = ptr.Time(now)

	delivered := res.Success && res.RemoteID != ""
	if delivered {
		r.Status = OutboxSent
		r.SentAt = ptr.Time(now)
		r.RemoteID = res.RemoteID
		r.LastError = res.Error
	} else {
		r.Status = OutboxFailed
		r.LastError = res.Error
		if res.Success && r.LastError == "" {
			r.LastError = ErrMissingRemoteID
		}
	}

	if res.RemoteAction != "" {
		r.RemoteAction = res.RemoteAction
	}
	if res.RemoteCalendar != "" {
		r.RemoteCalendarID = res.RemoteCalendar
	}
	if res.RemoteStart != "" {
		r.RemoteStart = res.RemoteStart
	}
	if res.RemoteEnd != "" {
		r.RemoteEnd = res.RemoteEnd
	}
	if res.RawResponse != "" {
		r.RemoteRawResponse = Truncate(res.RawResponse, MaxRawResponseLength)
	}
	if res.TraceID != "" {
		r.TraceID = res.TraceID
	}
	return r
}

// ToRow encodes the record in table column order.
func (r OutboxRecord) ToRow() []string {
	row := make([]string, len(OutboxColumns))
	row[outboxCreatedAt] = FormatTime(r.CreatedAt)
	row[outboxText] = r.Text
	row[outboxItemType] = string(r.ItemType)
	row[outboxStatus] = string(r.Status)
	row[outboxAttempts] = strconv.Itoa(r.Attempts)
	row[outboxLastError] = r.LastError
	row[outboxLastAttemptAt] = formatTimePtr(r.LastAttemptAt)
	row[outboxSentAt] = formatTimePtr(r.SentAt)
	row[outboxID] = r.ID
	row[outboxRemoteID] = r.RemoteID
	row[outboxRemoteAction] = r.RemoteAction
	row[outboxRemoteCalendarID] = r.RemoteCalendarID
	row[outboxRemoteStart] = r.RemoteStart
	row[outboxRemoteEnd] = r.RemoteEnd
	row[outboxRemoteRawResponse] = Truncate(r.RemoteRawResponse, MaxRawResponseLength)
	row[outboxTraceID] = r.TraceID
	return row
}

// OutboxRecordFromRow decodes a positional row. Missing trailing cells
// decode as empty values and unparsable attempts as zero.
func OutboxRecordFromRow(cells []string) OutboxRecord {
	return OutboxRecord{
		CreatedAt:         ParseTime(cell(cells, outboxCreatedAt)),
		Text:              cell(cells, outboxText),
		ItemType:          ItemType(cell(cells, outboxItemType)),
		Status:            OutboxStatus(cell(cells, outboxStatus)),
		Attempts:          parseCount(cell(cells, outboxAttempts)),
		LastError:         cell(cells, outboxLastError),
		LastAttemptAt:     parseTimePtr(cell(cells, outboxLastAttemptAt)),
		SentAt:            parseTimePtr(cell(cells, outboxSentAt)),
		ID:                cell(cells, outboxID),
		RemoteID:          cell(cells, outboxRemoteID),
		RemoteAction:      cell(cells, outboxRemoteAction),
		RemoteCalendarID:  cell(cells, outboxRemoteCalendarID),
		RemoteStart:       cell(cells, outboxRemoteStart),
		RemoteEnd:         cell(cells, outboxRemoteEnd),
		RemoteRawResponse: cell(cells, outboxRemoteRawResponse),
		TraceID:           cell(cells, outboxTraceID),
	}
}
