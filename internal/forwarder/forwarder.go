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

package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultURL        = "https://my-calendar-agent-v2.vercel.app/api/siri"
	DefaultAuthHeader = "x-chronos-key"
	DefaultTimeout    = 10 * time.Second

	// ErrTimedOut is the exact error text recorded when the executor does not
	// answer within the timeout.
	ErrTimedOut = "Request timed out"

	maxErrorBody = 300
	maxBody      = 1 << 20
)

var tracer = otel.Tracer("notebox.forwarder")

// Request is one delivery attempt of a note to the executor.
type Request struct {
	Text    string
	AuthKey string
	// ID is the idempotency key; the same value goes out on every retry.
	ID      string
	TraceID string
	// BaseURL overrides the client default for this call.
	BaseURL string
}

// Data is the executor's answer, normalized.
type Data struct {
	ID         string
	Action     string
	CalendarID string
	Start      string
	End        string
}

// Result describes one attempt. Success means a 2xx reply; delivery is only
// confirmed when Data.ID is also set.
type Result struct {
	Success bool
	Status  int
	Data    Data
	Error   string
	TraceID string
	Raw     string
}

type Options struct {
	BaseURL    string
	AuthHeader string
	Timeout    time.Duration
}

// Client posts notes to the executor.
type Client struct {
	http       *http.Client
	baseURL    string
	authHeader string
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL
	}
	if opts.AuthHeader == "" {
		opts.AuthHeader = DefaultAuthHeader
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		authHeader: opts.AuthHeader,
	}
}

// Body renders the text/plain payload: a metadata line the executor can use
// to dedupe, then the note itself.
func Body(req Request) string {
	return fmt.Sprintf("[notebox id=%s trace_id=%s]\n%s", req.ID, req.TraceID, req.Text)
}

// Forward makes exactly one attempt. Executor and network failures are
// reported in the Result; the returned error is reserved for requests that
// could not be built at all.
func (c *Client) Forward(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "Forward")
	defer span.End()
	span.SetAttributes(attribute.String("notebox.id", req.ID), attribute.String("notebox.trace_id", req.TraceID))

	target := req.BaseURL
	if target == "" {
		target = c.baseURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(Body(req)))
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/plain; charset=utf-8")
	httpReq.Header.Set("Idempotency-Key", req.ID)
	httpReq.Header.Set("X-Trace-Id", req.TraceID)
	if req.AuthKey != "" {
		httpReq.Header.Set(c.authHeader, req.AuthKey)
	}

	fields := logrus.Fields{"id": req.ID, "trace_id": req.TraceID}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		if isTimeout(err) {
			logrus.WithFields(fields).Warn("executor request timed out")
			return Result{Error: ErrTimedOut, TraceID: req.TraceID}, nil
		}
		logrus.WithFields(fields).Warnf("executor request failed: %v", err)
		return Result{Error: "network error: " + rootCause(err).Error(), TraceID: req.TraceID}, nil
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close response body")
		}
	}()

	fields["status_code"] = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		if isTimeout(err) {
			return Result{Status: resp.StatusCode, Error: ErrTimedOut, TraceID: req.TraceID}, nil
		}
		return Result{Status: resp.StatusCode, Error: "network error: " + err.Error(), TraceID: req.TraceID}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = "HTTP " + strconv.Itoa(resp.StatusCode)
		}
		if r := []rune(msg); len(r) > maxErrorBody {
			msg = string(r[:maxErrorBody])
		}
		logrus.WithFields(fields).Warn("executor rejected note")
		return Result{Status: resp.StatusCode, Error: msg, TraceID: req.TraceID, Raw: string(body)}, nil
	}

	result := Result{Success: true, Status: resp.StatusCode, TraceID: req.TraceID, Raw: string(body)}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		logrus.WithFields(fields).Warn("executor returned a non-JSON body")
		return result, nil
	}
	result.Data = Normalize(payload)
	if echoed := str(payload["trace_id"]); echoed != "" {
		result.TraceID = echoed
	}

	logrus.WithFields(fields).WithField("remote_id", result.Data.ID).Info("executor accepted note")
	return result, nil
}

var idKeys = []string{"id", "event_id", "eventId", "eventID"}

// Normalize pulls the event fields out of whatever shape the executor
// answered with: top level first, then nested data or event objects.
func Normalize(payload map[string]interface{}) Data {
	scopes := []map[string]interface{}{payload}
	for _, key := range []string{"data", "event"} {
		if nested, ok := payload[key].(map[string]interface{}); ok {
			scopes = append(scopes, nested)
		}
	}

	var d Data
	for _, scope := range scopes {
		if d.ID == "" {
			d.ID = first(scope, idKeys...)
		}
		if d.Action == "" {
			d.Action = first(scope, "action")
		}
		if d.CalendarID == "" {
			d.CalendarID = first(scope, "calendar_id", "calendarId", "calendarID")
		}
		if d.Start == "" {
			d.Start = when(scope["start"])
		}
		if d.End == "" {
			d.End = when(scope["end"])
		}
	}
	return d
}

func first(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v := str(m[k]); v != "" {
			return v
		}
	}
	return ""
}

func str(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// when accepts a plain timestamp or a calendar {dateTime|date} object.
func when(v interface{}) string {
	if m, ok := v.(map[string]interface{}); ok {
		return first(m, "dateTime", "date")
	}
	return str(v)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
