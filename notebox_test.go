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
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jerry-enebeli/notebox/database"
	"github.com/jerry-enebeli/notebox/internal/forwarder"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/stretchr/testify/assert"
)

// fakeForwarder answers every Forward call through fn and records requests.
type fakeForwarder struct {
	mu       sync.Mutex
	requests []forwarder.Request
	fn       func(req forwarder.Request) (forwarder.Result, error)
}

func (f *fakeForwarder) Forward(_ context.Context, req forwarder.Request) (forwarder.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeForwarder) calls() []forwarder.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]forwarder.Request(nil), f.requests...)
}

func acceptingForwarder() *fakeForwarder {
	return &fakeForwarder{fn: func(req forwarder.Request) (forwarder.Result, error) {
		return forwarder.Result{Success: true, Status: 200, Data: forwarder.Data{ID: "evt_" + req.ID, Action: "created"}, TraceID: req.TraceID}, nil
	}}
}

func rejectingForwarder(msg string) *fakeForwarder {
	return &fakeForwarder{fn: func(req forwarder.Request) (forwarder.Result, error) {
		return forwarder.Result{Status: 502, Error: msg, TraceID: req.TraceID}, nil
	}}
}

// fixedClassifier returns the same classification for every note.
type fixedClassifier struct {
	c model.Classification
}

func (f fixedClassifier) Classify(_ context.Context, text string, _ []string) model.Classification {
	c := f.c
	if c.Summary == "" {
		c.Summary = model.DefaultSummary(text)
	}
	return c
}

var taskClassification = model.Classification{ItemType: model.ItemTask, Category: "Work", TimeBucket: model.BucketToday}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestNotebox(store database.RowStore, fwd Forwarder, opts ...func(*Options)) (*Notebox, *clock) {
	clk := newClock()
	o := Options{
		Classifier: fixedClassifier{c: taskClassification},
		Forwarder:  fwd,
		ForwardKey: "chronos-key",
		Clock:      clk.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New(store, o), clk
}

func noteText() string {
	return gofakeit.Sentence(6)
}

func TestNew_Defaults(t *testing.T) {
	n := New(database.NewMemoryStore(), Options{})
	assert.Equal(t, "Sheet1", n.tables.Entries)
	assert.Equal(t, "Outbox", n.tables.Outbox)
	assert.Equal(t, "Config", n.tables.Config)
	assert.Equal(t, 5, n.maxAttempts)
	assert.Equal(t, 25, n.sweepCap)
	assert.Equal(t, 2*time.Minute, n.claimTTL)
	assert.IsType(t, &forwarder.Client{}, n.forwarder)
	assert.Nil(t, n.redis)
	assert.NoError(t, n.Close())
}

func TestInitGuard(t *testing.T) {
	g := NewInitGuard()
	calls := 0
	assert.True(t, g.Do(func() { calls++ }))
	assert.False(t, g.Do(func() { calls++ }))
	assert.Equal(t, 1, calls)
	assert.True(t, g.Done())

	// A fresh guard per Notebox: two instances each log once.
	a := New(database.NewMemoryStore(), Options{})
	b := New(database.NewMemoryStore(), Options{})
	a.logLayout()
	assert.True(t, a.guard.Done())
	assert.False(t, b.guard.Done())
}

var errBoom = errors.New("boom")
