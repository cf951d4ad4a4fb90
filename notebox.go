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
	"embed"
	"time"

	"github.com/jerry-enebeli/notebox/config"
	"github.com/jerry-enebeli/notebox/database"
	"github.com/jerry-enebeli/notebox/internal/cache"
	"github.com/jerry-enebeli/notebox/internal/classifier"
	"github.com/jerry-enebeli/notebox/internal/forwarder"
	"github.com/jerry-enebeli/notebox/internal/notification"
	redis_db "github.com/jerry-enebeli/notebox/internal/redis-db"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var SQLFiles embed.FS

// Forwarder delivers one note to the executor.
type Forwarder interface {
	Forward(ctx context.Context, req forwarder.Request) (forwarder.Result, error)
}

// Tables names the three tables notebox reads and writes.
type Tables struct {
	Entries string
	Outbox  string
	Config  string
}

// Options wires a Notebox. Zero values get working defaults; Redis and
// Cache stay disabled when nil.
type Options struct {
	Classifier classifier.Classifier
	Forwarder  Forwarder
	Notifier   notification.Notifier
	Cache      cache.Cache
	// Redis enables the sweep lease.
	Redis redis.UniversalClient
	Guard *InitGuard
	Clock func() time.Time

	Tables Tables
	// ForwardKey is sent to the executor in the auth header.
	ForwardKey string

	MaxAttempts int
	SweepCap    int
	ClaimTTL    time.Duration
	SweepLease  time.Duration
}

// Notebox captures notes and runs the outbox that forwards them.
type Notebox struct {
	store      database.RowStore
	classifier classifier.Classifier
	forwarder  Forwarder
	notifier   notification.Notifier
	cache      cache.Cache
	redis      redis.UniversalClient
	guard      *InitGuard
	now        func() time.Time

	tables      Tables
	forwardKey  string
	maxAttempts int
	sweepCap    int
	claimTTL    time.Duration
	sweepLease  time.Duration
}

// New builds a Notebox on top of store.
func New(store database.RowStore, opts Options) *Notebox {
	n := &Notebox{
		store:       store,
		classifier:  opts.Classifier,
		forwarder:   opts.Forwarder,
		notifier:    opts.Notifier,
		cache:       opts.Cache,
		redis:       opts.Redis,
		guard:       opts.Guard,
		now:         opts.Clock,
		tables:      opts.Tables,
		forwardKey:  opts.ForwardKey,
		maxAttempts: opts.MaxAttempts,
		sweepCap:    opts.SweepCap,
		claimTTL:    opts.ClaimTTL,
		sweepLease:  opts.SweepLease,
	}

	if n.classifier == nil {
		n.classifier = classifier.Static{}
	}
	if n.forwarder == nil {
		n.forwarder = forwarder.New(forwarder.Options{})
	}
	if n.notifier == nil {
		n.notifier = notification.Noop{}
	}
	if n.guard == nil {
		n.guard = NewInitGuard()
	}
	if n.now == nil {
		n.now = time.Now
	}
	if n.tables.Entries == "" {
		n.tables.Entries = config.DefaultEntriesSheet
	}
	if n.tables.Outbox == "" {
		n.tables.Outbox = config.DefaultOutboxSheet
	}
	if n.tables.Config == "" {
		n.tables.Config = config.DefaultConfigSheet
	}
	if n.maxAttempts <= 0 {
		n.maxAttempts = model.DefaultMaxAttempts
	}
	if n.sweepCap <= 0 {
		n.sweepCap = config.DefaultSweepCap
	}
	if n.claimTTL <= 0 {
		n.claimTTL = config.DefaultClaimTTLSec * time.Second
	}
	if n.sweepLease <= 0 {
		n.sweepLease = config.DefaultSweepLeaseSec * time.Second
	}
	return n
}

// NewNotebox wires a Notebox from the loaded configuration.
func NewNotebox(store database.RowStore) (*Notebox, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	opts := Options{
		Forwarder: forwarder.New(forwarder.Options{
			BaseURL:    cnf.Forwarder.URL,
			AuthHeader: cnf.Forwarder.AuthHeader,
			Timeout:    cnf.Forwarder.Timeout(),
		}),
		Notifier: notification.New(cnf.Notification.Slack.WebhookUrl, cnf.ProjectName),
		Tables: Tables{
			Entries: cnf.Store.EntriesSheet,
			Outbox:  cnf.Store.OutboxSheet,
			Config:  cnf.Store.ConfigSheet,
		},
		ForwardKey:  cnf.Forwarder.AuthKey,
		MaxAttempts: cnf.Outbox.MaxAttempts,
		SweepCap:    cnf.Outbox.SweepCap,
		ClaimTTL:    cnf.Outbox.ClaimTTL(),
		SweepLease:  cnf.Outbox.SweepLease(),
	}

	switch cnf.Classifier.Provider {
	case "gemini":
		opts.Classifier = classifier.NewGemini(cnf.Classifier.BaseURL, cnf.Classifier.ApiKey, cnf.Classifier.Model, cnf.Classifier.Timeout())
	default:
		opts.Classifier = classifier.Static{}
	}

	if cnf.Redis.Dns != "" {
		redisClient, err := redis_db.NewRedisClient(cnf.Redis.Dns)
		if err != nil {
			return nil, err
		}
		opts.Redis = redisClient.Client()
		opts.Cache = cache.NewCache(redisClient.Client(), time.Minute)
	} else {
		logrus.Info("redis not configured; sweep lease and category cache disabled")
	}

	return New(store, opts), nil
}

// Store exposes the underlying row store.
func (n *Notebox) Store() database.RowStore {
	return n.store
}

// Close releases the store and the redis connection.
func (n *Notebox) Close() error {
	if n.redis != nil {
		if err := n.redis.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close redis client")
		}
	}
	return n.store.Close()
}

func (n *Notebox) logLayout() {
	n.guard.Do(func() {
		logrus.WithFields(logrus.Fields{
			"entries_table":   n.tables.Entries,
			"entries_columns": model.EntryColumns,
			"outbox_table":    n.tables.Outbox,
			"outbox_columns":  model.OutboxColumns,
		}).Info("table layout")
	})
}
