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
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	redis_db "github.com/jerry-enebeli/notebox/internal/redis-db"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const (
	// TaskSweepOutbox is the asynq task type that runs one outbox sweep.
	TaskSweepOutbox = "outbox:sweep"
	// SweepQueue is the asynq queue sweep tasks are placed on.
	SweepQueue = "notebox_outbox"

	sweepTaskTimeout = 5 * time.Minute
)

// Queue lets callers request a sweep without running it in process.
type Queue struct {
	Client *asynq.Client
}

// RedisConnOpt turns a redis DNS into asynq connection options.
func RedisConnOpt(dns string) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(dns)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Username:  redisOption.Username,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func NewQueue(opt asynq.RedisConnOpt) *Queue {
	return &Queue{Client: asynq.NewClient(opt)}
}

// NewSweepTask builds a sweep task. Sweeps are never retried by asynq; the
// next scheduled run picks up whatever is left.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSweepOutbox, nil,
		asynq.Queue(SweepQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(sweepTaskTimeout),
	)
}

// EnqueueSweep asks a worker to run a sweep as soon as possible.
func (q *Queue) EnqueueSweep(ctx context.Context) (*asynq.TaskInfo, error) {
	info, err := q.Client.EnqueueContext(ctx, NewSweepTask())
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue sweep: %w", err)
	}
	logrus.WithField("task_id", info.ID).Info("outbox sweep enqueued")
	return info, nil
}

func (q *Queue) Close() error {
	return q.Client.Close()
}

// NewSweepScheduler registers a periodic sweep on spec, a cron expression or
// an "@every <duration>" descriptor.
func NewSweepScheduler(opt asynq.RedisConnOpt, spec string) (*asynq.Scheduler, string, error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	entryID, err := scheduler.Register(spec, NewSweepTask())
	if err != nil {
		return nil, "", fmt.Errorf("failed to register sweep schedule %q: %w", spec, err)
	}
	return scheduler, entryID, nil
}

// ProcessSweepTask is the asynq handler for TaskSweepOutbox.
func (n *Notebox) ProcessSweepTask(ctx context.Context, _ *asynq.Task) error {
	ctx, span := otel.Tracer("notebox.outbox.worker").Start(ctx, "Process Outbox Sweep")
	defer span.End()

	result, err := n.Sweep(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	logrus.Printf(" [*] Outbox sweep processed=%d sent=%d failed=%d skipped=%t", result.Processed, result.Sent, result.Failed, result.Skipped)
	return nil
}
