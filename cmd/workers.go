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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/jerry-enebeli/notebox"
	"github.com/jerry-enebeli/notebox/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func initializeWorkerServer(opt asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		// One sweep at a time; the redis lease covers other processes.
		Concurrency: 1,
		Queues:      map[string]int{notebox.SweepQueue: 1},
		Logger:      logrus.StandardLogger(),
	})
}

func initializeTaskHandlers(n *noteboxInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(notebox.TaskSweepOutbox, n.notebox.ProcessSweepTask)
}

// startMonitoring serves asynqmon under /monitoring when a port is configured.
func startMonitoring(conf *config.Configuration, opt asynq.RedisClientOpt) {
	if conf.Outbox.MonitoringPort == "" {
		return
	}
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: opt,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Outbox.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			log.Fatalf("could not start asynqmon server: %v", err)
		}
	}()
}

// workerCommands defines the "workers" command: an asynq server that runs
// sweep tasks, plus the scheduler that enqueues them on sweep_interval.
func workerCommands(n *noteboxInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start notebox outbox workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := n.cnf
			defer func() {
				if err := n.notebox.Close(); err != nil {
					log.Printf("Error closing notebox: %v", err)
				}
			}()

			if conf.Redis.Dns == "" {
				log.Fatal("redis dns is required to run workers")
			}

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			opt, err := notebox.RedisConnOpt(conf.Redis.Dns)
			if err != nil {
				log.Fatal(err)
			}

			scheduler, entryID, err := notebox.NewSweepScheduler(opt, conf.Outbox.SweepInterval)
			if err != nil {
				log.Fatal(err)
			}
			if err := scheduler.Start(); err != nil {
				log.Fatalf("could not start scheduler: %v", err)
			}
			defer scheduler.Shutdown()
			logrus.WithFields(logrus.Fields{"entry_id": entryID, "spec": conf.Outbox.SweepInterval}).Info("outbox sweep scheduled")

			srv := initializeWorkerServer(opt)
			mux := asynq.NewServeMux()
			initializeTaskHandlers(n, mux)

			startMonitoring(conf, opt)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
