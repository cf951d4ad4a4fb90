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
	"encoding/json"
	"fmt"
	"log"

	"github.com/jerry-enebeli/notebox"
	"github.com/spf13/cobra"
)

// sweepCommands runs one outbox sweep from the shell, in process or through
// the workers with --async.
func sweepCommands(n *noteboxInstance) *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "retry pending outbox deliveries once",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			defer func() {
				if err := n.notebox.Close(); err != nil {
					log.Printf("Error closing notebox: %v", err)
				}
			}()

			if async {
				opt, err := notebox.RedisConnOpt(n.cnf.Redis.Dns)
				if err != nil {
					log.Fatal(err)
				}
				q := notebox.NewQueue(opt)
				defer func() {
					_ = q.Close()
				}()

				info, err := q.EnqueueSweep(ctx)
				if err != nil {
					log.Fatal(err)
				}
				fmt.Printf("Enqueued sweep task %s on %s\n", info.ID, info.Queue)
				return
			}

			res, err := n.notebox.Sweep(ctx)
			if err != nil {
				log.Fatal(err)
			}
			data, err := json.MarshalIndent(res, "", "    ")
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(data))
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "enqueue the sweep for the workers instead of running it here")
	return cmd
}
