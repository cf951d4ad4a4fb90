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
	"os"

	"github.com/jerry-enebeli/notebox"
	"github.com/jerry-enebeli/notebox/config"
	"github.com/jerry-enebeli/notebox/database"
	"github.com/jerry-enebeli/notebox/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Notebox is the CLI application, wrapping the root Cobra command.
type Notebox struct {
	cmd *cobra.Command
}

// noteboxInstance holds the runtime Notebox and its configuration for the
// subcommands.
type noteboxInstance struct {
	notebox *notebox.Notebox
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the Notebox before any command runs.
func preRun(app *noteboxInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config ", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		n, err := setupNotebox(cmd.Context(), cnf)
		if err != nil {
			notification.New(cnf.Notification.Slack.WebhookUrl, cnf.ProjectName).NotifyError(err)
			log.Fatal(err)
		}

		app.notebox = n
		app.cnf = cnf
		return nil
	}
}

// setupNotebox opens the configured row store and builds a Notebox on it.
func setupNotebox(ctx context.Context, cfg *config.Configuration) (*notebox.Notebox, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := database.NewRowStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error opening row store: %v", err)
	}

	n, err := notebox.NewNotebox(store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("error creating notebox: %v", err)
	}
	return n, nil
}

// NewCLI builds the root command and registers the subcommands.
func NewCLI() *Notebox {
	var configFile string
	n := &noteboxInstance{}

	var rootCmd = &cobra.Command{
		Use:   "notebox",
		Short: "Note capture inbox with a forwarding outbox",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./notebox.json", "Configuration file for notebox")
	rootCmd.PersistentPreRunE = preRun(n, &configFile)

	rootCmd.AddCommand(serverCommands(n))
	rootCmd.AddCommand(workerCommands(n))
	rootCmd.AddCommand(sweepCommands(n))
	rootCmd.AddCommand(migrateCommands(n))
	rootCmd.AddCommand(configCommands())

	return &Notebox{cmd: rootCmd}
}

func (w Notebox) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
