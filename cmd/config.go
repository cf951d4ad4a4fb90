package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/jerry-enebeli/notebox/config"
	"github.com/spf13/cobra"
)

const redacted = "********"

// redactSecrets returns a copy of cfg safe to print.
func redactSecrets(cfg config.Configuration) config.Configuration {
	for _, s := range []*string{
		&cfg.Server.SecretKey,
		&cfg.Store.Sheets.PrivateKey,
		&cfg.Classifier.ApiKey,
		&cfg.Forwarder.AuthKey,
		&cfg.Outbox.CronKey,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	return cfg
}

func configCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config outputs your instances computed configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Fetch()
			if err != nil {
				log.Fatalf("Error getting config: %v\n", err)
			}

			data, err := json.MarshalIndent(redactSecrets(*cfg), "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}

			fmt.Println(string(data))
		},
	}
	return cmd
}
