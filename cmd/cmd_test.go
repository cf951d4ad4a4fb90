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
	"testing"

	"github.com/jerry-enebeli/notebox/config"
	"github.com/jerry-enebeli/notebox/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactSecrets(t *testing.T) {
	cfg := config.Configuration{
		Server:     config.ServerConfig{SecretKey: "s3cret", Port: "5005"},
		Classifier: config.ClassifierConfig{ApiKey: "gem"},
		Outbox:     config.OutboxConfig{CronKey: ""},
	}

	out := redactSecrets(cfg)
	assert.Equal(t, redacted, out.Server.SecretKey)
	assert.Equal(t, redacted, out.Classifier.ApiKey)
	assert.Equal(t, "", out.Outbox.CronKey)
	assert.Equal(t, "5005", out.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.SecretKey)
}

func TestMigrationSource(t *testing.T) {
	for _, dialect := range []string{database.DialectPostgres, database.DialectSQLite} {
		src, err := migrationSource(dialect)
		require.NoError(t, err)

		migrations, err := src.FindMigrations()
		require.NoError(t, err)
		assert.NotEmpty(t, migrations, dialect)
	}

	_, err := migrationSource("mysql")
	assert.Error(t, err)
}

func TestNewCLI(t *testing.T) {
	cli := NewCLI()
	names := map[string]bool{}
	for _, c := range cli.cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "workers", "sweep", "migrate", "config"} {
		assert.True(t, names[want], want)
	}
}
