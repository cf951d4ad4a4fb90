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
	"fmt"
	"log"

	"github.com/jerry-enebeli/notebox"
	"github.com/jerry-enebeli/notebox/config"
	"github.com/jerry-enebeli/notebox/database"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

// migrationDirs maps a sql dialect to its migration directory.
var migrationDirs = map[string]string{
	database.DialectPostgres: "sql/postgres",
	database.DialectSQLite:   "sql/sqlite",
}

func migrationSource(dialect string) (migrate.EmbedFileSystemMigrationSource, error) {
	root, ok := migrationDirs[dialect]
	if !ok {
		return migrate.EmbedFileSystemMigrationSource{}, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: notebox.SQLFiles,
		Root:       root,
	}, nil
}

// migrateCommands creates the root command for migration-related operations.
// Migrations only apply to the sql backend.
func migrateCommands(_ *noteboxInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run notebox sql migrations",
	}

	cmd.AddCommand(migrateDirectionCommand("up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand("down", migrate.Down))

	return cmd
}

func migrateDirectionCommand(use string, direction migrate.MigrationDirection) *cobra.Command {
	cmd := &cobra.Command{
		Use: use,
		Run: func(cmd *cobra.Command, args []string) {
			cnf, err := config.Fetch()
			if err != nil {
				log.Printf("Error fetching config: %v", err)
				return
			}
			if cnf.Store.Backend != config.BackendSQL {
				log.Printf("Store backend is %q; migrations only apply to the sql backend", cnf.Store.Backend)
				return
			}

			db, dialect, err := database.ConnectDB(cnf.Store.Dns)
			if err != nil {
				log.Printf("Error connecting to database: %v", err)
				return
			}
			defer func() {
				_ = db.Close()
			}()

			migrations, err := migrationSource(dialect)
			if err != nil {
				log.Printf("Error loading migrations: %v", err)
				return
			}

			n, err := database.Migrate(db, dialect, migrations, direction)
			if err != nil {
				log.Printf("Error migrating %s: %v", use, err)
				return
			}
			fmt.Printf("Applied %d migrations %s!\n", n, use)
		},
	}

	return cmd
}
