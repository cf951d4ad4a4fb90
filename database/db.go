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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jerry-enebeli/notebox/config"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"google.golang.org/api/option"
)

// NewRowStore opens the backend selected by store.backend.
func NewRowStore(ctx context.Context, cnf *config.Configuration) (RowStore, error) {
	switch cnf.Store.Backend {
	case config.BackendSheets:
		var opts []option.ClientOption
		if cnf.Store.Sheets.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(cnf.Store.Sheets.Endpoint))
		}
		return NewSheetsStore(ctx, cnf.Store.Sheets.SpreadsheetID, SheetsCredentials{
			Email:      cnf.Store.Sheets.ServiceAccountEmail,
			PrivateKey: cnf.Store.Sheets.PrivateKey,
		}, opts...)
	case config.BackendSQL:
		db, dialect, err := ConnectDB(cnf.Store.Dns)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, dialect), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cnf.Store.Backend)
	}
}

// DialectFor infers the sql dialect from a DSN. sqlite DSNs are file paths
// or file: URIs; everything else is handed to lib/pq.
func DialectFor(dns string) (driver, dialect, source string) {
	switch {
	case strings.HasPrefix(dns, "sqlite://"):
		return "sqlite3", DialectSQLite, strings.TrimPrefix(dns, "sqlite://")
	case strings.HasPrefix(dns, "file:"), strings.HasSuffix(dns, ".db"), dns == ":memory:":
		return "sqlite3", DialectSQLite, dns
	default:
		return "postgres", DialectPostgres, dns
	}
}

func ConnectDB(dns string) (*sql.DB, string, error) {
	driver, dialect, source := DialectFor(dns)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, "", err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, "", err
	}
	switch dialect {
	case DialectSQLite:
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	return db, dialect, nil
}

// Migrate applies the embedded migrations for dialect in direction.
func Migrate(db *sql.DB, dialect string, source migrate.MigrationSource, direction migrate.MigrationDirection) (int, error) {
	return migrate.Exec(db, dialect, source, direction)
}
