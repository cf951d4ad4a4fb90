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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5005"

	BackendSheets = "sheets"
	BackendSQL    = "sql"
	BackendMemory = "memory"

	DefaultEntriesSheet    = "Sheet1"
	DefaultOutboxSheet     = "Outbox"
	DefaultConfigSheet     = "Config"
	DefaultMaxAttempts     = 5
	DefaultSweepCap        = 25
	DefaultClaimTTLSec     = 120
	DefaultSweepLeaseSec   = 60
	DefaultSweepInterval   = "@every 5m"
	DefaultForwarderURL    = "https://my-calendar-agent-v2.vercel.app/api/siri"
	DefaultForwarderHeader = "x-chronos-key"
	DefaultForwarderTimout = 10
	DefaultClassifierURL   = "https://generativelanguage.googleapis.com"
	DefaultClassifierModel = "gemini-3-flash-preview"
	DefaultClassifierTO    = 8
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"NOTEBOX_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"NOTEBOX_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"NOTEBOX_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"NOTEBOX_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"NOTEBOX_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"NOTEBOX_SERVER_PORT"`
}

type SheetsConfig struct {
	SpreadsheetID       string `json:"spreadsheet_id" envconfig:"GOOGLE_SHEETS_ID"`
	ServiceAccountEmail string `json:"service_account_email" envconfig:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey          string `json:"private_key" envconfig:"GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY"`
	// Endpoint overrides the Sheets API base URL.
	Endpoint string `json:"endpoint" envconfig:"NOTEBOX_SHEETS_ENDPOINT"`
}

type StoreConfig struct {
	Backend      string       `json:"backend" envconfig:"NOTEBOX_STORE_BACKEND"`
	Dns          string       `json:"dns" envconfig:"NOTEBOX_STORE_DNS"`
	EntriesSheet string       `json:"entries_sheet" envconfig:"NOTEBOX_STORE_ENTRIES_SHEET"`
	OutboxSheet  string       `json:"outbox_sheet" envconfig:"NOTEBOX_STORE_OUTBOX_SHEET"`
	ConfigSheet  string       `json:"config_sheet" envconfig:"NOTEBOX_STORE_CONFIG_SHEET"`
	Sheets       SheetsConfig `json:"sheets"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"NOTEBOX_REDIS_DNS"`
}

type ClassifierConfig struct {
	Provider   string `json:"provider" envconfig:"NOTEBOX_CLASSIFIER_PROVIDER"`
	ApiKey     string `json:"api_key" envconfig:"API_KEY"`
	BaseURL    string `json:"base_url" envconfig:"NOTEBOX_CLASSIFIER_BASE_URL"`
	Model      string `json:"model" envconfig:"NOTEBOX_CLASSIFIER_MODEL"`
	TimeoutSec int    `json:"timeout_sec" envconfig:"NOTEBOX_CLASSIFIER_TIMEOUT_SEC"`
}

type ForwarderConfig struct {
	URL        string `json:"url" envconfig:"NOTEBOX_FORWARDER_URL"`
	AuthKey    string `json:"auth_key" envconfig:"CHRONOS_SIRI_KEY"`
	AuthHeader string `json:"auth_header" envconfig:"NOTEBOX_FORWARDER_AUTH_HEADER"`
	TimeoutSec int    `json:"timeout_sec" envconfig:"NOTEBOX_FORWARDER_TIMEOUT_SEC"`
}

type OutboxConfig struct {
	CronKey       string `json:"cron_key" envconfig:"OUTBOX_CRON_KEY"`
	MaxAttempts   int    `json:"max_attempts" envconfig:"NOTEBOX_OUTBOX_MAX_ATTEMPTS"`
	SweepCap      int    `json:"sweep_cap" envconfig:"NOTEBOX_OUTBOX_SWEEP_CAP"`
	ClaimTTLSec   int    `json:"claim_ttl_sec" envconfig:"NOTEBOX_OUTBOX_CLAIM_TTL_SEC"`
	SweepLeaseSec int    `json:"sweep_lease_sec" envconfig:"NOTEBOX_OUTBOX_SWEEP_LEASE_SEC"`
	SweepInterval string `json:"sweep_interval" envconfig:"NOTEBOX_OUTBOX_SWEEP_INTERVAL"`

	// MonitoringPort serves asynqmon from the workers command when set.
	MonitoringPort string `json:"monitoring_port" envconfig:"NOTEBOX_OUTBOX_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"NOTEBOX_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"NOTEBOX_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"NOTEBOX_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"NOTEBOX_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"NOTEBOX_PROJECT_NAME"`
	Server          ServerConfig     `json:"server"`
	Store           StoreConfig      `json:"store"`
	Redis           RedisConfig      `json:"redis"`
	Classifier      ClassifierConfig `json:"classifier"`
	Forwarder       ForwarderConfig  `json:"forwarder"`
	Outbox          OutboxConfig     `json:"outbox"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"NOTEBOX_ENABLE_TELEMETRY"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("notebox", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded. Create a json file called notebox.json or set the environment variables ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Notebox"
	}

	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Store.Backend = strings.ToLower(strings.TrimSpace(cnf.Store.Backend))
	cnf.Store.Dns = strings.TrimSpace(cnf.Store.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Store.Sheets.SpreadsheetID = strings.TrimSpace(cnf.Store.Sheets.SpreadsheetID)
	// Private keys pasted into env vars usually carry literal \n sequences.
	cnf.Store.Sheets.PrivateKey = strings.ReplaceAll(cnf.Store.Sheets.PrivateKey, `\n`, "\n")

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Store.Backend == "" {
		cnf.Store.Backend = BackendSheets
	}
	switch cnf.Store.Backend {
	case BackendSheets:
		if cnf.Store.Sheets.SpreadsheetID == "" {
			log.Println("Error: spreadsheet id is empty. It's required for the sheets backend.")
			return errors.New("spreadsheet id is required for the sheets backend")
		}
	case BackendSQL:
		if cnf.Store.Dns == "" {
			log.Println("Error: store DNS is empty. It's required for the sql backend.")
			return errors.New("store DNS is required for the sql backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", cnf.Store.Backend)
	}

	if cnf.Store.EntriesSheet == "" {
		cnf.Store.EntriesSheet = DefaultEntriesSheet
	}
	if cnf.Store.OutboxSheet == "" {
		cnf.Store.OutboxSheet = DefaultOutboxSheet
	}
	if cnf.Store.ConfigSheet == "" {
		cnf.Store.ConfigSheet = DefaultConfigSheet
	}

	if cnf.Classifier.Provider == "" {
		cnf.Classifier.Provider = "gemini"
	}
	if cnf.Classifier.BaseURL == "" {
		cnf.Classifier.BaseURL = DefaultClassifierURL
	}
	if cnf.Classifier.Model == "" {
		cnf.Classifier.Model = DefaultClassifierModel
	}
	if cnf.Classifier.TimeoutSec <= 0 {
		cnf.Classifier.TimeoutSec = DefaultClassifierTO
	}
	if cnf.Classifier.Provider == "gemini" && cnf.Classifier.ApiKey == "" {
		log.Println("Warning: classifier api key is empty. Every note will get the fallback classification.")
	}

	if cnf.Forwarder.URL == "" {
		cnf.Forwarder.URL = DefaultForwarderURL
	}
	if cnf.Forwarder.AuthHeader == "" {
		cnf.Forwarder.AuthHeader = DefaultForwarderHeader
	}
	if cnf.Forwarder.TimeoutSec <= 0 {
		cnf.Forwarder.TimeoutSec = DefaultForwarderTimout
	}

	if cnf.Outbox.MaxAttempts <= 0 {
		cnf.Outbox.MaxAttempts = DefaultMaxAttempts
	}
	if cnf.Outbox.SweepCap <= 0 {
		cnf.Outbox.SweepCap = DefaultSweepCap
	}
	if cnf.Outbox.ClaimTTLSec <= 0 {
		cnf.Outbox.ClaimTTLSec = DefaultClaimTTLSec
	}
	if cnf.Outbox.SweepLeaseSec <= 0 {
		cnf.Outbox.SweepLeaseSec = DefaultSweepLeaseSec
	}
	if cnf.Outbox.SweepInterval == "" {
		cnf.Outbox.SweepInterval = DefaultSweepInterval
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// ClaimTTL is how long an in_progress claim blocks other attempts.
func (o OutboxConfig) ClaimTTL() time.Duration {
	return time.Duration(o.ClaimTTLSec) * time.Second
}

// SweepLease is the TTL of the redis sweep lease.
func (o OutboxConfig) SweepLease() time.Duration {
	return time.Duration(o.SweepLeaseSec) * time.Second
}

func (f ForwarderConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
