package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings are read from RFLOW_* environment variables, an optional YAML
// config file, then the defaults below. Keys use dots; the environment form
// replaces dots with underscores, e.g. database.type -> RFLOW_DATABASE_TYPE.
const DATABASE_TYPE = "database.type"
const DATABASE_URL = "database.url"
const DATABASE_SQLITE_FILE_NAME = "database.sqlite_file_name"
const SERVER_WEB_PORT = "server.web_port"
const WEB_SESSION_EXPIRY_HOURS = "web.session_expiry_hours"
const WEB_SCREEN_TTL = "web.screen_ttl"                   // idle lifetime of a mounted list screen
const WEB_SCREEN_LOAD_TIMEOUT = "web.screen_load_timeout" // upper bound for the screen's background fetches
const LOG_LEVEL = "log.level"
const OTEL_ENABLED = "otel.enabled"
const OTEL_STDOUT = "otel.stdout"
const FETCH_RETRY_MAX_ELAPSED = "fetch.retry_max_elapsed"
const LICENSE_WORKFLOWS_LIMIT = "license.number_of_workflows" // plan default, empty means unbounded
const LICENSE_STAGES_LIMIT = "license.stages_per_workflow"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLITE = "SQLITE"

var (
	mu sync.RWMutex
	v  = newViper()
)

func newViper() *viper.Viper {
	nv := viper.New()
	nv.SetEnvPrefix("RFLOW")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	nv.SetDefault(SERVER_WEB_PORT, "8080")
	nv.SetDefault(WEB_SESSION_EXPIRY_HOURS, "8")
	nv.SetDefault(WEB_SCREEN_TTL, "30m")
	nv.SetDefault(WEB_SCREEN_LOAD_TIMEOUT, "30s")
	nv.SetDefault(DATABASE_SQLITE_FILE_NAME, "./reviewflow.db")
	nv.SetDefault(LOG_LEVEL, "info")
	nv.SetDefault(OTEL_ENABLED, "false")
	nv.SetDefault(OTEL_STDOUT, "false")
	nv.SetDefault(FETCH_RETRY_MAX_ELAPSED, "5s")
	return nv
}

// LoadFile merges a YAML config file into the settings.
func LoadFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Set overrides a setting for the lifetime of the process (flags, tests).
func Set(settingKey string, value any) {
	mu.Lock()
	defer mu.Unlock()
	v.Set(settingKey, value)
}

// Reset drops overrides and file values, keeping environment and defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	v = newViper()
}

func GetSystemSettingString(settingKey string) string {
	mu.RLock()
	defer mu.RUnlock()
	return v.GetString(settingKey)
}

func GetSystemSettingInteger(settingKey string) int {
	mu.RLock()
	defer mu.RUnlock()
	return v.GetInt(settingKey)
}

func GetSystemSettingBool(settingKey string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return v.GetBool(settingKey)
}

func GetSystemSettingDuration(settingKey string) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return v.GetDuration(settingKey)
}
