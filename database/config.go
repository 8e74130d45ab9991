/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tomoncle/crud/utils"
	"gopkg.in/yaml.v3"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// Durations are written as Go duration strings ("30s", "5m").
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.ConnectionConfig.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the connection type.
func (c *ConnectionConfig) Validate() error {
	t := strings.ToLower(strings.TrimSpace(c.Type))
	for _, s := range supportedTypes {
		if t == s {
			c.Type = t
			return nil
		}
	}
	return fmt.Errorf("unsupported database type: %q, supported types: %v", c.Type, supportedTypes)
}

// ApplyEnvOverrides overrides connection values from DB_* environment variables.
// Durations accept Go duration strings or a number of seconds.
func (c *ConnectionConfig) ApplyEnvOverrides() {
	if v := os.Getenv("DB_TYPE"); v != "" {
		c.Type = v
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if username := os.Getenv("DB_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		c.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		c.SSLMode = sslmode
	}

	// Connection pool config
	if maxIdle := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil {
			c.MaxIdleConns = val
		}
	}
	if maxOpen := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			c.MaxOpenConns = val
		}
	}
	c.ConnMaxLifetime = utils.EnvDefaultDuration("DB_CONN_MAX_LIFETIME", c.ConnMaxLifetime)
	c.ConnectTimeout = utils.EnvDefaultDuration("DB_CONNECT_TIMEOUT", c.ConnectTimeout)
	c.SlowQueryTime = utils.EnvDefaultDuration("DB_SLOW_QUERY_TIME", c.SlowQueryTime)

	if enableReconnect := os.Getenv("DB_ENABLE_RECONNECT"); enableReconnect != "" {
		c.EnableReconnect = enableReconnect == "true"
	}
	if enableQueryLog := os.Getenv("DB_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		c.EnableQueryLog = enableQueryLog == "true"
	}
}
