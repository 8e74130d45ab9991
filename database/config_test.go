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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigOverlaysDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
connection:
  type: Postgres
  host: db.local
  port: 5432
  dbname: app
  connect_timeout: 5s
migrate:
  enable_migrate_on_startup: false
  enable_foreign_key: true
`))
	require.NoError(t, err)

	conn := cfg.ConnectionConfig
	assert.Equal(t, "postgres", conn.Type)
	assert.Equal(t, "db.local", conn.Host)
	assert.Equal(t, 5432, conn.Port)
	assert.Equal(t, "app", conn.DBName)
	assert.Equal(t, 5*time.Second, conn.ConnectTimeout)
	assert.Equal(t, 100, conn.MaxOpenConns)
	assert.Equal(t, time.Hour, conn.ConnMaxLifetime)
	assert.False(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
	assert.True(t, cfg.DataMigrateConfig.EnableForeignKey)
}

func TestParseConfigRejectsUnknownType(t *testing.T) {
	_, err := ParseConfig([]byte("connection:\n  type: oracle\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")

	_, err = ParseConfig([]byte("connection: ["))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection:\n  type: sqlite\n  dbname: \":memory:\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	assert.Equal(t, ":memory:", cfg.ConnectionConfig.DBName)
	assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DB_TYPE", "mysql")
	t.Setenv("DB_HOST", "10.0.0.1")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONNECT_TIMEOUT", "3")
	t.Setenv("DB_SLOW_QUERY_TIME", "250ms")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")

	conn := DefaultConnectionConfig()
	conn.ApplyEnvOverrides()

	assert.Equal(t, "mysql", conn.Type)
	assert.Equal(t, "10.0.0.1", conn.Host)
	assert.Equal(t, 3307, conn.Port)
	assert.Equal(t, 7, conn.MaxOpenConns)
	assert.Equal(t, 10, conn.MaxIdleConns)
	assert.Equal(t, 3*time.Second, conn.ConnectTimeout)
	assert.Equal(t, 250*time.Millisecond, conn.SlowQueryTime)
	assert.True(t, conn.EnableQueryLog)
}

func TestApplyEnvOverridesKeepsValuesOnBadInput(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("DB_CONN_MAX_LIFETIME", "forever")

	conn := DefaultConnectionConfig()
	conn.Port = 5432
	conn.ApplyEnvOverrides()

	assert.Equal(t, 5432, conn.Port)
	assert.Equal(t, time.Hour, conn.ConnMaxLifetime)
}
