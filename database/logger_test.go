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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crud/utils"
)

func TestDefaultLoggerFields(t *testing.T) {
	log := NewLogger("DB_LOGGER_TEST")
	lg, ok := utils.LookupLogger("DB_LOGGER_TEST")
	require.True(t, ok)

	var buf bytes.Buffer
	lg.SetOutput(&buf)
	lg.SetFormatter(&utils.Log4jColorFormatter{LoggerName: "DB_LOGGER_TEST", NameWidth: 14})

	log.SetLevel(LogLevelInfo)
	assert.True(t, log.IsLevelEnabled(LogLevelWarn))
	assert.False(t, log.IsLevelEnabled(LogLevelDebug))

	log.Debug("hidden")
	log.Info("saved", "id", 7, "dangling")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "saved")
	assert.Contains(t, out, "id=7")
	assert.Contains(t, out, "!BADKEY=dangling")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "DEBUG", LogLevel(42).String())
}
