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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifySQLError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       SQLError
		recognized bool
	}{
		{"nil", nil, UnknownErr, false},
		{"no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), NoRowsErr, true},
		{"conn done", sql.ErrConnDone, ConnectionErr, true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, DuplicateKeyErr, true},
		{"mysql missing table", &mysql.MySQLError{Number: 1146}, NoTableErr, true},
		{"mysql foreign key", &mysql.MySQLError{Number: 1452}, ForeignKeyViolationErr, true},
		{"mysql other", &mysql.MySQLError{Number: 1205}, UnknownErr, true},
		{"pq unique", &pq.Error{Code: "23505"}, DuplicateKeyErr, true},
		{"pq not null", fmt.Errorf("insert: %w", &pq.Error{Code: "23502"}), NotNullViolationErr, true},
		{"pq connection", &pq.Error{Code: "08006"}, ConnectionErr, true},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: persons.id (1555)"), DuplicateKeyErr, true},
		{"sqlite not null", errors.New("NOT NULL constraint failed: persons.name"), NotNullViolationErr, true},
		{"sqlite no table", errors.New("SQL logic error: no such table: persons (1)"), NoTableErr, true},
		{"sqlite no column", errors.New("SQL logic error: no such column: agee (1)"), NoColumnErr, true},
		{"anything else", errors.New("boom"), UnknownErr, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, recognized := ClassifySQLError(tt.err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.recognized, recognized)
		})
	}
}

func TestSQLErrorKinds(t *testing.T) {
	assert.Equal(t, "duplicate_key", DuplicateKeyErr.String())
	assert.Equal(t, "unknown", SQLError(99).String())

	assert.True(t, DuplicateKeyErr.IsConstraintViolation())
	assert.True(t, ForeignKeyViolationErr.IsConstraintViolation())
	assert.False(t, NoTableErr.IsConstraintViolation())
	assert.False(t, ConnectionErr.IsConstraintViolation())
}
