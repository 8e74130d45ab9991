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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SQLError is the backend-independent kind of a failed statement.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoColumnErr
	NoTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	ConnectionErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoColumnErr:                 "no_column",
	NoTableErr:                  "no_table",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_constraint_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
	ConnectionErr:               "connection",
}

func (e SQLError) String() string {
	if s, ok := sqlErrorNames[e]; ok {
		return s
	}
	return sqlErrorNames[UnknownErr]
}

// IsConstraintViolation reports whether the kind is a rejected write.
func (e SQLError) IsConstraintViolation() bool {
	switch e {
	case DuplicateKeyErr, NotNullViolationErr, ForeignKeyViolationErr, CheckConstraintViolationErr:
		return true
	}
	return false
}

// ClassifySQLError maps a driver error to its SQLError kind. MySQL errors are
// matched by number, PostgreSQL errors by SQLSTATE, anything else (SQLite
// included) by message. recognized is false when nothing matched.
func ClassifySQLError(err error) (kind SQLError, recognized bool) {
	if err == nil {
		return UnknownErr, false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NoRowsErr, true
	}
	if errors.Is(err, sql.ErrConnDone) {
		return ConnectionErr, true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1054:
			return NoColumnErr, true
		case 1146:
			return NoTableErr, true
		case 1062:
			return DuplicateKeyErr, true
		case 1048:
			return NotNullViolationErr, true
		case 1216, 1217, 1451, 1452:
			return ForeignKeyViolationErr, true
		case 3819:
			return CheckConstraintViolationErr, true
		case 1265, 1406:
			return DataTruncatedErr, true
		default:
			return UnknownErr, true
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42703":
			return NoColumnErr, true
		case "42P01":
			return NoTableErr, true
		case "23505":
			return DuplicateKeyErr, true
		case "23502":
			return NotNullViolationErr, true
		case "23503":
			return ForeignKeyViolationErr, true
		case "23514":
			return CheckConstraintViolationErr, true
		case "22001":
			return DataTruncatedErr, true
		case "42804":
			return InvalidTypeCastErr, true
		}
		if strings.HasPrefix(string(pqErr.Code), "08") {
			return ConnectionErr, true
		}
		return UnknownErr, true
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "no such column"),
		strings.Contains(s, "undefined column"):
		return NoColumnErr, true
	case strings.Contains(s, "no such table"),
		strings.Contains(s, "undefined table"):
		return NoTableErr, true
	case strings.Contains(s, "unique constraint failed"),
		strings.Contains(s, "duplicate key value"):
		return DuplicateKeyErr, true
	case strings.Contains(s, "not null constraint failed"),
		strings.Contains(s, "not-null constraint"):
		return NotNullViolationErr, true
	case strings.Contains(s, "foreign key constraint failed"),
		strings.Contains(s, "foreign key violation"):
		return ForeignKeyViolationErr, true
	case strings.Contains(s, "check constraint"):
		return CheckConstraintViolationErr, true
	case strings.Contains(s, "data truncated"),
		strings.Contains(s, "string data right truncation"):
		return DataTruncatedErr, true
	case strings.Contains(s, "datatype mismatch"):
		return InvalidTypeCastErr, true
	case strings.Contains(s, "database is closed"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "bad connection"):
		return ConnectionErr, true
	}
	return UnknownErr, false
}
