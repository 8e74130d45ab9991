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

package repository

import (
	"database/sql"
	"fmt"
	"strings"
)

// Sanitizable is implemented by entities whose text fields take part in
// blank-string normalization. TextFields returns pointers to those fields:
// *string, **string or *sql.NullString.
type Sanitizable interface {
	TextFields() []any
}

// NullifyEmptyStrings sets every blank-only text field of entity to its
// absent value: "" for string, nil for *string, an invalid NullString.
// Blank means only Unicode white space (unicode.IsSpace), so U+00A0 counts
// as blank while control characters such as NUL or ESC do not.
// Entities that are not Sanitizable are left untouched.
func NullifyEmptyStrings(entity any) error {
	s, ok := entity.(Sanitizable)
	if !ok {
		return nil
	}
	for i, field := range s.TextFields() {
		if err := nullify(field); err != nil {
			return &BeanTechnicalError{Entity: fmt.Sprintf("%T", entity), Index: i, Err: err}
		}
	}
	return nil
}

func nullify(field any) error {
	switch p := field.(type) {
	case *string:
		if p == nil {
			return fmt.Errorf("nil *string")
		}
		if isBlank(*p) {
			*p = ""
		}
	case **string:
		if p == nil {
			return fmt.Errorf("nil **string")
		}
		if *p != nil && isBlank(**p) {
			*p = nil
		}
	case *sql.NullString:
		if p == nil {
			return fmt.Errorf("nil *sql.NullString")
		}
		if p.Valid && isBlank(p.String) {
			*p = sql.NullString{}
		}
	default:
		return fmt.Errorf("unsupported text field type %T", field)
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
