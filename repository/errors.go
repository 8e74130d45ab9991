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
	"errors"
	"fmt"

	"github.com/tomoncle/crud/database"
)

var (
	ErrInvalidArgument = errors.New("repository: invalid argument")
	ErrBeanTechnical   = errors.New("repository: bean technical error")
	ErrDataAccess      = errors.New("repository: data access error")
	ErrNotFound        = errors.New("repository: entity not found")
	ErrNonUniqueResult = errors.New("repository: query returned more than one result")
	ErrNoSession       = errors.New("repository: no persistence context bound")
)

// BeanTechnicalError reports a text field that could not be sanitized.
// Index is the position of the field in TextFields.
type BeanTechnicalError struct {
	Entity string
	Index  int
	Err    error
}

func (e *BeanTechnicalError) Error() string {
	return fmt.Sprintf("repository: sanitize %s field #%d: %v", e.Entity, e.Index, e.Err)
}

func (e *BeanTechnicalError) Unwrap() error { return e.Err }

func (e *BeanTechnicalError) Is(target error) bool { return target == ErrBeanTechnical }

// DataAccessError reports a statement the store rejected or could not run.
type DataAccessError struct {
	Op     string
	Entity string
	Kind   database.SQLError
	Err    error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("repository: %s %s failed (%s): %v", e.Op, e.Entity, e.Kind, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

func newDataAccessError(op, entity string, err error) *DataAccessError {
	kind, _ := database.ClassifySQLError(err)
	return &DataAccessError{Op: op, Entity: entity, Kind: kind, Err: err}
}
