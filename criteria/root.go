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

package criteria

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun/schema"
)

// Path is a resolved column of a model. A Path built from an unknown name
// carries the lookup error, which spreads to every Predicate made from it.
type Path struct {
	field *schema.Field
	name  string
	err   error
}

// Name returns the column name, or the requested name for an invalid path.
func (p Path) Name() string {
	if p.field != nil {
		return p.field.Name
	}
	return p.name
}

// GoName returns the struct field name.
func (p Path) GoName() string {
	if p.field != nil {
		return p.field.GoName
	}
	return ""
}

// Column returns the quoted column name.
func (p Path) Column() schema.Safe {
	if p.field != nil {
		return p.field.SQLName
	}
	return schema.Safe(p.name)
}

func (p Path) Err() error { return p.err }

// Root is the entry point of a criteria query over model T.
type Root[T any] struct {
	table *schema.Table
}

// ErrNoTable is carried by every Path of a Root built without a dialect.
var ErrNoTable = errors.New("criteria: no table metadata without a dialect")

// NewRoot resolves the table metadata of T with dialect. A nil dialect gives
// a Root whose paths are all invalid.
func NewRoot[T any](dialect schema.Dialect) *Root[T] {
	if dialect == nil {
		return &Root[T]{}
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	return &Root[T]{table: dialect.Tables().Get(typ)}
}

func (r *Root[T]) Table() *schema.Table { return r.table }

// Lookup finds a field by column name, then by Go field name, ignoring case.
func (r *Root[T]) Lookup(name string) (Path, bool) {
	if r.table == nil {
		return Path{}, false
	}
	for _, f := range r.table.Fields {
		if f.Name == name || f.GoName == name {
			return Path{field: f, name: f.Name}, true
		}
	}
	for _, f := range r.table.Fields {
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.GoName, name) {
			return Path{field: f, name: f.Name}, true
		}
	}
	return Path{}, false
}

// Get is Lookup returning an invalid Path instead of false.
func (r *Root[T]) Get(name string) Path {
	if p, ok := r.Lookup(name); ok {
		return p
	}
	if r.table == nil {
		return Path{name: name, err: ErrNoTable}
	}
	return Path{name: name, err: fmt.Errorf("criteria: %s has no field %q", r.table.TypeName, name)}
}

func (r *Root[T]) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// PK returns the first primary key column.
func (r *Root[T]) PK() Path {
	if r.table == nil {
		return Path{err: ErrNoTable}
	}
	if len(r.table.PKs) == 0 {
		return Path{err: fmt.Errorf("criteria: %s has no primary key", r.table.TypeName)}
	}
	f := r.table.PKs[0]
	return Path{field: f, name: f.Name}
}
