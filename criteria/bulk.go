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

	"github.com/uptrace/bun"
)

var ErrNoAssignments = errors.New("criteria: update has no assignments")

// Delete is a bulk DELETE over the table of T.
type Delete[T any] struct {
	root  *Root[T]
	where Predicate
}

func NewDelete[T any](root *Root[T]) *Delete[T] {
	return &Delete[T]{root: root}
}

func (d *Delete[T]) Root() *Root[T] { return d.root }

// Where replaces the restriction with the conjunction of preds.
func (d *Delete[T]) Where(preds ...Predicate) *Delete[T] {
	d.where = Builder{}.And(preds...)
	return d
}

func (d *Delete[T]) Restriction() Predicate { return d.where }

func (d *Delete[T]) Err() error { return d.where.err }

// Build renders the statement on db. An empty restriction deletes every row.
func (d *Delete[T]) Build(db bun.IDB) *bun.DeleteQuery {
	return applyWhere(db.NewDelete().Model((*T)(nil)), d.where, true)
}

type assignment struct {
	path  Path
	value any
}

// Update is a bulk UPDATE over the table of T.
type Update[T any] struct {
	root  *Root[T]
	sets  []assignment
	where Predicate
}

func NewUpdate[T any](root *Root[T]) *Update[T] {
	return &Update[T]{root: root}
}

func (u *Update[T]) Root() *Root[T] { return u.root }

// Set assigns value to p in every matched row. A nil value writes NULL.
func (u *Update[T]) Set(p Path, value any) *Update[T] {
	u.sets = append(u.sets, assignment{path: p, value: value})
	return u
}

// Where replaces the restriction with the conjunction of preds.
func (u *Update[T]) Where(preds ...Predicate) *Update[T] {
	u.where = Builder{}.And(preds...)
	return u
}

func (u *Update[T]) Restriction() Predicate { return u.where }

func (u *Update[T]) Err() error {
	errs := []error{u.where.err}
	if len(u.sets) == 0 {
		errs = append(errs, ErrNoAssignments)
	}
	for _, s := range u.sets {
		errs = append(errs, s.path.err)
	}
	return errors.Join(errs...)
}

// Build renders the statement on db. An empty restriction updates every row.
func (u *Update[T]) Build(db bun.IDB) *bun.UpdateQuery {
	q := db.NewUpdate().Model((*T)(nil))
	for _, s := range u.sets {
		q = q.Set("? = ?", s.path.Column(), s.value)
	}
	return applyWhere(q, u.where, true)
}
