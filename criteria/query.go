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

	"github.com/tomoncle/crud/types"
	"github.com/uptrace/bun"
)

// Query is a select over model T: a restriction and an ordering. Execution
// is left to the caller, see ApplySelect.
type Query[T any] struct {
	root   *Root[T]
	where  Predicate
	orders []types.Order
	err    error
}

// NewQuery starts an unrestricted, unordered query on root.
func NewQuery[T any](root *Root[T]) *Query[T] {
	return &Query[T]{root: root}
}

func (q *Query[T]) Root() *Root[T] { return q.root }

// Where replaces the restriction with the conjunction of preds.
func (q *Query[T]) Where(preds ...Predicate) *Query[T] {
	q.where = Builder{}.And(preds...)
	return q
}

// OrderBy replaces the ordering. The first order is the primary sort.
func (q *Query[T]) OrderBy(orders ...types.Order) *Query[T] {
	q.orders = append([]types.Order(nil), orders...)
	q.err = nil
	for _, o := range orders {
		if !q.root.Has(o.Field) {
			q.err = errors.Join(q.err, fmt.Errorf("criteria: cannot order by unknown field %q", o.Field))
		} else if !o.Direction.IsValid() {
			q.err = errors.Join(q.err, fmt.Errorf("criteria: invalid direction for field %q", o.Field))
		}
	}
	return q
}

func (q *Query[T]) Restriction() Predicate { return q.where }

func (q *Query[T]) Orders() []types.Order { return q.orders }

// Err reports invalid paths or orderings used to build the query.
func (q *Query[T]) Err() error {
	return errors.Join(q.where.err, q.err)
}

// ApplySelect adds the restriction and the ordering to sq.
func (q *Query[T]) ApplySelect(sq *bun.SelectQuery) *bun.SelectQuery {
	sq = applyWhere(sq, q.where, false)
	return ApplyOrders(q.root, sq, q.orders...)
}

// ApplyWhere adds only the restriction to sq, as needed for counting.
func (q *Query[T]) ApplyWhere(sq *bun.SelectQuery) *bun.SelectQuery {
	return applyWhere(sq, q.where, false)
}

// ApplyOrders adds orders to sq in sequence. Unknown fields are skipped;
// callers validate them first.
func ApplyOrders[T any](root *Root[T], sq *bun.SelectQuery, orders ...types.Order) *bun.SelectQuery {
	for _, o := range orders {
		p, ok := root.Lookup(o.Field)
		if !ok {
			continue
		}
		sq = sq.OrderExpr("? "+o.Direction.String(), p.Column())
	}
	return sq
}
