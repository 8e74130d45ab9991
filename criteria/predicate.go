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
	"strings"

	"github.com/tomoncle/crud/types"
	"github.com/uptrace/bun"
)

// Predicate is a boolean SQL condition with bun placeholders. The zero
// Predicate places no restriction.
type Predicate struct {
	query string
	args  []any
	err   error
}

// Raw wraps a hand-written condition such as "? > now()".
func Raw(query string, args ...any) Predicate {
	return Predicate{query: query, args: args}
}

func (p Predicate) Query() string { return p.query }

func (p Predicate) Args() []any { return p.args }

func (p Predicate) Err() error { return p.err }

// IsEmpty reports whether p places no restriction.
func (p Predicate) IsEmpty() bool { return p.query == "" && p.err == nil }

func (p Predicate) String() string { return p.query }

// Builder constructs predicates and orderings. The zero value is ready to use.
type Builder struct{}

func compare(p Path, op string, v any) Predicate {
	if p.err != nil {
		return Predicate{err: p.err}
	}
	return Predicate{query: "? " + op + " ?", args: []any{p.Column(), v}}
}

// Equal matches p = v, or p IS NULL when v is nil.
func (Builder) Equal(p Path, v any) Predicate {
	if v == nil {
		return Builder{}.IsNull(p)
	}
	return compare(p, "=", v)
}

// NotEqual matches p <> v, or p IS NOT NULL when v is nil.
func (Builder) NotEqual(p Path, v any) Predicate {
	if v == nil {
		return Builder{}.IsNotNull(p)
	}
	return compare(p, "<>", v)
}

// Like matches p against a pattern using % and _ wildcards.
func (Builder) Like(p Path, pattern string) Predicate { return compare(p, "LIKE", pattern) }

func (Builder) NotLike(p Path, pattern string) Predicate { return compare(p, "NOT LIKE", pattern) }

func (Builder) GreaterThan(p Path, v any) Predicate { return compare(p, ">", v) }

func (Builder) GreaterThanOrEqual(p Path, v any) Predicate { return compare(p, ">=", v) }

func (Builder) LessThan(p Path, v any) Predicate { return compare(p, "<", v) }

func (Builder) LessThanOrEqual(p Path, v any) Predicate { return compare(p, "<=", v) }

func (Builder) IsNull(p Path) Predicate {
	if p.err != nil {
		return Predicate{err: p.err}
	}
	return Predicate{query: "? IS NULL", args: []any{p.Column()}}
}

func (Builder) IsNotNull(p Path) Predicate {
	if p.err != nil {
		return Predicate{err: p.err}
	}
	return Predicate{query: "? IS NOT NULL", args: []any{p.Column()}}
}

// In matches p against a list. An empty list matches nothing.
func (Builder) In(p Path, values ...any) Predicate {
	if p.err != nil {
		return Predicate{err: p.err}
	}
	if len(values) == 0 {
		return Builder{}.Disjunction()
	}
	return Predicate{query: "? IN (?)", args: []any{p.Column(), bun.In(values)}}
}

func (Builder) Between(p Path, lo, hi any) Predicate {
	if p.err != nil {
		return Predicate{err: p.err}
	}
	return Predicate{query: "? BETWEEN ? AND ?", args: []any{p.Column(), lo, hi}}
}

// And joins predicates with AND, skipping empty ones.
func (Builder) And(preds ...Predicate) Predicate { return join(" AND ", preds) }

// Or joins predicates with OR. Empty predicates match everything, so any
// empty operand makes the whole disjunction empty. No operands match nothing.
func (Builder) Or(preds ...Predicate) Predicate {
	if len(preds) == 0 {
		return Builder{}.Disjunction()
	}
	for _, p := range preds {
		if p.IsEmpty() {
			return collectErr(preds)
		}
	}
	return join(" OR ", preds)
}

func (Builder) Not(p Predicate) Predicate {
	if p.err != nil {
		return p
	}
	if p.IsEmpty() {
		return Builder{}.Disjunction()
	}
	return Predicate{query: "NOT (" + p.query + ")", args: p.args}
}

// Conjunction is the always-true predicate.
func (Builder) Conjunction() Predicate { return Predicate{} }

// Disjunction is the always-false predicate.
func (Builder) Disjunction() Predicate { return Predicate{query: "1 = 0"} }

func (Builder) Asc(p Path) types.Order { return types.Asc(p.Name()) }

func (Builder) Desc(p Path) types.Order { return types.Desc(p.Name()) }

func join(sep string, preds []Predicate) Predicate {
	var (
		parts []string
		args  []any
		errs  []error
	)
	for _, p := range preds {
		if p.err != nil {
			errs = append(errs, p.err)
			continue
		}
		if p.IsEmpty() {
			continue
		}
		parts = append(parts, "("+p.query+")")
		args = append(args, p.args...)
	}
	if len(errs) > 0 {
		return Predicate{err: errors.Join(errs...)}
	}
	switch len(parts) {
	case 0:
		return Predicate{}
	case 1:
		return Predicate{query: strings.TrimSuffix(strings.TrimPrefix(parts[0], "("), ")"), args: args}
	}
	return Predicate{query: strings.Join(parts, sep), args: args}
}

func collectErr(preds []Predicate) Predicate {
	var errs []error
	for _, p := range preds {
		if p.err != nil {
			errs = append(errs, p.err)
		}
	}
	return Predicate{err: errors.Join(errs...)}
}

type whereQuery[Q any] interface {
	Where(query string, args ...interface{}) Q
}

// applyWhere adds p to q unless it is empty. Bulk statements pass
// always=true so an unrestricted DELETE or UPDATE still has a WHERE clause.
func applyWhere[Q whereQuery[Q]](q Q, p Predicate, always bool) Q {
	if p.IsEmpty() {
		if always {
			return q.Where("1 = 1")
		}
		return q
	}
	return q.Where(p.query, p.args...)
}
