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

import "sort"

// SearchCriteria builds the restriction of a search from a builder and the
// root of the searched model.
type SearchCriteria[T any] interface {
	ToPredicate(cb Builder, root *Root[T]) Predicate
}

// PredicateFunc adapts a function to SearchCriteria.
type PredicateFunc[T any] func(cb Builder, root *Root[T]) Predicate

func (f PredicateFunc[T]) ToPredicate(cb Builder, root *Root[T]) Predicate {
	return f(cb, root)
}

// MatchAttributes matches rows whose fields equal every value of attrs.
// Names that are not fields of T are skipped and a nil value matches NULL.
// Keys are applied in sorted order so equal maps render equal statements.
func MatchAttributes[T any](attrs map[string]any) SearchCriteria[T] {
	return PredicateFunc[T](func(cb Builder, root *Root[T]) Predicate {
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)

		preds := make([]Predicate, 0, len(names))
		for _, name := range names {
			p, ok := root.Lookup(name)
			if !ok {
				continue
			}
			preds = append(preds, cb.Equal(p, attrs[name]))
		}
		return cb.And(preds...)
	})
}
