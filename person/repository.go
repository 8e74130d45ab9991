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

package person

import (
	"context"

	"github.com/tomoncle/crud/repository"
	"github.com/tomoncle/crud/session"
)

// Repository is the generic repository of Person plus name lookups.
type Repository struct {
	repository.Repository[Person, int64]
}

// NewRepository binds a Person repository to sess.
func NewRepository(sess *session.Context, opts ...repository.Option) *Repository {
	return &Repository{Repository: repository.New[Person, int64](sess, opts...)}
}

// FindByName returns the persons whose name matches pattern with LIKE
// semantics, so "%" and "_" act as wildcards.
func (r *Repository) FindByName(ctx context.Context, pattern string) ([]*Person, error) {
	cb := r.CriteriaBuilder()
	q := r.CreateQuery()
	q.Where(cb.Like(q.Root().Get("name"), pattern))
	return r.FindAllByCriteriaQuery(ctx, q, -1, 0)
}
