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
	"context"

	"github.com/tomoncle/crud/criteria"
	"github.com/tomoncle/crud/session"
	"github.com/tomoncle/crud/types"
)

// CrudRepository defines point operations on an entity type T keyed by K.
// The zero value of K is never a valid key.
type CrudRepository[T any, K comparable] interface {
	Create(ctx context.Context, entity *T) error

	Read(ctx context.Context, id K) (*T, error)

	Update(ctx context.Context, entity *T) (*T, error)

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id K) error
}

// QueryRepository defines list, count and single-result searches.
type QueryRepository[T any] interface {
	Count(ctx context.Context) (int, error)

	ReadAll(ctx context.Context, orders ...types.Order) ([]*T, error)

	FindAllByAttributes(ctx context.Context, attributes map[string]any) ([]*T, error)

	FindAllByBeanCriteria(ctx context.Context, c criteria.SearchCriteria[T]) ([]*T, error)

	FindAllByCriteriaQuery(ctx context.Context, q *criteria.Query[T], offset, limit int) ([]*T, error)

	FindUniqueByCriteriaQuery(ctx context.Context, q *criteria.Query[T]) (*T, error)

	CountByCriteriaQuery(ctx context.Context, q *criteria.Query[T]) (int, error)

	FindAllByFilter(ctx context.Context, filter *types.QueryFilter) ([]*T, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// BulkRepository defines single-statement writes over many rows. They skip
// the persistence context: tracked entities are neither refreshed nor detached.
type BulkRepository[T any] interface {
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByCriteria(ctx context.Context, d *criteria.Delete[T]) (int64, error)
	UpdateByCriteria(ctx context.Context, u *criteria.Update[T]) (int64, error)
}

// ContextRepository exposes the bound persistence context.
type ContextRepository[T any] interface {
	DetachEntity(entity *T)
	Session() *session.Context
	SetSession(sess *session.Context)
}

// Repository combines every operation on T and exposes the criteria
// builders used by entity-specific repositories.
type Repository[T any, K comparable] interface {
	CrudRepository[T, K]
	QueryRepository[T]
	PageQueryRepository[T]
	BulkRepository[T]
	ContextRepository[T]
	CriteriaBuilder() criteria.Builder
	Root() *criteria.Root[T]
	CreateQuery() *criteria.Query[T]
	NewDelete() *criteria.Delete[T]
	NewUpdate() *criteria.Update[T]
}
