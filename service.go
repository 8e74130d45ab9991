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

package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomoncle/crud/repository"
	"github.com/tomoncle/crud/session"
	"github.com/tomoncle/crud/types"
	"github.com/uptrace/bun"
)

// WithSession runs fn in a unit of work: it opens a persistence context on
// db, begins a transaction, and commits when fn returns nil. Any error from
// fn rolls the transaction back and is returned. The context is always
// closed.
func WithSession(ctx context.Context, db *bun.DB, fn func(ctx context.Context, sess *session.Context) error) (err error) {
	sess := session.Open(db)
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := sess.Begin(ctx); err != nil {
		return err
	}
	if err := fn(ctx, sess); err != nil {
		if rerr := sess.Rollback(); rerr != nil && !errors.Is(rerr, session.ErrNoTx) {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	if !sess.InTx() {
		return nil
	}
	return sess.Commit()
}

// Service runs every call in its own unit of work over a repository of T.
type Service[T any, K comparable] interface {
	// Get returns a single entity by its key, or nil when there is none.
	Get(ctx context.Context, id K) (*T, error)

	// All returns all entities in the given order.
	All(ctx context.Context, orders ...types.Order) ([]*T, error)

	// Find returns the entities whose fields equal every attribute.
	Find(ctx context.Context, attributes map[string]any) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities atomically.
	Save(ctx context.Context, model ...*T) error

	// Update writes an entity and returns the stored state.
	Update(ctx context.Context, model *T) (*T, error)

	// Delete removes an entity by its key.
	Delete(ctx context.Context, id K) error

	// Count returns the number of entities.
	Count(ctx context.Context) (int, error)
}

type baseServiceImpl[T any, K comparable] struct {
	db   *bun.DB
	opts []repository.Option
}

// NewService returns a Service on db.
func NewService[T any, K comparable](db *bun.DB, opts ...repository.Option) Service[T, K] {
	return &baseServiceImpl[T, K]{db: db, opts: opts}
}

func (s *baseServiceImpl[T, K]) run(ctx context.Context, fn func(repo repository.Repository[T, K]) error) error {
	return WithSession(ctx, s.db, func(ctx context.Context, sess *session.Context) error {
		return fn(repository.New[T, K](sess, s.opts...))
	})
}

func (s *baseServiceImpl[T, K]) Get(ctx context.Context, id K) (entity *T, err error) {
	err = s.run(ctx, func(repo repository.Repository[T, K]) error {
		entity, err = repo.Read(ctx, id)
		return err
	})
	return entity, err
}

func (s *baseServiceImpl[T, K]) All(ctx context.Context, orders ...types.Order) (entities []*T, err error) {
	err = s.run(ctx, func(repo repository.Repository[T, K]) error {
		entities, err = repo.ReadAll(ctx, orders...)
		return err
	})
	return entities, err
}

func (s *baseServiceImpl[T, K]) Find(ctx context.Context, attributes map[string]any) (entities []*T, err error) {
	err = s.run(ctx, func(repo repository.Repository[T, K]) error {
		entities, err = repo.FindAllByAttributes(ctx, attributes)
		return err
	})
	return entities, err
}

func (s *baseServiceImpl[T, K]) List(ctx context.Context, filter *types.QueryFilter) (entities []*T, err error) {
	err = s.run(ctx, func(repo repository.Repository[T, K]) error {
		entities, err = repo.FindAllByFilter(ctx, filter)
		return err
	})
	return entities, err
}

func (s *baseServiceImpl[T, K]) Page(ctx context.Context, page *types.PageRequest) (pagination *types.Pagination[T], err error) {
	err = s.run(ctx, func(repo repository.Repository[T, K]) error {
		pagination, err = repo.Page(ctx, page)
		return err
	})
	return pagination, err
}

func (s *baseServiceImpl[T, K]) Save(ctx context.Context, model ...*T) error {
	return s.run(ctx, func(repo repository.Repository[T, K]) error {
		for _, m := range model {
			if err := repo.Create(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *baseServiceImpl[T, K]) Update(ctx context.Context, model *T) (managed *T, err error) {
	err = s.run(ctx, func(repo repository.Repository[T, K]) error {
		managed, err = repo.Update(ctx, model)
		return err
	})
	return managed, err
}

func (s *baseServiceImpl[T, K]) Delete(ctx context.Context, id K) error {
	return s.run(ctx, func(repo repository.Repository[T, K]) error {
		return repo.DeleteByID(ctx, id)
	})
}

func (s *baseServiceImpl[T, K]) Count(ctx context.Context) (count int, err error) {
	err = s.run(ctx, func(repo repository.Repository[T, K]) error {
		count, err = repo.Count(ctx)
		return err
	})
	return count, err
}
