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
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/tomoncle/crud/criteria"
	"github.com/tomoncle/crud/database"
	"github.com/tomoncle/crud/session"
	"github.com/tomoncle/crud/types"
)

type baseRepositoryImpl[T any, K comparable] struct {
	sess   *session.Context
	logger database.Logger
	name   string
}

type options struct {
	logger database.Logger
}

type Option func(*options)

// WithLogger replaces the "REPOSITORY" logger.
func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New returns a generic repository bound to sess. The repository never
// begins, commits or closes sess.
func New[T any, K comparable](sess *session.Context, opts ...Option) Repository[T, K] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = database.NewLogger("REPOSITORY")
	}
	return &baseRepositoryImpl[T, K]{
		sess:   sess,
		logger: o.logger,
		name:   reflect.TypeOf((*T)(nil)).Elem().Name(),
	}
}

func (r *baseRepositoryImpl[T, K]) Session() *session.Context { return r.sess }

func (r *baseRepositoryImpl[T, K]) SetSession(sess *session.Context) { r.sess = sess }

func (r *baseRepositoryImpl[T, K]) CriteriaBuilder() criteria.Builder { return criteria.Builder{} }

// Root resolves T against the dialect of the bound session. Without a
// session every path of the root is invalid, and statements built from it
// fail with ErrNoSession when run.
func (r *baseRepositoryImpl[T, K]) Root() *criteria.Root[T] {
	if r.sess == nil {
		return criteria.NewRoot[T](nil)
	}
	return criteria.NewRoot[T](r.sess.Dialect())
}

func (r *baseRepositoryImpl[T, K]) CreateQuery() *criteria.Query[T] {
	return criteria.NewQuery(r.Root())
}

func (r *baseRepositoryImpl[T, K]) NewDelete() *criteria.Delete[T] {
	return criteria.NewDelete(r.Root())
}

func (r *baseRepositoryImpl[T, K]) NewUpdate() *criteria.Update[T] {
	return criteria.NewUpdate(r.Root())
}

func (r *baseRepositoryImpl[T, K]) Create(ctx context.Context, entity *T) error {
	const op = "create"
	if entity == nil {
		return r.invalid(op, "entity is nil")
	}
	sess, err := r.session(op)
	if err != nil {
		return err
	}
	if err := r.sanitize(op, entity); err != nil {
		return err
	}
	if err := sess.Insert(ctx, entity); err != nil {
		return r.dataAccess(op, entity, err)
	}
	return nil
}

// Update writes entity and returns the managed instance, which is a
// different pointer when entity was not tracked.
func (r *baseRepositoryImpl[T, K]) Update(ctx context.Context, entity *T) (*T, error) {
	const op = "update"
	if entity == nil {
		return nil, r.invalid(op, "entity is nil")
	}
	sess, err := r.session(op)
	if err != nil {
		return nil, err
	}
	if err := r.sanitize(op, entity); err != nil {
		return nil, err
	}
	managed, err := sess.Merge(ctx, entity)
	if err != nil {
		return nil, r.dataAccess(op, entity, err)
	}
	return managed.(*T), nil
}

// Delete removes entity. A detached entity is merged first so that the
// tracked instance is the one removed.
func (r *baseRepositoryImpl[T, K]) Delete(ctx context.Context, entity *T) error {
	const op = "delete"
	if entity == nil {
		return r.invalid(op, "entity is nil")
	}
	sess, err := r.session(op)
	if err != nil {
		return err
	}
	target := entity
	if !sess.Contains(entity) {
		managed, err := sess.Merge(ctx, entity)
		if err != nil {
			return r.dataAccess(op, entity, err)
		}
		target = managed.(*T)
	}
	if err := sess.Remove(ctx, target); err != nil {
		return r.dataAccess(op, target, err)
	}
	return nil
}

// DeleteByID reads the entity with id and deletes it. A missing row is
// reported as ErrNotFound.
func (r *baseRepositoryImpl[T, K]) DeleteByID(ctx context.Context, id K) error {
	const op = "deleteById"
	if isZero(id) {
		return r.invalid(op, "id is absent")
	}
	entity, err := r.Read(ctx, id)
	if err != nil {
		return err
	}
	if entity == nil {
		err := fmt.Errorf("%w: %s with id %v", ErrNotFound, r.name, id)
		r.logger.Warn("Entity to delete not found", "op", op, "entity", r.name, "id", id)
		return err
	}
	return r.Delete(ctx, entity)
}

// Read returns the entity with id, or nil when there is none.
func (r *baseRepositoryImpl[T, K]) Read(ctx context.Context, id K) (*T, error) {
	const op = "read"
	if isZero(id) {
		return nil, r.invalid(op, "id is absent")
	}
	sess, err := r.session(op)
	if err != nil {
		return nil, err
	}
	found, err := sess.Find(ctx, (*T)(nil), id)
	if err != nil {
		return nil, r.dataAccess(op, nil, err)
	}
	if found == nil {
		return nil, nil
	}
	return found.(*T), nil
}

func (r *baseRepositoryImpl[T, K]) Count(ctx context.Context) (int, error) {
	sess, err := r.session("count")
	if err != nil {
		return 0, err
	}
	count, err := sess.IDB().NewSelect().Model((*T)(nil)).Count(ctx)
	if err != nil {
		return 0, r.dataAccess("count", nil, err)
	}
	return count, nil
}

// ReadAll returns every entity, sorted by orders in sequence.
func (r *baseRepositoryImpl[T, K]) ReadAll(ctx context.Context, orders ...types.Order) ([]*T, error) {
	const op = "readAll"
	if _, err := r.session(op); err != nil {
		return nil, err
	}
	return r.findAll(ctx, op, r.CreateQuery().OrderBy(orders...), -1, 0)
}

// FindAllByAttributes matches every field/value pair of attributes. Unknown
// fields are skipped; an empty map reads everything.
func (r *baseRepositoryImpl[T, K]) FindAllByAttributes(ctx context.Context, attributes map[string]any) ([]*T, error) {
	if len(attributes) == 0 {
		return r.ReadAll(ctx)
	}
	return r.FindAllByBeanCriteria(ctx, criteria.MatchAttributes[T](attributes))
}

// FindAllByBeanCriteria applies the predicate built by c as the only
// restriction.
func (r *baseRepositoryImpl[T, K]) FindAllByBeanCriteria(ctx context.Context, c criteria.SearchCriteria[T]) ([]*T, error) {
	const op = "findAllByBeanCriteria"
	if c == nil {
		return nil, r.invalid(op, "criteria is nil")
	}
	if _, err := r.session(op); err != nil {
		return nil, err
	}
	root := r.Root()
	q := criteria.NewQuery(root).Where(c.ToPredicate(r.CriteriaBuilder(), root))
	return r.findAll(ctx, op, q, -1, 0)
}

// FindAllByCriteriaQuery runs q. offset is applied when non-negative and
// limit when positive.
func (r *baseRepositoryImpl[T, K]) FindAllByCriteriaQuery(ctx context.Context, q *criteria.Query[T], offset, limit int) ([]*T, error) {
	return r.findAll(ctx, "findAllByCriteriaQuery", q, offset, limit)
}

// FindUniqueByCriteriaQuery runs q and returns its only row, or nil when it
// matches nothing. More than one row is a DataAccessError wrapping
// ErrNonUniqueResult.
func (r *baseRepositoryImpl[T, K]) FindUniqueByCriteriaQuery(ctx context.Context, q *criteria.Query[T]) (*T, error) {
	const op = "findUniqueByCriteriaQuery"
	rows, err := r.findAll(ctx, op, q, -1, 2)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, r.dataAccess(op, nil, ErrNonUniqueResult)
	}
}

// CountByCriteriaQuery counts the rows matched by the restriction of q.
func (r *baseRepositoryImpl[T, K]) CountByCriteriaQuery(ctx context.Context, q *criteria.Query[T]) (int, error) {
	const op = "countByCriteriaQuery"
	sess, err := r.session(op)
	if err != nil {
		return 0, err
	}
	if q == nil {
		return 0, r.invalid(op, "query is nil")
	}
	if err := q.Restriction().Err(); err != nil {
		return 0, r.invalid(op, err.Error())
	}
	count, err := q.ApplyWhere(sess.IDB().NewSelect().Model((*T)(nil))).Count(ctx)
	if err != nil {
		return 0, r.dataAccess(op, nil, err)
	}
	return count, nil
}

// FindAllByFilter runs a raw WHERE with bound parameters. A nil filter or an
// empty schema reads everything.
func (r *baseRepositoryImpl[T, K]) FindAllByFilter(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	const op = "findAllByFilter"
	sess, err := r.session(op)
	if err != nil {
		return nil, err
	}
	var entities []*T
	query := sess.IDB().NewSelect().Model(&entities)
	if filter != nil && filter.Schema != "" {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, r.dataAccess(op, nil, err)
	}
	return r.track(sess, entities), nil
}

func (r *baseRepositoryImpl[T, K]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	const op = "page"
	if pageRequest == nil {
		return nil, r.invalid(op, "page request is nil")
	}
	sess, err := r.session(op)
	if err != nil {
		return nil, err
	}
	root := r.Root()
	orders := pageRequest.GetOrders()
	if err := r.validateOrders(root, orders); err != nil {
		return nil, r.invalid(op, err.Error())
	}

	var entities []*T
	query := sess.IDB().NewSelect().Model(&entities)
	if pageRequest.GetFilter() != nil && pageRequest.GetFilter().Schema != "" {
		query = query.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil {
		return nil, r.dataAccess(op, nil, err)
	}
	if total == 0 {
		return pagination, nil
	}
	err = criteria.ApplyOrders(root, query, orders...).
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, r.dataAccess(op, nil, err)
	}
	pagination.Total = total
	pagination.Items = r.track(sess, entities)
	return pagination, nil
}

func (r *baseRepositoryImpl[T, K]) DetachEntity(entity *T) {
	if entity == nil || r.sess == nil {
		return
	}
	r.sess.Detach(entity)
}

// DeleteAll deletes every row of T in one statement and returns how many
// rows went away.
func (r *baseRepositoryImpl[T, K]) DeleteAll(ctx context.Context) (int64, error) {
	const op = "deleteAll"
	if _, err := r.session(op); err != nil {
		return 0, err
	}
	return r.DeleteByCriteria(ctx, r.NewDelete())
}

// DeleteByCriteria deletes the rows matched by d in one statement. Tracked
// instances of T are detached when any row went away, since the context
// cannot tell which of them lost their row.
func (r *baseRepositoryImpl[T, K]) DeleteByCriteria(ctx context.Context, d *criteria.Delete[T]) (int64, error) {
	const op = "deleteByCriteria"
	sess, err := r.session(op)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, r.invalid(op, "delete is nil")
	}
	if err := d.Err(); err != nil {
		return 0, r.invalid(op, err.Error())
	}
	n, err := r.exec(op, func() (int64, error) {
		res, err := d.Build(sess.IDB()).Exec(ctx)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
	if err == nil && n > 0 {
		sess.DetachType((*T)(nil))
	}
	return n, err
}

func (r *baseRepositoryImpl[T, K]) UpdateByCriteria(ctx context.Context, u *criteria.Update[T]) (int64, error) {
	const op = "updateByCriteria"
	sess, err := r.session(op)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, r.invalid(op, "update is nil")
	}
	if err := u.Err(); err != nil {
		return 0, r.invalid(op, err.Error())
	}
	return r.exec(op, func() (int64, error) {
		res, err := u.Build(sess.IDB()).Exec(ctx)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

func (r *baseRepositoryImpl[T, K]) exec(op string, fn func() (int64, error)) (int64, error) {
	n, err := fn()
	if err != nil {
		return 0, r.dataAccess(op, nil, err)
	}
	r.logger.Debug("Bulk statement executed", "op", op, "entity", r.name, "rows", n)
	return n, nil
}

func (r *baseRepositoryImpl[T, K]) findAll(ctx context.Context, op string, q *criteria.Query[T], offset, limit int) ([]*T, error) {
	sess, err := r.session(op)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, r.invalid(op, "query is nil")
	}
	if err := q.Err(); err != nil {
		return nil, r.invalid(op, err.Error())
	}

	var entities []*T
	query := q.ApplySelect(sess.IDB().NewSelect().Model(&entities))
	if offset > 0 {
		query = query.Offset(offset)
		if limit <= 0 {
			query = query.Limit(math.MaxInt32)
		}
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, r.dataAccess(op, nil, err)
	}
	return r.track(sess, entities), nil
}

func (r *baseRepositoryImpl[T, K]) validateOrders(root *criteria.Root[T], orders []types.Order) error {
	var errs []error
	for _, o := range orders {
		if !root.Has(o.Field) {
			errs = append(errs, fmt.Errorf("unknown order field %q", o.Field))
		} else if !o.Direction.IsValid() {
			errs = append(errs, fmt.Errorf("invalid direction for field %q", o.Field))
		}
	}
	return errors.Join(errs...)
}

// track swaps every loaded row for the instance the session manages under
// the same key.
func (r *baseRepositoryImpl[T, K]) track(sess *session.Context, entities []*T) []*T {
	for i, e := range entities {
		if managed, ok := sess.Track(e).(*T); ok {
			entities[i] = managed
		}
	}
	return entities
}

func (r *baseRepositoryImpl[T, K]) session(op string) (*session.Context, error) {
	if r.sess == nil {
		return nil, r.dataAccess(op, nil, ErrNoSession)
	}
	return r.sess, nil
}

func (r *baseRepositoryImpl[T, K]) sanitize(op string, entity *T) error {
	if err := NullifyEmptyStrings(entity); err != nil {
		r.logger.Error("Failed to sanitize entity", "op", op, "entity", r.name, "error", err)
		r.dump(entity)
		return err
	}
	return nil
}

func (r *baseRepositoryImpl[T, K]) invalid(op, reason string) error {
	err := fmt.Errorf("%w: %s %s: %s", ErrInvalidArgument, op, r.name, reason)
	r.logger.Error("Invalid argument", "op", op, "entity", r.name, "error", err)
	return err
}

func (r *baseRepositoryImpl[T, K]) dataAccess(op string, entity *T, err error) error {
	dae := newDataAccessError(op, r.name, err)
	r.logger.Error("Data access failed", "op", op, "entity", r.name, "kind", dae.Kind, "error", err)
	r.dump(entity)
	return dae
}

func (r *baseRepositoryImpl[T, K]) dump(entity *T) {
	if entity != nil && r.logger.IsLevelEnabled(database.LogLevelDebug) {
		r.logger.Debug("Entity state", "entity", r.name, "value", fmt.Sprintf("%+v", *entity))
	}
}

func isZero[K comparable](id K) bool {
	var zero K
	return id == zero
}
