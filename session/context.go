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

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/tomoncle/crud/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

// identity is the (model type, primary key) pair an entity is tracked under.
type identity struct {
	typ reflect.Type
	key string
}

// Context tracks the entities loaded or written through it and routes every
// statement through the active transaction, if any.
type Context struct {
	id     string
	db     *bun.DB
	tx     bun.Tx
	inTx   bool
	closed bool
	logger database.Logger

	managed map[identity]any
	index   map[any]identity
}

type Option func(*Context)

// WithLogger replaces the "SESSION" logger.
func WithLogger(logger database.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Open returns a new Context on db.
func Open(db *bun.DB, opts ...Option) *Context {
	c := &Context{
		id:      uuid.NewString(),
		db:      db,
		logger:  database.NewLogger("SESSION"),
		managed: make(map[identity]any),
		index:   make(map[any]identity),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug("Session opened", "session", c.id)
	return c
}

// ID identifies the context in log lines.
func (c *Context) ID() string { return c.id }

func (c *Context) DB() *bun.DB { return c.db }

func (c *Context) Dialect() schema.Dialect { return c.db.Dialect() }

// IDB returns the active transaction, or the database when none is open.
func (c *Context) IDB() bun.IDB {
	if c.inTx {
		return c.tx
	}
	return c.db
}

// InTx reports whether a transaction is active.
func (c *Context) InTx() bool { return c.inTx }

// Closed reports whether Close was called.
func (c *Context) Closed() bool { return c.closed }

func (c *Context) Begin(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.inTx {
		return ErrTxActive
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin transaction: %w", err)
	}
	c.tx, c.inTx = tx, true
	c.logger.Debug("Transaction started", "session", c.id)
	return nil
}

func (c *Context) Commit() error {
	if c.closed {
		return ErrClosed
	}
	if !c.inTx {
		return ErrNoTx
	}
	err := c.tx.Commit()
	c.tx, c.inTx = bun.Tx{}, false
	if err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	c.logger.Debug("Transaction committed", "session", c.id)
	return nil
}

// Rollback aborts the active transaction. Tracked entities may hold state
// that never reached the database, so the context is cleared.
func (c *Context) Rollback() error {
	if c.closed {
		return ErrClosed
	}
	if !c.inTx {
		return ErrNoTx
	}
	err := c.tx.Rollback()
	c.tx, c.inTx = bun.Tx{}, false
	c.Clear()
	if err != nil {
		return fmt.Errorf("session: rollback: %w", err)
	}
	c.logger.Debug("Transaction rolled back", "session", c.id)
	return nil
}

// Close rolls back an open transaction and forgets every tracked entity.
// Closing twice is a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	var err error
	if c.inTx {
		err = c.Rollback()
	}
	c.Clear()
	c.closed = true
	c.logger.Debug("Session closed", "session", c.id)
	return err
}

// Clear detaches every tracked entity.
func (c *Context) Clear() {
	c.managed = make(map[identity]any)
	c.index = make(map[any]identity)
}

// Len returns the number of tracked entities.
func (c *Context) Len() int { return len(c.index) }

// Insert writes e and tracks it. Database-generated keys are scanned back
// into e.
func (c *Context) Insert(ctx context.Context, e any) error {
	v, table, err := c.entity(e)
	if err != nil {
		return err
	}
	if _, err := c.IDB().NewInsert().Model(e).Exec(ctx); err != nil {
		return err
	}
	c.track(v, table)
	return nil
}

// Merge writes the state of e and returns the managed instance holding it.
// A tracked e is updated in place. An e with a zero key is inserted as a
// copy. When another instance is tracked under the same key, it receives the
// state of e once the update succeeds. Otherwise a fresh copy is upserted.
// An update of a tracked instance whose row is gone fails with
// ErrStaleEntity and detaches that instance.
func (c *Context) Merge(ctx context.Context, e any) (any, error) {
	v, table, err := c.entity(e)
	if err != nil {
		return nil, err
	}

	if c.Contains(e) {
		if err := c.updateTracked(ctx, e, e, table); err != nil {
			return nil, err
		}
		return e, nil
	}

	id, ok := identityOf(v, table)
	if !ok {
		clone := cloneOf(v)
		if _, err := c.IDB().NewInsert().Model(clone.Interface()).Exec(ctx); err != nil {
			return nil, err
		}
		c.track(clone, table)
		return clone.Interface(), nil
	}

	if managed, ok := c.managed[id]; ok {
		scratch := cloneOf(v)
		if err := c.updateTracked(ctx, scratch.Interface(), managed, table); err != nil {
			return nil, err
		}
		reflect.ValueOf(managed).Elem().Set(scratch.Elem())
		return managed, nil
	}

	clone := cloneOf(v)
	if err := c.upsert(ctx, clone.Interface(), table); err != nil {
		return nil, err
	}
	c.track(clone, table)
	return clone.Interface(), nil
}

// updateTracked writes state by primary key on behalf of the tracked
// instance managed. No matching row means the row was deleted behind the
// context, so managed is detached.
func (c *Context) updateTracked(ctx context.Context, state, managed any, table *schema.Table) error {
	res, err := c.IDB().NewUpdate().Model(state).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		c.Detach(managed)
		c.logger.Warn("Tracked entity has no row", "session", c.id, "model", table.TypeName)
		return fmt.Errorf("%w: %s", ErrStaleEntity, table.TypeName)
	}
	return nil
}

// upsert writes a single entity by primary key with the statement the dialect
// supports, falling back to an update followed by an insert.
func (c *Context) upsert(ctx context.Context, e any, table *schema.Table) error {
	switch {
	case c.db.HasFeature(feature.InsertOnConflict):
		return c.upsertOnConflict(ctx, e, table)
	case c.db.HasFeature(feature.InsertOnDuplicateKey):
		return c.upsertOnDuplicateKey(ctx, e, table)
	default:
		return c.upsertFallback(ctx, e)
	}
}

func (c *Context) upsertOnConflict(ctx context.Context, e any, table *schema.Table) error {
	keys := make([]string, len(table.PKs))
	for i, pk := range table.PKs {
		keys[i] = string(pk.SQLName)
	}
	q := c.IDB().NewInsert().Model(e)
	if len(table.DataFields) == 0 {
		q = q.On("CONFLICT (" + strings.Join(keys, ", ") + ") DO NOTHING")
	} else {
		q = q.On("CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE")
		for _, f := range table.DataFields {
			q = q.Set("? = EXCLUDED.?", f.SQLName, f.SQLName)
		}
	}
	_, err := q.Exec(ctx)
	return err
}

func (c *Context) upsertOnDuplicateKey(ctx context.Context, e any, table *schema.Table) error {
	fields := table.DataFields
	if len(fields) == 0 {
		fields = table.PKs
	}
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", f.SQLName, f.SQLName)
	}
	_, err := c.IDB().NewInsert().
		Model(e).
		On("DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")).
		Exec(ctx)
	return err
}

func (c *Context) upsertFallback(ctx context.Context, e any) error {
	res, err := c.IDB().NewUpdate().Model(e).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = c.IDB().NewInsert().Model(e).Exec(ctx)
	return err
}

// Remove deletes the tracked entity e by primary key and detaches it.
func (c *Context) Remove(ctx context.Context, e any) error {
	if _, _, err := c.entity(e); err != nil {
		return err
	}
	if !c.Contains(e) {
		return ErrNotTracked
	}
	if _, err := c.IDB().NewDelete().Model(e).WherePK().Exec(ctx); err != nil {
		return err
	}
	c.Detach(e)
	return nil
}

// DetachType stops tracking every instance of model's type. model is a
// pointer of that type and may be nil, e.g. (*Person)(nil).
func (c *Context) DetachType(model any) {
	t := reflect.TypeOf(model)
	if t == nil || t.Kind() != reflect.Ptr {
		return
	}
	for id, e := range c.managed {
		if id.typ == t.Elem() {
			delete(c.managed, id)
			delete(c.index, e)
		}
	}
}

// Contains reports whether the pointer e is tracked.
func (c *Context) Contains(e any) bool {
	if e == nil {
		return false
	}
	_, ok := c.index[e]
	return ok
}

// Detach stops tracking e. Unknown values are ignored.
func (c *Context) Detach(e any) {
	if e == nil {
		return
	}
	id, ok := c.index[e]
	if !ok {
		return
	}
	delete(c.index, e)
	if c.managed[id] == e {
		delete(c.managed, id)
	}
}

// Track registers a loaded entity and returns the managed instance for its
// key. When another instance is already tracked under that key, it receives
// the state of e and is returned instead. Entities with a zero key are
// returned untracked.
func (c *Context) Track(e any) any {
	v, table, err := c.entity(e)
	if err != nil {
		return e
	}
	id, ok := identityOf(v, table)
	if !ok {
		return e
	}
	if managed, ok := c.managed[id]; ok && managed != e {
		reflect.ValueOf(managed).Elem().Set(v.Elem())
		return managed
	}
	c.track(v, table)
	return e
}

// Find loads the entity of model's type whose single primary key equals key.
// model is a pointer of the wanted type and may be nil, e.g. (*Person)(nil).
// It returns (nil, nil) when no row matches. A tracked instance with the same
// key is refreshed and returned.
func (c *Context) Find(ctx context.Context, model any, key any) (any, error) {
	if c.closed {
		return nil, ErrClosed
	}
	t := reflect.TypeOf(model)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotEntity, model)
	}
	table := c.db.Dialect().Tables().Get(t.Elem())
	if len(table.PKs) != 1 {
		return nil, fmt.Errorf("%w: %s needs exactly one key column", ErrNoPrimaryKey, table.TypeName)
	}

	v := reflect.New(t.Elem())
	err := c.IDB().NewSelect().
		Model(v.Interface()).
		Where("?TableAlias.? = ?", table.PKs[0].SQLName, key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.Track(v.Interface()), nil
}

func (c *Context) track(v reflect.Value, table *schema.Table) {
	id, ok := identityOf(v, table)
	if !ok {
		return
	}
	e := v.Interface()
	if prev, ok := c.managed[id]; ok && prev != e {
		delete(c.index, prev)
	}
	c.managed[id] = e
	c.index[e] = id
}

func (c *Context) entity(e any) (reflect.Value, *schema.Table, error) {
	if c.closed {
		return reflect.Value{}, nil, ErrClosed
	}
	v := reflect.ValueOf(e)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("%w: %T", ErrNotEntity, e)
	}
	table := c.db.Dialect().Tables().Get(v.Type().Elem())
	if len(table.PKs) == 0 {
		return reflect.Value{}, nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, table.TypeName)
	}
	return v, table, nil
}

func identityOf(v reflect.Value, table *schema.Table) (identity, bool) {
	strct := v.Elem()
	parts := make([]string, len(table.PKs))
	for i, pk := range table.PKs {
		if pk.HasZeroValue(strct) {
			return identity{}, false
		}
		parts[i] = fmt.Sprint(pk.Value(strct).Interface())
	}
	return identity{typ: table.Type, key: strings.Join(parts, "\x1f")}, true
}

func cloneOf(v reflect.Value) reflect.Value {
	clone := reflect.New(v.Elem().Type())
	clone.Elem().Set(v.Elem())
	return clone
}
