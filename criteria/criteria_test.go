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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crud/database"
	"github.com/tomoncle/crud/types"
	"github.com/uptrace/bun"
)

type gadget struct {
	bun.BaseModel `bun:"table:gadgets,alias:g"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,nullzero"`
	Size  int    `bun:"size"`
	Color string `bun:"color,nullzero"`
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	manager, err := database.Open(context.Background(), nil, database.NewModelAdapter((*gadget)(nil), 0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Disconnect() })

	db := manager.GetDB()
	gadgets := []*gadget{
		{Name: "alpha", Size: 1, Color: "red"},
		{Name: "beta", Size: 2, Color: "blue"},
		{Name: "gamma", Size: 3},
		{Name: "alphabet", Size: 4, Color: "red"},
	}
	_, err = db.NewInsert().Model(&gadgets).Exec(context.Background())
	require.NoError(t, err)
	return db
}

func selectNames(t *testing.T, db *bun.DB, q *Query[gadget]) []string {
	t.Helper()
	var rows []*gadget
	require.NoError(t, q.Err())
	require.NoError(t, q.ApplySelect(db.NewSelect().Model(&rows)).Scan(context.Background()))
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names
}

func TestRootLookup(t *testing.T) {
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())

	p, ok := root.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "name", p.Name())
	assert.Equal(t, "Name", p.GoName())

	p, ok = root.Lookup("Size")
	require.True(t, ok)
	assert.Equal(t, "size", p.Name())

	assert.True(t, root.Has("COLOR"))
	assert.False(t, root.Has("weight"))
	assert.Error(t, root.Get("weight").Err())
	assert.Equal(t, "id", root.PK().Name())
}

func TestPredicates(t *testing.T) {
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())
	var cb Builder

	tests := []struct {
		name string
		pred Predicate
		want []string
	}{
		{"equal", cb.Equal(root.Get("name"), "beta"), []string{"beta"}},
		{"equal nil", cb.Equal(root.Get("color"), nil), []string{"gamma"}},
		{"not equal", cb.NotEqual(root.Get("color"), "red"), []string{"beta"}},
		{"like", cb.Like(root.Get("name"), "alpha%"), []string{"alpha", "alphabet"}},
		{"not like", cb.NotLike(root.Get("name"), "%a%a%"), []string{"beta"}},
		{"greater", cb.GreaterThan(root.Get("size"), 2), []string{"gamma", "alphabet"}},
		{"greater or equal", cb.GreaterThanOrEqual(root.Get("size"), 3), []string{"gamma", "alphabet"}},
		{"less", cb.LessThan(root.Get("size"), 2), []string{"alpha"}},
		{"less or equal", cb.LessThanOrEqual(root.Get("size"), 2), []string{"alpha", "beta"}},
		{"between", cb.Between(root.Get("size"), 2, 3), []string{"beta", "gamma"}},
		{"in", cb.In(root.Get("name"), "alpha", "gamma"), []string{"alpha", "gamma"}},
		{"in empty", cb.In(root.Get("name")), []string{}},
		{"is not null", cb.IsNotNull(root.Get("color")), []string{"alpha", "beta", "alphabet"}},
		{"and", cb.And(cb.Equal(root.Get("color"), "red"), cb.GreaterThan(root.Get("size"), 1)), []string{"alphabet"}},
		{"or", cb.Or(cb.Equal(root.Get("name"), "alpha"), cb.Equal(root.Get("name"), "beta")), []string{"alpha", "beta"}},
		{"or with empty", cb.Or(cb.Conjunction(), cb.Equal(root.Get("name"), "beta")), []string{"alpha", "beta", "gamma", "alphabet"}},
		{"not", cb.Not(cb.Equal(root.Get("color"), "red")), []string{"beta"}},
		{"conjunction", cb.Conjunction(), []string{"alpha", "beta", "gamma", "alphabet"}},
		{"disjunction", cb.Disjunction(), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery(root).Where(tt.pred).OrderBy(cb.Asc(root.Get("id")))
			assert.ElementsMatch(t, tt.want, selectNames(t, db, q))
		})
	}
}

func TestInvalidPathPropagates(t *testing.T) {
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())
	var cb Builder

	pred := cb.And(cb.Equal(root.Get("name"), "alpha"), cb.Like(root.Get("weight"), "x"))
	assert.Error(t, pred.Err())
	assert.False(t, pred.IsEmpty())

	q := NewQuery(root).Where(pred)
	assert.Error(t, q.Err())
}

func TestQueryOrdering(t *testing.T) {
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())
	var cb Builder

	q := NewQuery(root).OrderBy(cb.Desc(root.Get("color")), types.Asc("size"))
	assert.Equal(t, []string{"alpha", "alphabet", "beta", "gamma"}, selectNames(t, db, q))

	q = NewQuery(root).OrderBy(types.Desc("size"))
	assert.Equal(t, []string{"alphabet", "gamma", "beta", "alpha"}, selectNames(t, db, q))

	q = NewQuery(root).OrderBy(types.Asc("weight"))
	assert.Error(t, q.Err())
}

func TestBulkDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())
	var cb Builder

	d := NewDelete(root).Where(cb.Equal(root.Get("color"), "red"))
	require.NoError(t, d.Err())
	res, err := d.Build(db).Exec(ctx)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	res, err = NewDelete(root).Build(db).Exec(ctx)
	require.NoError(t, err)
	n, err = res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestBulkUpdate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())
	var cb Builder

	assert.ErrorIs(t, NewUpdate(root).Err(), ErrNoAssignments)

	u := NewUpdate(root).
		Set(root.Get("color"), "green").
		Set(root.Get("size"), 10).
		Where(cb.Like(root.Get("name"), "alpha%"))
	require.NoError(t, u.Err())
	res, err := u.Build(db).Exec(ctx)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	q := NewQuery(root).Where(cb.Equal(root.Get("color"), "green"), cb.Equal(root.Get("size"), 10))
	assert.ElementsMatch(t, []string{"alpha", "alphabet"}, selectNames(t, db, q))

	_, err = NewUpdate(root).Set(root.Get("color"), nil).Build(db).Exec(ctx)
	require.NoError(t, err)
	q = NewQuery(root).Where(cb.IsNull(root.Get("color")))
	assert.Len(t, selectNames(t, db, q), 4)
}

func TestMatchAttributes(t *testing.T) {
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())
	var cb Builder

	match := MatchAttributes[gadget](map[string]any{"color": "red", "size": 4, "weight": 9})
	pred := match.ToPredicate(cb, root)
	require.NoError(t, pred.Err())
	assert.Equal(t, []string{"alphabet"}, selectNames(t, db, NewQuery(root).Where(pred)))

	empty := MatchAttributes[gadget](map[string]any{"weight": 1}).ToPredicate(cb, root)
	assert.True(t, empty.IsEmpty())

	again := MatchAttributes[gadget](map[string]any{"size": 4, "color": "red", "weight": 9}).ToPredicate(cb, root)
	assert.Equal(t, pred.Query(), again.Query())
	assert.Equal(t, pred.Args(), again.Args())
}

func TestPredicateFunc(t *testing.T) {
	db := openTestDB(t)
	root := NewRoot[gadget](db.Dialect())

	var criteria SearchCriteria[gadget] = PredicateFunc[gadget](func(cb Builder, r *Root[gadget]) Predicate {
		return cb.Equal(r.Get("name"), "gamma")
	})
	q := NewQuery(root).Where(criteria.ToPredicate(Builder{}, root))
	assert.Equal(t, []string{"gamma"}, selectNames(t, db, q))
}
