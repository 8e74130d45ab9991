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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crud/database"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Label string `bun:"label,nullzero"`
}

type keyless struct {
	Label string `bun:"label"`
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	manager, err := database.Open(context.Background(), nil, database.NewModelAdapter((*widget)(nil), 0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager.GetDB()
}

func TestInsertTracksEntity(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))
	assert.NotZero(t, w.ID)
	assert.True(t, sess.Contains(w))
	assert.Equal(t, 1, sess.Len())

	found, err := sess.Find(ctx, (*widget)(nil), w.ID)
	require.NoError(t, err)
	assert.Same(t, w, found)
}

func TestFindMissingKeyReturnsNil(t *testing.T) {
	sess := Open(openTestDB(t))
	defer sess.Close()

	found, err := sess.Find(context.Background(), (*widget)(nil), int64(42))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindRejectsNonModel(t *testing.T) {
	sess := Open(openTestDB(t))
	defer sess.Close()

	_, err := sess.Find(context.Background(), "widget", 1)
	assert.ErrorIs(t, err, ErrNotEntity)
}

func TestMergeDetachedCopyReturnsManagedInstance(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first := Open(db)
	w := &widget{Label: "gear"}
	require.NoError(t, first.Insert(ctx, w))
	require.NoError(t, first.Close())

	sess := Open(db)
	defer sess.Close()

	detached := &widget{ID: w.ID, Label: "cog"}
	merged, err := sess.Merge(ctx, detached)
	require.NoError(t, err)

	managed := merged.(*widget)
	assert.NotSame(t, detached, managed)
	assert.Equal(t, w.ID, managed.ID)
	assert.Equal(t, "cog", managed.Label)
	assert.True(t, sess.Contains(managed))
	assert.False(t, sess.Contains(detached))

	found, err := sess.Find(ctx, (*widget)(nil), w.ID)
	require.NoError(t, err)
	assert.Same(t, managed, found)
	assert.Equal(t, "cog", found.(*widget).Label)
}

func TestMergeOntoTrackedInstance(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))

	merged, err := sess.Merge(ctx, &widget{ID: w.ID, Label: "sprocket"})
	require.NoError(t, err)
	assert.Same(t, w, merged)
	assert.Equal(t, "sprocket", w.Label)
}

func TestMergeZeroKeyInsertsCopy(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	merged, err := sess.Merge(ctx, w)
	require.NoError(t, err)

	managed := merged.(*widget)
	assert.NotSame(t, w, managed)
	assert.NotZero(t, managed.ID)
	assert.Zero(t, w.ID)
}

func TestRemoveRequiresTrackedEntity(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))

	assert.ErrorIs(t, sess.Remove(ctx, &widget{ID: w.ID}), ErrNotTracked)

	require.NoError(t, sess.Remove(ctx, w))
	assert.False(t, sess.Contains(w))

	found, err := sess.Find(ctx, (*widget)(nil), w.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDetachKeepsRow(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))
	sess.Detach(w)
	assert.False(t, sess.Contains(w))

	found, err := sess.Find(ctx, (*widget)(nil), w.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.NotSame(t, w, found)
	assert.Equal(t, "gear", found.(*widget).Label)
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	assert.ErrorIs(t, sess.Commit(), ErrNoTx)
	assert.ErrorIs(t, sess.Rollback(), ErrNoTx)

	require.NoError(t, sess.Begin(ctx))
	assert.True(t, sess.InTx())
	assert.ErrorIs(t, sess.Begin(ctx), ErrTxActive)

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))
	require.NoError(t, sess.Rollback())
	assert.False(t, sess.InTx())
	assert.Equal(t, 0, sess.Len())

	found, err := sess.Find(ctx, (*widget)(nil), w.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, sess.Begin(ctx))
	require.NoError(t, sess.Insert(ctx, &widget{Label: "kept"}))
	require.NoError(t, sess.Commit())

	count, err := sess.IDB().NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClosedContextRejectsWork(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	require.NoError(t, sess.Begin(ctx))
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	assert.True(t, sess.Closed())
	assert.ErrorIs(t, sess.Begin(ctx), ErrClosed)
	assert.ErrorIs(t, sess.Insert(ctx, &widget{Label: "late"}), ErrClosed)
	_, err := sess.Find(ctx, (*widget)(nil), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEntityValidation(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	assert.ErrorIs(t, sess.Insert(ctx, widget{}), ErrNotEntity)
	assert.ErrorIs(t, sess.Insert(ctx, (*widget)(nil)), ErrNotEntity)
	assert.ErrorIs(t, sess.Insert(ctx, &keyless{}), ErrNoPrimaryKey)
}

func TestTrackReturnsManagedInstance(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))

	loaded := &widget{ID: w.ID, Label: "reloaded"}
	assert.Same(t, w, sess.Track(loaded))
	assert.Equal(t, "reloaded", w.Label)

	fresh := &widget{}
	assert.Same(t, fresh, sess.Track(fresh))
	assert.False(t, sess.Contains(fresh))
}

type tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

func TestMergeOntoTrackedInstanceWithoutRow(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))
	_, err := sess.IDB().NewDelete().Model((*widget)(nil)).Where("id = ?", w.ID).Exec(ctx)
	require.NoError(t, err)

	_, err = sess.Merge(ctx, &widget{ID: w.ID, Label: "cog"})
	assert.ErrorIs(t, err, ErrStaleEntity)
	assert.False(t, sess.Contains(w))
	assert.Equal(t, "gear", w.Label)

	merged, err := sess.Merge(ctx, &widget{ID: w.ID, Label: "cog"})
	require.NoError(t, err)
	found, err := sess.Find(ctx, (*widget)(nil), w.ID)
	require.NoError(t, err)
	assert.Same(t, merged, found)
	assert.Equal(t, "cog", found.(*widget).Label)
}

func TestMergeTrackedEntityWithoutRow(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w := &widget{Label: "gear"}
	require.NoError(t, sess.Insert(ctx, w))
	_, err := sess.IDB().NewDelete().Model((*widget)(nil)).Where("id = ?", w.ID).Exec(ctx)
	require.NoError(t, err)

	w.Label = "cog"
	_, err = sess.Merge(ctx, w)
	assert.ErrorIs(t, err, ErrStaleEntity)
	assert.False(t, sess.Contains(w))
}

func TestFailedMergeLeavesTrackedInstance(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.NewCreateTable().Model((*tag)(nil)).IfNotExists().Exec(ctx)
	require.NoError(t, err)

	sess := Open(db)
	defer sess.Close()

	a, b := &tag{Name: "a"}, &tag{Name: "b"}
	require.NoError(t, sess.Insert(ctx, a))
	require.NoError(t, sess.Insert(ctx, b))

	_, err = sess.Merge(ctx, &tag{ID: b.ID, Name: "a"})
	require.Error(t, err)
	assert.Equal(t, "b", b.Name)
	assert.True(t, sess.Contains(b))
}

func TestDetachType(t *testing.T) {
	ctx := context.Background()
	sess := Open(openTestDB(t))
	defer sess.Close()

	w1, w2 := &widget{Label: "gear"}, &widget{Label: "cog"}
	require.NoError(t, sess.Insert(ctx, w1))
	require.NoError(t, sess.Insert(ctx, w2))

	sess.DetachType((*tag)(nil))
	assert.Equal(t, 2, sess.Len())

	sess.DetachType((*widget)(nil))
	assert.Equal(t, 0, sess.Len())
	assert.False(t, sess.Contains(w1))
}
