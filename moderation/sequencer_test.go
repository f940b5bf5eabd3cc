package moderation

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencerPersistsBeforeReturning(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newFaultyStore()
	seq := NewSequencer(store, 0)

	id, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.EqualValues(1, id)

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(1, snap.CaseCounter)
}

func TestSequencerFailureHandsOutNothing(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newFaultyStore()
	seq := NewSequencer(store, 0)

	store.fail("counter", true)
	_, err := seq.Next(ctx)
	assert.ErrorIs(err, ErrPersistence)
	assert.ErrorIs(err, errDiskFull)
	assert.EqualValues(0, seq.Current())

	store.fail("counter", false)
	id, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.EqualValues(1, id)
}

func TestSequencerResumesAbovePersisted(t *testing.T) {
	seq := NewSequencer(newFaultyStore(), 0)
	seq.resume(41)

	id, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestSequencerConcurrentIdsAreDistinct(t *testing.T) {
	ctx := context.Background()
	seq := NewSequencer(newFaultyStore(), 0)
	seq.resume(10)

	const n = 64
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := seq.Next(ctx)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.EqualValues(t, 11+i, id)
	}
}
