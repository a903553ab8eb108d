package player

import (
	"math/rand/v2"
	"testing"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracks(keys ...string) []models.TrackRef {
	out := make([]models.TrackRef, len(keys))
	for i, k := range keys {
		out[i] = models.TrackRef{ID: k, Origin: models.OriginSearch, Title: "Track " + k, Artist: "Artist"}
	}
	return out
}

func TestQueue(t *testing.T) {
	t.Run("NewQueue clamps the index", func(t *testing.T) {
		q := NewQueue(tracks("a", "b"), 5)
		assert.Equal(t, 1, q.Index())
		q = NewQueue(tracks("a", "b"), -3)
		assert.Equal(t, 0, q.Index())
		q = NewQueue(nil, 4)
		assert.Equal(t, 0, q.Index())
		_, ok := q.Current()
		assert.False(t, ok)
	})

	t.Run("RemoveAt before current shifts the index", func(t *testing.T) {
		q := NewQueue(tracks("a", "b", "c"), 2)
		removed, ok := q.RemoveAt(0)
		require.True(t, ok)
		assert.Equal(t, "a", removed.ID)
		cur, _ := q.Current()
		assert.Equal(t, "c", cur.ID)
	})

	t.Run("RemoveAt of the last current track moves to the new last", func(t *testing.T) {
		q := NewQueue(tracks("a", "b", "c"), 2)
		q.RemoveAt(2)
		assert.Equal(t, 1, q.Index())
	})

	t.Run("RemoveAt keeps the caller's slice intact", func(t *testing.T) {
		src := tracks("a", "b", "c")
		q := NewQueue(src, 0)
		q.RemoveAt(1)
		assert.Equal(t, "b", src[1].ID)
		assert.Equal(t, 2, q.Len())
	})

	t.Run("RemoveAt out of range", func(t *testing.T) {
		q := NewQueue(tracks("a"), 0)
		_, ok := q.RemoveAt(3)
		assert.False(t, ok)
	})
}

func TestQueueNavigation(t *testing.T) {
	noRand := func(int) int { panic("rand called") }

	t.Run("repeat off stops at both ends", func(t *testing.T) {
		q := NewQueue(tracks("t1", "t2", "t3"), 2)
		_, ok := q.NextIndex(models.RepeatOff, false, noRand)
		assert.False(t, ok)

		q.Seek(0)
		_, ok = q.PrevIndex(models.RepeatOff)
		assert.False(t, ok)
	})

	t.Run("repeat all wraps both ways", func(t *testing.T) {
		q := NewQueue(tracks("t1", "t2", "t3"), 2)
		idx, ok := q.NextIndex(models.RepeatAll, false, noRand)
		require.True(t, ok)
		assert.Equal(t, 0, idx)

		q.Seek(0)
		idx, ok = q.PrevIndex(models.RepeatAll)
		require.True(t, ok)
		assert.Equal(t, 2, idx)
	})

	t.Run("repeat one wraps like repeat all for explicit navigation", func(t *testing.T) {
		q := NewQueue(tracks("t1", "t2"), 1)
		idx, ok := q.NextIndex(models.RepeatOne, false, noRand)
		require.True(t, ok)
		assert.Zero(t, idx)
	})

	t.Run("shuffle never picks the current index", func(t *testing.T) {
		q := NewQueue(tracks("a", "b", "c"), 0)
		idx, ok := q.NextIndex(models.RepeatOff, true, func(n int) int { return 0 })
		require.True(t, ok)
		assert.Equal(t, 1, idx)

		q.Seek(2)
		idx, _ = q.NextIndex(models.RepeatOff, true, func(n int) int { return n - 1 })
		assert.Equal(t, 1, idx)
	})

	t.Run("shuffle with one track follows repeat", func(t *testing.T) {
		q := NewQueue(tracks("a"), 0)
		_, ok := q.NextIndex(models.RepeatOff, true, noRand)
		assert.False(t, ok)
		idx, ok := q.NextIndex(models.RepeatAll, true, noRand)
		assert.True(t, ok)
		assert.Zero(t, idx)
	})

	t.Run("index stays in range for any sequence", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		modes := []models.RepeatMode{models.RepeatOff, models.RepeatAll, models.RepeatOne}

		for trial := range 200 {
			n := 1 + rng.IntN(6)
			q := NewQueue(tracks(make([]string, n)...), rng.IntN(n))
			mode := modes[trial%3]
			shuffle := trial%2 == 0

			for range 50 {
				var idx int
				var ok bool
				if rng.IntN(2) == 0 {
					idx, ok = q.NextIndex(mode, shuffle, rng.IntN)
				} else {
					idx, ok = q.PrevIndex(mode)
				}
				if ok {
					require.True(t, q.Seek(idx))
				}
				require.GreaterOrEqual(t, q.Index(), 0)
				require.Less(t, q.Index(), q.Len())
			}
		}
	})
}
