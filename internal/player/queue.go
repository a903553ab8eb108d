package player

import "github.com/desertthunder/altplay/internal/models"

// Queue is an index-based track list. The current track stays in the list
// when it finishes; only the index moves.
//
// Invariant: 0 <= index < Len() whenever the queue is not empty.
type Queue struct {
	tracks []models.TrackRef
	index  int
}

// NewQueue copies tracks and clamps index into range.
func NewQueue(tracks []models.TrackRef, index int) Queue {
	q := Queue{tracks: append([]models.TrackRef(nil), tracks...)}
	q.index = q.clamp(index)
	return q
}

func (q *Queue) clamp(i int) int {
	if q.IsEmpty() || i < 0 {
		return 0
	}
	return min(i, q.Len()-1)
}

func (q *Queue) isValidIndex(i int) bool {
	return 0 <= i && i < q.Len()
}

func (q *Queue) Len() int      { return len(q.tracks) }
func (q *Queue) IsEmpty() bool { return q.Len() == 0 }
func (q *Queue) Index() int    { return q.index }

// Current returns the track at the index.
func (q *Queue) Current() (models.TrackRef, bool) {
	if q.IsEmpty() {
		return models.TrackRef{}, false
	}
	return q.tracks[q.index], true
}

// At returns the track at i.
func (q *Queue) At(i int) (models.TrackRef, bool) {
	if !q.isValidIndex(i) {
		return models.TrackRef{}, false
	}
	return q.tracks[i], true
}

// Tracks returns a copy of the list.
func (q *Queue) Tracks() []models.TrackRef {
	return append([]models.TrackRef(nil), q.tracks...)
}

// Seek moves the index to i. Out of range indexes leave the queue unchanged.
func (q *Queue) Seek(i int) bool {
	if !q.isValidIndex(i) {
		return false
	}
	q.index = i
	return true
}

// Append adds tracks to the end.
func (q *Queue) Append(tracks ...models.TrackRef) {
	q.tracks = append(q.tracks, tracks...)
}

// RemoveAt removes the track at i and keeps the index on the same track when
// possible. Removing the current track leaves the index on its successor, or
// on the new last track.
func (q *Queue) RemoveAt(i int) (models.TrackRef, bool) {
	if !q.isValidIndex(i) {
		return models.TrackRef{}, false
	}

	removed := q.tracks[i]
	q.tracks = append(q.tracks[:i:i], q.tracks[i+1:]...)

	switch {
	case q.IsEmpty():
		q.index = 0
	case i < q.index:
		q.index--
	case i == q.index && q.index >= q.Len():
		q.index = q.Len() - 1
	}
	return removed, true
}

// NextIndex computes where Next moves from the current index.
//
// With shuffle and more than one track, rnd picks uniformly among the other
// indexes. Otherwise the index advances by one; past the end it wraps under
// RepeatAll and RepeatOne and stays put under RepeatOff.
func (q *Queue) NextIndex(repeat models.RepeatMode, shuffle bool, rnd func(int) int) (int, bool) {
	n := q.Len()
	if n == 0 {
		return 0, false
	}

	if shuffle && n > 1 {
		r := rnd(n - 1)
		if r >= q.index {
			r++
		}
		return r, true
	}

	if q.index < n-1 {
		return q.index + 1, true
	}
	if repeat == models.RepeatOff {
		return q.index, false
	}
	return 0, true
}

// PrevIndex computes where Prev moves from the current index. Shuffle does not apply.
func (q *Queue) PrevIndex(repeat models.RepeatMode) (int, bool) {
	n := q.Len()
	if n == 0 {
		return 0, false
	}
	if q.index > 0 {
		return q.index - 1, true
	}
	if repeat == models.RepeatOff {
		return q.index, false
	}
	return n - 1, true
}
