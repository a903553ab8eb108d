package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackRef(t *testing.T) {
	t.Run("Key", func(t *testing.T) {
		assert.Equal(t, "abc", TrackRef{ID: "abc", Title: "Song"}.Key())
		assert.Equal(t, "Song", TrackRef{Title: "Song"}.Key())
	})

	t.Run("ResolveQuery", func(t *testing.T) {
		tr := TrackRef{Title: "Around the World", Artist: "Daft Punk", Origin: OriginCatalog}
		assert.Equal(t, "Around the World Daft Punk audio", tr.ResolveQuery())
		assert.Equal(t, "Intro audio", TrackRef{Title: " Intro "}.ResolveQuery())
	})

	t.Run("TrackFromResult", func(t *testing.T) {
		tr := TrackFromResult(SearchResult{ID: "v1", Title: "T", Uploader: "U", Thumbnail: "th", Duration: 90})
		assert.Equal(t, OriginSearch, tr.Origin)
		assert.Equal(t, "v1", tr.ID)
		assert.Equal(t, "U", tr.Artist)
		assert.Equal(t, 90, tr.Duration)
		assert.Equal(t, "T - U", tr.String())
	})

	t.Run("IsZero", func(t *testing.T) {
		assert.True(t, TrackRef{}.IsZero())
		assert.False(t, TrackRef{Title: "x"}.IsZero())
	})
}

func TestRepeatMode(t *testing.T) {
	tests := []struct {
		in   string
		want RepeatMode
	}{
		{"off", RepeatOff},
		{"ALL", RepeatAll},
		{" one ", RepeatOne},
		{"", RepeatOff},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepeatMode(tt.in)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseRepeatMode("twice")
	assert.Error(t, err)

	assert.Equal(t, RepeatAll, RepeatOff.Next())
	assert.Equal(t, RepeatOne, RepeatAll.Next())
	assert.Equal(t, RepeatOff, RepeatOne.Next())
	assert.Equal(t, "one", RepeatOne.String())
}
