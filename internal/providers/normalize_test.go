package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFormats(t *testing.T) {
	t.Run("flat invidious list", func(t *testing.T) {
		payload := `[
			{"type": "video/mp4; codecs=\"avc1\"", "url": "v1", "bitrate": "900000"},
			{"type": "audio/webm; codecs=\"opus\"", "url": "a1", "bitrate": "160000"},
			{"type": "audio/mp4; codecs=\"mp4a\"", "url": "a2", "bitrate": 130000}
		]`
		formats, err := DecodeFormats([]byte(payload))
		require.NoError(t, err)
		require.Len(t, formats, 3)
		assert.Equal(t, 160000, formats[1].Bitrate)
		assert.False(t, formats[0].IsAudio())
		assert.True(t, formats[1].IsAudio())
	})

	t.Run("flat yt-dlp list with acodec and abr", func(t *testing.T) {
		payload := `[
			{"url": "x", "acodec": "opus", "vcodec": "none", "abr": 129.5},
			{"url": "y", "acodec": "none", "vcodec": "vp9", "abr": null},
			{"url": "z", "acodec": "mp4a.40.2", "vcodec": "avc1", "abr": 128}
		]`
		formats, err := DecodeFormats([]byte(payload))
		require.NoError(t, err)
		require.Len(t, formats, 3)
		assert.Equal(t, "audio/opus", formats[0].MediaType)
		assert.Equal(t, 129500, formats[0].Bitrate)
		assert.Equal(t, "video/vp9", formats[1].MediaType)
		assert.False(t, formats[2].IsAudio(), "muxed formats are not audio-only")
	})

	t.Run("nested shapes", func(t *testing.T) {
		for _, key := range []string{"streams", "audioStreams", "items"} {
			t.Run(key, func(t *testing.T) {
				payload := `{"title": "x", "` + key + `": [{"url": "u1", "bitrate": 128}, {"url": "u2", "bitrate": 256}]}`
				formats, err := DecodeFormats([]byte(payload))
				require.NoError(t, err)
				require.Len(t, formats, 2)
				assert.Equal(t, "u2", formats[1].URL)
				assert.True(t, formats[0].IsAudio(), "shape without media type is accepted")
			})
		}
	})

	t.Run("empty and null", func(t *testing.T) {
		formats, err := DecodeFormats([]byte(`null`))
		require.NoError(t, err)
		assert.Empty(t, formats)

		formats, err = DecodeFormats([]byte(`{"title": "no formats here"}`))
		require.NoError(t, err)
		assert.Empty(t, formats)
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := DecodeFormats([]byte(`"just a string"`))
		assert.Error(t, err)
	})
}

func TestStreamSetBest(t *testing.T) {
	t.Run("highest bitrate wins", func(t *testing.T) {
		set := StreamSet{Formats: []Format{{URL: "u1", Bitrate: 128}, {URL: "u2", Bitrate: 256}}}
		best, ok := set.Best()
		require.True(t, ok)
		assert.Equal(t, "u2", best.URL)
	})

	t.Run("ties keep the first seen", func(t *testing.T) {
		set := StreamSet{Formats: []Format{{URL: "first", Bitrate: 128}, {URL: "second", Bitrate: 128}}}
		best, _ := set.Best()
		assert.Equal(t, "first", best.URL)
	})

	t.Run("skips video and empty urls", func(t *testing.T) {
		set := StreamSet{Formats: []Format{
			{MediaType: "video/mp4", URL: "v", Bitrate: 999999},
			{MediaType: "audio/mp4", URL: "", Bitrate: 500000},
			{MediaType: "audio/webm", URL: "a", Bitrate: 1000},
		}}
		best, ok := set.Best()
		require.True(t, ok)
		assert.Equal(t, "a", best.URL)
	})

	t.Run("nothing usable", func(t *testing.T) {
		set := StreamSet{Formats: []Format{{MediaType: "video/mp4", URL: "v"}}}
		_, ok := set.Best()
		assert.False(t, ok)
	})
}

func TestLooseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`212.7`, 212},
		{`"3:45"`, 225},
		{`null`, 0},
		{`"?:??"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n looseInt
			require.NoError(t, n.UnmarshalJSON([]byte(tt.in)))
			assert.Equal(t, tt.want, int(n))
		})
	}
}
