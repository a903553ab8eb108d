package providers

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/altplay/internal/models"
)

// Kind tags the adapter variant.
type Kind string

const (
	KindInvidious Kind = "invidious"
	KindPiped     Kind = "piped"
	KindYTDLP     Kind = "ytdlp"
)

// StreamSource extracts the playable formats of a video id.
type StreamSource interface {
	Name() string
	Kind() Kind
	Timeout() time.Duration
	Streams(ctx context.Context, id string) (*StreamSet, error)
}

// SearchSource maps a free text query onto search hits.
type SearchSource interface {
	Name() string
	Kind() Kind
	Timeout() time.Duration
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Format is one normalized media format.
type Format struct {
	MediaType string
	URL       string
	Bitrate   int
}

// IsAudio reports whether the format may be used as an audio stream.
// Entries whose shape carries no media type are accepted.
func (f Format) IsAudio() bool {
	return f.MediaType == "" || strings.HasPrefix(f.MediaType, "audio/")
}

// StreamSet is the normalized output of a [StreamSource].
type StreamSet struct {
	Formats   []Format
	Title     string
	Uploader  string
	Thumbnail string
	Duration  int
}

// Best returns the highest-bitrate usable audio format. Ties keep the first seen.
func (s *StreamSet) Best() (Format, bool) {
	var (
		best  Format
		found bool
	)
	for _, f := range s.Formats {
		if f.URL == "" || !f.IsAudio() {
			continue
		}
		if !found || f.Bitrate > best.Bitrate {
			best, found = f, true
		}
	}
	return best, found
}

// ThumbnailFor is the thumbnail used when a provider omits one.
func ThumbnailFor(id string) string {
	return "https://i.ytimg.com/vi/" + id + "/mqdefault.jpg"
}
