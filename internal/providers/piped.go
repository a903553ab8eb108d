package providers

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/desertthunder/altplay/internal/models"
)

// Piped talks to one Piped API instance. Its stream payload nests formats under audioStreams.
type Piped struct {
	httpSource
}

var (
	_ StreamSource = (*Piped)(nil)
	_ SearchSource = (*Piped)(nil)
)

// NewPiped creates an adapter for the instance at baseURL.
func NewPiped(baseURL string, opts SourceOptions) *Piped {
	return &Piped{httpSource: newHTTPSource(KindPiped, baseURL, opts)}
}

type pipedStreams struct {
	Title        string   `json:"title"`
	Uploader     string   `json:"uploader"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Duration     looseInt `json:"duration"`
}

// Streams fetches /streams/:id.
func (p *Piped) Streams(ctx context.Context, id string) (*StreamSet, error) {
	var raw json.RawMessage
	if err := p.getJSON(ctx, "/streams/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, wrapErr(p.name, "streams", id, err)
	}

	var meta pipedStreams
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, wrapErr(p.name, "streams", id, err)
	}
	formats, err := DecodeFormats(raw)
	if err != nil {
		return nil, wrapErr(p.name, "streams", id, err)
	}

	return &StreamSet{
		Formats:   formats,
		Title:     meta.Title,
		Uploader:  meta.Uploader,
		Thumbnail: meta.ThumbnailURL,
		Duration:  int(meta.Duration),
	}, nil
}

type pipedSearchItem struct {
	URL          string   `json:"url"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	UploaderName string   `json:"uploaderName"`
	Thumbnail    string   `json:"thumbnail"`
	Duration     looseInt `json:"duration"`
}

type pipedSearchPage struct {
	Items []pipedSearchItem `json:"items"`
}

// Search queries /search with the videos filter.
func (p *Piped) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	var page pipedSearchPage
	q := url.Values{"q": {query}, "filter": {"videos"}}
	if err := p.getJSON(ctx, "/search", q, &page); err != nil {
		return nil, wrapErr(p.name, "search", "", err)
	}

	results := make([]models.SearchResult, 0, len(page.Items))
	for _, it := range page.Items {
		if it.Type != "" && it.Type != "stream" {
			continue
		}
		results = append(results, models.SearchResult{
			ID:        videoIDFromURL(it.URL),
			Title:     it.Title,
			Uploader:  it.UploaderName,
			Thumbnail: it.Thumbnail,
			Duration:  int(it.Duration),
		})
	}
	return results, nil
}

// videoIDFromURL extracts the id from "/watch?v=<id>"; bare ids pass through.
func videoIDFromURL(s string) string {
	if !strings.Contains(s, "?") {
		return strings.TrimPrefix(s, "/")
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}
