package providers

import (
	"context"
	"net/url"

	"github.com/desertthunder/altplay/internal/models"
)

const invidiousVideoFields = "title,author,lengthSeconds,videoThumbnails,adaptiveFormats"

// Invidious talks to one Invidious instance. Its stream payload is the flat adaptiveFormats list.
type Invidious struct {
	httpSource
}

var (
	_ StreamSource = (*Invidious)(nil)
	_ SearchSource = (*Invidious)(nil)
)

// NewInvidious creates an adapter for the instance at baseURL.
func NewInvidious(baseURL string, opts SourceOptions) *Invidious {
	return &Invidious{httpSource: newHTTPSource(KindInvidious, baseURL, opts)}
}

type invidiousVideo struct {
	Title           string      `json:"title"`
	Author          string      `json:"author"`
	LengthSeconds   looseInt    `json:"lengthSeconds"`
	VideoThumbnails []thumbnail `json:"videoThumbnails"`
	AdaptiveFormats FormatList  `json:"adaptiveFormats"`
}

// Streams fetches /api/v1/videos/:id.
func (p *Invidious) Streams(ctx context.Context, id string) (*StreamSet, error) {
	var video invidiousVideo
	q := url.Values{"fields": {invidiousVideoFields}}
	if err := p.getJSON(ctx, "/api/v1/videos/"+url.PathEscape(id), q, &video); err != nil {
		return nil, wrapErr(p.name, "streams", id, err)
	}

	return &StreamSet{
		Formats:   video.AdaptiveFormats,
		Title:     video.Title,
		Uploader:  video.Author,
		Thumbnail: pickThumbnail(video.VideoThumbnails, p.baseURL),
		Duration:  int(video.LengthSeconds),
	}, nil
}

type invidiousSearchItem struct {
	Type            string      `json:"type"`
	VideoID         string      `json:"videoId"`
	Title           string      `json:"title"`
	Author          string      `json:"author"`
	LengthSeconds   looseInt    `json:"lengthSeconds"`
	VideoThumbnails []thumbnail `json:"videoThumbnails"`
}

// Search queries /api/v1/search restricted to videos.
func (p *Invidious) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	var items []invidiousSearchItem
	q := url.Values{"q": {query}, "type": {"video"}}
	if err := p.getJSON(ctx, "/api/v1/search", q, &items); err != nil {
		return nil, wrapErr(p.name, "search", "", err)
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, it := range items {
		if it.Type != "" && it.Type != "video" {
			continue
		}
		results = append(results, models.SearchResult{
			ID:        it.VideoID,
			Title:     it.Title,
			Uploader:  it.Author,
			Thumbnail: pickThumbnail(it.VideoThumbnails, p.baseURL),
			Duration:  int(it.LengthSeconds),
		})
	}
	return results, nil
}
