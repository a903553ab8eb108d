package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

const watchURL = "https://www.youtube.com/watch?v="

// ExtractFunc runs an extraction for url and returns the raw single-JSON dump.
type ExtractFunc func(ctx context.Context, url string) ([]byte, error)

// YTDLP extracts formats with a local yt-dlp binary. Its payload is the flat formats list with acodec/abr.
type YTDLP struct {
	timeout time.Duration
	extract ExtractFunc
	logger  *log.Logger
}

var _ StreamSource = (*YTDLP)(nil)

// NewYTDLP creates the local extractor. A nil extract uses the yt-dlp binary on PATH.
func NewYTDLP(timeout time.Duration, extract ExtractFunc, logger *log.Logger) *YTDLP {
	if extract == nil {
		extract = dumpSingleJSON
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &YTDLP{timeout: timeout, extract: extract, logger: shared.WithLogger(logger, "provider", KindYTDLP)}
}

func dumpSingleJSON(ctx context.Context, url string) ([]byte, error) {
	res, err := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		NoWarnings().
		SkipDownload().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}
	return []byte(res.Stdout), nil
}

func (p *YTDLP) Name() string           { return string(KindYTDLP) }
func (p *YTDLP) Kind() Kind             { return KindYTDLP }
func (p *YTDLP) Timeout() time.Duration { return p.timeout }

type ytdlpInfo struct {
	Title     string     `json:"title"`
	Uploader  string     `json:"uploader"`
	Channel   string     `json:"channel"`
	Thumbnail string     `json:"thumbnail"`
	Duration  looseInt   `json:"duration"`
	Formats   FormatList `json:"formats"`
}

// Streams runs yt-dlp for the watch URL of id.
func (p *YTDLP) Streams(ctx context.Context, id string) (*StreamSet, error) {
	out, err := p.extract(ctx, watchURL+id)
	if err != nil {
		return nil, wrapErr(p.Name(), "streams", id, err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, wrapErr(p.Name(), "streams", id, fmt.Errorf("%w: failed to decode yt-dlp output: %v", shared.ErrProviderUnavailable, err))
	}

	return &StreamSet{
		Formats:   info.Formats,
		Title:     info.Title,
		Uploader:  firstNonEmpty(info.Uploader, info.Channel),
		Thumbnail: info.Thumbnail,
		Duration:  int(info.Duration),
	}, nil
}
