package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/altplay/internal/shared"
)

// nestedKeys are the container keys probed, in order, when a payload is an object rather than a list.
var nestedKeys = []string{"streams", "audioStreams", "items", "adaptiveFormats", "formats"}

// looseInt decodes JSON numbers, numeric strings, "m:ss" durations and null.
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = looseInt(f)
		return nil
	}
	*n = looseInt(shared.ParseDuration(s))
	return nil
}

// formatEntry is the union of the per-format fields the upstreams use.
type formatEntry struct {
	Type      string   `json:"type"`
	MediaType string   `json:"mediaType"`
	MimeType  string   `json:"mimeType"`
	ACodec    string   `json:"acodec"`
	VCodec    string   `json:"vcodec"`
	URL       string   `json:"url"`
	Bitrate   looseInt `json:"bitrate"`
	ABR       float64  `json:"abr"`
}

func (e formatEntry) format() Format {
	mediaType := firstNonEmpty(e.Type, e.MediaType, e.MimeType)
	if mediaType == "" && (e.ACodec != "" || e.VCodec != "") {
		if e.ACodec != "" && e.ACodec != "none" && (e.VCodec == "" || e.VCodec == "none") {
			mediaType = "audio/" + e.ACodec
		} else {
			mediaType = "video/" + e.VCodec
		}
	}

	bitrate := int(e.Bitrate)
	if bitrate == 0 && e.ABR > 0 {
		bitrate = int(e.ABR * 1000)
	}
	return Format{MediaType: mediaType, URL: e.URL, Bitrate: bitrate}
}

// FormatList decodes either payload shape into a flat list of formats.
type FormatList []Format

func (l *FormatList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}

	switch b[0] {
	case '[':
		var entries []formatEntry
		if err := json.Unmarshal(b, &entries); err != nil {
			return fmt.Errorf("decode format list: %w", err)
		}
		out := make(FormatList, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.format())
		}
		*l = out
		return nil
	case '{':
		var container map[string]json.RawMessage
		if err := json.Unmarshal(b, &container); err != nil {
			return fmt.Errorf("decode format container: %w", err)
		}
		for _, key := range nestedKeys {
			if raw, ok := container[key]; ok {
				return l.UnmarshalJSON(raw)
			}
		}
		*l = nil
		return nil
	default:
		return fmt.Errorf("decode formats: unexpected payload starting with %q", b[0])
	}
}

// DecodeFormats normalizes a raw provider payload of either shape.
func DecodeFormats(data []byte) ([]Format, error) {
	var l FormatList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return l, nil
}

type thumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// pickThumbnail prefers the "medium" quality, then the first entry.
func pickThumbnail(thumbs []thumbnail, base string) string {
	var chosen string
	for _, t := range thumbs {
		if t.Quality == "medium" {
			chosen = t.URL
			break
		}
	}
	if chosen == "" && len(thumbs) > 0 {
		chosen = thumbs[0].URL
	}
	if strings.HasPrefix(chosen, "/") {
		chosen = strings.TrimSuffix(base, "/") + chosen
	}
	return chosen
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
