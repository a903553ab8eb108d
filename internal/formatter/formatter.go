// package formatter renders track lists, resolved streams and search results as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/hashicorp/go-retryablehttp"
)

// Supported formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Entry is one track of an export and, once resolved, its stream.
type Entry struct {
	Track  models.TrackRef          `json:"track"`
	Stream *models.StreamDescriptor `json:"stream,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// Export is a named track list, typically a catalog playlist.
type Export struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Artwork     string    `json:"artwork,omitempty"`
	Entries     []Entry   `json:"entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewExport wraps tracks in an [Export] without streams.
func NewExport(id, name string, tracks []models.TrackRef) *Export {
	entries := make([]Entry, len(tracks))
	for i, t := range tracks {
		entries[i] = Entry{Track: t}
	}
	return &Export{ID: id, Name: name, Entries: entries, GeneratedAt: time.Now().UTC()}
}

// Tracks returns the exported tracks in order.
func (e *Export) Tracks() []models.TrackRef {
	out := make([]models.TrackRef, len(e.Entries))
	for i, en := range e.Entries {
		out[i] = en.Track
	}
	return out
}

// Resolved counts the entries with a stream.
func (e *Export) Resolved() int {
	n := 0
	for _, en := range e.Entries {
		if en.Stream != nil {
			n++
		}
	}
	return n
}

// ValidFormat reports whether format is one of the supported formats.
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
		return true
	}
	return false
}

// ExportToCSV renders one row per entry: ID, Title, Artist, Duration, Provider, Stream URL, Error.
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"ID", "Title", "Artist", "Duration", "Provider", "Stream URL", "Error"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, en := range export.Entries {
		var provider, streamURL string
		if en.Stream != nil {
			provider, streamURL = en.Stream.Provider, en.Stream.URL
		}
		record := []string{
			en.Track.ID,
			en.Track.Title,
			en.Track.Artist,
			strconv.Itoa(en.Track.Duration),
			provider,
			streamURL,
			en.Error,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading, an optional cover image and a numbered track list.
// Resolved tracks link to their stream.
func ExportToMarkdown(export *Export, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if export.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Description)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Entries))
	fmt.Fprintf(&buf, "**Resolved**: %d\n\n", export.Resolved())

	buf.WriteString("## Tracks\n\n")
	for i, en := range export.Entries {
		line := fmt.Sprintf("%s - %s [%s]", en.Track.Artist, en.Track.Title, shared.FormatDuration(en.Track.Duration))
		switch {
		case en.Stream != nil:
			line = fmt.Sprintf("%s ([%s](%s))", line, en.Stream.Provider, en.Stream.URL)
		case en.Error != "":
			line = fmt.Sprintf("%s _(%s)_", line, en.Error)
		}
		fmt.Fprintf(&buf, "%d. %s\n", i+1, line)
	}
	return buf.Bytes(), nil
}

// ExportToText renders a short header and "artist - title" lines.
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Name)
	if export.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Entries))

	for i, en := range export.Entries {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, en.Track.Artist, en.Track.Title)
	}
	return buf.Bytes(), nil
}

// ExportToJSON renders the whole export, indented.
func ExportToJSON(export *Export) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// DownloadImage fetches an image, retrying transient failures.
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidInput)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// Write renders export in format under dir and returns the files it created.
// Markdown gets its own directory with a README.md and, when imageURL loads, a cover.jpg.
func Write(ctx context.Context, export *Export, format, dir, imageURL string) ([]string, error) {
	base := filepath.Join(dir, fileBase(export))

	switch format {
	case FormatCSV:
		return writeFile(base+"_tracks.csv", export, ExportToCSV)
	case FormatText:
		return writeFile(base+"_tracks.txt", export, ExportToText)
	case FormatMarkdown:
		return WriteMarkdownExport(ctx, export, base, imageURL)
	case FormatJSON, "":
		return writeFile(base+".json", export, ExportToJSON)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteMarkdownExport writes {dir}/README.md and optionally {dir}/cover.jpg.
// A cover that fails to download is skipped.
func WriteMarkdownExport(ctx context.Context, export *Export, dir, imageURL string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var files []string
	var cover string
	if imageURL != "" {
		if data, err := DownloadImage(ctx, imageURL); err == nil {
			path := filepath.Join(dir, "cover.jpg")
			if err := os.WriteFile(path, data, 0o644); err == nil {
				cover = "cover.jpg"
				files = append(files, path)
			}
		}
	}

	data, err := ExportToMarkdown(export, cover)
	if err != nil {
		return nil, err
	}
	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return append(files, readme), nil
}

func writeFile(path string, export *Export, render func(*Export) ([]byte, error)) ([]string, error) {
	data, err := render(export)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return []string{path}, nil
}

func fileBase(export *Export) string {
	if export.ID != "" {
		return export.ID
	}
	return "export"
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
