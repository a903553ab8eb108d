package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
)

// WriteResults renders search results to w.
func WriteResults(w io.Writer, results []models.SearchResult, format string) error {
	switch format {
	case FormatJSON:
		if results == nil {
			results = []models.SearchResult{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"ID", "Title", "Uploader", "Duration", "Thumbnail"}); err != nil {
			return err
		}
		for _, r := range results {
			if err := cw.Write([]string{r.ID, r.Title, r.Uploader, shared.FormatDuration(r.Duration), r.Thumbnail}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatMarkdown:
		if _, err := fmt.Fprintln(w, "| # | Title | Uploader | Duration | ID |\n|---|---|---|---|---|"); err != nil {
			return err
		}
		for i, r := range results {
			if _, err := fmt.Fprintf(w, "| %d | %s | %s | %s | `%s` |\n", i+1, r.Title, r.Uploader, shared.FormatDuration(r.Duration), r.ID); err != nil {
				return err
			}
		}
		return nil
	case FormatText, "":
		if len(results) == 0 {
			_, err := fmt.Fprintln(w, "No results.")
			return err
		}
		for i, r := range results {
			if _, err := fmt.Fprintf(w, "%2d. %s - %s [%s] (%s)\n", i+1, r.Uploader, r.Title, shared.FormatDuration(r.Duration), r.ID); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteDescriptor renders a resolved stream to w as JSON or "key: value" lines.
func WriteDescriptor(w io.Writer, desc *models.StreamDescriptor, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	}

	lines := [][2]string{
		{"Title", desc.Title},
		{"Uploader", desc.Uploader},
		{"ID", desc.TrackID},
		{"Duration", shared.FormatDuration(desc.Duration)},
		{"Provider", desc.Provider},
		{"URL", desc.URL},
	}
	if desc.Bitrate > 0 {
		lines = append(lines, [2]string{"Bitrate", strconv.Itoa(desc.Bitrate)})
	}
	for _, l := range lines {
		if l[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-9s %s\n", l[0]+":", l[1]); err != nil {
			return err
		}
	}
	return nil
}
