package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/services"
	"github.com/desertthunder/altplay/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = resultItem{}
	_ list.Item = queueItem{}
)

// playlistItem wraps [services.CatalogPlaylist] to implement [list.Item].
type playlistItem struct {
	playlist services.CatalogPlaylist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.Tracks.Total)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// resultItem wraps a search hit.
type resultItem struct {
	result models.SearchResult
}

func (i resultItem) FilterValue() string { return i.result.Title }
func (i resultItem) Title() string       { return i.result.Title }
func (i resultItem) Description() string {
	return fmt.Sprintf("%s • %s", i.result.Uploader, shared.FormatDuration(i.result.Duration))
}

// queueItem is one queue entry; current marks the selected track.
type queueItem struct {
	track   models.TrackRef
	current bool
}

func (i queueItem) FilterValue() string { return i.track.Title }
func (i queueItem) Title() string {
	if i.current {
		return "▶ " + i.track.Title
	}
	return i.track.Title
}
func (i queueItem) Description() string {
	desc := i.track.Artist
	if i.track.Duration > 0 {
		desc = fmt.Sprintf("%s • %s", desc, shared.FormatDuration(i.track.Duration))
	}
	return desc
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}
