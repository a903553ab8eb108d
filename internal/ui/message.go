package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/player"
	"github.com/desertthunder/altplay/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgEngineStopped
	MsgResultsFetched
	MsgPlaylistsFetched
	MsgPlaylistLoaded
	MsgIntentFailed
)

type resultsData struct {
	query   string
	results []models.SearchResult
	err     error
}

type playlistsData struct {
	playlists []services.CatalogPlaylist
	err       error
}

type playlistData struct {
	export *formatter.Export
	err    error
}

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(s player.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: s}
}

// engineStoppedMsg is the constructor for [MsgEngineStopped]
func engineStoppedMsg() Msg {
	return Msg{kind: MsgEngineStopped}
}

// resultsFetchedMsg is the constructor for [MsgResultsFetched]. An empty query means trending.
func resultsFetchedMsg(query string, results []models.SearchResult, err error) Msg {
	return Msg{kind: MsgResultsFetched, data: resultsData{query, results, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []services.CatalogPlaylist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsData{playlists, err}}
}

// playlistLoadedMsg is the constructor for [MsgPlaylistLoaded]
func playlistLoadedMsg(export *formatter.Export, err error) Msg {
	return Msg{kind: MsgPlaylistLoaded, data: playlistData{export, err}}
}

// intentFailedMsg is the constructor for [MsgIntentFailed]
func intentFailedMsg(err error) Msg {
	return Msg{kind: MsgIntentFailed, data: err}
}
