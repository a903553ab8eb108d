// Package ui implements the terminal player using bubbletea's Elm architecture.
//
// The TUI never drives playback itself. It dispatches intents (select, next, toggle, seek...) to a
// [Player] and redraws from the snapshots the player publishes. Views:
//  1. [ResultsView] : trending tracks on start, search results after "/"
//  2. [QueueView] : the play queue with the current track marked
//  3. [LibraryView] : catalog playlists, only when a [Library] is available
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Snapshots arrive through a subscription channel read by a tea.Cmd that re-arms after each message.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
