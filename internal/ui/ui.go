package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/player"
	"github.com/desertthunder/altplay/internal/services"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/desertthunder/altplay/internal/tasks"
)

const (
	seekStep   = 10 * time.Second
	volumeStep = 0.1
	barWidth   = 30
	chromeRows = 12
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ResultsView ViewState = iota
	QueueView
	LibraryView
)

func (v ViewState) String() string {
	switch v {
	case QueueView:
		return "Queue"
	case LibraryView:
		return "Library"
	default:
		return "Search"
	}
}

// Player is the playback engine as seen by the TUI: intents in, snapshots out.
type Player interface {
	Snapshot() player.Snapshot
	Subscribe() (<-chan player.Snapshot, func())
	SetQueue(ctx context.Context, tracks []models.TrackRef, start int) error
	Enqueue(ctx context.Context, tracks ...models.TrackRef) error
	Select(ctx context.Context, index int) error
	Remove(ctx context.Context, index int) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Toggle(ctx context.Context) error
	Seek(ctx context.Context, pos time.Duration) error
	SetShuffle(ctx context.Context, on bool) error
	SetRepeat(ctx context.Context, mode models.RepeatMode) error
	SetVolume(ctx context.Context, v float64) error
}

// Searcher finds tracks. Implemented by the local pipeline and the backend client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Trending(ctx context.Context) ([]models.SearchResult, error)
}

// Library browses the catalog. It is optional.
type Library interface {
	Playlists(ctx context.Context, progress chan<- tasks.ProgressUpdate) ([]services.CatalogPlaylist, error)
	Load(ctx context.Context, progress chan<- tasks.ProgressUpdate, idOrName string) (*formatter.Export, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	player      Player
	searcher    Searcher
	library     Library
	updates     <-chan player.Snapshot
	unsubscribe func()
	snap        player.Snapshot
	width       int
	height      int
	input       textinput.Model
	searching   bool
	query       string
	resultList  list.Model
	results     []models.SearchResult
	queueList   list.Model
	libraryList list.Model
	notice      string
	help        help.Model
	keys        keyMap
}

// NewModel creates a TUI model and subscribes to the player's snapshots. library may be nil.
func NewModel(ctx context.Context, p Player, searcher Searcher, library Library) *Model {
	input := textinput.New()
	input.Placeholder = "Search for a track"
	input.Prompt = "/ "
	input.CharLimit = 200

	updates, unsubscribe := p.Subscribe()
	m := &Model{
		ctx:         ctx,
		view:        ResultsView,
		player:      p,
		searcher:    searcher,
		library:     library,
		updates:     updates,
		unsubscribe: unsubscribe,
		snap:        p.Snapshot(),
		input:       input,
		resultList:  newList("Trending", nil),
		queueList:   newList("Queue", nil),
		libraryList: newList("Library", nil),
		help:        help.New(),
		keys:        newKeyMap(),
	}
	m.syncQueue()
	return m
}

// Close stops the snapshot subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init starts listening for snapshots and loads trending tracks.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForSnapshot(), m.fetchResults("")}
	if m.library != nil {
		cmds = append(cmds, m.fetchPlaylists())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshot:
		m.snap = msg.data.(player.Snapshot)
		m.syncQueue()
		return m, m.waitForSnapshot()

	case MsgEngineStopped:
		return m, tea.Quit

	case MsgResultsFetched:
		data := msg.data.(resultsData)
		if data.err != nil {
			m.notice = searchNotice(data.err)
			return m, nil
		}
		m.notice = ""
		m.results = data.results
		items := make([]list.Item, len(data.results))
		for i, r := range data.results {
			items[i] = resultItem{result: r}
		}
		m.resultList.SetItems(items)
		m.resultList.ResetSelected()
		if data.query == "" {
			m.resultList.Title = "Trending"
		} else {
			m.resultList.Title = fmt.Sprintf("Results for '%s'", data.query)
			if len(items) == 0 {
				m.notice = "No results."
			}
		}
		return m, nil

	case MsgPlaylistsFetched:
		data := msg.data.(playlistsData)
		if data.err != nil {
			m.notice = fmt.Sprintf("Library unavailable: %v", data.err)
			return m, nil
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.libraryList.SetItems(items)
		return m, nil

	case MsgPlaylistLoaded:
		data := msg.data.(playlistData)
		if data.err != nil {
			m.notice = fmt.Sprintf("Could not load playlist: %v", data.err)
			return m, nil
		}
		tracks := data.export.Tracks()
		if len(tracks) == 0 {
			m.notice = fmt.Sprintf("%s is empty.", data.export.Name)
			return m, nil
		}
		m.notice = fmt.Sprintf("Playing %s (%d tracks)", data.export.Name, len(tracks))
		m.view = QueueView
		return m, m.dispatch(func(ctx context.Context) error { return m.player.SetQueue(ctx, tracks, 0) })

	case MsgIntentFailed:
		err := msg.data.(error)
		if errors.Is(err, player.ErrEngineStopped) {
			return m, tea.Quit
		}
		m.notice = err.Error()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		q := strings.TrimSpace(m.input.Value())
		m.searching = false
		m.input.Blur()
		if q == "" {
			return m, nil
		}
		m.query = q
		m.view = ResultsView
		m.notice = "Searching..."
		return m, m.fetchResults(q)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.input.SetValue(m.query)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.tab):
		m.view = m.nextView()
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.view = ResultsView
		return m, nil

	case key.Matches(msg, m.keys.toggle):
		return m, m.dispatch(m.player.Toggle)
	case key.Matches(msg, m.keys.next):
		return m, m.dispatch(m.player.Next)
	case key.Matches(msg, m.keys.prev):
		return m, m.dispatch(m.player.Prev)
	case key.Matches(msg, m.keys.seekBack):
		pos := max(m.snap.Position-seekStep, 0)
		return m, m.dispatch(func(ctx context.Context) error { return m.player.Seek(ctx, pos) })
	case key.Matches(msg, m.keys.seekFwd):
		pos := m.snap.Position + seekStep
		if m.snap.Duration > 0 {
			pos = min(pos, m.snap.Duration)
		}
		return m, m.dispatch(func(ctx context.Context) error { return m.player.Seek(ctx, pos) })
	case key.Matches(msg, m.keys.shuffle):
		on := !m.snap.Shuffle
		return m, m.dispatch(func(ctx context.Context) error { return m.player.SetShuffle(ctx, on) })
	case key.Matches(msg, m.keys.repeat):
		mode := m.snap.Repeat.Next()
		return m, m.dispatch(func(ctx context.Context) error { return m.player.SetRepeat(ctx, mode) })
	case key.Matches(msg, m.keys.volUp):
		v := min(m.snap.Volume+volumeStep, 1)
		return m, m.dispatch(func(ctx context.Context) error { return m.player.SetVolume(ctx, v) })
	case key.Matches(msg, m.keys.volDown):
		v := max(m.snap.Volume-volumeStep, 0)
		return m, m.dispatch(func(ctx context.Context) error { return m.player.SetVolume(ctx, v) })
	}

	switch m.view {
	case ResultsView:
		return m.handleResultKeys(msg)
	case QueueView:
		return m.handleQueueKeys(msg)
	case LibraryView:
		return m.handleLibraryKeys(msg)
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := m.resultList.Index()
	switch {
	case key.Matches(msg, m.keys.enter):
		if idx < 0 || idx >= len(m.results) {
			return m, nil
		}
		tracks := resultTracks(m.results)
		m.view = QueueView
		return m, m.dispatch(func(ctx context.Context) error { return m.player.SetQueue(ctx, tracks, idx) })
	case key.Matches(msg, m.keys.enqueue):
		if idx < 0 || idx >= len(m.results) {
			return m, nil
		}
		track := models.TrackFromResult(m.results[idx])
		m.notice = fmt.Sprintf("Added %s", track)
		return m, m.dispatch(func(ctx context.Context) error { return m.player.Enqueue(ctx, track) })
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := m.queueList.Index()
	switch {
	case key.Matches(msg, m.keys.enter):
		if idx < 0 || idx >= len(m.snap.Queue) {
			return m, nil
		}
		return m, m.dispatch(func(ctx context.Context) error { return m.player.Select(ctx, idx) })
	case key.Matches(msg, m.keys.remove):
		if idx < 0 || idx >= len(m.snap.Queue) {
			return m, nil
		}
		return m, m.dispatch(func(ctx context.Context) error { return m.player.Remove(ctx, idx) })
	}

	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.enter) {
		if selected, ok := m.libraryList.SelectedItem().(playlistItem); ok {
			m.notice = fmt.Sprintf("Loading %s...", selected.playlist.Name)
			return m, m.loadPlaylist(selected.playlist.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.libraryList, cmd = m.libraryList.Update(msg)
	return m, cmd
}

func (m *Model) nextView() ViewState {
	switch m.view {
	case ResultsView:
		return QueueView
	case QueueView:
		if m.library != nil {
			return LibraryView
		}
	}
	return ResultsView
}

// syncQueue rebuilds the queue list from the latest snapshot.
func (m *Model) syncQueue() {
	items := make([]list.Item, len(m.snap.Queue))
	for i, t := range m.snap.Queue {
		items[i] = queueItem{track: t, current: i == m.snap.Index && m.snap.HasTrack()}
	}
	m.queueList.SetItems(items)
	if n := len(items); n > 0 && m.queueList.Index() >= n {
		m.queueList.Select(n - 1)
	}
	m.queueList.Title = fmt.Sprintf("Queue (%d)", len(items))
}

func (m *Model) resize() {
	rows := chromeRows
	if m.help.ShowAll {
		rows += 4
	}
	w, h := max(m.width-4, 0), max(m.height-rows, 0)
	m.resultList.SetSize(w, h)
	m.queueList.SetSize(w, h)
	m.libraryList.SetSize(w, h)
	m.input.Width = max(m.width-6, 10)
}

func (m *Model) dispatch(intent func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := intent(m.ctx); err != nil {
			return intentFailedMsg(err)
		}
		return nil
	}
}

// waitForSnapshot blocks on the subscription; a closed channel means the engine stopped.
func (m *Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		if updates == nil {
			return nil
		}
		s, ok := <-updates
		if !ok {
			return engineStoppedMsg()
		}
		return snapshotMsg(s)
	}
}

func (m *Model) fetchResults(query string) tea.Cmd {
	return func() tea.Msg {
		var (
			results []models.SearchResult
			err     error
		)
		if query == "" {
			results, err = m.searcher.Trending(m.ctx)
		} else {
			results, err = m.searcher.Search(m.ctx, query)
		}
		return resultsFetchedMsg(query, results, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.Playlists(m.ctx, nil)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) loadPlaylist(id string) tea.Cmd {
	return func() tea.Msg {
		export, err := m.library.Load(m.ctx, nil, id)
		return playlistLoadedMsg(export, err)
	}
}

// View renders the now-playing panel, the active list and help.
func (m *Model) View() string {
	var body string
	switch m.view {
	case QueueView:
		body = m.queueList.View()
	case LibraryView:
		body = m.libraryList.View()
	default:
		body = m.resultList.View()
	}

	sections := []string{m.renderNowPlaying()}
	if m.searching {
		sections = append(sections, m.input.View())
	}
	if m.notice != "" {
		sections = append(sections, styles.warn.Render(m.notice))
	}
	sections = append(sections, body, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderNowPlaying() string {
	s := m.snap
	if !s.HasTrack() {
		return styles.panel.Render(styles.muted.Render("Nothing playing. Press / to search."))
	}

	state := styles.muted.Render(s.State.String())
	switch s.State {
	case player.StatePlaying:
		state = styles.playing.Render("▶ playing")
	case player.StatePaused:
		state = styles.muted.Render("⏸ paused")
	case player.StateLoading:
		state = styles.warn.Render("… loading")
	case player.StateError:
		state = styles.err.Render("✗ error")
	}

	lines := []string{
		fmt.Sprintf("%s  %s", state, styles.title.UnsetMarginBottom().Render(s.Track.Title)),
		styles.muted.Render(s.Track.Artist),
		fmt.Sprintf("%s %s / %s", progressBar(s.Position, s.Duration, barWidth),
			shared.FormatPosition(s.Position), shared.FormatPosition(s.Duration)),
		styles.help.Render(fmt.Sprintf("%d/%d · shuffle %s · repeat %s · vol %d%%",
			s.Index+1, len(s.Queue), onOff(s.Shuffle), s.Repeat, int(s.Volume*100+0.5))),
	}
	if s.Message != "" {
		lines = append(lines, styles.err.Render(s.Message))
	}
	return styles.panel.Render(strings.Join(lines, "\n"))
}

func progressBar(pos, total time.Duration, width int) string {
	filled := 0
	if total > 0 {
		filled = int(float64(width) * float64(min(pos, total)) / float64(total))
	}
	return styles.bar.Render(strings.Repeat("━", filled)) + styles.muted.Render(strings.Repeat("─", width-filled))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func resultTracks(results []models.SearchResult) []models.TrackRef {
	tracks := make([]models.TrackRef, len(results))
	for i, r := range results {
		tracks[i] = models.TrackFromResult(r)
	}
	return tracks
}

// searchNotice keeps "search unavailable" distinct from an empty result list.
func searchNotice(err error) string {
	if errors.Is(err, shared.ErrSearchUnavailable) {
		return "Search is unavailable right now. Try again later."
	}
	return fmt.Sprintf("Search failed: %v", err)
}
