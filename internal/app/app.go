package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vidyasagar/journey/internal/browser"
	"github.com/vidyasagar/journey/internal/history"
	"github.com/vidyasagar/journey/internal/observe"
	"github.com/vidyasagar/journey/internal/storage"
	"github.com/vidyasagar/journey/internal/theme"
	"github.com/vidyasagar/journey/internal/ui"
)

// Mode represents the current input mode.
type Mode int

const (
	ModeNormal  Mode = iota
	ModePush         // location bar, push
	ModeEdit         // location bar, manual edit
	ModeTitle        // command bar, retitle
	ModeFollow       // command bar, link number
	ModeCommand      // command bar, : commands
)

var modeNames = [...]string{
	ModeNormal:  "NORMAL",
	ModePush:    "PUSH",
	ModeEdit:    "EDIT",
	ModeTitle:   "TITLE",
	ModeFollow:  "FOLLOW",
	ModeCommand: "COMMAND",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "NORMAL"
}

// inboxSize bounds how many reconciler events and notices may wait for the
// program loop.
const inboxSize = 256

// Options configures the program model.
type Options struct {
	StartPath string // location of a new host history
	Open      string // pushed once the reconciler is running, when set
	Fresh     bool   // ignore the saved session
	PageCache int
	DB        *storage.DB // nil runs without persistence
	Logger    *zap.Logger
}

// Model is the top-level bubbletea model for journey.
type Model struct {
	// UI components
	location  ui.LocationBar
	statusBar ui.StatusBar
	command   ui.CommandBar
	chain     ui.ChainPanel
	viewport  ui.PageViewport

	// History
	host       *browser.Session
	rec        *history.Reconciler
	dispatcher *observe.Dispatcher
	detach     []func()
	inbox      chan tea.Msg
	done       chan struct{}

	pages *browser.Pages
	page  *browser.RenderedPage
	open  string

	// Storage
	sessions *storage.SessionStore
	visits   *storage.VisitLog

	logger   *zap.Logger
	keys     KeyMap
	mode     Mode
	width    int
	height   int
	lastGKey bool // for "gg" detection
	ready    bool
}

// positionMsg carries a host position change into the program loop.
type positionMsg struct {
	host *browser.Session
	pos  history.Position
}

// eventMsg carries a reconciler event into the program loop.
type eventMsg struct {
	event history.Event
}

// noticeMsg is a status line message from a path observer.
type noticeMsg string

// New creates the model: it restores or starts the host history and a
// reconciler bound to it.
func New(opts Options) (Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pages, err := browser.NewPages(opts.PageCache)
	if err != nil {
		return Model{}, err
	}

	m := Model{
		location:   ui.NewLocationBar(),
		statusBar:  ui.NewStatusBar(),
		command:    ui.NewCommandBar(),
		chain:      ui.NewChainPanel(),
		viewport:   ui.NewPageViewport(),
		dispatcher: observe.NewDispatcher(),
		inbox:      make(chan tea.Msg, inboxSize),
		done:       make(chan struct{}),
		pages:      pages,
		open:       opts.Open,
		logger:     logger,
		keys:       DefaultKeyMap(),
		mode:       ModeNormal,
	}
	if opts.DB != nil {
		m.sessions = storage.NewSessionStore(opts.DB)
		m.visits = storage.NewVisitLog(opts.DB)
	}
	m.observePaths()

	host := openHost(m.sessions, opts.StartPath, opts.Fresh, logger)
	if err := m.start(host); err != nil {
		host.Close()
		return Model{}, err
	}
	return m, nil
}

// observePaths registers the status line observers.
func (m *Model) observePaths() {
	inbox, done := m.inbox, m.done
	notify := func(text string) {
		select {
		case inbox <- noticeMsg(text):
		case <-done:
		}
	}
	m.dispatcher.Observe(observe.Suffix("#help"), func(c *observe.Change, entering bool) {
		if entering {
			notify("keys are listed on this page")
			c.Stop()
		}
	})
	m.dispatcher.Observe(observe.MustRegex(`^/notes/\d+`), func(c *observe.Change, entering bool) {
		if entering {
			notify(fmt.Sprintf("reading %s", strings.TrimPrefix(c.Path, "/notes/")))
		} else {
			notify("left the notes")
		}
	})
	m.dispatcher.Observe(observe.Exact("/"), func(c *observe.Change, entering bool) {
		if entering && c.Orphan {
			notify("home, restored from an earlier run")
		}
	})
}

// start binds a new reconciler to host.
func (m *Model) start(host *browser.Session) error {
	rec, err := history.New(host, history.Options{Logger: m.logger})
	if err != nil {
		return fmt.Errorf("starting reconciler: %w", err)
	}

	inbox, done := m.inbox, m.done
	unsubscribe := rec.Subscribe(func(ev history.Event) {
		select {
		case inbox <- eventMsg{event: ev}:
		case <-done:
		}
	})

	m.host = host
	m.rec = rec
	m.detach = []func(){unsubscribe, m.dispatcher.Attach(rec)}
	m.logger.Info("reconciler started",
		zap.String("session", string(rec.Session())),
		zap.String("path", rec.Get()),
		zap.Int("host_entries", host.Len()),
	)
	return nil
}

// stop closes the reconciler (delivering what it still holds) and the host.
func (m *Model) stop() {
	m.rec.Close()
	for _, fn := range m.detach {
		fn()
	}
	m.detach = nil
	m.host.Close()
}

// Close persists the host history and releases the reconciler. Call it once
// the program has exited.
func (m Model) Close() error {
	err := saveHost(m.sessions, m.host)
	close(m.done)
	m.stop()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForPosition(m.host),
		listen(m.inbox),
	}
	if m.open != "" {
		open := m.open
		cmds = append(cmds, func() tea.Msg { return openMsg(open) })
	}
	return tea.Batch(cmds...)
}

// openMsg asks for a push once the program runs.
type openMsg string

// waitForPosition delivers the next position change of host.
func waitForPosition(host *browser.Session) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-host.Positions()
		if !ok {
			return nil
		}
		return positionMsg{host: host, pos: p}
	}
}

// listen delivers the next reconciler event or notice.
func listen(inbox <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-inbox
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.renderCurrent()
		return m, nil

	case positionMsg:
		if msg.host != m.host {
			// Left over from before a restart.
			return m, nil
		}
		res := m.rec.ReconcilePosition(msg.pos)
		if res.Direction == history.DirectionNone {
			m.statusBar.SetMessage("already here")
		}
		m.syncChain()
		return m, waitForPosition(m.host)

	case eventMsg:
		m.handleEvent(msg.event)
		return m, listen(m.inbox)

	case noticeMsg:
		m.statusBar.SetMessage(string(msg))
		return m, listen(m.inbox)

	case openMsg:
		m.push(string(msg))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	vp, cmd := m.viewport.Update(msg)
	m.viewport = *vp
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "\n  Loading journey..."
	}

	sections := []string{m.location.View()}

	if m.chain.IsVisible() {
		divider := lipgloss.NewStyle().
			Foreground(theme.Current.Border).
			Background(theme.Current.Background).
			Render(strings.TrimSuffix(strings.Repeat("│\n", m.contentHeight()), "\n"))
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			m.chain.View(),
			divider,
			m.viewport.View(),
		))
	} else {
		sections = append(sections, m.viewport.View())
	}

	sections = append(sections, m.statusBar.View())
	if m.command.IsActive() {
		sections = append(sections, m.command.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// contentHeight is what remains for the page below the location bar and
// above the status and command bars.
func (m *Model) contentHeight() int {
	locationHeight := 3 // border adds height
	statusHeight := 1
	commandHeight := 0
	if m.command.IsActive() {
		commandHeight = 1
	}
	return max(m.height-locationHeight-statusHeight-commandHeight, 1)
}

// layout recalculates dimensions for all components.
func (m *Model) layout() {
	m.location.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.command.SetWidth(m.width)

	height := m.contentHeight()
	width := m.width
	if m.chain.IsVisible() {
		panelWidth := max(m.width*30/100, 24)
		m.chain.SetSize(panelWidth, height)
		width = m.width - panelWidth - 1 // divider
	}
	m.viewport.SetSize(width, height)
}

// handleEvent shows the page an event landed on and logs the visit.
func (m *Model) handleEvent(ev history.Event) {
	m.logger.Debug("event",
		zap.Stringer("type", ev.Type),
		zap.String("path", ev.Path),
		zap.Int("index", ev.Index),
		zap.Bool("orphan", ev.Orphan),
	)
	m.statusBar.SetEvent(ev)
	m.statusBar.SetMessage("")
	m.renderCurrent()

	if err := recordVisit(m.visits, ev); err != nil {
		m.logger.Warn("recording visit failed", zap.Error(err))
	}
}

// renderCurrent renders the reconciler's current path and state.
func (m *Model) renderCurrent() {
	path := m.rec.Get()
	m.location.SetCurrent(path)
	m.syncChain()

	if !m.ready {
		return
	}
	m.page = m.pages.Render(path, m.rec.State(), m.viewport.Width())
	m.viewport.SetContent(m.page.Content)
	m.statusBar.SetTitle(m.page.Title)
	m.statusBar.SetLinkCount(len(m.page.Links))
	m.statusBar.SetScrollInfo(m.viewport.ScrollInfo())
}

// syncChain refreshes the chain panel and the position indicator.
func (m *Model) syncChain() {
	index := m.rec.Index()
	m.chain.SetChain(m.rec.Entries(), index, m.rec.Session())
	m.statusBar.SetPosition(index, m.rec.Len())
	m.statusBar.SetNavigation(m.host.CanGoBack(), m.host.CanGoForward())
}

func (m *Model) setMode(mode Mode) {
	m.mode = mode
	m.statusBar.SetMode(mode.String())
}

// handleKeyMsg processes key events based on current mode.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case ModePush, ModeEdit:
		return m.handleLocationMode(msg)
	case ModeTitle, ModeFollow, ModeCommand:
		return m.handleCommandMode(msg)
	default:
		return m.handleNormalMode(msg)
	}
}

// handleNormalMode processes keys in normal (browsing) mode.
func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// gg detection: first "g" sets flag, second "g" goes to top.
	if msg.String() == "g" {
		if m.lastGKey {
			m.lastGKey = false
			m.viewport.Scroll(ui.ScrollTop)
			m.statusBar.SetScrollInfo(m.viewport.ScrollInfo())
			return m, nil
		}
		m.lastGKey = true
		return m, nil
	}
	m.lastGKey = false

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.Scroll(ui.ScrollLineDown)
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.Scroll(ui.ScrollLineUp)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.viewport.Scroll(ui.ScrollHalfDown)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.viewport.Scroll(ui.ScrollHalfUp)
	case key.Matches(msg, m.keys.GotoBottom):
		m.viewport.Scroll(ui.ScrollBottom)

	case key.Matches(msg, m.keys.Push):
		m.setMode(ModePush)
		return m, m.location.Focus(ui.LocationPush)

	case key.Matches(msg, m.keys.Edit):
		m.setMode(ModeEdit)
		return m, m.location.Focus(ui.LocationEdit)

	case key.Matches(msg, m.keys.Retitle):
		m.setMode(ModeTitle)
		cmd := m.openCommand(ui.CommandTitle)
		m.command.SetValue(m.rec.State().Title)
		return m, cmd

	case key.Matches(msg, m.keys.FollowLink):
		m.setMode(ModeFollow)
		return m, m.openCommand(ui.CommandFollow)

	case key.Matches(msg, m.keys.CommandMode):
		m.setMode(ModeCommand)
		return m, m.openCommand(ui.CommandEx)

	case key.Matches(msg, m.keys.Back):
		if err := m.rec.Back(); err != nil {
			m.statusBar.SetError(err)
		}
	case key.Matches(msg, m.keys.Forward):
		if err := m.rec.Forward(); err != nil {
			m.statusBar.SetError(err)
		}

	case key.Matches(msg, m.keys.Restart):
		return m.restart()

	case key.Matches(msg, m.keys.ChainPanel):
		m.chain.Toggle()
		m.layout()
		m.renderCurrent()

	case key.Matches(msg, m.keys.ThemeCycle):
		m.cycleTheme()
		m.renderCurrent()

	default:
		vp, cmd := m.viewport.Update(msg)
		m.viewport = *vp
		m.statusBar.SetScrollInfo(m.viewport.ScrollInfo())
		return m, cmd
	}

	m.statusBar.SetScrollInfo(m.viewport.ScrollInfo())
	return m, nil
}

func (m *Model) openCommand(ct ui.CommandType) tea.Cmd {
	cmd := m.command.Open(ct)
	m.layout()
	return cmd
}

// handleLocationMode processes keys while the location bar is focused.
func (m Model) handleLocationMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.location.Blur()
		m.setMode(ModeNormal)
		return m, nil

	case tea.KeyEnter:
		path := strings.TrimSpace(m.location.Value())
		mode := m.location.Mode()
		m.location.Blur()
		m.setMode(ModeNormal)
		if path == "" {
			return m, nil
		}
		if mode == ui.LocationEdit {
			if err := m.host.Edit(path); err != nil {
				m.statusBar.SetError(err)
			}
			return m, nil
		}
		m.push(path)
		return m, nil
	}

	lb, cmd := m.location.Update(msg)
	m.location = *lb
	return m, cmd
}

// handleCommandMode processes keys while the command bar is open.
func (m Model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.command.Close()
		m.setMode(ModeNormal)
		m.layout()
		return m, nil

	case tea.KeyEnter:
		result := m.command.Submit()
		m.setMode(ModeNormal)
		m.layout()
		return m.handleCommandResult(result)
	}

	cb, cmd := m.command.Update(msg)
	m.command = *cb
	return m, cmd
}

// handleCommandResult processes a submitted command.
func (m Model) handleCommandResult(result ui.CommandResult) (tea.Model, tea.Cmd) {
	switch result.Type {
	case ui.CommandTitle:
		m.retitle(result.Value)
	case ui.CommandFollow:
		m.followLink(result.Value)
	case ui.CommandEx:
		return m.executeCommand(result.Value)
	}
	return m, nil
}

// executeCommand handles :commands.
func (m Model) executeCommand(cmd string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return m, nil
	}

	switch parts[0] {
	case "q", "quit":
		return m, tea.Quit
	case "emit":
		if len(parts) < 2 {
			m.statusBar.SetMessage("Usage: :emit <set|push|back|forward> [key=value...]")
			return m, nil
		}
		if err := m.rec.Emit(parts[1], ui.ParseFields(parts[2:])); err != nil {
			m.statusBar.SetError(err)
		}
	case "theme":
		if len(parts) > 1 {
			if theme.Set(parts[1]) {
				m.statusBar.SetMessage(fmt.Sprintf("Theme: %s", parts[1]))
				m.renderCurrent()
			} else {
				m.statusBar.SetMessage(fmt.Sprintf("Unknown theme: %s (available: %s)", parts[1], strings.Join(theme.List(), ", ")))
			}
		} else {
			m.statusBar.SetMessage(fmt.Sprintf("Current: %s | Available: %s", theme.Current.Name, strings.Join(theme.List(), ", ")))
		}
	case "clear":
		if m.visits == nil {
			m.statusBar.SetMessage("Visit log not available")
			return m, nil
		}
		if err := m.visits.Clear(context.Background()); err != nil {
			m.statusBar.SetError(err)
			return m, nil
		}
		m.statusBar.SetMessage("Visit log cleared")
	default:
		m.statusBar.SetMessage(fmt.Sprintf("Unknown command: %s", parts[0]))
	}
	return m, nil
}

// push navigates to path through the reconciler. A fragment keeps the
// current document title.
func (m *Model) push(path string) {
	var partial history.State
	if !strings.HasPrefix(path, "#") {
		partial.Title = browser.TitleFor(path)
		if partial.Title == "" {
			partial.Title = path
		}
	}
	pushed, err := m.rec.Push(path, partial)
	switch {
	case err != nil:
		m.statusBar.SetError(err)
	case !pushed:
		m.statusBar.SetMessage(fmt.Sprintf("already at %s", m.rec.Get()))
	}
}

// retitle replaces the current entry with a new title, keeping its fields.
func (m *Model) retitle(title string) {
	if title == "" {
		return
	}
	partial := m.rec.State()
	partial.Title = title
	if err := m.rec.Set(m.rec.Get(), partial); err != nil {
		m.statusBar.SetError(err)
	}
}

// followLink pushes the page link with the given number.
func (m *Model) followLink(input string) {
	num, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		m.statusBar.SetMessage(fmt.Sprintf("Invalid link number: %s", input))
		return
	}
	if m.page != nil {
		for _, link := range m.page.Links {
			if link.Index == num {
				m.push(link.URL)
				return
			}
		}
	}
	m.statusBar.SetMessage(fmt.Sprintf("Link [%d] not found", num))
}

// restart simulates closing and reopening the program: the host history is
// persisted and reloaded, and a reconciler with a new session takes over.
// Entries written by the previous session come back as orphans.
func (m Model) restart() (tea.Model, tea.Cmd) {
	entries, cursor := m.host.Snapshot()
	if m.sessions != nil {
		if err := saveHost(m.sessions, m.host); err != nil {
			m.statusBar.SetError(err)
			return m, nil
		}
		stored, c, err := m.sessions.Load(context.Background())
		if err != nil {
			m.statusBar.SetError(err)
			return m, nil
		}
		entries, cursor = fromStored(stored), c
	}

	host, err := browser.RestoreSession(entries, cursor, m.logger)
	if err != nil {
		m.statusBar.SetError(err)
		return m, nil
	}

	previous := m.rec.Session()
	m.stop()
	if err := m.start(host); err != nil {
		// Without a reconciler there is nothing left to drive.
		m.logger.Error("restart failed", zap.Error(err))
		return m, tea.Quit
	}

	m.logger.Info("restarted",
		zap.String("previous_session", string(previous)),
		zap.String("session", string(m.rec.Session())),
	)
	m.statusBar.SetMessage("restarted with a new session")
	m.renderCurrent()
	return m, waitForPosition(m.host)
}

// cycleTheme switches to the next available theme.
func (m *Model) cycleTheme() {
	themes := theme.List()
	next := themes[0]
	for i, name := range themes {
		if name == theme.Current.Name {
			next = themes[(i+1)%len(themes)]
			break
		}
	}
	theme.Set(next)
	m.statusBar.SetMessage(fmt.Sprintf("Theme: %s", next))
}
