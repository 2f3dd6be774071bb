package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
	"github.com/daeyeon-lee/cinemoa/internal/lifecycle"
	"github.com/daeyeon-lee/cinemoa/internal/like"
	"github.com/daeyeon-lee/cinemoa/internal/listing"
	"github.com/daeyeon-lee/cinemoa/internal/logging"
	"github.com/daeyeon-lee/cinemoa/internal/prefs"
	"github.com/daeyeon-lee/cinemoa/internal/scroll"
)

// Options configures the UI.
type Options struct {
	Context         context.Context
	Fetcher         *listing.Fetcher
	Likes           *like.Coordinator
	Invalidator     *lifecycle.Invalidator
	ViewerID        int64
	HomeSections    []string
	ProfileSections []string
	ScrollThreshold int
	CompactWidth    int
	Prefs           prefs.Prefs
	PrefsPath       string
	LogPath         string
	Logger          zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx             context.Context
	fetcher         *listing.Fetcher
	likes           *like.Coordinator
	invalidator     *lifecycle.Invalidator
	log             zerolog.Logger
	viewerID        int64
	homeSections    []string
	profileSections []string
	prefs           prefs.Prefs
	prefsPath       string
	logPath         string
	now             func() time.Time

	// UI state
	keys     keyMap
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	showLog  bool
	logLines []logging.Line

	// Listing state. staging and scroll are shared by every copy of the
	// model; Bubble Tea only ever runs one copy at a time.
	staging *filter.Staging
	scroll  *scroll.Controller
	current screen
	history []screen
	loading map[filter.Signature]bool
	errs    map[filter.Signature]error
	// liking holds items whose toggle has not settled; repeats are ignored.
	liking map[int64]bool

	// Filter editing
	sheet      sheetState
	searching  bool
	queryInput textinput.Model

	// Status line
	notice      string
	noticeIsErr bool
}

// New creates a new Bubble Tea model showing the home screen.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	compactWidth := opts.CompactWidth
	if compactWidth <= 0 {
		compactWidth = LayoutCompactWidth
	}

	profileSections := opts.ProfileSections
	if len(profileSections) == 0 {
		profileSections = []string{"liked"}
	}

	input := textinput.New()
	input.Placeholder = "Search screenings..."
	input.CharLimit = 80

	return Model{
		ctx:             ctx,
		fetcher:         opts.Fetcher,
		likes:           opts.Likes,
		invalidator:     opts.Invalidator,
		log:             opts.Logger.With().Str("component", "ui").Logger(),
		viewerID:        opts.ViewerID,
		homeSections:    opts.HomeSections,
		profileSections: profileSections,
		prefs:           opts.Prefs,
		prefsPath:       prefsPath,
		logPath:         opts.LogPath,
		now:             time.Now,
		keys:            DefaultKeyMap(),
		theme:           GetTheme(opts.Prefs.Theme),
		staging:         filter.NewStaging(filter.Default(), compactWidth),
		scroll:          scroll.NewController(opts.Fetcher, opts.ScrollThreshold),
		current:         screen{kind: screenHome},
		loading:         make(map[filter.Signature]bool),
		errs:            make(map[filter.Signature]error),
		liking:          make(map[int64]bool),
		queryInput:      input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.loadVisible(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize(msg.Width)
		return m, m.ensureVisible()

	case tea.FocusMsg:
		// Returning to the terminal counts as the app regaining foreground.
		if marked := m.invalidator.OnForegroundRegained(); marked > 0 {
			return m, m.loadVisible()
		}
		return m, nil

	case entryMsg:
		return m.handleEntry(msg)

	case pageMsg:
		return m.handlePage(msg)

	case likeMsg:
		return m.handleLike(msg)

	case redrawMsg:
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.showLog {
		return m.renderLog()
	}
	if m.sheet.open {
		return m.renderSheet()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp || m.showLog {
		m.showHelp = false
		m.showLog = false
		return m, nil
	}
	if m.sheet.open {
		return m.handleSheetKey(msg)
	}
	if m.searching {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		if m.prefsPath != "" {
			if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
				m.log.Warn().Err(err).Msg("save prefs failed")
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.ShowLog):
		lines, err := logging.Tail(m.logPath, logTailLines)
		if err != nil {
			m.setNotice(err.Error(), true)
			return m, nil
		}
		m.logLines = lines
		m.showLog = true
		return m, nil

	case key.Matches(msg, m.keys.Back):
		return m, m.back()

	case key.Matches(msg, m.keys.ViewHome):
		return m, m.openHome()

	case key.Matches(msg, m.keys.ViewSearch):
		return m, m.openSearch()

	case key.Matches(msg, m.keys.ViewCategory):
		return m, m.openCategory()

	case key.Matches(msg, m.keys.ViewProfile):
		return m, m.openProfile()

	case key.Matches(msg, m.keys.Tab):
		return m, m.nextSection()

	case key.Matches(msg, m.keys.ToggleLike):
		return m, m.toggleLike()

	case key.Matches(msg, m.keys.LoadMore):
		return m, m.loadMore()

	case key.Matches(msg, m.keys.Search):
		cmd := m.openSearch()
		m.startSearch()
		return m, cmd

	case key.Matches(msg, m.keys.Confirm):
		return m, m.openSelectedSection()
	}

	if m.current.filterable() {
		switch {
		case key.Matches(msg, m.keys.Filters):
			m.openSheet(sheetRowSort)
			return m, nil
		case key.Matches(msg, m.keys.CycleSort):
			return m, m.quickEdit(sheetRowSort)
		case key.Matches(msg, m.keys.ToggleClosed):
			return m, m.quickEdit(sheetRowClosed)
		}
	}

	return m.handleListKey(msg)
}

// handleListKey moves the selection.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	if len(rows) == 0 {
		return m, nil
	}

	half := max(m.listHeight()/2, 1)
	switch {
	case key.Matches(msg, m.keys.Down):
		m.current.selected = nextItemRow(rows, m.current.selected, 1)
	case key.Matches(msg, m.keys.Up):
		m.current.selected = nextItemRow(rows, m.current.selected, -1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.current.selected = nextItemRow(rows, m.current.selected, half)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.current.selected = nextItemRow(rows, m.current.selected, -half)
	case key.Matches(msg, m.keys.Top):
		m.current.selected = nextItemRow(rows, -1, 1)
	case key.Matches(msg, m.keys.Bottom):
		m.current.selected = nextItemRow(rows, len(rows), -1)
	default:
		return m, nil
	}
	return m, m.ensureVisible()
}

// handleSearchInput edits the query. Enter commits it directly; the query
// box is a search bar, not part of the filter sheet.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := m.queryInput.Value()
		m.stopSearch()
		return m, m.commit(func(f *filter.FilterSet) { f.Query = query })

	case key.Matches(msg, m.keys.Cancel):
		m.stopSearch()
		return m, nil
	}

	var cmd tea.Cmd
	m.queryInput, cmd = m.queryInput.Update(msg)
	return m, cmd
}

func (m *Model) startSearch() {
	m.searching = true
	m.queryInput.SetValue(m.staging.Committed().Query)
	m.queryInput.CursorEnd()
	m.queryInput.Focus()
}

func (m *Model) stopSearch() {
	m.searching = false
	m.queryInput.Blur()
}

// resize feeds the width to the staging area. Crossing into the wide layout
// discards an open draft; crossing into the compact layout closes the
// inline editor.
func (m *Model) resize(width int) {
	before := m.staging.Layout()
	if m.staging.Resize(width) {
		m.sheet.open = false
		m.setNotice("Filter draft discarded", false)
		return
	}
	if before == filter.LayoutWide && m.staging.Layout() == filter.LayoutCompact && m.sheet.open {
		m.sheet.open = false
	}
}

// toggleLike flips the like flag of the selected item.
func (m *Model) toggleLike() tea.Cmd {
	it, ok := m.selectedItem()
	if !ok {
		return nil
	}
	if m.viewerID <= 0 {
		m.setNotice("Set viewer_id in config.toml to like screenings", true)
		return nil
	}
	if m.liking[it.ID] {
		return nil
	}
	m.liking[it.ID] = true
	return tea.Batch(
		likeCmd(m.ctx, m.likes, it.ID, m.viewerID),
		redrawCmd(),
	)
}

// loadMore is the manual infinite-scroll trigger.
func (m *Model) loadMore() tea.Cmd {
	if !m.current.scrollable() {
		return nil
	}
	t, ok := m.scroll.LoadMore()
	if !ok {
		return nil
	}
	return fetchPageCmd(m.ctx, m.scroll, t)
}

func (m Model) handleEntry(msg entryMsg) (tea.Model, tea.Cmd) {
	delete(m.loading, msg.sig)
	if msg.err != nil {
		m.errs[msg.sig] = msg.err
		if m.visible(msg.sig) {
			m.setNotice(fmt.Sprintf("Load failed: %v", msg.err), true)
		}
		return m, nil
	}
	delete(m.errs, msg.sig)
	if !m.visible(msg.sig) {
		return m, nil
	}
	m.clampSelection()
	return m, m.ensureVisible()
}

func (m Model) handlePage(msg pageMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, scroll.ErrDetached) {
		return m, nil
	}
	if msg.err != nil {
		m.setNotice(fmt.Sprintf("Load more failed: %v", msg.err), true)
		return m, nil
	}
	if !m.visible(msg.sig) {
		return m, nil
	}
	return m, m.ensureVisible()
}

func (m Model) handleLike(msg likeMsg) (tea.Model, tea.Cmd) {
	delete(m.liking, msg.itemID)
	var mutationErr *like.MutationError
	switch {
	case errors.As(msg.err, &mutationErr):
		verb := "Unlike"
		if mutationErr.Liked {
			verb = "Like"
		}
		m.setNotice(fmt.Sprintf("%s failed, restored %d copies", verb, mutationErr.Reverted), true)
	case msg.err != nil:
		m.setNotice(fmt.Sprintf("Like failed: %v", msg.err), true)
	case msg.result.Liked:
		m.setNotice("Liked", false)
	default:
		m.setNotice("Unliked", false)
	}
	return m, nil
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeIsErr = isErr
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
