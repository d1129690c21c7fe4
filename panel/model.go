// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchdeck/watchdeck/platform"
	"github.com/watchdeck/watchdeck/watchlist"
)

// defaultPollInterval is the fallback full re-sync cadence. The event
// stream delivers presence changes promptly; the poll catches watch
// list edits made from other clients and deltas the stream dropped.
const defaultPollInterval = 5 * time.Minute

// presenceEventMsg wraps a live status-change delta for delivery
// through the bubbletea message loop.
type presenceEventMsg struct {
	change platform.StatusChange
}

// streamReconnectedMsg signals that the event stream re-established
// its connection after a drop. Deltas may have been missed in the
// gap, so the panel re-syncs.
type streamReconnectedMsg struct{}

// pollTickMsg drives the periodic fallback re-sync.
type pollTickMsg struct{}

// Options configures a Model beyond its engine.
type Options struct {
	// StatusChanges and Reconnects are the event stream channels;
	// either may be nil to run without live updates.
	StatusChanges <-chan platform.StatusChange
	Reconnects    <-chan struct{}

	// PollInterval overrides the fallback re-sync cadence. Zero means
	// defaultPollInterval.
	PollInterval time.Duration

	// DwellDelay overrides how long a drag hovers a collapsed folder
	// before it auto-expands. Zero means defaultDwellDelay.
	DwellDelay time.Duration

	// Theme overrides the color palette; zero value means pick one
	// from the terminal background.
	Theme *Theme

	// Logger receives degraded-operation warnings. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Model is the top-level bubbletea model for the watch-list panel.
type Model struct {
	engine Engine
	theme  Theme
	keys   KeyMap
	logger *slog.Logger

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	sized  bool

	// Flattened display rows derived from the engine's tree plus the
	// per-section collapse map.
	items        []ListItem
	cursor       int
	scrollOffset int
	selectedKey  string // Stable focus: track selection by row key.
	collapsed    map[string]bool

	// Pointer drag, keyboard grab, and the folder name editor. At
	// most one of the three is active at a time.
	drag        *dragState
	grabbedUser string
	editor      sectionEditor

	dwellDelay time.Duration

	// Event stream subscription and fallback poll.
	statusChanges <-chan platform.StatusChange
	reconnects    <-chan struct{}
	pollInterval  time.Duration

	// Status bar notice from the log handler.
	notice      string
	noticeLevel slog.Level
}

// NewModel creates a Model over the given engine.
func NewModel(engine Engine, options Options) Model {
	theme := DefaultTheme()
	if options.Theme != nil {
		theme = *options.Theme
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := options.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	dwellDelay := options.DwellDelay
	if dwellDelay <= 0 {
		dwellDelay = defaultDwellDelay
	}

	model := Model{
		engine:        engine,
		theme:         theme,
		keys:          DefaultKeyMap,
		logger:        logger,
		collapsed:     make(map[string]bool),
		editor:        newSectionEditor(),
		dwellDelay:    dwellDelay,
		statusChanges: options.StatusChanges,
		reconnects:    options.Reconnects,
		pollInterval:  pollInterval,
	}
	model.rebuildItems()
	return model
}

// Init implements tea.Model. Kicks off the initial sync, the event
// stream listeners, and the fallback poll.
func (model Model) Init() tea.Cmd {
	commands := []tea.Cmd{
		model.engine.LoadAll(),
		model.schedulePoll(),
	}
	if model.statusChanges != nil {
		commands = append(commands, listenForStatusChange(model.statusChanges))
	}
	if model.reconnects != nil {
		commands = append(commands, listenForReconnect(model.reconnects))
	}
	return tea.Batch(commands...)
}

// listenForStatusChange returns a command that blocks until a
// presence delta arrives, then delivers it as a presenceEventMsg.
func listenForStatusChange(channel <-chan platform.StatusChange) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-channel
		if !ok {
			return nil
		}
		return presenceEventMsg{change: change}
	}
}

// listenForReconnect returns a command that blocks until the event
// stream reports a reconnection.
func listenForReconnect(channel <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-channel
		if !ok {
			return nil
		}
		return streamReconnectedMsg{}
	}
}

// schedulePoll returns a command that fires the next fallback re-sync
// tick.
func (model Model) schedulePoll() tea.Cmd {
	return tea.Tick(model.pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if model.editor.Active() {
			return model.handleEditorKeys(message)
		}
		if model.grabbedUser != "" {
			return model.handleGrabKeys(message)
		}
		return model.handleListKeys(message)

	case tea.MouseMsg:
		if cmd := model.handleMouse(message); cmd != nil {
			return model, cmd
		}

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.sized = true
		model.clampScroll()

	case loadResultMsg:
		model.engine.applyLoad(message)
		model.rebuildItems()
		model.restoreSelection()

	case presenceEventMsg:
		model.engine.applyPresenceDelta(message.change.UserID, message.change.Status)
		model.rebuildItems()
		model.restoreSelection()
		return model, listenForStatusChange(model.statusChanges)

	case streamReconnectedMsg:
		return model, tea.Batch(
			model.engine.LoadAll(),
			listenForReconnect(model.reconnects),
		)

	case pollTickMsg:
		return model, tea.Batch(model.engine.LoadAll(), model.schedulePoll())

	case dwellExpireMsg:
		if model.drag != nil && model.drag.dwellCurrent(message) {
			model.collapsed[message.sectionID] = false
			model.drag.dwellSection = ""
			model.rebuildItems()
			model.restoreSelection()
		}

	case logRecordMsg:
		model.notice = message.Summary
		model.noticeLevel = message.Level
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{}
		})

	case logRecordFadeMsg:
		model.notice = ""
	}
	return model, nil
}

// handleListKeys processes keystrokes in normal (browse) mode.
func (model Model) handleListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		model.moveCursor(-1)

	case key.Matches(message, model.keys.Down):
		model.moveCursor(1)

	case key.Matches(message, model.keys.PageUp):
		model.moveCursor(-model.visibleHeight())

	case key.Matches(message, model.keys.PageDown):
		model.moveCursor(model.visibleHeight())

	case key.Matches(message, model.keys.Home):
		model.setCursor(0)

	case key.Matches(message, model.keys.End):
		model.setCursor(len(model.items) - 1)

	case key.Matches(message, model.keys.Collapse):
		model.collapseCurrentSection()

	case key.Matches(message, model.keys.Expand):
		if item, ok := model.currentItem(); ok && item.IsHeader && item.Collapsed {
			model.collapsed[item.SectionID] = false
			model.rebuildItems()
		}

	case key.Matches(message, model.keys.Grab):
		if item, ok := model.currentItem(); ok && isDraggable(item) {
			model.grabbedUser = item.User.UserID
		}

	case key.Matches(message, model.keys.NewFolder):
		if len(model.engine.Document().Folders) >= watchlist.MaxFolders {
			model.logger.Warn("folder limit reached", "limit", watchlist.MaxFolders)
			return model, nil
		}
		model.editor.StartCreate()

	case key.Matches(message, model.keys.Rename):
		if item, ok := model.currentItem(); ok && item.IsHeader && item.Kind == KindFolder {
			model.editor.StartRename(item.SectionID, item.Title)
		}

	case key.Matches(message, model.keys.DeleteFolder):
		if item, ok := model.currentItem(); ok && item.IsHeader && item.Kind == KindFolder {
			return model, model.engine.DeleteFolder(item.SectionID)
		}

	case key.Matches(message, model.keys.Remove):
		return model.removeCurrent()

	case key.Matches(message, model.keys.Refresh):
		return model, model.engine.LoadAll()
	}
	return model, nil
}

// handleGrabKeys processes keystrokes while a user is grabbed for
// keyboard reordering. The cursor marks the drop position; Confirm or
// Grab drops, Cancel abandons.
func (model Model) handleGrabKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		model.moveCursor(-1)

	case key.Matches(message, model.keys.Down):
		model.moveCursor(1)

	case key.Matches(message, model.keys.Cancel):
		model.grabbedUser = ""

	case key.Matches(message, model.keys.Confirm), key.Matches(message, model.keys.Grab):
		userID := model.grabbedUser
		model.grabbedUser = ""
		item, ok := model.currentItem()
		if !ok {
			return model, nil
		}
		target := dropTargetForItem(item, model.engine.Tree())
		if target == nil {
			return model, nil
		}
		return model.performDrop(userID, *target)
	}
	return model, nil
}

// handleEditorKeys routes keystrokes to the folder name editor.
func (model Model) handleEditorKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Cancel):
		model.editor.Close()
		return model, nil

	case key.Matches(message, model.keys.Confirm):
		mode, folderID, name, ok := model.editor.Submit()
		if !ok {
			// Invalid name: same outcome as cancel, no server call.
			return model, nil
		}
		switch mode {
		case editorNewFolder:
			return model, model.engine.CreateFolder(name)
		case editorRenameFolder:
			return model, model.engine.RenameFolder(folderID, name)
		}
		return model, nil
	}

	var cmd tea.Cmd
	model.editor.input, cmd = model.editor.input.Update(message)
	return model, cmd
}

// handleMouse processes pointer events: wheel scrolling, click
// selection, header collapse toggling, and drag-and-drop reordering.
func (model *Model) handleMouse(message tea.MouseMsg) tea.Cmd {
	switch {
	case message.Button == tea.MouseButtonWheelUp:
		model.scrollBy(-1)
		return nil

	case message.Button == tea.MouseButtonWheelDown:
		model.scrollBy(1)
		return nil

	case message.Action == tea.MouseActionMotion && message.Button == tea.MouseButtonLeft:
		if model.drag != nil {
			return model.handleDragMotion(message.Y)
		}
		return nil

	case message.Button == tea.MouseButtonLeft && message.Action == tea.MouseActionPress:
		model.handlePress(message.Y)
		return nil

	case message.Button == tea.MouseButtonLeft && message.Action == tea.MouseActionRelease:
		return model.handleRelease(message.Y)
	}
	return nil
}

// handlePress selects the clicked row and, on a draggable user row,
// arms a drag. The drag only becomes real if motion follows; an
// immediate release is a plain click.
func (model *Model) handlePress(screenY int) {
	index, ok := model.rowAt(screenY)
	if !ok {
		return
	}
	model.setCursor(index)

	item := model.items[index]
	if item.IsHeader {
		model.collapsed[item.SectionID] = !model.collapsed[item.SectionID]
		model.rebuildItems()
		model.restoreSelection()
		return
	}
	if isDraggable(item) {
		model.drag = newDragState(item.User.UserID, item.SectionID)
		model.drag.enterSection(item.SectionID)
	}
}

// handleDragMotion updates hover bookkeeping and the live drop target
// as the pointer moves with the button held.
func (model *Model) handleDragMotion(screenY int) tea.Cmd {
	index, ok := model.rowAt(screenY)
	if !ok {
		model.drag.moveTo("", model.collapsed)
		model.drag.target = nil
		return nil
	}

	item := model.items[index]
	dwellStarted := model.drag.moveTo(item.SectionID, model.collapsed)
	model.drag.target = dropTargetForItem(item, model.engine.Tree())

	if dwellStarted != "" {
		return model.drag.scheduleDwell(model.dwellDelay)
	}
	return nil
}

// handleRelease completes or abandons a drag. A release without any
// intervening motion was a plain click; the press already selected.
func (model *Model) handleRelease(screenY int) tea.Cmd {
	drag := model.drag
	if drag == nil {
		return nil
	}
	model.drag = nil
	if !drag.moved || drag.target == nil {
		return nil
	}
	_, cmd := model.performDrop(drag.userID, *drag.target)
	return cmd
}

// performDrop applies a drop to the document and persists it. A
// vanished target folder aborts silently; the next refresh shows the
// world as it is.
func (model *Model) performDrop(userID string, target dropTarget) (Model, tea.Cmd) {
	updated, ok := applyDrop(model.engine.Document(), userID, target)
	if !ok {
		return *model, nil
	}
	cmd := model.engine.PersistAndRefresh(updated)
	model.rebuildItems()
	model.restoreSelection()
	return *model, cmd
}

// removeCurrent removes whatever the cursor points at: a watched user
// on a user row, the watched group on a group header.
func (model Model) removeCurrent() (tea.Model, tea.Cmd) {
	item, ok := model.currentItem()
	if !ok {
		return model, nil
	}

	if item.IsHeader {
		if item.Kind == KindGroup {
			return model, model.engine.RemoveWatchedGroup(item.SectionID)
		}
		return model, nil
	}
	if !isDraggable(item) {
		// Group members come from the directory; remove the group
		// instead.
		return model, nil
	}

	updated := model.engine.Document().WithUserRemoved(item.User.UserID)
	cmd := model.engine.PersistAndRefresh(updated)
	model.rebuildItems()
	model.restoreSelection()
	return model, cmd
}

// isDraggable reports whether the row is a user entry the panel
// itself orders (top-level list or folder member).
func isDraggable(item ListItem) bool {
	return !item.IsHeader && !item.Placeholder && item.Kind != KindGroup
}

// collapseCurrentSection collapses the section under the cursor and
// moves the cursor to its header.
func (model *Model) collapseCurrentSection() {
	item, ok := model.currentItem()
	if !ok {
		return
	}
	model.collapsed[item.SectionID] = true
	model.rebuildItems()
	for index, candidate := range model.items {
		if candidate.IsHeader && candidate.SectionID == item.SectionID {
			model.setCursor(index)
			break
		}
	}
}

// currentItem returns the item under the cursor.
func (model Model) currentItem() (ListItem, bool) {
	if model.cursor < 0 || model.cursor >= len(model.items) {
		return ListItem{}, false
	}
	return model.items[model.cursor], true
}

// rowAt maps a screen Y coordinate to an item index.
func (model Model) rowAt(screenY int) (int, bool) {
	relative := screenY - contentStartY
	if relative < 0 || relative >= model.visibleHeight() {
		return 0, false
	}
	index := model.scrollOffset + relative
	if index < 0 || index >= len(model.items) {
		return 0, false
	}
	return index, true
}

// contentStartY is the Y coordinate of the first list row; row 0 is
// the title bar.
const contentStartY = 1

// visibleHeight returns how many list rows fit between the title bar
// and the bottom chrome (separator plus status bar).
func (model Model) visibleHeight() int {
	visible := model.height - 3
	if visible < 0 {
		return 0
	}
	return visible
}

// moveCursor moves the cursor by delta rows, clamped to the item
// range.
func (model *Model) moveCursor(delta int) {
	model.setCursor(model.cursor + delta)
}

// setCursor places the cursor, clamps it, records the stable
// selection key, and scrolls it into view.
func (model *Model) setCursor(index int) {
	if len(model.items) == 0 {
		model.cursor = 0
		model.selectedKey = ""
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(model.items) {
		index = len(model.items) - 1
	}
	model.cursor = index
	model.selectedKey = model.items[index].Key()
	model.ensureCursorVisible()
}

// scrollBy scrolls the viewport without moving the selection, then
// clamps the cursor into the visible range.
func (model *Model) scrollBy(delta int) {
	model.scrollOffset += delta
	model.clampScroll()
	if model.cursor < model.scrollOffset {
		model.cursor = model.scrollOffset
	}
	if visible := model.visibleHeight(); visible > 0 && model.cursor >= model.scrollOffset+visible {
		model.cursor = model.scrollOffset + visible - 1
	}
}

func (model *Model) clampScroll() {
	maxOffset := len(model.items) - model.visibleHeight()
	if maxOffset < 0 {
		maxOffset = 0
	}
	if model.scrollOffset > maxOffset {
		model.scrollOffset = maxOffset
	}
	if model.scrollOffset < 0 {
		model.scrollOffset = 0
	}
}

func (model *Model) ensureCursorVisible() {
	visible := model.visibleHeight()
	if visible <= 0 {
		return
	}
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+visible {
		model.scrollOffset = model.cursor - visible + 1
	}
}

// rebuildItems re-derives the display rows from the engine's tree and
// the collapse map.
func (model *Model) rebuildItems() {
	model.items = buildItems(model.engine.Tree(), model.collapsed)
	model.clampScroll()
}

// restoreSelection re-points the cursor at the row it was on before a
// rebuild, found by stable key. Falls back to clamping when the row
// is gone.
func (model *Model) restoreSelection() {
	if model.selectedKey != "" {
		for index, item := range model.items {
			if item.Key() == model.selectedKey {
				model.cursor = index
				model.ensureCursorVisible()
				return
			}
		}
	}
	if model.cursor >= len(model.items) {
		model.cursor = len(model.items) - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
	model.ensureCursorVisible()
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.sized {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, model.renderTitle())
	sections = append(sections, model.renderBody())

	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))
	sections = append(sections, separator)
	sections = append(sections, model.renderStatusBar())

	return strings.Join(sections, "\n")
}

// renderTitle renders the top bar: panel name plus a sync indicator.
func (model Model) renderTitle() string {
	title := lipgloss.NewStyle().
		Foreground(model.theme.HeaderForeground).
		Bold(true).
		Render("WATCHDECK")

	var state string
	if model.engine.Ready() {
		tree := model.engine.Tree()
		online := countOnline(tree.Uncategorized)
		for _, folder := range tree.Folders {
			online += countOnline(folder.Users)
		}
		state = lipgloss.NewStyle().Foreground(model.theme.FaintText).
			Render(fmt.Sprintf("%d online", online))
	} else {
		state = lipgloss.NewStyle().Foreground(model.theme.FaintText).
			Render("connecting…")
	}

	padding := model.width - lipgloss.Width(title) - lipgloss.Width(state)
	if padding < 1 {
		padding = 1
	}
	return title + strings.Repeat(" ", padding) + state
}

// renderBody renders the visible slice of list rows, padded to the
// content height.
func (model Model) renderBody() string {
	visible := model.visibleHeight()
	renderer := NewListRenderer(model.theme, model.width)

	if !model.engine.Ready() {
		placeholder := lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Render("  syncing watch list…")
		return padRows([]string{placeholder}, visible, model.width)
	}

	var rows []string
	for index := model.scrollOffset; index < model.scrollOffset+visible && index < len(model.items); index++ {
		item := model.items[index]
		selected := index == model.cursor
		rows = append(rows, model.renderItem(renderer, item, selected))
	}
	return padRows(rows, visible, model.width)
}

// renderItem renders one row with drag/drop/grab decoration.
func (model Model) renderItem(renderer ListRenderer, item ListItem, selected bool) string {
	target := model.activeDropTarget()

	if item.IsHeader {
		dropHere := target != nil && target.insertion == nil &&
			target.sectionID == item.SectionID && (item.Collapsed || item.Total > 0)
		return renderer.RenderHeader(item, selected, dropHere)
	}
	if item.Placeholder {
		dropHere := target != nil && target.insertion == nil && target.sectionID == item.SectionID
		return renderer.RenderEmptySection(dropHere)
	}

	dragging := item.Kind != KindGroup && item.User.UserID == model.draggedUser()
	dropHere := false
	dropSide := watchlist.SideBelow
	if target != nil && target.insertion != nil &&
		target.sectionID == item.SectionID &&
		target.insertion.NeighborUserID == item.User.UserID {
		dropHere = true
		dropSide = target.insertion.Side
	}
	return renderer.RenderUser(item, selected, dragging, dropHere, dropSide)
}

// draggedUser returns the user being moved by pointer or keyboard, or
// "".
func (model Model) draggedUser() string {
	if model.drag != nil {
		return model.drag.userID
	}
	return model.grabbedUser
}

// activeDropTarget returns the insertion a drop right now would use:
// the pointer drag's live target, or in grab mode the target implied
// by the cursor row.
func (model Model) activeDropTarget() *dropTarget {
	if model.drag != nil && model.drag.moved {
		return model.drag.target
	}
	if model.grabbedUser != "" {
		if item, ok := model.currentItem(); ok {
			return dropTargetForItem(item, model.engine.Tree())
		}
	}
	return nil
}

// padRows pads the row list with blank lines to the given height.
func padRows(rows []string, height, width int) string {
	emptyStyle := lipgloss.NewStyle().Width(width)
	for len(rows) < height {
		rows = append(rows, emptyStyle.Render(""))
	}
	return strings.Join(rows, "\n")
}

// renderStatusBar renders the bottom line: the folder editor when
// active, a log notice when one is fresh, the keyboard help
// otherwise.
func (model Model) renderStatusBar() string {
	if model.editor.Active() {
		return model.editor.View(model.theme, model.width)
	}
	if model.notice != "" {
		color := model.theme.FaintText
		if model.noticeLevel >= slog.LevelError {
			color = model.theme.ErrorText
		}
		return lipgloss.NewStyle().
			Foreground(color).
			Width(model.width).
			MaxWidth(model.width).
			Render(model.notice)
	}

	help := "j/k move · space grab · h/l fold · n new · r rename · D delete · x remove · q quit"
	if model.grabbedUser != "" {
		help = "j/k choose position · enter drop · esc cancel"
	}
	return lipgloss.NewStyle().
		Foreground(model.theme.HelpText).
		Width(model.width).
		MaxWidth(model.width).
		Render(help)
}
