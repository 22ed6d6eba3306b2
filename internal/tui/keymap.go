package tui

import "charm.land/bubbles/v2/key"

// keyMap holds every binding the visualization view responds to.
type keyMap struct {
	quit         key.Binding
	refresh      key.Binding
	toggleHelp   key.Binding
	nextStrategy key.Binding
	prevStrategy key.Binding
	jumpStrategy key.Binding
	toggleFilter key.Binding
	togglePin    key.Binding
	nextNode     key.Binding
	prevNode     key.Binding
	clearSelect  key.Binding
	details      key.Binding
	copyID       key.Binding
	panLeft      key.Binding
	panRight     key.Binding
	panUp        key.Binding
	panDown      key.Binding
	zoomIn       key.Binding
	zoomOut      key.Binding
	resetView    key.Binding
}

// newKeyMap constructs the default key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextStrategy: key.NewBinding(key.WithKeys("tab", "]"), key.WithHelp("tab/]", "next view")),
		prevStrategy: key.NewBinding(key.WithKeys("shift+tab", "["), key.WithHelp("shift+tab/[", "previous view")),
		jumpStrategy: key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "jump to view")),
		toggleFilter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "active/all work orders")),
		togglePin:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin work order")),
		nextNode:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "select next")),
		prevNode:     key.NewBinding(key.WithKeys("N", "shift+n"), key.WithHelp("N", "select previous")),
		clearSelect:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
		details:      key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "details")),
		copyID:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		panLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "pan left")),
		panRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "pan right")),
		panUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "pan up")),
		panDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "pan down")),
		zoomIn:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		zoomOut:      key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		resetView:    key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
	}
}

// ShortHelp returns the bindings shown in the one-line help bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.nextStrategy, k.nextNode, k.details, k.toggleFilter, k.togglePin, k.refresh, k.toggleHelp, k.quit,
	}
}

// FullHelp returns the grouped bindings shown in expanded help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextStrategy, k.prevStrategy, k.jumpStrategy, k.toggleFilter, k.togglePin, k.refresh, k.toggleHelp, k.quit},
		{k.nextNode, k.prevNode, k.clearSelect, k.details, k.copyID},
		{k.panLeft, k.panRight, k.panUp, k.panDown, k.zoomIn, k.zoomOut, k.resetView},
	}
}
