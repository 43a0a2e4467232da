// Package tray provides the system tray menu: recognition toggle, last recognized label,
// classifier mode and session reset.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/signspeak/internal/session"
)

var modes = []session.Mode{session.ModeGestures, session.ModeAlphabet, session.ModeSequence}

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onMode     func(mode session.Mode) error
	onReset    func()
	onSettings func()
	onQuit     func()
	enabled    bool
	mode       session.Mode
	last       string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuModes       map[session.Mode]*systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New(mode session.Mode) *Tray {
	return &Tray{
		enabled: true,
		mode:    mode,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMode sets the callback for mode selection. A returned error keeps the previous mode.
func (t *Tray) OnMode(fn func(mode session.Mode) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMode = fn
}

// OnReset sets the callback for the reset menu item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("SignSpeak")
	systray.SetTooltip("SignSpeak sign language recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle recognition")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastTitle(t.last), "Last recognized label")
	t.menuLastGesture.Disable()
	systray.AddSeparator()

	menuMode := systray.AddMenuItem("Mode", "Classifier mode")
	t.menuModes = make(map[session.Mode]*systray.MenuItem, len(modes))
	for _, m := range modes {
		item := menuMode.AddSubMenuItemCheckbox(string(m), "Switch to "+string(m), m == t.mode)
		t.menuModes[m] = item
	}
	menuReset := systray.AddMenuItem("Reset session", "Clear the window and the displayed label")
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SignSpeak")
	items := t.menuModes
	t.mu.Unlock()

	for m, item := range items {
		go func(m session.Mode, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.handleMode(m)
			}
		}(m, item)
	}

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleMode(m session.Mode) {
	t.mu.RLock()
	callback := t.onMode
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(m); err != nil {
			t.SetMode(t.Mode())
			return
		}
	}
	t.SetMode(m)
}

func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	t.SetLastGesture("")
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastGesture updates the last recognized label. An empty label shows "none".
func (t *Tray) SetLastGesture(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = label
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(label))
	}
}

// LastGesture returns the label shown in the menu.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// SetMode checks the menu entry for m.
func (t *Tray) SetMode(m session.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mode = m
	for mode, item := range t.menuModes {
		if mode == m {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// Mode returns the checked mode.
func (t *Tray) Mode() session.Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}
