// Package input defines the logical actions of the demo and the events
// drivers deliver to it, independent of the terminal or window library
// that produced them.
package input

import (
	"strings"
	"time"
)

// Action is a logical control.
type Action int

const (
	ActionNone Action = iota

	// Camera intents. Press sets the intent, release clears it.
	ActionMoveForward
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionTurnLeft
	ActionTurnRight
	ActionTurnUp
	ActionTurnDown

	// Global toggles, fired on press.
	ActionPause
	ActionToggleBoundingBox
	ActionToggleFullscreen
	ActionScreenshot
	ActionNudgeForward
	ActionNudgeBackward
	ActionQuit
)

var actionNames = map[Action]string{
	ActionNone:              "none",
	ActionMoveForward:       "move-forward",
	ActionMoveBackward:      "move-backward",
	ActionMoveLeft:          "move-left",
	ActionMoveRight:         "move-right",
	ActionMoveUp:            "move-up",
	ActionMoveDown:          "move-down",
	ActionTurnLeft:          "turn-left",
	ActionTurnRight:         "turn-right",
	ActionTurnUp:            "turn-up",
	ActionTurnDown:          "turn-down",
	ActionPause:             "pause",
	ActionToggleBoundingBox: "toggle-bounding-box",
	ActionToggleFullscreen:  "toggle-fullscreen",
	ActionScreenshot:        "screenshot",
	ActionNudgeForward:      "nudge-forward",
	ActionNudgeBackward:     "nudge-backward",
	ActionQuit:              "quit",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// IsCamera reports whether a is one of the ten held camera intents.
func (a Action) IsCamera() bool {
	return a >= ActionMoveForward && a <= ActionTurnDown
}

// Event is something a driver delivers to the frame loop.
type Event interface {
	isEvent()
}

// KeyEvent is a press or release of the key bound to Action.
type KeyEvent struct {
	Action  Action
	Pressed bool
}

// MouseMoveEvent carries an absolute pointer position in cells or pixels.
type MouseMoveEvent struct {
	X, Y int
}

// ResizeEvent reports a new surface size in framebuffer pixels.
type ResizeEvent struct {
	Width, Height int
}

func (KeyEvent) isEvent()       {}
func (MouseMoveEvent) isEvent() {}
func (ResizeEvent) isEvent()    {}

// Keymap maps normalized key names to actions. Names are lower case:
// single characters for printable keys, and "up", "pgup", "f10", "escape"
// and so on for the rest.
type Keymap map[string]Action

// DefaultKeymap returns the demo's bindings.
func DefaultKeymap() Keymap {
	return Keymap{
		"w":      ActionMoveForward,
		"s":      ActionMoveBackward,
		"a":      ActionTurnLeft,
		"d":      ActionTurnRight,
		"r":      ActionTurnUp,
		"f":      ActionTurnDown,
		"up":     ActionMoveUp,
		"down":   ActionMoveDown,
		"left":   ActionMoveLeft,
		"right":  ActionMoveRight,
		"p":      ActionPause,
		"b":      ActionToggleBoundingBox,
		"f11":    ActionToggleFullscreen,
		"f10":    ActionScreenshot,
		"pgup":   ActionNudgeForward,
		"pgdown": ActionNudgeBackward,
		"escape": ActionQuit,
		"esc":    ActionQuit,
		"q":      ActionQuit,
		"ctrl+c": ActionQuit,
	}
}

// Lookup returns the action bound to name.
func (k Keymap) Lookup(name string) (Action, bool) {
	a, ok := k[strings.ToLower(name)]
	return a, ok
}

// DefaultHoldWindow is how long a camera key counts as held after its last
// press or auto-repeat when the terminal reports no releases.
const DefaultHoldWindow = 150 * time.Millisecond

// Holder synthesizes key releases for terminals that only report presses.
// Each press or auto-repeat of a camera action refreshes its deadline;
// Expire releases every action whose deadline has passed.
type Holder struct {
	Window time.Duration
	held   map[Action]time.Time
}

// NewHolder returns a holder with the given window, or the default when
// window is zero.
func NewHolder(window time.Duration) *Holder {
	if window <= 0 {
		window = DefaultHoldWindow
	}
	return &Holder{Window: window, held: make(map[Action]time.Time)}
}

// Press records a press of a at now. It reports whether a was newly held,
// so callers only forward the first press of a burst of auto-repeats.
func (h *Holder) Press(a Action, now time.Time) bool {
	_, already := h.held[a]
	h.held[a] = now.Add(h.Window)
	return !already
}

// Release forgets a. It reports whether a was held.
func (h *Holder) Release(a Action) bool {
	_, ok := h.held[a]
	delete(h.held, a)
	return ok
}

// Expire returns release events for every held action whose deadline is
// before now and forgets them.
func (h *Holder) Expire(now time.Time) []KeyEvent {
	var out []KeyEvent
	for a, deadline := range h.held {
		if now.After(deadline) {
			out = append(out, KeyEvent{Action: a, Pressed: false})
			delete(h.held, a)
		}
	}
	return out
}

// Held reports whether a is currently held.
func (h *Holder) Held(a Action) bool {
	_, ok := h.held[a]
	return ok
}
