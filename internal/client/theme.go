package client

import "log"

const themeKey = "theme"

// Storage persists small string preferences. Implemented by localStorage
// in the browser and a config file in chatcli.
type Storage interface {
	Get(key string) (value string, ok bool)
	Set(key, value string) error
}

// Theme is the two-valued light/dark preference. A missing stored value
// falls back to the platform's ambient preference; a failing store
// degrades to session-scoped memory.
type Theme struct {
	storage     Storage
	ambientDark bool
	memory      string
	degraded    bool
}

func NewTheme(storage Storage, ambientDark bool) *Theme {
	return &Theme{storage: storage, ambientDark: ambientDark}
}

// Dark returns the effective preference.
func (t *Theme) Dark() bool {
	if t.degraded {
		return t.memory == "dark"
	}
	if v, ok := t.storage.Get(themeKey); ok {
		return v == "dark"
	}
	return t.ambientDark
}

// SetDark records the preference. Storage failure switches the theme to
// in-memory operation for the rest of the session.
func (t *Theme) SetDark(enabled bool) {
	value := "light"
	if enabled {
		value = "dark"
	}
	if !t.degraded {
		if err := t.storage.Set(themeKey, value); err != nil {
			log.Printf("[theme] persist preference: %v", err)
			t.degraded = true
		}
	}
	t.memory = value
}

// Toggle flips the preference and returns the new value.
func (t *Theme) Toggle() bool {
	next := !t.Dark()
	t.SetDark(next)
	return next
}
