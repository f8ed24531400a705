// Package modes maps mode names to system instructions and tracks the
// active mode per chat. The name -> instruction mapping is loaded once from
// configuration and never mutated; only per-chat active-mode state changes.
package modes

import (
	"errors"
	"sort"
	"sync"
)

// ErrInvalidMode is returned when a mode name is not in the static mapping.
var ErrInvalidMode = errors.New("unknown chat mode")

// Registry holds the static mode mapping and the per-chat active mode.
type Registry struct {
	modes map[string]string

	mu     sync.RWMutex
	active map[int64]string
}

// NewRegistry builds a registry from the static mode mapping.
func NewRegistry(modes map[string]string) *Registry {
	m := make(map[string]string, len(modes))
	for name, instruction := range modes {
		m[name] = instruction
	}
	return &Registry{
		modes:  m,
		active: make(map[int64]string),
	}
}

// Resolve returns the system instruction for a mode name.
func (r *Registry) Resolve(name string) (string, bool) {
	instruction, ok := r.modes[name]
	return instruction, ok
}

// SetActive makes the named mode the active mode for a chat. Unknown names
// leave the active mode unchanged.
func (r *Registry) SetActive(chatID int64, name string) error {
	if _, ok := r.modes[name]; !ok {
		return ErrInvalidMode
	}
	r.mu.Lock()
	r.active[chatID] = name
	r.mu.Unlock()
	return nil
}

// ResetActive clears the active mode for a chat. Idempotent.
func (r *Registry) ResetActive(chatID int64) {
	r.mu.Lock()
	delete(r.active, chatID)
	r.mu.Unlock()
}

// Active returns the chat's active mode name, if set.
func (r *Registry) Active(chatID int64) (string, bool) {
	r.mu.RLock()
	name, ok := r.active[chatID]
	r.mu.RUnlock()
	return name, ok
}

// Instruction returns the system instruction for the chat's active mode, or
// empty when no mode is set.
func (r *Registry) Instruction(chatID int64) string {
	name, ok := r.Active(chatID)
	if !ok {
		return ""
	}
	instruction, ok := r.modes[name]
	if !ok {
		return ""
	}
	return instruction
}

// Names returns the known mode names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modes))
	for name := range r.modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
