// Package scenario implements the sequential workflow engine: a
// per-virtual-user variable scope, ${...} template rendering, response
// extraction, and the step runner that ties them to the HTTP client.
package scenario

import (
	"fmt"
	"strconv"
)

// Scope is the variable store for one virtual user. Values are strings
// or ordered string lists. A scope is a stack of frames: loop bodies
// push a frame on entry, and popping merges the frame's bindings into
// the parent, so loop variables deliberately survive the loop with
// their final values.
//
// A Scope belongs to exactly one virtual user and is never shared, so
// it needs no locking.
type Scope struct {
	frames []map[string]interface{}
}

// NewScope returns a scope holding only the root frame.
func NewScope() *Scope {
	return &Scope{frames: []map[string]interface{}{make(map[string]interface{})}}
}

// NewScopeFrom returns a scope seeded with the given string bindings.
func NewScopeFrom(seed map[string]string) *Scope {
	s := NewScope()
	for name, value := range seed {
		s.Set(name, value)
	}
	return s
}

// Set binds name in the innermost frame. value must be a string or a
// []string; anything else is stored via its default formatting when
// read back.
func (s *Scope) Set(name string, value interface{}) {
	s.frames[len(s.frames)-1][name] = value
}

// Get returns the raw value bound to name, innermost frame first.
func (s *Scope) Get(name string) (interface{}, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if value, ok := s.frames[i][name]; ok {
			return value, true
		}
	}
	return nil, false
}

// Has reports whether name is bound in any frame.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// GetString returns the string form of the value bound to name. A list
// reads as its first element, the way a scalar reference to a
// multi-match extraction resolves.
func (s *Scope) GetString(name string) (string, bool) {
	value, ok := s.Get(name)
	if !ok {
		return "", false
	}
	return stringify(value), true
}

// GetDefault returns the string form of name's value, or def when name
// is unbound.
func (s *Scope) GetDefault(name, def string) string {
	if value, ok := s.GetString(name); ok {
		return value
	}
	return def
}

// GetList returns the value bound to name as a list. A plain string
// reads as a one-element list, which is how a sentinel binding flows
// into a for-each.
func (s *Scope) GetList(name string) ([]string, bool) {
	value, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case []string:
		return v, true
	default:
		return []string{stringify(v)}, true
	}
}

// Push opens a new frame for a loop body.
func (s *Scope) Push() {
	s.frames = append(s.frames, make(map[string]interface{}))
}

// Pop closes the innermost frame, merging its bindings into the parent.
// The root frame is never popped.
func (s *Scope) Pop() {
	if len(s.frames) == 1 {
		return
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	parent := s.frames[len(s.frames)-1]
	for name, value := range top {
		parent[name] = value
	}
}

// Depth returns the number of open frames, root included.
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Snapshot returns a flat copy of every visible binding, outer frames
// shadowed by inner ones.
func (s *Scope) Snapshot() map[string]interface{} {
	flat := make(map[string]interface{})
	for _, frame := range s.frames {
		for name, value := range frame {
			flat[name] = value
		}
	}
	return flat
}

// stringify renders a stored value as a string.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
