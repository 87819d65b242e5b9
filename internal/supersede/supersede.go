// Package supersede tracks which asynchronous request in a slot is still the
// latest one. Issuing a new token makes every earlier token stale, so a result
// carrying a stale token must be discarded.
package supersede

import "sync/atomic"

// Slot is one logical request lane, e.g. "bookings for the selected station".
// The zero value is ready to use.
type Slot struct {
	gen atomic.Uint64
}

// Token identifies one issued request.
type Token struct {
	slot *Slot
	gen  uint64
}

// Issue starts a new generation and returns its token.
func (s *Slot) Issue() Token {
	return Token{slot: s, gen: s.gen.Add(1)}
}

// Peek returns a token for the current generation without starting a new one.
func (s *Slot) Peek() Token {
	return Token{slot: s, gen: s.gen.Load()}
}

// Invalidate makes every outstanding token stale. Used on teardown.
func (s *Slot) Invalidate() {
	s.gen.Add(1)
}

// Current reports whether no newer token has been issued since t.
func (t Token) Current() bool {
	return t.slot != nil && t.slot.gen.Load() == t.gen
}

func (t Token) Generation() uint64 {
	return t.gen
}
