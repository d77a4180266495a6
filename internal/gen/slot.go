// Package gen implements single-slot request supersession.
//
// A Slot hands out monotonically increasing generations. Starting a new
// generation cancels the context of the previous one, so work tied to an
// older request can both stop early (ctx.Done) and recognise that its result
// is stale (IsCurrent) regardless of timer mechanics.
package gen

import (
	"context"
	"sync"
)

// Slot tracks the latest outstanding request.
type Slot struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Next starts a new generation derived from parent and cancels the previous one.
func (s *Slot) Next(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	s.cancel = cancel
	seq := s.seq
	s.mu.Unlock()

	return ctx, seq
}

// IsCurrent reports whether seq is still the latest generation.
func (s *Slot) IsCurrent(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil && seq == s.seq
}

// Current returns the latest generation number.
func (s *Slot) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Cancel cancels the outstanding generation. Any later IsCurrent check for it
// returns false.
func (s *Slot) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.mu.Unlock()
}

// Done releases the context of generation seq if it is still current, without
// invalidating it.
func (s *Slot) Done(seq uint64) {
	s.mu.Lock()
	if seq == s.seq && s.cancel != nil {
		// keep the generation current; only free the context resources
		s.cancel()
	}
	s.mu.Unlock()
}
