// Package audio models looped sound playback on the host and the single slot
// that owns the live playback handle.
package audio

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPlaybackRejected means the host refused to start playback, usually
	// because of an autoplay policy.
	ErrPlaybackRejected = errors.New("playback rejected by host")
	// ErrSlotBusy means a playback handle is already held.
	ErrSlotBusy = errors.New("playback slot already in use")
)

// Track describes what to play.
type Track struct {
	Source string  `json:"src"`
	Loop   bool    `json:"loop"`
	Volume float64 `json:"volume"`
}

// Player creates playback handles. Opening does not start playback.
type Player interface {
	Open(track Track) Playback
}

// Playback is a single handle. Play blocks until the host reports that
// playback started or was refused. Stop pauses and rewinds.
type Playback interface {
	Play(ctx context.Context) error
	Stop()
}

// Slot holds at most one playback handle.
type Slot struct {
	mu      sync.Mutex
	current Playback
}

// Acquire opens a fresh handle from p and takes ownership of it.
func (s *Slot) Acquire(p Player, track Track) (Playback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return nil, ErrSlotBusy
	}
	s.current = p.Open(track)
	return s.current, nil
}

// Release empties the slot and hands back the previous handle, if any.
func (s *Slot) Release() Playback {
	s.mu.Lock()
	defer s.mu.Unlock()

	pb := s.current
	s.current = nil
	return pb
}

func (s *Slot) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}
