package shield

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Mode is the application's network mode.
type Mode int32

const (
	ModeOffline Mode = iota
	ModeOnline
)

func (m Mode) String() string {
	if m == ModeOnline {
		return "online"
	}
	return "offline"
}

// ParseMode parses "online" or "offline" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online":
		return ModeOnline, nil
	case "offline":
		return ModeOffline, nil
	}
	return ModeOffline, fmt.Errorf("unknown network mode %q", s)
}

// ModeGate reports whether network operations are currently permitted.
type ModeGate interface {
	NetworkAllowed() bool
}

// ModeSwitch is a ModeGate the application flips at runtime. Switching to
// offline cancels every context obtained from Watch.
type ModeSwitch struct {
	mode atomic.Int32

	mu       sync.Mutex
	nextID   uint64
	watchers map[uint64]context.CancelFunc
}

// NewModeSwitch returns a switch in the given mode.
func NewModeSwitch(m Mode) *ModeSwitch {
	s := &ModeSwitch{watchers: make(map[uint64]context.CancelFunc)}
	s.mode.Store(int32(m))
	return s
}

// Mode returns the current mode.
func (s *ModeSwitch) Mode() Mode {
	return Mode(s.mode.Load())
}

// NetworkAllowed implements ModeGate.
func (s *ModeSwitch) NetworkAllowed() bool {
	return s.Mode() == ModeOnline
}

// Set changes the mode. Going offline cancels all watched contexts.
func (s *ModeSwitch) Set(m Mode) {
	s.mode.Store(int32(m))
	if m == ModeOnline {
		return
	}

	s.mu.Lock()
	watchers := s.watchers
	s.watchers = make(map[uint64]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range watchers {
		cancel()
	}
}

// Watch derives a context that is cancelled when the switch goes offline.
// If the switch is already offline the context is returned cancelled.
func (s *ModeSwitch) Watch(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = cancel
	s.mu.Unlock()

	// Set may have run between the caller's check and registration.
	if !s.NetworkAllowed() {
		cancel()
	}

	return ctx, func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		cancel()
	}
}
