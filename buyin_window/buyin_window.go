package buyin_window

import (
	"time"

	"github.com/weedbox/syncsaga"
)

const participantIndex int64 = 0

func NewWindowManager(options WindowOption) WindowManager {
	m := &windowManager{
		onExpired:   options.OnExpired,
		onConfirmed: options.OnConfirmed,
		windows:     make(map[string]*window),
	}

	if m.onExpired == nil {
		m.onExpired = func(string) {}
	}
	if m.onConfirmed == nil {
		m.onConfirmed = func(string) {}
	}

	return m
}

// Open arms a window for key. The ready group timeout has whole-second
// resolution, so the window fires no earlier than timeout.
func (m *windowManager) Open(key string, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exist := m.windows[key]; exist {
		return ErrWindowExists
	}

	now := time.Now()
	w := &window{
		state: &WindowParticipant{
			Key:       key,
			OpenedAt:  now,
			ExpiresAt: now.Add(timeout),
		},
	}

	w.rg = syncsaga.NewReadyGroup(syncsaga.WithTimeout(timeoutSeconds(timeout), func(rg *syncsaga.ReadyGroup) {
		m.readyGroupOnTimeout(key)
	}))
	w.rg.OnCompleted(func(rg *syncsaga.ReadyGroup) {
		m.readyGroupOnCompleted(key)
	})
	w.rg.Add(participantIndex, false)
	m.windows[key] = w

	w.rg.Start()
	return nil
}

func (m *windowManager) Confirm(key string) error {
	m.mu.Lock()
	w, exist := m.windows[key]
	if !exist || w.closed {
		m.mu.Unlock()
		return ErrWindowNotFound
	}
	w.state.Confirmed = true
	m.mu.Unlock()

	w.rg.Ready(participantIndex)
	return nil
}

func (m *windowManager) Cancel(key string) {
	m.mu.Lock()
	w, exist := m.windows[key]
	if exist {
		w.closed = true
		delete(m.windows, key)
	}
	m.mu.Unlock()

	if exist {
		w.rg.Stop()
	}
}

func (m *windowManager) GetState() WindowState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := WindowState{Windows: make(map[string]*WindowParticipant, len(m.windows))}
	for key, w := range m.windows {
		copied := *w.state
		state.Windows[key] = &copied
	}
	return state
}

// Close stops every open window without firing callbacks.
func (m *windowManager) Close() {
	m.mu.Lock()
	windows := m.windows
	m.windows = make(map[string]*window)
	m.mu.Unlock()

	for _, w := range windows {
		w.closed = true
		w.rg.Stop()
	}
}

func timeoutSeconds(timeout time.Duration) int {
	seconds := int((timeout + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
