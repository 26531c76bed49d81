package buyin_window

func (m *windowManager) release(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, exist := m.windows[key]
	if !exist || w.closed {
		return false
	}
	w.closed = true
	delete(m.windows, key)
	return true
}

func (m *windowManager) readyGroupOnCompleted(key string) {
	if m.release(key) {
		m.onConfirmed(key)
	}
}

func (m *windowManager) readyGroupOnTimeout(key string) {
	if m.release(key) {
		m.onExpired(key)
	}
}
