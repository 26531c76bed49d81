package buyin_window

import (
	"errors"
	"sync"
	"time"

	"github.com/weedbox/syncsaga"
)

var (
	ErrWindowNotFound = errors.New("buyin_window: window not found")
	ErrWindowExists   = errors.New("buyin_window: window already open")
)

// WindowManager keeps one confirmation window per pending buy-in. A window
// closes when the buy-in is confirmed, cancelled, or expires.
type WindowManager interface {
	Open(key string, timeout time.Duration) error
	Confirm(key string) error
	Cancel(key string)
	GetState() WindowState
	Close()
}

type windowManager struct {
	mu          sync.Mutex
	onExpired   func(key string)
	onConfirmed func(key string)
	windows     map[string]*window
}

type window struct {
	rg     *syncsaga.ReadyGroup
	state  *WindowParticipant
	closed bool
}

type WindowOption struct {
	OnExpired   func(key string)
	OnConfirmed func(key string)
}

type WindowState struct {
	Windows map[string]*WindowParticipant `json:"windows"` // key: buy-in idempotency key
}

type WindowParticipant struct {
	Key       string    `json:"key"`
	OpenedAt  time.Time `json:"opened_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Confirmed bool      `json:"confirmed"`
}
