package buyin_window

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	expired   []string
	confirmed []string
}

func (r *recorder) option() WindowOption {
	return WindowOption{
		OnExpired: func(key string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.expired = append(r.expired, key)
		},
		OnConfirmed: func(key string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.confirmed = append(r.confirmed, key)
		},
	}
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.expired...), append([]string(nil), r.confirmed...)
}

func TestTimeoutSeconds(t *testing.T) {
	assert.Equal(t, 1, timeoutSeconds(0))
	assert.Equal(t, 1, timeoutSeconds(200*time.Millisecond))
	assert.Equal(t, 10, timeoutSeconds(10*time.Second))
	assert.Equal(t, 11, timeoutSeconds(10*time.Second+time.Millisecond))
}

func TestWindowConfirm(t *testing.T) {
	r := &recorder{}
	m := NewWindowManager(r.option())
	defer m.Close()

	require.NoError(t, m.Open("buy_in/a", 10*time.Second))
	assert.ErrorIs(t, m.Open("buy_in/a", 10*time.Second), ErrWindowExists)

	state := m.GetState()
	require.Contains(t, state.Windows, "buy_in/a")
	assert.False(t, state.Windows["buy_in/a"].Confirmed)

	require.NoError(t, m.Confirm("buy_in/a"))

	assert.Eventually(t, func() bool {
		_, confirmed := r.snapshot()
		return len(confirmed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, m.GetState().Windows)
	assert.ErrorIs(t, m.Confirm("buy_in/a"), ErrWindowNotFound)
}

func TestWindowExpires(t *testing.T) {
	r := &recorder{}
	m := NewWindowManager(r.option())
	defer m.Close()

	require.NoError(t, m.Open("buy_in/b", 100*time.Millisecond))

	assert.Eventually(t, func() bool {
		expired, _ := r.snapshot()
		return len(expired) == 1 && expired[0] == "buy_in/b"
	}, 3*time.Second, 20*time.Millisecond)

	_, confirmed := r.snapshot()
	assert.Empty(t, confirmed)
	assert.ErrorIs(t, m.Confirm("buy_in/b"), ErrWindowNotFound)
}

func TestWindowCancelSuppressesCallbacks(t *testing.T) {
	r := &recorder{}
	m := NewWindowManager(r.option())
	defer m.Close()

	require.NoError(t, m.Open("buy_in/c", 100*time.Millisecond))
	m.Cancel("buy_in/c")
	m.Cancel("buy_in/c")

	time.Sleep(1500 * time.Millisecond)

	expired, confirmed := r.snapshot()
	assert.Empty(t, expired)
	assert.Empty(t, confirmed)
}
