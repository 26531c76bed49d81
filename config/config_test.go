package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/holdemtable"
	"go.uber.org/zap/zapcore"
)

func TestDefaults(t *testing.T) {
	c, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, LedgerMemory, c.Ledger.Driver)
	assert.Equal(t, 5, c.Escrow.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, c.Escrow.Backoff)
	assert.Equal(t, 5*time.Second, c.Escrow.AttemptTimeout)

	assert.Equal(t, holdemtable.NewDefaultTableSetting(), c.TableSetting())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOLDEM_TABLE_BIG_BLIND", "50")
	t.Setenv("HOLDEM_TABLE_SMALL_BLIND", "25")
	t.Setenv("HOLDEM_TABLE_ACTION_TIMEOUT", "15s")
	t.Setenv("HOLDEM_ESCROW_MAX_ATTEMPTS", "2")

	c, err := Load(New(), "")
	require.NoError(t, err)

	setting := c.TableSetting()
	assert.Equal(t, int64(25), setting.SmallBlind)
	assert.Equal(t, int64(50), setting.BigBlind)
	assert.Equal(t, 15*time.Second, setting.ActionTimeout)
	assert.Equal(t, 2, c.EscrowOptions().MaxAttempts)
}

func TestConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "holdem.yaml")
	content := []byte(`
log:
  level: debug
  development: true
table:
  max_seats: 6
  interval: 2s
`)
	require.NoError(t, os.WriteFile(file, content, 0o600))

	c, err := Load(New(), file)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Table.MaxSeats)
	assert.Equal(t, 2*time.Second, c.Table.Interval)

	logger, err := c.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestValidate(t *testing.T) {
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("HOLDEM_LEDGER_DRIVER", LedgerPostgres)
		_, err := Load(New(), "")
		assert.ErrorIs(t, err, ErrMissingDSN)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("HOLDEM_LEDGER_DRIVER", "sqlite")
		_, err := Load(New(), "")
		assert.ErrorIs(t, err, ErrUnknownLedgerDriver)
	})

	t.Run("bad table", func(t *testing.T) {
		t.Setenv("HOLDEM_TABLE_MAX_SEATS", "1")
		_, err := Load(New(), "")
		assert.ErrorIs(t, err, holdemtable.ErrTableInvalidSetting)
	})

	t.Run("bad log level", func(t *testing.T) {
		c, err := Load(New(), "")
		require.NoError(t, err)
		c.Log.Level = "loud"
		_, err = c.NewLogger()
		assert.Error(t, err)
	})
}
