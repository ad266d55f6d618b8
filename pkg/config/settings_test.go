package config

import (
	"context"
	"testing"
	"time"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := DefaultSettings()
	s.Blacklist = []string{"nikana_prime_set"}
	st := NewSettingsState(s, nil, time.Second)

	snap, err := st.Snapshot(context.Background())
	require.NoError(t, err)
	snap.Blacklist[0] = "changed"

	again, err := st.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nikana_prime_set", again.Blacklist[0])
	assert.True(t, again.IsBlacklisted("nikana_prime_set"))
}

func TestSnapshotLockTimeoutIsCriticalLockError(t *testing.T) {
	st := NewSettingsState(DefaultSettings(), nil, 20*time.Millisecond)
	st.mu.Lock()
	defer st.mu.Unlock()

	_, err := st.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindLock))
	assert.True(t, apperr.IsCritical(err))
}

func TestUpdatePersistsAndRestores(t *testing.T) {
	store := &persistence.MemoryStore{}
	st := NewSettingsState(DefaultSettings(), store, time.Second)

	s := DefaultSettings()
	s.AvgPriceCap = 150
	s.Whitelist = []string{"arcane_energize"}
	require.NoError(t, st.Update(context.Background(), s))

	fresh := NewSettingsState(DefaultSettings(), store, time.Second)
	require.NoError(t, fresh.Restore(context.Background()))
	snap, err := fresh.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, snap.AvgPriceCap)
	assert.Equal(t, []string{"arcane_energize"}, snap.Whitelist)
}

func TestUpdateRejectsInvalid(t *testing.T) {
	st := NewSettingsState(DefaultSettings(), nil, time.Second)
	s := DefaultSettings()
	s.MaxTotalPriceCap = -1
	err := st.Update(context.Background(), s)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindData))
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	t.Setenv("WFM_INTERVAL", "9s")
	cfg, err := LoadFromFile("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, cfg.LiveTrader.Interval)
	assert.Equal(t, "pc", cfg.Market.Platform)
}
