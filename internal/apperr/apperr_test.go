package apperr

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkSessionFailureIsCritical(t *testing.T) {
	assert.True(t, IsCritical(Network("wfm.CreateOrder", "lex_prime_set", 401, errors.New("unauthorized"))))
	assert.True(t, IsCritical(Network("wfm.CreateOrder", "lex_prime_set", 403, nil)))
	assert.False(t, IsCritical(Network("wfm.CreateOrder", "lex_prime_set", 503, errors.New("unavailable"))))
	assert.False(t, IsCritical(Network("wfm.CreateOrder", "", 0, errors.New("timeout"))))
}

func TestLockAlwaysCritical(t *testing.T) {
	err := Lock("settings.Snapshot", errors.New("busy"))
	assert.True(t, IsCritical(err))
	assert.Equal(t, KindLock, KindOf(err))
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := Data("analytics.Analyze", "", errors.New("missing order type"))
	wrapped := fmt.Errorf("pass failed: %w", base)

	assert.Equal(t, KindData, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindData))
	assert.False(t, IsCritical(wrapped))

	require.Error(t, MarkCritical(wrapped))
	assert.True(t, IsCritical(wrapped))
}

func TestForeignErrors(t *testing.T) {
	err := errors.New("plain")
	assert.Equal(t, Kind(""), KindOf(err))
	assert.False(t, IsCritical(err))

	marked := MarkCritical(err)
	assert.True(t, IsCritical(marked))
	assert.Nil(t, MarkCritical(nil))
}

func TestFormatIncludesStack(t *testing.T) {
	err := IO("eelog.read", errors.New("permission denied"))
	plain := fmt.Sprintf("%v", err)
	verbose := fmt.Sprintf("%+v", err)

	assert.Equal(t, "io error in eelog.read: permission denied", plain)
	assert.True(t, strings.HasPrefix(verbose, plain))
	assert.Greater(t, len(verbose), len(plain))
}

func TestItemInMessage(t *testing.T) {
	err := Dataf("brain.buy", "nikana_prime_set", "duplicate own %s order", "buy")
	assert.Equal(t, "data error in brain.buy [nikana_prime_set]: duplicate own buy order", err.Error())
}
