package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	tm := LoadTimeouts()
	assert.Equal(t, 30*time.Second, tm.Connect)
	assert.Equal(t, 2*time.Minute, tm.Command)
	assert.Equal(t, 30*time.Second, tm.REST)
	assert.Equal(t, 5*time.Second, tm.SettleDelay)
	assert.Equal(t, 3, tm.RescanMaxAttempts)
	assert.Equal(t, 2*time.Second, tm.RescanInitialDelay)
}

func TestLoadTimeouts_FromEnv(t *testing.T) {
	t.Setenv("HMC_SETTLE_DELAY", "9s")
	t.Setenv("HMC_RESCAN_MAX_ATTEMPTS", "7")
	tm := LoadTimeouts()
	assert.Equal(t, 9*time.Second, tm.SettleDelay)
	assert.Equal(t, 7, tm.RescanMaxAttempts)
}

func TestLoadTimeouts_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("HMC_SETTLE_DELAY", "soon")
	t.Setenv("HMC_RESCAN_MAX_ATTEMPTS", "0")
	tm := LoadTimeouts()
	assert.Equal(t, 5*time.Second, tm.SettleDelay)
	assert.Equal(t, 3, tm.RescanMaxAttempts)
}
