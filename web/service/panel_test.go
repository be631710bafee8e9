package service

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestartPanelSignalsAfterDelay(t *testing.T) {
	got := make(chan os.Signal, 1)
	s := &PanelService{signal: func(sig os.Signal) error {
		got <- sig
		return nil
	}}

	start := time.Now()
	require.NoError(t, s.RestartPanel(20*time.Millisecond))

	select {
	case sig := <-got:
		assert.Equal(t, syscall.SIGHUP, sig)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("no signal sent")
	}
}
