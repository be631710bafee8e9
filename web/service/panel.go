package service

import (
	"os"
	"syscall"
	"time"

	"github.com/bookshelf-app/bookshelf/logger"
)

// PanelService restarts the running server so changed settings take effect.
// The process main loop rebuilds the server on SIGHUP.
type PanelService struct {
	signal func(os.Signal) error
}

func NewPanelService() *PanelService {
	return &PanelService{signal: func(sig os.Signal) error {
		p, err := os.FindProcess(syscall.Getpid())
		if err != nil {
			return err
		}
		return p.Signal(sig)
	}}
}

// RestartPanel sends SIGHUP to the own process after delay.
func (s *PanelService) RestartPanel(delay time.Duration) error {
	go func() {
		time.Sleep(delay)
		if err := s.signal(syscall.SIGHUP); err != nil {
			logger.Error("failed to send SIGHUP signal:", err)
		}
	}()
	return nil
}
