package queue

import (
	"time"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/logger"
)

// terminate asks proc to stop, waits up to grace, then kills it. It returns
// once the process has exited or a second grace period has passed after the
// kill.
func terminate(proc domain.Process, grace time.Duration, log *logger.Logger) {
	if proc == nil {
		return
	}

	select {
	case <-proc.Done():
		return
	default:
	}

	if err := proc.Interrupt(); err != nil {
		log.Warn("Failed to interrupt process", "error", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-proc.Done():
		return
	case <-timer.C:
	}

	log.Warn("Process ignored interrupt, killing", "grace", grace)
	if err := proc.Kill(); err != nil {
		log.Error("Failed to kill process", "error", err)
	}

	timer.Reset(grace)
	select {
	case <-proc.Done():
	case <-timer.C:
		log.Error("Process did not exit after kill")
	}
}
