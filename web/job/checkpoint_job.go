// Package job holds the cron jobs run by the web server.
package job

import (
	"github.com/bookshelf-app/bookshelf/database"
	"github.com/bookshelf-app/bookshelf/logger"

	"go.uber.org/atomic"
	"gorm.io/gorm"
)

// CheckpointJob flushes the SQLite write-ahead log into the main file.
type CheckpointJob struct {
	db      *gorm.DB
	running atomic.Bool
	runs    atomic.Int64
}

func NewCheckpointJob(db *gorm.DB) *CheckpointJob {
	return &CheckpointJob{db: db}
}

// Run is called by cron. A run that starts while the previous one is still
// going is skipped.
func (j *CheckpointJob) Run() {
	if !j.running.CompareAndSwap(false, true) {
		logger.Debug("checkpoint job still running, skipped")
		return
	}
	defer j.running.Store(false)

	if err := database.Checkpoint(j.db); err != nil {
		logger.Warning("checkpoint job err:", err)
		return
	}
	j.runs.Inc()
}

// Runs reports how many checkpoints completed.
func (j *CheckpointJob) Runs() int64 {
	return j.runs.Load()
}
