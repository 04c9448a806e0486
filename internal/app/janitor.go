package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/repository"
)

const (
	draftTTL   = time.Hour
	stateTTL   = 24 * time.Hour
	sweepEvery = 15 * time.Minute
)

// Janitor периодически чистит мусор брошенных сессий: черновики без
// подтверждения и состояния диалогов без активности.
type Janitor struct {
	drafts   *repository.DraftRepository
	states   *repository.StateRepository
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewJanitor(drafts *repository.DraftRepository, states *repository.StateRepository, logger *zap.Logger) *Janitor {
	return &Janitor{
		drafts:   drafts,
		states:   states,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновую уборку.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting session janitor")
	go j.run(ctx)
}

// Stop останавливает фоновую уборку.
func (j *Janitor) Stop() {
	j.logger.Info("Stopping session janitor")
	close(j.stopChan)
}

func (j *Janitor) run(ctx context.Context) {
	// Первый проход сразу при старте
	j.sweep(ctx)

	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-j.stopChan:
			j.logger.Info("Session janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Session janitor cancelled")
			return
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	now := time.Now()

	drafts, err := j.drafts.DeleteExpired(ctx, now.Add(-draftTTL))
	if err != nil {
		j.logger.Error("Failed to sweep expired drafts", zap.Error(err))
	}

	states, err := j.states.DeleteStale(ctx, now.Add(-stateTTL))
	if err != nil {
		j.logger.Error("Failed to sweep stale conversation states", zap.Error(err))
	}

	if drafts > 0 || states > 0 {
		j.logger.Info("Session sweep completed",
			zap.Int64("drafts_removed", drafts),
			zap.Int64("states_removed", states))
	}
}
