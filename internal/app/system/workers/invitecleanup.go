// internal/app/system/workers/invitecleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	invitestore "github.com/dalemusser/dutyhub/internal/app/store/invites"
	"go.uber.org/zap"
)

// InviteCleanup is a background worker that removes invites whose expiry
// passed without redemption.
type InviteCleanup struct {
	invites  *invitestore.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewInviteCleanup creates a new invite cleanup worker that runs every
// interval (e.g. 1 hour).
func NewInviteCleanup(invStore *invitestore.Store, logger *zap.Logger, interval time.Duration) *InviteCleanup {
	return &InviteCleanup{
		invites:  invStore,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *InviteCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invite cleanup worker started",
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *InviteCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("invite cleanup worker stopped")
}

func (w *InviteCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *InviteCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.invites.DeleteExpired(ctx)
	if err != nil {
		w.log.Error("failed to remove expired invites", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("removed expired invites", zap.Int64("count", count))
	}
}
