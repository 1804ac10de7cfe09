package fibscan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raykavin/fibscan/pkg/scanner"

	"github.com/robfig/cron/v3"
)

// shutdownTimeout bounds the HTTP server shutdown
const shutdownTimeout = 5 * time.Second

// Run starts the bot, the HTTP server and the scanner, then journals signals every drain
// interval until ctx is done
func (a *App) Run(ctx context.Context) error {
	purge, err := a.schedulePurge()
	if err != nil {
		return err
	}

	if a.telegram != nil {
		a.telegram.Start()
	}

	var wg sync.WaitGroup
	apiErr := make(chan error, 1)
	if a.api != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			apiErr <- a.api.Start()
		}()
	}

	purge.Start()

	if err := a.scanner.Start(); err != nil {
		a.shutdown(purge, &wg)
		return err
	}
	a.broadcast("Scanner started.")

	ticker := time.NewTicker(a.config.Headless.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown(purge, &wg)
			return nil
		case err := <-apiErr:
			if err != nil {
				a.log.WithError(err).Error("HTTP server stopped")
			}
			apiErr = nil
		case <-ticker.C:
			a.drain()
			a.heartbeat()
		}
	}
}

// schedulePurge registers the log retention job
func (a *App) schedulePurge() (*cron.Cron, error) {
	c := cron.New()
	if a.config.Headless.LogRetentionDays == 0 {
		return c, nil
	}

	_, err := c.AddFunc(a.config.Headless.PurgeSchedule, func() {
		if _, err := a.activity.Purge(a.config.Headless.LogRetentionDays); err != nil {
			a.log.WithError(err).Error("failed to purge logs")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", a.config.Headless.PurgeSchedule, err)
	}
	return c, nil
}

// shutdown stops every component and journals what is left in the queue
func (a *App) shutdown(purge *cron.Cron, wg *sync.WaitGroup) {
	if err := a.scanner.Stop(); err != nil && !errors.Is(err, scanner.ErrNotRunning) {
		a.log.WithError(err).Error("failed to stop scanner")
	}

	<-purge.Stop().Done()

	if a.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.api.Shutdown(ctx); err != nil {
			a.log.WithError(err).Error("failed to stop HTTP server")
		}
		cancel()
		wg.Wait()
	}

	if a.telegram != nil {
		a.broadcast("Scanner stopped.")
		a.telegram.Stop()
	}

	a.drain()
}

// drain moves queued signals to the journal and returns how many were saved
func (a *App) drain() int {
	var saved int
	for _, signal := range a.scanner.Queue().Drain() {
		if err := a.storage.SaveSignal(signal); err != nil {
			a.log.WithError(err).WithField("symbol", signal.Symbol).Error("failed to journal signal")
			continue
		}
		saved++
	}
	return saved
}

func (a *App) heartbeat() {
	status := a.scanner.Status()
	a.log.WithFields(map[string]any{
		"status":  string(status.State),
		"scanned": status.Progress(),
		"signals": status.FoundSignals,
	}).Info("heartbeat")
}
