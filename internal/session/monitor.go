package session

import (
	"context"
	"time"

	"github.com/winstonacademy/crm-gateway/internal/telemetry"
	"github.com/winstonacademy/crm-gateway/internal/token"
)

type monitor struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startMonitor begins the periodic expiry check. Only one monitor runs at a
// time; starting a new one replaces any running one, so repeated logins
// never stack timers.
func (m *Manager) startMonitor() {
	m.monMu.Lock()
	if m.monitor != nil {
		m.monitor.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	mon := &monitor{cancel: cancel, done: make(chan struct{})}
	m.monitor = mon
	m.monMu.Unlock()

	go m.runMonitor(ctx, mon)
}

func (m *Manager) stopMonitor() {
	m.monMu.Lock()
	mon := m.monitor
	m.monitor = nil
	m.monMu.Unlock()

	// Cancel without waiting: logout runs on the monitor goroutine too,
	// and waiting for done there would deadlock.
	if mon != nil {
		mon.cancel()
	}
}

// runMonitor ticks at the configured interval. Expired token: log out,
// which terminates the monitor. Near expiry: fire-and-forget refresh; the
// tick never waits on the request.
func (m *Manager) runMonitor(ctx context.Context, mon *monitor) {
	defer close(mon.done)

	ticker := time.NewTicker(m.opts.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			tok := m.token
			m.mu.Unlock()

			if tok == "" {
				continue
			}

			if token.IsExpired(tok) {
				m.logger.Info("monitor detected expired token, logging out")
				telemetry.ForcedLogouts.Inc()
				m.Logout()
				return
			}

			if token.ShouldRefreshWithin(tok, m.opts.RefreshThreshold) {
				go func() {
					if _, err := m.RefreshUser(context.Background()); err != nil {
						m.logger.Warn("scheduled user refresh failed", "error", err)
					}
				}()
			}
		}
	}
}
