package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketchat/internal/pkg/logx"
)

// Monitor pings every open connection at a fixed interval and terminates those that did not
// answer the previous ping. A half-open connection is gone after at most two intervals.
type Monitor struct {
	relay    *Relay
	interval time.Duration
	logger   zerolog.Logger
}

// NewMonitor creates a Monitor for the connections of relay.
func NewMonitor(relay *Relay, interval time.Duration) *Monitor {
	return &Monitor{
		relay:    relay,
		interval: interval,
		logger:   logx.For("liveness"),
	}
}

// Run ticks until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", m.interval).Msg("Liveness monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Liveness monitor stopped")
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick probes every open connection once, authenticated or not.
func (m *Monitor) Tick() {
	terminated := 0

	for _, conn := range m.relay.Connections() {
		if conn.probe() != probeStale {
			continue
		}

		conn.logger.Info().
			Int64("user_id", conn.UserID()).
			Time("last_pong", conn.LastPong()).
			Msg("Terminating unresponsive connection")
		conn.shutdown()
		terminated++
	}

	if terminated > 0 {
		m.logger.Info().Int("terminated", terminated).Msg("Liveness sweep finished")
	}
}
