package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/insolvd/docpipe/internal/core/domain"
)

// ErrStuck is returned when a document shows no progress past the
// stuck threshold and no restart budget remains.
var ErrStuck = errors.New("document processing appears stuck")

// Clock abstracts time so stuck detection is testable without real
// waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// StatusSource is the server surface the monitor polls: document
// status, a liveness probe, and the restart trigger.
type StatusSource interface {
	Status(ctx context.Context, documentID string) (*domain.StatusSnapshot, error)
	Probe(ctx context.Context) error
	Restart(ctx context.Context, documentID string) error
}

type EventType string

const (
	EventProgress      EventType = "progress"
	EventPollError     EventType = "poll_error"
	EventLivenessProbe EventType = "liveness_probe"
	EventStuck         EventType = "stuck"
	EventRestarted     EventType = "restarted"
)

type Event struct {
	Type     EventType
	Snapshot *domain.StatusSnapshot
	// Elapsed is the time since the last observed status or progress
	// change.
	Elapsed time.Duration
	Err     error
}

type Config struct {
	// PollInterval is clamped to [1s, 3s].
	PollInterval time.Duration
	// LivenessAfter triggers a single server probe per silent stretch.
	LivenessAfter time.Duration
	// StuckAfter flags the document as stuck.
	StuckAfter time.Duration

	AutoRestart bool
	MaxRestarts int

	Observer func(Event)
	Clock    Clock
}

type Monitor struct {
	source StatusSource
	cfg    Config
	clock  Clock
}

func New(source StatusSource, cfg Config) *Monitor {
	if cfg.PollInterval < time.Second {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollInterval > 3*time.Second {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.LivenessAfter <= 0 {
		cfg.LivenessAfter = 45 * time.Second
	}
	if cfg.StuckAfter <= cfg.LivenessAfter {
		cfg.StuckAfter = 105 * time.Second
	}
	if cfg.MaxRestarts < 0 {
		cfg.MaxRestarts = 0
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Monitor{source: source, cfg: cfg, clock: clock}
}

// Run polls until the document reaches a terminal status. A restart
// resets the elapsed clock, so a recovering document is given the full
// window again.
func (m *Monitor) Run(ctx context.Context, documentID string) (*domain.StatusSnapshot, error) {
	lastChange := m.clock.Now()
	probed := false
	restarts := 0
	var last *domain.StatusSnapshot

	for {
		snapshot, err := m.source.Status(ctx, documentID)
		switch {
		case err != nil && domain.IsKind(err, domain.ErrDocumentNotFound):
			return nil, err
		case err != nil:
			// Transient poll failures do not reset the elapsed clock.
			m.emit(Event{Type: EventPollError, Elapsed: m.clock.Now().Sub(lastChange), Err: err})
		default:
			if changed(last, snapshot) {
				lastChange = m.clock.Now()
				probed = false
				m.emit(Event{Type: EventProgress, Snapshot: snapshot})
			}
			last = snapshot

			if snapshot.Status.IsTerminal() {
				return snapshot, nil
			}
		}

		elapsed := m.clock.Now().Sub(lastChange)
		if elapsed >= m.cfg.StuckAfter {
			m.emit(Event{Type: EventStuck, Snapshot: last, Elapsed: elapsed})
			if !m.cfg.AutoRestart || restarts >= m.cfg.MaxRestarts {
				return last, ErrStuck
			}
			if err := m.source.Restart(ctx, documentID); err != nil {
				return last, err
			}
			restarts++
			lastChange = m.clock.Now()
			probed = false
			m.emit(Event{Type: EventRestarted, Snapshot: last})
		} else if elapsed >= m.cfg.LivenessAfter && !probed {
			probed = true
			probeErr := m.source.Probe(ctx)
			m.emit(Event{Type: EventLivenessProbe, Snapshot: last, Elapsed: elapsed, Err: probeErr})
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-m.clock.After(m.cfg.PollInterval):
		}
	}
}

func (m *Monitor) emit(event Event) {
	if m.cfg.Observer != nil {
		m.cfg.Observer(event)
	}
}

func changed(prev, next *domain.StatusSnapshot) bool {
	if prev == nil {
		return true
	}
	return prev.Status != next.Status || prev.Progress != next.Progress
}
