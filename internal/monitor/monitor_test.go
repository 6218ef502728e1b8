package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/insolvd/docpipe/internal/core/domain"
)

// fakeClock advances by step on every After call, so each loop
// iteration represents one poll interval of wall time.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	c.now = c.now.Add(c.step)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type scriptedSource struct {
	snapshots []*domain.StatusSnapshot
	errs      []error
	calls     int

	probes   int
	restarts int
}

func (s *scriptedSource) Status(context.Context, string) (*domain.StatusSnapshot, error) {
	i := s.calls
	if i >= len(s.snapshots) {
		i = len(s.snapshots) - 1
	}
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.snapshots[i], nil
}

func (s *scriptedSource) Probe(context.Context) error { s.probes++; return nil }

func (s *scriptedSource) Restart(context.Context, string) error { s.restarts++; return nil }

func snap(status domain.DocumentStatus, progress int) *domain.StatusSnapshot {
	return &domain.StatusSnapshot{DocumentID: "doc-1", Status: status, Progress: progress}
}

func TestRunReturnsOnTerminalStatus(t *testing.T) {
	source := &scriptedSource{snapshots: []*domain.StatusSnapshot{
		snap(domain.StatusProcessing, 25),
		snap(domain.StatusProcessingFinancial, 70),
		snap(domain.StatusComplete, 100),
	}}
	var events []EventType
	m := New(source, Config{
		PollInterval: 2 * time.Second,
		Clock:        newFakeClock(2 * time.Second),
		Observer:     func(e Event) { events = append(events, e.Type) },
	})

	last, err := m.Run(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if last.Status != domain.StatusComplete {
		t.Fatalf("expected complete, got %s", last.Status)
	}
	for _, e := range events {
		if e != EventProgress {
			t.Fatalf("expected only progress events, got %v", events)
		}
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(events))
	}
}

func TestRunProbesServerAfterSilence(t *testing.T) {
	source := &scriptedSource{snapshots: []*domain.StatusSnapshot{
		snap(domain.StatusProcessing, 25),
	}}
	probeSeen := false
	m := New(source, Config{
		PollInterval:  3 * time.Second,
		LivenessAfter: 45 * time.Second,
		StuckAfter:    105 * time.Second,
		Clock:         newFakeClock(3 * time.Second),
		Observer: func(e Event) {
			if e.Type == EventLivenessProbe {
				probeSeen = true
				if e.Elapsed < 45*time.Second {
					t.Errorf("probe fired too early at %s", e.Elapsed)
				}
			}
		},
	})

	_, err := m.Run(context.Background(), "doc-1")
	if !errors.Is(err, ErrStuck) {
		t.Fatalf("expected ErrStuck after silence, got %v", err)
	}
	if !probeSeen {
		t.Fatalf("expected a liveness probe before stuck")
	}
	if source.probes != 1 {
		t.Fatalf("expected exactly one probe per silent stretch, got %d", source.probes)
	}
}

func TestRunFlagsStuckDocument(t *testing.T) {
	source := &scriptedSource{snapshots: []*domain.StatusSnapshot{
		snap(domain.StatusProcessingFinancial, 70),
	}}
	var stuckAt time.Duration
	m := New(source, Config{
		PollInterval: 3 * time.Second,
		StuckAfter:   105 * time.Second,
		Clock:        newFakeClock(3 * time.Second),
		Observer: func(e Event) {
			if e.Type == EventStuck {
				stuckAt = e.Elapsed
			}
		},
	})

	last, err := m.Run(context.Background(), "doc-1")
	if !errors.Is(err, ErrStuck) {
		t.Fatalf("expected ErrStuck, got %v", err)
	}
	if last == nil || last.Status != domain.StatusProcessingFinancial {
		t.Fatalf("expected last snapshot returned, got %+v", last)
	}
	if stuckAt < 105*time.Second {
		t.Fatalf("stuck flagged too early at %s", stuckAt)
	}
}

func TestRunAutoRestartResetsElapsed(t *testing.T) {
	// Stuck once, restart, then the document completes.
	snapshots := make([]*domain.StatusSnapshot, 0, 64)
	for i := 0; i < 40; i++ {
		snapshots = append(snapshots, snap(domain.StatusProcessing, 25))
	}
	snapshots = append(snapshots, snap(domain.StatusComplete, 100))
	source := &scriptedSource{snapshots: snapshots}

	restarted := false
	m := New(source, Config{
		PollInterval: 3 * time.Second,
		StuckAfter:   105 * time.Second,
		AutoRestart:  true,
		MaxRestarts:  1,
		Clock:        newFakeClock(3 * time.Second),
		Observer: func(e Event) {
			if e.Type == EventRestarted {
				restarted = true
			}
		},
	})

	last, err := m.Run(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if last.Status != domain.StatusComplete {
		t.Fatalf("expected completion after restart, got %s", last.Status)
	}
	if !restarted || source.restarts != 1 {
		t.Fatalf("expected one restart, got %d", source.restarts)
	}
}

func TestRunPollErrorDoesNotResetElapsed(t *testing.T) {
	transient := errors.New("connection refused")
	source := &scriptedSource{
		snapshots: []*domain.StatusSnapshot{
			snap(domain.StatusProcessing, 25),
			nil, nil, nil,
			snap(domain.StatusProcessing, 25),
		},
		errs: []error{nil, transient, transient, transient, nil},
	}
	pollErrors := 0
	m := New(source, Config{
		PollInterval: 3 * time.Second,
		StuckAfter:   105 * time.Second,
		Clock:        newFakeClock(3 * time.Second),
		Observer: func(e Event) {
			if e.Type == EventPollError {
				pollErrors++
			}
		},
	})

	_, err := m.Run(context.Background(), "doc-1")
	if !errors.Is(err, ErrStuck) {
		t.Fatalf("expected ErrStuck since progress never changed, got %v", err)
	}
	if pollErrors != 3 {
		t.Fatalf("expected 3 poll error events, got %d", pollErrors)
	}
}

func TestRunReturnsNotFoundImmediately(t *testing.T) {
	notFound := domain.WrapError(domain.ErrDocumentNotFound, "status", errors.New("doc-1"))
	source := &scriptedSource{
		snapshots: []*domain.StatusSnapshot{nil},
		errs:      []error{notFound},
	}
	m := New(source, Config{Clock: newFakeClock(2 * time.Second)})

	_, err := m.Run(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected a single poll, got %d", source.calls)
	}
}

func TestConfigClampsPollInterval(t *testing.T) {
	m := New(&scriptedSource{snapshots: []*domain.StatusSnapshot{snap(domain.StatusComplete, 100)}}, Config{
		PollInterval: 10 * time.Second,
	})
	if m.cfg.PollInterval != 3*time.Second {
		t.Fatalf("expected poll interval clamped to 3s, got %s", m.cfg.PollInterval)
	}

	m = New(&scriptedSource{snapshots: []*domain.StatusSnapshot{snap(domain.StatusComplete, 100)}}, Config{
		PollInterval: 100 * time.Millisecond,
	})
	if m.cfg.PollInterval != 2*time.Second {
		t.Fatalf("expected default 2s for sub-second interval, got %s", m.cfg.PollInterval)
	}
}
