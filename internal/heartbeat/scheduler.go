package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTick is how often the scheduler wakes to look for due jobs.
const DefaultTick = 30 * time.Second

// Heartbeat is one recurring prompt, declared in config.
type Heartbeat struct {
	Name     string
	Schedule string
	Prompt   string
	Agent    string
}

// AgentRunner dispatches a heartbeat prompt to a named agent.
type AgentRunner interface {
	RunAgent(ctx context.Context, agentName, channel, userID, text string) (string, error)
}

// RunRecord captures one heartbeat fire for the run history.
type RunRecord struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Response  string
	Err       string
}

// Recorder persists heartbeat run history.
type Recorder interface {
	Record(ctx context.Context, rec RunRecord) error
}

// OnResult is invoked after each successful fire.
type OnResult func(name, response string)

type job struct {
	hb      Heartbeat
	cadence *Cadence
	nextRun time.Time
	lastRun time.Time
}

// Scheduler fires heartbeats on a single background goroutine. Each fire
// runs as a normal agent turn on the session "<ns>:heartbeat:<name>",
// isolated from interactive traffic.
type Scheduler struct {
	runner   AgentRunner
	recorder Recorder
	onResult OnResult
	tick     time.Duration

	mu      sync.Mutex
	jobs    []*job
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// SchedulerConfig configures a Scheduler. Recorder and OnResult are
// optional; Tick of 0 means DefaultTick.
type SchedulerConfig struct {
	Runner   AgentRunner
	Recorder Recorder
	OnResult OnResult
	Tick     time.Duration
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	tick := cfg.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Scheduler{
		runner:   cfg.Runner,
		recorder: cfg.Recorder,
		onResult: cfg.OnResult,
		tick:     tick,
	}
}

// Add registers a heartbeat. A cadence that fails to parse rejects the
// heartbeat; it is reported here and never scheduled.
func (s *Scheduler) Add(hb Heartbeat) error {
	cadence, err := ParseCadence(hb.Schedule)
	if err != nil {
		slog.Warn("heartbeat not scheduled", "name", hb.Name, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.hb.Name == hb.Name {
			return fmt.Errorf("heartbeat %q already registered", hb.Name)
		}
	}
	s.jobs = append(s.jobs, &job{
		hb:      hb,
		cadence: cadence,
		nextRun: cadence.Next(time.Now()),
	})
	slog.Info("heartbeat scheduled", "name", hb.Name, "cadence", cadence.String(), "agent", hb.Agent)
	return nil
}

// Start launches the scheduling goroutine. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh)
	slog.Info("heartbeat scheduler started", "jobs", len(s.jobs), "tick", s.tick)
}

// Stop signals the scheduling goroutine and waits for it, up to the given
// timeout. Returns an error if a fire is still in flight when the timeout
// expires; the goroutine will still exit once the fire completes.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("heartbeat scheduler did not stop within %s", timeout)
	}
}

func (s *Scheduler) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			for _, j := range s.due(now) {
				s.fire(j)
			}
		}
	}
}

// due collects jobs whose fire time has passed and advances their
// schedules, so a slow fire cannot double-dispatch the same slot.
func (s *Scheduler) due(now time.Time) []*job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []*job
	for _, j := range s.jobs {
		if j.nextRun.After(now) {
			continue
		}
		j.lastRun = now
		j.nextRun = j.cadence.Next(now)
		ready = append(ready, j)
	}
	return ready
}

// fire runs one heartbeat turn. Failures are logged and recorded, never
// propagated — a broken heartbeat must not kill the scheduler.
func (s *Scheduler) fire(j *job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("heartbeat panicked", "name", j.hb.Name, "panic", r)
		}
	}()

	ctx := context.Background()
	started := time.Now()
	slog.Info("heartbeat firing", "name", j.hb.Name, "agent", j.hb.Agent)

	response, err := s.runner.RunAgent(ctx, j.hb.Agent, "heartbeat", j.hb.Name, j.hb.Prompt)
	duration := time.Since(started)

	rec := RunRecord{Name: j.hb.Name, StartedAt: started, Duration: duration, Response: response}
	if err != nil {
		rec.Err = err.Error()
		slog.Error("heartbeat failed", "name", j.hb.Name, "duration", duration, "error", err)
	} else {
		slog.Info("heartbeat completed", "name", j.hb.Name, "duration", duration)
	}

	if s.recorder != nil {
		if recErr := s.recorder.Record(ctx, rec); recErr != nil {
			slog.Warn("recording heartbeat run failed", "name", j.hb.Name, "error", recErr)
		}
	}
	if err == nil && s.onResult != nil {
		s.onResult(j.hb.Name, response)
	}
}

// JobStatus is a snapshot of one scheduled heartbeat.
type JobStatus struct {
	Name     string
	Schedule string
	Agent    string
	NextRun  time.Time
	LastRun  time.Time
}

// Jobs returns a snapshot of all scheduled heartbeats.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobStatus{
			Name:     j.hb.Name,
			Schedule: j.cadence.String(),
			Agent:    j.hb.Agent,
			NextRun:  j.nextRun,
			LastRun:  j.lastRun,
		})
	}
	return out
}
