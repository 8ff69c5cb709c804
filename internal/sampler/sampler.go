// Package sampler measures host CPU and memory and publishes one snapshot per
// tick to the hub. While the hub has no subscribers it only sleeps, so the
// host is never queried for nobody.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/oleksiiilienko/mxtoo/internal/hub"
	"github.com/oleksiiilienko/mxtoo/internal/logging"
)

const DefaultIdleInterval = time.Second

var tracer = otel.Tracer("github.com/oleksiiilienko/mxtoo/internal/sampler")

// ErrStopped wraps the cause when the sampler gives up under PolicyStop.
var ErrStopped = errors.New("sampler stopped")

// Policy decides what a failed measurement does to the process.
type Policy int

const (
	// PolicyStop marks the sampler unhealthy and stops publishing; the rest
	// of the process keeps running.
	PolicyStop Policy = iota
	// PolicyFatal makes Run return a *FatalError so the caller can abort.
	PolicyFatal
)

func (p Policy) String() string {
	switch p {
	case PolicyStop:
		return "stop"
	case PolicyFatal:
		return "fatal"
	}
	return "unknown"
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "stop":
		return PolicyStop, nil
	case "fatal":
		return PolicyFatal, nil
	}
	return PolicyStop, fmt.Errorf("unknown sampler policy %q", s)
}

// FatalError is returned by Run under PolicyFatal.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "sampler failed: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Publisher is the side of the hub the sampler writes to.
type Publisher interface {
	Publish(hub.Snapshot) int
	Subscribers() int
}

// Observer receives sampling telemetry.
type Observer interface {
	ObserveSample(d time.Duration)
	SetHealthy(ok bool)
}

type Options struct {
	IdleInterval time.Duration
	Policy       Policy
	Logger       logging.Logger
	Observer     Observer
}

type Sampler struct {
	host     Host
	pub      Publisher
	idle     time.Duration
	policy   Policy
	logger   logging.Logger
	observer Observer

	mu  sync.RWMutex
	err error
}

func New(host Host, pub Publisher, opts Options) *Sampler {
	s := &Sampler{
		host:     host,
		pub:      pub,
		idle:     opts.IdleInterval,
		policy:   opts.Policy,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if s.idle <= 0 {
		s.idle = DefaultIdleInterval
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	return s
}

// Run samples until ctx is cancelled, which returns nil. A failed
// measurement ends the loop according to the configured Policy.
//
// The goroutine is pinned to its OS thread for the whole run: measurement
// and sleeps may block in syscalls.
func (s *Sampler) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.observer.SetHealthy(true)
	s.logger.Info("sampler started",
		logging.Duration("idle_interval", s.idle),
		logging.Duration("refresh_interval", s.host.MinRefreshInterval()),
		logging.String("policy", s.policy.String()))

	for {
		if s.pub.Subscribers() == 0 {
			if !sleep(ctx, s.idle) {
				return nil
			}
			continue
		}

		snap, err := s.Sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return s.fail(err)
		}

		// zero receivers here just means the last viewer left after the check
		s.pub.Publish(snap)

		if !sleep(ctx, s.host.MinRefreshInterval()) {
			return nil
		}
	}
}

// Sample performs one measurement pass. A panic in the host primitive is
// reported as an error.
func (s *Sampler) Sample(ctx context.Context) (snap hub.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "sampler.Sample")
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host sampler panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		s.observer.ObserveSample(time.Since(start))
	}()

	pcts, err := s.host.CPUPercents(ctx)
	if err != nil {
		return hub.Snapshot{}, fmt.Errorf("cpu usage: %w", err)
	}
	memory, err := s.host.Memory(ctx)
	if err != nil {
		return hub.Snapshot{}, fmt.Errorf("memory: %w", err)
	}

	cores := make([]hub.CoreUsage, len(pcts))
	for i, p := range pcts {
		cores[i] = hub.CoreUsage{Index: uint32(i), Percent: float32(p)}
	}
	span.SetAttributes(attribute.Int("cores", len(cores)))

	return hub.Snapshot{Cores: cores, Memory: memory}, nil
}

// Err reports why the sampler stopped, or nil while it is healthy.
func (s *Sampler) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Sampler) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.observer.SetHealthy(false)
	s.logger.Error("sampling failed, no more snapshots will be published", err,
		logging.String("policy", s.policy.String()))

	if s.policy == PolicyFatal {
		return &FatalError{Err: err}
	}
	return fmt.Errorf("%w: %w", ErrStopped, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type nopObserver struct{}

func (nopObserver) ObserveSample(time.Duration) {}
func (nopObserver) SetHealthy(bool)             {}
