// Package soak drives a relay with a paced producer and a slower consumer and
// checks that every emitted event is observed exactly once, either by the
// consumer or by the overflow listeners.
package soak

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jacoelho/relaybuf"
)

// Config describes a soak run.
type Config struct {
	// Events is the number of events emitted, valued 0 to Events-1.
	Events int
	// Waterline is passed to the relay.
	Waterline int
	// EmitInterval is the pause before each emitted event.
	EmitInterval time.Duration
	// PullLatency is the time the consumer spends on each pulled event.
	PullLatency time.Duration

	Clock   clock.Clock
	Logger  logrus.FieldLogger
	Metrics *relaybuf.Collector
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Events < 0 {
		return errors.NotValidf("event count %d", c.Events)
	}
	if c.Waterline < 0 {
		return errors.NotValidf("waterline %d", c.Waterline)
	}
	if c.EmitInterval < 0 {
		return errors.NotValidf("emit interval %v", c.EmitInterval)
	}
	if c.PullLatency < 0 {
		return errors.NotValidf("pull latency %v", c.PullLatency)
	}
	return nil
}

// Report summarizes a soak run.
type Report struct {
	Pulled     int
	Overflowed int
	Unique     int
	Elapsed    time.Duration
}

type tally struct {
	mu         sync.Mutex
	seen       map[int]int
	pulled     int
	overflowed int
}

func (t *tally) add(v int, overflow bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[v]++
	if overflow {
		t.overflowed++
	} else {
		t.pulled++
	}
}

// check returns an error naming the first duplicated or missing events.
func (t *tally) check(events int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var dups, missing []int
	for v, n := range t.seen {
		if n > 1 {
			dups = append(dups, v)
		}
	}
	for v := range events {
		if t.seen[v] == 0 {
			missing = append(missing, v)
		}
	}
	slices.Sort(dups)
	switch {
	case len(dups) > 0:
		return errors.Errorf("%d events observed more than once, first %d", len(dups), dups[0])
	case len(missing) > 0:
		return errors.Errorf("%d events never observed, first %d", len(missing), missing[0])
	}
	return nil
}

// Run performs a soak run. The producer ends the relay after the last event,
// or early when ctx is done.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, errors.Trace(err)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}

	r := relaybuf.New[int](
		relaybuf.WithWaterline(cfg.Waterline),
		relaybuf.WithLogger(cfg.Logger),
		relaybuf.WithMetrics(cfg.Metrics),
	)
	t := &tally{seen: make(map[int]int, cfg.Events)}
	r.AddOverflowListener(func(v int) { t.add(v, true) })

	start := cfg.Clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer r.End()
		for i := range cfg.Events {
			if err := sleep(gctx, cfg.Clock, cfg.EmitInterval); err != nil {
				return errors.Annotatef(err, "emitting event %d", i)
			}
			r.Emit(i)
		}
		return nil
	})
	g.Go(func() error {
		_, err := r.Drain(gctx, func(v int) error {
			if err := sleep(gctx, cfg.Clock, cfg.PullLatency); err != nil {
				return err
			}
			t.add(v, false)
			return nil
		})
		return errors.Annotate(err, "draining relay")
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{
		Pulled:     t.pulled,
		Overflowed: t.overflowed,
		Unique:     len(t.seen),
		Elapsed:    cfg.Clock.Now().Sub(start),
	}
	cfg.Logger.WithFields(logrus.Fields{
		"pulled":     report.Pulled,
		"overflowed": report.Overflowed,
		"elapsed":    report.Elapsed,
	}).Info("soak run finished")

	if err := t.check(cfg.Events); err != nil {
		return report, errors.Annotatef(err, "soak of %d events", cfg.Events)
	}
	return report, nil
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-clk.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
