// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
)

type strobeKind uint8

const (
	strobeIlluminationOn strobeKind = iota
	strobeIlluminationOff
	strobeTriggerRelease
)

func (k strobeKind) String() string {
	switch k {
	case strobeIlluminationOn:
		return "illumination-on"
	case strobeIlluminationOff:
		return "illumination-off"
	case strobeTriggerRelease:
		return "trigger-release"
	default:
		return "unknown"
	}
}

// strobeEvent is applied by the engine loop. Events from before the last
// RESET carry a stale generation and are ignored.
type strobeEvent struct {
	kind       strobeKind
	channel    uint8
	generation uint64
}

type scheduledStrobe struct {
	at    time.Time
	event strobeEvent
}

// strobeScheduler owns only its schedule. When running it posts due events
// to out; without run, popDue hands them out synchronously.
type strobeScheduler struct {
	mu      sync.Mutex
	pending []scheduledStrobe
	wake    chan struct{}
	out     chan strobeEvent
}

const strobeQueueSize = 64

func newStrobeScheduler() *strobeScheduler {
	return &strobeScheduler{
		wake: make(chan struct{}, 1),
		out:  make(chan strobeEvent, strobeQueueSize),
	}
}

func (s *strobeScheduler) schedule(at time.Time, ev strobeEvent) {
	s.mu.Lock()
	i := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].at.After(at)
	})
	s.pending = append(s.pending, scheduledStrobe{})
	copy(s.pending[i+1:], s.pending[i:])
	s.pending[i] = scheduledStrobe{at: at, event: ev}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *strobeScheduler) cancel() {
	s.mu.Lock()
	s.pending = s.pending[:0]
	s.mu.Unlock()
}

func (s *strobeScheduler) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// popDue removes and returns every event due at or before now, in order
func (s *strobeScheduler) popDue(now time.Time) []strobeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(s.pending) && !s.pending[n].at.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}

	events := make([]strobeEvent, n)
	for i := 0; i < n; i++ {
		events[i] = s.pending[i].event
	}
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return events
}

func (s *strobeScheduler) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return time.Time{}, false
	}
	return s.pending[0].at, true
}

// run posts events as they fall due. Events within resolution of now fire
// immediately instead of arming a timer.
func (s *strobeScheduler) run(ctx context.Context, now func() time.Time, resolution time.Duration) {
	for {
		at, ok := s.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		wait := at.Sub(now())
		if wait <= resolution {
			for _, ev := range s.popDue(now().Add(resolution)) {
				select {
				case s.out <- ev:
				case <-ctx.Done():
					return
				}
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
		if glog.V(3) {
			glog.Infof("strobe: woke with %d pending", s.len())
		}
	}
}
