package engine

import (
	"context"
	"sync"
)

// serializer chains background work per entity id so that work on one entity
// reaches the store in issue order while unrelated entities run concurrently.
//
// enqueue must be called from the event loop; wait and finish run on the
// worker goroutine.
type serializer struct {
	mu    sync.Mutex
	tails map[string]*link
}

type link struct {
	done   chan struct{}
	failed bool // the entity's creation failed; later work must be skipped
}

type ticket struct {
	s    *serializer
	own  map[string]*link
	prev map[string]*link // previous tail per own key and per dependency key
}

func newSerializer() *serializer {
	return &serializer{tails: make(map[string]*link)}
}

// enqueue reserves a slot after the current tail of every own key. Dependency
// keys are waited on but not extended.
func (s *serializer) enqueue(own []string, deps ...string) *ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	tk := &ticket{s: s, own: make(map[string]*link, len(own)), prev: make(map[string]*link)}
	for _, key := range deps {
		if key == "" {
			continue
		}
		if l, ok := s.tails[key]; ok {
			tk.prev[key] = l
		}
	}
	for _, key := range own {
		if key == "" || tk.own[key] != nil {
			continue
		}
		if l, ok := s.tails[key]; ok {
			tk.prev[key] = l
		}
		l := &link{done: make(chan struct{})}
		tk.own[key] = l
		s.tails[key] = l
	}
	return tk
}

// wait blocks until all earlier work on the ticket's keys has finished and
// returns the keys whose earlier work reported a failed creation.
func (tk *ticket) wait() map[string]bool {
	failed := map[string]bool{}
	for key, l := range tk.prev {
		<-l.done
		if l.failed {
			failed[key] = true
		}
	}
	return failed
}

// finish releases the ticket. Own keys listed in failed are marked so that
// later work on them is skipped.
func (tk *ticket) finish(failed map[string]bool) {
	tk.s.mu.Lock()
	defer tk.s.mu.Unlock()
	for key, l := range tk.own {
		l.failed = failed[key]
		close(l.done)
		// Failed links stay as tails so work issued later is skipped too.
		if tk.s.tails[key] == l && !l.failed {
			delete(tk.s.tails, key)
		}
	}
}

// pending returns how many keys still have unfinished work
func (s *serializer) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.tails {
		if !l.failed {
			n++
		}
	}
	return n
}

// drain waits until every piece of work queued so far has finished
func (s *serializer) drain(ctx context.Context) error {
	s.mu.Lock()
	links := make([]*link, 0, len(s.tails))
	for _, l := range s.tails {
		links = append(links, l)
	}
	s.mu.Unlock()

	for _, l := range links {
		select {
		case <-l.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// forget drops a failed tail once the entity is gone for good
func (s *serializer) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.tails[key]; ok && l.failed {
		delete(s.tails, key)
	}
}
