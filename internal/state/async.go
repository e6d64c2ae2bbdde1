package state

import "sync"

// Phase is the lifecycle of one async action. A new call overwrites the
// in-flight phase unconditionally; there is no retry and no cancellation
// of the action itself.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// signal fans out change notifications to subscribers. Sends are
// latest-wins: a subscriber that has not drained its slot just keeps the
// single pending tick.
type signal struct {
	mu   sync.Mutex
	subs []chan struct{}
}

func (s *signal) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
