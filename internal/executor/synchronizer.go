package executor

import (
	"context"
	"fmt"
	"sync"
)

// CompletionSynchronizer turns the controller's asynchronous "done"
// notification into a blocking call.
//
// RunAndWait registers a single-shot wait under a completion tag,
// invokes the start action, and parks the caller until the tag is
// signalled, released by an abort, or the context is cancelled. Tags
// scope waits to one device instance so multiple controllers never
// cross-signal.
//
// There is no timeout at this layer: individual remote calls are
// bounded by the connection's request timeout, but the wait for
// completion is unbounded absent an abort.
//
// Thread Safety: all methods are safe for concurrent use. Signal and
// Release are safe to call with no waiter registered; the signal is
// dropped, which makes duplicate done notifications harmless.
type CompletionSynchronizer struct {
	mu    sync.Mutex
	waits map[string]chan struct{}
}

// NewCompletionSynchronizer creates an empty synchronizer.
func NewCompletionSynchronizer() *CompletionSynchronizer {
	return &CompletionSynchronizer{
		waits: make(map[string]chan struct{}),
	}
}

// RunAndWait invokes start and blocks until the tag is signalled or
// released, or ctx is cancelled.
//
// If start returns an error the wait is torn down immediately and the
// error returned; the tag is always deregistered by the time
// RunAndWait returns, so a subsequent run never sees a stale wait.
// Returns ErrWaitPending if a wait is already outstanding for tag.
func (s *CompletionSynchronizer) RunAndWait(ctx context.Context, tag string, start func() error) error {
	s.mu.Lock()
	if _, exists := s.waits[tag]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrWaitPending, tag)
	}
	ch := make(chan struct{})
	s.waits[tag] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.waits[tag] == ch {
			delete(s.waits, tag)
		}
		s.mu.Unlock()
	}()

	if err := start(); err != nil {
		return err
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signal unblocks the waiter registered under tag, if any. Called from
// the notification-delivery path on run completion. A signal with no
// waiter is dropped.
func (s *CompletionSynchronizer) Signal(tag string) {
	s.release(tag)
}

// Release unblocks the waiter registered under tag, if any. This is
// the abort path: the caller regains control immediately even if the
// hardware is still draining.
func (s *CompletionSynchronizer) Release(tag string) {
	s.release(tag)
}

// ReleaseAll unblocks every outstanding wait.
func (s *CompletionSynchronizer) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, ch := range s.waits {
		close(ch)
		delete(s.waits, tag)
	}
}

// Waiting reports whether a wait is outstanding for tag.
func (s *CompletionSynchronizer) Waiting(tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.waits[tag]
	return ok
}

func (s *CompletionSynchronizer) release(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.waits[tag]; ok {
		close(ch)
		delete(s.waits, tag)
	}
}
