// Package panel holds one open copy-job panel: the selection, the
// prerequisite cache scoped to it, and the resolver that reads both.
package panel

import (
	"context"
	"errors"
	"sync"

	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

var ErrClosed = errors.New("panel: session closed")

// Remediator applies the fix for one section and returns the updated state.
type Remediator interface {
	Apply(ctx context.Context, section prereq.SectionID, state copyjob.State) (copyjob.State, error)
}

// Session is safe for concurrent use. Setters replace the state wholesale so
// a resolution pass that already took a snapshot keeps reading consistent
// values.
type Session struct {
	resolver *prereq.Resolver

	mu     sync.Mutex
	state  copyjob.State
	cache  *prereq.Cache
	closed bool
}

// Open starts a session with initial as the selection.
func Open(resolver *prereq.Resolver, initial copyjob.State) *Session {
	if resolver == nil {
		resolver = &prereq.Resolver{}
	}
	if initial.MigrationType == "" {
		initial.MigrationType = copyjob.Offline
	}
	return &Session{resolver: resolver, state: initial.Clone(), cache: prereq.NewCache()}
}

// Snapshot returns a copy of the current selection.
func (s *Session) Snapshot() copyjob.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Cached returns the cached section outcomes.
func (s *Session) Cached() map[prereq.SectionID]bool {
	return s.cache.Snapshot()
}

func (s *Session) update(fn func(*copyjob.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	fn(&next)
	s.state = next
}

func (s *Session) SetJobName(name string) {
	s.update(func(st *copyjob.State) { st.JobName = name })
}

// SetMigrationType switches the copy mode. Leaving Online drops the online
// section outcomes so a later return to Online re-validates them.
func (s *Session) SetMigrationType(mode copyjob.MigrationType) {
	s.mu.Lock()
	prev := s.state.MigrationType
	next := s.state.Clone()
	next.MigrationType = mode
	s.state = next
	s.mu.Unlock()

	if prev == copyjob.Online && mode != copyjob.Online {
		s.cache.Purge()
	}
}

func (s *Session) SetSource(src copyjob.Source) {
	src.Account = resourceid.NewAccountRef(src.Account)
	s.update(func(st *copyjob.State) { st.Source = src })
}

func (s *Session) SetTarget(dst copyjob.Target) {
	dst.Account = resourceid.NewAccountRef(dst.Account)
	s.update(func(st *copyjob.State) { st.Target = dst })
}

// ReplaceTargetAccount swaps in a freshly read destination account, keeping
// the selected database and container.
func (s *Session) ReplaceTargetAccount(account resourceid.AccountRef) {
	account = resourceid.NewAccountRef(account)
	s.update(func(st *copyjob.State) { st.Target.Account = account })
}

func (s *Session) SetSourceReadAccessFromTarget(v bool) {
	s.update(func(st *copyjob.State) { st.SourceReadAccessFromTarget = v })
}

// Revalidate forgets the outcomes of ids, or of every section when ids is empty.
func (s *Session) Revalidate(ids ...prereq.SectionID) {
	if len(ids) == 0 {
		s.cache.Reset()
		return
	}
	s.cache.Delete(ids...)
}

// Resolve runs a prerequisite pass over the current selection.
func (s *Session) Resolve(ctx context.Context) ([]prereq.Group, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	state := s.state.Clone()
	s.mu.Unlock()

	return s.resolver.Resolve(ctx, state, s.cache), nil
}

// Remediate applies the fix for section, stores the updated selection and
// forgets the section outcome so the next pass checks the result.
func (s *Session) Remediate(ctx context.Context, r Remediator, section prereq.SectionID) error {
	if r == nil {
		return errors.New("panel: remediator is nil")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	state := s.state.Clone()
	s.mu.Unlock()

	next, err := r.Apply(ctx, section, state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = next.Clone()
	s.mu.Unlock()

	s.cache.Delete(section)
	return nil
}

// Close discards the cache. In-flight passes finish but their results are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cache.Close()
}
