package dedupe

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// Action is the recorded resolution of a group.
type Action string

const (
	ActionKeepSpecific Action = "keep_specific"
	ActionSkip         Action = "skip"
)

var (
	// ErrNotGroupMember is returned when a decision names a file outside its group.
	ErrNotGroupMember = errors.New("file is not a member of the group")
	// ErrNoSecondMember is returned when keep_right is applied to a group without a second member.
	ErrNoSecondMember = errors.New("group has no second member")
	ErrUnknownAction  = errors.New("unknown action")
)

// Decision is the operator's resolution of one duplicate group, keyed by the
// group checksum.
type Decision struct {
	Checksum  string
	Action    Action
	KeepID    string   // set iff Action is keep_specific
	DeleteIDs []string // every other member for keep_specific; empty for skip
	DecidedAt time.Time
}

// IsSkip reports whether the decision defers the group.
func (d Decision) IsSkip() bool {
	return d.Action == ActionSkip
}

// ListsKeptForDeletion reports whether a keep decision names its kept file
// among the files to delete. Such a decision is malformed.
func (d Decision) ListsKeptForDeletion() bool {
	return d.Action == ActionKeepSpecific && slices.Contains(d.DeleteIDs, d.KeepID)
}

// HoldsFor reports whether a keep decision still applies to g: the group has
// the same checksum, the kept file is still a member and is not itself
// listed for deletion.
func (d Decision) HoldsFor(g *DuplicateGroup) bool {
	if d.Action != ActionKeepSpecific || g.Checksum != d.Checksum || d.ListsKeptForDeletion() {
		return false
	}
	_, ok := g.Member(d.KeepID)
	return ok
}

// NewKeepDecision keeps keepID and marks every other member of g for deletion.
func NewKeepDecision(g *DuplicateGroup, keepID string, at time.Time) (Decision, error) {
	if _, ok := g.Member(keepID); !ok {
		return Decision{}, fmt.Errorf("keeping %q in group %s: %w", keepID, g.Checksum, ErrNotGroupMember)
	}
	deleteIDs := make([]string, 0, len(g.Files)-1)
	for _, f := range g.Files {
		if f.ID != keepID {
			deleteIDs = append(deleteIDs, f.ID)
		}
	}
	return Decision{
		Checksum:  g.Checksum,
		Action:    ActionKeepSpecific,
		KeepID:    keepID,
		DeleteIDs: deleteIDs,
		DecidedAt: at,
	}, nil
}

// NewSkipDecision records that the group was looked at and deliberately left alone.
func NewSkipDecision(checksum string, at time.Time) Decision {
	return Decision{
		Checksum:  checksum,
		Action:    ActionSkip,
		DeleteIDs: []string{},
		DecidedAt: at,
	}
}

// Statistics summarizes a decision set against the current group count.
type Statistics struct {
	Decided       int
	Skipped       int
	Pending       int
	FilesToDelete int
}

// DecisionStore holds at most one decision per group checksum. The latest
// write wins. It is safe for concurrent use.
type DecisionStore struct {
	mu        sync.RWMutex
	decisions map[string]Decision
}

// NewDecisionStore returns an empty store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{decisions: make(map[string]Decision)}
}

// Record stores d, replacing any prior decision for the same checksum.
func (s *DecisionStore) Record(d Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[d.Checksum] = d
}

// Get returns the decision for checksum.
func (s *DecisionStore) Get(checksum string) (Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[checksum]
	return d, ok
}

// Len returns the number of recorded decisions.
func (s *DecisionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.decisions)
}

// All returns every decision ordered by checksum.
func (s *DecisionStore) All() []Decision {
	s.mu.RLock()
	out := make([]Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Checksum < out[j].Checksum })
	return out
}

// Stats derives the summary counts. Pending is computed from totalGroups and
// never goes below zero, even when the store holds decisions for groups that
// are no longer part of the scan.
func (s *DecisionStore) Stats(totalGroups int) Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Statistics
	for _, d := range s.decisions {
		if d.IsSkip() {
			st.Skipped++
			continue
		}
		st.Decided++
		st.FilesToDelete += len(d.DeleteIDs)
	}
	st.Pending = max(totalGroups-len(s.decisions), 0)
	return st
}
