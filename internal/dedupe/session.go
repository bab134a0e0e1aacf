package dedupe

import (
	"fmt"
	"strings"
)

// FilterStatus selects which groups a review session shows.
type FilterStatus string

const (
	FilterPending FilterStatus = "pending" // no decision yet
	FilterDecided FilterStatus = "decided" // a copy was chosen
	FilterSkipped FilterStatus = "skipped" // deliberately deferred
)

// ParseFilterStatus validates a filter name.
func ParseFilterStatus(s string) (FilterStatus, error) {
	switch f := FilterStatus(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterPending, FilterDecided, FilterSkipped:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter status: %q", s)
	}
}

// Next cycles pending -> decided -> skipped -> pending.
func (f FilterStatus) Next() FilterStatus {
	switch f {
	case FilterPending:
		return FilterDecided
	case FilterDecided:
		return FilterSkipped
	default:
		return FilterPending
	}
}

// Direction is a navigation step.
type Direction int

const (
	Next Direction = iota
	Prev
)

// ReviewAction is an operator command applied to the current group.
type ReviewAction string

const (
	KeepLeft     ReviewAction = "keep_left"     // keep the first member
	KeepRight    ReviewAction = "keep_right"    // keep the second member
	KeepSpecific ReviewAction = "keep_specific" // keep an explicit member id
	Skip         ReviewAction = "skip"
)

// ReviewSession tracks which group is presented under which filter and search.
// Its visible list is a projection of (groups, decisions, filter, search);
// navigation moves within that projection. Decisions are written through to
// the shared DecisionStore.
type ReviewSession struct {
	groups    []DuplicateGroup
	decisions *DecisionStore
	clock     Clock

	filter   FilterStatus
	search   string
	filtered []int
	current  int
}

// NewReviewSession starts a session in the initial state (pending, no search,
// first position) with the filter already applied.
func NewReviewSession(groups []DuplicateGroup, decisions *DecisionStore, clock Clock) *ReviewSession {
	s := &ReviewSession{
		groups:    groups,
		decisions: decisions,
		clock:     clock,
		filter:    FilterPending,
	}
	s.ApplyFilter()
	return s
}

// Filter returns the active filter status.
func (s *ReviewSession) Filter() FilterStatus { return s.filter }

// SearchTerm returns the active search term.
func (s *ReviewSession) SearchTerm() string { return s.search }

// FilteredIndices returns the group indices visible under the current filter.
func (s *ReviewSession) FilteredIndices() []int {
	return append([]int(nil), s.filtered...)
}

// Groups returns every group of the scan in scan order.
func (s *ReviewSession) Groups() []DuplicateGroup { return s.groups }

// ApplyFilter recomputes the visible list from scratch. The position is reset
// to the first entry when it falls out of range.
func (s *ReviewSession) ApplyFilter() {
	s.filtered = s.filtered[:0]
	term := strings.ToLower(s.search)

	for i := range s.groups {
		g := &s.groups[i]
		d, decided := s.decisions.Get(g.Checksum)
		if !s.matchesStatus(d, decided) {
			continue
		}
		if term != "" && !groupMatches(g, term) {
			continue
		}
		s.filtered = append(s.filtered, i)
	}

	if s.current >= len(s.filtered) {
		s.current = 0
	}
}

func (s *ReviewSession) matchesStatus(d Decision, decided bool) bool {
	switch s.filter {
	case FilterPending:
		return !decided
	case FilterDecided:
		return decided && !d.IsSkip()
	case FilterSkipped:
		return decided && d.IsSkip()
	default:
		return false
	}
}

func groupMatches(g *DuplicateGroup, lowerTerm string) bool {
	for _, f := range g.Files {
		if strings.Contains(strings.ToLower(f.Path), lowerTerm) || strings.Contains(strings.ToLower(f.Name), lowerTerm) {
			return true
		}
	}
	return false
}

// SetFilter switches the status filter and re-applies it. The search term is kept.
func (s *ReviewSession) SetFilter(f FilterStatus) {
	s.filter = f
	s.ApplyFilter()
}

// Search finds term among the groups still to do: the filter is reset to
// pending and the position to the first entry.
func (s *ReviewSession) Search(term string) {
	s.filter = FilterPending
	s.search = term
	s.current = 0
	s.ApplyFilter()
}

// Navigate moves one step. It is a no-op at either end of the list.
func (s *ReviewSession) Navigate(dir Direction) {
	switch dir {
	case Next:
		if s.current < len(s.filtered)-1 {
			s.current++
		}
	case Prev:
		if s.current > 0 {
			s.current--
		}
	}
}

// JumpTo moves to a 1-based position. Out-of-range positions are ignored.
func (s *ReviewSession) JumpTo(position int) {
	if position >= 1 && position <= len(s.filtered) {
		s.current = position - 1
	}
}

// Position returns the 1-based current position and the visible total.
// Position is 0 when nothing is visible.
func (s *ReviewSession) Position() (int, int) {
	if len(s.filtered) == 0 {
		return 0, 0
	}
	return s.current + 1, len(s.filtered)
}

// Current returns the group presented at the current position.
func (s *ReviewSession) Current() (*DuplicateGroup, bool) {
	if s.current < 0 || s.current >= len(s.filtered) {
		return nil, false
	}
	return &s.groups[s.filtered[s.current]], true
}

// Decide applies action to the current group, records the decision and
// advances to the next position. applied is false when there is no current
// group. A keep id outside the current group is rejected and leaves the store
// untouched. The visible list itself is only recomputed by ApplyFilter.
func (s *ReviewSession) Decide(action ReviewAction, keepID string) (d Decision, applied bool, err error) {
	g, ok := s.Current()
	if !ok {
		return Decision{}, false, nil
	}

	now := s.clock.Now().UTC()
	switch action {
	case Skip:
		d = NewSkipDecision(g.Checksum, now)
	case KeepLeft:
		d, err = NewKeepDecision(g, g.Files[0].ID, now)
	case KeepRight:
		if len(g.Files) < 2 {
			return Decision{}, false, ErrNoSecondMember
		}
		d, err = NewKeepDecision(g, g.Files[1].ID, now)
	case KeepSpecific:
		d, err = NewKeepDecision(g, keepID, now)
	default:
		return Decision{}, false, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err != nil {
		return Decision{}, false, err
	}

	s.decisions.Record(d)
	s.Navigate(Next)
	return d, true, nil
}

// DecisionLabel describes the recorded decision of g for display:
// "[SKIPPED]", "[KEEPING: name]" or "" when undecided.
func (s *ReviewSession) DecisionLabel(g *DuplicateGroup) string {
	d, ok := s.decisions.Get(g.Checksum)
	if !ok {
		return ""
	}
	if d.IsSkip() {
		return "[SKIPPED]"
	}
	if f, ok := g.Member(d.KeepID); ok {
		return fmt.Sprintf("[KEEPING: %s]", f.Name)
	}
	return ""
}
