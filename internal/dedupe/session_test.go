package dedupe_test

import (
	"errors"
	"testing"

	"dupdrive/internal/dedupe"
	"dupdrive/internal/testutil"
)

// reviewGroups returns four groups; the second and fourth mention "invoice".
func reviewGroups() []dedupe.DuplicateGroup {
	mk := func(checksum string, paths ...string) dedupe.DuplicateGroup {
		g := dedupe.DuplicateGroup{Checksum: checksum}
		for i, p := range paths {
			g.Files = append(g.Files, dedupe.FileInfo{
				ID:   checksum + "-" + string(rune('0'+i)),
				Name: p[len(p)-5:],
				Path: p,
				Size: 10,
			})
		}
		return g
	}
	return []dedupe.DuplicateGroup{
		mk("g1", "/Photos/a.jpg", "/Backup/a.jpg"),
		mk("g2", "/Docs/Invoice/2023.pdf", "/Old/2023.pdf"),
		mk("g3", "/Music/s.mp3", "/Music/copy/s.mp3", "/tmp/s.mp3"),
		mk("g4", "/Mail/invoice.eml", "/Mail/dup/invoice.eml"),
	}
}

func newSession(groups []dedupe.DuplicateGroup, ds *dedupe.DecisionStore) *dedupe.ReviewSession {
	return dedupe.NewReviewSession(groups, ds, testutil.FixedClock())
}

func currentChecksum(t *testing.T, s *dedupe.ReviewSession) string {
	t.Helper()
	g, ok := s.Current()
	if !ok {
		t.Fatal("Current() returned no group")
	}
	return g.Checksum
}

func TestReviewSession_initialState(t *testing.T) {
	s := newSession(reviewGroups(), dedupe.NewDecisionStore())

	if s.Filter() != dedupe.FilterPending {
		t.Errorf("Filter() = %q, want pending", s.Filter())
	}
	if s.SearchTerm() != "" {
		t.Errorf("SearchTerm() = %q, want empty", s.SearchTerm())
	}
	if pos, total := s.Position(); pos != 1 || total != 4 {
		t.Errorf("Position() = %d/%d, want 1/4", pos, total)
	}
	if got := currentChecksum(t, s); got != "g1" {
		t.Errorf("current = %s, want g1", got)
	}
}

func TestReviewSession_Navigate(t *testing.T) {
	s := newSession(reviewGroups(), dedupe.NewDecisionStore())

	s.Navigate(dedupe.Prev)
	if pos, _ := s.Position(); pos != 1 {
		t.Errorf("Prev at start moved to %d", pos)
	}

	for range 10 {
		s.Navigate(dedupe.Next)
	}
	if pos, total := s.Position(); pos != total {
		t.Errorf("Next past end = %d/%d, want last", pos, total)
	}

	s.JumpTo(2)
	if got := currentChecksum(t, s); got != "g2" {
		t.Errorf("JumpTo(2) current = %s, want g2", got)
	}
	s.JumpTo(0)
	s.JumpTo(99)
	if got := currentChecksum(t, s); got != "g2" {
		t.Errorf("out-of-range JumpTo changed current to %s", got)
	}
}

func TestReviewSession_Decide(t *testing.T) {
	t.Run("keep left advances without refiltering", func(t *testing.T) {
		ds := dedupe.NewDecisionStore()
		s := newSession(reviewGroups(), ds)

		d, applied, err := s.Decide(dedupe.KeepLeft, "")
		if err != nil || !applied {
			t.Fatalf("Decide() = %v, %v", applied, err)
		}
		if d.KeepID != "g1-0" || len(d.DeleteIDs) != 1 || d.DeleteIDs[0] != "g1-1" {
			t.Errorf("decision = %+v", d)
		}
		if got := currentChecksum(t, s); got != "g2" {
			t.Errorf("current = %s, want g2", got)
		}
		if _, total := s.Position(); total != 4 {
			t.Errorf("visible total = %d, want 4 until refiltered", total)
		}

		s.ApplyFilter()
		if _, total := s.Position(); total != 3 {
			t.Errorf("visible total after ApplyFilter = %d, want 3", total)
		}
	})

	t.Run("keep right", func(t *testing.T) {
		s := newSession(reviewGroups(), dedupe.NewDecisionStore())
		d, _, err := s.Decide(dedupe.KeepRight, "")
		if err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		if d.KeepID != "g1-1" {
			t.Errorf("KeepID = %q, want g1-1", d.KeepID)
		}
	})

	t.Run("keep right needs a second member", func(t *testing.T) {
		single := []dedupe.DuplicateGroup{{Checksum: "solo", Files: []dedupe.FileInfo{{ID: "only"}}}}
		ds := dedupe.NewDecisionStore()
		s := newSession(single, ds)
		if _, _, err := s.Decide(dedupe.KeepRight, ""); !errors.Is(err, dedupe.ErrNoSecondMember) {
			t.Errorf("error = %v, want ErrNoSecondMember", err)
		}
		if ds.Len() != 0 {
			t.Error("failed decision was recorded")
		}
	})

	t.Run("keep specific rejects non-member and keeps prior decision", func(t *testing.T) {
		ds := dedupe.NewDecisionStore()
		s := newSession(reviewGroups(), ds)
		s.SetFilter(dedupe.FilterPending)
		s.JumpTo(3)
		if _, _, err := s.Decide(dedupe.KeepSpecific, "g3-2"); err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		s.JumpTo(3)

		_, applied, err := s.Decide(dedupe.KeepSpecific, "g1-0")
		if !errors.Is(err, dedupe.ErrNotGroupMember) || applied {
			t.Errorf("Decide() = %v, %v; want ErrNotGroupMember", applied, err)
		}
		d, _ := ds.Get("g3")
		if d.KeepID != "g3-2" {
			t.Errorf("prior decision changed: %+v", d)
		}
		if got := currentChecksum(t, s); got != "g3" {
			t.Errorf("rejected decision moved to %s", got)
		}
	})

	t.Run("skip", func(t *testing.T) {
		ds := dedupe.NewDecisionStore()
		s := newSession(reviewGroups(), ds)
		d, _, _ := s.Decide(dedupe.Skip, "")
		if !d.IsSkip() {
			t.Errorf("decision = %+v, want skip", d)
		}
		g := &reviewGroups()[0]
		if got := s.DecisionLabel(g); got != "[SKIPPED]" {
			t.Errorf("DecisionLabel() = %q, want [SKIPPED]", got)
		}
	})

	t.Run("nothing to decide", func(t *testing.T) {
		s := newSession(nil, dedupe.NewDecisionStore())
		_, applied, err := s.Decide(dedupe.KeepLeft, "")
		if applied || err != nil {
			t.Errorf("Decide() = %v, %v; want not applied", applied, err)
		}
	})
}

func TestReviewSession_filters(t *testing.T) {
	ds := dedupe.NewDecisionStore()
	groups := reviewGroups()
	keep, _ := dedupe.NewKeepDecision(&groups[0], "g1-1", decidedAt)
	ds.Record(keep)
	ds.Record(dedupe.NewSkipDecision("g3", decidedAt))

	s := newSession(groups, ds)

	tests := []struct {
		filter dedupe.FilterStatus
		want   []int
	}{
		{dedupe.FilterPending, []int{1, 3}},
		{dedupe.FilterDecided, []int{0}},
		{dedupe.FilterSkipped, []int{2}},
	}
	for _, tt := range tests {
		s.SetFilter(tt.filter)
		got := s.FilteredIndices()
		if len(got) != len(tt.want) {
			t.Errorf("%s: indices = %v, want %v", tt.filter, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: indices = %v, want %v", tt.filter, got, tt.want)
				break
			}
		}
	}

	s.SetFilter(dedupe.FilterDecided)
	g, _ := s.Current()
	if got := s.DecisionLabel(g); got != "[KEEPING: a.jpg]" {
		t.Errorf("DecisionLabel() = %q, want [KEEPING: a.jpg]", got)
	}
}

func TestReviewSession_Search(t *testing.T) {
	ds := dedupe.NewDecisionStore()
	ds.Record(dedupe.NewSkipDecision("g4", decidedAt))
	s := newSession(reviewGroups(), ds)
	s.SetFilter(dedupe.FilterSkipped)
	s.Navigate(dedupe.Next)

	s.Search("INVOICE")

	if s.Filter() != dedupe.FilterPending {
		t.Errorf("Filter() = %q, want pending after search", s.Filter())
	}
	got := s.FilteredIndices()
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("indices = %v, want [1]", got)
	}
	if pos, _ := s.Position(); pos != 1 {
		t.Errorf("Position() = %d, want 1", pos)
	}

	s.Search("")
	if _, total := s.Position(); total != 3 {
		t.Errorf("cleared search total = %d, want 3", total)
	}
}

func TestReviewSession_emptyFilterResetsPosition(t *testing.T) {
	s := newSession(reviewGroups(), dedupe.NewDecisionStore())
	s.JumpTo(4)
	s.SetFilter(dedupe.FilterSkipped)

	if _, ok := s.Current(); ok {
		t.Error("Current() returned a group for an empty list")
	}
	if pos, total := s.Position(); pos != 0 || total != 0 {
		t.Errorf("Position() = %d/%d, want 0/0", pos, total)
	}

	s.SetFilter(dedupe.FilterPending)
	if got := currentChecksum(t, s); got != "g1" {
		t.Errorf("current = %s, want g1", got)
	}
}

func TestParseFilterStatus(t *testing.T) {
	for _, in := range []string{"pending", "Decided", " skipped "} {
		if _, err := dedupe.ParseFilterStatus(in); err != nil {
			t.Errorf("ParseFilterStatus(%q) error = %v", in, err)
		}
	}
	if _, err := dedupe.ParseFilterStatus("all"); err == nil {
		t.Error("ParseFilterStatus(all) expected error")
	}
	if got := dedupe.FilterSkipped.Next(); got != dedupe.FilterPending {
		t.Errorf("skipped.Next() = %q, want pending", got)
	}
}
