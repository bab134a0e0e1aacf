package dedupe_test

import (
	"testing"

	"dupdrive/internal/dedupe"
	"dupdrive/internal/testutil"
)

func TestPairRows(t *testing.T) {
	noSize := dedupe.FileRecord{ID: "n2", Name: "b", Checksum: "s2", ModifiedTime: "2024-02-02T00:00:00Z"}
	files := []dedupe.FileRecord{
		testutil.File("a1", "a.txt", "", "s1", 10),
		testutil.File("a2", "a.txt", "", "s1", 10),
		testutil.File("a3", "a.txt", "", "s1", 10),
		{ID: "n1", Name: "b", Checksum: "s2", ModifiedTime: "2024-02-01T00:00:00Z"},
		noSize,
	}
	idx := dedupe.NewPathIndex(files)
	raw, _ := dedupe.FindDuplicates(files)
	groups := dedupe.BuildGroups(raw, idx)

	rows := dedupe.PairRows(groups, idx)
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}

	first := rows[0]
	if first.Path1 != "/a.txt" || first.Checksum != "s1" || first.Size != "10" || first.Status != dedupe.StatusDuplicate {
		t.Errorf("rows[0] = %+v", first)
	}
	if rows[2].Path1 != rows[1].Path1 {
		t.Errorf("pairs out of member order: %+v", rows[:3])
	}

	last := rows[3]
	if last.Size != "N/A" {
		t.Errorf("Size = %q, want N/A for missing size", last.Size)
	}
	if last.Date1 != "2024-02-01T00:00:00Z" || last.Date2 != "2024-02-02T00:00:00Z" {
		t.Errorf("dates = %q, %q", last.Date1, last.Date2)
	}

	t.Run("uncertain status", func(t *testing.T) {
		g := []dedupe.DuplicateGroup{group("u", true, 10, 12)}
		rows := dedupe.PairRows(g, nil)
		if len(rows) != 1 || rows[0].Status != dedupe.StatusUncertain {
			t.Errorf("rows = %+v, want one uncertain row", rows)
		}
	})
}

func TestBuildDeletionPlan(t *testing.T) {
	files := []dedupe.FileRecord{
		testutil.Folder("dir", "Docs", ""),
		testutil.File("A", "a.pdf", "dir", "s", 300),
		testutil.File("B", "b.pdf", "dir", "s", 300),
		testutil.File("C", "c.bin", "", "t", 40),
		testutil.File("D", "d.bin", "", "t", 40),
	}
	idx := dedupe.NewPathIndex(files)
	raw, _ := dedupe.FindDuplicates(files)
	groups := dedupe.BuildGroups(raw, idx)

	keep, err := dedupe.NewKeepDecision(&groups[0], "A", decidedAt)
	if err != nil {
		t.Fatal(err)
	}
	decisions := []dedupe.Decision{keep, dedupe.NewSkipDecision("t", decidedAt)}

	plan := dedupe.BuildDeletionPlan(decisions, groups, idx)

	if plan.Groups != 1 {
		t.Errorf("Groups = %d, want 1", plan.Groups)
	}
	if len(plan.Files) != 1 || plan.Files[0].ID != "B" {
		t.Fatalf("Files = %+v, want only B", plan.Files)
	}
	if plan.Files[0].Path != "/Docs/b.pdf" || plan.Files[0].Checksum != "s" {
		t.Errorf("Files[0] = %+v", plan.Files[0])
	}
	if plan.TotalBytes != 300 {
		t.Errorf("TotalBytes = %d, want 300", plan.TotalBytes)
	}

	t.Run("ids outside the universe are left out", func(t *testing.T) {
		stale := dedupe.Decision{Checksum: "s", Action: dedupe.ActionKeepSpecific, KeepID: "A", DeleteIDs: []string{"gone"}}
		plan := dedupe.BuildDeletionPlan([]dedupe.Decision{stale}, groups, idx)
		if len(plan.Files) != 0 || plan.TotalBytes != 0 {
			t.Errorf("plan = %+v, want empty", plan)
		}
	})

	t.Run("kept file gone from the group", func(t *testing.T) {
		// Decided as keep X before a rescan; X no longer exists.
		old := dedupe.Decision{Checksum: "s", Action: dedupe.ActionKeepSpecific, KeepID: "X", DeleteIDs: []string{"A", "B"}}
		plan := dedupe.BuildDeletionPlan([]dedupe.Decision{old}, groups, idx)
		if len(plan.Files) != 0 || plan.TotalBytes != 0 || plan.Groups != 0 {
			t.Errorf("plan = %+v, want nothing planned", plan)
		}
		if plan.Stale != 1 {
			t.Errorf("Stale = %d, want 1", plan.Stale)
		}
	})

	t.Run("kept file listed for deletion", func(t *testing.T) {
		bad := dedupe.Decision{Checksum: "s", Action: dedupe.ActionKeepSpecific, KeepID: "A", DeleteIDs: []string{"A", "B"}}
		plan := dedupe.BuildDeletionPlan([]dedupe.Decision{bad}, groups, idx)
		if len(plan.Files) != 0 || plan.Stale != 1 {
			t.Errorf("plan = %+v, want nothing planned and one stale decision", plan)
		}
	})

	t.Run("group no longer in the scan", func(t *testing.T) {
		gone := dedupe.Decision{Checksum: "u", Action: dedupe.ActionKeepSpecific, KeepID: "C", DeleteIDs: []string{"D"}}
		plan := dedupe.BuildDeletionPlan([]dedupe.Decision{gone, keep}, groups, idx)
		if plan.Stale != 1 || plan.Groups != 1 || len(plan.Files) != 1 || plan.Files[0].ID != "B" {
			t.Errorf("plan = %+v, want only B planned and one stale decision", plan)
		}
	})

	t.Run("delete ids outside the group are left out", func(t *testing.T) {
		wide := dedupe.Decision{Checksum: "s", Action: dedupe.ActionKeepSpecific, KeepID: "A", DeleteIDs: []string{"B", "C"}}
		plan := dedupe.BuildDeletionPlan([]dedupe.Decision{wide}, groups, idx)
		if len(plan.Files) != 1 || plan.Files[0].ID != "B" || plan.TotalBytes != 300 {
			t.Errorf("plan = %+v, want only B", plan)
		}
	})
}

func TestDecision_HoldsFor(t *testing.T) {
	g := group("s", false, 1, 1, 1)
	tests := []struct {
		name string
		d    dedupe.Decision
		want bool
	}{
		{"fresh keep", dedupe.Decision{Checksum: "s", Action: dedupe.ActionKeepSpecific, KeepID: g.Files[0].ID, DeleteIDs: []string{g.Files[1].ID}}, true},
		{"kept file not a member", dedupe.Decision{Checksum: "s", Action: dedupe.ActionKeepSpecific, KeepID: "other"}, false},
		{"kept file listed for deletion", dedupe.Decision{Checksum: "s", Action: dedupe.ActionKeepSpecific, KeepID: g.Files[0].ID, DeleteIDs: []string{g.Files[0].ID}}, false},
		{"other checksum", dedupe.Decision{Checksum: "t", Action: dedupe.ActionKeepSpecific, KeepID: g.Files[0].ID}, false},
		{"skip", dedupe.NewSkipDecision("s", decidedAt), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.HoldsFor(&g); got != tt.want {
				t.Errorf("HoldsFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	groups := []dedupe.DuplicateGroup{
		group("a", false, 100, 100, 100),
		group("b", true, 1, 2),
	}

	got := dedupe.Summarize(groups, 20, 3)
	want := dedupe.ScanSummary{TotalFiles: 20, Groups: 2, Files: 5, Pairs: 4, Uncertain: 1, Savings: 200, Skipped: 3}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}
