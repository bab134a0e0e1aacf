package dedupe_test

import (
	"context"
	"testing"

	"dupdrive/internal/dedupe"
	"dupdrive/internal/testutil"
)

func testUniverse() []dedupe.FileRecord {
	return []dedupe.FileRecord{
		testutil.Folder("root", "My Drive", ""),
		testutil.Folder("docs", "Docs", "root"),
		testutil.Folder("tax", "Tax", "docs"),
		testutil.File("f1", "invoice_2023.pdf", "tax", "aaa", 10),
		testutil.File("f2", "notes.txt", "ghost", "bbb", 5),
		testutil.File("f3", "top.txt", "", "ccc", 1),
	}
}

func TestPathIndex_Resolve(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "root item", id: "root", want: "/My Drive"},
		{name: "nested file", id: "f1", want: "/My Drive/Docs/Tax/invoice_2023.pdf"},
		{name: "missing parent degrades to unrooted name", id: "f2", want: "/notes.txt"},
		{name: "no parent", id: "f3", want: "/top.txt"},
		{name: "unknown id", id: "nope", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx := dedupe.NewPathIndex(testUniverse())
			if got := idx.Resolve(tt.id); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestPathIndex_Resolve_memoizationIsTransparent(t *testing.T) {
	ids := []string{"f1", "tax", "docs", "root", "f2", "f3", "nope"}

	cold := make(map[string]string)
	for _, id := range ids {
		cold[id] = dedupe.NewPathIndex(testUniverse()).Resolve(id)
	}

	warm := dedupe.NewPathIndex(testUniverse())
	for _, id := range ids {
		first := warm.Resolve(id)
		second := warm.Resolve(id)
		if first != second {
			t.Errorf("Resolve(%q) not idempotent: %q then %q", id, first, second)
		}
		if first != cold[id] {
			t.Errorf("Resolve(%q) warm = %q, cold = %q", id, first, cold[id])
		}
	}
}

func TestPathIndex_Resolve_terminatesOnCycles(t *testing.T) {
	t.Run("two node cycle", func(t *testing.T) {
		idx := dedupe.NewPathIndex([]dedupe.FileRecord{
			testutil.Folder("A", "a", "B"),
			testutil.Folder("B", "b", "A"),
		})
		if got := idx.Resolve("A"); got != "/b/a" {
			t.Errorf("Resolve(A) = %q, want %q", got, "/b/a")
		}
		if got := idx.Resolve("B"); got != "/b" {
			t.Errorf("Resolve(B) = %q, want %q", got, "/b")
		}
	})

	t.Run("self parent", func(t *testing.T) {
		idx := dedupe.NewPathIndex([]dedupe.FileRecord{testutil.Folder("A", "a", "A")})
		if got := idx.Resolve("A"); got != "/a" {
			t.Errorf("Resolve(A) = %q, want %q", got, "/a")
		}
	})

	t.Run("file below a cycle", func(t *testing.T) {
		idx := dedupe.NewPathIndex([]dedupe.FileRecord{
			testutil.Folder("A", "a", "C"),
			testutil.Folder("B", "b", "A"),
			testutil.Folder("C", "c", "B"),
			testutil.File("F", "f.bin", "A", "x", 1),
		})
		if got := idx.Resolve("F"); got != "/b/c/a/f.bin" {
			t.Errorf("Resolve(F) = %q, want %q", got, "/b/c/a/f.bin")
		}
	})
}

func TestPathIndex_ResolveAll(t *testing.T) {
	idx := dedupe.NewPathIndex(testUniverse())
	got, err := idx.ResolveAll(context.Background(), []string{"f1", "f2", "f3", "tax", "nope"}, 2)
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}

	want := map[string]string{
		"f1":   "/My Drive/Docs/Tax/invoice_2023.pdf",
		"f2":   "/notes.txt",
		"f3":   "/top.txt",
		"tax":  "/My Drive/Docs/Tax",
		"nope": "",
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("ResolveAll()[%q] = %q, want %q", id, got[id], w)
		}
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := dedupe.NewPathIndex(testUniverse()).ResolveAll(ctx, []string{"f1"}, 1); err == nil {
			t.Error("ResolveAll() expected error for cancelled context")
		}
	})
}

func TestPathIndex_FilterByPath(t *testing.T) {
	files := testUniverse()
	idx := dedupe.NewPathIndex(files)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{name: "subtree", target: "/My Drive/Docs", want: []string{"docs", "tax", "f1"}},
		{name: "trailing slash ignored", target: "/My Drive/Docs/", want: []string{"docs", "tax", "f1"}},
		{name: "prefix of a name does not match", target: "/My Drive/Do", want: nil},
		{name: "exact file", target: "/top.txt", want: []string{"f3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.FilterByPath(files, tt.target)
			if len(got) != len(tt.want) {
				t.Fatalf("FilterByPath(%q) returned %d files, want %d", tt.target, len(got), len(tt.want))
			}
			for i, f := range got {
				if f.ID != tt.want[i] {
					t.Errorf("FilterByPath(%q)[%d] = %q, want %q", tt.target, i, f.ID, tt.want[i])
				}
			}
		})
	}
}

func TestNewFileRecord(t *testing.T) {
	t.Run("collapses parents to first", func(t *testing.T) {
		r, err := dedupe.NewFileRecord("id1", "a.txt", []string{"p1", "p2"})
		if err != nil {
			t.Fatalf("NewFileRecord() error = %v", err)
		}
		if r.ParentID != "p1" {
			t.Errorf("ParentID = %q, want %q", r.ParentID, "p1")
		}
		if r.Size != 0 || r.HasSize || r.Checksum != "" {
			t.Errorf("optional fields not defaulted: %+v", r)
		}
	})

	t.Run("requires id", func(t *testing.T) {
		if _, err := dedupe.NewFileRecord("", "a.txt", nil); err != dedupe.ErrMissingID {
			t.Errorf("NewFileRecord() error = %v, want ErrMissingID", err)
		}
	})

	t.Run("requires name", func(t *testing.T) {
		if _, err := dedupe.NewFileRecord("id1", "", nil); err != dedupe.ErrMissingName {
			t.Errorf("NewFileRecord() error = %v, want ErrMissingName", err)
		}
	})
}
