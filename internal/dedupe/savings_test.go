package dedupe_test

import (
	"testing"

	"dupdrive/internal/dedupe"
)

func group(checksum string, uncertain bool, sizes ...int64) dedupe.DuplicateGroup {
	g := dedupe.DuplicateGroup{Checksum: checksum, Uncertain: uncertain}
	for i, s := range sizes {
		g.Files = append(g.Files, dedupe.FileInfo{ID: checksum + string(rune('a'+i)), Name: "f", Size: s})
	}
	return g
}

func TestEstimateSavings(t *testing.T) {
	tests := []struct {
		name   string
		groups []dedupe.DuplicateGroup
		want   int64
	}{
		{name: "no groups", want: 0},
		{name: "three copies of 100", groups: []dedupe.DuplicateGroup{group("s", false, 100, 100, 100)}, want: 200},
		{name: "uncertain group ignored", groups: []dedupe.DuplicateGroup{group("s", true, 10, 12)}, want: 0},
		{
			name: "mixed",
			groups: []dedupe.DuplicateGroup{
				group("s1", false, 50, 50),
				group("s2", true, 1000, 1),
				group("s3", false, 0, 0, 0),
			},
			want: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dedupe.EstimateSavings(tt.groups); got != tt.want {
				t.Errorf("EstimateSavings() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0.00 B"},
		{1023, "1023.00 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3.00 TB"},
		{2 * 1024 * 1024 * 1024 * 1024 * 1024, "2.00 PB"},
	}

	for _, tt := range tests {
		if got := dedupe.FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
