package dedupe

import "strconv"

// Pair statuses used in the tabular report.
const (
	StatusDuplicate = "duplicate"
	StatusUncertain = "uncertain"
)

// PairRow is one unordered member pair of a group.
type PairRow struct {
	Filename string
	Path1    string
	Path2    string
	Date1    string
	Date2    string
	Checksum string
	Size     string // first member's size, "N/A" when the store reported none
	Status   string
}

// PairRows emits a row for every unordered pair of every group, in group and
// member order. index supplies size presence; a nil index treats every size
// as present.
func PairRows(groups []DuplicateGroup, index *PathIndex) []PairRow {
	var rows []PairRow
	for gi := range groups {
		g := &groups[gi]
		status := StatusDuplicate
		if g.Uncertain {
			status = StatusUncertain
		}
		for i := 0; i < len(g.Files); i++ {
			a := g.Files[i]
			for _, b := range g.Files[i+1:] {
				rows = append(rows, PairRow{
					Filename: a.Name,
					Path1:    a.Path,
					Path2:    b.Path,
					Date1:    a.ModifiedTime,
					Date2:    b.ModifiedTime,
					Checksum: g.Checksum,
					Size:     sizeLabel(a, index),
					Status:   status,
				})
			}
		}
	}
	return rows
}

func sizeLabel(f FileInfo, index *PathIndex) string {
	if index != nil {
		if rec, ok := index.Lookup(f.ID); ok && !rec.HasSize {
			return "N/A"
		}
	}
	return strconv.FormatInt(f.Size, 10)
}

// PlannedDeletion is one file marked for deletion.
type PlannedDeletion struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"md5"`
}

// DeletionPlan lists every file that keep decisions mark for deletion.
type DeletionPlan struct {
	Files      []PlannedDeletion `json:"files"`
	TotalBytes int64             `json:"total_bytes"`
	Groups     int               `json:"groups"`
	Stale      int               `json:"stale_decisions"` // keep decisions that no longer match their group
}

// BuildDeletionPlan resolves the delete ids of every keep decision against
// the scan's groups and universe. Skipped and pending groups are omitted.
// A keep decision whose group is gone from the scan, whose kept file is no
// longer a member, or which lists its kept file for deletion is stale: it
// plans nothing and is counted in Stale. Delete ids that are no longer
// members of the group, or unknown to the universe, are left out.
func BuildDeletionPlan(decisions []Decision, groups []DuplicateGroup, index *PathIndex) DeletionPlan {
	byChecksum := make(map[string]*DuplicateGroup, len(groups))
	for i := range groups {
		byChecksum[groups[i].Checksum] = &groups[i]
	}

	plan := DeletionPlan{Files: []PlannedDeletion{}}
	for _, d := range decisions {
		if d.Action != ActionKeepSpecific {
			continue
		}
		g, ok := byChecksum[d.Checksum]
		if !ok || !d.HoldsFor(g) {
			plan.Stale++
			continue
		}
		plan.Groups++
		for _, id := range d.DeleteIDs {
			if _, member := g.Member(id); !member {
				continue
			}
			rec, ok := index.Lookup(id)
			if !ok {
				continue
			}
			plan.Files = append(plan.Files, PlannedDeletion{
				ID:       id,
				Name:     rec.Name,
				Path:     index.Resolve(id),
				Size:     rec.Size,
				Checksum: d.Checksum,
			})
			plan.TotalBytes += rec.Size
		}
	}
	return plan
}

// ScanSummary is the headline of a scan.
type ScanSummary struct {
	TotalFiles int
	Groups     int
	Files      int // files that are members of some group
	Pairs      int
	Uncertain  int
	Savings    int64
	Skipped    int
}

// Summarize computes the scan headline. totalFiles is the number of files
// examined after any path filter.
func Summarize(groups []DuplicateGroup, totalFiles, skipped int) ScanSummary {
	s := ScanSummary{
		TotalFiles: totalFiles,
		Groups:     len(groups),
		Savings:    EstimateSavings(groups),
		Skipped:    skipped,
	}
	for i := range groups {
		s.Files += len(groups[i].Files)
		s.Pairs += groups[i].PairCount()
		if groups[i].Uncertain {
			s.Uncertain++
		}
	}
	return s
}
