package dedupe

// RawGroup is a bucket of records sharing one checksum, before paths are resolved.
type RawGroup struct {
	Checksum  string
	Files     []FileRecord
	Uncertain bool
}

// FileInfo is the display form of a group member.
type FileInfo struct {
	ID           string
	Name         string
	Path         string
	Size         int64
	ModifiedTime string
	MimeType     string
}

// DuplicateGroup is the set of all files sharing one checksum. It always has
// at least two members, listed in scan order.
type DuplicateGroup struct {
	Checksum  string
	Files     []FileInfo
	Uncertain bool // members disagree on reported size
}

// Member returns the member with the given id.
func (g *DuplicateGroup) Member(id string) (FileInfo, bool) {
	for _, f := range g.Files {
		if f.ID == id {
			return f, true
		}
	}
	return FileInfo{}, false
}

// PairCount returns the number of unordered member pairs.
func (g *DuplicateGroup) PairCount() int {
	n := len(g.Files)
	return n * (n - 1) / 2
}

type sizeKey struct {
	size    int64
	present bool
}

// FindDuplicates buckets files by checksum and returns every bucket with two
// or more members, in discovery order. skipped counts the virtual items that
// were excluded; folders and files without a checksum are excluded silently.
func FindDuplicates(files []FileRecord) (groups []RawGroup, skipped int) {
	buckets := make(map[string][]FileRecord)
	var order []string

	for _, f := range files {
		if f.IsFolder() {
			continue
		}
		if f.IsVirtual() {
			skipped++
			continue
		}
		if f.Checksum == "" {
			continue
		}
		if _, ok := buckets[f.Checksum]; !ok {
			order = append(order, f.Checksum)
		}
		buckets[f.Checksum] = append(buckets[f.Checksum], f)
	}

	for _, sum := range order {
		members := buckets[sum]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, RawGroup{
			Checksum:  sum,
			Files:     members,
			Uncertain: distinctSizes(members) > 1,
		})
	}
	return groups, skipped
}

// distinctSizes counts distinct reported sizes. A missing size is a value of
// its own, distinct from every reported size including zero.
func distinctSizes(files []FileRecord) int {
	seen := make(map[sizeKey]struct{}, len(files))
	for _, f := range files {
		seen[sizeKey{size: f.Size, present: f.HasSize}] = struct{}{}
	}
	return len(seen)
}

// BuildGroups converts raw buckets into display groups with resolved paths.
func BuildGroups(raw []RawGroup, index *PathIndex) []DuplicateGroup {
	groups := make([]DuplicateGroup, 0, len(raw))
	for _, r := range raw {
		g := DuplicateGroup{
			Checksum:  r.Checksum,
			Uncertain: r.Uncertain,
			Files:     make([]FileInfo, 0, len(r.Files)),
		}
		for _, f := range r.Files {
			g.Files = append(g.Files, FileInfo{
				ID:           f.ID,
				Name:         f.Name,
				Path:         index.Resolve(f.ID),
				Size:         f.Size,
				ModifiedTime: f.ModifiedTime,
				MimeType:     f.MimeType,
			})
		}
		groups = append(groups, g)
	}
	return groups
}
