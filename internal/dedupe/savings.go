package dedupe

import "fmt"

// EstimateSavings returns the bytes reclaimable by keeping one copy of every
// group. Uncertain groups contribute nothing.
func EstimateSavings(groups []DuplicateGroup) int64 {
	var total int64
	for i := range groups {
		total += GroupSavings(&groups[i])
	}
	return total
}

// GroupSavings returns sum(size) - max(size) for a certain group and 0 for an uncertain one.
func GroupSavings(g *DuplicateGroup) int64 {
	if g.Uncertain || len(g.Files) == 0 {
		return 0
	}
	var sum, maxSize int64
	for _, f := range g.Files {
		sum += f.Size
		if f.Size > maxSize {
			maxSize = f.Size
		}
	}
	return sum - maxSize
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with two decimals in 1024 steps, e.g. "1.50 KB".
func FormatSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range sizeUnits {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f PB", size)
}
