package store

import (
	"encoding/json"
	"fmt"

	"dupdrive/internal/dedupe"
)

type scanFile struct {
	Version         string            `json:"version"`
	ScanID          string            `json:"scan_id,omitempty"`
	ScannedAt       string            `json:"scanned_at"`
	ScanPath        *string           `json:"scan_path"`
	TotalFiles      int               `json:"total_files"`
	ScannedFiles    int               `json:"scanned_files,omitempty"`
	Skipped         int               `json:"skipped,omitempty"`
	DuplicateGroups []groupJSON       `json:"duplicate_groups"`
	FilesByID       map[string]Record `json:"files_by_id"`
}

type groupJSON struct {
	MD5       string         `json:"md5"`
	Uncertain bool           `json:"uncertain"`
	Files     []fileInfoJSON `json:"files"`
}

type fileInfoJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	MimeType     string `json:"mime_type"`
}

// EncodeScan renders the scan-results file, including the full universe so
// paths can be regenerated on reload.
func EncodeScan(scan *dedupe.ScanResult) ([]byte, error) {
	file := scanFile{
		Version:         FormatVersion,
		ScanID:          scan.ID,
		ScannedAt:       formatTime(scan.ScannedAt),
		TotalFiles:      scan.TotalFiles,
		ScannedFiles:    scan.ScannedFiles,
		Skipped:         scan.Skipped,
		DuplicateGroups: make([]groupJSON, 0, len(scan.Groups)),
		FilesByID:       make(map[string]Record),
	}
	if scan.ScanPath != "" {
		p := scan.ScanPath
		file.ScanPath = &p
	}

	for _, g := range scan.Groups {
		gj := groupJSON{MD5: g.Checksum, Uncertain: g.Uncertain, Files: make([]fileInfoJSON, 0, len(g.Files))}
		for _, f := range g.Files {
			gj.Files = append(gj.Files, fileInfoJSON{
				ID:           f.ID,
				Name:         f.Name,
				Path:         f.Path,
				Size:         f.Size,
				ModifiedTime: f.ModifiedTime,
				MimeType:     f.MimeType,
			})
		}
		file.DuplicateGroups = append(file.DuplicateGroups, gj)
	}

	if scan.Index != nil {
		for id, f := range scan.Index.Files() {
			file.FilesByID[id] = RecordFromFile(f)
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding scan results: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeScan parses a scan-results file. The universe gets a fresh path memo.
// Groups with fewer than two members and universe records without an id or
// name are dropped and counted in dropped.
func DecodeScan(data []byte) (scan *dedupe.ScanResult, dropped int, err error) {
	var file scanFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("decoding scan results: %w", err)
	}

	universe := make(map[string]dedupe.FileRecord, len(file.FilesByID))
	for id, rec := range file.FilesByID {
		if rec.ID == "" {
			rec.ID = id
		}
		f, err := rec.ToFileRecord()
		if err != nil {
			dropped++
			continue
		}
		universe[f.ID] = f
	}

	groups := make([]dedupe.DuplicateGroup, 0, len(file.DuplicateGroups))
	for _, gj := range file.DuplicateGroups {
		if gj.MD5 == "" || len(gj.Files) < 2 {
			dropped++
			continue
		}
		g := dedupe.DuplicateGroup{Checksum: gj.MD5, Uncertain: gj.Uncertain, Files: make([]dedupe.FileInfo, 0, len(gj.Files))}
		for _, fj := range gj.Files {
			g.Files = append(g.Files, dedupe.FileInfo{
				ID:           fj.ID,
				Name:         fj.Name,
				Path:         fj.Path,
				Size:         fj.Size,
				ModifiedTime: fj.ModifiedTime,
				MimeType:     fj.MimeType,
			})
		}
		groups = append(groups, g)
	}

	scan = &dedupe.ScanResult{
		ID:           file.ScanID,
		ScannedAt:    parseTime(file.ScannedAt),
		TotalFiles:   file.TotalFiles,
		ScannedFiles: file.ScannedFiles,
		Skipped:      file.Skipped,
		Groups:       groups,
		Index:        dedupe.NewPathIndexFromMap(universe),
	}
	if file.ScanPath != nil {
		scan.ScanPath = *file.ScanPath
	}
	if scan.ScannedFiles == 0 {
		scan.ScannedFiles = scan.TotalFiles
	}
	return scan, dropped, nil
}
