package store

import (
	"encoding/json"
	"fmt"
	"time"

	"dupdrive/internal/dedupe"
)

// FormatVersion is written to every persisted file.
const FormatVersion = "1.0"

type decisionFile struct {
	Version    string                  `json:"version"`
	UpdatedAt  string                  `json:"updated_at"`
	ScanInfo   map[string]any          `json:"scan_info"`
	Statistics statisticsJSON          `json:"statistics"`
	Decisions  map[string]decisionJSON `json:"decisions"`
}

type statisticsJSON struct {
	Decided       int `json:"decided"`
	Skipped       int `json:"skipped"`
	Pending       int `json:"pending"`
	FilesToDelete int `json:"files_to_delete"`
}

type decisionJSON struct {
	MD5           string   `json:"md5"`
	Action        string   `json:"action"`
	KeepFileID    *string  `json:"keep_file_id"`
	DeleteFileIDs []string `json:"delete_file_ids"`
	DecidedAt     string   `json:"decided_at"`
}

// formatTime renders t the way every persisted file does: UTC with a Z suffix.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts RFC 3339 timestamps with or without fractional seconds.
// Unparseable values yield the zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// EncodeDecisions renders the decision file. Statistics are recomputed
// against totalGroups; map keys are sorted by encoding/json, so equal inputs
// produce equal bytes.
func EncodeDecisions(ds *dedupe.DecisionStore, info dedupe.ScanInfo, totalGroups int, now time.Time) ([]byte, error) {
	st := ds.Stats(totalGroups)
	file := decisionFile{
		Version:   FormatVersion,
		UpdatedAt: formatTime(now),
		ScanInfo:  map[string]any(info),
		Statistics: statisticsJSON{
			Decided:       st.Decided,
			Skipped:       st.Skipped,
			Pending:       st.Pending,
			FilesToDelete: st.FilesToDelete,
		},
		Decisions: make(map[string]decisionJSON, ds.Len()),
	}
	if file.ScanInfo == nil {
		file.ScanInfo = map[string]any{}
	}

	for _, d := range ds.All() {
		dj := decisionJSON{
			MD5:           d.Checksum,
			Action:        string(d.Action),
			DeleteFileIDs: d.DeleteIDs,
			DecidedAt:     formatTime(d.DecidedAt),
		}
		if dj.DeleteFileIDs == nil {
			dj.DeleteFileIDs = []string{}
		}
		if d.Action == dedupe.ActionKeepSpecific {
			keep := d.KeepID
			dj.KeepFileID = &keep
		}
		file.Decisions[d.Checksum] = dj
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding decisions: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeDecisions parses a decision file. The stored statistics are ignored.
// Entries with an unknown action, and keep entries without a kept id or
// listing the kept id for deletion, are dropped and reported in dropped.
func DecodeDecisions(data []byte) (ds *dedupe.DecisionStore, dropped []string, err error) {
	var file decisionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("decoding decisions: %w", err)
	}

	ds = dedupe.NewDecisionStore()
	for key, dj := range file.Decisions {
		checksum := key
		if checksum == "" {
			checksum = dj.MD5
		}

		d := dedupe.Decision{
			Checksum:  checksum,
			Action:    dedupe.Action(dj.Action),
			DeleteIDs: dj.DeleteFileIDs,
			DecidedAt: parseTime(dj.DecidedAt),
		}
		if d.DeleteIDs == nil {
			d.DeleteIDs = []string{}
		}

		switch d.Action {
		case dedupe.ActionSkip:
		case dedupe.ActionKeepSpecific:
			if dj.KeepFileID == nil || *dj.KeepFileID == "" {
				dropped = append(dropped, checksum)
				continue
			}
			d.KeepID = *dj.KeepFileID
			if d.ListsKeptForDeletion() {
				dropped = append(dropped, checksum)
				continue
			}
		default:
			dropped = append(dropped, checksum)
			continue
		}
		ds.Record(d)
	}
	return ds, dropped, nil
}
