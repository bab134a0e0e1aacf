package dedupe

import (
	"errors"
	"strings"
)

// Drive MIME types that matter for grouping.
const (
	FolderMimeType      = "application/vnd.google-apps.folder"
	workspaceMimePrefix = "application/vnd.google-apps."
)

var (
	ErrMissingID   = errors.New("file record has no id")
	ErrMissingName = errors.New("file record has no name")
)

// FileRecord is one item of the remote store as returned by its metadata listing.
// Records are immutable once fetched; the scan result owns them.
type FileRecord struct {
	ID           string
	Name         string
	Checksum     string // empty when the store supplies none (folders, native documents)
	Size         int64  // bytes; 0 when absent
	HasSize      bool   // whether the store reported a size at all
	ParentID     string // first parent only; empty for root items
	CreatedTime  string
	ModifiedTime string
	MimeType     string
}

// NewFileRecord validates the required fields and collapses multiple parents
// to the first one. Optional fields are set by the caller on the returned value.
func NewFileRecord(id, name string, parents []string) (FileRecord, error) {
	if strings.TrimSpace(id) == "" {
		return FileRecord{}, ErrMissingID
	}
	if name == "" {
		return FileRecord{}, ErrMissingName
	}
	r := FileRecord{ID: id, Name: name}
	if len(parents) > 0 {
		r.ParentID = parents[0]
	}
	return r, nil
}

// IsFolder reports whether the record is a directory/container item.
func (r FileRecord) IsFolder() bool {
	return r.MimeType == FolderMimeType
}

// IsVirtual reports whether the record is a native-format document with no
// binary payload. Such items never carry a checksum.
func (r FileRecord) IsVirtual() bool {
	return !r.IsFolder() && strings.HasPrefix(r.MimeType, workspaceMimePrefix)
}
