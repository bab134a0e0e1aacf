package testutil

import (
	"context"
	"crypto/md5"
	"encoding/hex"

	"dupdrive/internal/dedupe"
)

// MD5Hex returns the MD5 checksum of data as a lowercase hex string, the
// format the remote store reports.
func MD5Hex(data []byte) string {
	h := md5.Sum(data)
	return hex.EncodeToString(h[:])
}

// Folder returns a folder record.
func Folder(id, name, parent string) dedupe.FileRecord {
	return dedupe.FileRecord{ID: id, Name: name, ParentID: parent, MimeType: dedupe.FolderMimeType}
}

// File returns a binary file record with a reported size.
func File(id, name, parent, checksum string, size int64) dedupe.FileRecord {
	return dedupe.FileRecord{
		ID:           id,
		Name:         name,
		ParentID:     parent,
		Checksum:     checksum,
		Size:         size,
		HasSize:      true,
		ModifiedTime: "2024-01-10T08:00:00.000Z",
		MimeType:     "application/octet-stream",
	}
}

// StaticLister serves a fixed listing, or Err if set.
type StaticLister struct {
	Files []dedupe.FileRecord
	Err   error
	Calls int
}

func (l *StaticLister) ListFiles(ctx context.Context) ([]dedupe.FileRecord, error) {
	l.Calls++
	if l.Err != nil {
		return nil, l.Err
	}
	return append([]dedupe.FileRecord(nil), l.Files...), nil
}

var _ dedupe.Lister = (*StaticLister)(nil)
