package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"dupdrive/internal/dedupe"
)

// Bytes is a file size as the remote store serializes it: a decimal string,
// or absent. Plain JSON numbers are accepted on input.
type Bytes struct {
	N     int64
	Valid bool
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(strconv.FormatInt(b.N, 10))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = Bytes{}
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decoding size: %w", err)
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing size %q: %w", raw, err)
	}
	*b = Bytes{N: n, Valid: true}
	return nil
}

// Record is the store-shaped JSON form of a file record, as listed by the
// remote store and kept in the scan-results file.
type Record struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MD5Checksum  string   `json:"md5Checksum,omitempty"`
	Size         Bytes    `json:"size,omitzero"`
	Parents      []string `json:"parents,omitempty"`
	CreatedTime  string   `json:"createdTime,omitempty"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
	MimeType     string   `json:"mimeType,omitempty"`
}

// ToFileRecord validates r and converts it.
func (r Record) ToFileRecord() (dedupe.FileRecord, error) {
	f, err := dedupe.NewFileRecord(r.ID, r.Name, r.Parents)
	if err != nil {
		return dedupe.FileRecord{}, err
	}
	f.Checksum = r.MD5Checksum
	f.Size = r.Size.N
	f.HasSize = r.Size.Valid
	f.CreatedTime = r.CreatedTime
	f.ModifiedTime = r.ModifiedTime
	f.MimeType = r.MimeType
	return f, nil
}

// RecordFromFile converts a file record to its JSON form.
func RecordFromFile(f dedupe.FileRecord) Record {
	r := Record{
		ID:           f.ID,
		Name:         f.Name,
		MD5Checksum:  f.Checksum,
		Size:         Bytes{N: f.Size, Valid: f.HasSize},
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		MimeType:     f.MimeType,
	}
	if f.ParentID != "" {
		r.Parents = []string{f.ParentID}
	}
	return r
}

// ReadRecords decodes a JSON array of records. Records missing an id or name
// are rejected with the offending position.
func ReadRecords(r io.Reader) ([]dedupe.FileRecord, error) {
	var raw []Record
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}

	files := make([]dedupe.FileRecord, 0, len(raw))
	for i, rec := range raw {
		f, err := rec.ToFileRecord()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// WriteRecords encodes files as an indented JSON array.
func WriteRecords(w io.Writer, files []dedupe.FileRecord) error {
	raw := make([]Record, len(files))
	for i, f := range files {
		raw[i] = RecordFromFile(f)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	return nil
}
