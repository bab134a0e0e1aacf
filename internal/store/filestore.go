package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dupdrive/internal/dedupe"
)

// File names inside the output directory.
const (
	DecisionsFile   = "decisions.json"
	ScanResultsFile = "scan_results.json"
)

// FileStore keeps the decision file and the scan-results file in one directory:
//
//	<dir>/
//	  decisions.json
//	  scan_results.json
type FileStore struct {
	dir    string
	logger dedupe.Logger
	clock  dedupe.Clock
}

var _ dedupe.ScanStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string, logger dedupe.Logger, clock dedupe.Clock) *FileStore {
	return &FileStore{dir: dir, logger: logger, clock: clock}
}

// DecisionsPath returns the location of the decision file.
func (s *FileStore) DecisionsPath() string { return filepath.Join(s.dir, DecisionsFile) }

// ScanResultsPath returns the location of the scan-results file.
func (s *FileStore) ScanResultsPath() string { return filepath.Join(s.dir, ScanResultsFile) }

// SaveScan writes the scan-results file atomically.
func (s *FileStore) SaveScan(scan *dedupe.ScanResult) error {
	data, err := EncodeScan(scan)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.ScanResultsPath(), data); err != nil {
		return fmt.Errorf("writing scan results: %w", err)
	}
	s.logger.Info("scan results saved", "path", s.ScanResultsPath(), "groups", len(scan.Groups))
	return nil
}

// LoadScan returns the saved scan, or nil when the file is missing or malformed.
func (s *FileStore) LoadScan() *dedupe.ScanResult {
	data, err := os.ReadFile(s.ScanResultsPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading scan results failed", "path", s.ScanResultsPath(), "error", err)
		}
		return nil
	}

	scan, dropped, err := DecodeScan(data)
	if err != nil {
		s.logger.Warn("scan results unreadable", "path", s.ScanResultsPath(), "error", err)
		return nil
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed scan entries", "count", dropped)
	}
	return scan
}

// SaveDecisions writes the decision file atomically. Errors are returned, never swallowed.
func (s *FileStore) SaveDecisions(ds *dedupe.DecisionStore, info dedupe.ScanInfo, totalGroups int) error {
	data, err := EncodeDecisions(ds, info, totalGroups, s.clock.Now())
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.DecisionsPath(), data); err != nil {
		return fmt.Errorf("writing decisions: %w", err)
	}
	return nil
}

// LoadDecisions returns the saved decisions, or an empty store when the file
// is missing or malformed.
func (s *FileStore) LoadDecisions() *dedupe.DecisionStore {
	data, err := os.ReadFile(s.DecisionsPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading decisions failed", "path", s.DecisionsPath(), "error", err)
		}
		return dedupe.NewDecisionStore()
	}

	ds, dropped, err := DecodeDecisions(data)
	if err != nil {
		s.logger.Warn("decisions unreadable, starting empty", "path", s.DecisionsPath(), "error", err)
		return dedupe.NewDecisionStore()
	}
	for _, checksum := range dropped {
		s.logger.Warn("dropped malformed decision", "checksum", checksum)
	}
	return ds
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory and a rename, creating the directory if needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
