package dedupe

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoScan is returned when there are no saved scan results to review.
var ErrNoScan = errors.New("no scan results: run a scan first")

// ErrUnknownGroup is returned when a checksum names no group of the scan.
var ErrUnknownGroup = errors.New("no duplicate group with that checksum")

// Workspace is everything one review needs: the scan, the decisions made so
// far and the session navigating them. It is created by Scan or Open.
type Workspace struct {
	Scan      *ScanResult
	Decisions *DecisionStore
	Session   *ReviewSession
}

// Stats returns the decision statistics for the workspace's scan.
func (w *Workspace) Stats() Statistics {
	return w.Decisions.Stats(len(w.Scan.Groups))
}

// DeletionPlan builds the deletion plan of the workspace's decisions against its scan.
func (w *Workspace) DeletionPlan() DeletionPlan {
	return BuildDeletionPlan(w.Decisions.All(), w.Scan.Groups, w.Scan.Index)
}

// Group returns the group with the given checksum.
func (w *Workspace) Group(checksum string) (*DuplicateGroup, bool) {
	for i := range w.Scan.Groups {
		if w.Scan.Groups[i].Checksum == checksum {
			return &w.Scan.Groups[i], true
		}
	}
	return nil, false
}

// Service orchestrates scanning, reviewing and persisting decisions.
type Service struct {
	lister         Lister
	store          ScanStore
	journal        Journal
	logger         Logger
	clock          Clock
	idgen          IDGenerator
	resolveWorkers int
}

// NewService creates a Service with the provided dependencies.
func NewService(lister Lister, store ScanStore, journal Journal, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		lister:         lister,
		store:          store,
		journal:        journal,
		logger:         logger,
		clock:          clock,
		idgen:          idgen,
		resolveWorkers: 8,
	}
}

// SetResolveWorkers bounds the goroutines used to resolve group member paths.
func (s *Service) SetResolveWorkers(n int) {
	s.resolveWorkers = n
}

// FindDuplicates fetches the collection, restricts it to pathFilter (if any)
// and groups it. Nothing is persisted.
func (s *Service) FindDuplicates(ctx context.Context, pathFilter string) (*ScanResult, ScanSummary, error) {
	files, err := s.lister.ListFiles(ctx)
	if err != nil {
		return nil, ScanSummary{}, fmt.Errorf("fetching files: %w", err)
	}
	s.logger.Info("files fetched", "count", len(files))

	index := NewPathIndex(files)
	s.logResolutionGaps(index)

	scanFiles := files
	pathFilter = strings.TrimSpace(pathFilter)
	if pathFilter != "" {
		scanFiles = index.FilterByPath(files, pathFilter)
		s.logger.Info("filtered to path", "path", pathFilter, "count", len(scanFiles))
	}

	raw, skipped := FindDuplicates(scanFiles)

	var memberIDs []string
	for _, g := range raw {
		for _, f := range g.Files {
			memberIDs = append(memberIDs, f.ID)
		}
	}
	if _, err := index.ResolveAll(ctx, memberIDs, s.resolveWorkers); err != nil {
		return nil, ScanSummary{}, fmt.Errorf("resolving paths: %w", err)
	}
	groups := BuildGroups(raw, index)

	for i := range groups {
		if groups[i].Uncertain {
			s.logger.Warn("uncertain group: same checksum, different size", "checksum", groups[i].Checksum, "files", len(groups[i].Files))
		}
	}

	scan := &ScanResult{
		ID:           s.idgen.New(),
		ScannedAt:    s.clock.Now().UTC(),
		ScanPath:     pathFilter,
		TotalFiles:   len(files),
		ScannedFiles: len(scanFiles),
		Skipped:      skipped,
		Groups:       groups,
		Index:        index,
	}
	summary := Summarize(groups, len(scanFiles), skipped)
	s.logger.Info("duplicates found", "groups", summary.Groups, "files", summary.Files, "uncertain", summary.Uncertain, "skipped", skipped)
	return scan, summary, nil
}

// logResolutionGaps reports records whose parent is not part of the universe.
// Their paths degrade to unrooted names.
func (s *Service) logResolutionGaps(index *PathIndex) {
	gaps := 0
	for _, f := range index.Files() {
		if f.ParentID == "" {
			continue
		}
		if _, ok := index.Lookup(f.ParentID); !ok {
			gaps++
		}
	}
	if gaps > 0 {
		s.logger.Debug("parents missing from listing", "count", gaps)
	}
}

// Scan runs a full scan, saves its results for later sessions, loads any
// existing decisions and returns a workspace in the initial review state.
func (s *Service) Scan(ctx context.Context, pathFilter string) (*Workspace, ScanSummary, error) {
	scan, summary, err := s.FindDuplicates(ctx, pathFilter)
	if err != nil {
		return nil, ScanSummary{}, err
	}

	if err := s.store.SaveScan(scan); err != nil {
		return nil, ScanSummary{}, fmt.Errorf("saving scan results: %w", err)
	}

	if err := s.journal.RecordScan(scan, summary); err != nil {
		return nil, ScanSummary{}, fmt.Errorf("journaling scan: %w", err)
	}

	ws := s.newWorkspace(scan)
	s.logger.Info("scan complete", "scan_id", scan.ID, "decisions", ws.Decisions.Len())
	return ws, summary, nil
}

// Open reloads the saved scan and decisions. The session starts exactly as
// after a fresh scan.
func (s *Service) Open() (*Workspace, error) {
	scan := s.store.LoadScan()
	if scan == nil {
		return nil, ErrNoScan
	}
	ws := s.newWorkspace(scan)
	s.logger.Debug("scan reloaded", "scan_id", scan.ID, "groups", len(scan.Groups), "decisions", ws.Decisions.Len())
	return ws, nil
}

func (s *Service) newWorkspace(scan *ScanResult) *Workspace {
	decisions := s.store.LoadDecisions()
	return &Workspace{
		Scan:      scan,
		Decisions: decisions,
		Session:   NewReviewSession(scan.Groups, decisions, s.clock),
	}
}

// Decide applies action to the session's current group and persists the
// decision set. applied is false when there was nothing to decide.
func (s *Service) Decide(ws *Workspace, action ReviewAction, keepID string) (Decision, bool, error) {
	d, applied, err := ws.Session.Decide(action, keepID)
	if err != nil || !applied {
		return d, applied, err
	}
	if err := s.persist(ws, d); err != nil {
		return d, true, err
	}
	return d, true, nil
}

// DecideGroup records a decision for the group with the given checksum
// without going through the session. With skip set, keepID is ignored.
func (s *Service) DecideGroup(ws *Workspace, checksum, keepID string, skip bool) (Decision, error) {
	g, ok := ws.Group(checksum)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownGroup, checksum)
	}

	now := s.clock.Now().UTC()
	var d Decision
	if skip {
		d = NewSkipDecision(g.Checksum, now)
	} else {
		var err error
		d, err = NewKeepDecision(g, keepID, now)
		if err != nil {
			return Decision{}, err
		}
	}

	ws.Decisions.Record(d)
	ws.Session.ApplyFilter()
	if err := s.persist(ws, d); err != nil {
		return d, err
	}
	return d, nil
}

// SaveDecisions writes the current decision set with the scan's metadata.
func (s *Service) SaveDecisions(ws *Workspace) error {
	if err := s.store.SaveDecisions(ws.Decisions, ScanInfoFor(ws.Scan), len(ws.Scan.Groups)); err != nil {
		return fmt.Errorf("saving decisions: %w", err)
	}
	return nil
}

func (s *Service) persist(ws *Workspace, d Decision) error {
	if err := s.SaveDecisions(ws); err != nil {
		return err
	}
	if err := s.journal.RecordDecision(ws.Scan.ID, d); err != nil {
		return fmt.Errorf("journaling decision: %w", err)
	}
	s.logger.Info("decision recorded", "checksum", d.Checksum, "action", string(d.Action), "delete", len(d.DeleteIDs))
	return nil
}

// ScanInfoFor returns the metadata stored with decisions for scan.
func ScanInfoFor(scan *ScanResult) ScanInfo {
	info := ScanInfo{
		"scan_id":          scan.ID,
		"total_files":      scan.TotalFiles,
		"duplicate_groups": len(scan.Groups),
	}
	if scan.ScanPath != "" {
		info["scan_path"] = scan.ScanPath
	}
	return info
}
