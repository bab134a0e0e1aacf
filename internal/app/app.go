package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dupdrive/internal/config"
	"dupdrive/internal/dedupe"
	"dupdrive/internal/encryption"
	"dupdrive/internal/journal"
	"dupdrive/internal/report"
	"dupdrive/internal/source"
	"dupdrive/internal/store"
	"dupdrive/internal/vault"
)

// Published artifact names. Encrypted artifacts carry EncryptedSuffix.
const (
	DecisionsArtifact = "decisions.json"
	PlanArtifact      = "deletion_plan.json"
	JournalArtifact   = "journal.db"
	EncryptedSuffix   = ".age"
)

// ErrEncryptionDisabled is returned by key and decryption operations when encryption type is "none".
var ErrEncryptionDisabled = errors.New("encryption is not configured (set [encryption] type)")

// Options tunes how a DupApp talks to the terminal.
type Options struct {
	// Console receives log lines and authorization prompts in addition to the
	// log file. Nil keeps log lines in the file only; prompts then go to stderr.
	Console io.Writer

	// Parameters is recorded with the operation in the journal.
	Parameters string
}

// DupApp is the application layer between the CLI and the dedupe service.
// It constructs all dependencies from config, exposes high-level operations
// and manages the journal lifecycle on Close.
type DupApp struct {
	cfg       *config.Config
	journal   *journal.SQLiteJournal
	store     *store.FileStore
	lister    dedupe.Lister
	encryptor dedupe.Encryptor
	service   *dedupe.Service
	logger    dedupe.Logger
	op        *Operation
	logFile   *os.File
}

// NewDupApp creates a fully wired DupApp from the given config.
// operation identifies the CLI command being run (e.g. "Scan", "Export").
// The caller must call Close when done.
func NewDupApp(cfg *config.Config, operation string, opts Options) (*DupApp, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, opts.Console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	prompt := opts.Console
	if prompt == nil {
		prompt = os.Stderr
	}
	lister, err := source.NewListerFromConfig(cfg.Source, prompt, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating source: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	j, err := journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := j.CheckMigrations(); err != nil {
		j.Close()
		logFile.Close()
		return nil, fmt.Errorf("journal schema out of date: %w", err)
	}

	st := store.NewFileStore(cfg.OutputDir, logger, dedupe.RealClock{})
	svc := dedupe.NewService(lister, st, j, logger, dedupe.RealClock{}, dedupe.UUIDGenerator{})
	svc.SetResolveWorkers(cfg.ResolveWorkers())

	return &DupApp{
		cfg:       cfg,
		journal:   j,
		store:     st,
		lister:    lister,
		encryptor: enc,
		service:   svc,
		logger:    logger,
		op:        NewOperation(operation, opts.Parameters),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the journal, giving it an auto-increment ID.
// This should only be called for commands that write decisions or artifacts.
func (a *DupApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	jop, err := a.journal.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = jop.ID
	return nil
}

// Config returns the configuration the app was built from.
func (a *DupApp) Config() *config.Config { return a.cfg }

// OutputDir returns the directory holding the decision and scan-results files.
func (a *DupApp) OutputDir() string { return a.cfg.OutputDir }

// Find runs the batch report: fetch, optional path filter, grouping and a
// CSV of every duplicate pair written to csvPath (skipped when empty).
// Scan results are not saved.
func (a *DupApp) Find(ctx context.Context, pathFilter, csvPath string) (dedupe.ScanSummary, error) {
	if err := a.persistOperation(); err != nil {
		return dedupe.ScanSummary{}, err
	}
	scan, summary, err := a.service.FindDuplicates(ctx, pathFilter)
	if err != nil {
		return dedupe.ScanSummary{}, a.op.Fail(err)
	}
	if csvPath != "" {
		if err := writeCSV(csvPath, scan); err != nil {
			return dedupe.ScanSummary{}, a.op.Fail(err)
		}
	}
	return summary, nil
}

// Scan fetches and groups the collection, saves the results for review and
// returns the workspace with previously saved decisions loaded.
func (a *DupApp) Scan(ctx context.Context, pathFilter string) (*dedupe.Workspace, dedupe.ScanSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, dedupe.ScanSummary{}, err
	}
	ws, summary, err := a.service.Scan(ctx, pathFilter)
	if err != nil {
		return nil, dedupe.ScanSummary{}, a.op.Fail(err)
	}
	return ws, summary, nil
}

// Open reloads the saved scan and decisions.
func (a *DupApp) Open() (*dedupe.Workspace, error) {
	return a.service.Open()
}

// Decide applies a review action to the current group of ws and persists the result.
func (a *DupApp) Decide(ws *dedupe.Workspace, action dedupe.ReviewAction, keepID string) (dedupe.Decision, bool, error) {
	if err := a.persistOperation(); err != nil {
		return dedupe.Decision{}, false, err
	}
	d, applied, err := a.service.Decide(ws, action, keepID)
	if err != nil && !errors.Is(err, dedupe.ErrNotGroupMember) && !errors.Is(err, dedupe.ErrNoSecondMember) {
		a.op.Fail(err)
	}
	return d, applied, err
}

// DecideGroup records a decision for one group of the saved scan.
func (a *DupApp) DecideGroup(checksum, keepID string, skip bool) (dedupe.Decision, error) {
	ws, err := a.service.Open()
	if err != nil {
		return dedupe.Decision{}, err
	}
	if err := a.persistOperation(); err != nil {
		return dedupe.Decision{}, err
	}
	d, err := a.service.DecideGroup(ws, checksum, keepID, skip)
	if err != nil {
		return dedupe.Decision{}, a.op.Fail(err)
	}
	return d, nil
}

// Status returns the decision statistics for the saved scan.
func (a *DupApp) Status() (*dedupe.Workspace, dedupe.Statistics, error) {
	ws, err := a.service.Open()
	if err != nil {
		return nil, dedupe.Statistics{}, err
	}
	return ws, ws.Stats(), nil
}

// ExportOptions selects what Export writes.
type ExportOptions struct {
	CSVPath  string // pair report; skipped when empty
	PlanPath string // deletion plan JSON; skipped when empty
	Publish  bool   // upload decisions, plan and journal snapshot to a vault
	Vault    string // vault name; empty selects the first configured vault
}

// ExportResult describes what Export produced.
type ExportResult struct {
	Stats     dedupe.Statistics
	Plan      dedupe.DeletionPlan
	Pairs     int
	Published []string
}

// Export rewrites the decision file and writes the requested reports.
// With Publish set, the artifacts are uploaded, encrypted when encryption is configured.
func (a *DupApp) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	ws, err := a.service.Open()
	if err != nil {
		return nil, err
	}
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	if err := a.service.SaveDecisions(ws); err != nil {
		return nil, a.op.Fail(err)
	}

	res := &ExportResult{
		Stats: ws.Stats(),
		Plan:  ws.DeletionPlan(),
		Pairs: len(dedupe.PairRows(ws.Scan.Groups, ws.Scan.Index)),
	}

	if opts.CSVPath != "" {
		if err := writeCSV(opts.CSVPath, ws.Scan); err != nil {
			return nil, a.op.Fail(err)
		}
	}

	var plan bytes.Buffer
	if err := report.WritePlan(&plan, res.Plan); err != nil {
		return nil, a.op.Fail(err)
	}
	if opts.PlanPath != "" {
		if err := store.WriteFileAtomic(opts.PlanPath, plan.Bytes()); err != nil {
			return nil, a.op.Fail(fmt.Errorf("writing deletion plan: %w", err))
		}
	}

	if opts.Publish {
		published, err := a.publish(ctx, opts.Vault, plan.Bytes())
		if err != nil {
			return nil, a.op.Fail(err)
		}
		res.Published = published
	}

	a.logger.Info("export complete", "decided", res.Stats.Decided, "files_to_delete", len(res.Plan.Files), "published", len(res.Published))
	return res, nil
}

func (a *DupApp) publish(ctx context.Context, vaultName string, plan []byte) ([]string, error) {
	v, err := a.openVault(ctx, vaultName)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("validating vault: %w", err)
	}

	decisions, err := os.ReadFile(a.store.DecisionsPath())
	if err != nil {
		return nil, fmt.Errorf("reading decisions: %w", err)
	}

	snapshot, err := a.journalSnapshot()
	if err != nil {
		return nil, err
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{DecisionsArtifact, decisions},
		{PlanArtifact, plan},
		{JournalArtifact, snapshot},
	}

	var names []string
	for _, art := range artifacts {
		name, data := art.name, art.data
		if a.encryptor != nil {
			var buf bytes.Buffer
			if err := a.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
				return nil, fmt.Errorf("encrypting %s: %w", name, err)
			}
			name, data = name+EncryptedSuffix, buf.Bytes()
		}
		if err := v.PutArtifact(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
			return nil, fmt.Errorf("publishing %s: %w", name, err)
		}
		a.logger.Info("artifact published", "name", name, "size", len(data))
		names = append(names, name)
	}
	return names, nil
}

// journalSnapshot copies the journal to a temp file and returns its bytes.
func (a *DupApp) journalSnapshot() ([]byte, error) {
	dir, err := os.MkdirTemp("", "dupdrive-journal-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir for journal snapshot: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, journal.FileName)
	if err := a.journal.BackupTo(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading journal snapshot: %w", err)
	}
	return data, nil
}

// Fetch downloads a published artifact and writes its plaintext to w.
// Encrypted artifacts are decrypted with the private key unlocked by passphrase.
func (a *DupApp) Fetch(ctx context.Context, vaultName, name string, w io.Writer, passphrase func() (string, error)) error {
	v, err := a.openVault(ctx, vaultName)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := v.GetArtifact(ctx, name, &buf); err != nil {
		return fmt.Errorf("fetching %s: %w", name, err)
	}

	if !strings.HasSuffix(name, EncryptedSuffix) {
		_, err := io.Copy(w, &buf)
		return err
	}

	if a.encryptor == nil {
		return ErrEncryptionDisabled
	}
	pass, err := passphrase()
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := a.encryptor.Unlock(pass)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	if err := dc.Decrypt(&buf, w); err != nil {
		return fmt.Errorf("decrypting %s: %w", name, err)
	}
	return nil
}

func (a *DupApp) openVault(ctx context.Context, name string) (dedupe.Vault, error) {
	vc, ok := a.cfg.FindVault(name)
	if !ok {
		if name == "" {
			return nil, fmt.Errorf("no vaults configured")
		}
		return nil, fmt.Errorf("no vault named %q", name)
	}
	v, err := vault.NewVaultFromConfig(ctx, *vc, a.cfg.InstallID)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	return v, nil
}

// SetupKeys generates the key pair used to encrypt published artifacts.
func (a *DupApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return ErrEncryptionDisabled
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	return nil
}

// Dump writes the full remote listing to path for offline scans.
// Returns the number of records written.
func (a *DupApp) Dump(ctx context.Context, path string) (int, error) {
	if err := a.persistOperation(); err != nil {
		return 0, err
	}
	files, err := a.lister.ListFiles(ctx)
	if err != nil {
		return 0, a.op.Fail(fmt.Errorf("fetching files: %w", err))
	}

	var buf bytes.Buffer
	if err := store.WriteRecords(&buf, files); err != nil {
		return 0, a.op.Fail(err)
	}
	if err := store.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return 0, a.op.Fail(fmt.Errorf("writing dump: %w", err))
	}
	return len(files), nil
}

// Scans returns the most recent journaled scans.
func (a *DupApp) Scans(limit int) ([]*journal.ScanEntry, error) {
	return a.journal.ListScans(limit)
}

// Decisions returns the most recent journaled decisions.
func (a *DupApp) Decisions(limit int) ([]*journal.DecisionEntry, error) {
	return a.journal.ListDecisions(limit)
}

// GroupHistory returns every journaled decision for one group, oldest first.
func (a *DupApp) GroupHistory(checksum string) ([]*journal.DecisionEntry, error) {
	return a.journal.DecisionsForChecksum(checksum)
}

// Operations returns the most recent persisted operations.
func (a *DupApp) Operations(limit int) ([]*journal.Operation, error) {
	return a.journal.ListOperations(limit)
}

// Close finalizes the operation record and closes all resources.
func (a *DupApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.journal.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.journal.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

func writeCSV(path string, scan *dedupe.ScanResult) error {
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, dedupe.PairRows(scan.Groups, scan.Index)); err != nil {
		return err
	}
	if err := store.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
