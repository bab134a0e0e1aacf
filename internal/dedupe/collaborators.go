package dedupe

import (
	"context"
	"io"
	"time"
)

// Lister is the remote-store collaborator. ListFiles returns the complete
// listing of the collection, already retried to completion, or an error.
// A partial listing is never returned.
type Lister interface {
	ListFiles(ctx context.Context) ([]FileRecord, error)
}

// ScanResult is the immutable outcome of one scan. Only a new scan replaces it.
type ScanResult struct {
	ID           string
	ScannedAt    time.Time
	ScanPath     string // path prefix the scan was restricted to, if any
	TotalFiles   int    // size of the fetched universe
	ScannedFiles int    // files examined after the path filter
	Skipped      int    // virtual items excluded from grouping
	Groups       []DuplicateGroup
	Index        *PathIndex
}

// ScanInfo is free-form metadata about the originating scan, stored alongside decisions.
type ScanInfo map[string]any

// ScanStore persists scan results and decisions between sessions.
// Loads never fail: a missing or unreadable file is a first-run condition.
// Saves return their error so a decision is never lost silently.
type ScanStore interface {
	// SaveScan writes the scan results.
	SaveScan(scan *ScanResult) error

	// LoadScan returns the saved scan, or nil if none is usable.
	LoadScan() *ScanResult

	// SaveDecisions writes every decision with statistics recomputed against totalGroups.
	SaveDecisions(decisions *DecisionStore, info ScanInfo, totalGroups int) error

	// LoadDecisions returns the saved decisions, or an empty store.
	LoadDecisions() *DecisionStore
}

// Journal keeps an append-only audit trail of scans and decisions.
type Journal interface {
	// RecordScan stores the headline of a completed scan.
	RecordScan(scan *ScanResult, summary ScanSummary) error

	// RecordDecision appends a decision made against the given scan.
	RecordDecision(scanID string, d Decision) error
}

// Vault stores published artifacts for execution elsewhere.
type Vault interface {
	// PutArtifact stores size bytes read from r under name, replacing any previous artifact.
	PutArtifact(ctx context.Context, name string, r io.Reader, size int64) error

	// GetArtifact writes the named artifact to w.
	GetArtifact(ctx context.Context, name string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}

// Encryptor protects published artifacts. Encryption uses the public key
// only; decryption needs the passphrase that unlocks the private key.
type Encryptor interface {
	// Setup performs one-time key generation, encrypting the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context for decrypting artifacts.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
