package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"dupdrive/internal/dedupe"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for testing and is safe for concurrent use.
type MemoryVault struct {
	name      string
	artifacts map[string][]byte
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		artifacts: make(map[string][]byte),
	}
}

// PutArtifact stores an artifact, replacing any previous version.
func (m *MemoryVault) PutArtifact(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[name] = data
	return nil
}

// GetArtifact writes the named artifact to w.
func (m *MemoryVault) GetArtifact(ctx context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.artifacts[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements dedupe.Vault interface
var _ dedupe.Vault = (*MemoryVault)(nil)
