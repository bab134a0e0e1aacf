package vault

import (
	"context"
	"fmt"

	"dupdrive/internal/config"
	"dupdrive/internal/dedupe"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
// Artifacts are namespaced by installID.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig, installID string) (dedupe.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		v, err := NewS3Vault(ctx, cfg, installID)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		v, err := NewFileSystemVault(cfg.Name, cfg.FSVaultRoot, installID)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
