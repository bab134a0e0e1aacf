package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultResolveWorkers bounds path resolution when the config leaves it unset.
const DefaultResolveWorkers = 8

// Config represents the main configuration for dupdrive.
type Config struct {
	InstallID  string           `toml:"install_id"`
	BaseDir    string           `toml:"base_dir"`
	OutputDir  string           `toml:"output_dir"`
	LogDir     string           `toml:"log_dir"`
	Source     SourceConfig     `toml:"source"`
	Journal    JournalConfig    `toml:"journal"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Review     ReviewConfig     `toml:"review"`
}

// SourceConfig selects where the file listing comes from.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SourceConfig struct {
	Type string `toml:"type"` // "drive" or "dump"

	// Drive-specific fields (only used when Type == "drive").
	// The OAuth token is cached as token.json next to the credentials file.
	CredentialsPath string `toml:"credentials_path,omitempty"`

	// Dump-specific fields (only used when Type == "dump")
	DumpPath string `toml:"dump_path,omitempty"`
}

// JournalConfig represents configuration for the audit journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// EncryptionConfig holds paths to the age key pair used for published artifacts.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	Armor          bool   `toml:"armor"` // PEM-armor ciphertext so artifacts stay ASCII
}

// VaultConfig represents configuration for an artifact vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Optional S3 overrides; without them the default AWS credential chain is used.
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// ReviewConfig tunes scanning and review.
type ReviewConfig struct {
	ResolveWorkers int `toml:"resolve_workers"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(installID, baseDir string) *Config {
	return &Config{
		InstallID: installID,
		BaseDir:   baseDir,
		OutputDir: filepath.Join(baseDir, "output"),
		LogDir:    filepath.Join(baseDir, "log"),
		Source: SourceConfig{
			Type:            "drive",
			CredentialsPath: filepath.Join(baseDir, "credentials.json"),
		},
		Journal: JournalConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "dupdrive.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "dupdrive.key"),
		},
		Review: ReviewConfig{ResolveWorkers: DefaultResolveWorkers},
	}
}

// ResolveWorkers returns the configured worker bound, or the default when unset.
func (c *Config) ResolveWorkers() int {
	if c.Review.ResolveWorkers <= 0 {
		return DefaultResolveWorkers
	}
	return c.Review.ResolveWorkers
}

// FindVault returns the vault with the given name; an empty name selects the first vault.
func (c *Config) FindVault(name string) (*VaultConfig, bool) {
	for i := range c.Vaults {
		if name == "" || c.Vaults[i].Name == name {
			return &c.Vaults[i], true
		}
	}
	return nil, false
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
