package encryption

import (
	"fmt"

	"dupdrive/internal/config"
	"dupdrive/internal/dedupe"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (or unset) returns a nil Encryptor: artifacts are published as plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (dedupe.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
