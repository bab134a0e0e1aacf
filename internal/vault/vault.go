package vault

import (
	"errors"
	"fmt"
)

// ErrArtifactNotFound is returned when a vault holds no artifact with the requested name.
var ErrArtifactNotFound = errors.New("artifact not found")

// validateName rejects artifact names that could escape the installation's namespace.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' {
			return fmt.Errorf("invalid artifact name %q: must not contain path separators", name)
		}
	}
	return nil
}
