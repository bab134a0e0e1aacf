package source

import (
	"fmt"
	"io"

	"dupdrive/internal/config"
	"dupdrive/internal/dedupe"
)

// NewListerFromConfig creates a Lister based on the source type.
// Interactive authorization instructions are written to prompt.
func NewListerFromConfig(cfg config.SourceConfig, prompt io.Writer, logger dedupe.Logger) (dedupe.Lister, error) {
	switch cfg.Type {
	case "drive", "":
		if cfg.CredentialsPath == "" {
			return nil, fmt.Errorf("drive source requires credentials_path")
		}
		return NewDriveLister(cfg.CredentialsPath, prompt, logger), nil
	case "dump":
		if cfg.DumpPath == "" {
			return nil, fmt.Errorf("dump source requires dump_path")
		}
		return NewDumpLister(cfg.DumpPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}
