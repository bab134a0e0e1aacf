package source

import (
	"context"
	"fmt"
	"os"

	"dupdrive/internal/dedupe"
	"dupdrive/internal/store"
)

// DumpLister serves a listing previously saved with `dupdrive dump`.
// It lets the pipeline run offline against a frozen universe.
type DumpLister struct {
	path   string
	logger dedupe.Logger
}

var _ dedupe.Lister = (*DumpLister)(nil)

func NewDumpLister(path string, logger dedupe.Logger) *DumpLister {
	return &DumpLister{path: path, logger: logger}
}

func (l *DumpLister) ListFiles(ctx context.Context) ([]dedupe.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	files, err := store.ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading dump %s: %w", l.path, err)
	}
	l.logger.Info("listing loaded from dump", "path", l.path, "count", len(files))
	return files, nil
}
