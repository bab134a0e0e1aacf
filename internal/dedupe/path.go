package dedupe

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PathIndex resolves absolute paths from a flat id -> record universe with
// parent-id references. Resolved paths are memoized; the memo is safe for
// concurrent use.
//
// Resolution never loops: a parent that is missing from the universe, or a
// parent chain that revisits an id, degrades to an unrooted name.
type PathIndex struct {
	files map[string]FileRecord

	mu    sync.RWMutex
	cache map[string]string
}

// NewPathIndex builds an index over files. Later records win on duplicate ids.
func NewPathIndex(files []FileRecord) *PathIndex {
	m := make(map[string]FileRecord, len(files))
	for _, f := range files {
		m[f.ID] = f
	}
	return NewPathIndexFromMap(m)
}

// NewPathIndexFromMap wraps an existing universe. The map must not be modified afterwards.
func NewPathIndexFromMap(files map[string]FileRecord) *PathIndex {
	return &PathIndex{
		files: files,
		cache: make(map[string]string),
	}
}

// Lookup returns the record for id.
func (x *PathIndex) Lookup(id string) (FileRecord, bool) {
	f, ok := x.files[id]
	return f, ok
}

// Len returns the size of the universe.
func (x *PathIndex) Len() int {
	return len(x.files)
}

// Files returns the universe. Callers must treat it as read-only.
func (x *PathIndex) Files() map[string]FileRecord {
	return x.files
}

func (x *PathIndex) cached(id string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	p, ok := x.cache[id]
	return p, ok
}

func (x *PathIndex) memoize(id, path string) {
	x.mu.Lock()
	x.cache[id] = path
	x.mu.Unlock()
}

// Resolve returns the absolute path of id, or "" if id is not in the universe.
func (x *PathIndex) Resolve(id string) string {
	if p, ok := x.cached(id); ok {
		return p
	}

	// Walk up the parent chain until we hit a memoized path, a root, a missing
	// parent or an id already on this walk. chain holds the ids still to name.
	var chain []FileRecord
	visiting := make(map[string]struct{})
	base := ""
	cur := id
	for {
		if p, ok := x.cached(cur); ok {
			base = p
			break
		}
		rec, ok := x.files[cur]
		if !ok {
			x.memoize(cur, "")
			break
		}
		if _, seen := visiting[cur]; seen {
			break
		}
		visiting[cur] = struct{}{}
		chain = append(chain, rec)
		if rec.ParentID == "" {
			break
		}
		cur = rec.ParentID
	}

	if len(chain) == 0 {
		return base
	}

	path := base
	for i := len(chain) - 1; i >= 0; i-- {
		// An empty parent path is treated as the root.
		path = path + "/" + chain[i].Name
		x.memoize(chain[i].ID, path)
	}
	return path
}

// ResolveAll resolves ids in parallel with at most workers goroutines and
// returns id -> path. workers <= 0 means one goroutine per id.
func (x *PathIndex) ResolveAll(ctx context.Context, ids []string, workers int) (map[string]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			x.Resolve(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = x.Resolve(id)
	}
	return out, nil
}

// FilterByPath keeps the files whose resolved path equals target or lies below it.
// A trailing separator on target is ignored.
func (x *PathIndex) FilterByPath(files []FileRecord, target string) []FileRecord {
	target = strings.TrimRight(target, "/")
	var out []FileRecord
	for _, f := range files {
		p := x.Resolve(f.ID)
		if p == target || strings.HasPrefix(p, target+"/") {
			out = append(out, f)
		}
	}
	return out
}
