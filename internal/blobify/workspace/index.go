// Package workspace keeps the latest analysis of every .blobify file under
// a root directory.
package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/store"
)

// Entry is the latest known state of one document.
type Entry struct {
	Path        string
	Hash        string
	AnalyzedAt  time.Time
	Diagnostics []domain.Diagnostic
	Contexts    []domain.Context
	// Result is nil for entries restored from the store and not yet
	// re-analyzed in this process.
	Result *analysis.Result
}

// Counts tallies the entry's diagnostics per severity.
func (e *Entry) Counts() analysis.Counts {
	return analysis.CountDiagnostics(e.Diagnostics)
}

// Index is a thread-safe map of path to latest analysis, mirrored to an
// optional Store.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	store   *store.Store
	cfg     *config.Config
	logger  *slog.Logger
}

// NewIndex creates an Index. If a store is provided, previously persisted
// results are loaded so callers see the last known state before any scan.
func NewIndex(cfg *config.Config, s *store.Store, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idx := &Index{
		entries: make(map[string]*Entry),
		store:   s,
		cfg:     cfg,
		logger:  logger,
	}
	if s != nil {
		if err := idx.loadFromStore(); err != nil {
			logger.Warn("failed to load persisted diagnostics", "error", err)
		}
	}
	return idx
}

func (idx *Index) loadFromStore() error {
	docs, err := idx.store.LoadAll()
	if err != nil {
		return err
	}
	for _, d := range docs {
		idx.entries[d.Path] = &Entry{
			Path:        d.Path,
			Hash:        d.Hash,
			AnalyzedAt:  d.AnalyzedAt,
			Diagnostics: d.Diagnostics,
			Contexts:    d.Contexts,
		}
	}
	return nil
}

// Config returns the configuration the index scans with.
func (idx *Index) Config() *config.Config {
	return idx.cfg
}

// Update analyzes content as the new text of path and replaces whatever was
// recorded for it. Unchanged content that was already analyzed in this
// process is not analyzed again.
func (idx *Index) Update(path string, content []byte) *Entry {
	hash := hashContent(content)

	idx.mu.RLock()
	prev, ok := idx.entries[path]
	idx.mu.RUnlock()
	if ok && prev.Hash == hash && prev.Result != nil {
		return prev
	}

	res := analysis.Analyze(string(content))
	e := &Entry{
		Path:        path,
		Hash:        hash,
		AnalyzedAt:  time.Now(),
		Diagnostics: res.Diagnostics,
		Contexts:    res.Graph.Contexts(),
		Result:      res,
	}

	idx.mu.Lock()
	idx.entries[path] = e
	idx.mu.Unlock()

	if idx.store != nil {
		if err := idx.store.SaveDocument(store.Document{
			Path:        e.Path,
			Hash:        e.Hash,
			AnalyzedAt:  e.AnalyzedAt,
			Diagnostics: e.Diagnostics,
			Contexts:    e.Contexts,
		}); err != nil {
			idx.logger.Warn("failed to persist diagnostics", "path", path, "error", err)
		}
	}
	return e
}

// UpdateFile reads path from disk and updates it.
func (idx *Index) UpdateFile(path string) (*Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return idx.Update(path, content), nil
}

// Remove forgets path.
func (idx *Index) Remove(path string) {
	idx.mu.Lock()
	_, ok := idx.entries[path]
	delete(idx.entries, path)
	idx.mu.Unlock()

	if ok && idx.store != nil {
		if err := idx.store.DeleteDocument(path); err != nil {
			idx.logger.Warn("failed to delete persisted diagnostics", "path", path, "error", err)
		}
	}
}

// Get returns the entry for path.
func (idx *Index) Get(path string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[path]
	return e, ok
}

// Entries returns every entry sorted by path.
func (idx *Index) Entries() []*Entry {
	idx.mu.RLock()
	out := make([]*Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Totals sums severity counts over all entries.
func (idx *Index) Totals() analysis.Counts {
	var total analysis.Counts
	for _, e := range idx.Entries() {
		total = total.Add(e.Counts())
	}
	return total
}

// Files lists the documents under root that the configuration selects,
// skipping excluded directories. A root that is itself a file is returned
// as is.
func (idx *Index) Files(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && idx.cfg.IsExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if idx.cfg.MatchesExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Scan analyzes every selected file under root with at most
// Config.Concurrency files in flight, then drops entries under root whose
// files no longer exist. It returns the number of files analyzed.
func (idx *Index) Scan(ctx context.Context, root string) (int, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return 0, err
	}
	files, err := idx.Files(root)
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", root, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.cfg.Concurrency)
	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := idx.UpdateFile(path); err != nil {
				idx.logger.Warn("skipping unreadable file", "path", path, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	idx.prune(root, files)
	idx.logger.Debug("workspace scanned", "root", root, "files", len(files))
	return len(files), nil
}

func (idx *Index) prune(root string, seen []string) {
	keep := make(map[string]bool, len(seen))
	for _, p := range seen {
		keep[p] = true
	}
	prefix := root + string(filepath.Separator)
	for _, e := range idx.Entries() {
		if strings.HasPrefix(e.Path, prefix) && !keep[e.Path] {
			idx.Remove(e.Path)
		}
	}
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
