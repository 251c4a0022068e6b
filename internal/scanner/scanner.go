package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/symindex/internal/logging"
	"github.com/dshills/symindex/internal/parser"
	"github.com/dshills/symindex/pkg/types"
)

const logTopic = "scanner"

// Config contains configuration for the scanner
type Config struct {
	Workers          int  // Number of concurrent parse workers (default: runtime.NumCPU())
	RespectGitignore bool // Skip files matched by the root .gitignore (default: false)
}

// Request describes one scan
type Request struct {
	Project types.Project
	Prior   *types.ProjectSnapshot // nil on the first scan
}

// Statistics contains statistics about one scan
type Statistics struct {
	FilesSeen   int
	FilesParsed int
	FilesReused int
	FilesFailed int
	ItemsFound  int
	Duration    time.Duration
}

// Result is the output of a completed scan
type Result struct {
	Snapshot *types.ProjectSnapshot
	Stats    Statistics
}

// Scanner builds project snapshots
type Scanner struct {
	table  *parser.Table
	logger *logging.Logger
	config Config
}

// New creates a new Scanner instance
func New(table *parser.Table, logger *logging.Logger, config *Config) *Scanner {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scanner{table: table, logger: logger, config: cfg}
}

// fileEntry is one file found by the walk
type fileEntry struct {
	path    string
	modTime time.Time
	cached  *types.FileSnapshot
}

// Scan walks the project and returns a new snapshot
func (s *Scanner) Scan(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	entries, err := s.discoverFiles(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed, reused, failed atomic.Int32
	results := make([]*types.FileSnapshot, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, entry := range entries {
		if entry.cached != nil {
			results[i] = entry.cached
			reused.Add(1)
			continue
		}

		g.Go(func() error {
			items, err := s.table.Parse(gctx, entry.path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warnf(logTopic, "Failed to process %s when trying to parse definitions: %v", entry.path, err)
				failed.Add(1)
				return nil
			}
			results[i] = &types.FileSnapshot{Path: entry.path, ModTime: entry.modTime, Items: items}
			parsed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]types.FileSnapshot, 0, len(results))
	for _, f := range results {
		if f != nil {
			files = append(files, *f)
		}
	}
	snapshot := types.NewProjectSnapshot(files)

	return &Result{
		Snapshot: snapshot,
		Stats: Statistics{
			FilesSeen:   len(entries),
			FilesParsed: int(parsed.Load()),
			FilesReused: int(reused.Load()),
			FilesFailed: int(failed.Load()),
			ItemsFound:  snapshot.ItemCount(),
			Duration:    time.Since(startTime),
		},
	}, nil
}

// discoverFiles enumerates the root and extra directories in order and
// decides for each file whether the prior snapshot can be reused.
func (s *Scanner) discoverFiles(ctx context.Context, req Request) ([]fileEntry, error) {
	var gi *ignore.GitIgnore
	if s.config.RespectGitignore {
		gi = loadGitignore(req.Project.Root)
	}

	var entries []fileEntry
	seen := make(map[string]struct{})

	for _, dir := range req.Project.ScanDirs() {
		dir = filepath.Clean(dir)
		err := types.WalkScanDir(dir, func(path, realPath string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				s.logger.Warnf(logTopic, "Failed to enumerate %s when trying to parse definitions: %v", path, err)
				return nil
			}

			if path != dir && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if gi != nil && path != dir && isIgnored(gi, req.Project.Root, path, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			// Overlapping scan dirs can reach one file under several paths
			if _, dup := seen[realPath]; dup {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				s.logger.Warnf(logTopic, "Failed to process %s when trying to parse definitions: %v", path, err)
				return nil
			}
			seen[realPath] = struct{}{}

			entry := fileEntry{path: path, modTime: info.ModTime()}
			if prior, ok := req.Prior.Lookup(path); ok && prior.IsCurrent(entry.modTime) {
				entry.cached = &prior
			}
			entries = append(entries, entry)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// loadGitignore compiles the root .gitignore, or returns nil if there is none
func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

// isIgnored matches path against the root .gitignore; paths outside the
// root are never ignored.
func isIgnored(gi *ignore.GitIgnore, root, path string, isDir bool) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	return gi.MatchesPath(rel)
}
