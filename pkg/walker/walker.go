// Package walker enumerates candidate files under a project root, applying
// the extension and folder exclusion policy at traversal time.
package walker

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🚫 alwaysExcludedFolders are skipped in every walk regardless of config.
// They hold version-control metadata or IDE state and can be huge.
var alwaysExcludedFolders = map[string]struct{}{
	".git":        {},
	".svn":        {},
	".hg":         {},
	".vs":         {},
	".idea":       {},
	"__pycache__": {},
}

// 🔧 Options configures a Walker.
type Options struct {
	IncludeExtensions map[string]struct{} // empty means every extension is eligible
	ExcludeExtensions map[string]struct{}
	ExcludeFolders    map[string]struct{} // directory names, lowercased
	IgnorePatterns    []string            // doublestar globs matched against the path relative to root
}

// 🚶 Walker streams every non-excluded regular file under a root.
type Walker struct {
	opts Options
}

// New creates a Walker with the given policy.
func New(opts Options) *Walker {
	return &Walker{opts: opts}
}

// WalkFunc receives each absolute file path exactly once.
type WalkFunc func(path string) error

// Walk descends root in traversal order, calling fn for every regular file
// that passes the policy. Excluded directory names are pruned before descent,
// so a node_modules tree is never entered. Symlinks and unreadable entries
// are skipped and counted as warnings, never treated as fatal. It returns
// the number of warnings.
func (w *Walker) Walk(ctx context.Context, root string, fn WalkFunc) (int, error) {
	logger := zerolog.Ctx(ctx)
	warnings := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			// Permission denied, vanished entry, etc. Skip the subtree.
			warnings++
			logger.Debug().Str("path", path).Err(walkErr).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if w.excludeDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			warnings++
			logger.Debug().Str("path", path).Msg("skipping symlink")
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if !w.includeFile(root, path) {
			return nil
		}

		return fn(path)
	})
	if err != nil {
		return warnings, errors.Errorf("walking %s: %w", root, err)
	}
	return warnings, nil
}

// excludeDir decides per directory name, before descent.
func (w *Walker) excludeDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	lower := strings.ToLower(name)
	if _, ok := alwaysExcludedFolders[lower]; ok {
		return true
	}
	_, ok := w.opts.ExcludeFolders[lower]
	return ok
}

// includeFile applies the extension policy and ignore globs to one file.
func (w *Walker) includeFile(root, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))

	if _, excluded := w.opts.ExcludeExtensions[ext]; excluded {
		return false
	}
	if len(w.opts.IncludeExtensions) > 0 {
		if _, included := w.opts.IncludeExtensions[ext]; !included {
			return false
		}
	}

	if len(w.opts.IgnorePatterns) > 0 {
		rel, err := filepath.Rel(root, path)
		if err == nil {
			rel = filepath.ToSlash(rel)
			for _, pattern := range w.opts.IgnorePatterns {
				if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
					return false
				}
			}
		}
	}

	return true
}
