// Package scanner runs the read-only dry-run pass: it walks every active
// project, applies the compiled rule set to each candidate file, and streams
// progress, match, and error events to the caller as they happen.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/rulesweep/rulesweep/pkg/diff"
	"github.com/rulesweep/rulesweep/pkg/rule"
	"github.com/rulesweep/rulesweep/pkg/walker"
)

// 📡 EventType discriminates the events on a scan stream.
type EventType string

const (
	EventProgress EventType = "progress"
	EventMatch    EventType = "match"
	EventError    EventType = "error"
)

// 📊 Progress reports one scanned file and the running totals. The scanned
// count is monotonically increasing in stream order even when files are
// processed in parallel.
type Progress struct {
	Scanned     int    `json:"scanned"`
	Total       int    `json:"total"`
	CurrentFile string `json:"current_file"`
	FullPath    string `json:"full_path"`
}

// 🎯 LineMatch is one applied replacement on one line, addressed by the
// line's original 1-based position in the file.
type LineMatch struct {
	RuleID          int64  `json:"rule_id"`
	LineNumber      int    `json:"line_number"`
	OriginalText    string `json:"original_text"`
	ReplacementText string `json:"replacement_text"`
	LineText        string `json:"line_text"` // the full line before any rewrite
}

// 📄 FileMatch is the scan result for one file with at least one match. It is
// ephemeral: created during a scan, consumed by the caller, never persisted.
type FileMatch struct {
	FilePath     string      `json:"file_path"`
	ProjectRoot  string      `json:"project_root"`
	RelativePath string      `json:"relative_path"`
	Extension    string      `json:"extension"`
	Lines        []LineMatch `json:"lines"`
	MatchCount   int         `json:"match_count"`
	Diff         string      `json:"diff"`
}

// ⚠️ ScanError reports a single file that could not be read. It never aborts
// the rest of the scan.
type ScanError struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// 📨 Event is one emission on the scan stream, suitable for line-delimited
// transport.
type Event struct {
	Type     EventType  `json:"type"`
	Progress *Progress  `json:"progress,omitempty"`
	Match    *FileMatch `json:"match,omitempty"`
	Error    *ScanError `json:"error,omitempty"`
}

// 🗂️ Project is the read-only view of a registered source tree.
type Project struct {
	ID       int64
	Name     string
	RootPath string
	IsActive bool
}

// 🔬 Scanner combines the walker and the rule matcher across projects.
type Scanner struct {
	walker  *walker.Walker
	workers int
}

// New creates a Scanner. workers bounds the per-file parallelism.
func New(w *walker.Walker, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{walker: w, workers: workers}
}

// Scan compiles the rules and returns a stream of events. A rule that fails
// to compile aborts here, before any file is opened. The stream is closed
// when the scan finishes or ctx is cancelled; the scan never writes to any
// file.
func (s *Scanner) Scan(ctx context.Context, rules []rule.Rule, projects []Project) (<-chan Event, error) {
	active := rule.ActiveOnly(rules)
	if len(active) == 0 {
		return nil, errors.New("no active rules to scan with")
	}

	set, err := rule.Compile(active)
	if err != nil {
		return nil, err
	}

	roots := activeRoots(ctx, projects)
	if len(roots) == 0 {
		return nil, errors.New("no active projects with an existing root path")
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		s.run(ctx, set, roots, events)
	}()
	return events, nil
}

// candidate pairs a file with the project root it was found under.
type candidate struct {
	path string
	root string
}

func (s *Scanner) run(ctx context.Context, set *rule.Set, roots []Project, events chan<- Event) {
	logger := zerolog.Ctx(ctx)

	files, err := s.enumerate(ctx, set, roots)
	if err != nil {
		logger.Debug().Err(err).Msg("scan enumeration stopped")
		return
	}

	total := len(files)
	var mu sync.Mutex
	scanned := 0

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, f := range files {
		f := f
		g.Go(func() error {
			match, scanErr := s.scanFile(f, set)

			// Result and progress are sent under one lock so the scanned
			// count can never appear to decrease on the stream.
			mu.Lock()
			defer mu.Unlock()

			if scanErr != nil {
				if !emit(Event{Type: EventError, Error: scanErr}) {
					return ctx.Err()
				}
			} else if match != nil {
				if !emit(Event{Type: EventMatch, Match: match}) {
					return ctx.Err()
				}
			}

			scanned++
			progress := &Progress{
				Scanned:     scanned,
				Total:       total,
				CurrentFile: filepath.Base(f.path),
				FullPath:    f.path,
			}
			if !emit(Event{Type: EventProgress, Progress: progress}) {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Debug().Err(err).Msg("scan stopped early")
	}
}

// enumerate walks every project root and collects candidate files, layering
// the union of per-rule extension filters over the walker's global policy.
// Overlapping project roots never yield the same file twice.
func (s *Scanner) enumerate(ctx context.Context, set *rule.Set, roots []Project) ([]candidate, error) {
	union, unbounded := set.Extensions()

	var files []candidate
	seen := make(map[string]struct{})

	for _, project := range roots {
		_, err := s.walker.Walk(ctx, project.RootPath, func(path string) error {
			if !unbounded {
				if _, ok := union[strings.ToLower(filepath.Ext(path))]; !ok {
					return nil
				}
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			files = append(files, candidate{path: path, root: project.RootPath})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// scanFile applies every applicable rule to one file. It returns a FileMatch
// when at least one rule matched, a ScanError when the file could not be
// read, and (nil, nil) for a clean zero-match file.
func (s *Scanner) scanFile(f candidate, set *rule.Set) (*FileMatch, *ScanError) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &ScanError{FilePath: f.path, Message: err.Error()}
	}

	ext := strings.ToLower(filepath.Ext(f.path))
	applicable := set.ForExtension(ext)
	if len(applicable) == 0 {
		return nil, nil
	}

	original := string(content)
	modified, lines := ApplyRules(original, applicable)
	if len(lines) == 0 {
		return nil, nil
	}

	rel, err := filepath.Rel(f.root, f.path)
	if err != nil {
		rel = filepath.Base(f.path)
	}

	rendered, err := diff.Unified(original, modified, filepath.ToSlash(rel))
	if err != nil {
		return nil, &ScanError{FilePath: f.path, Message: err.Error()}
	}

	return &FileMatch{
		FilePath:     f.path,
		ProjectRoot:  f.root,
		RelativePath: filepath.ToSlash(rel),
		Extension:    ext,
		Lines:        lines,
		MatchCount:   len(lines),
		Diff:         rendered,
	}, nil
}

// ApplyRules rewrites content line by line with every applicable rule. Rules
// apply sequentially within a line, so a later rule sees the output of an
// earlier one, but line numbers always refer to the original file. The
// execution engine reuses this so scan previews and commits agree.
func ApplyRules(content string, rules []*rule.Compiled) (string, []LineMatch) {
	lines := strings.Split(content, "\n")
	var records []LineMatch

	for i, line := range lines {
		current := line
		for _, c := range rules {
			next, matches := c.Apply(current)
			for _, m := range matches {
				records = append(records, LineMatch{
					RuleID:          c.Rule.ID,
					LineNumber:      i + 1,
					OriginalText:    m.Text,
					ReplacementText: m.Replacement,
					LineText:        line,
				})
			}
			current = next
		}
		lines[i] = current
	}

	if len(records) == 0 {
		return content, nil
	}
	return strings.Join(lines, "\n"), records
}

func activeRoots(ctx context.Context, projects []Project) []Project {
	logger := zerolog.Ctx(ctx)
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if !p.IsActive {
			continue
		}
		info, err := os.Stat(p.RootPath)
		if err != nil || !info.IsDir() {
			logger.Warn().Str("project", p.Name).Str("root", p.RootPath).Msg("project root is not a directory, skipping")
			continue
		}
		out = append(out, p)
	}
	return out
}
