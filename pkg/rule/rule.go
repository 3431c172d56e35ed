// Package rule implements replacement rule compilation and per-line matching.
package rule

import (
	"fmt"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📐 Rule is a read-only snapshot of one find/replace definition. It is taken
// at the start of a scan or execution and never changes mid-operation.
type Rule struct {
	ID               int64
	Name             string
	Description      string
	SearchPattern    string
	ReplacementText  string
	IsRegex          bool
	CaseSensitive    bool
	TargetExtensions string // comma-separated, empty means all extensions
	IsActive         bool
}

// 🎯 Match is one occurrence of a rule on a single line of text.
type Match struct {
	Start       int    // byte offset within the line
	End         int    // byte offset one past the match
	Text        string // the matched text as it appears in the line
	Replacement string // what the match becomes, groups already expanded
}

// ❌ CompileError reports a rule whose pattern failed to compile. It is
// returned before any file I/O happens, so a broken rule can never leave a
// scan half-run.
type CompileError struct {
	RuleID  int64
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("rule %d: compiling pattern %q: %v", e.RuleID, e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// 🔧 Compiled is a rule with its pattern compiled once for the whole
// operation rather than once per line.
type Compiled struct {
	Rule Rule

	re   *regexp.Regexp      // nil only for case-sensitive plain rules
	exts map[string]struct{} // nil means all extensions
}

// 📚 Set holds the compiled form of every rule in an operation.
type Set struct {
	rules []*Compiled
}

// Compile compiles every rule up front. Any invalid pattern aborts the whole
// set with a *CompileError so the caller can refuse to start.
func Compile(rules []Rule) (*Set, error) {
	set := &Set{rules: make([]*Compiled, 0, len(rules))}
	for _, r := range rules {
		c := &Compiled{Rule: r}

		switch {
		case r.IsRegex:
			pattern := r.SearchPattern
			if !r.CaseSensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, &CompileError{RuleID: r.ID, Pattern: r.SearchPattern, Err: err}
			}
			c.re = re
		case !r.CaseSensitive:
			// Plain case-insensitive search reuses the regexp engine with a
			// quoted pattern, matching byte offsets exactly.
			re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(r.SearchPattern))
			if err != nil {
				return nil, &CompileError{RuleID: r.ID, Pattern: r.SearchPattern, Err: err}
			}
			c.re = re
		}

		if r.TargetExtensions != "" {
			c.exts = NormalizeExts(r.TargetExtensions)
		}

		set.rules = append(set.rules, c)
	}
	return set, nil
}

// Rules returns the compiled rules in their original order.
func (s *Set) Rules() []*Compiled {
	return s.rules
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.rules)
}

// ForExtension returns the rules that apply to a file with the given
// extension (leading dot optional, case-insensitive).
func (s *Set) ForExtension(ext string) []*Compiled {
	out := make([]*Compiled, 0, len(s.rules))
	for _, c := range s.rules {
		if c.AppliesTo(ext) {
			out = append(out, c)
		}
	}
	return out
}

// Extensions returns the union of every rule's target extensions. The second
// return is true when at least one rule has no filter, meaning the union is
// unbounded and extension pre-filtering must fall back to the global policy.
func (s *Set) Extensions() (map[string]struct{}, bool) {
	union := make(map[string]struct{})
	unbounded := false
	for _, c := range s.rules {
		if c.exts == nil {
			unbounded = true
			continue
		}
		for ext := range c.exts {
			union[ext] = struct{}{}
		}
	}
	return union, unbounded
}

// AppliesTo reports whether the rule targets files with the given extension.
func (c *Compiled) AppliesTo(ext string) bool {
	if c.exts == nil {
		return true
	}
	_, ok := c.exts[NormalizeExt(ext)]
	return ok
}

// FindMatches returns every non-overlapping occurrence of the rule on one
// line, left to right. After a match the search resumes past its end.
func (c *Compiled) FindMatches(line string) []Match {
	if c.Rule.SearchPattern == "" {
		return nil
	}

	if c.re != nil {
		return c.findRegexpMatches(line)
	}

	// Case-sensitive plain substring search.
	var matches []Match
	needle := c.Rule.SearchPattern
	start := 0
	for {
		pos := strings.Index(line[start:], needle)
		if pos < 0 {
			break
		}
		pos += start
		end := pos + len(needle)
		matches = append(matches, Match{
			Start:       pos,
			End:         end,
			Text:        line[pos:end],
			Replacement: c.Rule.ReplacementText,
		})
		start = end
	}
	return matches
}

func (c *Compiled) findRegexpMatches(line string) []Match {
	locs := c.re.FindAllStringSubmatchIndex(line, -1)
	if locs == nil {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		m := Match{
			Start: loc[0],
			End:   loc[1],
			Text:  line[loc[0]:loc[1]],
		}
		if c.Rule.IsRegex {
			m.Replacement = string(c.re.ExpandString(nil, c.Rule.ReplacementText, line, loc))
		} else {
			// Quoted plain pattern: the replacement is literal text.
			m.Replacement = c.Rule.ReplacementText
		}
		matches = append(matches, m)
	}
	return matches
}

// Apply rewrites one line with every match of the rule replaced. It returns
// the new line together with the matches that were applied.
func (c *Compiled) Apply(line string) (string, []Match) {
	matches := c.FindMatches(line)
	if len(matches) == 0 {
		return line, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(line[last:m.Start])
		b.WriteString(m.Replacement)
		last = m.End
	}
	b.WriteString(line[last:])
	return b.String(), matches
}

// NormalizeExt lowercases an extension and guarantees a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// NormalizeExts parses a comma-separated extension list into a normalized set.
func NormalizeExts(csv string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, part := range strings.Split(csv, ",") {
		if ext := NormalizeExt(part); ext != "" {
			out[ext] = struct{}{}
		}
	}
	return out
}

// ActiveOnly filters a slice of rules down to the active ones.
func ActiveOnly(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks the parts of a rule that compilation cannot.
func Validate(r Rule) error {
	if r.SearchPattern == "" {
		return errors.Errorf("rule %d: search pattern is required", r.ID)
	}
	return nil
}
