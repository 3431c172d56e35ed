package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileOne(t *testing.T, r Rule) *Compiled {
	t.Helper()
	set, err := Compile([]Rule{r})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	return set.Rules()[0]
}

func TestFindMatches_Plain(t *testing.T) {
	tests := []struct {
		name      string
		rule      Rule
		line      string
		wantTexts []string
	}{
		{
			name:      "single_match",
			rule:      Rule{SearchPattern: "OldName", ReplacementText: "NewName", CaseSensitive: true},
			line:      "OldName.Method()",
			wantTexts: []string{"OldName"},
		},
		{
			name:      "multiple_non_overlapping",
			rule:      Rule{SearchPattern: "aa", ReplacementText: "b", CaseSensitive: true},
			line:      "aaaa",
			wantTexts: []string{"aa", "aa"},
		},
		{
			name:      "case_sensitive_misses_lowercase",
			rule:      Rule{SearchPattern: "Foo", ReplacementText: "Bar", CaseSensitive: true},
			line:      "foo FOO",
			wantTexts: nil,
		},
		{
			name:      "case_insensitive_hits_all_casings",
			rule:      Rule{SearchPattern: "Foo", ReplacementText: "Bar"},
			line:      "foo FOO Foo",
			wantTexts: []string{"foo", "FOO", "Foo"},
		},
		{
			name:      "no_match",
			rule:      Rule{SearchPattern: "missing", ReplacementText: "x", CaseSensitive: true},
			line:      "nothing here",
			wantTexts: nil,
		},
		{
			name:      "empty_pattern_never_matches",
			rule:      Rule{SearchPattern: "", ReplacementText: "x", CaseSensitive: true},
			line:      "anything",
			wantTexts: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileOne(t, tt.rule)
			matches := c.FindMatches(tt.line)
			var texts []string
			for _, m := range matches {
				texts = append(texts, m.Text)
				assert.Equal(t, tt.line[m.Start:m.End], m.Text)
			}
			assert.Equal(t, tt.wantTexts, texts)
		})
	}
}

func TestFindMatches_LeftToRightNonOverlapping(t *testing.T) {
	c := compileOne(t, Rule{SearchPattern: "aba", ReplacementText: "x", CaseSensitive: true})
	matches := c.FindMatches("ababa")
	// After the first match at [0,3) the search resumes at 3, so the
	// overlapping occurrence at offset 2 is not reported.
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, 3, matches[0].End)
}

func TestFindMatches_Regexp(t *testing.T) {
	c := compileOne(t, Rule{
		SearchPattern:   `Get(\w+)ByCnic`,
		ReplacementText: "Get${1}ByNationalID",
		IsRegex:         true,
		CaseSensitive:   true,
	})
	matches := c.FindMatches("x = GetEmployeeByCnic(id) + GetManagerByCnic(id)")
	require.Len(t, matches, 2)
	assert.Equal(t, "GetEmployeeByCnic", matches[0].Text)
	assert.Equal(t, "GetEmployeeByNationalID", matches[0].Replacement)
	assert.Equal(t, "GetManagerByNationalID", matches[1].Replacement)
}

func TestFindMatches_RegexpCaseInsensitive(t *testing.T) {
	c := compileOne(t, Rule{SearchPattern: `cnic`, ReplacementText: "nid", IsRegex: true})
	matches := c.FindMatches("CNIC cnic Cnic")
	assert.Len(t, matches, 3)
}

func TestCompile_InvalidPattern(t *testing.T) {
	_, err := Compile([]Rule{
		{ID: 7, SearchPattern: "fine", CaseSensitive: true},
		{ID: 9, SearchPattern: "(unclosed", IsRegex: true},
	})
	require.Error(t, err)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, int64(9), cerr.RuleID)
	assert.Equal(t, "(unclosed", cerr.Pattern)
}

func TestApply(t *testing.T) {
	c := compileOne(t, Rule{SearchPattern: "OldName", ReplacementText: "NewName", CaseSensitive: true})
	line, matches := c.Apply("OldName.Method(OldName)")
	assert.Equal(t, "NewName.Method(NewName)", line)
	assert.Len(t, matches, 2)

	line, matches = c.Apply("untouched")
	assert.Equal(t, "untouched", line)
	assert.Empty(t, matches)
}

func TestApply_PlainReplacementIsLiteral(t *testing.T) {
	// A plain rule's replacement must never be treated as a regexp template.
	c := compileOne(t, Rule{SearchPattern: "price", ReplacementText: "$1 cost"})
	line, _ := c.Apply("the PRICE")
	assert.Equal(t, "the $1 cost", line)
}

func TestAppliesTo(t *testing.T) {
	tests := []struct {
		name    string
		targets string
		ext     string
		want    bool
	}{
		{"empty_filter_matches_everything", "", ".ts", true},
		{"listed_extension", "cs,cshtml", ".cs", true},
		{"listed_with_dot", ".cs,.cshtml", ".cshtml", true},
		{"unlisted_extension", "cs,cshtml", ".ts", false},
		{"case_insensitive_extension", "cs", ".CS", true},
		{"without_leading_dot_query", "cs", "cs", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileOne(t, Rule{SearchPattern: "x", CaseSensitive: true, TargetExtensions: tt.targets})
			assert.Equal(t, tt.want, c.AppliesTo(tt.ext))
		})
	}
}

func TestSetExtensions(t *testing.T) {
	set, err := Compile([]Rule{
		{SearchPattern: "a", TargetExtensions: "cs,sql", CaseSensitive: true},
		{SearchPattern: "b", TargetExtensions: ".ts", CaseSensitive: true},
	})
	require.NoError(t, err)

	union, unbounded := set.Extensions()
	assert.False(t, unbounded)
	assert.Equal(t, map[string]struct{}{".cs": {}, ".sql": {}, ".ts": {}}, union)

	set, err = Compile([]Rule{
		{SearchPattern: "a", TargetExtensions: "cs", CaseSensitive: true},
		{SearchPattern: "b", CaseSensitive: true},
	})
	require.NoError(t, err)
	_, unbounded = set.Extensions()
	assert.True(t, unbounded)
}

func TestNormalizeExts(t *testing.T) {
	got := NormalizeExts(" .CS, ts ,,  .Sql ")
	assert.Equal(t, map[string]struct{}{".cs": {}, ".ts": {}, ".sql": {}}, got)
}

func TestActiveOnly(t *testing.T) {
	rules := []Rule{
		{ID: 1, IsActive: true},
		{ID: 2},
		{ID: 3, IsActive: true},
	}
	active := ActiveOnly(rules)
	require.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].ID)
	assert.Equal(t, int64(3), active[1].ID)
}
