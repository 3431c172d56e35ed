// Package deepsearch expands replacement rules into naming-convention
// variants, so a rename like CNIC -> NationalID also proposes cnic, CNIC,
// txtCnic, col_cnic, and friends across ASP.NET, WinForms, Angular, and SQL
// codebases.
package deepsearch

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rulesweep/rulesweep/pkg/rule"
)

// commonPrefixes covers the hungarian and data-layer prefixes seen in the
// target codebases.
var commonPrefixes = []string{
	"column", "col", "fld", "txt", "lbl", "btn", "tbl", "sp", "fn",
	"vw", "ddl", "chk", "rdb", "grd", "pnl", "hdn", "rpt", "frm",
	"get", "set", "is", "has", "prm", "param", "var", "tmp",
}

// underscorePrefixes are joined with an underscore instead of PascalCase.
var underscorePrefixes = []string{"column", "col", "tbl", "sp", "fn", "vw"}

// 💡 Variant is one suggested derived rule.
type Variant struct {
	Original       string `json:"original"`
	Replacement    string `json:"replacement"`
	Category       string `json:"category"`
	Selected       bool   `json:"selected"`
	SourceRuleID   int64  `json:"source_rule_id,omitempty"`
	SourceRuleName string `json:"source_rule_name,omitempty"`
}

// generator deduplicates variants as they are added.
type generator struct {
	seen     map[[2]string]struct{}
	variants []Variant
}

func (g *generator) add(original, replacement, category string) {
	if original == replacement {
		return
	}
	key := [2]string{original, replacement}
	if _, ok := g.seen[key]; ok {
		return
	}
	g.seen[key] = struct{}{}
	g.variants = append(g.variants, Variant{
		Original:    original,
		Replacement: replacement,
		Category:    category,
		Selected:    true,
	})
}

// GenerateVariants expands one keyword pair into its naming-convention
// variants: case forms, snake case, underscore prefixes, and the common code
// prefixes. The exact pair comes first; duplicates and identity pairs are
// dropped.
func GenerateVariants(searchKeyword, replacementKeyword string) []Variant {
	search := strings.TrimSpace(searchKeyword)
	replace := strings.TrimSpace(replacementKeyword)
	if search == "" || replace == "" {
		return nil
	}

	g := &generator{seen: make(map[[2]string]struct{})}

	g.add(search, replace, "Exact")

	g.add(strings.ToLower(search), strings.ToLower(replace), "Case Variant")
	g.add(strings.ToUpper(search), strings.ToUpper(replace), "Case Variant")
	g.add(toPascal(search), toPascal(replace), "Case Variant")
	g.add(toCamel(search), toCamel(replace), "Case Variant")

	snakeSearch, snakeReplace := toSnake(search), toSnake(replace)
	g.add(snakeSearch, snakeReplace, "Snake Case")
	g.add(strings.ToUpper(snakeSearch), strings.ToUpper(snakeReplace), "Snake Case")

	g.add("_"+toCamel(search), "_"+toCamel(replace), "Underscore Prefix")
	g.add("_"+strings.ToLower(search), "_"+strings.ToLower(replace), "Underscore Prefix")

	for _, prefix := range commonPrefixes {
		g.add(prefix+toPascal(search), prefix+toPascal(replace), fmt.Sprintf("Prefix: %s*", prefix))
	}

	for _, prefix := range underscorePrefixes {
		category := fmt.Sprintf("Prefix: %s_*", prefix)
		g.add(prefix+"_"+strings.ToLower(search), prefix+"_"+strings.ToLower(replace), category)
		g.add(prefix+"_"+strings.ToUpper(search), prefix+"_"+strings.ToUpper(replace), category)
	}

	return g.variants
}

// GenerateFromRules expands every rule's keyword pair, tagging each variant
// with the rule it came from.
func GenerateFromRules(rules []rule.Rule) []Variant {
	var all []Variant
	for _, r := range rules {
		name := r.Name
		if name == "" {
			name = r.SearchPattern + " -> " + r.ReplacementText
		}
		for _, v := range GenerateVariants(r.SearchPattern, r.ReplacementText) {
			v.SourceRuleID = r.ID
			v.SourceRuleName = name
			all = append(all, v)
		}
	}
	return all
}

// AsRules converts selected variants into plain case-sensitive rules, ready
// to be saved and executed.
func AsRules(variants []Variant) []rule.Rule {
	out := make([]rule.Rule, 0, len(variants))
	for _, v := range variants {
		if !v.Selected {
			continue
		}
		out = append(out, rule.Rule{
			Name:            v.Original + " -> " + v.Replacement,
			Description:     "deep search variant (" + v.Category + ")",
			SearchPattern:   v.Original,
			ReplacementText: v.Replacement,
			CaseSensitive:   true,
			IsActive:        true,
		})
	}
	return out
}

func toCamel(word string) string {
	if word == "" {
		return word
	}
	r := []rune(word)
	return string(unicode.ToLower(r[0])) + string(r[1:])
}

func toPascal(word string) string {
	if word == "" {
		return word
	}
	r := []rune(word)
	return string(unicode.ToUpper(r[0])) + string(r[1:])
}

// toSnake inserts an underscore before each uppercase letter that follows a
// non-uppercase one, then lowercases.
func toSnake(word string) string {
	var b strings.Builder
	runes := []rune(word)
	for i, ch := range runes {
		if unicode.IsUpper(ch) && i > 0 && !unicode.IsUpper(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(ch))
	}
	return b.String()
}
