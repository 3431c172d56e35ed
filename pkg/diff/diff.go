// Package diff renders human-reviewable diffs between original and proposed
// file content. Output depends only on the inputs, so the same rule/file pair
// always produces the same diff.
package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gitlab.com/tozd/go/errors"
)

const contextLines = 3

// Unified renders a line-level unified diff between original and modified
// content, labelled a/<name> and b/<name> in the header.
func Unified(original, modified, name string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  contextLines,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", errors.Errorf("rendering unified diff: %w", err)
	}
	return out, nil
}

// Summary returns a one-line change summary, e.g. "+14/-14 chars in 3 spans",
// for compact console output next to a file name.
func Summary(original, modified string) string {
	if original == modified {
		return "no changes"
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, modified, false)

	inserted, deleted, spans := 0, 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
			spans++
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
			spans++
		}
	}
	return fmt.Sprintf("+%d/-%d chars in %d spans", inserted, deleted, spans)
}
