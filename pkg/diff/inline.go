package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// splitLines splits content into lines, stripping the trailing empty
// element a final newline produces, so "a\nb\n" yields ["a","b"] and not
// ["a","b",""]. Adapted from cline-cli's hostbridge.splitLines, which
// implements the same rule by hand; here the line-oriented split only has
// to handle "\n" since diffmatchpatch's line tokenizer already normalizes
// per-line boundaries for us.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Compute implements InlineDiffer.compute from spec §4.3: given old and new
// text, it returns parallel lines/kinds arrays suitable for rendering a
// unified inline diff.
//
// Grounded on src-d/hercules's internal/plumbing/diff.go (present in the
// retrieval pack under other_examples/, two mirrors of the same project),
// which turns a line-oriented diff into diffmatchpatch.Diff segments via
// DiffLinesToChars -> DiffMain -> DiffCharsToLines. Each resulting segment
// carries an Operation (Equal/Insert/Delete) and a multi-line Text; we only
// need to explode that Text back into individual lines and tag each with
// the matching LineKind, which already gives exactly the
// lines[]/kinds[] shape spec.md asks for without having to build explicit
// (start_a,count_a,start_b,count_b) hunk tuples ourselves.
func Compute(oldText, newText string) ([]string, []LineKind) {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []string
	var kinds []LineKind

	for _, d := range diffs {
		segment := splitLines(d.Text)
		var kind LineKind
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			kind = LineUnchanged
		case diffmatchpatch.DiffInsert:
			kind = LineAdded
		case diffmatchpatch.DiffDelete:
			kind = LineDeleted
		}
		for _, line := range segment {
			lines = append(lines, line)
			kinds = append(kinds, kind)
		}
	}

	return lines, kinds
}

// ExtractAcceptedContent implements the companion function from spec §4.3:
// it concatenates every non-deleted line, and re-appends a trailing newline
// iff originalNewContents ended with one.
func ExtractAcceptedContent(lines []string, kinds []LineKind, originalNewContents string) string {
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if kinds[i] != LineDeleted {
			kept = append(kept, line)
		}
	}
	content := strings.Join(kept, "\n")
	if strings.HasSuffix(originalNewContents, "\n") {
		content += "\n"
	}
	return content
}

// ExtractOriginalContent mirrors ExtractAcceptedContent for the old side: it
// joins every entry whose kind is unchanged or deleted. Used by tests to
// verify the property in spec §8: "the subsequence of compute(old,new)
// entries with kind in {unchanged,deleted}, joined by \n, reconstructs old."
func ExtractOriginalContent(lines []string, kinds []LineKind, originalOldContents string) string {
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if kinds[i] != LineAdded {
			kept = append(kept, line)
		}
	}
	content := strings.Join(kept, "\n")
	if strings.HasSuffix(originalOldContents, "\n") {
		content += "\n"
	}
	return content
}
