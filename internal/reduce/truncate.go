package reduce

import (
	"fmt"
	"strings"
)

const (
	defaultMaxNameLength = 120
	defaultMaxSiblings   = 5
)

// truncateLongNames is pipeline step 7.
func truncateLongNames(outlineText string, opts Options) string {
	limit := opts.MaxNameLength
	if limit == 0 {
		limit = defaultMaxNameLength
	}
	lines := splitLines(outlineText)
	for i, l := range lines {
		if !l.isElem || len(l.name) <= limit {
			continue
		}
		cut := strings.LastIndexByte(l.name[:limit], ' ')
		if cut <= 0 {
			cut = limit
		}
		lines[i].name = strings.TrimSpace(l.name[:cut]) + "..."
	}
	return joinLines(lines)
}

var truncatableSiblingRoles = map[string]bool{
	"listitem": true,
	"row":      true,
	"article":  true,
}

// smartTruncate is pipeline step 8. Among runs of sibling listitem/row/
// article elements at the same indent, it keeps the first K and replaces
// the remainder with one informational summary line.
func smartTruncate(outlineText string, opts Options) string {
	maxSiblings := opts.MaxSiblings
	if maxSiblings == 0 {
		maxSiblings = defaultMaxSiblings
	}

	lines := splitLines(outlineText)
	var out []line
	i := 0
	for i < len(lines) {
		l := lines[i]
		if !l.isElem || !truncatableSiblingRoles[l.role] {
			out = append(out, l)
			i++
			continue
		}

		// Collect the run of same-role, same-indent siblings starting
		// here, skipping over each one's own subtree.
		runStart := i
		var runHeads []int
		for i < len(lines) {
			cur := lines[i]
			if !cur.isElem || cur.role != l.role || cur.indent != l.indent {
				break
			}
			runHeads = append(runHeads, i)
			i = subtreeEnd(lines, i)
		}

		if len(runHeads) <= maxSiblings {
			for _, idx := range runHeads {
				end := subtreeEnd(lines, idx)
				out = append(out, lines[idx:end]...)
			}
			continue
		}

		for _, idx := range runHeads[:maxSiblings] {
			end := subtreeEnd(lines, idx)
			out = append(out, lines[idx:end]...)
		}

		skipped := runHeads[maxSiblings:]
		var hiddenRefs []string
		for _, idx := range skipped {
			if ref := lines[idx].ref; ref != "" {
				hiddenRefs = append(hiddenRefs, ref)
			}
			if len(hiddenRefs) >= 3 {
				break
			}
		}

		summary := fmt.Sprintf("... and %d more %ss", len(skipped), l.role)
		if len(hiddenRefs) > 0 {
			summary += fmt.Sprintf(" (%d refs hidden: %s...)", len(skipped), strings.Join(hiddenRefs, ","))
		}
		out = append(out, line{
			raw:    strings.Repeat("  ", l.indent) + fmt.Sprintf("- text %q", summary),
			isElem: false,
		})
		_ = runStart
	}
	return joinLines(out)
}

// viewportOnly is pipeline step 9 (optional): keep only lines whose
// reference is in opts.VisibleRefs, plus structural ancestors of a kept
// line.
func viewportOnly(outlineText string, opts Options) string {
	lines := splitLines(outlineText)
	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.isElem && l.ref != "" && opts.VisibleRefs[l.ref] {
			keep[i] = true
			markAncestors(lines, i, keep)
		}
	}
	var out []line
	for i, l := range lines {
		if keep[i] {
			out = append(out, l)
		}
	}
	return joinLines(out)
}

// interactiveOnly is pipeline step 10 (optional): keep only lines that
// carry a reference, plus their structural ancestors.
func interactiveOnly(outlineText string, _ Options) string {
	lines := splitLines(outlineText)
	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.isElem && l.ref != "" {
			keep[i] = true
			markAncestors(lines, i, keep)
		}
	}
	var out []line
	for i, l := range lines {
		if keep[i] {
			out = append(out, l)
		}
	}
	return joinLines(out)
}

func markAncestors(lines []line, i int, keep []bool) {
	depth := lines[i].indent
	for j := i - 1; j >= 0 && depth > 0; j-- {
		if lines[j].isElem && lines[j].indent < depth {
			keep[j] = true
			depth = lines[j].indent
		}
	}
}
