// Package reduce implements the fixed, ordered pipeline of pure
// outline-to-outline transforms described in SPEC_FULL.md §4.2. Every
// reducer in the pipeline obeys one contract: a line carrying a
// "[ref=e<n>]" tag is either kept (possibly with its name or suffix edited)
// or its reference is relocated into a preserved summary line. No reducer
// silently drops a reference without recording it somewhere the agent can
// still see.
package reduce

import (
	"fmt"
	"regexp"
	"strings"
)

// lineRe captures indent, role, quoted name, ref token and any trailing
// suffix from one outline line, in the style of the teacher's ARIA-line
// parser.
var lineRe = regexp.MustCompile(`^(\s*)- (\w+)(?: "((?:[^"\\]|\\.)*)")?(?: \[ref=(e\d+)\])?(.*)$`)

type line struct {
	raw    string
	indent int
	role   string
	name   string
	ref    string
	suffix string
	isElem bool
}

func parseLine(s string) line {
	m := lineRe.FindStringSubmatch(s)
	if m == nil {
		return line{raw: s}
	}
	return line{
		raw:    s,
		indent: len(m[1]) / 2,
		role:   m[2],
		name:   unescape(m[3]),
		ref:    m[4],
		suffix: m[5],
		isElem: true,
	}
}

func (l line) render() string {
	if !l.isElem {
		return l.raw
	}
	out := strings.Repeat("  ", l.indent) + "- " + l.role
	if l.name != "" {
		out += fmt.Sprintf(" %q", l.name)
	}
	if l.ref != "" {
		out += " [ref=" + l.ref + "]"
	}
	out += l.suffix
	return out
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}

func splitLines(outline string) []line {
	parts := strings.Split(outline, "\n")
	lines := make([]line, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, parseLine(p))
	}
	return lines
}

func joinLines(lines []line) string {
	rendered := make([]string, len(lines))
	for i, l := range lines {
		rendered[i] = l.render()
	}
	out := strings.Join(rendered, "\n")
	return collapseBlankRuns(out)
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankRuns(s string) string {
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Options configures the optional, non-default pipeline stages (9 and 10).
type Options struct {
	// VisibleRefs, if non-nil, restricts the output to elements whose
	// reference is in this set plus their structural ancestors (step 9).
	VisibleRefs map[string]bool
	// InteractiveOnly applies step 10: keep only referenced lines and
	// their structural ancestors.
	InteractiveOnly bool
	// MaxSiblings bounds step 8 (Smart Truncate); zero means the default
	// of 5.
	MaxSiblings int
	// MaxNameLength bounds step 7 (Truncate Long Names); zero means the
	// default of 120.
	MaxNameLength int
}

// Optimize runs the full default pipeline (steps 1-8) followed by the
// optional viewport/interactive filters (9-10) when requested in opts.
func Optimize(outlineText string, opts Options) string {
	steps := []func(string, Options) string{
		stripChrome,
		pruneAttributes,
		removeNoise,
		dedupLinks,
		collapseRedundantChildren,
		semanticCompress,
		truncateLongNames,
		smartTruncate,
	}
	out := outlineText
	for _, step := range steps {
		out = step(out, opts)
	}
	if opts.VisibleRefs != nil {
		out = viewportOnly(out, opts)
	}
	if opts.InteractiveOnly {
		out = interactiveOnly(out, opts)
	}
	return out
}

// Baseline assigns no new refs (those come from the outline builder) and
// drops every subtree that contains no reference at all, per SPEC_FULL.md
// §4.2. An unnamed structural line that has a referenced descendant is
// kept, so the nesting of what remains is unchanged.
func Baseline(outlineText string) string {
	lines := splitLines(outlineText)
	keep := make([]bool, len(lines))

	// A line is kept if it carries a ref or has a kept descendant
	// (computed bottom-up using indentation as nesting).
	hasKeptDescendant := make([]bool, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		l := lines[i]
		if !l.isElem {
			continue
		}
		selfInteresting := l.ref != ""
		keep[i] = selfInteresting || hasKeptDescendant[i]
		if keep[i] {
			// propagate to the nearest ancestor (first preceding line
			// with a strictly smaller indent).
			for j := i - 1; j >= 0; j-- {
				if lines[j].isElem && lines[j].indent < l.indent {
					hasKeptDescendant[j] = true
					break
				}
			}
		}
	}

	var out []line
	for i, l := range lines {
		if !l.isElem || keep[i] {
			out = append(out, l)
		}
	}
	return joinLines(out)
}

var structuralChromeNames = regexp.MustCompile(`(?i)skip to|cookie|privacy|terms of service`)
var adNamePrefix = regexp.MustCompile(`^(Advertisement|Promoted|Sponsored)`)

// stripChrome is pipeline step 1.
func stripChrome(outlineText string, _ Options) string {
	lines := splitLines(outlineText)
	drop := make([]bool, len(lines))
	rescuedAt := make(map[int][]line)

	for i, l := range lines {
		if !l.isElem || drop[i] {
			continue
		}
		isChrome := l.role == "banner" || l.role == "contentinfo" ||
			(l.indent <= 1 && l.role == "navigation") ||
			(l.indent <= 1 && structuralChromeNames.MatchString(l.name)) ||
			adNamePrefix.MatchString(l.name)
		if !isChrome {
			continue
		}
		end := subtreeEnd(lines, i)
		var rescued []line
		for j := i; j < end; j++ {
			if lines[j].isElem && lines[j].ref != "" && isInteractiveRole(lines[j].role) {
				rescued = append(rescued, lines[j])
			}
			drop[j] = true
		}
		if len(rescued) > 0 {
			lines[i].raw = strings.Repeat("  ", lines[i].indent) + `- group "chrome-actions"`
			lines[i].isElem = false
			drop[i] = false
			rescuedAt[i] = rescued
		}
	}

	var out []line
	for i, l := range lines {
		if drop[i] {
			continue
		}
		out = append(out, l)
		// Each rescued element gets its own indented line under the group
		// header, one [ref=e<n>] apiece, so the differ can still see them.
		for _, r := range rescuedAt[i] {
			r.indent = l.indent + 1
			out = append(out, r)
		}
	}
	return joinLines(out)
}

// subtreeEnd returns the index one past the last descendant of lines[i].
func subtreeEnd(lines []line, i int) int {
	if !lines[i].isElem {
		return i + 1
	}
	depth := lines[i].indent
	j := i + 1
	for j < len(lines) {
		if lines[j].isElem && lines[j].indent <= depth {
			break
		}
		j++
	}
	return j
}

func isInteractiveRole(role string) bool {
	switch role {
	case "button", "link", "textbox", "checkbox", "radio", "combobox",
		"listbox", "menuitem", "menuitemcheckbox", "menuitemradio",
		"option", "searchbox", "slider", "spinbutton", "switch", "tab",
		"treeitem":
		return true
	}
	return false
}

var urlNameRe = regexp.MustCompile(`^https?://([^/]+)(/.*)?$`)

// pruneAttributes is pipeline step 2.
func pruneAttributes(outlineText string, _ Options) string {
	lines := splitLines(outlineText)
	var out []line
	for _, l := range lines {
		if !l.isElem {
			if strings.HasPrefix(strings.TrimSpace(l.raw), "- /url:") {
				continue
			}
			out = append(out, l)
			continue
		}
		if m := urlNameRe.FindStringSubmatch(l.name); m != nil {
			l.name = m[1] + m[2]
		}
		l.suffix = stripAttr(l.suffix, "url")
		l.suffix = stripAttrExact(l.suffix, `[description=""]`)
		l.suffix = stripAttrExact(l.suffix, "[focused]")
		l.suffix = stripAttrExact(l.suffix, "[disabled=false]")
		l.suffix = stripAttr(l.suffix, "level")
		out = append(out, l)
	}
	return joinLines(out)
}

func stripAttr(suffix, key string) string {
	re := regexp.MustCompile(`\s*\[` + key + `=[^\]]*\]`)
	return re.ReplaceAllString(suffix, "")
}

func stripAttrExact(suffix, token string) string {
	return strings.ReplaceAll(suffix, " "+token, "")
}

// removeNoise is pipeline step 3.
func removeNoise(outlineText string, _ Options) string {
	lines := splitLines(outlineText)
	var out []line
	for _, l := range lines {
		if !l.isElem {
			if strings.HasPrefix(strings.TrimSpace(l.raw), "- /placeholder:") {
				continue
			}
			out = append(out, l)
			continue
		}
		if l.role == "text" && strings.TrimSpace(l.name) == "" {
			continue
		}
		out = append(out, l)
	}
	return joinLines(out)
}

var nonWordRe = regexp.MustCompile(`\W+`)

// dedupLinks is pipeline step 4.
func dedupLinks(outlineText string, _ Options) string {
	lines := splitLines(outlineText)
	drop := make([]bool, len(lines))

	for i, l := range lines {
		if l.isElem && l.role == "article" {
			end := subtreeEnd(lines, i)
			seen := make(map[string]bool)
			for j := i + 1; j < end; j++ {
				if !lines[j].isElem {
					continue
				}
				if lines[j].role == "link" {
					key := strings.ToLower(lines[j].name)
					if seen[key] {
						drop[j] = true
					} else {
						seen[key] = true
					}
				}
			}
		}
	}
	var out []line
	for i, l := range lines {
		if drop[i] {
			continue
		}
		if l.isElem && l.role == "img" && l.name == "" {
			continue
		}
		out = append(out, l)
	}
	return joinLines(out)
}

// collapseRedundantChildren is pipeline step 5.
func collapseRedundantChildren(outlineText string, _ Options) string {
	lines := splitLines(outlineText)
	drop := make([]bool, len(lines))

	for i, l := range lines {
		if !l.isElem || (l.role != "link" && l.role != "button") || len(l.name) <= 40 {
			continue
		}
		end := subtreeEnd(lines, i)
		if end == i+1 {
			continue
		}
		parentName := strings.ToLower(l.name)
		allRedundant := true
		for j := i + 1; j < end; j++ {
			c := lines[j]
			if !c.isElem {
				continue
			}
			if isInteractiveRole(c.role) {
				allRedundant = false
				break
			}
			if overlapRatio(longWords(strings.ToLower(c.name)), parentName) < 0.6 {
				allRedundant = false
				break
			}
		}
		if allRedundant {
			for j := i + 1; j < end; j++ {
				drop[j] = true
			}
		}
	}

	var out []line
	for i, l := range lines {
		if !drop[i] {
			out = append(out, l)
		}
	}
	return joinLines(out)
}

func longWords(s string) []string {
	var words []string
	for _, w := range nonWordRe.Split(s, -1) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

func overlapRatio(words []string, within string) float64 {
	if len(words) == 0 {
		return 1
	}
	hit := 0
	for _, w := range words {
		if strings.Contains(within, w) {
			hit++
		}
	}
	return float64(hit) / float64(len(words))
}
