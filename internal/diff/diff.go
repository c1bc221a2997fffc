// Package diff computes a structural delta between two successive outlines,
// as described in SPEC_FULL.md §4.3.
package diff

import (
	"fmt"
	"regexp"
	"strings"
)

// elementRe accepts a fixed alternation of known ARIA roles. A line whose
// role falls outside it is not dropped from the parse: parseElements falls
// back to anyRoleRe for it (SPEC_FULL.md §4.3, "Unrecognized roles").
var elementRe = regexp.MustCompile(
	`^(\s*)- (button|link|textbox|checkbox|radio|combobox|listbox|menuitem|` +
		`menuitemcheckbox|menuitemradio|option|searchbox|slider|spinbutton|` +
		`switch|tab|treeitem|heading|cell|gridcell|columnheader|rowheader|` +
		`listitem|article|region|main|navigation|generic|group|list|table|` +
		`row|banner|contentinfo|img|text|strong|emphasis|mark|document)` +
		`(?: "((?:[^"\\]|\\.)*)")?(?: \[ref=(e\d+)\])?`)

var anyRoleRe = regexp.MustCompile(`^(\s*)- (\w+)(?: "((?:[^"\\]|\\.)*)")?(?: \[ref=(e\d+)\])?`)

// Element is one parsed outline line.
type Element struct {
	Role   string
	Name   string
	Ref    string
	Indent int
}

// noiseRoles are excluded from the added/removed lists (but still count as
// unchanged when matched).
var noiseRoles = map[string]bool{
	"generic": true, "group": true, "list": true, "table": true,
	"row": true, "document": true, "text": true, "strong": true,
	"emphasis": true, "mark": true,
}

// Report is the outcome of a Diff call.
type Report struct {
	Added       []Element
	Removed     []Element
	Changed     []Change
	Unchanged   int
	Text        string
	DiffRatio   float64
	IsEmpty     bool
	IsLargeDiff bool
}

// Change records a matched element whose name differs between snapshots.
type Change struct {
	Role string
	Ref  string
	Old  string
	New  string
}

// OnUnrecognizedRole, when set, is invoked for every line, in either
// outline, whose role falls outside the known ARIA alternation (see
// SPEC_FULL.md §4.3). It is nil by default, so such lines are parsed and
// diffed without any report.
var OnUnrecognizedRole func(role string)

func parseElements(outlineText string) []Element {
	var elems []Element
	for _, raw := range strings.Split(outlineText, "\n") {
		m := elementRe.FindStringSubmatch(raw)
		if m == nil {
			if am := anyRoleRe.FindStringSubmatch(raw); am != nil {
				if OnUnrecognizedRole != nil {
					OnUnrecognizedRole(am[2])
				}
				elems = append(elems, Element{
					Role:   am[2],
					Name:   unescape(am[3]),
					Ref:    am[4],
					Indent: len(am[1]) / 2,
				})
			}
			continue
		}
		elems = append(elems, Element{
			Role:   m[2],
			Name:   unescape(m[3]),
			Ref:    m[4],
			Indent: len(m[1]) / 2,
		})
	}
	return elems
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}

func roleNameKey(e Element) string {
	return e.Role + "\x00" + e.Name
}

// Diff parses prevOutline and currOutline and reports the structural delta
// between them. prevURL/currURL are used only for the rendered Text header.
func Diff(prevOutline, currOutline, prevURL, currURL string) Report {
	prevElems := parseElements(prevOutline)
	currElems := parseElements(currOutline)

	prevByRef := make(map[string]Element, len(prevElems))
	prevByRoleName := make(map[string]Element, len(prevElems))
	matchedPrevKeys := make(map[string]bool, len(prevElems))

	for _, e := range prevElems {
		if e.Ref != "" {
			if _, ok := prevByRef[e.Ref]; !ok {
				prevByRef[e.Ref] = e
			}
		}
		key := roleNameKey(e)
		if _, ok := prevByRoleName[key]; !ok {
			prevByRoleName[key] = e
		}
	}

	var added []Element
	var changed []Change
	unchanged := 0

	for _, curr := range currElems {
		var prev Element
		var matched bool
		var matchKey string

		if curr.Ref != "" {
			if p, ok := prevByRef[curr.Ref]; ok {
				prev, matched = p, true
				matchKey = "ref:" + curr.Ref
			}
		}
		if !matched {
			key := roleNameKey(curr)
			if p, ok := prevByRoleName[key]; ok {
				prev, matched = p, true
				matchKey = "rn:" + key
			}
		}

		if !matched {
			added = append(added, curr)
			continue
		}
		matchedPrevKeys[matchKey] = true

		if curr.Ref != "" && prev.Ref == curr.Ref && prev.Name != curr.Name {
			changed = append(changed, Change{Role: curr.Role, Ref: curr.Ref, Old: prev.Name, New: curr.Name})
			continue
		}
		unchanged++
	}

	var removed []Element
	for _, prev := range prevElems {
		key := "rn:" + roleNameKey(prev)
		if prev.Ref != "" {
			key = "ref:" + prev.Ref
		}
		if !matchedPrevKeys[key] {
			removed = append(removed, prev)
		}
	}

	filteredAdded := filterNoise(added)
	filteredRemoved := filterNoise(removed)

	total := len(currElems)
	deltaCount := len(filteredAdded) + len(filteredRemoved) + len(changed)
	ratio := 0.0
	if total > 0 {
		ratio = float64(deltaCount) / float64(total)
	}

	report := Report{
		Added:       filteredAdded,
		Removed:     filteredRemoved,
		Changed:     changed,
		Unchanged:   unchanged,
		DiffRatio:   ratio,
		IsEmpty:     len(filteredAdded) == 0 && len(filteredRemoved) == 0 && len(changed) == 0,
		IsLargeDiff: ratio > 0.7,
	}
	report.Text = render(report, prevURL, currURL, currElems)
	return report
}

func filterNoise(elems []Element) []Element {
	var out []Element
	for _, e := range elems {
		if noiseRoles[e.Role] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func render(r Report, prevURL, currURL string, currElems []Element) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", currURL)
	if prevURL != "" && prevURL != currURL {
		fmt.Fprintf(&b, "CHANGED from %s\n", prevURL)
	}
	for _, e := range currElems {
		if e.Role == "heading" {
			fmt.Fprintf(&b, "Title: %s\n", e.Name)
			break
		}
	}
	b.WriteString("\n")

	for _, e := range r.Added {
		writeElementLine(&b, "+", e)
	}
	for _, e := range r.Removed {
		writeElementLine(&b, "-", e)
	}
	for _, c := range r.Changed {
		ref := ""
		if c.Ref != "" {
			ref = " [ref=" + c.Ref + "]"
		}
		fmt.Fprintf(&b, "~ %s%s: %q → %q\n", c.Role, ref, c.Old, c.New)
	}
	if r.Unchanged > 0 {
		fmt.Fprintf(&b, "= %d unchanged elements (not shown)\n", r.Unchanged)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeElementLine(b *strings.Builder, prefix string, e Element) {
	fmt.Fprintf(b, "%s %s", prefix, e.Role)
	if e.Name != "" {
		fmt.Fprintf(b, " %q", e.Name)
	}
	if e.Ref != "" {
		fmt.Fprintf(b, " [ref=%s]", e.Ref)
	}
	b.WriteString("\n")
}
