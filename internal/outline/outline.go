// Package outline converts a flat accessibility-node list into an indented,
// reference-tagged textual outline, together with the handle map that lets
// later stages address the elements that were tagged.
package outline

import (
	"fmt"
	"strings"
)

// Node is one entry of the accessibility tree as delivered by the browser
// transport (see internal/transport). IDs are opaque strings assigned by the
// browser; BackendNodeID is the handle used to later address the element
// over the DevTools protocol.
type Node struct {
	ID            string
	ParentID      string
	Role          string
	Name          string
	Ignored       bool
	BackendNodeID int64
}

// HandleMap maps a reference token, e.g. "e5", to the backend-DOM handle of
// the element it was assigned to. It is replaced wholesale on every Build
// call; callers must never mutate one in place.
type HandleMap map[string]int64

// roleMap translates raw accessibility-tree roles onto the standard ARIA
// vocabulary the rest of the pipeline (reduce, diff) understands. A role not
// present here is treated as transparent: its line is not emitted, but its
// children are still visited at the same depth.
var roleMap = map[string]string{
	"TextField":     "textbox",
	"WebArea":       "document",
	"RootWebArea":   "document",
	"paragraph":     "text",
	"Section":       "region",
	"image":         "img",
	"search":        "searchbox",
	"complementary": "region",
	"form":          "group",
	"button":        "button",
	"link":          "link",
	"textbox":       "textbox",
	"checkbox":      "checkbox",
	"radio":         "radio",
	"combobox":      "combobox",
	"listbox":       "listbox",
	"menuitem":      "menuitem",
	"option":        "option",
	"searchbox":     "searchbox",
	"slider":        "slider",
	"spinbutton":    "spinbutton",
	"switch":        "switch",
	"tab":           "tab",
	"treeitem":      "treeitem",
	"heading":       "heading",
	"cell":          "cell",
	"gridcell":      "gridcell",
	"columnheader":  "columnheader",
	"rowheader":     "rowheader",
	"listitem":      "listitem",
	"article":       "article",
	"region":        "region",
	"main":          "main",
	"navigation":    "navigation",
	"generic":       "generic",
	"group":         "group",
	"list":          "list",
	"table":         "table",
	"row":           "row",
	"banner":        "banner",
	"contentinfo":   "contentinfo",
	"img":           "img",
	"strong":        "strong",
	"emphasis":      "emphasis",
	"mark":          "mark",
	"document":      "document",
}

// dropRoles are discarded along with their entire subtree.
var dropRoles = map[string]bool{
	"InlineTextBox": true,
	"LineBreak":     true,
}

// transparentRawRoles never emit a line; their children are visited at the
// same depth as their own.
var transparentRawRoles = map[string]bool{
	"none":        true,
	"presentation": true,
	"StaticText":  true,
	"RootWebArea": true,
	"ignored":     true,
}

// InteractiveRoles is the set of standard roles that receive a reference
// whenever the node has a backend-DOM handle. Content roles receive one
// only when they also carry a name. A node without a handle receives none.
var InteractiveRoles = map[string]bool{
	"button":           true,
	"link":             true,
	"textbox":          true,
	"checkbox":         true,
	"radio":            true,
	"combobox":         true,
	"listbox":          true,
	"menuitem":         true,
	"menuitemcheckbox": true,
	"menuitemradio":    true,
	"option":           true,
	"searchbox":        true,
	"slider":           true,
	"spinbutton":       true,
	"switch":           true,
	"tab":              true,
	"treeitem":         true,
}

type builder struct {
	out       strings.Builder
	handles   HandleMap
	refCount  int
	byID      map[string]*Node
	children  map[string][]*Node
}

// Build walks nodes depth-first from the root and produces the outline text
// and handle map described in SPEC_FULL.md §4.1. The output is deterministic
// for a given input slice.
func Build(nodes []Node) (string, HandleMap) {
	b := &builder{
		handles:  make(HandleMap),
		byID:     make(map[string]*Node, len(nodes)),
		children: make(map[string][]*Node),
	}
	if len(nodes) == 0 {
		return "", b.handles
	}

	var root *Node
	for i := range nodes {
		n := &nodes[i]
		b.byID[n.ID] = n
		if n.ParentID == "" && root == nil {
			root = n
		}
	}
	if root == nil {
		root = &nodes[0]
	}
	for i := range nodes {
		n := &nodes[i]
		if n.ID == root.ID {
			continue
		}
		b.children[n.ParentID] = append(b.children[n.ParentID], n)
	}

	for _, child := range b.children[root.ID] {
		b.visit(child, 0)
	}

	return strings.TrimRight(b.out.String(), "\n"), b.handles
}

func (b *builder) visit(n *Node, depth int) {
	if dropRoles[n.Role] {
		return
	}
	if n.Ignored && len(b.children[n.ID]) == 0 {
		return
	}
	if transparentRawRoles[n.Role] {
		for _, child := range b.children[n.ID] {
			b.visit(child, depth)
		}
		return
	}

	mapped, known := roleMap[n.Role]
	if !known {
		for _, child := range b.children[n.ID] {
			b.visit(child, depth)
		}
		return
	}

	b.emit(n, mapped, depth)
	for _, child := range b.children[n.ID] {
		b.visit(child, depth+1)
	}
}

func (b *builder) emit(n *Node, role string, depth int) {
	name := strings.TrimSpace(n.Name)

	needsRef := InteractiveRoles[role] || (name != "" && role != "generic" && role != "text")

	line := strings.Repeat("  ", depth) + "- " + role
	if name != "" {
		line += fmt.Sprintf(" %q", name)
	}
	if needsRef && n.BackendNodeID != 0 {
		b.refCount++
		ref := fmt.Sprintf("e%d", b.refCount)
		line += " [ref=" + ref + "]"
		b.handles[ref] = n.BackendNodeID
	}

	b.out.WriteString(line)
	b.out.WriteByte('\n')
}
